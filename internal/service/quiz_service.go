package service

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// Время жизни кэша викторины с вопросами
const quizCacheTTL = 5 * time.Minute

// QuizService предоставляет методы для администрирования викторин и их вопросов
type QuizService struct {
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
	cacheRepo    repository.CacheRepository
	db           *gorm.DB
}

// NewQuizService создает новый сервис викторин
func NewQuizService(
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	cacheRepo repository.CacheRepository,
	db *gorm.DB,
) *QuizService {
	return &QuizService{
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		cacheRepo:    cacheRepo,
		db:           db,
	}
}

// CreateQuiz создает новую викторину
func (s *QuizService) CreateQuiz(quiz *entity.Quiz) error {
	if err := validateQuiz(quiz); err != nil {
		return err
	}
	if quiz.PassScore == 0 {
		quiz.PassScore = 60
	}

	if err := s.quizRepo.Create(quiz); err != nil {
		log.Printf("[QuizService] Ошибка создания викторины: %v", err)
		return err
	}

	log.Printf("[QuizService] Создана викторина #%d: %s", quiz.ID, quiz.Title)
	return nil
}

// GetQuizByID возвращает викторину без вопросов
func (s *QuizService) GetQuizByID(quizID uint) (*entity.Quiz, error) {
	return s.quizRepo.GetByID(quizID)
}

// GetQuizWithQuestions возвращает викторину вместе с вопросами.
// Результат кэшируется: вопросы читаются при каждом старте попытки.
func (s *QuizService) GetQuizWithQuestions(quizID uint) (*entity.Quiz, error) {
	cacheKey := quizCacheKey(quizID)

	var cached entity.Quiz
	if err := s.cacheRepo.GetJSON(cacheKey, &cached); err == nil {
		return &cached, nil
	}

	quiz, err := s.quizRepo.GetWithQuestions(quizID)
	if err != nil {
		return nil, err
	}

	if err := s.cacheRepo.SetJSON(cacheKey, quiz, quizCacheTTL); err != nil {
		// Кэш недоступен — работаем напрямую с базой
		log.Printf("[QuizService] Не удалось закэшировать викторину #%d: %v", quizID, err)
	}
	return quiz, nil
}

// ListQuizzes возвращает страницу викторин и общее количество
func (s *QuizService) ListQuizzes(page, pageSize int) ([]entity.Quiz, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.quizRepo.List(pageSize, (page-1)*pageSize)
}

// ListQuizzesByCourse возвращает викторины курса
func (s *QuizService) ListQuizzesByCourse(courseID uint) ([]entity.Quiz, error) {
	return s.quizRepo.ListByCourse(courseID)
}

// UpdateQuiz обновляет настройки викторины
func (s *QuizService) UpdateQuiz(quiz *entity.Quiz) error {
	if err := validateQuiz(quiz); err != nil {
		return err
	}
	if _, err := s.quizRepo.GetByID(quiz.ID); err != nil {
		return err
	}

	if err := s.quizRepo.Update(quiz); err != nil {
		log.Printf("[QuizService] Ошибка обновления викторины #%d: %v", quiz.ID, err)
		return err
	}

	s.invalidateQuizCache(quiz.ID)
	return nil
}

// DeleteQuiz удаляет викторину вместе с вопросами и сохраненными попытками:
// каскад делает база по внешним ключам, сервис удаляет только корень.
func (s *QuizService) DeleteQuiz(quizID uint) error {
	if err := s.quizRepo.Delete(quizID); err != nil {
		return err
	}

	s.invalidateQuizCache(quizID)
	log.Printf("[QuizService] Удалена викторина #%d", quizID)
	return nil
}

// AddQuestion добавляет вопрос в викторину.
// Счетчик вопросов обновляется в той же транзакции, что и вставка.
func (s *QuizService) AddQuestion(quizID uint, question *entity.Question) error {
	if _, err := s.quizRepo.GetByID(quizID); err != nil {
		return err
	}

	question.QuizID = quizID
	if question.Points <= 0 {
		question.Points = 1
	}
	if err := validateQuestion(question); err != nil {
		return err
	}

	if question.SortOrder == 0 {
		max, err := s.questionRepo.MaxSortOrder(quizID)
		if err != nil {
			return err
		}
		question.SortOrder = max + 1
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(question).Error; err != nil {
			return err
		}
		count, err := countQuestionsTx(tx, quizID)
		if err != nil {
			return err
		}
		return tx.Model(&entity.Quiz{}).Where("id = ?", quizID).
			Update("questions_count", count).Error
	})
	if err != nil {
		log.Printf("[QuizService] Ошибка добавления вопроса в викторину #%d: %v", quizID, err)
		return err
	}

	s.invalidateQuizCache(quizID)
	return nil
}

// AddQuestions добавляет несколько вопросов за один вызов
func (s *QuizService) AddQuestions(quizID uint, questions []entity.Question) error {
	if _, err := s.quizRepo.GetByID(quizID); err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("%w: questions list is empty", apperrors.ErrValidation)
	}

	max, err := s.questionRepo.MaxSortOrder(quizID)
	if err != nil {
		return err
	}
	for i := range questions {
		questions[i].QuizID = quizID
		if questions[i].Points <= 0 {
			questions[i].Points = 1
		}
		if questions[i].SortOrder == 0 {
			max++
			questions[i].SortOrder = max
		}
		if err := validateQuestion(&questions[i]); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&questions).Error; err != nil {
			return err
		}
		count, err := countQuestionsTx(tx, quizID)
		if err != nil {
			return err
		}
		return tx.Model(&entity.Quiz{}).Where("id = ?", quizID).
			Update("questions_count", count).Error
	})
	if err != nil {
		return err
	}

	s.invalidateQuizCache(quizID)
	log.Printf("[QuizService] В викторину #%d добавлено %d вопросов", quizID, len(questions))
	return nil
}

// GetQuestions возвращает вопросы викторины в порядке показа
func (s *QuizService) GetQuestions(quizID uint) ([]entity.Question, error) {
	if _, err := s.quizRepo.GetByID(quizID); err != nil {
		return nil, err
	}
	return s.questionRepo.GetByQuizID(quizID)
}

// UpdateQuestion обновляет вопрос викторины
func (s *QuizService) UpdateQuestion(question *entity.Question) error {
	existing, err := s.questionRepo.GetByID(question.ID)
	if err != nil {
		return err
	}
	question.QuizID = existing.QuizID
	if question.Points <= 0 {
		question.Points = 1
	}
	if err := validateQuestion(question); err != nil {
		return err
	}

	if err := s.questionRepo.Update(question); err != nil {
		return err
	}

	s.invalidateQuizCache(existing.QuizID)
	return nil
}

// DeleteQuestion удаляет вопрос и пересчитывает счетчик вопросов викторины
func (s *QuizService) DeleteQuestion(questionID uint) error {
	question, err := s.questionRepo.GetByID(questionID)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entity.Question{}, questionID).Error; err != nil {
			return err
		}
		count, err := countQuestionsTx(tx, question.QuizID)
		if err != nil {
			return err
		}
		return tx.Model(&entity.Quiz{}).Where("id = ?", question.QuizID).
			Update("questions_count", count).Error
	})
	if err != nil {
		return err
	}

	s.invalidateQuizCache(question.QuizID)
	return nil
}

// countQuestionsTx считает вопросы викторины внутри транзакции
func countQuestionsTx(tx *gorm.DB, quizID uint) (int64, error) {
	var count int64
	err := tx.Model(&entity.Question{}).Where("quiz_id = ?", quizID).Count(&count).Error
	return count, err
}

// invalidateQuizCache сбрасывает кэш викторины после мутации
func (s *QuizService) invalidateQuizCache(quizID uint) {
	if err := s.cacheRepo.Delete(quizCacheKey(quizID)); err != nil {
		log.Printf("[QuizService] Не удалось сбросить кэш викторины #%d: %v", quizID, err)
	}
}

func quizCacheKey(quizID uint) string {
	return fmt.Sprintf("quiz:%d:full", quizID)
}

// validateQuiz проверяет настройки викторины
func validateQuiz(quiz *entity.Quiz) error {
	if quiz.Title == "" {
		return fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}
	if quiz.PassScore < 0 || quiz.PassScore > 100 {
		return fmt.Errorf("%w: pass score must be between 0 and 100", apperrors.ErrValidation)
	}
	if quiz.TimeLimitMinutes < 0 {
		return fmt.Errorf("%w: time limit cannot be negative", apperrors.ErrValidation)
	}
	if quiz.MaxAttempts < 0 {
		return fmt.Errorf("%w: max attempts cannot be negative", apperrors.ErrValidation)
	}
	// Викторина привязывается либо к курсу, либо к уроку, но не к обоим сразу
	if quiz.CourseID != nil && quiz.LessonID != nil {
		return fmt.Errorf("%w: quiz cannot belong to both course and lesson", apperrors.ErrValidation)
	}
	return nil
}

// validateQuestion проверяет согласованность вопроса с его типом
func validateQuestion(q *entity.Question) error {
	if q.Prompt == "" {
		return fmt.Errorf("%w: prompt is required", apperrors.ErrValidation)
	}

	switch q.Type {
	case entity.QuestionTypeSingle:
		if q.OptionsCount() < 2 {
			return fmt.Errorf("%w: single-choice question needs at least 2 options", apperrors.ErrValidation)
		}
		if len(q.AnswerKey) != 1 {
			return fmt.Errorf("%w: single-choice question needs exactly one answer key", apperrors.ErrValidation)
		}
		if !q.HasOption(q.AnswerKey[0]) {
			return fmt.Errorf("%w: answer key %q does not match any option", apperrors.ErrValidation, q.AnswerKey[0])
		}
	case entity.QuestionTypeMultiple:
		if q.OptionsCount() < 2 {
			return fmt.Errorf("%w: multiple-choice question needs at least 2 options", apperrors.ErrValidation)
		}
		if len(q.AnswerKey) == 0 {
			return fmt.Errorf("%w: multiple-choice question needs at least one answer key", apperrors.ErrValidation)
		}
		for _, key := range q.AnswerKey {
			if !q.HasOption(key) {
				return fmt.Errorf("%w: answer key %q does not match any option", apperrors.ErrValidation, key)
			}
		}
	case entity.QuestionTypeText:
		if len(q.AnswerKey) > 0 {
			return fmt.Errorf("%w: text question cannot have answer keys", apperrors.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown question type %q", apperrors.ErrValidation, q.Type)
	}
	return nil
}
