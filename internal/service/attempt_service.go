package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/internal/service/analytics"
	"github.com/yourusername/lms-api/internal/service/session"
)

// Время жизни отметки об активной сессии для викторин без лимита времени
const defaultActiveTTL = 24 * time.Hour

// SubmitOutcome — итог отправки попытки на уровне сервиса.
// Persisted=false означает, что попытка оценена, но не сохранена в базе:
// потребитель получает результат, а потеря записи логируется.
type SubmitOutcome struct {
	*session.SubmitResult
	Persisted bool
}

// AttemptService управляет жизненным циклом попыток: старт сессии,
// запись ответов, отправка, история и аналитика.
type AttemptService struct {
	quizRepo    repository.QuizRepository
	attemptRepo repository.AttemptRepository
	cacheRepo   repository.CacheRepository

	// sessions хранит живые сессии по их идентификатору.
	// Сохраненные попытки здесь не живут — только незавершенные.
	sessions sync.Map // map[string]*session.Session
}

// NewAttemptService создает новый сервис попыток
func NewAttemptService(
	quizRepo repository.QuizRepository,
	attemptRepo repository.AttemptRepository,
	cacheRepo repository.CacheRepository,
) *AttemptService {
	return &AttemptService{
		quizRepo:    quizRepo,
		attemptRepo: attemptRepo,
		cacheRepo:   cacheRepo,
	}
}

// StartAttempt начинает новую попытку прохождения викторины.
// Предыдущая незавершенная сессия того же ученика по той же викторине
// при этом бросается: ее ответы теряются, сохраняется только отправленное.
func (s *AttemptService) StartAttempt(ctx context.Context, quizID, userID uint) (*session.Session, error) {
	quiz, err := s.quizRepo.GetWithQuestions(quizID)
	if err != nil {
		return nil, err
	}

	if quiz.HasAttemptLimit() {
		used, err := s.attemptRepo.CountUserAttempts(userID, quizID)
		if err != nil {
			return nil, err
		}
		if used >= int64(quiz.MaxAttempts) {
			return nil, fmt.Errorf("%w: attempt limit reached (%d of %d)",
				apperrors.ErrConflict, used, quiz.MaxAttempts)
		}
	}

	s.abandonActive(quizID, userID)

	sess := session.New(quiz, quiz.Questions, userID)
	sess.SetAutoSubmitHandler(func(attempt *entity.Attempt) {
		s.finishSession(sess, attempt)
	})

	// Таймер живет дольше HTTP-запроса, который начал попытку
	if err := sess.Start(context.Background()); err != nil {
		return nil, err
	}

	s.sessions.Store(sess.ID, sess)
	s.markActive(quizID, userID, sess.ID, quiz)

	return sess, nil
}

// GetSession возвращает живую сессию с проверкой владельца
func (s *AttemptService) GetSession(sessionID string, userID uint) (*session.Session, error) {
	value, ok := s.sessions.Load(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: session %s", apperrors.ErrNotFound, sessionID)
	}
	sess := value.(*session.Session)
	if sess.UserID != userID {
		// Чужая сессия неотличима от несуществующей
		return nil, fmt.Errorf("%w: session %s", apperrors.ErrNotFound, sessionID)
	}
	return sess, nil
}

// RecordAnswer записывает ответ в живую сессию
func (s *AttemptService) RecordAnswer(sessionID string, userID, questionID uint, value entity.AnswerValue) error {
	sess, err := s.GetSession(sessionID, userID)
	if err != nil {
		return err
	}
	return sess.RecordAnswer(questionID, value)
}

// Navigate перемещает указатель текущего вопроса.
// action: "next", "previous" или "goto" с индексом.
func (s *AttemptService) Navigate(sessionID string, userID uint, action string, index int) (int, error) {
	sess, err := s.GetSession(sessionID, userID)
	if err != nil {
		return 0, err
	}

	switch action {
	case "next":
		return sess.Next(), nil
	case "previous":
		return sess.Previous(), nil
	case "goto":
		return sess.GoTo(index), nil
	default:
		return 0, fmt.Errorf("%w: unknown navigation action %q", apperrors.ErrValidation, action)
	}
}

// Submit выполняет ручную отправку попытки.
// При confirmed=false и неотвеченных вопросах возвращается сигнал
// ConfirmRequired без изменения состояния сессии.
func (s *AttemptService) Submit(sessionID string, userID uint, confirmed bool) (*SubmitOutcome, error) {
	sess, err := s.GetSession(sessionID, userID)
	if err != nil {
		return nil, err
	}

	result, err := sess.Submit(confirmed)
	if err != nil {
		return nil, err
	}
	if result.ConfirmRequired {
		return &SubmitOutcome{SubmitResult: result}, nil
	}

	persisted := s.finishSession(sess, result.Attempt)
	return &SubmitOutcome{SubmitResult: result, Persisted: persisted}, nil
}

// finishSession сохраняет попытку и убирает сессию из реестра.
// Ошибка сохранения не отменяет результат: ученик видит свой счет,
// потеря записи остается в логе.
func (s *AttemptService) finishSession(sess *session.Session, attempt *entity.Attempt) bool {
	s.sessions.Delete(sess.ID)

	// Отметка снимается, только если она все еще принадлежит этой сессии:
	// запоздавшая автоотправка не должна стереть отметку более новой сессии
	key := activeKey(attempt.QuizID, attempt.UserID)
	if current, err := s.cacheRepo.Get(key); err == nil && current == sess.ID {
		if err := s.cacheRepo.Delete(key); err != nil {
			log.Printf("[AttemptService] Не удалось снять отметку активной сессии %s: %v", sess.ID, err)
		}
	}

	if err := s.attemptRepo.Create(attempt); err != nil {
		log.Printf("[AttemptService] Ошибка сохранения попытки (сессия %s, пользователь #%d): %v",
			sess.ID, attempt.UserID, err)
		return false
	}

	log.Printf("[AttemptService] Попытка #%d сохранена: викторина #%d, пользователь #%d, счет %d%%",
		attempt.ID, attempt.QuizID, attempt.UserID, attempt.Score)
	return true
}

// abandonActive снимает предыдущую живую сессию ученика по этой викторине
func (s *AttemptService) abandonActive(quizID, userID uint) {
	key := activeKey(quizID, userID)
	oldID, err := s.cacheRepo.Get(key)
	if err != nil {
		return
	}

	if value, ok := s.sessions.Load(oldID); ok {
		old := value.(*session.Session)
		// Сначала гасим таймер: иначе его автоотправка сохранит брошенную
		// попытку и спишет слот лимита
		old.Abandon()
		s.sessions.Delete(oldID)
		log.Printf("[AttemptService] Брошена сессия %s (викторина #%d, пользователь #%d)",
			old.ID, quizID, userID)
	}
	if err := s.cacheRepo.Delete(key); err != nil {
		log.Printf("[AttemptService] Не удалось удалить ключ %s: %v", key, err)
	}
}

// markActive публикует отметку об активной сессии в Redis
func (s *AttemptService) markActive(quizID, userID uint, sessionID string, quiz *entity.Quiz) {
	ttl := defaultActiveTTL
	if quiz.HasTimeLimit() {
		// Запас в минуту на доставку автоотправки
		ttl = time.Duration(quiz.TimeLimitSeconds())*time.Second + time.Minute
	}
	if err := s.cacheRepo.Set(activeKey(quizID, userID), sessionID, ttl); err != nil {
		log.Printf("[AttemptService] Не удалось опубликовать активную сессию %s: %v", sessionID, err)
	}
}

func activeKey(quizID, userID uint) string {
	return fmt.Sprintf("attempt:active:%d:%d", quizID, userID)
}

// GetAttempt возвращает сохраненную попытку с проверкой владельца
func (s *AttemptService) GetAttempt(attemptID, userID uint) (*entity.Attempt, error) {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, fmt.Errorf("%w: attempt %d", apperrors.ErrNotFound, attemptID)
	}
	return attempt, nil
}

// GetUserAttempts возвращает историю попыток ученика по викторине
func (s *AttemptService) GetUserAttempts(userID, quizID uint) ([]entity.Attempt, error) {
	return s.attemptRepo.GetUserAttempts(userID, quizID)
}

// GetQuizAttempts возвращает страницу попыток викторины (админский обзор)
func (s *AttemptService) GetQuizAttempts(quizID uint, page, pageSize int) ([]entity.Attempt, int64, error) {
	if _, err := s.quizRepo.GetByID(quizID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.attemptRepo.GetQuizAttempts(quizID, pageSize, (page-1)*pageSize)
}

// QuizAnalytics строит сводку и повопросную статистику викторины.
// Агрегаты считаются по снимку сохраненных попыток: свежесть видна
// по таймстемпу GeneratedAt в сводке.
func (s *AttemptService) QuizAnalytics(quizID uint) (*analytics.QuizSummary, []analytics.QuestionStats, error) {
	quiz, err := s.quizRepo.GetWithQuestions(quizID)
	if err != nil {
		return nil, nil, err
	}

	attempts, err := s.attemptRepo.GetAllQuizAttempts(quizID)
	if err != nil {
		return nil, nil, err
	}

	summary := analytics.Summarize(quizID, attempts)
	perQuestion := analytics.PerQuestionStats(quiz.Questions, attempts)
	return summary, perQuestion, nil
}

// AllQuizAttempts возвращает все попытки викторины (для экспорта)
func (s *AttemptService) AllQuizAttempts(quizID uint) (*entity.Quiz, []entity.Attempt, error) {
	quiz, err := s.quizRepo.GetWithQuestions(quizID)
	if err != nil {
		return nil, nil, err
	}
	attempts, err := s.attemptRepo.GetAllQuizAttempts(quizID)
	if err != nil {
		return nil, nil, err
	}
	return quiz, attempts, nil
}
