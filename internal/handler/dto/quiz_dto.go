package dto

import (
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/handler/helper"
)

// QuestionResponse представляет вопрос в формате для ответа клиенту.
// Правильные ключи и ключевые слова в DTO не попадают никогда:
// ученик видит только формулировку и варианты.
type QuestionResponse struct {
	ID        uint                    `json:"id"`
	QuizID    uint                    `json:"quiz_id"`
	Type      string                  `json:"type"`
	Prompt    string                  `json:"prompt"`
	Options   []helper.QuestionOption `json:"options,omitempty"`
	Points    int                     `json:"points"`
	SortOrder int                     `json:"sort_order"`
}

// AdminQuestionResponse — вопрос для админских маршрутов, с ответным ключом
type AdminQuestionResponse struct {
	QuestionResponse
	AnswerKey []string  `json:"answer_key,omitempty"`
	Keywords  []string  `json:"keywords,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuizResponse представляет викторину в формате для ответа клиенту
type QuizResponse struct {
	ID                 uint               `json:"id"`
	Title              string             `json:"title"`
	Description        string             `json:"description,omitempty"`
	CourseID           *uint              `json:"course_id,omitempty"`
	LessonID           *uint              `json:"lesson_id,omitempty"`
	PassScore          int                `json:"pass_score"`
	TimeLimitMinutes   int                `json:"time_limit_minutes"`
	MaxAttempts        int                `json:"max_attempts"`
	RandomizeQuestions bool               `json:"randomize_questions"`
	QuestionsCount     int                `json:"questions_count"`
	Questions          []QuestionResponse `json:"questions,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// PaginatedQuizResponse представляет пагинированный список викторин
type PaginatedQuizResponse struct {
	Quizzes []*QuizResponse `json:"quizzes"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
}

// NewQuestionResponse создает DTO для вопроса без ответного ключа
func NewQuestionResponse(q *entity.Question) QuestionResponse {
	return QuestionResponse{
		ID:        q.ID,
		QuizID:    q.QuizID,
		Type:      q.Type,
		Prompt:    q.Prompt,
		Options:   helper.ConvertOptionsToObjects(q.Options),
		Points:    q.Points,
		SortOrder: q.SortOrder,
	}
}

// NewAdminQuestionResponse создает DTO вопроса для админских маршрутов
func NewAdminQuestionResponse(q *entity.Question) AdminQuestionResponse {
	return AdminQuestionResponse{
		QuestionResponse: NewQuestionResponse(q),
		AnswerKey:        q.AnswerKey,
		Keywords:         q.Keywords,
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
	}
}

// NewQuizResponse создает DTO для викторины
func NewQuizResponse(quiz *entity.Quiz, includeQuestions bool) *QuizResponse {
	if quiz == nil {
		return nil
	}

	var questionsDTO []QuestionResponse
	if includeQuestions {
		questionsDTO = make([]QuestionResponse, len(quiz.Questions))
		for i := range quiz.Questions {
			questionsDTO[i] = NewQuestionResponse(&quiz.Questions[i])
		}
	}

	return &QuizResponse{
		ID:                 quiz.ID,
		Title:              quiz.Title,
		Description:        quiz.Description,
		CourseID:           quiz.CourseID,
		LessonID:           quiz.LessonID,
		PassScore:          quiz.PassScore,
		TimeLimitMinutes:   quiz.TimeLimitMinutes,
		MaxAttempts:        quiz.MaxAttempts,
		RandomizeQuestions: quiz.RandomizeQuestions,
		QuestionsCount:     quiz.QuestionsCount,
		Questions:          questionsDTO,
		CreatedAt:          quiz.CreatedAt,
		UpdatedAt:          quiz.UpdatedAt,
	}
}

// NewListQuizResponse создает список DTO викторин
func NewListQuizResponse(quizzes []entity.Quiz) []*QuizResponse {
	response := make([]*QuizResponse, len(quizzes))
	for i := range quizzes {
		response[i] = NewQuizResponse(&quizzes[i], false)
	}
	return response
}

// NewPaginatedQuizResponse создает пагинированный список викторин
func NewPaginatedQuizResponse(quizzes []entity.Quiz, total int64, page, perPage int) *PaginatedQuizResponse {
	return &PaginatedQuizResponse{
		Quizzes: NewListQuizResponse(quizzes),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}
}
