package dto

import (
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/service/session"
)

// SessionResponse представляет состояние живой сессии попытки
type SessionResponse struct {
	SessionID        string             `json:"session_id"`
	QuizID           uint               `json:"quiz_id"`
	State            string             `json:"state"`
	Questions        []QuestionResponse `json:"questions,omitempty"`
	CurrentIndex     int                `json:"current_index"`
	RemainingSeconds int                `json:"remaining_seconds,omitempty"`
	HasTimeLimit     bool               `json:"has_time_limit"`
}

// NewSessionResponse создает DTO сессии.
// Вопросы отдаются в порядке показа этой сессии (с учетом перемешивания).
func NewSessionResponse(sess *session.Session, includeQuestions bool) *SessionResponse {
	_, index := sess.CurrentQuestion()
	resp := &SessionResponse{
		SessionID:        sess.ID,
		QuizID:           sess.QuizID(),
		State:            sess.State().String(),
		CurrentIndex:     index,
		RemainingSeconds: sess.RemainingSeconds(),
		HasTimeLimit:     sess.HasTimeLimit(),
	}

	if includeQuestions {
		questions := sess.Questions()
		resp.Questions = make([]QuestionResponse, len(questions))
		for i := range questions {
			resp.Questions[i] = NewQuestionResponse(&questions[i])
		}
	}
	return resp
}

// AttemptResponse представляет сохраненную попытку
type AttemptResponse struct {
	ID              uint      `json:"id"`
	UserID          uint      `json:"user_id"`
	QuizID          uint      `json:"quiz_id"`
	Score           int       `json:"score"`
	CorrectCount    int       `json:"correct_count"`
	IsPassed        bool      `json:"is_passed"`
	TimeExpired     bool      `json:"time_expired"`
	DurationSeconds int       `json:"duration_seconds"`
	StartedAt       time.Time `json:"started_at"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// NewAttemptResponse создает DTO сохраненной попытки
func NewAttemptResponse(a *entity.Attempt) *AttemptResponse {
	if a == nil {
		return nil
	}
	return &AttemptResponse{
		ID:              a.ID,
		UserID:          a.UserID,
		QuizID:          a.QuizID,
		Score:           a.Score,
		CorrectCount:    a.CorrectCount,
		IsPassed:        a.IsPassed,
		TimeExpired:     a.TimeExpired,
		DurationSeconds: int(a.Duration().Seconds()),
		StartedAt:       a.StartedAt,
		SubmittedAt:     a.SubmittedAt,
	}
}

// NewListAttemptResponse создает список DTO попыток
func NewListAttemptResponse(attempts []entity.Attempt) []*AttemptResponse {
	response := make([]*AttemptResponse, len(attempts))
	for i := range attempts {
		response[i] = NewAttemptResponse(&attempts[i])
	}
	return response
}

// PaginatedAttemptResponse представляет пагинированный список попыток
type PaginatedAttemptResponse struct {
	Attempts []*AttemptResponse `json:"attempts"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PerPage  int                `json:"per_page"`
}

// NewPaginatedAttemptResponse создает пагинированный список попыток
func NewPaginatedAttemptResponse(attempts []entity.Attempt, total int64, page, perPage int) *PaginatedAttemptResponse {
	return &PaginatedAttemptResponse{
		Attempts: NewListAttemptResponse(attempts),
		Total:    total,
		Page:     page,
		PerPage:  perPage,
	}
}

// SubmitResponse представляет итог отправки попытки
type SubmitResponse struct {
	Outcome    string           `json:"outcome"` // submitted | time_expired | confirm_required
	Unanswered int              `json:"unanswered,omitempty"`
	Persisted  bool             `json:"persisted"`
	Attempt    *AttemptResponse `json:"attempt,omitempty"`
}

// NewSubmitResponse создает DTO итога отправки
func NewSubmitResponse(result *session.SubmitResult, persisted bool) *SubmitResponse {
	if result.ConfirmRequired {
		return &SubmitResponse{
			Outcome:    "confirm_required",
			Unanswered: result.Unanswered,
		}
	}

	outcome := "submitted"
	if result.Attempt != nil && result.Attempt.TimeExpired {
		outcome = "time_expired"
	}
	return &SubmitResponse{
		Outcome:   outcome,
		Persisted: persisted,
		Attempt:   NewAttemptResponse(result.Attempt),
	}
}
