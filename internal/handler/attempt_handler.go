package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/handler/dto"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/internal/service"
)

// AttemptHandler обрабатывает запросы учеников: прохождение викторин и история
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler создает новый обработчик попыток
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// StartAttempt начинает новую попытку прохождения викторины
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)
	userID := c.MustGet("userID").(uint)

	sess, err := h.attemptService.StartAttempt(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewSessionResponse(sess, true))
}

// GetSession возвращает текущее состояние живой сессии
func (h *AttemptHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	userID := c.MustGet("userID").(uint)

	sess, err := h.attemptService.GetSession(sessionID, userID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSessionResponse(sess, true))
}

// AnswerRequest представляет запрос на запись ответа.
// Value принимает скаляр ("A") или массив (["A","C"]).
type AnswerRequest struct {
	QuestionID uint               `json:"question_id" binding:"required"`
	Value      entity.AnswerValue `json:"value"`
}

// RecordAnswer записывает (перезаписывает) ответ на вопрос
func (h *AttemptHandler) RecordAnswer(c *gin.Context) {
	sessionID := c.Param("session_id")
	userID := c.MustGet("userID").(uint)

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.attemptService.RecordAnswer(sessionID, userID, req.QuestionID, req.Value); err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Answer recorded"})
}

// NavigateRequest представляет запрос навигации по вопросам
type NavigateRequest struct {
	Action string `json:"action" binding:"required,oneof=next previous goto"`
	Index  int    `json:"index" binding:"omitempty,min=0"`
}

// Navigate перемещает указатель текущего вопроса сессии
func (h *AttemptHandler) Navigate(c *gin.Context) {
	sessionID := c.Param("session_id")
	userID := c.MustGet("userID").(uint)

	var req NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	index, err := h.attemptService.Navigate(sessionID, userID, req.Action, req.Index)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"current_index": index})
}

// SubmitRequest представляет запрос на отправку попытки
type SubmitRequest struct {
	// Confirmed подтверждает отправку с неотвеченными вопросами
	Confirmed bool `json:"confirmed"`
}

// Submit выполняет ручную отправку попытки
func (h *AttemptHandler) Submit(c *gin.Context) {
	sessionID := c.Param("session_id")
	userID := c.MustGet("userID").(uint)

	// Пустое тело равносильно неподтвержденной отправке
	var req SubmitRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	outcome, err := h.attemptService.Submit(sessionID, userID, req.Confirmed)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSubmitResponse(outcome.SubmitResult, outcome.Persisted))
}

// GetMyAttempts возвращает историю попыток ученика по викторине
func (h *AttemptHandler) GetMyAttempts(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)
	userID := c.MustGet("userID").(uint)

	attempts, err := h.attemptService.GetUserAttempts(userID, quizID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": dto.NewListAttemptResponse(attempts)})
}

// GetAttempt возвращает сохраненную попытку ученика
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)
	userID := c.MustGet("userID").(uint)

	attempt, err := h.attemptService.GetAttempt(attemptID, userID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt))
}

// handleAttemptError обрабатывает ошибки сервиса попыток
func (h *AttemptHandler) handleAttemptError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrInvalidState) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in AttemptHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
