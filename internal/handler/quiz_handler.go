package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/handler/dto"
	"github.com/yourusername/lms-api/internal/handler/helper"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/internal/service"
)

// QuizHandler обрабатывает запросы администрирования викторин
type QuizHandler struct {
	quizService    *service.QuizService
	attemptService *service.AttemptService
}

// NewQuizHandler создает новый обработчик викторин
func NewQuizHandler(quizService *service.QuizService, attemptService *service.AttemptService) *QuizHandler {
	return &QuizHandler{
		quizService:    quizService,
		attemptService: attemptService,
	}
}

// CreateQuizRequest представляет запрос на создание викторины
type CreateQuizRequest struct {
	Title              string `json:"title" binding:"required,min=3,max=100"`
	Description        string `json:"description" binding:"omitempty,max=500"`
	CourseID           *uint  `json:"course_id"`
	LessonID           *uint  `json:"lesson_id"`
	PassScore          int    `json:"pass_score" binding:"omitempty,min=0,max=100"`
	TimeLimitMinutes   int    `json:"time_limit_minutes" binding:"omitempty,min=0"`
	MaxAttempts        int    `json:"max_attempts" binding:"omitempty,min=0"`
	RandomizeQuestions bool   `json:"randomize_questions"`
}

// CreateQuiz обрабатывает запрос на создание викторины
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz := &entity.Quiz{
		Title:              req.Title,
		Description:        req.Description,
		CourseID:           req.CourseID,
		LessonID:           req.LessonID,
		PassScore:          req.PassScore,
		TimeLimitMinutes:   req.TimeLimitMinutes,
		MaxAttempts:        req.MaxAttempts,
		RandomizeQuestions: req.RandomizeQuestions,
	}

	if err := h.quizService.CreateQuiz(quiz); err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuizResponse(quiz, false))
}

// GetQuiz возвращает информацию о викторине
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	quiz, err := h.quizService.GetQuizByID(quizID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz, false))
}

// GetQuizWithQuestions возвращает викторину с вопросами (без ответных ключей)
func (h *QuizHandler) GetQuizWithQuestions(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	quiz, err := h.quizService.GetQuizWithQuestions(quizID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz, true))
}

// ListQuizzes возвращает пагинированный список викторин.
// Параметр course_id фильтрует по курсу.
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	if courseIDStr := c.Query("course_id"); courseIDStr != "" {
		courseID, err := strconv.ParseUint(courseIDStr, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid course_id"})
			return
		}
		quizzes, err := h.quizService.ListQuizzesByCourse(uint(courseID))
		if err != nil {
			h.handleQuizError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewListQuizResponse(quizzes))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	quizzes, total, err := h.quizService.ListQuizzes(page, pageSize)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedQuizResponse(quizzes, total, page, pageSize))
}

// UpdateQuiz обновляет настройки викторины
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	var req CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz := &entity.Quiz{
		ID:                 quizID,
		Title:              req.Title,
		Description:        req.Description,
		CourseID:           req.CourseID,
		LessonID:           req.LessonID,
		PassScore:          req.PassScore,
		TimeLimitMinutes:   req.TimeLimitMinutes,
		MaxAttempts:        req.MaxAttempts,
		RandomizeQuestions: req.RandomizeQuestions,
	}

	if err := h.quizService.UpdateQuiz(quiz); err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz, false))
}

// DeleteQuiz удаляет викторину
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	if err := h.quizService.DeleteQuiz(quizID); err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quiz deleted successfully"})
}

// QuestionRequest представляет запрос на создание или обновление вопроса
type QuestionRequest struct {
	Type      string          `json:"type" binding:"required,oneof=single multiple text"`
	Prompt    string          `json:"prompt" binding:"required,min=3,max=1000"`
	Options   []helper.QuestionOption `json:"options" binding:"omitempty,max=10"`
	AnswerKey []string        `json:"answer_key"`
	Keywords  []string        `json:"keywords"`
	Points    int             `json:"points" binding:"omitempty,min=1"`
	SortOrder int             `json:"sort_order" binding:"omitempty,min=0"`
}

func (r *QuestionRequest) toEntity() entity.Question {
	options := make(entity.OptionMap, len(r.Options))
	for i, opt := range r.Options {
		options[i] = entity.Option{Key: opt.Key, Text: opt.Text}
	}
	return entity.Question{
		Type:      r.Type,
		Prompt:    r.Prompt,
		Options:   options,
		AnswerKey: entity.KeySet(r.AnswerKey),
		Keywords:  entity.StringArray(r.Keywords),
		Points:    r.Points,
		SortOrder: r.SortOrder,
	}
}

// AddQuestions добавляет вопросы в викторину
func (h *QuizHandler) AddQuestions(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	var req struct {
		Questions []QuestionRequest `json:"questions" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions := make([]entity.Question, len(req.Questions))
	for i := range req.Questions {
		questions[i] = req.Questions[i].toEntity()
	}

	if err := h.quizService.AddQuestions(quizID, questions); err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Questions added successfully", "count": len(questions)})
}

// GetQuestions возвращает вопросы викторины с ответными ключами (админский обзор)
func (h *QuizHandler) GetQuestions(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	questions, err := h.quizService.GetQuestions(quizID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	response := make([]dto.AdminQuestionResponse, len(questions))
	for i := range questions {
		response[i] = dto.NewAdminQuestionResponse(&questions[i])
	}
	c.JSON(http.StatusOK, gin.H{"questions": response})
}

// UpdateQuestion обновляет вопрос викторины
func (h *QuizHandler) UpdateQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question := req.toEntity()
	question.ID = questionID

	if err := h.quizService.UpdateQuestion(&question); err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAdminQuestionResponse(&question))
}

// DeleteQuestion удаляет вопрос из викторины
func (h *QuizHandler) DeleteQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uint)

	if err := h.quizService.DeleteQuestion(questionID); err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Question deleted successfully"})
}

// GetQuizAttempts возвращает пагинированный список попыток викторины
func (h *QuizHandler) GetQuizAttempts(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	attempts, total, err := h.attemptService.GetQuizAttempts(quizID, page, pageSize)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedAttemptResponse(attempts, total, page, pageSize))
}

// GetQuizAnalytics возвращает сводку и повопросную статистику викторины
func (h *QuizHandler) GetQuizAnalytics(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)

	summary, perQuestion, err := h.attemptService.QuizAnalytics(quizID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":   summary,
		"questions": perQuestion,
	})
}

// ExportQuizAttempts экспортирует попытки викторины в CSV или XLSX
func (h *QuizHandler) ExportQuizAttempts(c *gin.Context) {
	quizID := c.MustGet("quizID").(uint)
	format := c.DefaultQuery("format", "csv")

	quiz, attempts, err := h.attemptService.AllQuizAttempts(quizID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	filename := fmt.Sprintf("quiz_%d_attempts_%s", quizID, time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, quiz, attempts, filename)
	default:
		h.exportCSV(c, quiz, attempts, filename)
	}
}

// exportCSV экспортирует попытки в CSV с правильным экранированием спецсимволов
func (h *QuizHandler) exportCSV(c *gin.Context, quiz *entity.Quiz, attempts []entity.Attempt, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	// Используем encoding/csv для правильного экранирования запятых/кавычек
	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	header := []string{"Попытка", "Пользователь", "Счет (%)", "Правильных", "Всего вопросов", "Пройдено", "Время истекло", "Длительность (сек)", "Отправлено"}
	for i := range quiz.Questions {
		header = append(header, fmt.Sprintf("Вопрос %d", i+1))
	}
	writer.Write(header)

	for _, a := range attempts {
		passed := "Нет"
		if a.IsPassed {
			passed = "Да"
		}
		expired := "Нет"
		if a.TimeExpired {
			expired = "Да"
		}

		row := []string{
			strconv.Itoa(int(a.ID)),
			strconv.Itoa(int(a.UserID)),
			strconv.Itoa(a.Score),
			strconv.Itoa(a.CorrectCount),
			strconv.Itoa(quiz.QuestionsCount),
			passed,
			expired,
			strconv.Itoa(int(a.Duration().Seconds())),
			a.SubmittedAt.Format(time.RFC3339),
		}
		for i := range quiz.Questions {
			value := helper.FormatAnswerValue(a.Answers[quiz.Questions[i].ID])
			row = append(row, sanitizeForExcel(value))
		}
		writer.Write(row)
	}
}

// exportXLSX экспортирует попытки в Excel с использованием StreamWriter
func (h *QuizHandler) exportXLSX(c *gin.Context, quiz *entity.Quiz, attempts []entity.Attempt, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Попытки"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[QuizHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := []interface{}{"Попытка", "Пользователь", "Счет (%)", "Правильных", "Всего вопросов", "Пройдено", "Время истекло", "Длительность (сек)", "Отправлено"}
	for i := range quiz.Questions {
		headers = append(headers, fmt.Sprintf("Вопрос %d", i+1))
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[QuizHandler] Ошибка записи заголовков: %v", err)
	}

	for i, a := range attempts {
		rowNum := i + 2 // Первая строка занята заголовками
		cell := fmt.Sprintf("A%d", rowNum)

		passed := "Нет"
		if a.IsPassed {
			passed = "Да"
		}
		expired := "Нет"
		if a.TimeExpired {
			expired = "Да"
		}

		row := []interface{}{
			a.ID,
			a.UserID,
			a.Score,
			a.CorrectCount,
			quiz.QuestionsCount,
			passed,
			expired,
			int(a.Duration().Seconds()),
			a.SubmittedAt.Format(time.RFC3339),
		}
		for j := range quiz.Questions {
			value := helper.FormatAnswerValue(a.Answers[quiz.Questions[j].ID])
			row = append(row, sanitizeForExcel(value))
		}

		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[QuizHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[QuizHandler] Ошибка завершения StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize Excel file"})
		return
	}

	if err := f.Write(c.Writer); err != nil {
		log.Printf("[QuizHandler] Ошибка записи Excel в ответ: %v", err)
	}
}

// sanitizeForExcel защищает от formula injection в CSV/Excel
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// handleQuizError обрабатывает ошибки от сервисов и отправляет соответствующий HTTP ответ
func (h *QuizHandler) handleQuizError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrInvalidState) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in QuizHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
