package session

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/lms-api/internal/domain/entity"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/internal/service/scoring"
)

// State — состояние сессии попытки
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateSubmitted // терминальное
	StateAbandoned // терминальное, без оценивания и сохранения
)

// String возвращает строковое представление состояния
func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateSubmitted:
		return "submitted"
	case StateAbandoned:
		return "abandoned"
	default:
		return "not_started"
	}
}

// SubmitResult — исход вызова Submit. Потребитель обязан различать
// ручную отправку и автоотправку по таймеру, а также сигнал
// "нужно подтверждение" (который не является ошибкой и не меняет состояние).
type SubmitResult struct {
	// ConfirmRequired — остались вопросы без ответа, отправка не выполнена
	ConfirmRequired bool
	// Unanswered — количество вопросов без ответа на момент вызова
	Unanswered int
	// TimeExpired — попытка завершена по истечении времени, а не вручную
	TimeExpired bool
	// Attempt — полностью заполненная попытка, готовая к сохранению
	Attempt *entity.Attempt
}

// Session управляет одной живой попыткой одного ученика:
// навигация по вопросам, запись ответов, обратный отсчет с автоотправкой.
// Брошенная сессия никуда не сохраняется — при повторном входе начинается новая.
type Session struct {
	ID     string
	UserID uint

	mu          sync.Mutex
	state       State
	quiz        *entity.Quiz
	questions   []entity.Question // порядок показа (возможно, перемешанный)
	answers     entity.AnswerMap
	index       int
	startedAt   time.Time
	submittedAt time.Time

	timeLimitSec int
	remainingSec int
	timeExpired  bool
	cancelTimer  context.CancelFunc

	// onAutoSubmit вызывается ВНЕ мьютекса после автоотправки по таймеру,
	// чтобы владелец сессии мог сохранить попытку
	onAutoSubmit func(*entity.Attempt)
}

// New создает сессию в состоянии NotStarted.
// При quiz.RandomizeQuestions порядок показа перемешивается — каждый вопрос
// ровно один раз, конкретная перестановка не специфицирована.
func New(quiz *entity.Quiz, questions []entity.Question, userID uint) *Session {
	order := make([]entity.Question, len(questions))
	copy(order, questions)
	if quiz.RandomizeQuestions {
		rand.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	return &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		state:     StateNotStarted,
		quiz:      quiz,
		questions: order,
		answers:   entity.AnswerMap{},
	}
}

// SetAutoSubmitHandler устанавливает обработчик автоотправки.
// Должен быть вызван до Start.
func (s *Session) SetAutoSubmitHandler(fn func(*entity.Attempt)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAutoSubmit = fn
}

// Start переводит сессию в InProgress, фиксирует startedAt и,
// если у викторины есть лимит времени, запускает обратный отсчет.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateNotStarted {
		s.mu.Unlock()
		return fmt.Errorf("%w: session already started", apperrors.ErrInvalidState)
	}

	s.state = StateInProgress
	s.startedAt = time.Now()
	s.timeLimitSec = s.quiz.TimeLimitSeconds()
	s.remainingSec = s.timeLimitSec

	var timerCtx context.Context
	if s.timeLimitSec > 0 {
		timerCtx, s.cancelTimer = context.WithCancel(ctx)
	}
	s.mu.Unlock()

	if timerCtx != nil {
		go s.runCountdown(timerCtx)
	}

	log.Printf("[Session] Попытка %s: старт (викторина #%d, пользователь #%d, лимит %d сек)",
		s.ID, s.quiz.ID, s.UserID, s.timeLimitSec)
	return nil
}

// runCountdown тикает раз в секунду, пока сессия в InProgress.
// Завершается при отмене контекста или когда tick сообщает, что
// сессия больше не активна.
func (s *Session) runCountdown(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !s.tick() {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// tick обрабатывает одну секунду обратного отсчета.
// Возвращает false, когда отсчет должен остановиться.
// Submit и tick защищены одним мьютексом: выход из InProgress
// происходит не более одного раза, опоздавший тик игнорируется.
func (s *Session) tick() bool {
	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return false
	}

	s.remainingSec--
	if s.remainingSec > 0 {
		s.mu.Unlock()
		return true
	}

	// Время вышло — автоотправка с теми ответами, что успели записать
	s.remainingSec = 0
	s.timeExpired = true
	attempt := s.submitLocked()
	handler := s.onAutoSubmit
	s.mu.Unlock()

	log.Printf("[Session] Попытка %s: время истекло, автоотправка (счет %d%%)", s.ID, attempt.Score)
	if handler != nil {
		handler(attempt)
	}
	return false
}

// RecordAnswer записывает (перезаписывает) ответ на вопрос.
// Ответ на чужой вопрос отклоняется; пустое значение равносильно
// снятию ответа — пустые значения в попытке не хранятся.
// Валидация существования ключа варианта не выполняется намеренно:
// несуществующий ключ просто никогда не совпадет при оценивании.
func (s *Session) RecordAnswer(questionID uint, value entity.AnswerValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress {
		return fmt.Errorf("%w: cannot record answer in state %s", apperrors.ErrInvalidState, s.state)
	}

	if !s.ownsQuestion(questionID) {
		return fmt.Errorf("%w: question #%d does not belong to quiz #%d",
			apperrors.ErrValidation, questionID, s.quiz.ID)
	}

	if value.IsEmpty() {
		delete(s.answers, questionID)
		return nil
	}
	s.answers[questionID] = value
	return nil
}

// ownsQuestion проверяет принадлежность вопроса викторине сессии
func (s *Session) ownsQuestion(questionID uint) bool {
	for i := range s.questions {
		if s.questions[i].ID == questionID {
			return true
		}
	}
	return false
}

// GoTo переходит к вопросу по индексу порядка показа.
// Индекс ограничивается границами, без "заворота".
func (s *Session) GoTo(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 {
		index = 0
	}
	if max := len(s.questions) - 1; index > max {
		index = max
	}
	if index < 0 { // пустой список вопросов
		index = 0
	}
	s.index = index
	return s.index
}

// Next переходит к следующему вопросу
func (s *Session) Next() int {
	s.mu.Lock()
	target := s.index + 1
	s.mu.Unlock()
	return s.GoTo(target)
}

// Previous переходит к предыдущему вопросу
func (s *Session) Previous() int {
	s.mu.Lock()
	target := s.index - 1
	s.mu.Unlock()
	return s.GoTo(target)
}

// CurrentQuestion возвращает текущий вопрос порядка показа и его индекс
func (s *Session) CurrentQuestion() (*entity.Question, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.questions) == 0 {
		return nil, 0
	}
	q := s.questions[s.index]
	return &q, s.index
}

// Questions возвращает вопросы в порядке показа сессии
func (s *Session) Questions() []entity.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// Submit выполняет ручную отправку попытки.
// Если остались вопросы без ответа и confirmed=false, возвращается
// сигнал ConfirmRequired с их количеством — состояние не меняется.
// Повторный вызов на уже отправленной сессии — ошибка интеграции (ErrInvalidState),
// первая попытка при этом остается нетронутой.
func (s *Session) Submit(confirmed bool) (*SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateNotStarted:
		return nil, fmt.Errorf("%w: session not started", apperrors.ErrInvalidState)
	case StateSubmitted:
		return nil, fmt.Errorf("%w: session already submitted", apperrors.ErrInvalidState)
	case StateAbandoned:
		return nil, fmt.Errorf("%w: session abandoned", apperrors.ErrInvalidState)
	}

	unanswered := s.unansweredLocked()
	if unanswered > 0 && !confirmed {
		return &SubmitResult{ConfirmRequired: true, Unanswered: unanswered}, nil
	}

	attempt := s.submitLocked()
	log.Printf("[Session] Попытка %s: ручная отправка (счет %d%%, пройдено: %t)",
		s.ID, attempt.Score, attempt.IsPassed)
	return &SubmitResult{Attempt: attempt, Unanswered: unanswered}, nil
}

// unansweredLocked возвращает количество вопросов без ответа. Требует mu.
func (s *Session) unansweredLocked() int {
	count := 0
	for i := range s.questions {
		v, ok := s.answers[s.questions[i].ID]
		if !ok || v.IsEmpty() {
			count++
		}
	}
	return count
}

// submitLocked выполняет единственный переход InProgress -> Submitted. Требует mu.
// Таймер отменяется атомарно с переходом, поэтому опоздавший тик
// не может выполнить вторую отправку.
func (s *Session) submitLocked() *entity.Attempt {
	s.state = StateSubmitted
	s.submittedAt = time.Now()
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}

	// Снимок ответов: запись в Attempt неизменяема
	answers := make(entity.AnswerMap, len(s.answers))
	for id, v := range s.answers {
		answers[id] = v
	}

	summary := scoring.ScoreAttempt(s.questions, answers)

	return &entity.Attempt{
		UserID:       s.UserID,
		QuizID:       s.quiz.ID,
		Answers:      answers,
		Score:        summary.Score,
		CorrectCount: summary.CorrectCount,
		IsPassed:     summary.IsPassed(s.quiz.PassScore),
		TimeExpired:  s.timeExpired,
		StartedAt:    s.startedAt,
		SubmittedAt:  s.submittedAt,
	}
}

// Abandon бросает сессию: таймер останавливается, состояние становится
// терминальным без оценивания. Брошенная попытка никогда не сохраняется
// и не расходует лимит попыток. На уже завершенной сессии вызов ничего не делает.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitted || s.state == StateAbandoned {
		return
	}
	s.state = StateAbandoned
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}
	log.Printf("[Session] Попытка %s брошена (викторина #%d, пользователь #%d)",
		s.ID, s.quiz.ID, s.UserID)
}

// State возвращает текущее состояние сессии
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RemainingSeconds возвращает остаток времени (0 для викторин без лимита)
func (s *Session) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingSec
}

// HasTimeLimit проверяет, идет ли в сессии обратный отсчет
func (s *Session) HasTimeLimit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeLimitSec > 0
}

// ElapsedSeconds возвращает затраченное время для отчета потребителю:
// при лимите — лимит минус остаток таймера, иначе — разница таймстемпов.
func (s *Session) ElapsedSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timeLimitSec > 0 {
		return s.timeLimitSec - s.remainingSec
	}
	end := s.submittedAt
	if end.IsZero() {
		end = time.Now()
	}
	return int(end.Sub(s.startedAt).Seconds())
}

// QuizID возвращает викторину сессии
func (s *Session) QuizID() uint {
	return s.quiz.ID
}
