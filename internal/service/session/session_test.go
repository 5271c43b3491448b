package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/lms-api/internal/domain/entity"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// ============================================================================
// Вспомогательные фабрики
// ============================================================================

func makeQuiz(timeLimitMin int) *entity.Quiz {
	return &entity.Quiz{
		ID:               1,
		Title:            "Основы Go",
		PassScore:        60,
		TimeLimitMinutes: timeLimitMin,
	}
}

func makeQuestions() []entity.Question {
	return []entity.Question{
		{
			ID:        10,
			QuizID:    1,
			Type:      entity.QuestionTypeSingle,
			Prompt:    "Какое ключевое слово объявляет функцию?",
			Options:   entity.OptionMap{{Key: "A", Text: "def"}, {Key: "B", Text: "func"}},
			AnswerKey: entity.KeySet{"B"},
			Points:    1,
			SortOrder: 1,
		},
		{
			ID:        11,
			QuizID:    1,
			Type:      entity.QuestionTypeMultiple,
			Prompt:    "Какие из типов встроенные?",
			Options:   entity.OptionMap{{Key: "A", Text: "int"}, {Key: "B", Text: "vector"}, {Key: "C", Text: "string"}},
			AnswerKey: entity.KeySet{"A", "C"},
			Points:    1,
			SortOrder: 2,
		},
		{
			ID:        12,
			QuizID:    1,
			Type:      entity.QuestionTypeText,
			Prompt:    "Что делает go fmt?",
			Points:    1,
			SortOrder: 3,
		},
	}
}

func startedSession(t *testing.T, quiz *entity.Quiz) *Session {
	t.Helper()
	sess := New(quiz, makeQuestions(), 42)
	require.NoError(t, sess.Start(context.Background()))
	return sess
}

// ============================================================================
// Жизненный цикл
// ============================================================================

func TestSession_StartTransitionsToInProgress(t *testing.T) {
	// Arrange
	sess := New(makeQuiz(0), makeQuestions(), 42)
	assert.Equal(t, StateNotStarted, sess.State())

	// Act
	err := sess.Start(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StateInProgress, sess.State())
	assert.NotEmpty(t, sess.ID, "сессия должна получить идентификатор")
}

func TestSession_DoubleStartRejected(t *testing.T) {
	// Arrange
	sess := startedSession(t, makeQuiz(0))

	// Act
	err := sess.Start(context.Background())

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrInvalidState, "повторный Start должен вернуть ErrInvalidState")
}

func TestSession_SubmitWithAllAnswers(t *testing.T) {
	// Arrange
	sess := startedSession(t, makeQuiz(0))
	require.NoError(t, sess.RecordAnswer(10, entity.NewAnswer("B")))
	require.NoError(t, sess.RecordAnswer(11, entity.NewAnswer("A", "C")))
	require.NoError(t, sess.RecordAnswer(12, entity.NewAnswer("go fmt форматирует код")))

	// Act
	result, err := sess.Submit(false)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, result.Attempt)
	assert.False(t, result.ConfirmRequired)
	assert.False(t, result.Attempt.TimeExpired)
	assert.Equal(t, StateSubmitted, sess.State())
	// 2 из 3 зачтено (текстовый ответ остается неоцененным)
	assert.Equal(t, 2, result.Attempt.CorrectCount)
	assert.Equal(t, 67, result.Attempt.Score)
	assert.True(t, result.Attempt.IsPassed, "67% при пороге 60% должно означать прохождение")
}

// Повторная отправка — ошибка интеграции, первая попытка не затирается
func TestSession_DoubleSubmitReturnsInvalidState(t *testing.T) {
	// Arrange
	sess := startedSession(t, makeQuiz(0))
	require.NoError(t, sess.RecordAnswer(10, entity.NewAnswer("B")))

	first, err := sess.Submit(true)
	require.NoError(t, err)
	require.NotNil(t, first.Attempt)

	// Act
	second, err := sess.Submit(true)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState), "вторая отправка должна вернуть ErrInvalidState")
	assert.Nil(t, second)
	assert.Equal(t, StateSubmitted, sess.State())
}

func TestSession_SubmitBeforeStartRejected(t *testing.T) {
	// Arrange
	sess := New(makeQuiz(0), makeQuestions(), 42)

	// Act
	result, err := sess.Submit(true)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	assert.Nil(t, result)
}

// ============================================================================
// Подтверждение при неотвеченных вопросах
// ============================================================================

func TestSession_SubmitRequiresConfirmationWhenUnanswered(t *testing.T) {
	// Arrange: отвечен только один вопрос из трех
	sess := startedSession(t, makeQuiz(0))
	require.NoError(t, sess.RecordAnswer(10, entity.NewAnswer("B")))

	// Act
	result, err := sess.Submit(false)

	// Assert: отправка не выполнена, состояние не изменилось
	require.NoError(t, err)
	assert.True(t, result.ConfirmRequired)
	assert.Equal(t, 2, result.Unanswered, "должно быть два неотвеченных вопроса")
	assert.Nil(t, result.Attempt)
	assert.Equal(t, StateInProgress, sess.State())

	// Act: подтвержденная отправка проходит
	result, err = sess.Submit(true)

	// Assert: неотвеченные вопросы зачтены как неверные
	require.NoError(t, err)
	require.NotNil(t, result.Attempt)
	assert.Equal(t, 1, result.Attempt.CorrectCount)
	assert.Equal(t, 33, result.Attempt.Score)
	assert.False(t, result.Attempt.IsPassed)
}

// ============================================================================
// Запись ответов
// ============================================================================

func TestSession_RecordAnswerOverwrites(t *testing.T) {
	// Arrange
	sess := startedSession(t, makeQuiz(0))
	require.NoError(t, sess.RecordAnswer(10, entity.NewAnswer("A")))

	// Act: перезапись — хранится только последний ответ
	require.NoError(t, sess.RecordAnswer(10, entity.NewAnswer("B")))
	result, err := sess.Submit(true)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, result.Attempt.Answers[10].Values)
}

func TestSession_RecordAnswerForeignQuestionRejected(t *testing.T) {
	// Arrange
	sess := startedSession(t, makeQuiz(0))

	// Act
	err := sess.RecordAnswer(999, entity.NewAnswer("A"))

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrValidation, "ответ на чужой вопрос должен быть отклонен")
}

func TestSession_RecordAnswerAfterSubmitRejected(t *testing.T) {
	// Arrange
	sess := startedSession(t, makeQuiz(0))
	_, err := sess.Submit(true)
	require.NoError(t, err)

	// Act
	err = sess.RecordAnswer(10, entity.NewAnswer("B"))

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestSession_EmptyAnswerClearsPrevious(t *testing.T) {
	// Arrange
	sess := startedSession(t, makeQuiz(0))
	require.NoError(t, sess.RecordAnswer(10, entity.NewAnswer("B")))

	// Act: пустое значение снимает ответ
	require.NoError(t, sess.RecordAnswer(10, entity.AnswerValue{}))
	result, err := sess.Submit(false)

	// Assert: вопрос снова считается неотвеченным
	require.NoError(t, err)
	assert.True(t, result.ConfirmRequired)
	assert.Equal(t, 3, result.Unanswered)
}

// ============================================================================
// Навигация
// ============================================================================

func TestSession_NavigationClampsAtBounds(t *testing.T) {
	// Arrange
	sess := startedSession(t, makeQuiz(0))

	// Act & Assert: Previous на первом вопросе остается на месте
	assert.Equal(t, 0, sess.Previous(), "Previous на первом вопросе не должен заворачивать")

	// Next двигает вперед до последнего и останавливается
	assert.Equal(t, 1, sess.Next())
	assert.Equal(t, 2, sess.Next())
	assert.Equal(t, 2, sess.Next(), "Next на последнем вопросе не должен заворачивать")

	// GoTo ограничивается границами
	assert.Equal(t, 0, sess.GoTo(-5))
	assert.Equal(t, 2, sess.GoTo(100))
}

func TestSession_CurrentQuestionFollowsIndex(t *testing.T) {
	// Arrange
	sess := startedSession(t, makeQuiz(0))

	// Act
	sess.GoTo(1)
	q, idx := sess.CurrentQuestion()

	// Assert
	require.NotNil(t, q)
	assert.Equal(t, 1, idx)
}

// ============================================================================
// Перемешивание вопросов
// ============================================================================

func TestSession_ShufflePreservesQuestionSet(t *testing.T) {
	// Arrange
	quiz := makeQuiz(0)
	quiz.RandomizeQuestions = true

	// Act
	sess := New(quiz, makeQuestions(), 42)
	shown := sess.Questions()

	// Assert: каждый вопрос ровно один раз
	require.Len(t, shown, 3)
	seen := map[uint]bool{}
	for _, q := range shown {
		seen[q.ID] = true
	}
	assert.True(t, seen[10] && seen[11] && seen[12], "перемешивание не должно терять или дублировать вопросы")
}

// ============================================================================
// Обратный отсчет
// ============================================================================

// Минутный лимит: 60 симулированных тиков приводят к автоотправке
func TestSession_CountdownExpiryAutoSubmits(t *testing.T) {
	// Arrange
	sess := New(makeQuiz(1), makeQuestions(), 42)

	var autoSubmitted *entity.Attempt
	sess.SetAutoSubmitHandler(func(a *entity.Attempt) {
		autoSubmitted = a
	})
	require.NoError(t, sess.Start(context.Background()))
	require.Equal(t, 60, sess.RemainingSeconds())

	// Act: симулируем 60 секунд без единого ответа
	for i := 0; i < 59; i++ {
		assert.True(t, sess.tick(), "до нуля отсчет должен продолжаться")
	}
	assert.False(t, sess.tick(), "на нулевой секунде отсчет должен остановиться")

	// Assert
	assert.Equal(t, StateSubmitted, sess.State())
	require.NotNil(t, autoSubmitted, "обработчик автоотправки должен быть вызван")
	assert.True(t, autoSubmitted.TimeExpired, "попытка должна нести флаг истечения времени")
	assert.Equal(t, 0, autoSubmitted.Score)
	assert.False(t, autoSubmitted.IsPassed)
	assert.Equal(t, 0, sess.RemainingSeconds())
}

// Опоздавший тик после ручной отправки не выполняет вторую отправку
func TestSession_LateTickAfterManualSubmitIsNoop(t *testing.T) {
	// Arrange
	sess := New(makeQuiz(1), makeQuestions(), 42)
	handlerCalls := 0
	sess.SetAutoSubmitHandler(func(*entity.Attempt) { handlerCalls++ })
	require.NoError(t, sess.Start(context.Background()))

	result, err := sess.Submit(true)
	require.NoError(t, err)
	require.NotNil(t, result.Attempt)

	// Act
	cont := sess.tick()

	// Assert: ровно один выход из InProgress
	assert.False(t, cont)
	assert.Equal(t, 0, handlerCalls, "автоотправка не должна срабатывать после ручной")
	assert.Equal(t, StateSubmitted, sess.State())
}

// Брошенная сессия не доживает до автоотправки: даже если таймер успел бы
// дотикать до нуля, обработчик не вызывается и попытка не строится
func TestSession_AbandonStopsCountdownAndBlocksSubmit(t *testing.T) {
	// Arrange
	sess := New(makeQuiz(1), makeQuestions(), 42)
	handlerCalls := 0
	sess.SetAutoSubmitHandler(func(*entity.Attempt) { handlerCalls++ })
	require.NoError(t, sess.Start(context.Background()))
	require.NoError(t, sess.RecordAnswer(10, entity.NewAnswer("B")))

	// Act
	sess.Abandon()

	// Assert: терминальное состояние без оценивания
	assert.Equal(t, StateAbandoned, sess.State())

	// Симулируем все секунды лимита — отсчет мертв, автоотправки нет
	for i := 0; i < 60; i++ {
		assert.False(t, sess.tick(), "после Abandon отсчет должен быть остановлен")
	}
	assert.Equal(t, 0, handlerCalls, "автоотправка брошенной сессии недопустима")

	// Ручная отправка и запись ответов тоже закрыты
	result, err := sess.Submit(true)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	assert.Nil(t, result)
	assert.ErrorIs(t, sess.RecordAnswer(10, entity.NewAnswer("A")), apperrors.ErrInvalidState)
}

// Abandon после отправки — запоздавшая уборка: результат не затирается
func TestSession_AbandonAfterSubmitIsNoop(t *testing.T) {
	// Arrange
	sess := startedSession(t, makeQuiz(0))
	_, err := sess.Submit(true)
	require.NoError(t, err)

	// Act
	sess.Abandon()

	// Assert
	assert.Equal(t, StateSubmitted, sess.State(), "отправленная сессия не становится брошенной")
}

func TestSession_NoTimeLimitReportsWallClockElapsed(t *testing.T) {
	// Arrange
	sess := startedSession(t, makeQuiz(0))
	assert.False(t, sess.HasTimeLimit())

	// Act
	time.Sleep(10 * time.Millisecond)
	_, err := sess.Submit(true)

	// Assert: без лимита затраченное время считается по таймстемпам
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sess.ElapsedSeconds(), 0)
}

func TestSession_ElapsedSecondsWithLimit(t *testing.T) {
	// Arrange
	sess := New(makeQuiz(1), makeQuestions(), 42)
	require.NoError(t, sess.Start(context.Background()))

	// Act: прошло 15 симулированных секунд
	for i := 0; i < 15; i++ {
		sess.tick()
	}

	// Assert
	assert.Equal(t, 15, sess.ElapsedSeconds())
	assert.Equal(t, 45, sess.RemainingSeconds())
}
