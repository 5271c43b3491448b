package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/lms-api/internal/domain/entity"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/internal/service/session"
)

// ============================================================================
// Моки репозиториев
// ============================================================================

// MockQuizRepo реализует repository.QuizRepository
type MockQuizRepo struct {
	mock.Mock
}

func (m *MockQuizRepo) Create(quiz *entity.Quiz) error {
	args := m.Called(quiz)
	return args.Error(0)
}

func (m *MockQuizRepo) GetByID(id uint) (*entity.Quiz, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepo) GetWithQuestions(id uint) (*entity.Quiz, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepo) Update(quiz *entity.Quiz) error {
	args := m.Called(quiz)
	return args.Error(0)
}

func (m *MockQuizRepo) List(limit, offset int) ([]entity.Quiz, int64, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Quiz), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuizRepo) ListByCourse(courseID uint) ([]entity.Quiz, error) {
	args := m.Called(courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Quiz), args.Error(1)
}

func (m *MockQuizRepo) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockAttemptRepo реализует repository.AttemptRepository
type MockAttemptRepo struct {
	mock.Mock
}

func (m *MockAttemptRepo) Create(attempt *entity.Attempt) error {
	args := m.Called(attempt)
	return args.Error(0)
}

func (m *MockAttemptRepo) GetByID(id uint) (*entity.Attempt, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Attempt), args.Error(1)
}

func (m *MockAttemptRepo) GetQuizAttempts(quizID uint, limit, offset int) ([]entity.Attempt, int64, error) {
	args := m.Called(quizID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Attempt), args.Get(1).(int64), args.Error(2)
}

func (m *MockAttemptRepo) GetAllQuizAttempts(quizID uint) ([]entity.Attempt, error) {
	args := m.Called(quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Attempt), args.Error(1)
}

func (m *MockAttemptRepo) GetUserAttempts(userID, quizID uint) ([]entity.Attempt, error) {
	args := m.Called(userID, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Attempt), args.Error(1)
}

func (m *MockAttemptRepo) CountUserAttempts(userID, quizID uint) (int64, error) {
	args := m.Called(userID, quizID)
	return args.Get(0).(int64), args.Error(1)
}

// MockCacheRepo реализует repository.CacheRepository
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepo) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

// ============================================================================
// Вспомогательные фабрики
// ============================================================================

func testQuiz() *entity.Quiz {
	return &entity.Quiz{
		ID:        1,
		Title:     "Основы Go",
		PassScore: 60,
		Questions: []entity.Question{
			{
				ID:        10,
				QuizID:    1,
				Type:      entity.QuestionTypeSingle,
				Prompt:    "Вопрос 1",
				Options:   entity.OptionMap{{Key: "A", Text: "нет"}, {Key: "B", Text: "да"}},
				AnswerKey: entity.KeySet{"B"},
				Points:    1,
			},
			{
				ID:        11,
				QuizID:    1,
				Type:      entity.QuestionTypeSingle,
				Prompt:    "Вопрос 2",
				Options:   entity.OptionMap{{Key: "A", Text: "да"}, {Key: "B", Text: "нет"}},
				AnswerKey: entity.KeySet{"A"},
				Points:    1,
			},
		},
	}
}

func newAttemptService(quiz *entity.Quiz) (*AttemptService, *MockQuizRepo, *MockAttemptRepo, *MockCacheRepo) {
	quizRepo := new(MockQuizRepo)
	attemptRepo := new(MockAttemptRepo)
	cacheRepo := new(MockCacheRepo)

	if quiz != nil {
		quizRepo.On("GetWithQuestions", quiz.ID).Return(quiz, nil)
	}
	// Кэш в этих тестах — транзитный: отметки активной сессии не проверяются
	cacheRepo.On("Get", mock.Anything).Return("", apperrors.ErrNotFound).Maybe()
	cacheRepo.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	cacheRepo.On("Delete", mock.Anything).Return(nil).Maybe()

	return NewAttemptService(quizRepo, attemptRepo, cacheRepo), quizRepo, attemptRepo, cacheRepo
}

// ============================================================================
// StartAttempt
// ============================================================================

func TestAttemptService_StartAttempt(t *testing.T) {
	// Arrange
	svc, _, _, _ := newAttemptService(testQuiz())

	// Act
	sess, err := svc.StartAttempt(context.Background(), 1, 42)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, uint(42), sess.UserID)
	assert.NotEmpty(t, sess.ID)

	// Сессия доступна из реестра
	found, err := svc.GetSession(sess.ID, 42)
	require.NoError(t, err)
	assert.Same(t, sess, found)
}

func TestAttemptService_StartAttempt_LimitReached(t *testing.T) {
	// Arrange: лимит 2 попытки, обе уже использованы
	quiz := testQuiz()
	quiz.MaxAttempts = 2
	svc, _, attemptRepo, _ := newAttemptService(quiz)
	attemptRepo.On("CountUserAttempts", uint(42), uint(1)).Return(int64(2), nil)

	// Act
	sess, err := svc.StartAttempt(context.Background(), 1, 42)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict), "исчерпанный лимит должен вернуть ErrConflict")
	assert.Nil(t, sess)
}

func TestAttemptService_StartAttempt_UnderLimit(t *testing.T) {
	// Arrange: использована 1 попытка из 2
	quiz := testQuiz()
	quiz.MaxAttempts = 2
	svc, _, attemptRepo, _ := newAttemptService(quiz)
	attemptRepo.On("CountUserAttempts", uint(42), uint(1)).Return(int64(1), nil)

	// Act
	sess, err := svc.StartAttempt(context.Background(), 1, 42)

	// Assert
	require.NoError(t, err)
	assert.NotNil(t, sess)
}

func TestAttemptService_StartAttempt_QuizNotFound(t *testing.T) {
	// Arrange
	svc, quizRepo, _, _ := newAttemptService(nil)
	quizRepo.On("GetWithQuestions", uint(99)).Return(nil, apperrors.ErrNotFound)

	// Act
	sess, err := svc.StartAttempt(context.Background(), 99, 42)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, sess)
}

// ============================================================================
// Сессии и владение
// ============================================================================

func TestAttemptService_GetSession_WrongUser(t *testing.T) {
	// Arrange
	svc, _, _, _ := newAttemptService(testQuiz())
	sess, err := svc.StartAttempt(context.Background(), 1, 42)
	require.NoError(t, err)

	// Act: чужой пользователь
	found, err := svc.GetSession(sess.ID, 77)

	// Assert: чужая сессия неотличима от несуществующей
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, found)
}

func TestAttemptService_Navigate_UnknownAction(t *testing.T) {
	// Arrange
	svc, _, _, _ := newAttemptService(testQuiz())
	sess, err := svc.StartAttempt(context.Background(), 1, 42)
	require.NoError(t, err)

	// Act
	_, err = svc.Navigate(sess.ID, 42, "teleport", 0)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAttemptService_RestartAbandonsPriorSession(t *testing.T) {
	// Arrange: кэш помнит идентификатор первой сессии при повторном старте
	quiz := testQuiz()
	quiz.TimeLimitMinutes = 1
	quizRepo := new(MockQuizRepo)
	attemptRepo := new(MockAttemptRepo)
	cacheRepo := new(MockCacheRepo)
	quizRepo.On("GetWithQuestions", quiz.ID).Return(quiz, nil)
	cacheRepo.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	cacheRepo.On("Delete", mock.Anything).Return(nil).Maybe()
	svc := NewAttemptService(quizRepo, attemptRepo, cacheRepo)

	cacheRepo.On("Get", mock.Anything).Return("", apperrors.ErrNotFound).Once()
	first, err := svc.StartAttempt(context.Background(), 1, 42)
	require.NoError(t, err)

	// Act: повторный вход в ту же викторину
	cacheRepo.On("Get", mock.Anything).Return(first.ID, nil).Once()
	second, err := svc.StartAttempt(context.Background(), 1, 42)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	// Assert: старая сессия брошена, ее таймер погашен — даже после истечения
	// лимита она не может отправиться и занять слот попытки
	assert.Equal(t, session.StateAbandoned, first.State())
	_, err = first.Submit(true)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	attemptRepo.AssertNotCalled(t, "Create", mock.Anything)

	_, err = svc.GetSession(first.ID, 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "брошенная сессия убрана из реестра")

	// Новая сессия живет
	found, err := svc.GetSession(second.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, session.StateInProgress, found.State())
}

func TestAttemptService_SubmitKeepsForeignActiveMarker(t *testing.T) {
	// Arrange: к моменту отправки отметка уже указывает на другую сессию
	quiz := testQuiz()
	quizRepo := new(MockQuizRepo)
	attemptRepo := new(MockAttemptRepo)
	cacheRepo := new(MockCacheRepo)
	quizRepo.On("GetWithQuestions", quiz.ID).Return(quiz, nil)
	attemptRepo.On("Create", mock.AnythingOfType("*entity.Attempt")).Return(nil)
	cacheRepo.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := NewAttemptService(quizRepo, attemptRepo, cacheRepo)

	cacheRepo.On("Get", mock.Anything).Return("", apperrors.ErrNotFound).Once()
	sess, err := svc.StartAttempt(context.Background(), 1, 42)
	require.NoError(t, err)

	// Act
	cacheRepo.On("Get", mock.Anything).Return("id-более-новой-сессии", nil).Once()
	_, err = svc.Submit(sess.ID, 42, true)

	// Assert: чужая отметка остается на месте
	require.NoError(t, err)
	cacheRepo.AssertNotCalled(t, "Delete", activeKey(1, 42))
}

// ============================================================================
// Submit
// ============================================================================

func TestAttemptService_SubmitPersistsAndEvicts(t *testing.T) {
	// Arrange
	svc, _, attemptRepo, _ := newAttemptService(testQuiz())
	attemptRepo.On("Create", mock.AnythingOfType("*entity.Attempt")).Return(nil)

	sess, err := svc.StartAttempt(context.Background(), 1, 42)
	require.NoError(t, err)
	require.NoError(t, svc.RecordAnswer(sess.ID, 42, 10, entity.NewAnswer("B")))
	require.NoError(t, svc.RecordAnswer(sess.ID, 42, 11, entity.NewAnswer("A")))

	// Act
	outcome, err := svc.Submit(sess.ID, 42, false)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, outcome.Attempt)
	assert.True(t, outcome.Persisted)
	assert.Equal(t, 100, outcome.Attempt.Score)
	assert.True(t, outcome.Attempt.IsPassed)
	attemptRepo.AssertCalled(t, "Create", mock.AnythingOfType("*entity.Attempt"))

	// Сессия убрана из реестра
	_, err = svc.GetSession(sess.ID, 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAttemptService_SubmitConfirmRequired(t *testing.T) {
	// Arrange: ни одного ответа
	svc, _, attemptRepo, _ := newAttemptService(testQuiz())

	sess, err := svc.StartAttempt(context.Background(), 1, 42)
	require.NoError(t, err)

	// Act
	outcome, err := svc.Submit(sess.ID, 42, false)

	// Assert: отправка не состоялась, сессия жива, в базу ничего не пишется
	require.NoError(t, err)
	assert.True(t, outcome.ConfirmRequired)
	assert.Equal(t, 2, outcome.Unanswered)
	attemptRepo.AssertNotCalled(t, "Create", mock.Anything)

	_, err = svc.GetSession(sess.ID, 42)
	assert.NoError(t, err, "сессия должна оставаться в реестре после запроса подтверждения")
}

func TestAttemptService_SubmitReturnsResultWhenPersistFails(t *testing.T) {
	// Arrange: база недоступна при сохранении
	svc, _, attemptRepo, _ := newAttemptService(testQuiz())
	attemptRepo.On("Create", mock.AnythingOfType("*entity.Attempt")).Return(errors.New("db down"))

	sess, err := svc.StartAttempt(context.Background(), 1, 42)
	require.NoError(t, err)
	require.NoError(t, svc.RecordAnswer(sess.ID, 42, 10, entity.NewAnswer("B")))

	// Act
	outcome, err := svc.Submit(sess.ID, 42, true)

	// Assert: ученик получает свой результат, потеря записи видна по флагу
	require.NoError(t, err)
	require.NotNil(t, outcome.Attempt)
	assert.False(t, outcome.Persisted)
	assert.Equal(t, 50, outcome.Attempt.Score)
}

func TestAttemptService_DoubleSubmit(t *testing.T) {
	// Arrange
	svc, _, attemptRepo, _ := newAttemptService(testQuiz())
	attemptRepo.On("Create", mock.AnythingOfType("*entity.Attempt")).Return(nil)

	sess, err := svc.StartAttempt(context.Background(), 1, 42)
	require.NoError(t, err)
	_, err = svc.Submit(sess.ID, 42, true)
	require.NoError(t, err)

	// Act: сессия уже убрана из реестра
	outcome, err := svc.Submit(sess.ID, 42, true)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, outcome)
}

// ============================================================================
// История и аналитика
// ============================================================================

func TestAttemptService_GetAttempt_OwnershipCheck(t *testing.T) {
	// Arrange
	svc, _, attemptRepo, _ := newAttemptService(nil)
	attemptRepo.On("GetByID", uint(5)).Return(&entity.Attempt{ID: 5, UserID: 42}, nil)

	// Act & Assert: владелец получает попытку
	attempt, err := svc.GetAttempt(5, 42)
	require.NoError(t, err)
	assert.Equal(t, uint(5), attempt.ID)

	// Чужая попытка неотличима от несуществующей
	_, err = svc.GetAttempt(5, 77)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAttemptService_QuizAnalytics(t *testing.T) {
	// Arrange
	quiz := testQuiz()
	svc, _, attemptRepo, _ := newAttemptService(quiz)
	attemptRepo.On("GetAllQuizAttempts", uint(1)).Return([]entity.Attempt{
		{QuizID: 1, Score: 100, IsPassed: true, Answers: entity.AnswerMap{10: entity.NewAnswer("B"), 11: entity.NewAnswer("A")}},
		{QuizID: 1, Score: 50, IsPassed: false, Answers: entity.AnswerMap{10: entity.NewAnswer("A")}},
	}, nil)

	// Act
	summary, perQuestion, err := svc.QuizAnalytics(1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, summary.AttemptCount)
	assert.Equal(t, 75, summary.AverageScore)
	assert.Equal(t, 50, summary.PassRate)

	require.Len(t, perQuestion, 2)
	assert.Equal(t, 2, perQuestion[0].TotalAnswers)
	assert.Equal(t, 1, perQuestion[0].CorrectCount)
	assert.Equal(t, 1, perQuestion[1].TotalAnswers, "пропущенный вопрос не входит в знаменатель")
}
