package repository

import (
	"github.com/yourusername/lms-api/internal/domain/entity"
)

// AttemptRepository определяет методы для работы с попытками.
// Попытки append-only: интерфейс сознательно не содержит Update.
type AttemptRepository interface {
	Create(attempt *entity.Attempt) error
	GetByID(id uint) (*entity.Attempt, error)
	// GetQuizAttempts возвращает попытки викторины с пагинацией
	GetQuizAttempts(quizID uint, limit, offset int) ([]entity.Attempt, int64, error)
	// GetAllQuizAttempts возвращает ВСЕ попытки викторины (для аналитики и экспорта)
	GetAllQuizAttempts(quizID uint) ([]entity.Attempt, error)
	GetUserAttempts(userID, quizID uint) ([]entity.Attempt, error)
	CountUserAttempts(userID, quizID uint) (int64, error)
}
