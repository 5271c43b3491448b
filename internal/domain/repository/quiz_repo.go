package repository

import (
	"github.com/yourusername/lms-api/internal/domain/entity"
)

// QuizRepository определяет методы для работы с викторинами
type QuizRepository interface {
	Create(quiz *entity.Quiz) error
	GetByID(id uint) (*entity.Quiz, error)
	// GetWithQuestions возвращает викторину с вопросами, упорядоченными по sort_order
	GetWithQuestions(id uint) (*entity.Quiz, error)
	Update(quiz *entity.Quiz) error
	List(limit, offset int) ([]entity.Quiz, int64, error)
	ListByCourse(courseID uint) ([]entity.Quiz, error)
	Delete(id uint) error
}
