package repository

import (
	"github.com/yourusername/lms-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с вопросами
type QuestionRepository interface {
	GetByID(id uint) (*entity.Question, error)
	// GetByQuizID возвращает вопросы викторины, упорядоченные по sort_order
	GetByQuizID(quizID uint) ([]entity.Question, error)
	Update(question *entity.Question) error
	// MaxSortOrder возвращает наибольший sort_order среди вопросов викторины
	// (0, если вопросов нет)
	MaxSortOrder(quizID uint) (int, error)
}
