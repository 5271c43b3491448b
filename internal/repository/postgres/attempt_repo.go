package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/yourusername/lms-api/internal/domain/entity"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Create сохраняет завершенную попытку.
// Запись неизменяема: никакой повторный Save/Update по ней не выполняется.
func (r *AttemptRepo) Create(attempt *entity.Attempt) error {
	if err := r.db.Create(attempt).Error; err != nil {
		// Проверяем unique violation (23505) от обоих драйверов
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: attempt already recorded", apperrors.ErrConflict)
		}
		return err
	}
	return nil
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}

// GetByID возвращает попытку по ID
func (r *AttemptRepo) GetByID(id uint) (*entity.Attempt, error) {
	var attempt entity.Attempt
	err := r.db.First(&attempt, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetQuizAttempts возвращает попытки викторины с пагинацией
func (r *AttemptRepo) GetQuizAttempts(quizID uint, limit, offset int) ([]entity.Attempt, int64, error) {
	var attempts []entity.Attempt
	var total int64

	if err := r.db.Model(&entity.Attempt{}).Where("quiz_id = ?", quizID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Where("quiz_id = ?", quizID).
		Order("submitted_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&attempts).Error
	if err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

// GetAllQuizAttempts возвращает ВСЕ попытки викторины без пагинации.
// Используется аналитикой и экспортом, где нужна полная выборка.
func (r *AttemptRepo) GetAllQuizAttempts(quizID uint) ([]entity.Attempt, error) {
	var attempts []entity.Attempt
	err := r.db.Where("quiz_id = ?", quizID).
		Order("submitted_at ASC").
		Find(&attempts).Error
	// Пустой слайс — валидный результат, ErrRecordNotFound здесь не проверяем
	return attempts, err
}

// GetUserAttempts возвращает попытки пользователя в конкретной викторине
func (r *AttemptRepo) GetUserAttempts(userID, quizID uint) ([]entity.Attempt, error) {
	var attempts []entity.Attempt
	err := r.db.Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("submitted_at DESC").
		Find(&attempts).Error
	return attempts, err
}

// CountUserAttempts возвращает количество сохраненных попыток пользователя.
// Брошенные (не отправленные) сессии сюда не попадают — они не сохраняются.
func (r *AttemptRepo) CountUserAttempts(userID, quizID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Attempt{}).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Count(&count).Error
	return count, err
}
