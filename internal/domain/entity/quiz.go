package entity

import (
	"time"
)

// Quiz представляет викторину курса или урока
type Quiz struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:100;not null" json:"title"`
	Description string `gorm:"size:500;not null;default:''" json:"description"`

	// Владелец: курс ИЛИ урок, взаимоисключающе
	CourseID *uint `gorm:"index" json:"course_id,omitempty"`
	LessonID *uint `gorm:"index" json:"lesson_id,omitempty"`

	// PassScore — порог прохождения в процентах (0-100)
	PassScore int `gorm:"not null;default:60" json:"pass_score"`

	// TimeLimitMinutes — лимит времени; 0 = без ограничения
	TimeLimitMinutes int `gorm:"not null;default:0" json:"time_limit_minutes"`

	// MaxAttempts — лимит попыток; 0 = без ограничения
	MaxAttempts int `gorm:"not null;default:0" json:"max_attempts"`

	// RandomizeQuestions — перемешивать ли порядок вопросов в каждой попытке
	RandomizeQuestions bool `gorm:"not null;default:false" json:"randomize_questions"`

	// QuestionsCount — денормализованный счетчик, синхронизируется
	// сервисом при добавлении/удалении вопросов
	QuestionsCount int `gorm:"not null;default:0" json:"questions_count"`

	Questions []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// HasTimeLimit проверяет, ограничена ли викторина по времени
func (q *Quiz) HasTimeLimit() bool {
	return q.TimeLimitMinutes > 0
}

// TimeLimitSeconds возвращает лимит времени в секундах (0 = без лимита)
func (q *Quiz) TimeLimitSeconds() int {
	return q.TimeLimitMinutes * 60
}

// HasAttemptLimit проверяет, ограничено ли количество попыток
func (q *Quiz) HasAttemptLimit() bool {
	return q.MaxAttempts > 0
}
