package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// AnswerValue — значение ответа ученика на один вопрос:
// ключ варианта (single), набор ключей (multiple) или свободный текст (text).
// В JSON принимается и строка, и массив строк — как пишут разные клиенты.
type AnswerValue struct {
	Values []string
}

// NewAnswer создает значение ответа из одного или нескольких значений
func NewAnswer(values ...string) AnswerValue {
	return AnswerValue{Values: values}
}

// UnmarshalJSON принимает "A" или ["A","C"]
func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		a.Values = arr
		return nil
	}
	var scalar string
	if err := json.Unmarshal(data, &scalar); err == nil {
		a.Values = []string{scalar}
		return nil
	}
	return errors.New("answer value must be a string or an array of strings")
}

// MarshalJSON сериализует одиночное значение строкой, набор — массивом
func (a AnswerValue) MarshalJSON() ([]byte, error) {
	if len(a.Values) == 1 {
		return json.Marshal(a.Values[0])
	}
	return json.Marshal(a.Values)
}

// Single возвращает первое значение (для single/text вопросов)
func (a AnswerValue) Single() string {
	if len(a.Values) == 0 {
		return ""
	}
	return a.Values[0]
}

// ToSet возвращает множество выбранных ключей
func (a AnswerValue) ToSet() map[string]struct{} {
	set := make(map[string]struct{}, len(a.Values))
	for _, v := range a.Values {
		set[v] = struct{}{}
	}
	return set
}

// IsEmpty проверяет, есть ли хоть одно непустое значение.
// Пустая строка ответом не считается.
func (a AnswerValue) IsEmpty() bool {
	for _, v := range a.Values {
		if v != "" {
			return false
		}
	}
	return true
}

// AnswerMap — отображение ID вопроса -> ответ ученика (JSONB).
// Вопросы без ответа в отображении отсутствуют — пустые/nil значения не пишутся.
type AnswerMap map[uint]AnswerValue

// Scan реализует sql.Scanner для AnswerMap
func (m *AnswerMap) Scan(value interface{}) error {
	if value == nil {
		*m = AnswerMap{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	if len(b) == 0 {
		*m = AnswerMap{}
		return nil
	}
	return json.Unmarshal(b, m)
}

// Value реализует driver.Valuer для AnswerMap
func (m AnswerMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(map[uint]AnswerValue(m))
}

// Attempt представляет завершенную попытку прохождения викторины.
// Запись append-only: после установки SubmittedAt не изменяется
// и не пересчитывается.
type Attempt struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	UserID  uint `gorm:"not null;index:idx_attempt_user_quiz" json:"user_id"`
	QuizID  uint `gorm:"not null;index:idx_attempt_user_quiz;index" json:"quiz_id"`

	Answers AnswerMap `gorm:"type:jsonb;not null" json:"answers"`

	// Score — процент 0-100, фиксируется при submit
	Score        int  `gorm:"not null;default:0" json:"score"`
	CorrectCount int  `gorm:"not null;default:0" json:"correct_count"`
	IsPassed     bool `gorm:"not null;default:false" json:"is_passed"`

	// TimeExpired — true, если попытка завершена автоотправкой по таймеру,
	// а не явным действием ученика
	TimeExpired bool `gorm:"not null;default:false" json:"time_expired"`

	StartedAt   time.Time `gorm:"not null" json:"started_at"`
	SubmittedAt time.Time `gorm:"not null" json:"submitted_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Attempt) TableName() string {
	return "quiz_attempts"
}

// Duration возвращает фактическую длительность попытки.
// Авторитетный источник для отчетности — разница таймстемпов,
// а не клиентское значение таймера.
func (a *Attempt) Duration() time.Duration {
	return a.SubmittedAt.Sub(a.StartedAt)
}

// Answered проверяет, был ли дан ответ на вопрос
func (a *Attempt) Answered(questionID uint) bool {
	v, ok := a.Answers[questionID]
	return ok && !v.IsEmpty()
}
