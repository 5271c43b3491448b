package entity

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"sort"
	"time"
)

// Типы вопросов. Замкнутое множество: поведение проверки ответа
// диспетчеризуется по этому тегу в одном месте (service/scoring).
const (
	QuestionTypeSingle   = "single"
	QuestionTypeMultiple = "multiple"
	QuestionTypeText     = "text"
)

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
// Используется GORM для чтения JSONB данных из базы
func (o *StringArray) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*o = StringArray{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	// Обработка пустого массива байтов
	if len(b) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(b, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
// Используется GORM для записи StringArray в JSONB в базе
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// Option — один вариант ответа: ключ ("A", "B", ...) и отображаемый текст.
type Option struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// OptionMap — упорядоченное отображение ключ варианта -> текст.
// Хранится в JSONB. Исторически данные приходят в разных формах:
// массив пар {key,text}, объект {"A": "...", ...} или JSON-строка
// с любым из этих вариантов внутри. Нормализация выполняется один раз
// на границе (Scan/ParseOptions), дальше система видит единую форму.
type OptionMap []Option

// ParseOptions разбирает сырые байты опций в OptionMap.
// Любая ошибка разбора деградирует до пустого набора опций —
// битые данные не должны ронять подсчет результатов.
func ParseOptions(raw []byte) OptionMap {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return OptionMap{}
	}

	// Вариант 1: массив пар {key,text}
	var pairs []Option
	if err := json.Unmarshal(raw, &pairs); err == nil {
		out := make(OptionMap, 0, len(pairs))
		for _, p := range pairs {
			if p.Key != "" {
				out = append(out, p)
			}
		}
		return out
	}

	// Вариант 2: объект ключ -> текст. Порядок ключей объекта JSON
	// не определен, поэтому сортируем для стабильного порядка показа.
	var obj map[string]string
	if err := json.Unmarshal(raw, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(OptionMap, 0, len(keys))
		for _, k := range keys {
			out = append(out, Option{Key: k, Text: obj[k]})
		}
		return out
	}

	// Вариант 3: JSON-строка, внутри которой закодирован один из вариантов выше
	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil && inner != string(raw) {
		return ParseOptions([]byte(inner))
	}

	// Неразборчивые данные — пустой набор, не ошибка
	return OptionMap{}
}

// Scan реализует sql.Scanner для OptionMap
func (o *OptionMap) Scan(value interface{}) error {
	if value == nil {
		*o = OptionMap{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	*o = ParseOptions(b)
	return nil
}

// Value реализует driver.Valuer для OptionMap
func (o OptionMap) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal([]Option(o))
}

// Get возвращает текст варианта по ключу
func (o OptionMap) Get(key string) (string, bool) {
	for _, opt := range o {
		if opt.Key == key {
			return opt.Text, true
		}
	}
	return "", false
}

// Keys возвращает ключи вариантов в порядке показа
func (o OptionMap) Keys() []string {
	keys := make([]string, len(o))
	for i, opt := range o {
		keys[i] = opt.Key
	}
	return keys
}

// KeySet — набор ключей правильных вариантов.
// В хранимых данных ключ встречается и как скаляр ("A"), и как массив (["A"]),
// и как JSON-строка с любым из этих вариантов — UnmarshalJSON принимает все формы.
type KeySet []string

// UnmarshalJSON принимает "A", ["A","C"] или строку с закодированным массивом
func (k *KeySet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*k = KeySet{}
		return nil
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*k = KeySet(arr)
		return nil
	}

	var scalar string
	if err := json.Unmarshal(data, &scalar); err == nil {
		// Строка может сама содержать закодированный массив
		inner := []byte(scalar)
		var innerArr []string
		if json.Unmarshal(inner, &innerArr) == nil {
			*k = KeySet(innerArr)
			return nil
		}
		if scalar == "" {
			*k = KeySet{}
			return nil
		}
		*k = KeySet{scalar}
		return nil
	}

	// Неразборчивый ключ деградирует до пустого набора
	*k = KeySet{}
	return nil
}

// Scan реализует sql.Scanner для KeySet
func (k *KeySet) Scan(value interface{}) error {
	if value == nil {
		*k = KeySet{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	if len(b) == 0 {
		*k = KeySet{}
		return nil
	}
	return k.UnmarshalJSON(b)
}

// Value реализует driver.Valuer для KeySet
func (k KeySet) Value() (driver.Value, error) {
	if len(k) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(k))
}

// ToSet возвращает множество ключей (дубликаты схлопываются)
func (k KeySet) ToSet() map[string]struct{} {
	set := make(map[string]struct{}, len(k))
	for _, key := range k {
		set[key] = struct{}{}
	}
	return set
}

// Question представляет вопрос викторины
type Question struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	QuizID    uint        `gorm:"not null;index" json:"quiz_id"`
	Type      string      `gorm:"size:20;not null;default:'single'" json:"type"`
	Prompt    string      `gorm:"size:1000;not null" json:"prompt"`
	Options   OptionMap   `gorm:"type:jsonb;not null" json:"options"`
	AnswerKey KeySet      `gorm:"type:jsonb" json:"-"` // Скрыто от клиента
	Keywords  StringArray `gorm:"type:jsonb" json:"-"` // Подсказки для ручной проверки text-вопросов
	Points    int         `gorm:"not null;default:1" json:"points"`
	SortOrder int         `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "quiz_questions"
}

// IsChoice возвращает true для вопросов с вариантами ответа
func (q *Question) IsChoice() bool {
	return q.Type == QuestionTypeSingle || q.Type == QuestionTypeMultiple
}

// HasOption проверяет, предлагается ли такой ключ варианта
func (q *Question) HasOption(key string) bool {
	_, ok := q.Options.Get(key)
	return ok
}

// OptionsCount возвращает количество вариантов ответа
func (q *Question) OptionsCount() int {
	return len(q.Options)
}
