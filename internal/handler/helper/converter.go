package helper

import (
	"strings"

	"github.com/yourusername/lms-api/internal/domain/entity"
)

// QuestionOption представляет вариант ответа для фронтенда
type QuestionOption struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// ConvertOptionsToObjects преобразует варианты вопроса в формат для клиента
func ConvertOptionsToObjects(options entity.OptionMap) []QuestionOption {
	converted := make([]QuestionOption, len(options))
	for i, opt := range options {
		text := opt.Text
		// Дополнительная проверка на пустые строки
		if text == "" {
			text = "(пустой вариант)"
		}
		converted[i] = QuestionOption{Key: opt.Key, Text: text}
	}
	return converted
}

// FormatAnswerValue форматирует значение ответа для экспорта и отчетов:
// одиночный ключ — как есть, набор ключей — через запятую
func FormatAnswerValue(value entity.AnswerValue) string {
	if value.IsEmpty() {
		return ""
	}
	return strings.Join(value.Values, ", ")
}
