package scoring

import (
	"github.com/yourusername/lms-api/internal/domain/entity"
)

// CorrectKeySet возвращает нормализованное множество правильных ключей вопроса.
// Для single хранимый ключ (скаляр или одноэлементный массив — KeySet уже
// нормализовал форму) заворачивается в одноэлементное множество, для multiple
// берется хранимый набор как есть, для text всегда пустое множество:
// текстовые ответы никогда не автопроверяются по совпадению ключа.
func CorrectKeySet(q *entity.Question) map[string]struct{} {
	switch q.Type {
	case entity.QuestionTypeSingle:
		set := make(map[string]struct{}, 1)
		if len(q.AnswerKey) > 0 {
			set[q.AnswerKey[0]] = struct{}{}
		}
		return set
	case entity.QuestionTypeMultiple:
		return q.AnswerKey.ToSet()
	default:
		return map[string]struct{}{}
	}
}
