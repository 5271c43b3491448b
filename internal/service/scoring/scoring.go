package scoring

import (
	"math"

	"github.com/yourusername/lms-api/internal/domain/entity"
)

// Verdict — трехзначный результат проверки одного ответа.
// Булевого "верно/неверно" недостаточно: text-вопросы не автопроверяются
// и должны оставаться различимыми для аналитики (Ungraded).
type Verdict int

const (
	VerdictIncorrect Verdict = iota
	VerdictCorrect
	VerdictUngraded
)

// String возвращает строковое представление вердикта
func (v Verdict) String() string {
	switch v {
	case VerdictCorrect:
		return "correct"
	case VerdictUngraded:
		return "ungraded"
	default:
		return "incorrect"
	}
}

// Evaluate проверяет один ответ на вопрос.
//   - single: совпадение с единственным правильным ключом;
//   - multiple: точное равенство множеств, частичный зачет не начисляется —
//     надмножество и подмножество правильного набора считаются неверными;
//   - text: Ungraded, если ответ дан (ручная проверка вне этой подсистемы);
//   - отсутствующий ответ — всегда Incorrect, никогда Ungraded.
func Evaluate(q *entity.Question, answer entity.AnswerValue, answered bool) Verdict {
	if !answered || answer.IsEmpty() {
		return VerdictIncorrect
	}

	switch q.Type {
	case entity.QuestionTypeText:
		return VerdictUngraded
	case entity.QuestionTypeSingle:
		if len(answer.Values) != 1 {
			return VerdictIncorrect
		}
		if _, ok := CorrectKeySet(q)[answer.Single()]; ok {
			return VerdictCorrect
		}
		return VerdictIncorrect
	case entity.QuestionTypeMultiple:
		if setsEqual(answer.ToSet(), CorrectKeySet(q)) {
			return VerdictCorrect
		}
		return VerdictIncorrect
	default:
		// Неизвестный тип вопроса — безопасная деградация
		return VerdictIncorrect
	}
}

// setsEqual проверяет точное равенство двух множеств ключей
func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// Summary — итог оценивания попытки
type Summary struct {
	Score          int `json:"score"`
	CorrectCount   int `json:"correct_count"`
	TotalQuestions int `json:"total_questions"`
}

// ScoreAttempt оценивает попытку целиком: детерминированная чистая функция,
// пригодная для повторного вызова (переоценка, аналитика) без побочных эффектов.
// Ungraded-ответы не входят в числитель, но остаются в знаменателе — для
// процента они фактически считаются неверными, пока нет ручной проверки.
func ScoreAttempt(questions []entity.Question, answers entity.AnswerMap) Summary {
	total := len(questions)
	correct := 0
	for i := range questions {
		answer, ok := answers[questions[i].ID]
		if Evaluate(&questions[i], answer, ok) == VerdictCorrect {
			correct++
		}
	}

	score := 0
	if total > 0 {
		score = int(math.Round(float64(correct) / float64(total) * 100))
	}

	return Summary{
		Score:          score,
		CorrectCount:   correct,
		TotalQuestions: total,
	}
}

// IsPassed проверяет порог прохождения. Пустая викторина (0 вопросов)
// не может быть пройдена независимо от порога.
func (s Summary) IsPassed(passScore int) bool {
	if s.TotalQuestions == 0 {
		return false
	}
	return s.Score >= passScore
}
