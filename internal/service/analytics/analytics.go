package analytics

import (
	"math"
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/service/scoring"
)

// Difficulty — эмпирическая сложность вопроса по доле верных ответов
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"   // > 90% верных
	DifficultyNormal Difficulty = "normal" // промежуточная зона и вопросы без данных
	DifficultyHard   Difficulty = "hard"   // < 40% верных
)

// QuizSummary — сводка по сохраненным попыткам одной викторины.
// Считается по снимку на момент GeneratedAt: попытки, сохраненные позже,
// в сводку не входят — потребитель судит о свежести по таймстемпу.
// Все доли — целые проценты, округленные математически (round half up).
type QuizSummary struct {
	QuizID          uint      `json:"quiz_id"`
	AttemptCount    int       `json:"attempt_count"`
	AverageScore    int       `json:"average_score"`
	PassRate        int       `json:"pass_rate"`
	PassedCount     int       `json:"passed_count"`
	TimeExpiredRate int       `json:"time_expired_rate"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// QuestionStats — агрегат по одному вопросу.
// TotalAnswers считает только попытки, где на вопрос ответили: доля верных
// здесь отвечает на вопрос "насколько труден вопрос для тех, кто до него
// дошел", в отличие от оценивания попытки, где пропуск засчитывается
// как неверный ответ.
type QuestionStats struct {
	QuestionID    uint           `json:"question_id"`
	Prompt        string         `json:"prompt"`
	Type          string         `json:"type"`
	TotalAnswers  int            `json:"total_answers"`
	CorrectCount  int            `json:"correct_count"`
	UngradedCount int            `json:"ungraded_count"`
	CorrectRate   int            `json:"correct_rate"`
	Difficulty    Difficulty     `json:"difficulty"`
	Distribution  map[string]int `json:"distribution"`
}

// Summarize строит сводку викторины по списку попыток.
// Ноль попыток — валидный вход: все доли равны нулю.
func Summarize(quizID uint, attempts []entity.Attempt) *QuizSummary {
	summary := &QuizSummary{
		QuizID:       quizID,
		AttemptCount: len(attempts),
		GeneratedAt:  time.Now(),
	}
	if len(attempts) == 0 {
		return summary
	}

	scoreSum := 0
	expired := 0
	for i := range attempts {
		scoreSum += attempts[i].Score
		if attempts[i].IsPassed {
			summary.PassedCount++
		}
		if attempts[i].TimeExpired {
			expired++
		}
	}

	n := float64(len(attempts))
	summary.AverageScore = roundInt(float64(scoreSum) / n)
	summary.PassRate = roundInt(float64(summary.PassedCount) / n * 100)
	summary.TimeExpiredRate = roundInt(float64(expired) / n * 100)
	return summary
}

// PerQuestionStats строит агрегаты по каждому вопросу викторины.
// Распределение ответов считается по ключам: multiple-ответ дает
// по единице на каждый выбранный ключ, поэтому сумма распределения
// может превышать число ответивших.
func PerQuestionStats(questions []entity.Question, attempts []entity.Attempt) []QuestionStats {
	stats := make([]QuestionStats, 0, len(questions))

	for i := range questions {
		q := &questions[i]
		qs := QuestionStats{
			QuestionID:   q.ID,
			Prompt:       q.Prompt,
			Type:         q.Type,
			Difficulty:   DifficultyNormal,
			Distribution: map[string]int{},
		}

		for j := range attempts {
			answer, ok := attempts[j].Answers[q.ID]
			if !ok || answer.IsEmpty() {
				continue
			}
			qs.TotalAnswers++

			if q.IsChoice() {
				for _, key := range answer.Values {
					qs.Distribution[key]++
				}
			}

			switch scoring.Evaluate(q, answer, true) {
			case scoring.VerdictCorrect:
				qs.CorrectCount++
			case scoring.VerdictUngraded:
				qs.UngradedCount++
			}
		}

		if qs.TotalAnswers > 0 {
			qs.CorrectRate = roundInt(float64(qs.CorrectCount) / float64(qs.TotalAnswers) * 100)
			qs.Difficulty = classifyDifficulty(qs.CorrectRate)
		}
		// Text-вопросы не автопроверяются: доля верных для них всегда 0,
		// маркировать их как "hard" было бы дезинформацией
		if q.Type == entity.QuestionTypeText {
			qs.Difficulty = DifficultyNormal
		}

		stats = append(stats, qs)
	}

	return stats
}

// classifyDifficulty переводит долю верных ответов в категорию.
// Порог сравнивается с уже округленным целым процентом: 39.6% верных
// дает 40 и остается normal.
func classifyDifficulty(correctRate int) Difficulty {
	switch {
	case correctRate < 40:
		return DifficultyHard
	case correctRate > 90:
		return DifficultyEasy
	default:
		return DifficultyNormal
	}
}

// roundInt округляет долю до целого процента
func roundInt(v float64) int {
	return int(math.Round(v))
}
