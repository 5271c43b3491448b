package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// AnswerValue: скалярная и множественная формы
// ============================================================================

func TestAnswerValue_UnmarshalScalar(t *testing.T) {
	var v AnswerValue
	require.NoError(t, json.Unmarshal([]byte(`"A"`), &v))
	assert.Equal(t, []string{"A"}, v.Values)
	assert.Equal(t, "A", v.Single())
}

func TestAnswerValue_UnmarshalArray(t *testing.T) {
	var v AnswerValue
	require.NoError(t, json.Unmarshal([]byte(`["A","C"]`), &v))
	assert.Equal(t, []string{"A", "C"}, v.Values)
}

func TestAnswerValue_MarshalRoundTrip(t *testing.T) {
	// Одиночное значение сериализуется как скаляр
	single, err := json.Marshal(NewAnswer("A"))
	require.NoError(t, err)
	assert.Equal(t, `"A"`, string(single))

	// Набор значений — как массив
	multi, err := json.Marshal(NewAnswer("A", "C"))
	require.NoError(t, err)
	assert.Equal(t, `["A","C"]`, string(multi))
}

func TestAnswerValue_IsEmpty(t *testing.T) {
	assert.True(t, AnswerValue{}.IsEmpty())
	assert.True(t, NewAnswer().IsEmpty())
	assert.True(t, NewAnswer("").IsEmpty(), "пустая строка не считается ответом")
	assert.False(t, NewAnswer("A").IsEmpty())
}

// ============================================================================
// AnswerMap: JSONB
// ============================================================================

func TestAnswerMap_ScanMixedForms(t *testing.T) {
	// Arrange: в хранимых данных скаляры и массивы соседствуют
	raw := []byte(`{"10":"B","11":["A","C"]}`)

	// Act
	var m AnswerMap
	require.NoError(t, m.Scan(raw))

	// Assert
	assert.Equal(t, []string{"B"}, m[10].Values)
	assert.Equal(t, []string{"A", "C"}, m[11].Values)
}

func TestAnswerMap_ScanNil(t *testing.T) {
	var m AnswerMap
	require.NoError(t, m.Scan(nil))
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

// ============================================================================
// Attempt
// ============================================================================

func TestAttempt_Duration(t *testing.T) {
	started := time.Now()
	attempt := &Attempt{
		StartedAt:   started,
		SubmittedAt: started.Add(90 * time.Second),
	}
	assert.Equal(t, 90*time.Second, attempt.Duration())
}

func TestAttempt_Answered(t *testing.T) {
	attempt := &Attempt{
		Answers: AnswerMap{
			10: NewAnswer("B"),
			11: {}, // пустое значение — не ответ
		},
	}
	assert.True(t, attempt.Answered(10))
	assert.False(t, attempt.Answered(11))
	assert.False(t, attempt.Answered(99))
}
