package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// ParseOptions: нормализация исторических форм хранения
// ============================================================================

func TestParseOptions_ArrayOfPairs(t *testing.T) {
	// Arrange
	raw := []byte(`[{"key":"A","text":"первый"},{"key":"B","text":"второй"}]`)

	// Act
	options := ParseOptions(raw)

	// Assert
	require.Len(t, options, 2)
	assert.Equal(t, Option{Key: "A", Text: "первый"}, options[0])
	assert.Equal(t, Option{Key: "B", Text: "второй"}, options[1])
}

func TestParseOptions_ObjectForm(t *testing.T) {
	// Arrange: объект ключ -> текст, порядок ключей не гарантирован
	raw := []byte(`{"B":"второй","A":"первый"}`)

	// Act
	options := ParseOptions(raw)

	// Assert: ключи отсортированы для стабильного порядка показа
	require.Len(t, options, 2)
	assert.Equal(t, "A", options[0].Key)
	assert.Equal(t, "B", options[1].Key)
}

func TestParseOptions_EncodedStringForm(t *testing.T) {
	// Arrange: JSON-строка, внутри которой закодирован массив пар
	raw := []byte(`"[{\"key\":\"A\",\"text\":\"первый\"}]"`)

	// Act
	options := ParseOptions(raw)

	// Assert
	require.Len(t, options, 1)
	assert.Equal(t, "A", options[0].Key)
}

func TestParseOptions_MalformedDegradesToEmpty(t *testing.T) {
	// Битые данные не должны ронять обработку
	assert.Empty(t, ParseOptions([]byte(`{{{`)))
	assert.Empty(t, ParseOptions([]byte(``)))
	assert.Empty(t, ParseOptions([]byte(`42`)))
}

// ============================================================================
// KeySet
// ============================================================================

func TestKeySet_UnmarshalScalar(t *testing.T) {
	var k KeySet
	require.NoError(t, k.UnmarshalJSON([]byte(`"A"`)))
	assert.Equal(t, KeySet{"A"}, k)
}

func TestKeySet_UnmarshalArray(t *testing.T) {
	var k KeySet
	require.NoError(t, k.UnmarshalJSON([]byte(`["A","C"]`)))
	assert.Equal(t, KeySet{"A", "C"}, k)
}

func TestKeySet_UnmarshalEncodedArray(t *testing.T) {
	// Строка, внутри которой закодирован массив
	var k KeySet
	require.NoError(t, k.UnmarshalJSON([]byte(`"[\"A\",\"C\"]"`)))
	assert.Equal(t, KeySet{"A", "C"}, k)
}

func TestKeySet_UnmarshalMalformedDegradesToEmpty(t *testing.T) {
	var k KeySet
	require.NoError(t, k.UnmarshalJSON([]byte(`{"not":"a key"}`)))
	assert.Empty(t, k)

	require.NoError(t, k.UnmarshalJSON([]byte(`null`)))
	assert.Empty(t, k)
}

func TestKeySet_ToSetCollapsesDuplicates(t *testing.T) {
	k := KeySet{"A", "C", "A"}
	set := k.ToSet()
	assert.Len(t, set, 2)
	_, hasA := set["A"]
	_, hasC := set["C"]
	assert.True(t, hasA && hasC)
}

func TestKeySet_ScanFromJSONB(t *testing.T) {
	var k KeySet
	require.NoError(t, k.Scan([]byte(`["B"]`)))
	assert.Equal(t, KeySet{"B"}, k)

	require.NoError(t, k.Scan(nil))
	assert.Empty(t, k)
}

// ============================================================================
// Question
// ============================================================================

func TestQuestion_HasOption(t *testing.T) {
	// Arrange
	question := &Question{
		Options: OptionMap{{Key: "A", Text: "да"}, {Key: "B", Text: "нет"}},
	}

	// Act & Assert
	assert.True(t, question.HasOption("A"))
	assert.True(t, question.HasOption("B"))
	assert.False(t, question.HasOption("C"))
}

func TestQuestion_IsChoice(t *testing.T) {
	assert.True(t, (&Question{Type: QuestionTypeSingle}).IsChoice())
	assert.True(t, (&Question{Type: QuestionTypeMultiple}).IsChoice())
	assert.False(t, (&Question{Type: QuestionTypeText}).IsChoice())
}
