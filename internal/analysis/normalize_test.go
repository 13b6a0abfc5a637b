package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_ArrayOfObjects(t *testing.T) {
	preds := Normalize(json.RawMessage(`[
		{"name":"Apple","calories":95,"confidence":0.9,"portion_g":150},
		{"label":"Bread","kcal":200,"score":0.8,"grams":80}
	]`))

	require.Len(t, preds, 2)
	assert.Equal(t, "Apple", preds[0].Name)
	require.NotNil(t, preds[0].Calories)
	assert.Equal(t, 95.0, *preds[0].Calories)

	// alias keys coerce to the canonical fields
	assert.Equal(t, "Bread", preds[1].Name)
	require.NotNil(t, preds[1].Calories)
	assert.Equal(t, 200.0, *preds[1].Calories)
	require.NotNil(t, preds[1].PortionG)
	assert.Equal(t, 80.0, *preds[1].PortionG)
}

func TestNormalize_BareObject(t *testing.T) {
	preds := Normalize(json.RawMessage(`{"title":"Soup","calories":120}`))

	require.Len(t, preds, 1)
	assert.Equal(t, "Soup", preds[0].Name)
	require.NotNil(t, preds[0].Calories)
	assert.Equal(t, 120.0, *preds[0].Calories)
}

func TestNormalize_MissingFieldsStayNull(t *testing.T) {
	preds := Normalize(json.RawMessage(`[{"calories":50}]`))

	require.Len(t, preds, 1)
	assert.Equal(t, "Unknown", preds[0].Name)
	assert.Nil(t, preds[0].Confidence)
	assert.Nil(t, preds[0].PortionG)
	require.NotNil(t, preds[0].Calories)
}

func TestNormalize_NonNumericValuesStayNull(t *testing.T) {
	preds := Normalize(json.RawMessage(`[{"name":"Tea","calories":"lots"}]`))

	require.Len(t, preds, 1)
	assert.Equal(t, "Tea", preds[0].Name)
	assert.Nil(t, preds[0].Calories)
}

func TestNormalize_EmptyAndGarbage(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize(json.RawMessage(`[]`)))
	assert.Empty(t, Normalize(json.RawMessage(`"nonsense"`)))
}
