package analysis

import (
	"encoding/json"

	"github.com/gusuihan4-tech/kaluli/internal/model"
)

// Normalize coerces any of the observed upstream list shapes into a uniform
// prediction list. The input may be an array of objects or a single bare
// object. Missing-field policy on the client side: name defaults to
// "Unknown", numeric fields stay null (nil). Undecodable input normalizes
// to the empty list; the caller has already classified real parse failures.
func Normalize(raw json.RawMessage) []model.Prediction {
	if len(raw) == 0 {
		return []model.Prediction{}
	}

	var objs []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &objs); err != nil {
		var single map[string]json.RawMessage
		if err := json.Unmarshal(raw, &single); err != nil {
			return []model.Prediction{}
		}
		objs = []map[string]json.RawMessage{single}
	}

	preds := make([]model.Prediction, 0, len(objs))
	for _, o := range objs {
		preds = append(preds, model.Prediction{
			Name:       stringField(o, "Unknown", "name", "label", "title"),
			Calories:   numberField(o, "calories", "kcal"),
			Confidence: numberField(o, "confidence", "score"),
			PortionG:   numberField(o, "portion_g", "grams"),
		})
	}
	return preds
}

func stringField(o map[string]json.RawMessage, fallback string, keys ...string) string {
	for _, k := range keys {
		raw, ok := o[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return fallback
}

func numberField(o map[string]json.RawMessage, keys ...string) *float64 {
	for _, k := range keys {
		raw, ok := o[k]
		if !ok {
			continue
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			return &n
		}
	}
	return nil
}
