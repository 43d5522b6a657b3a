// Package review implements the working set of the review screen: feature
// normalization, filtering, selection and the undo history.
package review

import (
	"encoding/json"

	"github.com/paulmach/orb/geojson"
)

// FeatureRecord is one entry of the review working set. Geometry is nil for
// non-spatial records such as addresses and buildings.
type FeatureRecord struct {
	ID          string            `json:"id"`
	FeatureType string            `json:"feature_type"`
	Geometry    *geojson.Geometry `json:"geometry,omitempty"`
	Properties  map[string]any    `json:"properties"`
}

// Normalize converts raw feature payloads into FeatureRecords. A payload is
// accepted only when it carries a non-empty string id, a non-empty string
// feature_type and an object properties member; anything else is dropped so
// the working set never holds partial records.
func Normalize(raw []map[string]any) []FeatureRecord {
	records := make([]FeatureRecord, 0, len(raw))
	for _, row := range raw {
		record, ok := normalizeOne(row)
		if !ok {
			continue
		}
		records = append(records, record)
	}
	return records
}

func normalizeOne(row map[string]any) (FeatureRecord, bool) {
	id, ok := row["id"].(string)
	if !ok || id == "" {
		return FeatureRecord{}, false
	}
	featureType, ok := row["feature_type"].(string)
	if !ok || featureType == "" {
		return FeatureRecord{}, false
	}
	properties, ok := row["properties"].(map[string]any)
	if !ok {
		return FeatureRecord{}, false
	}
	return FeatureRecord{
		ID:          id,
		FeatureType: featureType,
		Geometry:    decodeGeometry(row["geometry"]),
		Properties:  cloneProperties(properties),
	}, true
}

// decodeGeometry accepts a geometry object only when it names a string type;
// everything else yields a nil geometry.
func decodeGeometry(value any) *geojson.Geometry {
	payload, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	if _, ok := payload["type"].(string); !ok {
		return nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	var geometry geojson.Geometry
	if err := geometry.UnmarshalJSON(encoded); err != nil {
		return nil
	}
	return &geometry
}

// cloneProperties deep-copies a property bag via the JSON round trip the
// payload already survived.
func cloneProperties(properties map[string]any) map[string]any {
	if properties == nil {
		return map[string]any{}
	}
	encoded, err := json.Marshal(properties)
	if err != nil {
		return map[string]any{}
	}
	cloned := map[string]any{}
	if err := json.Unmarshal(encoded, &cloned); err != nil {
		return map[string]any{}
	}
	return cloned
}
