package review

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Filters narrows the visible subset of the working set. Every field is
// optional; a blank field places no constraint.
type Filters struct {
	Type     string `json:"type,omitempty"`
	Level    string `json:"level,omitempty"`
	Category string `json:"category,omitempty"`
	Status   string `json:"status,omitempty"`
	Search   string `json:"search,omitempty"`
}

// IsZero reports whether no filter field is populated.
func (f Filters) IsZero() bool {
	return f == Filters{}
}

// Matches evaluates all populated filter fields with logical AND. An empty
// search matches vacuously.
func (f Filters) Matches(record FeatureRecord) bool {
	if f.Type != "" && record.FeatureType != f.Type {
		return false
	}
	if f.Level != "" && propertyString(record.Properties, "level_id") != f.Level {
		return false
	}
	if f.Category != "" && propertyString(record.Properties, "category") != f.Category {
		return false
	}
	if f.Status != "" && propertyString(record.Properties, "status") != f.Status {
		return false
	}
	if f.Search != "" && !f.matchesSearch(record) {
		return false
	}
	return true
}

func (f Filters) matchesSearch(record FeatureRecord) bool {
	needle := strings.ToLower(f.Search)
	if strings.Contains(strings.ToLower(record.ID), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(record.FeatureType), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(displayName(record.Properties)), needle) {
		return true
	}
	encoded, err := json.Marshal(record.Properties)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(encoded)), needle)
}

// Visible projects the filtered subset of features. The input slice is never
// mutated and order is preserved.
func Visible(features []FeatureRecord, filters Filters) []FeatureRecord {
	visible := make([]FeatureRecord, 0, len(features))
	for _, record := range features {
		if filters.Matches(record) {
			visible = append(visible, record)
		}
	}
	return visible
}

// displayName extracts a searchable name from a property bag. Names are
// either plain strings or language-keyed label maps.
func displayName(properties map[string]any) string {
	switch value := properties["name"].(type) {
	case string:
		return value
	case map[string]any:
		parts := make([]string, 0, len(value))
		for _, label := range value {
			if text, ok := label.(string); ok {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func propertyString(properties map[string]any, key string) string {
	switch value := properties[key].(type) {
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%v", value)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", value)
	}
}
