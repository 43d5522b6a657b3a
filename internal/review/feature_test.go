package review

import "testing"

func TestNormalizeDropsPartialRecords(t *testing.T) {
	raw := []map[string]any{
		{"id": "unit-1", "feature_type": "unit", "properties": map[string]any{"category": "room"}},
		{"feature_type": "unit", "properties": map[string]any{}},
		{"id": "", "feature_type": "unit", "properties": map[string]any{}},
		{"id": "unit-2", "properties": map[string]any{}},
		{"id": "unit-3", "feature_type": "", "properties": map[string]any{}},
		{"id": "unit-4", "feature_type": "unit", "properties": "not-an-object"},
		{"id": "unit-5", "feature_type": "unit"},
		{"id": "unit-6", "feature_type": "opening", "properties": map[string]any{}},
	}

	records := Normalize(raw)
	if len(records) != 2 {
		t.Fatalf("expected 2 surviving records, got %d", len(records))
	}
	if records[0].ID != "unit-1" || records[1].ID != "unit-6" {
		t.Errorf("unexpected survivors: %q, %q", records[0].ID, records[1].ID)
	}
}

func TestNormalizeGeometryRequiresStringType(t *testing.T) {
	raw := []map[string]any{
		{
			"id": "unit-1", "feature_type": "unit",
			"properties": map[string]any{},
			"geometry": map[string]any{
				"type":        "Point",
				"coordinates": []any{1.0, 2.0},
			},
		},
		{
			"id": "unit-2", "feature_type": "unit",
			"properties": map[string]any{},
			"geometry":   map[string]any{"type": 7, "coordinates": []any{1.0, 2.0}},
		},
		{
			"id": "unit-3", "feature_type": "unit",
			"properties": map[string]any{},
			"geometry":   "POINT(1 2)",
		},
		{
			"id": "unit-4", "feature_type": "unit",
			"properties": map[string]any{},
		},
	}

	records := Normalize(raw)
	if len(records) != 4 {
		t.Fatalf("expected all 4 records, got %d", len(records))
	}
	if records[0].Geometry == nil {
		t.Errorf("valid geometry should be decoded")
	}
	for _, record := range records[1:] {
		if record.Geometry != nil {
			t.Errorf("record %s: malformed geometry should decode to nil", record.ID)
		}
	}
}

func TestNormalizeClonesProperties(t *testing.T) {
	source := map[string]any{"category": "room", "name": map[string]any{"en": "Lobby"}}
	raw := []map[string]any{
		{"id": "unit-1", "feature_type": "unit", "properties": source},
	}

	records := Normalize(raw)
	source["category"] = "walkway"
	source["name"].(map[string]any)["en"] = "Corridor"

	if got := records[0].Properties["category"]; got != "room" {
		t.Errorf("top-level property shared with input: got %v", got)
	}
	name := records[0].Properties["name"].(map[string]any)
	if name["en"] != "Lobby" {
		t.Errorf("nested property shared with input: got %v", name["en"])
	}
}
