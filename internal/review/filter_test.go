package review

import (
	"reflect"
	"testing"
)

func sampleWorkingSet() []FeatureRecord {
	return []FeatureRecord{
		{ID: "unit-1", FeatureType: "unit", Properties: map[string]any{
			"level_id": "lvl-0", "category": "room", "status": "error",
			"name": map[string]any{"en": "Main Lobby", "de": "Eingangshalle"},
		}},
		{ID: "unit-2", FeatureType: "unit", Properties: map[string]any{
			"level_id": "lvl-1", "category": "room", "status": "clear",
			"name": "Storage",
		}},
		{ID: "open-1", FeatureType: "opening", Properties: map[string]any{
			"level_id": "lvl-0", "category": "pedestrian", "status": "warning",
		}},
		{ID: "fix-1", FeatureType: "fixture", Properties: map[string]any{
			"level_id": "lvl-1", "category": "furniture", "status": "clear",
		}},
	}
}

func TestVisibleEmptyFiltersReturnEverything(t *testing.T) {
	features := sampleWorkingSet()
	visible := Visible(features, Filters{})
	if len(visible) != len(features) {
		t.Fatalf("expected %d features, got %d", len(features), len(visible))
	}
	for i := range features {
		if visible[i].ID != features[i].ID {
			t.Errorf("order changed at %d: %s", i, visible[i].ID)
		}
	}
}

func TestVisibleCombinesFiltersWithAnd(t *testing.T) {
	features := sampleWorkingSet()

	visible := Visible(features, Filters{Type: "unit", Level: "lvl-0"})
	if len(visible) != 1 || visible[0].ID != "unit-1" {
		t.Fatalf("type+level: expected [unit-1], got %v", ids(visible))
	}

	visible = Visible(features, Filters{Type: "unit", Status: "clear", Category: "room"})
	if len(visible) != 1 || visible[0].ID != "unit-2" {
		t.Fatalf("type+status+category: expected [unit-2], got %v", ids(visible))
	}

	visible = Visible(features, Filters{Type: "opening", Status: "clear"})
	if len(visible) != 0 {
		t.Fatalf("contradictory filters: expected empty, got %v", ids(visible))
	}
}

func TestVisibleSearchCoversNamesAndProperties(t *testing.T) {
	features := sampleWorkingSet()

	visible := Visible(features, Filters{Search: "eingangshalle"})
	if len(visible) != 1 || visible[0].ID != "unit-1" {
		t.Fatalf("language-map name search: expected [unit-1], got %v", ids(visible))
	}

	visible = Visible(features, Filters{Search: "STOR"})
	if len(visible) != 1 || visible[0].ID != "unit-2" {
		t.Fatalf("case-insensitive name search: expected [unit-2], got %v", ids(visible))
	}

	visible = Visible(features, Filters{Search: "furniture"})
	if len(visible) != 1 || visible[0].ID != "fix-1" {
		t.Fatalf("property-bag search: expected [fix-1], got %v", ids(visible))
	}

	visible = Visible(features, Filters{Search: "open-1"})
	if len(visible) != 1 || visible[0].ID != "open-1" {
		t.Fatalf("id search: expected [open-1], got %v", ids(visible))
	}
}

func TestVisibleDoesNotMutateInput(t *testing.T) {
	features := sampleWorkingSet()
	before := ids(features)

	_ = Visible(features, Filters{Type: "fixture"})

	if !reflect.DeepEqual(before, ids(features)) {
		t.Fatalf("input slice mutated: %v", ids(features))
	}
}

func TestFiltersNumericLevelProperty(t *testing.T) {
	features := []FeatureRecord{
		{ID: "unit-1", FeatureType: "unit", Properties: map[string]any{"level_id": float64(2)}},
	}
	visible := Visible(features, Filters{Level: "2"})
	if len(visible) != 1 {
		t.Fatalf("numeric level should match its decimal form, got %v", ids(visible))
	}
}

func ids(features []FeatureRecord) []string {
	out := make([]string, 0, len(features))
	for _, record := range features {
		out = append(out, record.ID)
	}
	return out
}
