package wizard

import (
	"testing"

	"shp2imdf/workbench/internal/upstream"
)

func intPtr(v int) *int { return &v }

func classifiedSnapshot() Snapshot {
	return Snapshot{
		Files: []upstream.ImportedFile{
			{Stem: "rooms_eg", DetectedType: "unit", DetectedLevel: intPtr(0)},
			{Stem: "doors_eg", DetectedType: "opening", DetectedLevel: intPtr(0)},
			{Stem: "site", DetectedType: "venue"},
		},
		Wizard: upstream.WizardState{
			Buildings: []upstream.Building{
				{ID: "b1", FileStems: []string{"rooms_eg", "doors_eg"}},
			},
			Mappings: upstream.Mappings{
				Unit: upstream.UnitMapping{CodeColumn: "RAUMNR"},
			},
		},
	}
}

func TestNextRefusesWhileFilesUnclassified(t *testing.T) {
	snap := classifiedSnapshot()
	snap.Files[1].DetectedType = ""

	landed, refusal := Next(StepFiles, snap)
	if refusal == nil {
		t.Fatalf("expected a refusal while a file is unclassified")
	}
	if landed != StepFiles {
		t.Errorf("refused move should stay in place, landed on %v", landed)
	}
	if refusal.Step != StepFiles || refusal.Reason == "" {
		t.Errorf("refusal should name the failing step and reason: %+v", refusal)
	}

	snap.Files[1].DetectedType = "opening"
	landed, refusal = Next(StepFiles, snap)
	if refusal != nil {
		t.Fatalf("classified files should pass: %+v", refusal)
	}
	if landed != StepLevels {
		t.Errorf("expected StepLevels, got %v", landed)
	}
}

func TestNextAtLastStepStaysPut(t *testing.T) {
	landed, refusal := Next(StepSummary, classifiedSnapshot())
	if refusal != nil || landed != StepSummary {
		t.Fatalf("expected to stay on summary, got %v / %+v", landed, refusal)
	}
}

func TestBackIsAlwaysAllowed(t *testing.T) {
	snap := Snapshot{Files: []upstream.ImportedFile{{Stem: "rooms_eg"}}}
	if ok, _ := Check(StepFiles, snap); ok {
		t.Fatalf("precondition: files step should be incomplete")
	}
	if got := Back(StepLevels); got != StepFiles {
		t.Errorf("back from levels: got %v", got)
	}
	if got := Back(StepFiles); got != StepFiles {
		t.Errorf("back at the first step should clamp, got %v", got)
	}
}

func TestJumpRedirectsToFirstIncompleteStep(t *testing.T) {
	snap := classifiedSnapshot()
	snap.Files[0].DetectedLevel = nil

	landed, refusal := Jump(StepSummary, snap)
	if refusal == nil {
		t.Fatalf("expected a refusal for the incomplete levels step")
	}
	if landed != StepLevels || refusal.Step != StepLevels {
		t.Errorf("jump should redirect to levels, landed on %v (%+v)", landed, refusal)
	}
}

func TestJumpSucceedsWhenAllPriorStepsComplete(t *testing.T) {
	landed, refusal := Jump(StepSummary, classifiedSnapshot())
	if refusal != nil {
		t.Fatalf("unexpected refusal: %+v", refusal)
	}
	if landed != StepSummary {
		t.Errorf("expected summary, got %v", landed)
	}
}

func TestBuildingsPredicateRequiresStemCoverage(t *testing.T) {
	snap := classifiedSnapshot()

	snap.Wizard.Buildings = nil
	if ok, reason := Check(StepBuildings, snap); ok || reason == "" {
		t.Errorf("no buildings with level files present should fail")
	}

	snap.Wizard.Buildings = []upstream.Building{{ID: "b1", FileStems: []string{"rooms_eg"}}}
	if ok, _ := Check(StepBuildings, snap); ok {
		t.Errorf("uncovered level stem should fail")
	}

	snap.Files = []upstream.ImportedFile{{Stem: "site", DetectedType: "venue"}}
	snap.Wizard.Buildings = nil
	if ok, _ := Check(StepBuildings, snap); !ok {
		t.Errorf("no level files: buildings step should pass vacuously")
	}
}

func TestOptionalStepsPassWithDefaults(t *testing.T) {
	snap := classifiedSnapshot()
	for _, step := range []Step{StepProject, StepOpenings, StepFixtures, StepFootprint, StepSummary} {
		if ok, reason := Check(step, snap); !ok {
			t.Errorf("step %v should pass with defaults: %s", step, reason)
		}
	}
}

func TestUnitsAndDetailsPredicatesAreConditional(t *testing.T) {
	snap := classifiedSnapshot()

	snap.Wizard.Mappings.Unit.CodeColumn = ""
	if ok, _ := Check(StepUnits, snap); ok {
		t.Errorf("unit files without a code column should fail")
	}

	snap.Files = []upstream.ImportedFile{{Stem: "doors_eg", DetectedType: "opening", DetectedLevel: intPtr(0)}}
	if ok, _ := Check(StepUnits, snap); !ok {
		t.Errorf("no unit files: units step should pass without a code column")
	}

	snap.Files = append(snap.Files, upstream.ImportedFile{Stem: "carpet", DetectedType: "detail", DetectedLevel: intPtr(0)})
	if ok, _ := Check(StepDetails, snap); ok {
		t.Errorf("detail files require confirmation")
	}
	snap.Wizard.Mappings.DetailConfirmed = true
	if ok, _ := Check(StepDetails, snap); !ok {
		t.Errorf("confirmed detail mapping should pass")
	}
}

func TestLevelItemsDerivation(t *testing.T) {
	files := []upstream.ImportedFile{
		{Stem: "rooms_eg", DetectedType: "unit", DetectedLevel: intPtr(0)},
		{Stem: "rooms_og1", DetectedType: "unit", DetectedLevel: intPtr(1), ShortName: "1OG"},
		{Stem: "rooms_ug", DetectedType: "unit", DetectedLevel: intPtr(-1)},
		{Stem: "site", DetectedType: "venue"},
	}

	items := LevelItems(files)
	if len(items) != 3 {
		t.Fatalf("expected 3 level rows, got %d", len(items))
	}
	if items[0].ShortName != "GF" {
		t.Errorf("ordinal 0 fallback: got %q", items[0].ShortName)
	}
	if items[1].ShortName != "1OG" {
		t.Errorf("explicit short name should win: got %q", items[1].ShortName)
	}
	if items[2].ShortName != "B1" {
		t.Errorf("basement fallback: got %q", items[2].ShortName)
	}
}
