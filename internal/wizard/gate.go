// Package wizard implements the configuration wizard's step gate: a fixed,
// totally ordered step sequence where forward movement requires the current
// step's completeness predicate to hold.
package wizard

import (
	"fmt"

	"shp2imdf/workbench/internal/upstream"
)

// Step is one stage of the wizard sequence.
type Step int

const (
	StepFiles Step = iota + 1
	StepLevels
	StepBuildings
	StepProject
	StepUnits
	StepOpenings
	StepFixtures
	StepDetails
	StepFootprint
	StepSummary
)

const (
	FirstStep = StepFiles
	LastStep  = StepSummary
)

func (s Step) String() string {
	switch s {
	case StepFiles:
		return "files"
	case StepLevels:
		return "levels"
	case StepBuildings:
		return "buildings"
	case StepProject:
		return "project"
	case StepUnits:
		return "units"
	case StepOpenings:
		return "openings"
	case StepFixtures:
		return "fixtures"
	case StepDetails:
		return "details"
	case StepFootprint:
		return "footprint"
	case StepSummary:
		return "summary"
	}
	return fmt.Sprintf("step-%d", int(s))
}

// Valid reports whether s is inside the wizard sequence.
func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

// Snapshot is the session state a predicate reads. Predicates are pure over
// this value and are re-evaluated on every navigation attempt.
type Snapshot struct {
	Files  []upstream.ImportedFile
	Wizard upstream.WizardState
}

// levelFileTypes are the classifications whose files must carry a level
// assignment and be covered by a building.
var levelFileTypes = map[string]struct{}{
	"unit":    {},
	"opening": {},
	"fixture": {},
	"detail":  {},
}

func isLevelFile(file upstream.ImportedFile) bool {
	_, ok := levelFileTypes[file.DetectedType]
	return ok
}

// Check evaluates the completeness predicate for one step. The reason is
// empty exactly when the predicate holds.
func Check(step Step, snap Snapshot) (bool, string) {
	switch step {
	case StepFiles:
		for _, file := range snap.Files {
			if file.DetectedType == "" {
				return false, fmt.Sprintf("file %q has no feature type assigned", file.Stem)
			}
		}
		return true, ""

	case StepLevels:
		for _, file := range snap.Files {
			if isLevelFile(file) && file.DetectedLevel == nil {
				return false, fmt.Sprintf("file %q has no level assigned", file.Stem)
			}
		}
		return true, ""

	case StepBuildings:
		var levelStems []string
		for _, file := range snap.Files {
			if isLevelFile(file) {
				levelStems = append(levelStems, file.Stem)
			}
		}
		if len(levelStems) == 0 {
			return true, ""
		}
		if len(snap.Wizard.Buildings) == 0 {
			return false, "at least one building is required"
		}
		covered := map[string]struct{}{}
		for _, building := range snap.Wizard.Buildings {
			for _, stem := range building.FileStems {
				covered[stem] = struct{}{}
			}
		}
		for _, stem := range levelStems {
			if _, ok := covered[stem]; !ok {
				return false, fmt.Sprintf("file %q is not assigned to a building", stem)
			}
		}
		return true, ""

	case StepUnits:
		for _, file := range snap.Files {
			if file.DetectedType == "unit" && snap.Wizard.Mappings.Unit.CodeColumn == "" {
				return false, "unit files need a code mapping column"
			}
		}
		return true, ""

	case StepDetails:
		for _, file := range snap.Files {
			if file.DetectedType == "detail" && !snap.Wizard.Mappings.DetailConfirmed {
				return false, "detail mapping has not been confirmed"
			}
		}
		return true, ""

	case StepProject, StepOpenings, StepFixtures, StepFootprint, StepSummary:
		// No required fields at these steps.
		return true, ""
	}
	return false, fmt.Sprintf("unknown step %d", int(step))
}

// Refusal explains a navigation that was not taken: the step whose predicate
// failed and its reason.
type Refusal struct {
	Step   Step
	Reason string
}

// Next gates a forward move from current. It returns the step to land on and
// a nil refusal, or keeps the caller in place with the failing predicate's
// reason.
func Next(current Step, snap Snapshot) (Step, *Refusal) {
	if current >= LastStep {
		return current, nil
	}
	if ok, reason := Check(current, snap); !ok {
		return current, &Refusal{Step: current, Reason: reason}
	}
	return current + 1, nil
}

// Back is always permitted.
func Back(current Step) Step {
	if current <= FirstStep {
		return FirstStep
	}
	return current - 1
}

// Jump scans steps 1..target-1 in order and redirects to the first step whose
// predicate fails. Only when every preceding predicate holds does the jump
// reach target.
func Jump(target Step, snap Snapshot) (Step, *Refusal) {
	for step := FirstStep; step < target; step++ {
		if ok, reason := Check(step, snap); !ok {
			return step, &Refusal{Step: step, Reason: reason}
		}
	}
	return target, nil
}

// LevelItems derives the level metadata rows that are synchronized into the
// wizard state when the level-mapping step is left.
func LevelItems(files []upstream.ImportedFile) []upstream.LevelItem {
	var items []upstream.LevelItem
	for _, file := range files {
		if !isLevelFile(file) {
			continue
		}
		items = append(items, upstream.LevelItem{
			Stem:         file.Stem,
			DetectedType: file.DetectedType,
			Ordinal:      file.DetectedLevel,
			Name:         file.LevelName,
			ShortName:    shortName(file),
			Outdoor:      file.Outdoor,
			Category:     file.LevelCategory,
		})
	}
	return items
}

// shortName falls back to the conventional GF/nF/Bn label when the user has
// not provided one.
func shortName(file upstream.ImportedFile) string {
	if file.ShortName != "" {
		return file.ShortName
	}
	if file.DetectedLevel == nil {
		return ""
	}
	ordinal := *file.DetectedLevel
	switch {
	case ordinal == 0:
		return "GF"
	case ordinal > 0:
		return fmt.Sprintf("%dF", ordinal)
	default:
		return fmt.Sprintf("B%d", -ordinal)
	}
}
