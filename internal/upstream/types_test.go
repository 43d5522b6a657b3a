package upstream

import "testing"

func TestPartitionIssuesGroupsByFeature(t *testing.T) {
	result := ValidationResult{
		Errors: []ValidationIssue{
			{FeatureID: "unit-1", Check: "UNIT_OVERLAP", Severity: "error"},
			{Check: "VENUE_MISSING_ADDRESS", Severity: "error"},
			{FeatureID: "unit-2", Check: "INVALID_CATEGORY", Severity: "error"},
		},
		Warnings: []ValidationIssue{
			{FeatureID: "unit-1", Check: "UNNAMED_UNIT", Severity: "warning"},
			{Check: "NO_FOOTPRINT", Severity: "warning"},
		},
	}

	partition := result.PartitionIssues()

	if len(partition.ByFeature) != 2 {
		t.Fatalf("expected 2 feature buckets, got %d", len(partition.ByFeature))
	}
	unit1 := partition.ByFeature["unit-1"]
	if len(unit1) != 2 {
		t.Fatalf("unit-1 should collect its error and warning, got %d", len(unit1))
	}
	if unit1[0].Severity != "error" || unit1[1].Severity != "warning" {
		t.Errorf("errors should lead the bucket: %+v", unit1)
	}
	if len(partition.ByFeature["unit-2"]) != 1 {
		t.Errorf("unit-2 bucket wrong: %+v", partition.ByFeature["unit-2"])
	}
	if len(partition.General) != 2 {
		t.Fatalf("issues without a feature id should land in General, got %d", len(partition.General))
	}
	if partition.General[0].Check != "VENUE_MISSING_ADDRESS" || partition.General[1].Check != "NO_FOOTPRINT" {
		t.Errorf("unexpected general issues: %+v", partition.General)
	}
}

func TestPartitionIssuesEmptyResult(t *testing.T) {
	partition := ValidationResult{}.PartitionIssues()
	if partition.ByFeature != nil || partition.General != nil {
		t.Errorf("clean validation should partition to nothing: %+v", partition)
	}
}
