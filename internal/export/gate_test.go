package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"shp2imdf/workbench/internal/session"
	"shp2imdf/workbench/internal/upstream"
)

type fakeConverter struct {
	ValidateFn     func(ctx context.Context, sessionID string) (upstream.ValidationResult, error)
	AutofixFn      func(ctx context.Context, sessionID string, applyDestructive bool) (upstream.AutofixResult, error)
	ExportFn       func(ctx context.Context, sessionID string) (upstream.Archive, error)
	ListFeaturesFn func(ctx context.Context, sessionID string) (upstream.FeatureCollection, error)

	exportCalls int
}

func (f *fakeConverter) Validate(ctx context.Context, sessionID string) (upstream.ValidationResult, error) {
	return f.ValidateFn(ctx, sessionID)
}

func (f *fakeConverter) Autofix(ctx context.Context, sessionID string, applyDestructive bool) (upstream.AutofixResult, error) {
	return f.AutofixFn(ctx, sessionID, applyDestructive)
}

func (f *fakeConverter) Export(ctx context.Context, sessionID string) (upstream.Archive, error) {
	f.exportCalls++
	return f.ExportFn(ctx, sessionID)
}

func (f *fakeConverter) ListFeatures(ctx context.Context, sessionID string) (upstream.FeatureCollection, error) {
	return f.ListFeaturesFn(ctx, sessionID)
}

func newGateState() *session.State {
	return session.NewState("ws-1", "conv-1", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
}

func featurePayload(id string) map[string]any {
	return map[string]any{
		"id": id, "feature_type": "unit",
		"properties": map[string]any{"status": "error"},
	}
}

func TestValidateWithErrorsBlocksAndFiltersToErrors(t *testing.T) {
	state := newGateState()
	converter := &fakeConverter{
		ValidateFn: func(ctx context.Context, sessionID string) (upstream.ValidationResult, error) {
			return upstream.ValidationResult{
				Errors:  []upstream.ValidationIssue{{FeatureID: "unit-1", Check: "UNIT_OVERLAP", Severity: "error"}},
				Summary: upstream.ValidationSummary{TotalFeatures: 1, ErrorCount: 1},
			}, nil
		},
		ListFeaturesFn: func(ctx context.Context, sessionID string) (upstream.FeatureCollection, error) {
			return upstream.FeatureCollection{Features: []map[string]any{featurePayload("unit-1")}}, nil
		},
		ExportFn: func(ctx context.Context, sessionID string) (upstream.Archive, error) {
			return upstream.Archive{Filename: "out.zip", Data: []byte("zip")}, nil
		},
	}
	gate := NewGate(converter, nil)

	result, err := gate.Validate(context.Background(), state)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Summary.ErrorCount != 1 {
		t.Errorf("unexpected summary: %+v", result.Summary)
	}
	if state.ExportStage() != session.StageExportBlocked {
		t.Errorf("expected blocked stage, got %s", state.ExportStage())
	}
	if state.Filters().Status != "error" {
		t.Errorf("expected error status filter shortcut, got %q", state.Filters().Status)
	}
	if len(state.Features()) != 1 {
		t.Errorf("features not reloaded: %d", len(state.Features()))
	}

	err = gate.RequestExport(state)
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
	if _, err := gate.ConfirmExport(context.Background(), state); !errors.Is(err, ErrBlocked) {
		t.Fatalf("confirm must re-check the gate, got %v", err)
	}
	if converter.exportCalls != 0 {
		t.Errorf("export must not be called while blocked")
	}
}

func TestRequestExportBeforeValidation(t *testing.T) {
	gate := NewGate(&fakeConverter{}, nil)
	if err := gate.RequestExport(newGateState()); !errors.Is(err, ErrNotValidated) {
		t.Fatalf("expected ErrNotValidated, got %v", err)
	}
}

func TestValidateLeavesStateUntouchedOnUpstreamFailure(t *testing.T) {
	state := newGateState()
	converter := &fakeConverter{
		ValidateFn: func(ctx context.Context, sessionID string) (upstream.ValidationResult, error) {
			return upstream.ValidationResult{Summary: upstream.ValidationSummary{}}, nil
		},
		ListFeaturesFn: func(ctx context.Context, sessionID string) (upstream.FeatureCollection, error) {
			return upstream.FeatureCollection{}, errors.New("connection refused")
		},
	}
	gate := NewGate(converter, nil)

	if _, err := gate.Validate(context.Background(), state); err == nil {
		t.Fatalf("expected the reload failure to propagate")
	}
	if state.ExportStage() != session.StageUnvalidated || state.Validation() != nil {
		t.Errorf("failed validation must not touch the state")
	}
}

func TestAutofixAdoptsRevalidationAndOpensGate(t *testing.T) {
	state := newGateState()
	state.SetValidation(&upstream.ValidationResult{
		Summary: upstream.ValidationSummary{ErrorCount: 3, AutoFixableCount: 3},
	})

	converter := &fakeConverter{
		AutofixFn: func(ctx context.Context, sessionID string, applyDestructive bool) (upstream.AutofixResult, error) {
			if applyDestructive {
				t.Fatalf("destructive fixes must stay opt-in")
			}
			return upstream.AutofixResult{
				TotalFixed:   3,
				Revalidation: upstream.ValidationResult{Summary: upstream.ValidationSummary{WarningCount: 1}},
			}, nil
		},
		ListFeaturesFn: func(ctx context.Context, sessionID string) (upstream.FeatureCollection, error) {
			return upstream.FeatureCollection{Features: []map[string]any{featurePayload("unit-1")}}, nil
		},
		ExportFn: func(ctx context.Context, sessionID string) (upstream.Archive, error) {
			return upstream.Archive{Filename: "venue.zip", Data: []byte("zip")}, nil
		},
	}
	gate := NewGate(converter, nil)

	result, err := gate.Autofix(context.Background(), state, false)
	if err != nil {
		t.Fatalf("autofix: %v", err)
	}
	if result.TotalFixed != 3 {
		t.Errorf("unexpected result: %+v", result)
	}
	if state.ExportStage() != session.StageExportReady {
		t.Fatalf("revalidation without errors should open the gate, got %s", state.ExportStage())
	}

	if err := gate.RequestExport(state); err != nil {
		t.Fatalf("request export: %v", err)
	}
	archive, err := gate.ConfirmExport(context.Background(), state)
	if err != nil {
		t.Fatalf("confirm export: %v", err)
	}
	if archive.Filename != "venue.zip" || len(archive.Data) == 0 {
		t.Errorf("unexpected archive: %+v", archive)
	}
	if state.ExportStage() != session.StageExported {
		t.Errorf("session should be marked exported, got %s", state.ExportStage())
	}
}

func TestConfirmExportPropagatesUpstreamFailure(t *testing.T) {
	state := newGateState()
	state.SetValidation(&upstream.ValidationResult{Summary: upstream.ValidationSummary{}})

	converter := &fakeConverter{
		ExportFn: func(ctx context.Context, sessionID string) (upstream.Archive, error) {
			return upstream.Archive{}, errors.New("archive build failed")
		},
	}
	gate := NewGate(converter, nil)

	if _, err := gate.ConfirmExport(context.Background(), state); err == nil {
		t.Fatalf("expected the export failure to propagate")
	}
	if state.ExportStage() != session.StageExportReady {
		t.Errorf("failed export must not mark the session exported, got %s", state.ExportStage())
	}
}
