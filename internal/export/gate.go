// Package export is the validation/export gate: it orchestrates
// validate -> optional autofix -> export and refuses to export while
// blocking issues remain.
package export

import (
	"context"
	"errors"
	"fmt"
	"log"

	"shp2imdf/workbench/internal/review"
	"shp2imdf/workbench/internal/session"
	"shp2imdf/workbench/internal/upstream"
)

// ErrNotValidated is returned when export is requested before validate has
// run for the current feature set.
var ErrNotValidated = errors.New("validation has not been run")

// ErrBlocked is returned while the last validation reported errors.
var ErrBlocked = errors.New("export blocked until errors are resolved")

// Converter is the slice of the upstream client the gate uses.
type Converter interface {
	Validate(ctx context.Context, sessionID string) (upstream.ValidationResult, error)
	Autofix(ctx context.Context, sessionID string, applyDestructive bool) (upstream.AutofixResult, error)
	Export(ctx context.Context, sessionID string) (upstream.Archive, error)
	ListFeatures(ctx context.Context, sessionID string) (upstream.FeatureCollection, error)
}

type Gate struct {
	converter Converter
	archives  *ArchiveStore
}

// NewGate creates a gate. archives may be nil, in which case exported
// bundles only stream to the caller.
func NewGate(converter Converter, archives *ArchiveStore) *Gate {
	return &Gate{converter: converter, archives: archives}
}

// Validate runs the external validation service, reloads the feature cache
// (validation may rewrite derived properties such as status), replaces the
// validation slice and derives the status filter shortcut. Nothing in the
// state changes when either upstream call fails.
func (g *Gate) Validate(ctx context.Context, state *session.State) (upstream.ValidationResult, error) {
	result, err := g.converter.Validate(ctx, state.UpstreamID())
	if err != nil {
		return upstream.ValidationResult{}, err
	}
	collection, err := g.converter.ListFeatures(ctx, state.UpstreamID())
	if err != nil {
		return upstream.ValidationResult{}, err
	}

	state.SetFeatures(review.Normalize(collection.Features))
	state.SetValidation(&result)

	filters := state.Filters()
	switch {
	case result.Summary.ErrorCount > 0:
		filters.Status = "error"
	case result.Summary.WarningCount > 0:
		filters.Status = "warning"
	default:
		filters.Status = ""
	}
	state.SetFilters(filters)

	return result, nil
}

// Autofix applies server-side fixes. With applyDestructive false only the
// non-destructive class is applied and the result reports how many fixes
// still need explicit confirmation; confirming means calling again with
// applyDestructive true. Every call ends by adopting the server's fresh
// revalidation and reloading features.
func (g *Gate) Autofix(ctx context.Context, state *session.State, applyDestructive bool) (upstream.AutofixResult, error) {
	result, err := g.converter.Autofix(ctx, state.UpstreamID(), applyDestructive)
	if err != nil {
		return upstream.AutofixResult{}, err
	}
	collection, err := g.converter.ListFeatures(ctx, state.UpstreamID())
	if err != nil {
		return upstream.AutofixResult{}, err
	}

	state.SetFeatures(review.Normalize(collection.Features))
	state.SetValidation(&result.Revalidation)
	return result, nil
}

// RequestExport decides whether the export confirmation step may open.
func (g *Gate) RequestExport(state *session.State) error {
	switch state.ExportStage() {
	case session.StageUnvalidated:
		return ErrNotValidated
	case session.StageExportBlocked:
		summary := upstream.ValidationSummary{}
		if validation := state.Validation(); validation != nil {
			summary = validation.Summary
		}
		return fmt.Errorf("%w: %d errors outstanding", ErrBlocked, summary.ErrorCount)
	default:
		return nil
	}
}

// ConfirmExport fetches the archive after the confirmation step. The gate is
// re-checked so a stale dialog cannot export around outstanding errors.
func (g *Gate) ConfirmExport(ctx context.Context, state *session.State) (upstream.Archive, error) {
	if err := g.RequestExport(state); err != nil {
		return upstream.Archive{}, err
	}
	archive, err := g.converter.Export(ctx, state.UpstreamID())
	if err != nil {
		return upstream.Archive{}, err
	}
	state.MarkExported()

	if g.archives != nil {
		if location, err := g.archives.Put(ctx, state.ID(), archive.Filename, archive.Data); err != nil {
			log.Printf("export: archive upload failed for session %s: %v", state.ID(), err)
		} else {
			log.Printf("export: archived %s", location)
		}
	}
	return archive, nil
}
