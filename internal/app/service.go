// Package app wires the workflow engine together: the Service owns the
// session-scoped editing workflow (wizard gate, review working set,
// validation/export gate) and the HTTPServer exposes it to the UI.
package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"shp2imdf/workbench/internal/config"
	"shp2imdf/workbench/internal/export"
	"shp2imdf/workbench/internal/review"
	"shp2imdf/workbench/internal/session"
	"shp2imdf/workbench/internal/upstream"
	"shp2imdf/workbench/internal/wizard"
)

// converterClient is the full converter-service surface the engine consumes.
type converterClient interface {
	CreateSession(ctx context.Context, contentType string, body io.Reader) (upstream.ImportResult, error)
	ListFiles(ctx context.Context, sessionID string) ([]upstream.ImportedFile, error)
	DetectAll(ctx context.Context, sessionID string) ([]upstream.ImportedFile, error)
	PatchFile(ctx context.Context, sessionID, stem string, patch upstream.FilePatch) (upstream.FilePatchResult, error)
	GetWizard(ctx context.Context, sessionID string) (upstream.WizardState, error)
	PatchProject(ctx context.Context, sessionID string, project upstream.Project) (upstream.WizardState, error)
	PatchLevels(ctx context.Context, sessionID string, items []upstream.LevelItem) (upstream.WizardState, error)
	PatchBuildings(ctx context.Context, sessionID string, buildings []upstream.Building) (upstream.WizardState, error)
	PatchMappings(ctx context.Context, sessionID string, unit *upstream.UnitMapping, opening *upstream.OpeningMapping, fixture *upstream.FixtureMapping, detailConfirmed *bool) (upstream.WizardState, error)
	PatchFootprint(ctx context.Context, sessionID string, footprint json.RawMessage) (upstream.WizardState, error)
	UploadCompanyMappings(ctx context.Context, sessionID, filename string, document []byte) (upstream.CompanyMappingsResult, error)
	SearchAddress(ctx context.Context, query, language string) ([]upstream.GeocodeMatch, error)
	ListFeatures(ctx context.Context, sessionID string) (upstream.FeatureCollection, error)
	GenerateDraft(ctx context.Context, sessionID string) (upstream.GenerateResult, error)
	PatchFeature(ctx context.Context, sessionID, featureID string, properties map[string]any) (map[string]any, error)
	DeleteFeature(ctx context.Context, sessionID, featureID string) error
	Bulk(ctx context.Context, sessionID string, request upstream.BulkRequest) error
	Validate(ctx context.Context, sessionID string) (upstream.ValidationResult, error)
	Autofix(ctx context.Context, sessionID string, applyDestructive bool) (upstream.AutofixResult, error)
	Export(ctx context.Context, sessionID string) (upstream.Archive, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

type Service struct {
	cfg       config.Config
	sessions  *session.Manager
	converter converterClient
	gate      *export.Gate
}

func New(cfg config.Config, sessions *session.Manager, converter converterClient, archives *export.ArchiveStore) *Service {
	return &Service{
		cfg:       cfg,
		sessions:  sessions,
		converter: converter,
		gate:      export.NewGate(converter, archives),
	}
}

// Import uploads source files, creates the converter session and allocates
// the workbench session around it.
func (s *Service) Import(ctx context.Context, contentType string, body io.Reader) (*session.State, error) {
	result, err := s.converter.CreateSession(ctx, contentType, body)
	if err != nil {
		return nil, err
	}
	return s.sessions.Create(ctx, result)
}

// Session resolves a workbench session id or reports the session-invalid
// condition.
func (s *Service) Session(ctx context.Context, id string) (*session.State, error) {
	state, found, err := s.sessions.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, sessionNotFound()
	}
	return state, nil
}

// fail converts an upstream failure. A session the converter evicted clears
// all local state for that session before surfacing the condition.
func (s *Service) fail(ctx context.Context, state *session.State, err error) error {
	if upstream.IsSessionGone(err) {
		_ = s.sessions.Remove(ctx, state.ID())
		return sessionNotFound()
	}
	return err
}

// EndSession tears down both the converter session and the local state.
func (s *Service) EndSession(ctx context.Context, id string) error {
	state, found, err := s.sessions.Get(ctx, id, false)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if err := s.converter.DeleteSession(ctx, state.UpstreamID()); err != nil && !upstream.IsSessionGone(err) {
		return err
	}
	return s.sessions.Remove(ctx, id)
}

// DetectAll re-runs classification over every imported file.
func (s *Service) DetectAll(ctx context.Context, id string) ([]upstream.ImportedFile, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	files, err := s.converter.DetectAll(ctx, state.UpstreamID())
	if err != nil {
		return nil, s.fail(ctx, state, err)
	}
	state.SetFiles(files)
	if err := s.sessions.Save(ctx, state); err != nil {
		return nil, err
	}
	return files, nil
}

// PatchFile applies a manual classification correction. The converter may
// answer with a learning suggestion, which is parked on the session until
// the user accepts or dismisses it.
func (s *Service) PatchFile(ctx context.Context, id, stem string, patch upstream.FilePatch) (upstream.FilePatchResult, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return upstream.FilePatchResult{}, err
	}
	result, err := s.converter.PatchFile(ctx, state.UpstreamID(), stem, patch)
	if err != nil {
		return upstream.FilePatchResult{}, s.fail(ctx, state, err)
	}
	state.SetFiles(result.Files)
	state.SetLearningSuggestion(result.LearningSuggestion)
	if err := s.sessions.Save(ctx, state); err != nil {
		return upstream.FilePatchResult{}, err
	}
	return result, nil
}

// AcceptLearning applies the pending suggestion as a learned keyword and
// re-runs detection with it.
func (s *Service) AcceptLearning(ctx context.Context, id string) ([]upstream.ImportedFile, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	suggestion := state.LearningSuggestion()
	if suggestion == nil {
		return nil, domainError(http.StatusConflict, "NO_SUGGESTION", "No learning suggestion is pending", nil)
	}
	featureType := suggestion.FeatureType
	result, err := s.converter.PatchFile(ctx, state.UpstreamID(), suggestion.SourceStem, upstream.FilePatch{
		DetectedType:    &featureType,
		ApplyLearning:   true,
		LearningKeyword: suggestion.Keyword,
	})
	if err != nil {
		return nil, s.fail(ctx, state, err)
	}
	state.SetFiles(result.Files)
	state.SetLearningSuggestion(nil)
	if err := s.sessions.Save(ctx, state); err != nil {
		return nil, err
	}
	return result.Files, nil
}

// DismissLearning drops the pending suggestion without applying it.
func (s *Service) DismissLearning(ctx context.Context, id string) error {
	state, err := s.Session(ctx, id)
	if err != nil {
		return err
	}
	state.SetLearningSuggestion(nil)
	return nil
}

// Wizard refreshes the wizard slice from the converter.
func (s *Service) Wizard(ctx context.Context, id string) (upstream.WizardState, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return upstream.WizardState{}, err
	}
	wizardState, err := s.converter.GetWizard(ctx, state.UpstreamID())
	if err != nil {
		return upstream.WizardState{}, s.fail(ctx, state, err)
	}
	state.SetWizard(wizardState)
	if err := s.sessions.Save(ctx, state); err != nil {
		return upstream.WizardState{}, err
	}
	return wizardState, nil
}

func (s *Service) PatchProject(ctx context.Context, id string, project upstream.Project) (upstream.WizardState, error) {
	return s.patchWizard(ctx, id, func(ctx context.Context, upstreamID string) (upstream.WizardState, error) {
		return s.converter.PatchProject(ctx, upstreamID, project)
	})
}

func (s *Service) PatchLevels(ctx context.Context, id string, items []upstream.LevelItem) (upstream.WizardState, error) {
	wizardState, err := s.patchWizard(ctx, id, func(ctx context.Context, upstreamID string) (upstream.WizardState, error) {
		return s.converter.PatchLevels(ctx, upstreamID, items)
	})
	if err != nil {
		return upstream.WizardState{}, err
	}
	// Level edits also update per-file metadata on the converter side.
	if state, sessionErr := s.Session(ctx, id); sessionErr == nil {
		if files, filesErr := s.converter.ListFiles(ctx, state.UpstreamID()); filesErr == nil {
			state.SetFiles(files)
			_ = s.sessions.Save(ctx, state)
		}
	}
	return wizardState, nil
}

func (s *Service) PatchBuildings(ctx context.Context, id string, buildings []upstream.Building) (upstream.WizardState, error) {
	return s.patchWizard(ctx, id, func(ctx context.Context, upstreamID string) (upstream.WizardState, error) {
		return s.converter.PatchBuildings(ctx, upstreamID, buildings)
	})
}

func (s *Service) PatchMappings(ctx context.Context, id string, unit *upstream.UnitMapping, opening *upstream.OpeningMapping, fixture *upstream.FixtureMapping, detailConfirmed *bool) (upstream.WizardState, error) {
	return s.patchWizard(ctx, id, func(ctx context.Context, upstreamID string) (upstream.WizardState, error) {
		return s.converter.PatchMappings(ctx, upstreamID, unit, opening, fixture, detailConfirmed)
	})
}

func (s *Service) PatchFootprint(ctx context.Context, id string, footprint json.RawMessage) (upstream.WizardState, error) {
	return s.patchWizard(ctx, id, func(ctx context.Context, upstreamID string) (upstream.WizardState, error) {
		return s.converter.PatchFootprint(ctx, upstreamID, footprint)
	})
}

func (s *Service) patchWizard(ctx context.Context, id string, call func(context.Context, string) (upstream.WizardState, error)) (upstream.WizardState, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return upstream.WizardState{}, err
	}
	wizardState, err := call(ctx, state.UpstreamID())
	if err != nil {
		return upstream.WizardState{}, s.fail(ctx, state, err)
	}
	state.SetWizard(wizardState)
	if err := s.sessions.Save(ctx, state); err != nil {
		return upstream.WizardState{}, err
	}
	return wizardState, nil
}

func (s *Service) UploadCompanyMappings(ctx context.Context, id, filename string, document []byte) (upstream.CompanyMappingsResult, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return upstream.CompanyMappingsResult{}, err
	}
	result, err := s.converter.UploadCompanyMappings(ctx, state.UpstreamID(), filename, document)
	if err != nil {
		return upstream.CompanyMappingsResult{}, s.fail(ctx, state, err)
	}
	// The upload changes the unit mapping preview; refresh the wizard slice.
	if wizardState, wizardErr := s.converter.GetWizard(ctx, state.UpstreamID()); wizardErr == nil {
		state.SetWizard(wizardState)
		_ = s.sessions.Save(ctx, state)
	}
	return result, nil
}

func (s *Service) SearchAddress(ctx context.Context, query, language string) ([]upstream.GeocodeMatch, error) {
	return s.converter.SearchAddress(ctx, query, language)
}

// NavResult reports where a navigation attempt landed. Refusal is non-nil
// when a completeness predicate stopped or redirected the move.
type NavResult struct {
	Step    wizard.Step     `json:"step"`
	Name    string          `json:"name"`
	Refusal *wizard.Refusal `json:"refusal,omitempty"`
}

// Navigate moves through the wizard. Forward movement is gated by the
// current step's predicate; backward movement is always permitted; a jump
// redirects to the first preceding step whose predicate fails. Predicates
// are evaluated fresh on every attempt.
func (s *Service) Navigate(ctx context.Context, id, action string, target wizard.Step) (NavResult, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return NavResult{}, err
	}
	current := wizard.Step(state.Step())
	if !current.Valid() {
		current = wizard.FirstStep
	}
	snap := wizard.Snapshot{Files: state.Files(), Wizard: state.Wizard()}

	var landed wizard.Step
	var refusal *wizard.Refusal
	switch action {
	case "next":
		landed, refusal = wizard.Next(current, snap)
	case "back":
		landed = wizard.Back(current)
	case "jump":
		if !target.Valid() {
			return NavResult{}, domainError(http.StatusBadRequest, "INVALID_STEP", "Step out of range", nil)
		}
		landed, refusal = wizard.Jump(target, snap)
	default:
		return NavResult{}, domainError(http.StatusBadRequest, "INVALID_ACTION", "Navigation action must be next, back or jump", nil)
	}

	// Leaving the level-mapping step synchronizes derived level metadata
	// into the wizard state. The sync is a side effect, not a gate
	// condition, but the move is not committed if it fails.
	if current == wizard.StepLevels && landed != wizard.StepLevels {
		wizardState, syncErr := s.converter.PatchLevels(ctx, state.UpstreamID(), wizard.LevelItems(state.Files()))
		if syncErr != nil {
			return NavResult{}, s.fail(ctx, state, syncErr)
		}
		state.SetWizard(wizardState)
	}

	state.SetStep(int(landed))
	if err := s.sessions.Save(ctx, state); err != nil {
		return NavResult{}, err
	}
	return NavResult{Step: landed, Name: landed.String(), Refusal: refusal}, nil
}

// ConfirmSummary gates the end of the wizard: every predicate must hold,
// then the draft feature set is generated and the review cache loaded.
func (s *Service) ConfirmSummary(ctx context.Context, id string) (upstream.GenerateResult, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return upstream.GenerateResult{}, err
	}
	snap := wizard.Snapshot{Files: state.Files(), Wizard: state.Wizard()}
	if landed, refusal := wizard.Jump(wizard.LastStep, snap); refusal != nil {
		state.SetStep(int(landed))
		return upstream.GenerateResult{}, domainError(http.StatusConflict, "STEP_INCOMPLETE", refusal.Reason, map[string]any{
			"step": refusal.Step.String(),
		})
	}

	result, err := s.converter.GenerateDraft(ctx, state.UpstreamID())
	if err != nil {
		return upstream.GenerateResult{}, s.fail(ctx, state, err)
	}
	// The draft is materialized upstream at this point, even if the reload
	// below fails.
	state.InvalidateValidation()
	if _, err := s.reloadFeatures(ctx, state); err != nil {
		return upstream.GenerateResult{}, err
	}
	if err := s.sessions.Save(ctx, state); err != nil {
		return upstream.GenerateResult{}, err
	}
	return result, nil
}

// Features returns the visible subset under the current filters plus the
// total size of the working set.
func (s *Service) Features(ctx context.Context, id string, reload bool) ([]review.FeatureRecord, int, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if reload || len(state.Features()) == 0 {
		if _, err := s.reloadFeatures(ctx, state); err != nil {
			return nil, 0, err
		}
	}
	features := state.Features()
	return review.Visible(features, state.Filters()), len(features), nil
}

func (s *Service) reloadFeatures(ctx context.Context, state *session.State) ([]review.FeatureRecord, error) {
	collection, err := s.converter.ListFeatures(ctx, state.UpstreamID())
	if err != nil {
		return nil, s.fail(ctx, state, err)
	}
	records := review.Normalize(collection.Features)
	state.SetFeatures(records)
	return records, nil
}

// SetFilters replaces the filter slice. Filtering itself is a pure
// projection over the cached working set.
func (s *Service) SetFilters(ctx context.Context, id string, filters review.Filters) ([]review.FeatureRecord, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	state.SetFilters(filters)
	return review.Visible(state.Features(), filters), nil
}

// ToggleSelection applies single or multi click selection semantics.
func (s *Service) ToggleSelection(ctx context.Context, id, featureID string, multi bool) (review.Selection, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	selection := state.Selection().Toggle(featureID, multi)
	state.SetSelection(selection)
	return selection, nil
}

// ClearSelection implements escape-to-deselect.
func (s *Service) ClearSelection(ctx context.Context, id string) error {
	state, err := s.Session(ctx, id)
	if err != nil {
		return err
	}
	state.SetSelection(nil)
	return nil
}

// PatchFeature updates one feature's properties. The pre-edit property bag
// is pushed onto the undo stack once the converter confirms the patch; a
// failed call leaves cache, history and validation untouched.
func (s *Service) PatchFeature(ctx context.Context, id, featureID string, properties map[string]any) (review.FeatureRecord, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return review.FeatureRecord{}, err
	}
	var previous map[string]any
	found := false
	for _, record := range state.Features() {
		if record.ID == featureID {
			previous = record.Properties
			found = true
			break
		}
	}
	if !found {
		return review.FeatureRecord{}, domainError(http.StatusNotFound, "FEATURE_NOT_FOUND", "Feature is not in the working set", nil)
	}

	echoed, err := s.converter.PatchFeature(ctx, state.UpstreamID(), featureID, properties)
	if err != nil {
		return review.FeatureRecord{}, s.fail(ctx, state, err)
	}

	state.PushHistory(review.HistoryEntry{FeatureID: featureID, PreviousProperties: previous})
	state.InvalidateValidation()
	return s.mergeEchoedRecord(ctx, state, featureID, echoed)
}

// DeleteFeature removes one feature from the working set. The full list is
// reloaded afterwards and the feature leaves the selection; a delete is not
// undoable.
func (s *Service) DeleteFeature(ctx context.Context, id, featureID string) error {
	state, err := s.Session(ctx, id)
	if err != nil {
		return err
	}
	found := false
	for _, record := range state.Features() {
		if record.ID == featureID {
			found = true
			break
		}
	}
	if !found {
		return domainError(http.StatusNotFound, "FEATURE_NOT_FOUND", "Feature is not in the working set", nil)
	}
	if err := s.converter.DeleteFeature(ctx, state.UpstreamID(), featureID); err != nil {
		return s.fail(ctx, state, err)
	}
	state.InvalidateValidation()
	if _, err := s.reloadFeatures(ctx, state); err != nil {
		return err
	}
	if state.Selection().Contains(featureID) {
		state.SetSelection(state.Selection().Toggle(featureID, true))
	}
	return nil
}

// mergeEchoedRecord replaces the cached copy with the canonical record the
// converter echoed back, falling back to a full reload when the echo does
// not normalize.
func (s *Service) mergeEchoedRecord(ctx context.Context, state *session.State, featureID string, echoed map[string]any) (review.FeatureRecord, error) {
	records := review.Normalize([]map[string]any{echoed})
	if len(records) == 1 {
		state.ReplaceFeature(records[0])
		return records[0], nil
	}
	reloaded, err := s.reloadFeatures(ctx, state)
	if err != nil {
		return review.FeatureRecord{}, err
	}
	for _, record := range reloaded {
		if record.ID == featureID {
			return record, nil
		}
	}
	return review.FeatureRecord{}, nil
}

// Bulk issues one bulk mutation and then reloads the full feature list,
// because the converter may materialize new or removed ids. Selection and
// filters survive a bulk patch but are always cleared after delete or merge.
func (s *Service) Bulk(ctx context.Context, id string, request upstream.BulkRequest) ([]review.FeatureRecord, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	switch request.Op {
	case upstream.BulkPatch, upstream.BulkDelete, upstream.BulkMergeUnits:
	default:
		return nil, domainError(http.StatusBadRequest, "INVALID_BULK_OP", "Bulk op must be patch, delete or merge_units", nil)
	}
	if len(request.IDs) == 0 {
		return nil, domainError(http.StatusBadRequest, "EMPTY_BULK_OP", "Bulk operations need at least one feature id", nil)
	}

	if err := s.converter.Bulk(ctx, state.UpstreamID(), request); err != nil {
		return nil, s.fail(ctx, state, err)
	}
	// The mutation is committed upstream at this point, even if the reload
	// below fails; the validation summary is stale either way.
	state.InvalidateValidation()

	records, err := s.reloadFeatures(ctx, state)
	if err != nil {
		return nil, err
	}
	if request.Op == upstream.BulkDelete || request.Op == upstream.BulkMergeUnits {
		state.SetSelection(nil)
		state.SetFilters(review.Filters{})
	}
	return records, nil
}

// UndoResult reports whether an undo actually reversed an edit.
type UndoResult struct {
	Undone    bool   `json:"undone"`
	FeatureID string `json:"feature_id,omitempty"`
}

// Undo reverses the most recent edit by re-issuing a patch with the captured
// pre-edit properties. The reverse patch does not push a history entry, so
// an undo is not itself undoable. An empty stack or a vanished target is a
// no-op, never an error.
func (s *Service) Undo(ctx context.Context, id string) (UndoResult, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return UndoResult{}, err
	}
	entry, ok := state.PopHistory()
	if !ok {
		return UndoResult{Undone: false}, nil
	}
	exists := false
	for _, record := range state.Features() {
		if record.ID == entry.FeatureID {
			exists = true
			break
		}
	}
	if !exists {
		return UndoResult{Undone: false}, nil
	}

	echoed, err := s.converter.PatchFeature(ctx, state.UpstreamID(), entry.FeatureID, entry.PreviousProperties)
	if err != nil {
		// The call did not commit; restore the entry so the edit stays
		// undoable.
		state.PushHistory(entry)
		return UndoResult{}, s.fail(ctx, state, err)
	}
	state.InvalidateValidation()
	if _, err := s.mergeEchoedRecord(ctx, state, entry.FeatureID, echoed); err != nil {
		return UndoResult{}, err
	}
	return UndoResult{Undone: true, FeatureID: entry.FeatureID}, nil
}

// Validate runs the external validation service via the gate.
func (s *Service) Validate(ctx context.Context, id string) (upstream.ValidationResult, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return upstream.ValidationResult{}, err
	}
	result, err := s.gate.Validate(ctx, state)
	if err != nil {
		return upstream.ValidationResult{}, s.fail(ctx, state, err)
	}
	return result, nil
}

// Autofix applies server-side fixes through the gate.
func (s *Service) Autofix(ctx context.Context, id string, applyDestructive bool) (upstream.AutofixResult, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return upstream.AutofixResult{}, err
	}
	result, err := s.gate.Autofix(ctx, state, applyDestructive)
	if err != nil {
		return upstream.AutofixResult{}, s.fail(ctx, state, err)
	}
	return result, nil
}

// RequestExport opens the export confirmation step when the gate allows it.
func (s *Service) RequestExport(ctx context.Context, id string) error {
	state, err := s.Session(ctx, id)
	if err != nil {
		return err
	}
	return s.gate.RequestExport(state)
}

// ConfirmExport fetches the archive once the user confirms.
func (s *Service) ConfirmExport(ctx context.Context, id string) (upstream.Archive, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return upstream.Archive{}, err
	}
	archive, err := s.gate.ConfirmExport(ctx, state)
	if err != nil {
		return upstream.Archive{}, s.fail(ctx, state, err)
	}
	return archive, nil
}

// StateView is the full session snapshot the UI renders from.
type StateView struct {
	SessionID      string                       `json:"session_id"`
	Step           wizard.Step                  `json:"step"`
	StepName       string                       `json:"step_name"`
	Files          []upstream.ImportedFile      `json:"files"`
	CleanupSummary upstream.CleanupSummary      `json:"cleanup_summary"`
	Warnings       []string                     `json:"warnings,omitempty"`
	Suggestion     *upstream.LearningSuggestion `json:"learning_suggestion,omitempty"`
	Wizard         upstream.WizardState         `json:"wizard"`
	Filters        review.Filters               `json:"filters"`
	Selection      review.Selection             `json:"selection"`
	FeatureCount   int                          `json:"feature_count"`
	Validation     *upstream.ValidationResult   `json:"validation,omitempty"`
	Issues         *upstream.IssuePartition     `json:"issues,omitempty"`
	ExportStage    session.ExportStage          `json:"export_stage"`
	UndoDepth      int                          `json:"undo_depth"`
}

func (s *Service) StateView(ctx context.Context, id string) (StateView, error) {
	state, err := s.Session(ctx, id)
	if err != nil {
		return StateView{}, err
	}
	var issues *upstream.IssuePartition
	validation := state.Validation()
	if validation != nil {
		partition := validation.PartitionIssues()
		issues = &partition
	}
	return StateView{
		SessionID:      state.ID(),
		Step:           wizard.Step(state.Step()),
		StepName:       wizard.Step(state.Step()).String(),
		Files:          state.Files(),
		CleanupSummary: state.CleanupSummary(),
		Warnings:       state.ImportWarnings(),
		Suggestion:     state.LearningSuggestion(),
		Wizard:         state.Wizard(),
		Filters:        state.Filters(),
		Selection:      state.Selection(),
		FeatureCount:   len(state.Features()),
		Validation:     validation,
		Issues:         issues,
		ExportStage:    state.ExportStage(),
		UndoDepth:      state.HistoryLen(),
	}, nil
}

// Ping reports whether the session backend is reachable, for readiness
// checks.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.sessions.PruneExpired(ctx)
	return err
}
