// Package session owns the per-browser-session workflow state: the live
// state container the engine mutates, the lifecycle manager, and the
// snapshot backends that let a session survive a workbench restart.
package session

import (
	"sync"
	"time"

	"shp2imdf/workbench/internal/review"
	"shp2imdf/workbench/internal/upstream"
)

// Slice names one independently updated region of session state. Listeners
// receive the slice that changed, never partial contents.
type Slice string

const (
	SliceFiles      Slice = "files"
	SliceWizard     Slice = "wizard"
	SliceStep       Slice = "step"
	SliceFeatures   Slice = "features"
	SliceSelection  Slice = "selection"
	SliceFilters    Slice = "filters"
	SliceValidation Slice = "validation"
	SliceHistory    Slice = "history"
	SliceExport     Slice = "export"
)

// ExportStage is the validation/export gate position for a session.
type ExportStage string

const (
	StageUnvalidated   ExportStage = "unvalidated"
	StageExportBlocked ExportStage = "export_blocked"
	StageExportReady   ExportStage = "export_ready"
	StageExported      ExportStage = "exported"
)

// Listener observes slice mutations. Notification is synchronous: it runs
// before the mutating call returns, after the slice update is complete.
type Listener func(Slice)

// State is the live, injectable state container for one session. Each slice
// update holds the lock for the whole write, so readers never observe a
// partially-updated slice. Nothing here performs I/O.
type State struct {
	mu sync.RWMutex

	id           string
	upstreamID   string
	createdAt    time.Time
	lastAccessed time.Time

	files          []upstream.ImportedFile
	cleanup        upstream.CleanupSummary
	importWarnings []string
	suggestion     *upstream.LearningSuggestion

	wizard upstream.WizardState
	step   int

	features   []review.FeatureRecord
	filters    review.Filters
	selection  review.Selection
	history    review.History
	validation *upstream.ValidationResult
	stage      ExportStage

	listenerMu sync.Mutex
	listeners  map[int]Listener
	nextToken  int
}

func NewState(id, upstreamID string, now time.Time) *State {
	return &State{
		id:           id,
		upstreamID:   upstreamID,
		createdAt:    now,
		lastAccessed: now,
		stage:        StageUnvalidated,
		listeners:    map[int]Listener{},
	}
}

func (s *State) ID() string         { return s.id }
func (s *State) UpstreamID() string { return s.upstreamID }
func (s *State) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

func (s *State) LastAccessed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccessed
}

func (s *State) Touch(now time.Time) {
	s.mu.Lock()
	s.lastAccessed = now
	s.mu.Unlock()
}

// Subscribe registers a listener for slice mutations and returns its cancel
// function.
func (s *State) Subscribe(listener Listener) func() {
	s.listenerMu.Lock()
	token := s.nextToken
	s.nextToken++
	s.listeners[token] = listener
	s.listenerMu.Unlock()
	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, token)
		s.listenerMu.Unlock()
	}
}

func (s *State) notify(slice Slice) {
	s.listenerMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.listenerMu.Unlock()
	for _, listener := range listeners {
		listener(slice)
	}
}

func (s *State) Files() []upstream.ImportedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]upstream.ImportedFile(nil), s.files...)
}

func (s *State) SetFiles(files []upstream.ImportedFile) {
	s.mu.Lock()
	s.files = append([]upstream.ImportedFile(nil), files...)
	s.mu.Unlock()
	s.notify(SliceFiles)
}

func (s *State) CleanupSummary() upstream.CleanupSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cleanup
}

func (s *State) SetCleanupSummary(summary upstream.CleanupSummary) {
	s.mu.Lock()
	s.cleanup = summary
	s.mu.Unlock()
	s.notify(SliceFiles)
}

func (s *State) ImportWarnings() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.importWarnings...)
}

func (s *State) SetImportWarnings(warnings []string) {
	s.mu.Lock()
	s.importWarnings = append([]string(nil), warnings...)
	s.mu.Unlock()
	s.notify(SliceFiles)
}

// LearningSuggestion is the pending classification rule offered for
// acceptance, or nil.
func (s *State) LearningSuggestion() *upstream.LearningSuggestion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.suggestion == nil {
		return nil
	}
	copied := *s.suggestion
	return &copied
}

func (s *State) SetLearningSuggestion(suggestion *upstream.LearningSuggestion) {
	s.mu.Lock()
	if suggestion == nil {
		s.suggestion = nil
	} else {
		copied := *suggestion
		s.suggestion = &copied
	}
	s.mu.Unlock()
	s.notify(SliceFiles)
}

func (s *State) Wizard() upstream.WizardState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wizard
}

func (s *State) SetWizard(state upstream.WizardState) {
	s.mu.Lock()
	s.wizard = state
	s.mu.Unlock()
	s.notify(SliceWizard)
}

func (s *State) Step() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.step
}

func (s *State) SetStep(step int) {
	s.mu.Lock()
	s.step = step
	s.mu.Unlock()
	s.notify(SliceStep)
}

func (s *State) Features() []review.FeatureRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]review.FeatureRecord(nil), s.features...)
}

func (s *State) SetFeatures(features []review.FeatureRecord) {
	s.mu.Lock()
	s.features = append([]review.FeatureRecord(nil), features...)
	s.mu.Unlock()
	s.notify(SliceFeatures)
}

// ReplaceFeature swaps in the canonical record the converter echoed back for
// one feature. Unknown ids are ignored.
func (s *State) ReplaceFeature(record review.FeatureRecord) {
	s.mu.Lock()
	for i := range s.features {
		if s.features[i].ID == record.ID {
			s.features[i] = record
			break
		}
	}
	s.mu.Unlock()
	s.notify(SliceFeatures)
}

func (s *State) Filters() review.Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

func (s *State) SetFilters(filters review.Filters) {
	s.mu.Lock()
	s.filters = filters
	s.mu.Unlock()
	s.notify(SliceFilters)
}

func (s *State) Selection() review.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(review.Selection(nil), s.selection...)
}

func (s *State) SetSelection(selection review.Selection) {
	s.mu.Lock()
	s.selection = append(review.Selection(nil), selection...)
	s.mu.Unlock()
	s.notify(SliceSelection)
}

func (s *State) PushHistory(entry review.HistoryEntry) {
	s.mu.Lock()
	s.history.Push(entry)
	s.mu.Unlock()
	s.notify(SliceHistory)
}

func (s *State) PopHistory() (review.HistoryEntry, bool) {
	s.mu.Lock()
	entry, ok := s.history.Pop()
	s.mu.Unlock()
	if ok {
		s.notify(SliceHistory)
	}
	return entry, ok
}

func (s *State) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Len()
}

func (s *State) Validation() *upstream.ValidationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.validation == nil {
		return nil
	}
	copied := *s.validation
	return &copied
}

// SetValidation replaces the validation slice and derives the gate stage
// from the summary counts.
func (s *State) SetValidation(result *upstream.ValidationResult) {
	s.mu.Lock()
	if result == nil {
		s.validation = nil
		s.stage = StageUnvalidated
	} else {
		copied := *result
		s.validation = &copied
		if copied.Summary.ErrorCount > 0 {
			s.stage = StageExportBlocked
		} else {
			s.stage = StageExportReady
		}
	}
	s.mu.Unlock()
	s.notify(SliceValidation)
}

// InvalidateValidation marks the cached summary stale after any successful
// feature mutation.
func (s *State) InvalidateValidation() {
	s.mu.Lock()
	s.validation = nil
	s.stage = StageUnvalidated
	s.mu.Unlock()
	s.notify(SliceValidation)
}

func (s *State) ExportStage() ExportStage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

func (s *State) MarkExported() {
	s.mu.Lock()
	s.stage = StageExported
	s.mu.Unlock()
	s.notify(SliceExport)
}

// Reset returns every slice to its initial value. Selection, filters and the
// edit history are cleared too, so nothing leaks into a later session.
func (s *State) Reset() {
	s.mu.Lock()
	s.files = nil
	s.cleanup = upstream.CleanupSummary{}
	s.importWarnings = nil
	s.suggestion = nil
	s.wizard = upstream.WizardState{}
	s.step = 0
	s.features = nil
	s.filters = review.Filters{}
	s.selection = nil
	s.history.Reset()
	s.validation = nil
	s.stage = StageUnvalidated
	s.mu.Unlock()
	for _, slice := range []Slice{SliceFiles, SliceWizard, SliceStep, SliceFeatures, SliceSelection, SliceFilters, SliceValidation, SliceHistory, SliceExport} {
		s.notify(slice)
	}
}
