package session

import (
	"time"

	"shp2imdf/workbench/internal/upstream"
)

// Record is the snapshot a backend persists for one session. UI-only state
// (selection, filters, edit history, the review cache) is deliberately
// absent: the converter owns the features, and nothing transient may leak
// into a resumed session.
type Record struct {
	ID             string                  `json:"id"`
	UpstreamID     string                  `json:"upstream_id"`
	CreatedAt      time.Time               `json:"created_at"`
	LastAccessed   time.Time               `json:"last_accessed"`
	Files          []upstream.ImportedFile `json:"files"`
	CleanupSummary upstream.CleanupSummary `json:"cleanup_summary"`
	Wizard         upstream.WizardState    `json:"wizard"`
	Warnings       []string                `json:"warnings,omitempty"`
	Step           int                     `json:"step"`
}

func snapshot(state *State) Record {
	return Record{
		ID:             state.ID(),
		UpstreamID:     state.UpstreamID(),
		CreatedAt:      state.CreatedAt(),
		LastAccessed:   state.LastAccessed(),
		Files:          state.Files(),
		CleanupSummary: state.CleanupSummary(),
		Wizard:         state.Wizard(),
		Warnings:       state.ImportWarnings(),
		Step:           state.Step(),
	}
}

func rehydrate(record Record) *State {
	state := NewState(record.ID, record.UpstreamID, record.CreatedAt)
	state.lastAccessed = record.LastAccessed
	state.files = append([]upstream.ImportedFile(nil), record.Files...)
	state.cleanup = record.CleanupSummary
	state.wizard = record.Wizard
	state.importWarnings = append([]string(nil), record.Warnings...)
	state.step = record.Step
	return state
}
