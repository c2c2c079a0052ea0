package engine

import (
	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
)

// SyncStatus reflects the link to the authoritative store and feed.
type SyncStatus string

const (
	SyncConnecting   SyncStatus = "connecting"
	SyncConnected    SyncStatus = "connected"
	SyncDisconnected SyncStatus = "disconnected"
)

// SaveStatus reflects how far the current in-memory state has been
// persisted.
type SaveStatus string

const (
	SaveSaved  SaveStatus = "saved"
	SaveSaving SaveStatus = "saving"
	// SaveLocalOnly means the state is held in memory and cache but has
	// not been confirmed by the remote store.
	SaveLocalOnly SaveStatus = "local_only"
	SaveError     SaveStatus = "error"
)

// State is the reactive tuple consumers observe. Objective and
// KeyResults are deep copies; mutating them does not affect the engine.
type State struct {
	Loading    bool
	Err        error
	Objective  *model.Objective
	KeyResults []model.KeyResult
	SyncStatus SyncStatus
	SaveStatus SaveStatus
}

func (s State) clone() State {
	s.Objective = s.Objective.Clone()
	s.KeyResults = model.CloneKeyResults(s.KeyResults)
	return s
}

// aggregate returns the persistable view of the state.
func (s *State) aggregate() *model.Aggregate {
	return &model.Aggregate{
		Objective:  s.Objective,
		KeyResults: s.KeyResults,
	}
}
