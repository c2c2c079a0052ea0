package model

import "github.com/google/uuid"

// ObjectiveRef locates "the" shared objective. Once an ID is known it is
// the only thing consulted; the exact-title fallback exists solely for
// the first boot of a deployment whose objective was seeded before the
// stable id made it into config.
type ObjectiveRef struct {
	ID    uuid.UUID
	Title string
}

// HasID reports whether the ref carries a stable identifier.
func (r ObjectiveRef) HasID() bool {
	return r.ID != uuid.Nil
}

// Matches reports whether o is the referenced objective. Only active
// objectives match; archived rows are never "the" shared record.
func (r ObjectiveRef) Matches(o *Objective) bool {
	if o == nil || o.Status != ObjectiveStatusActive {
		return false
	}
	if r.HasID() {
		return o.ID == r.ID
	}
	return r.Title != "" && o.Title == r.Title
}
