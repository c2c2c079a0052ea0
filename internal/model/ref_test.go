package model

import (
	"testing"

	"github.com/google/uuid"
)

func TestRefMatchesByID(t *testing.T) {
	id := uuid.New()
	ref := ObjectiveRef{ID: id, Title: "ignored once id is set"}

	if !ref.Matches(&Objective{ID: id, Title: "anything", Status: ObjectiveStatusActive}) {
		t.Error("id match should win regardless of title")
	}
	if ref.Matches(&Objective{ID: uuid.New(), Title: "ignored once id is set", Status: ObjectiveStatusActive}) {
		t.Error("title must not match when the ref carries an id")
	}
}

func TestRefMatchesByExactTitle(t *testing.T) {
	ref := ObjectiveRef{Title: "Strategic Objective"}

	if !ref.Matches(&Objective{Title: "Strategic Objective", Status: ObjectiveStatusActive}) {
		t.Error("exact title should match when no id is configured")
	}
	// No substring or prefix fallback.
	if ref.Matches(&Objective{Title: "Strategic Objective v2", Status: ObjectiveStatusActive}) {
		t.Error("superstring title must not match")
	}
	if ref.Matches(&Objective{Title: "Strategic", Status: ObjectiveStatusActive}) {
		t.Error("prefix title must not match")
	}
}

func TestRefNeverMatchesArchived(t *testing.T) {
	id := uuid.New()
	ref := ObjectiveRef{ID: id}
	if ref.Matches(&Objective{ID: id, Status: ObjectiveStatusArchived}) {
		t.Error("archived objective matched")
	}
}

func TestRefMatchesNilAndEmpty(t *testing.T) {
	if (ObjectiveRef{Title: "x"}).Matches(nil) {
		t.Error("nil objective matched")
	}
	if (ObjectiveRef{}).Matches(&Objective{Status: ObjectiveStatusActive}) {
		t.Error("empty ref matched empty title")
	}
}
