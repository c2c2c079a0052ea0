package model

import (
	"time"

	"github.com/google/uuid"
)

type ObjectiveStatus string

const (
	ObjectiveStatusActive   ObjectiveStatus = "active"
	ObjectiveStatusArchived ObjectiveStatus = "archived"
)

// Objective is the single shared aggregate root kept in sync across all
// connected clients. The remote store owns it; every other copy (cache,
// snapshot, in-memory state) is provisional.
type Objective struct {
	ID                  uuid.UUID       `json:"id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	TargetDate          string          `json:"target_date"` // canonical YYYY-MM-DD
	Location            string          `json:"location"`
	BudgetPlanned       float64         `json:"budget_planned"`
	StrategicImportance string          `json:"strategic_importance"`
	Status              ObjectiveStatus `json:"status"`
	Tags                []string        `json:"tags"`
	Currency            string          `json:"currency"`
	UpdatedAt           time.Time       `json:"updated_at"` // server-assigned
}

// Clone returns a deep copy so callers can hand out state without
// sharing the tags slice.
func (o *Objective) Clone() *Objective {
	if o == nil {
		return nil
	}
	cp := *o
	if o.Tags != nil {
		cp.Tags = make([]string, len(o.Tags))
		copy(cp.Tags, o.Tags)
	}
	return &cp
}

// ObjectivePatch carries the fields of a partial update. Nil fields are
// left untouched.
type ObjectivePatch struct {
	Title               *string          `json:"title,omitempty"`
	Description         *string          `json:"description,omitempty"`
	TargetDate          *string          `json:"target_date,omitempty"`
	Location            *string          `json:"location,omitempty"`
	BudgetPlanned       *float64         `json:"budget_planned,omitempty"`
	StrategicImportance *string          `json:"strategic_importance,omitempty"`
	Status              *ObjectiveStatus `json:"status,omitempty"`
	Tags                *[]string        `json:"tags,omitempty"`
	Currency            *string          `json:"currency,omitempty"`
}

// IsEmpty reports whether the patch sets no fields.
func (p *ObjectivePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.TargetDate == nil &&
		p.Location == nil && p.BudgetPlanned == nil && p.StrategicImportance == nil &&
		p.Status == nil && p.Tags == nil && p.Currency == nil
}

// Normalize rewrites patch fields into canonical form. Dates arrive from
// UIs in locale formats and must become calendar-day ISO strings before
// they touch state, otherwise a naive local-time parse can shift the day.
func (p *ObjectivePatch) Normalize() error {
	if p.TargetDate != nil {
		normalized, err := NormalizeDate(*p.TargetDate)
		if err != nil {
			return err
		}
		p.TargetDate = &normalized
	}
	if p.Tags != nil {
		tags := dedupeTags(*p.Tags)
		p.Tags = &tags
	}
	return nil
}

// Apply copies the set fields of the patch onto a clone of o and
// returns it. o itself is not modified.
func (o *Objective) Apply(p *ObjectivePatch) *Objective {
	next := o.Clone()
	if p.Title != nil {
		next.Title = *p.Title
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.TargetDate != nil {
		next.TargetDate = *p.TargetDate
	}
	if p.Location != nil {
		next.Location = *p.Location
	}
	if p.BudgetPlanned != nil {
		next.BudgetPlanned = *p.BudgetPlanned
	}
	if p.StrategicImportance != nil {
		next.StrategicImportance = *p.StrategicImportance
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.Tags != nil {
		next.Tags = make([]string, len(*p.Tags))
		copy(next.Tags, *p.Tags)
	}
	if p.Currency != nil {
		next.Currency = *p.Currency
	}
	return next
}

// dedupeTags drops repeated tags, keeping first-seen order.
func dedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
