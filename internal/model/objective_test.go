package model

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func strPtr(s string) *string      { return &s }
func tagsPtr(t []string) *[]string { return &t }
func floatPtr(f float64) *float64  { return &f }

func TestObjectiveCloneIsDeep(t *testing.T) {
	orig := &Objective{
		ID:    uuid.New(),
		Title: "Rollout",
		Tags:  []string{"a", "b"},
	}

	cp := orig.Clone()
	cp.Tags[0] = "mutated"
	cp.Title = "changed"

	if orig.Tags[0] != "a" {
		t.Error("clone shares the tags slice with the original")
	}
	if orig.Title != "Rollout" {
		t.Error("clone shares scalar fields with the original")
	}
}

func TestObjectiveCloneNil(t *testing.T) {
	var o *Objective
	if o.Clone() != nil {
		t.Error("cloning nil should return nil")
	}
}

func TestPatchApplyLeavesOriginalAlone(t *testing.T) {
	orig := &Objective{Title: "before", BudgetPlanned: 100}
	patch := &ObjectivePatch{
		Title:         strPtr("after"),
		BudgetPlanned: floatPtr(250),
	}

	next := orig.Apply(patch)

	if next.Title != "after" || next.BudgetPlanned != 250 {
		t.Errorf("patch not applied: %+v", next)
	}
	if orig.Title != "before" || orig.BudgetPlanned != 100 {
		t.Errorf("original mutated by Apply: %+v", orig)
	}
}

func TestPatchApplySkipsNilFields(t *testing.T) {
	orig := &Objective{Title: "keep", Description: "keep too", Currency: "EUR"}
	next := orig.Apply(&ObjectivePatch{Description: strPtr("new")})

	if next.Title != "keep" || next.Currency != "EUR" {
		t.Errorf("nil patch fields overwrote values: %+v", next)
	}
	if next.Description != "new" {
		t.Errorf("set field not applied: %q", next.Description)
	}
}

func TestPatchIsEmpty(t *testing.T) {
	if !(&ObjectivePatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
	if (&ObjectivePatch{Title: strPtr("x")}).IsEmpty() {
		t.Error("patch with a field should not be empty")
	}
}

func TestPatchNormalizeDate(t *testing.T) {
	p := &ObjectivePatch{TargetDate: strPtr("20.08.2025")}
	if err := p.Normalize(); err != nil {
		t.Fatal(err)
	}
	if *p.TargetDate != "2025-08-20" {
		t.Errorf("date not normalized: %q", *p.TargetDate)
	}

	bad := &ObjectivePatch{TargetDate: strPtr("bogus")}
	if err := bad.Normalize(); err == nil {
		t.Error("invalid date accepted")
	}
}

func TestPatchNormalizeDedupesTags(t *testing.T) {
	p := &ObjectivePatch{Tags: tagsPtr([]string{"b", "a", "b", "a"})}
	if err := p.Normalize(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(*p.Tags, []string{"b", "a"}) {
		t.Errorf("tags not deduped in order: %v", *p.Tags)
	}
}
