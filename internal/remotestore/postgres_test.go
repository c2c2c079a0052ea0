package remotestore

import (
	"testing"

	"github.com/HighTechnologyAI/ironbrain-sub001/internal/model"
)

func TestBuildUpdateSet(t *testing.T) {
	title := "Renamed"
	budget := 250.0
	status := model.ObjectiveStatusArchived

	set, args := buildUpdateSet(&model.ObjectivePatch{
		Title:         &title,
		BudgetPlanned: &budget,
		Status:        &status,
	})

	if got := set.clause(); got != "title = $1, budget_planned = $2, status = $3" {
		t.Errorf("clause = %q", got)
	}
	if len(args) != 3 || args[0] != "Renamed" || args[1] != 250.0 || args[2] != "archived" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildUpdateSetEmptyPatch(t *testing.T) {
	set, args := buildUpdateSet(&model.ObjectivePatch{})
	if len(set) != 0 || len(args) != 0 {
		t.Errorf("empty patch produced set=%v args=%v", set, args)
	}
}

func TestBuildUpdateSetAllFields(t *testing.T) {
	title := "t"
	desc := "d"
	date := "2026-12-31"
	loc := "l"
	budget := 1.0
	imp := "high"
	status := model.ObjectiveStatusActive
	tags := []string{"a"}
	cur := "EUR"

	set, args := buildUpdateSet(&model.ObjectivePatch{
		Title:               &title,
		Description:         &desc,
		TargetDate:          &date,
		Location:            &loc,
		BudgetPlanned:       &budget,
		StrategicImportance: &imp,
		Status:              &status,
		Tags:                &tags,
		Currency:            &cur,
	})
	if len(set) != 9 || len(args) != 9 {
		t.Errorf("full patch produced %d fragments, %d args", len(set), len(args))
	}
}
