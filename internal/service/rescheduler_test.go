package service

import (
	"context"
	"errors"
	"testing"

	"classplanner/internal/grouping"
	"classplanner/internal/models"
	"classplanner/internal/repository"
)

func TestTemplateDropCreatesLesson(t *testing.T) {
	store := repository.NewMemorySessionStore()
	r := newTestRescheduler(store)
	r.SetDefaultStartTime("09:30")

	tmpl := models.LessonTemplate{
		ID:                "T1",
		Title:             "Fractions",
		Description:       "Halves and quarters",
		EstimatedSessions: 3,
		Stages:            []models.TemplateStage{{ID: "s1", Title: "Explain"}, {ID: "s2", Title: "Practice"}},
	}

	res, err := r.Apply(context.Background(), models.DropCell{Date: "2025-01-06", SectionID: "A"}, models.TemplateDrop{Template: tmpl})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Action != DropCreated || res.Session == nil {
		t.Fatalf("Apply() = %+v, want created", res)
	}

	s := *res.Session
	if s.TemplateID != "T1" || s.LessonGroupID == "" || s.LessonGroupID == "T1" {
		t.Errorf("identity = template %q group %q", s.TemplateID, s.LessonGroupID)
	}
	if s.Date != "2025-01-06" || s.StartTime != "09:30" || s.PrimarySection() != "A" {
		t.Errorf("slot = %s %s %v", s.Date, s.StartTime, s.AssignedSections)
	}
	if s.CompletionStatus["A"] != models.StatusPlanned || len(s.CompletionStatus) != 1 {
		t.Errorf("CompletionStatus = %v", s.CompletionStatus)
	}
	if s.CustomTitle != "Fractions" || s.EstimatedSessions != 3 || s.Progress != 0 {
		t.Errorf("copied fields = %+v", s)
	}
	if len(s.Stages) != 2 {
		t.Fatalf("got %d stages, want 2", len(s.Stages))
	}
	for i, st := range s.Stages {
		if !st.IsCore || st.IsCompleted {
			t.Errorf("stage %d = %+v, want core and incomplete", i, st)
		}
		if st.TemplateStageID != tmpl.Stages[i].ID {
			t.Errorf("stage %d TemplateStageID = %q, want %q", i, st.TemplateStageID, tmpl.Stages[i].ID)
		}
		if st.ID == "" || st.ID == tmpl.Stages[i].ID {
			t.Errorf("stage %d id %q not fresh", i, st.ID)
		}
	}
	if s.Stages[0].ID == s.Stages[1].ID {
		t.Error("stage ids are not unique")
	}
}

func TestCloneNumberingSameSection(t *testing.T) {
	store := repository.NewMemorySessionStore()
	first, _ := seedGroup(t, store)
	r := newTestRescheduler(store)

	res, err := r.Apply(context.Background(), models.DropCell{Date: "2025-01-08", SectionID: "A"}, models.LessonDrop{LessonID: first.ID})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Action != DropCloned {
		t.Fatalf("Action = %s, want cloned", res.Action)
	}

	clone := res.Session
	if clone.ManualSessionNumber == nil || *clone.ManualSessionNumber != 3 {
		t.Errorf("ManualSessionNumber = %v, want 3", clone.ManualSessionNumber)
	}
	if clone.ID == first.ID {
		t.Error("clone reused the original id")
	}
	if clone.LessonGroupID != "G" {
		t.Errorf("LessonGroupID = %q, want G", clone.LessonGroupID)
	}
	if clone.CompletionStatus["A"] != models.StatusPlanned || clone.Progress != 0 {
		t.Errorf("clone status = %v progress %d", clone.CompletionStatus, clone.Progress)
	}

	core, note := clone.Stages[0], clone.Stages[1]
	if core.IsCompleted || core.CompletionDate != nil {
		t.Errorf("core stage not reset: %+v", core)
	}
	if core.ID == "x-core" || core.TemplateStageID != "s1" {
		t.Errorf("core stage identity = %+v", core)
	}
	if !note.IsCompleted {
		t.Error("non-core stage lost its completion")
	}
	if note.TemplateStageID != "x-note" {
		t.Errorf("non-core stage TemplateStageID = %q, want original id", note.TemplateStageID)
	}

	orig, err := store.GetByID(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if orig.Date != "2025-01-06" || !orig.Stages[0].IsCompleted {
		t.Errorf("original changed: %+v", orig)
	}
}

func TestCloneNumberingDefaultsToTwo(t *testing.T) {
	store := repository.NewMemorySessionStore()
	only := mustCreate(t, store, models.Session{ID: "solo", Date: "2025-01-06", AssignedSections: []string{"A"}})
	r := newTestRescheduler(store)

	res, err := r.Apply(context.Background(), models.DropCell{Date: "2025-01-09", SectionID: "A"}, models.LessonDrop{LessonID: only.ID})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Session.ManualSessionNumber == nil || *res.Session.ManualSessionNumber != 2 {
		t.Errorf("ManualSessionNumber = %v, want 2", res.Session.ManualSessionNumber)
	}
	if res.Session.LessonGroupID != "solo" {
		t.Errorf("LessonGroupID = %q, want derived key solo", res.Session.LessonGroupID)
	}
}

func TestCloneNumberingCrossSection(t *testing.T) {
	store := repository.NewMemorySessionStore()
	_, second := seedGroup(t, store)
	r := newTestRescheduler(store)

	res, err := r.Apply(context.Background(), models.DropCell{Date: "2025-01-08", SectionID: "B"}, models.LessonDrop{LessonID: second.ID})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Action != DropCloned {
		t.Fatalf("Action = %s, want cloned", res.Action)
	}
	if res.Session.ManualSessionNumber == nil || *res.Session.ManualSessionNumber != 2 {
		t.Errorf("ManualSessionNumber = %v, want 2", res.Session.ManualSessionNumber)
	}
	if res.Session.PrimarySection() != "B" || res.Session.CompletionStatus["B"] != models.StatusPlanned {
		t.Errorf("clone slot = %v %v", res.Session.AssignedSections, res.Session.CompletionStatus)
	}
}

func TestMovePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySessionStore()
	first, _ := seedGroup(t, store)
	r := newTestRescheduler(store)

	before, _ := store.List(ctx)
	groupBefore := len(grouping.SessionsInGroup(before, "G"))

	res, err := r.Apply(ctx, models.DropCell{Date: "2025-01-14", SectionID: "A"}, models.LessonDrop{LessonID: first.ID})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Action != DropMoved {
		t.Fatalf("Action = %s, want moved", res.Action)
	}

	moved := res.Session
	if moved.ID != first.ID || moved.LessonGroupID != "G" {
		t.Errorf("identity changed: id %s group %s", moved.ID, moved.LessonGroupID)
	}
	if moved.Date != "2025-01-14" || moved.PrimarySection() != "A" {
		t.Errorf("slot = %s %v", moved.Date, moved.AssignedSections)
	}
	if moved.CompletionStatus["A"] != models.StatusCompleted {
		t.Errorf("CompletionStatus = %v, want previous status kept", moved.CompletionStatus)
	}
	if moved.CustomTitle != first.CustomTitle || len(moved.Stages) != len(first.Stages) || moved.Progress != first.Progress {
		t.Errorf("move touched other fields: %+v", moved)
	}

	after, _ := store.List(ctx)
	if len(after) != len(before) {
		t.Errorf("session count %d -> %d", len(before), len(after))
	}
	if got := len(grouping.SessionsInGroup(after, "G")); got != groupBefore {
		t.Errorf("group size %d -> %d", groupBefore, got)
	}
}

func TestMoveToNewSectionDefaultsToPlanned(t *testing.T) {
	store := repository.NewMemorySessionStore()
	first, _ := seedGroup(t, store)
	r := newTestRescheduler(store)

	res, err := r.Apply(context.Background(), models.DropCell{Date: "2025-01-20", SectionID: "C"}, models.LessonDrop{LessonID: first.ID})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	want := map[string]models.Status{"C": models.StatusPlanned}
	if len(res.Session.CompletionStatus) != 1 || res.Session.CompletionStatus["C"] != want["C"] {
		t.Errorf("CompletionStatus = %v, want %v", res.Session.CompletionStatus, want)
	}
}

func TestIgnoredDrops(t *testing.T) {
	store := repository.NewMemorySessionStore()
	first, _ := seedGroup(t, store)

	tests := []struct {
		name    string
		cell    models.DropCell
		payload models.DropPayload
	}{
		{"own slot", models.DropCell{Date: first.Date, SectionID: "A"}, models.LessonDrop{LessonID: first.ID}},
		{"stale session id", models.DropCell{Date: "2025-01-08", SectionID: "A"}, models.LessonDrop{LessonID: "gone"}},
		{"no payload", models.DropCell{Date: "2025-01-08", SectionID: "A"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := listJSON(t, store)
			res, err := newTestRescheduler(store).Apply(context.Background(), tt.cell, tt.payload)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if res.Action != DropIgnored || res.Session != nil {
				t.Errorf("Apply() = %+v, want ignored", res)
			}
			if after := listJSON(t, store); after != before {
				t.Errorf("session list changed:\nbefore %s\nafter  %s", before, after)
			}
		})
	}
}

func TestPersistenceFailureLeavesState(t *testing.T) {
	boom := errors.New("backend unavailable")
	store := &failingStore{MemorySessionStore: repository.NewMemorySessionStore()}
	first, _ := seedGroup(t, store)
	store.createErr = boom
	store.updateErr = boom
	r := newTestRescheduler(store)

	tests := []struct {
		name    string
		cell    models.DropCell
		payload models.DropPayload
	}{
		{"clone", models.DropCell{Date: "2025-01-08", SectionID: "A"}, models.LessonDrop{LessonID: first.ID}},
		{"move", models.DropCell{Date: "2025-02-03", SectionID: "A"}, models.LessonDrop{LessonID: first.ID}},
		{"template", models.DropCell{Date: "2025-01-08", SectionID: "A"}, models.TemplateDrop{Template: models.LessonTemplate{ID: "T"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := listJSON(t, store)
			_, err := r.Apply(context.Background(), tt.cell, tt.payload)
			if !errors.Is(err, boom) {
				t.Fatalf("Apply() error = %v, want wrapped backend error", err)
			}
			if after := listJSON(t, store); after != before {
				t.Error("session list changed after failed drop")
			}
		})
	}
}

func TestNextSessionNumber(t *testing.T) {
	all := []models.Session{
		{ID: "a", LessonGroupID: "G", Date: "2025-01-06"},
		{ID: "b", LessonGroupID: "G", Date: "2025-01-07", ManualSessionNumber: intPtr(4)},
		{ID: "c", LessonGroupID: "G", Date: "2025-01-14", ManualSessionNumber: intPtr(9)},
		{ID: "d", LessonGroupID: "H", Date: "2025-01-07", ManualSessionNumber: intPtr(7)},
	}
	tests := []struct {
		name string
		date string
		want int
	}{
		{"same week", "2025-01-09", 5},
		{"other week", "2025-01-15", 10},
		{"empty week", "2025-01-22", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextSessionNumber(all, "G", tt.date); got != tt.want {
				t.Errorf("nextSessionNumber() = %d, want %d", got, tt.want)
			}
		})
	}
}
