package workflow_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/arnavshah/osc-matching-api/pkg/database"
	"github.com/arnavshah/osc-matching-api/pkg/models"
	"github.com/arnavshah/osc-matching-api/pkg/repository"
	"github.com/arnavshah/osc-matching-api/pkg/testutil"
	"github.com/arnavshah/osc-matching-api/pkg/workflow"
)

func TestGormRecorder_AssignAndReassign(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.New(db)
	rec := workflow.NewGormRecorder(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	project, err := repo.CreateProject(ctx, models.Project{Name: "Park Cleanup"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	alice, err := repo.CreateCandidate(ctx, models.Candidate{Name: "Alice", MaxProjects: 1})
	if err != nil {
		t.Fatal(err)
	}
	bob, err := repo.CreateCandidate(ctx, models.Candidate{Name: "Bob", MaxProjects: 2})
	if err != nil {
		t.Fatal(err)
	}

	first, err := rec.Assign(ctx, project.ID, alice.ID)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if !first.Active || first.ID == "" {
		t.Errorf("expected an active assignment with an ID, got %+v", first)
	}

	// Same candidate again is a reassignment, not a capacity violation.
	if _, err := rec.Assign(ctx, project.ID, alice.ID); err != nil {
		t.Fatalf("reassigning the same candidate failed: %v", err)
	}

	if _, err := rec.Assign(ctx, project.ID, bob.ID); err != nil {
		t.Fatalf("Assign to Bob failed: %v", err)
	}

	got, err := repo.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentCoordinator == nil || got.CurrentCoordinator.ID != bob.ID {
		t.Errorf("expected Bob as coordinator, got %v", got.CurrentCoordinator)
	}

	var active int64
	db.Model(&database.Assignment{}).Where("project_id = ? AND active = ?", project.ID, true).Count(&active)
	if active != 1 {
		t.Errorf("expected exactly one active assignment, got %d", active)
	}

	events, err := rec.PendingEvents(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	// assign, unassign+assign, unassign+assign
	if len(events) != 5 {
		t.Fatalf("expected 5 workflow events, got %d", len(events))
	}
	last := events[len(events)-1]
	if last.Type != workflow.EventAssigned {
		t.Errorf("expected last event %s, got %s", workflow.EventAssigned, last.Type)
	}
	var payload workflow.AssignmentPayload
	if err := json.Unmarshal(last.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.CandidateID != bob.ID || payload.ProjectID != project.ID {
		t.Errorf("unexpected payload %+v", payload)
	}

	ids := make([]uint, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	if err := rec.MarkDelivered(ctx, ids...); err != nil {
		t.Fatal(err)
	}
	events, err = rec.PendingEvents(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("expected no pending events, got %d", len(events))
	}
}

func TestGormRecorder_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.New(db)
	rec := workflow.NewGormRecorder(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p1, _ := repo.CreateProject(ctx, models.Project{Name: "One"}, nil)
	p2, _ := repo.CreateProject(ctx, models.Project{Name: "Two"}, nil)
	unconfigured, _ := repo.CreateCandidate(ctx, models.Candidate{Name: "Zero"})
	single, _ := repo.CreateCandidate(ctx, models.Candidate{Name: "Single", MaxProjects: 1})

	if _, err := rec.Assign(ctx, "missing", single.ID); !errors.Is(err, workflow.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
	if _, err := rec.Assign(ctx, p1.ID, "missing"); !errors.Is(err, workflow.ErrCandidateNotFound) {
		t.Errorf("expected ErrCandidateNotFound, got %v", err)
	}
	if _, err := rec.Assign(ctx, p1.ID, unconfigured.ID); !errors.Is(err, workflow.ErrCandidateAtCapacity) {
		t.Errorf("expected ErrCandidateAtCapacity for MaxProjects 0, got %v", err)
	}

	if _, err := rec.Assign(ctx, p1.ID, single.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.Assign(ctx, p2.ID, single.ID); !errors.Is(err, workflow.ErrCandidateAtCapacity) {
		t.Errorf("expected ErrCandidateAtCapacity, got %v", err)
	}

	if err := rec.Unassign(ctx, p2.ID); !errors.Is(err, workflow.ErrNotAssigned) {
		t.Errorf("expected ErrNotAssigned, got %v", err)
	}
	if err := rec.Unassign(ctx, p1.ID); err != nil {
		t.Fatalf("Unassign failed: %v", err)
	}

	cand, err := repo.GetCandidate(ctx, single.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cand.CurrentProjects != 0 {
		t.Errorf("expected 0 current projects after unassign, got %d", cand.CurrentProjects)
	}
}

func TestGormRecorder_ParentAssignmentCountsLeaves(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.New(db)
	rec := workflow.NewGormRecorder(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	parent, err := repo.CreateProject(ctx, models.Project{Name: "Harvest Week"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	var kids []models.Project
	for _, name := range []string{"Monday", "Wednesday", "Friday"} {
		kid, err := repo.CreateProject(ctx, models.Project{Name: name}, &parent.ID)
		if err != nil {
			t.Fatal(err)
		}
		kids = append(kids, kid)
	}
	single, _ := repo.CreateCandidate(ctx, models.Candidate{Name: "Single", MaxProjects: 1})
	triple, _ := repo.CreateCandidate(ctx, models.Candidate{Name: "Triple", MaxProjects: 3})

	if _, err := rec.Assign(ctx, parent.ID, single.ID); !errors.Is(err, workflow.ErrCandidateAtCapacity) {
		t.Errorf("expected ErrCandidateAtCapacity for three leaves over a limit of one, got %v", err)
	}
	got, err := repo.GetCandidate(ctx, single.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentProjects != 0 {
		t.Errorf("expected rejected assign to leave 0 current projects, got %d", got.CurrentProjects)
	}

	if _, err := rec.Assign(ctx, parent.ID, triple.ID); err != nil {
		t.Fatalf("Assign parent failed: %v", err)
	}
	got, err = repo.GetCandidate(ctx, triple.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentProjects != 3 {
		t.Errorf("expected 3 current projects, got %d", got.CurrentProjects)
	}

	// A leaf already covered by the parent adds nothing.
	if _, err := rec.Assign(ctx, kids[0].ID, triple.ID); err != nil {
		t.Errorf("assigning an already covered leaf failed: %v", err)
	}

	other, _ := repo.CreateProject(ctx, models.Project{Name: "Shelter"}, nil)
	if _, err := rec.Assign(ctx, other.ID, triple.ID); !errors.Is(err, workflow.ErrCandidateAtCapacity) {
		t.Errorf("expected ErrCandidateAtCapacity past the limit, got %v", err)
	}
}
