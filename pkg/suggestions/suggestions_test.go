package suggestions_test

import (
	"testing"

	"github.com/arnavshah/osc-matching-api/pkg/models"
	"github.com/arnavshah/osc-matching-api/pkg/suggestions"
	"github.com/arnavshah/osc-matching-api/pkg/testutil"
)

func TestStore_SaveLoadClear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := suggestions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	empty, err := store.Load(ctx, "block-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty suggestions, got %v", empty)
	}

	first := models.Suggestions{
		"p1": {ProjectID: "p1", CandidateID: "c1", CandidateName: "Carol", Percentage: 92.3, Display: "Carol (92.3%)"},
	}
	if err := store.Save(ctx, "block-1", first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second := models.Suggestions{
		"p2": {ProjectID: "p2", CandidateID: "c2", CandidateName: "Dan", Percentage: 50, Display: "Dan (50.0%)"},
	}
	if err := store.Save(ctx, "block-1", second); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if err := store.Save(ctx, "block-2", first); err != nil {
		t.Fatalf("Save to other block failed: %v", err)
	}

	got, err := store.Load(ctx, "block-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got["p2"].CandidateID != "c2" {
		t.Errorf("expected second save to replace the first, got %v", got)
	}

	other, err := store.Load(ctx, "block-2")
	if err != nil {
		t.Fatal(err)
	}
	if other["p1"].Display != "Carol (92.3%)" {
		t.Errorf("unexpected block-2 suggestions %v", other)
	}

	if err := store.Clear(ctx, "block-1"); err != nil {
		t.Fatal(err)
	}
	got, err = store.Load(ctx, "block-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected cleared suggestions, got %v", got)
	}
}
