package matching

import (
	"testing"
	"time"

	"github.com/arnavshah/osc-matching-api/pkg/models"
)

func intPtr(i int) *int { return &i }

// tuesdayAfternoon returns a project on Tuesday 2024-06-04, 13:00-15:00.
func tuesdayAfternoon() models.Project {
	start := time.Date(2024, 6, 4, 13, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	return models.Project{
		ID:       "p1",
		Name:     "Food Pantry",
		Gender:   models.GenderFemale,
		CampusID: intPtr(5),
		StartsAt: &start,
		EndsAt:   &end,
		Capacity: 10,
	}
}

func matchingCandidate() models.Candidate {
	return models.Candidate{
		ID:             "c1",
		Name:           "Carol",
		Gender:         models.GenderFemale,
		CampusID:       intPtr(5),
		PreferredDays:  []string{"Tuesday"},
		PreferredTimes: []string{"Afternoon"},
		MaxProjects:    3,
	}
}

func TestMatchScore_PerfectMatch(t *testing.T) {
	project := tuesdayAfternoon()
	cand := matchingCandidate()
	pass := NewPass(DefaultWeights())

	if got := pass.RawScore(&project, &cand); got != 195 {
		t.Errorf("Expected raw score 195, got %d", got)
	}
	if got := pass.MaxPossibleScore(&project); got != 195 {
		t.Errorf("Expected max possible score 195, got %d", got)
	}
	if got := pass.MatchScore(&project, &cand); got != 100.0 {
		t.Errorf("Expected 100.0%%, got %.1f", got)
	}
}

func TestMatchScore_GenderMismatchDisqualifies(t *testing.T) {
	project := tuesdayAfternoon()
	cand := matchingCandidate()
	cand.Gender = models.GenderMale
	pass := NewPass(DefaultWeights())

	if got := pass.RawScore(&project, &cand); got != 0 {
		t.Errorf("Expected clamped raw score 0, got %d", got)
	}
	if got := pass.MatchScore(&project, &cand); got != 0 {
		t.Errorf("Expected 0.0%%, got %.1f", got)
	}
}

func TestRawScore_NeverNegative(t *testing.T) {
	project := tuesdayAfternoon()
	pass := NewPass(DefaultWeights())

	candidates := []models.Candidate{
		{ID: "a"},
		{ID: "b", Gender: models.GenderMale, CurrentProjects: 50},
		{ID: "c", Gender: models.GenderFemale, CurrentProjects: 100},
	}
	for _, c := range candidates {
		if got := pass.RawScore(&project, &c); got < 0 {
			t.Errorf("candidate %s: expected non-negative raw score, got %d", c.ID, got)
		}
	}
}

func TestMatchScore_CampusIgnoredWhenProjectHasNone(t *testing.T) {
	project := tuesdayAfternoon()
	project.CampusID = nil
	pass := NewPass(DefaultWeights())

	a := matchingCandidate()
	b := matchingCandidate()
	b.CampusID = intPtr(99)
	c := matchingCandidate()
	c.CampusID = nil

	sa := pass.MatchScore(&project, &a)
	if sb := pass.MatchScore(&project, &b); sb != sa {
		t.Errorf("Expected campus change to be ignored: %.1f vs %.1f", sa, sb)
	}
	if sc := pass.MatchScore(&project, &c); sc != sa {
		t.Errorf("Expected missing campus to be ignored: %.1f vs %.1f", sa, sc)
	}
	if sa != 100.0 {
		t.Errorf("Expected 100.0%% without a campus term, got %.1f", sa)
	}
}

func TestMatchScore_LoadPenaltyIsMonotonic(t *testing.T) {
	project := tuesdayAfternoon()
	pass := NewPass(DefaultWeights())

	prev := 101.0
	for load := 0; load < 50; load++ {
		cand := matchingCandidate()
		cand.CurrentProjects = load
		got := pass.MatchScore(&project, &cand)
		if got > prev {
			t.Fatalf("score increased from %.1f to %.1f at load %d", prev, got, load)
		}
		prev = got
	}
	if prev != 0 {
		t.Errorf("Expected a heavily loaded candidate to reach 0, got %.1f", prev)
	}
}

func TestDayMatches_CaseInsensitiveSubstring(t *testing.T) {
	tests := []struct {
		prefs []string
		day   string
		want  bool
	}{
		{[]string{"tuesday"}, "Tuesday", true},
		{[]string{"tuesday"}, "TUESDAY", true},
		{[]string{"Every Tuesday"}, "Tuesday", true},
		{[]string{"Monday", "Wednesday"}, "Tuesday", false},
		{nil, "Tuesday", false},
		{[]string{"Tuesday"}, "", false},
	}
	for _, tt := range tests {
		if got := DayMatches(tt.prefs, tt.day); got != tt.want {
			t.Errorf("DayMatches(%v, %q) = %v, want %v", tt.prefs, tt.day, got, tt.want)
		}
	}
}

func TestTimeMatchCount(t *testing.T) {
	tests := []struct {
		prefs  []string
		labels []string
		want   int
	}{
		{[]string{"Afternoon"}, []string{"Afternoon"}, 1},
		{[]string{"morning", "afternoon"}, []string{"Morning", "Afternoon"}, 2},
		{[]string{"noon"}, []string{"Afternoon"}, 1},
		{[]string{"Evening"}, []string{"Morning"}, 0},
		{[]string{"", "  "}, []string{"Morning"}, 0},
	}
	for _, tt := range tests {
		if got := TimeMatchCount(tt.prefs, tt.labels); got != tt.want {
			t.Errorf("TimeMatchCount(%v, %v) = %d, want %d", tt.prefs, tt.labels, got, tt.want)
		}
	}
}

func TestMatchScore_UnconstrainedProjectScoresZero(t *testing.T) {
	project := models.Project{ID: "open"}
	cand := matchingCandidate()
	pass := NewPass(DefaultWeights())

	if got := pass.MaxPossibleScore(&project); got != 0 {
		t.Fatalf("Expected max possible 0, got %d", got)
	}
	if got := pass.MatchScore(&project, &cand); got != 0 {
		t.Errorf("Expected 0%% for an unconstrained project, got %.1f", got)
	}
}

func TestMaxPossibleScore_UnscheduledSkipsScheduleTerms(t *testing.T) {
	project := tuesdayAfternoon()
	project.StartsAt = nil
	pass := NewPass(DefaultWeights())

	if got := pass.MaxPossibleScore(&project); got != 120 {
		t.Errorf("Expected 120 (gender + campus), got %d", got)
	}

	cand := matchingCandidate()
	cand.PreferredDays = nil
	cand.PreferredTimes = nil
	if got := pass.MatchScore(&project, &cand); got != 100.0 {
		t.Errorf("Expected schedule preferences to be irrelevant, got %.1f", got)
	}
}

func TestMaxPossibleScore_CountsEachTimeLabel(t *testing.T) {
	start := time.Date(2024, 6, 4, 11, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 4, 13, 0, 0, 0, time.UTC)
	project := models.Project{ID: "p2", StartsAt: &start, EndsAt: &end}
	pass := NewPass(DefaultWeights())

	// Day 50 + Time 10*2 + DayTime 15*2
	if got := pass.MaxPossibleScore(&project); got != 100 {
		t.Errorf("Expected 100, got %d", got)
	}

	cand := models.Candidate{
		ID:             "c",
		PreferredDays:  []string{"Tue", "Tuesday"},
		PreferredTimes: []string{"Morning", "Afternoon"},
	}
	if got := pass.MatchScore(&project, &cand); got != 100.0 {
		t.Errorf("Expected 100.0%%, got %.1f", got)
	}
}

func TestMatchScore_CappedAtHundred(t *testing.T) {
	project := tuesdayAfternoon()
	cand := matchingCandidate()
	cand.PreferredTimes = []string{"Afternoon", "noon", "after"}
	pass := NewPass(DefaultWeights())

	if got := pass.MatchScore(&project, &cand); got != 100.0 {
		t.Errorf("Expected score capped at 100.0, got %.1f", got)
	}
}

func TestPass_CacheIsScopedToPass(t *testing.T) {
	project := tuesdayAfternoon()

	first := NewPass(DefaultWeights())
	if got := first.MaxPossibleScore(&project); got != 195 {
		t.Fatalf("Expected 195, got %d", got)
	}

	w := DefaultWeights()
	w.Affirm.Gender = 200
	second := NewPass(w)
	if got := second.MaxPossibleScore(&project); got != 295 {
		t.Errorf("Expected new weights to be used by a new pass, got %d", got)
	}
}

func TestRank_OrdersByPercentage(t *testing.T) {
	project := tuesdayAfternoon()
	good := matchingCandidate()
	good.ID = "good"
	busy := matchingCandidate()
	busy.ID = "busy"
	busy.CurrentProjects = 2
	wrongCampus := matchingCandidate()
	wrongCampus.ID = "campus"
	wrongCampus.CampusID = intPtr(7)

	pass := NewPass(DefaultWeights())
	matches := pass.Rank(&project, []models.Candidate{wrongCampus, busy, good})

	want := []string{"good", "busy", "campus"}
	for i, id := range want {
		if matches[i].Candidate.ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, matches[i].Candidate.ID)
		}
	}
	if !matches[0].CanBeAssigned {
		t.Error("Expected good candidate to be assignable")
	}
}
