package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Gender is a tri-state value; the empty string means unspecified
type Gender string

const (
	GenderUnspecified Gender = ""
	GenderMale        Gender = "Male"
	GenderFemale      Gender = "Female"
)

// ParseGender maps free text onto a Gender. Anything unrecognised is unspecified.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return GenderMale
	case "female", "f":
		return GenderFemale
	default:
		return GenderUnspecified
	}
}

// UnmarshalJSON accepts any casing or abbreviation ParseGender does.
// Unrecognised values and null decode as unspecified.
func (g *Gender) UnmarshalJSON(data []byte) error {
	var s string
	if string(data) != "null" {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	*g = ParseGender(s)
	return nil
}

// PersonRef is an identifier plus display name
type PersonRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Project represents a slot that needs an on-site coordinator
type Project struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Location             string     `json:"location,omitempty"`
	Gender               Gender     `json:"gender,omitempty"`
	CampusID             *int       `json:"campus_id,omitempty"`
	StartsAt             *time.Time `json:"starts_at,omitempty"`
	EndsAt               *time.Time `json:"ends_at,omitempty"`
	Capacity             int        `json:"capacity"`
	CurrentCoordinator   *PersonRef `json:"current_coordinator,omitempty"`
	SuggestedCoordinator *PersonRef `json:"suggested_coordinator,omitempty"`
}

// Scheduled reports whether the project has both a start and an end
func (p *Project) Scheduled() bool {
	return p.StartsAt != nil && p.EndsAt != nil
}

// DayOfWeek returns the weekday name of the start, or "" when unscheduled
func (p *Project) DayOfWeek() string {
	if !p.Scheduled() {
		return ""
	}
	return p.StartsAt.Weekday().String()
}

// Time-of-day buckets, expressed as [start hour, end hour).
var timeOfDayBuckets = []struct {
	label      string
	start, end int
}{
	{"Morning", 0, 12},
	{"Afternoon", 12, 17},
	{"Evening", 17, 24},
}

// TimesOfDay returns every time-of-day label the scheduled interval touches.
// An interval that ends at or before its start yields only the start's label.
func (p *Project) TimesOfDay() []string {
	if !p.Scheduled() {
		return nil
	}
	start := *p.StartsAt
	end := p.EndsAt.In(start.Location())

	startMin := start.Hour()*60 + start.Minute()
	endMin := startMin
	if end.After(start) {
		if sameDay(start, end) {
			endMin = end.Hour()*60 + end.Minute()
		} else {
			endMin = 24 * 60
		}
	}

	var labels []string
	for _, b := range timeOfDayBuckets {
		lo, hi := b.start*60, b.end*60
		inStart := startMin >= lo && startMin < hi
		overlaps := startMin < hi && endMin > lo
		if inStart || overlaps {
			labels = append(labels, b.label)
		}
	}
	return labels
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Candidate represents a coordinator who can be assigned to projects
type Candidate struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Gender          Gender   `json:"gender,omitempty"`
	CampusID        *int     `json:"campus_id,omitempty"`
	PreferredDays   []string `json:"preferred_days"`
	PreferredTimes  []string `json:"preferred_times"`
	MaxProjects     int      `json:"max_projects"`
	CurrentProjects int      `json:"current_projects"`
	ExtraInfo       string   `json:"extra_info,omitempty"`
}

// CanBeAssigned reports whether the candidate has spare capacity.
// A MaxProjects of 0 means no capacity.
func (c *Candidate) CanBeAssigned() bool {
	return c.CurrentProjects < c.MaxProjects
}

// SplitPreferences parses a comma-separated preference string
func SplitPreferences(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CandidateMatch is a candidate together with its score against one project
type CandidateMatch struct {
	Candidate     Candidate `json:"candidate"`
	Percentage    float64   `json:"percentage"`
	CanBeAssigned bool      `json:"can_be_assigned"`
}

// Suggestion is the advisory best candidate for a project
type Suggestion struct {
	ProjectID     string  `json:"project_id"`
	CandidateID   string  `json:"candidate_id"`
	CandidateName string  `json:"candidate_name"`
	Percentage    float64 `json:"percentage"`
	Display       string  `json:"display"`
}

// Suggestions maps project ID to its suggestion
type Suggestions map[string]Suggestion

// UnmatchedProject explains why a project received no suggestion
type UnmatchedProject struct {
	ProjectID string   `json:"project_id"`
	Reasons   []string `json:"reasons"`
}

// MatchInput is the request body for the stateless matching endpoints
type MatchInput struct {
	Projects   []Project   `json:"projects"`
	Candidates []Candidate `json:"candidates"`
}

// MatchResponse is the result of a global assignment pass
type MatchResponse struct {
	Suggestions Suggestions        `json:"suggestions"`
	Unmatched   []UnmatchedProject `json:"unmatched,omitempty"`
}

// RankInput is the request body for ranking candidates against one project
type RankInput struct {
	Project    Project     `json:"project"`
	Candidates []Candidate `json:"candidates"`
}

// RankResponse lists candidates ordered by match percentage
type RankResponse struct {
	ProjectID       string           `json:"project_id"`
	MaxPossible     int              `json:"max_possible_score"`
	Matches         []CandidateMatch `json:"matches"`
	SuggestedMember *PersonRef       `json:"suggested,omitempty"`
}
