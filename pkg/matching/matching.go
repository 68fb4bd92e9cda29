package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/arnavshah/osc-matching-api/pkg/models"
)

// Weights holds one score contribution per dimension
type Weights struct {
	Gender    int `json:"gender" yaml:"gender"`
	Campus    int `json:"campus" yaml:"campus"`
	Day       int `json:"day" yaml:"day"`
	Time      int `json:"time" yaml:"time"`
	DayTime   int `json:"day_time" yaml:"day_time"`
	Selection int `json:"selection" yaml:"selection"`
}

// ScoreWeights pairs the reward table with the penalty table.
// Affirm applies when a dimension matches, Detract when it is missing or mismatched.
type ScoreWeights struct {
	Affirm  Weights `json:"affirm" yaml:"affirm"`
	Detract Weights `json:"detract" yaml:"detract"`
}

// DefaultWeights returns the reference weighting
func DefaultWeights() ScoreWeights {
	return ScoreWeights{
		Affirm: Weights{
			Gender:  100,
			Campus:  20,
			Day:     50,
			Time:    10,
			DayTime: 15,
		},
		Detract: Weights{
			Gender:    -1000,
			Campus:    -20,
			Day:       -25,
			Time:      -5,
			DayTime:   -10,
			Selection: -5,
		},
	}
}

// Pass is a single matching pass. It memoizes the max possible score per
// project and must not be shared between passes or goroutines.
type Pass struct {
	weights   ScoreWeights
	maxScores map[string]int
}

// NewPass creates a pass with its own empty max-score cache
func NewPass(weights ScoreWeights) *Pass {
	return &Pass{
		weights:   weights,
		maxScores: make(map[string]int),
	}
}

// Weights returns the weights this pass scores with
func (p *Pass) Weights() ScoreWeights {
	return p.weights
}

// MaxPossibleScore sums the Affirm weights of every dimension the project specifies
func (p *Pass) MaxPossibleScore(project *models.Project) int {
	if score, ok := p.maxScores[project.ID]; ok {
		return score
	}

	a := p.weights.Affirm
	score := 0
	if project.Gender != models.GenderUnspecified {
		score += a.Gender
	}
	if project.CampusID != nil {
		score += a.Campus
	}
	if project.Scheduled() {
		times := len(project.TimesOfDay())
		score += a.Day
		score += a.Time * times
		score += a.DayTime * times
	}

	p.maxScores[project.ID] = score
	return score
}

// RawScore returns the summed score terms for a pair, never below zero
func (p *Pass) RawScore(project *models.Project, candidate *models.Candidate) int {
	a, d := p.weights.Affirm, p.weights.Detract
	score := 0

	if project.Gender != models.GenderUnspecified {
		score += pick(candidate.Gender == project.Gender, a.Gender, d.Gender)
	}

	if project.CampusID != nil {
		sameCampus := candidate.CampusID != nil && *candidate.CampusID == *project.CampusID
		score += pick(sameCampus, a.Campus, d.Campus)
	}

	if project.Scheduled() {
		dayMatch := DayMatches(candidate.PreferredDays, project.DayOfWeek())
		score += pick(dayMatch, a.Day, d.Day)

		timeMatches := TimeMatchCount(candidate.PreferredTimes, project.TimesOfDay())
		if timeMatches > 0 {
			score += a.Time * timeMatches
		} else {
			score += d.Time
		}

		if dayMatch && timeMatches > 0 {
			score += a.DayTime * timeMatches
		} else {
			score += d.DayTime
		}
	}

	score += d.Selection * candidate.CurrentProjects

	if score < 0 {
		return 0
	}
	return score
}

// MatchScore returns the compatibility percentage (0-100, one decimal place).
// A project with nothing to match against scores 0.
func (p *Pass) MatchScore(project *models.Project, candidate *models.Candidate) float64 {
	maxScore := p.MaxPossibleScore(project)
	if maxScore <= 0 {
		return 0
	}
	pct := math.Round(float64(p.RawScore(project, candidate))/float64(maxScore)*1000) / 10
	return math.Min(pct, 100)
}

// Rank scores every candidate against the project, best first.
// Equal percentages keep their input order.
func (p *Pass) Rank(project *models.Project, candidates []models.Candidate) []models.CandidateMatch {
	matches := make([]models.CandidateMatch, len(candidates))
	for i := range candidates {
		matches[i] = models.CandidateMatch{
			Candidate:     candidates[i],
			Percentage:    p.MatchScore(project, &candidates[i]),
			CanBeAssigned: candidates[i].CanBeAssigned(),
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Percentage > matches[j].Percentage
	})
	return matches
}

// DayMatches reports whether any preferred day contains the day label, ignoring case
func DayMatches(preferredDays []string, day string) bool {
	if day == "" {
		return false
	}
	day = strings.ToLower(day)
	for _, pref := range preferredDays {
		if strings.Contains(strings.ToLower(pref), day) {
			return true
		}
	}
	return false
}

// TimeMatchCount counts preferred times found within any of the project's time labels
func TimeMatchCount(preferredTimes, projectTimes []string) int {
	count := 0
	for _, pref := range preferredTimes {
		pref = strings.ToLower(strings.TrimSpace(pref))
		if pref == "" {
			continue
		}
		for _, label := range projectTimes {
			if strings.Contains(strings.ToLower(label), pref) {
				count++
				break
			}
		}
	}
	return count
}

// FormatSuggestion renders the display string stored with a suggestion
func FormatSuggestion(name string, pct float64) string {
	return fmt.Sprintf("%s (%.1f%%)", name, pct)
}

func pick(ok bool, affirm, detract int) int {
	if ok {
		return affirm
	}
	return detract
}
