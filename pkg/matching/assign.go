package matching

import (
	"fmt"

	"github.com/arnavshah/osc-matching-api/pkg/models"
)

// Result is the outcome of a global assignment pass
type Result struct {
	Suggestions models.Suggestions
	Unmatched   []models.UnmatchedProject
}

// RunGlobalAssignment picks the best assignable candidate for each project.
//
// Projects are handled independently and in input order. Candidates are not
// reserved, so the same candidate may be suggested for several projects in one
// run; suggestions are advisory only. Ties go to the earlier candidate.
func RunGlobalAssignment(weights ScoreWeights, projects []models.Project, candidates []models.Candidate) Result {
	pass := NewPass(weights)
	res := Result{Suggestions: make(models.Suggestions, len(projects))}

	for i := range projects {
		project := &projects[i]

		var best *models.Candidate
		bestScore := -1.0
		atCapacity := 0

		for j := range candidates {
			cand := &candidates[j]
			if !cand.CanBeAssigned() {
				atCapacity++
				continue
			}
			score := pass.MatchScore(project, cand)
			if best == nil || score > bestScore {
				best = cand
				bestScore = score
			}
		}

		if best != nil {
			res.Suggestions[project.ID] = models.Suggestion{
				ProjectID:     project.ID,
				CandidateID:   best.ID,
				CandidateName: best.Name,
				Percentage:    bestScore,
				Display:       FormatSuggestion(best.Name, bestScore),
			}
			continue
		}

		var reasons []string
		if atCapacity > 0 {
			reasons = append(reasons, fmt.Sprintf("%d candidates were at max projects", atCapacity))
		}
		if len(reasons) == 0 {
			reasons = append(reasons, "no candidates available")
		}
		res.Unmatched = append(res.Unmatched, models.UnmatchedProject{
			ProjectID: project.ID,
			Reasons:   reasons,
		})
	}

	return res
}
