package handlers

import (
	"net/http"

	"github.com/arnavshah/osc-matching-api/pkg/models"
	"github.com/gin-gonic/gin"
)

// ValidateInput checks a matching request without scoring it
func (h *Handler) ValidateInput(c *gin.Context) {
	var input models.MatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	if msg := validateMatchInput(input); msg != "" {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": msg})
		return
	}

	// Warnings do not invalidate the input; they flag projects that
	// will score every candidate at 0%.
	var warnings []string
	for i := range input.Projects {
		p := &input.Projects[i]
		if p.Gender == models.GenderUnspecified && p.CampusID == nil && !p.Scheduled() {
			warnings = append(warnings, "Project "+p.ID+" has no gender, campus, or schedule to match against")
		}
	}

	assignable := 0
	for i := range input.Candidates {
		if input.Candidates[i].CanBeAssigned() {
			assignable++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"warnings": warnings,
		"stats": gin.H{
			"project_count":              len(input.Projects),
			"candidate_count":            len(input.Candidates),
			"assignable_candidate_count": assignable,
		},
	})
}

// validateMatchInput returns a message describing the first problem, or ""
func validateMatchInput(input models.MatchInput) string {
	if len(input.Projects) == 0 {
		return "At least one project is required"
	}
	if len(input.Candidates) == 0 {
		return "At least one candidate is required"
	}

	projectIDs := make(map[string]bool)
	for _, p := range input.Projects {
		if p.ID == "" {
			return "Every project needs an id"
		}
		if projectIDs[p.ID] {
			return "Duplicate project ID: " + p.ID
		}
		projectIDs[p.ID] = true
	}

	candidateIDs := make(map[string]bool)
	for _, cand := range input.Candidates {
		if cand.ID == "" {
			return "Every candidate needs an id"
		}
		if candidateIDs[cand.ID] {
			return "Duplicate candidate ID: " + cand.ID
		}
		candidateIDs[cand.ID] = true
	}
	return ""
}
