package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arnavshah/osc-matching-api/pkg/matching"
	"github.com/arnavshah/osc-matching-api/pkg/models"
	"github.com/arnavshah/osc-matching-api/pkg/repository"
	"github.com/arnavshah/osc-matching-api/pkg/workflow"
	"github.com/gin-gonic/gin"
)

// projectFilter reads ?campus_id=, ?from= and ?to= (RFC 3339)
func projectFilter(c *gin.Context) (repository.ProjectFilter, error) {
	var f repository.ProjectFilter
	if v := c.Query("campus_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.New("invalid campus_id")
		}
		f.CampusID = &id
	}
	for name, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("invalid %s: want RFC 3339", name)
		}
		*dst = &t
	}
	return f, nil
}

type projectRequest struct {
	models.Project
	ParentID *string `json:"parent_id"`
}

// CreateProject stores a new project
func (h *Handler) CreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if req.Scheduled() && req.EndsAt.Before(*req.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_at must not be before starts_at"})
		return
	}

	p, err := h.Repo.CreateProject(c.Request.Context(), req.Project, req.ParentID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "parent project not found"})
		return
	}
	if err != nil {
		h.Log.Error("create project failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create project"})
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListProjects returns stored projects. With ?block= the cached suggestions
// for that block are attached.
func (h *Handler) ListProjects(c *gin.Context) {
	ctx := c.Request.Context()

	filter, err := projectFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	projects, err := h.Repo.ListProjects(ctx, filter)
	if err != nil {
		h.Log.Error("list projects failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list projects"})
		return
	}

	if block := c.Query("block"); block != "" {
		sugs, err := h.Suggestions.Load(ctx, block)
		if err != nil {
			h.Log.Warn("suggestion cache unreadable", "block", block, "err", err)
		}
		for i := range projects {
			if s, ok := sugs[projects[i].ID]; ok {
				projects[i].SuggestedCoordinator = &models.PersonRef{ID: s.CandidateID, Name: s.Display}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// GetProject returns one stored project
func (h *Handler) GetProject(c *gin.Context) {
	p, err := h.Repo.GetProject(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err != nil {
		h.Log.Error("get project failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load project"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// ProjectCandidates ranks every stored candidate against a stored project
func (h *Handler) ProjectCandidates(c *gin.Context) {
	ctx := c.Request.Context()

	p, err := h.Repo.GetProject(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	if err != nil {
		h.Log.Error("get project failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load project"})
		return
	}

	candidates, err := h.Repo.ListCandidates(ctx)
	if err != nil {
		h.Log.Error("list candidates failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load candidates"})
		return
	}

	h.RecordUsage(c, 1, len(candidates))
	c.JSON(http.StatusOK, rankResponse(h.Weights, &p, candidates))
}

// AssignProject commits a coordinator for a project through the workflow recorder
func (h *Handler) AssignProject(c *gin.Context) {
	var req struct {
		CandidateID string `json:"candidate_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	projectID := c.Param("id")
	a, err := h.Recorder.Assign(c.Request.Context(), projectID, req.CandidateID)
	switch {
	case errors.Is(err, workflow.ErrProjectNotFound), errors.Is(err, workflow.ErrCandidateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, workflow.ErrCandidateAtCapacity):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.Log.Error("assign failed", "project_id", projectID, "candidate_id", req.CandidateID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not record assignment"})
		return
	}

	h.Log.Info("coordinator assigned", "project_id", projectID, "candidate_id", req.CandidateID)
	c.JSON(http.StatusOK, a)
}

// UnassignProject ends a project's current assignment
func (h *Handler) UnassignProject(c *gin.Context) {
	projectID := c.Param("id")
	err := h.Recorder.Unassign(c.Request.Context(), projectID)
	if errors.Is(err, workflow.ErrNotAssigned) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.Log.Error("unassign failed", "project_id", projectID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not end assignment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Assignment ended"})
}

// CreateCandidate stores a new candidate
func (h *Handler) CreateCandidate(c *gin.Context) {
	var req models.Candidate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if req.MaxProjects < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_projects must not be negative"})
		return
	}

	cand, err := h.Repo.CreateCandidate(c.Request.Context(), req)
	if err != nil {
		h.Log.Error("create candidate failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create candidate"})
		return
	}
	c.JSON(http.StatusCreated, cand)
}

// ListCandidates returns stored candidates with their current project counts
func (h *Handler) ListCandidates(c *gin.Context) {
	candidates, err := h.Repo.ListCandidates(c.Request.Context())
	if err != nil {
		h.Log.Error("list candidates failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list candidates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

// RunSuggestions runs a global assignment pass over stored projects that have
// no coordinator yet, directly or through a parent, and caches the result for
// the block.
func (h *Handler) RunSuggestions(c *gin.Context) {
	ctx := c.Request.Context()
	block := c.Param("block")

	filter, err := projectFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	all, err := h.Repo.ListProjects(ctx, filter)
	if err != nil {
		h.Log.Error("list projects failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load projects"})
		return
	}
	covered, err := h.Repo.CoveredProjectIDs(ctx)
	if err != nil {
		h.Log.Error("load assignments failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load assignments"})
		return
	}
	projects := all[:0]
	for _, p := range all {
		if p.CurrentCoordinator == nil && !covered[p.ID] {
			projects = append(projects, p)
		}
	}

	candidates, err := h.Repo.ListCandidates(ctx)
	if err != nil {
		h.Log.Error("list candidates failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load candidates"})
		return
	}

	res := matching.RunGlobalAssignment(h.Weights, projects, candidates)
	if err := h.Suggestions.Save(ctx, block, res.Suggestions); err != nil {
		h.Log.Error("save suggestions failed", "block", block, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save suggestions"})
		return
	}

	h.RecordUsage(c, len(projects), len(candidates))
	h.Log.Info("global assignment pass",
		"block", block,
		"projects", len(projects),
		"candidates", len(candidates),
		"suggested", len(res.Suggestions),
	)

	c.JSON(http.StatusOK, models.MatchResponse{
		Suggestions: res.Suggestions,
		Unmatched:   res.Unmatched,
	})
}

// GetSuggestions returns the cached suggestions for a block
func (h *Handler) GetSuggestions(c *gin.Context) {
	sugs, err := h.Suggestions.Load(c.Request.Context(), c.Param("block"))
	if err != nil {
		h.Log.Error("load suggestions failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load suggestions"})
		return
	}
	c.JSON(http.StatusOK, models.MatchResponse{Suggestions: sugs})
}

// ClearSuggestions drops the cached suggestions for a block
func (h *Handler) ClearSuggestions(c *gin.Context) {
	if err := h.Suggestions.Clear(c.Request.Context(), c.Param("block")); err != nil {
		h.Log.Error("clear suggestions failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not clear suggestions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Suggestions cleared"})
}
