package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arnavshah/osc-matching-api/pkg/matching"
	"github.com/arnavshah/osc-matching-api/pkg/models"
	"github.com/gin-gonic/gin"
)

// MatchJSON runs a global assignment pass over the posted projects and candidates
func (h *Handler) MatchJSON(c *gin.Context) {
	var input models.MatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if msg := validateMatchInput(input); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	res := matching.RunGlobalAssignment(h.Weights, input.Projects, input.Candidates)
	h.RecordUsage(c, len(input.Projects), len(input.Candidates))

	c.JSON(http.StatusOK, models.MatchResponse{
		Suggestions: res.Suggestions,
		Unmatched:   res.Unmatched,
	})
}

// Rank scores every posted candidate against one project
func (h *Handler) Rank(c *gin.Context) {
	var input models.RankInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.RecordUsage(c, 1, len(input.Candidates))
	c.JSON(http.StatusOK, rankResponse(h.Weights, &input.Project, input.Candidates))
}

func rankResponse(weights matching.ScoreWeights, project *models.Project, candidates []models.Candidate) models.RankResponse {
	pass := matching.NewPass(weights)
	resp := models.RankResponse{
		ProjectID:   project.ID,
		MaxPossible: pass.MaxPossibleScore(project),
		Matches:     pass.Rank(project, candidates),
	}
	for _, m := range resp.Matches {
		if m.CanBeAssigned {
			resp.SuggestedMember = &models.PersonRef{ID: m.Candidate.ID, Name: m.Candidate.Name}
			break
		}
	}
	return resp
}

// MatchCSV handles CSV file uploads for matching
func (h *Handler) MatchCSV(c *gin.Context) {
	projectsFile, _ := c.FormFile("projects_file")
	candidatesFile, _ := c.FormFile("candidates_file")

	if projectsFile == nil || candidatesFile == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projects_file and candidates_file are required"})
		return
	}

	projects, err := readCSV(projectsFile, parseProjectRow)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "projects_file: " + err.Error()})
		return
	}
	candidates, err := readCSV(candidatesFile, parseCandidateRow)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "candidates_file: " + err.Error()})
		return
	}
	if msg := validateMatchInput(models.MatchInput{Projects: projects, Candidates: candidates}); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	res := matching.RunGlobalAssignment(h.Weights, projects, candidates)
	h.RecordUsage(c, len(projects), len(candidates))

	var outCSV strings.Builder
	writer := csv.NewWriter(&outCSV)
	writer.Write([]string{"project_id", "project_name", "candidate_id", "candidate_name", "match_percentage"})
	for _, p := range projects {
		sug, ok := res.Suggestions[p.ID]
		if !ok {
			writer.Write([]string{p.ID, p.Name, "", "", ""})
			continue
		}
		writer.Write([]string{
			p.ID,
			p.Name,
			sug.CandidateID,
			sug.CandidateName,
			strconv.FormatFloat(sug.Percentage, 'f', 1, 64),
		})
	}
	writer.Flush()

	c.JSON(http.StatusOK, gin.H{
		"csv":       outCSV.String(),
		"unmatched": res.Unmatched,
	})
}

// csvRow gives fail-soft access to a record by header name
type csvRow struct {
	cols   map[string]int
	record []string
}

func (r csvRow) get(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r csvRow) number(name string) int {
	n, _ := strconv.Atoi(r.get(name))
	return n
}

func (r csvRow) optionalNumber(name string) *int {
	n, err := strconv.Atoi(r.get(name))
	if err != nil {
		return nil
	}
	return &n
}

func (r csvRow) timestamp(name string) *time.Time {
	v := r.get(name)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

func readCSV[T any](fh *multipart.FileHeader, parse func(csvRow) T) ([]T, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["id"]; !ok {
		return nil, fmt.Errorf("missing id column")
	}

	var out []T
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		row := csvRow{cols: cols, record: record}
		if row.get("id") == "" {
			continue
		}
		out = append(out, parse(row))
	}
	return out, nil
}

func parseProjectRow(row csvRow) models.Project {
	return models.Project{
		ID:       row.get("id"),
		Name:     row.get("name"),
		Location: row.get("location"),
		Gender:   models.ParseGender(row.get("gender")),
		CampusID: row.optionalNumber("campus_id"),
		StartsAt: row.timestamp("start"),
		EndsAt:   row.timestamp("end"),
		Capacity: row.number("capacity"),
	}
}

func parseCandidateRow(row csvRow) models.Candidate {
	return models.Candidate{
		ID:              row.get("id"),
		Name:            row.get("name"),
		Gender:          models.ParseGender(row.get("gender")),
		CampusID:        row.optionalNumber("campus_id"),
		PreferredDays:   models.SplitPreferences(row.get("preferred_days")),
		PreferredTimes:  models.SplitPreferences(row.get("preferred_times")),
		MaxProjects:     row.number("max_projects"),
		CurrentProjects: row.number("current_projects"),
		ExtraInfo:       row.get("extra_info"),
	}
}
