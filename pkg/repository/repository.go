package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/arnavshah/osc-matching-api/pkg/database"
	"github.com/arnavshah/osc-matching-api/pkg/models"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a project or candidate does not exist
var ErrNotFound = errors.New("repository: not found")

// Repository loads projects and candidates for matching
type Repository struct {
	db        *gorm.DB
	sanitizer *bluemonday.Policy
}

// New creates a repository over db
func New(db *gorm.DB) *Repository {
	return &Repository{
		db:        db,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// WithTx returns a repository that runs every query inside tx
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx, sanitizer: r.sanitizer}
}

// ProjectFilter narrows ListProjects. Zero values match everything.
type ProjectFilter struct {
	CampusID *int
	From     *time.Time // projects starting at or after
	To       *time.Time // projects starting before
}

// CreateProject stores a project, optionally nested under parentID
func (r *Repository) CreateProject(ctx context.Context, p models.Project, parentID *string) (models.Project, error) {
	if parentID != nil {
		if _, err := r.getProjectRecord(ctx, *parentID); err != nil {
			return models.Project{}, err
		}
	}

	rec := database.Project{
		ID:       p.ID,
		ParentID: parentID,
		Name:     strings.TrimSpace(p.Name),
		Location: strings.TrimSpace(p.Location),
		Gender:   string(p.Gender),
		CampusID: p.CampusID,
		StartsAt: p.StartsAt,
		EndsAt:   p.EndsAt,
		Capacity: p.Capacity,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return models.Project{}, err
	}
	return decodeProject(rec), nil
}

// CreateCandidate stores a candidate. Free-text extra info is stripped of markup.
func (r *Repository) CreateCandidate(ctx context.Context, c models.Candidate) (models.Candidate, error) {
	rec := database.Candidate{
		ID:             c.ID,
		Name:           strings.TrimSpace(c.Name),
		Gender:         string(c.Gender),
		CampusID:       c.CampusID,
		PreferredDays:  strings.Join(c.PreferredDays, ", "),
		PreferredTimes: strings.Join(c.PreferredTimes, ", "),
		MaxProjects:    c.MaxProjects,
		ExtraInfo:      r.sanitizer.Sanitize(c.ExtraInfo),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return models.Candidate{}, err
	}
	return decodeCandidate(rec), nil
}

// GetProject returns one project with its current coordinator resolved
func (r *Repository) GetProject(ctx context.Context, id string) (models.Project, error) {
	rec, err := r.getProjectRecord(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	p := decodeProject(rec)

	coordinators, err := r.currentCoordinators(ctx, []string{id})
	if err != nil {
		return models.Project{}, err
	}
	if ref, ok := coordinators[id]; ok {
		p.CurrentCoordinator = &ref
	}
	return p, nil
}

// ListProjects returns projects matching the filter, ordered by name
func (r *Repository) ListProjects(ctx context.Context, f ProjectFilter) ([]models.Project, error) {
	q := r.db.WithContext(ctx).Model(&database.Project{})
	if f.CampusID != nil {
		q = q.Where("campus_id = ?", *f.CampusID)
	}
	if f.From != nil {
		q = q.Where("starts_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("starts_at < ?", *f.To)
	}

	var recs []database.Project
	if err := q.Order("name, id").Find(&recs).Error; err != nil {
		return nil, err
	}

	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	coordinators, err := r.currentCoordinators(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.Project, len(recs))
	for i, rec := range recs {
		out[i] = decodeProject(rec)
		if ref, ok := coordinators[rec.ID]; ok {
			out[i].CurrentCoordinator = &ref
		}
	}
	return out, nil
}

// GetCandidate returns one candidate with its current project count
func (r *Repository) GetCandidate(ctx context.Context, id string) (models.Candidate, error) {
	var rec database.Candidate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Candidate{}, ErrNotFound
	}
	if err != nil {
		return models.Candidate{}, err
	}

	counts, err := r.CurrentProjectCounts(ctx)
	if err != nil {
		return models.Candidate{}, err
	}
	c := decodeCandidate(rec)
	c.CurrentProjects = counts[c.ID]
	return c, nil
}

// ListCandidates returns every candidate ordered by name, with current project counts
func (r *Repository) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	var recs []database.Candidate
	if err := r.db.WithContext(ctx).Order("name, id").Find(&recs).Error; err != nil {
		return nil, err
	}

	counts, err := r.CurrentProjectCounts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Candidate, len(recs))
	for i, rec := range recs {
		out[i] = decodeCandidate(rec)
		out[i].CurrentProjects = counts[rec.ID]
	}
	return out, nil
}

// CurrentProjectCounts returns, per candidate, the number of distinct projects
// covered by their active assignments. An assignment to a parent project
// counts every leaf project beneath it.
func (r *Repository) CurrentProjectCounts(ctx context.Context) (map[string]int, error) {
	covered, err := r.CoveredProjects(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(covered))
	for candID, set := range covered {
		counts[candID] = len(set)
	}
	return counts, nil
}

// CoveredProjects returns, per candidate, the leaf projects their active
// assignments cover
func (r *Repository) CoveredProjects(ctx context.Context) (map[string]map[string]struct{}, error) {
	assignments, err := r.activeAssignments(ctx)
	if err != nil {
		return nil, err
	}
	covered := make(map[string]map[string]struct{})
	if len(assignments) == 0 {
		return covered, nil
	}

	children, err := r.projectChildren(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		set, ok := covered[a.CandidateID]
		if !ok {
			set = make(map[string]struct{})
			covered[a.CandidateID] = set
		}
		walkProjects(a.ProjectID, children, make(map[string]bool), func(id string, leaf bool) {
			if leaf {
				set[id] = struct{}{}
			}
		})
	}
	return covered, nil
}

// LeafProjects returns the leaf projects an assignment to projectID covers.
// A project without children covers only itself.
func (r *Repository) LeafProjects(ctx context.Context, projectID string) (map[string]struct{}, error) {
	children, err := r.projectChildren(ctx)
	if err != nil {
		return nil, err
	}
	leaves := make(map[string]struct{})
	walkProjects(projectID, children, make(map[string]bool), func(id string, leaf bool) {
		if leaf {
			leaves[id] = struct{}{}
		}
	})
	return leaves, nil
}

// CoveredProjectIDs returns every project that has an active assignment of
// its own or sits beneath one
func (r *Repository) CoveredProjectIDs(ctx context.Context) (map[string]bool, error) {
	assignments, err := r.activeAssignments(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	if len(assignments) == 0 {
		return out, nil
	}

	children, err := r.projectChildren(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		walkProjects(a.ProjectID, children, make(map[string]bool), func(id string, _ bool) {
			out[id] = true
		})
	}
	return out, nil
}

func (r *Repository) activeAssignments(ctx context.Context) ([]database.Assignment, error) {
	var assignments []database.Assignment
	err := r.db.WithContext(ctx).Where("active = ?", true).Find(&assignments).Error
	return assignments, err
}

// projectChildren maps a parent project ID to its direct children
func (r *Repository) projectChildren(ctx context.Context) (map[string][]string, error) {
	var links []struct {
		ID       string
		ParentID *string
	}
	if err := r.db.WithContext(ctx).Model(&database.Project{}).Select("id, parent_id").Find(&links).Error; err != nil {
		return nil, err
	}
	children := make(map[string][]string)
	for _, l := range links {
		if l.ParentID != nil {
			children[*l.ParentID] = append(children[*l.ParentID], l.ID)
		}
	}
	return children, nil
}

// walkProjects visits id and everything beneath it once
func walkProjects(id string, children map[string][]string, seen map[string]bool, visit func(id string, leaf bool)) {
	if seen[id] {
		return
	}
	seen[id] = true

	kids := children[id]
	visit(id, len(kids) == 0)
	for _, kid := range kids {
		walkProjects(kid, children, seen, visit)
	}
}

// currentCoordinators maps project ID to the candidate actively assigned to it
func (r *Repository) currentCoordinators(ctx context.Context, projectIDs []string) (map[string]models.PersonRef, error) {
	out := make(map[string]models.PersonRef)
	if len(projectIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		ProjectID     string
		CandidateID   string
		CandidateName string
	}
	err := r.db.WithContext(ctx).
		Table("assignments").
		Select("assignments.project_id, assignments.candidate_id, candidates.name AS candidate_name").
		Joins("JOIN candidates ON candidates.id = assignments.candidate_id").
		Where("assignments.active = ? AND assignments.project_id IN ?", true, projectIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.ProjectID] = models.PersonRef{ID: row.CandidateID, Name: row.CandidateName}
	}
	return out, nil
}

func (r *Repository) getProjectRecord(ctx context.Context, id string) (database.Project, error) {
	var rec database.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, ErrNotFound
	}
	return rec, err
}

func decodeProject(rec database.Project) models.Project {
	return models.Project{
		ID:       rec.ID,
		Name:     rec.Name,
		Location: rec.Location,
		Gender:   models.ParseGender(rec.Gender),
		CampusID: rec.CampusID,
		StartsAt: rec.StartsAt,
		EndsAt:   rec.EndsAt,
		Capacity: rec.Capacity,
	}
}

func decodeCandidate(rec database.Candidate) models.Candidate {
	return models.Candidate{
		ID:             rec.ID,
		Name:           rec.Name,
		Gender:         models.ParseGender(rec.Gender),
		CampusID:       rec.CampusID,
		PreferredDays:  models.SplitPreferences(rec.PreferredDays),
		PreferredTimes: models.SplitPreferences(rec.PreferredTimes),
		MaxProjects:    rec.MaxProjects,
		ExtraInfo:      rec.ExtraInfo,
	}
}
