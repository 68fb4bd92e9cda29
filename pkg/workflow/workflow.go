package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/arnavshah/osc-matching-api/pkg/database"
	"github.com/arnavshah/osc-matching-api/pkg/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrProjectNotFound     = errors.New("workflow: project not found")
	ErrCandidateNotFound   = errors.New("workflow: candidate not found")
	ErrCandidateAtCapacity = errors.New("workflow: candidate is at max projects")
	ErrNotAssigned         = errors.New("workflow: project has no active assignment")
)

// Event types written to the outbox
const (
	EventAssigned   = "coordinator.assigned"
	EventUnassigned = "coordinator.unassigned"
)

// Recorder commits coordinator assignments
type Recorder interface {
	Assign(ctx context.Context, projectID, candidateID string) (database.Assignment, error)
	Unassign(ctx context.Context, projectID string) error
}

// Outbox is drained by the dispatcher that feeds the external workflow system
type Outbox interface {
	PendingEvents(ctx context.Context, limit int) ([]database.WorkflowEvent, error)
	MarkDelivered(ctx context.Context, ids ...uint) error
}

// AssignmentPayload is the JSON body of a workflow event
type AssignmentPayload struct {
	AssignmentID string    `json:"assignment_id"`
	ProjectID    string    `json:"project_id"`
	CandidateID  string    `json:"candidate_id"`
	At           time.Time `json:"at"`
}

// GormRecorder stores assignments and queues workflow events in one transaction
type GormRecorder struct {
	db   *gorm.DB
	repo *repository.Repository
}

// NewGormRecorder creates a recorder over db
func NewGormRecorder(db *gorm.DB) *GormRecorder {
	return &GormRecorder{db: db, repo: repository.New(db)}
}

// Assign makes candidateID the project's coordinator, ending any prior assignment.
// Every leaf project the assignment would newly cover counts against the
// candidate's MaxProjects.
func (r *GormRecorder) Assign(ctx context.Context, projectID, candidateID string) (database.Assignment, error) {
	var out database.Assignment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)

		if _, err := repo.GetProject(ctx, projectID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrProjectNotFound
			}
			return err
		}
		cand, err := lockCandidate(tx, candidateID)
		if err != nil {
			return err
		}

		covered, err := repo.CoveredProjects(ctx)
		if err != nil {
			return err
		}
		leaves, err := repo.LeafProjects(ctx, projectID)
		if err != nil {
			return err
		}
		held := covered[candidateID]
		added := 0
		for id := range leaves {
			if _, ok := held[id]; !ok {
				added++
			}
		}
		if added > 0 && len(held)+added > cand.MaxProjects {
			return ErrCandidateAtCapacity
		}

		var prior []database.Assignment
		if err := tx.Where("project_id = ? AND active = ?", projectID, true).Find(&prior).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, a := range prior {
			if err := endAssignment(tx, a, now); err != nil {
				return err
			}
		}

		out = database.Assignment{
			ProjectID:   projectID,
			CandidateID: candidateID,
			Active:      true,
		}
		if err := tx.Create(&out).Error; err != nil {
			return err
		}
		return enqueue(tx, EventAssigned, out, now)
	})
	return out, err
}

// lockCandidate loads the candidate row. On Postgres the row stays locked
// until tx ends so concurrent commits for one candidate serialize.
func lockCandidate(tx *gorm.DB, candidateID string) (database.Candidate, error) {
	var cand database.Candidate
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Where("id = ?", candidateID).First(&cand).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cand, ErrCandidateNotFound
	}
	return cand, err
}

// Unassign ends the project's active assignment
func (r *GormRecorder) Unassign(ctx context.Context, projectID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior []database.Assignment
		if err := tx.Where("project_id = ? AND active = ?", projectID, true).Find(&prior).Error; err != nil {
			return err
		}
		if len(prior) == 0 {
			return ErrNotAssigned
		}

		now := time.Now().UTC()
		for _, a := range prior {
			if err := endAssignment(tx, a, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// PendingEvents returns undelivered outbox events, oldest first
func (r *GormRecorder) PendingEvents(ctx context.Context, limit int) ([]database.WorkflowEvent, error) {
	var events []database.WorkflowEvent
	err := r.db.WithContext(ctx).
		Where("delivered_at IS NULL").
		Order("id").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// MarkDelivered flags outbox events as handed to the workflow system
func (r *GormRecorder) MarkDelivered(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&database.WorkflowEvent{}).
		Where("id IN ?", ids).
		Update("delivered_at", time.Now().UTC()).Error
}

func endAssignment(tx *gorm.DB, a database.Assignment, now time.Time) error {
	err := tx.Model(&database.Assignment{}).
		Where("id = ?", a.ID).
		Updates(map[string]interface{}{"active": false, "ended_at": now}).Error
	if err != nil {
		return err
	}
	return enqueue(tx, EventUnassigned, a, now)
}

func enqueue(tx *gorm.DB, eventType string, a database.Assignment, now time.Time) error {
	payload, err := json.Marshal(AssignmentPayload{
		AssignmentID: a.ID,
		ProjectID:    a.ProjectID,
		CandidateID:  a.CandidateID,
		At:           now,
	})
	if err != nil {
		return err
	}
	return tx.Create(&database.WorkflowEvent{
		Type:    eventType,
		Payload: datatypes.JSON(payload),
	}).Error
}
