package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	KeyPreview string     `json:"key_preview"`
	Name       string     `gorm:"not null" json:"name"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table
type APIUsage struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	KeyID           uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date            string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount    int    `gorm:"default:0" json:"request_count"`
	TotalProjects   int    `gorm:"default:0" json:"total_projects"`
	TotalCandidates int    `gorm:"default:0" json:"total_candidates"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Project represents the projects table. ParentID nests projects so that an
// assignment to a parent covers every project beneath it.
type Project struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	ParentID  *string    `gorm:"index;size:36" json:"parent_id,omitempty"`
	Name      string     `gorm:"not null" json:"name"`
	Location  string     `json:"location"`
	Gender    string     `json:"gender"`
	CampusID  *int       `gorm:"index" json:"campus_id"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
	Capacity  int        `json:"capacity"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Candidate represents the candidates table. Preferences keep their
// comma-separated source form.
type Candidate struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Gender         string    `json:"gender"`
	CampusID       *int      `gorm:"index" json:"campus_id"`
	PreferredDays  string    `json:"preferred_days"`
	PreferredTimes string    `json:"preferred_times"`
	MaxProjects    int       `gorm:"default:0" json:"max_projects"`
	ExtraInfo      string    `json:"extra_info"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Assignment represents the assignments table
type Assignment struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	ProjectID   string     `gorm:"index;not null;size:36" json:"project_id"`
	CandidateID string     `gorm:"index;not null;size:36" json:"candidate_id"`
	Active      bool       `gorm:"index;not null" json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// WorkflowEvent is an outbox row consumed by the external workflow system
type WorkflowEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Type        string         `gorm:"index;not null" json:"type"`
	Payload     datatypes.JSON `json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
	DeliveredAt *time.Time     `gorm:"index" json:"delivered_at,omitempty"`
}

// BlockSetting holds opaque per-block configuration
type BlockSetting struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	BlockKey  string         `gorm:"uniqueIndex:idx_block_setting;not null" json:"block_key"`
	Name      string         `gorm:"uniqueIndex:idx_block_setting;not null" json:"name"`
	Value     datatypes.JSON `json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// BeforeCreate assigns a UUID when none is set
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// BeforeCreate assigns a UUID when none is set
func (c *Candidate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// BeforeCreate assigns a UUID when none is set
func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Open connects to Postgres when databaseURL is set, otherwise to the SQLite
// file at dataPath, and migrates the schema.
func Open(databaseURL, dataPath string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	if databaseURL != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  databaseURL,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		db, err = gorm.Open(sqlite.Open(dataPath), &gorm.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&APIKey{},
		&APIUsage{},
		&MasterUser{},
		&Project{},
		&Candidate{},
		&Assignment{},
		&WorkflowEvent{},
		&BlockSetting{},
	)
	if err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}
	return nil
}
