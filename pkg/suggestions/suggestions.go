package suggestions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/arnavshah/osc-matching-api/pkg/database"
	"github.com/arnavshah/osc-matching-api/pkg/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// settingKey is the block_settings name the cached pass is stored under
const settingKey = "suggested_coordinators"

// Store persists the last global assignment pass per block
type Store struct {
	db *gorm.DB
}

// New creates a store over db
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save replaces the cached suggestions for blockKey
func (s *Store) Save(ctx context.Context, blockKey string, sugs models.Suggestions) error {
	if sugs == nil {
		sugs = models.Suggestions{}
	}
	data, err := json.Marshal(sugs)
	if err != nil {
		return fmt.Errorf("suggestions: encode: %w", err)
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "block_key"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&database.BlockSetting{
		BlockKey: blockKey,
		Name:     settingKey,
		Value:    datatypes.JSON(data),
	}).Error
}

// Load returns the cached suggestions for blockKey, or an empty map
func (s *Store) Load(ctx context.Context, blockKey string) (models.Suggestions, error) {
	var setting database.BlockSetting
	err := s.db.WithContext(ctx).
		Where("block_key = ? AND name = ?", blockKey, settingKey).
		First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Suggestions{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := models.Suggestions{}
	if len(setting.Value) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(setting.Value, &out); err != nil {
		return nil, fmt.Errorf("suggestions: decode: %w", err)
	}
	return out, nil
}

// Clear drops the cached suggestions for blockKey
func (s *Store) Clear(ctx context.Context, blockKey string) error {
	return s.db.WithContext(ctx).
		Where("block_key = ? AND name = ?", blockKey, settingKey).
		Delete(&database.BlockSetting{}).Error
}
