package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/docflow/types"
)

// checkpointRecord is the gorm row shape. The state travels as a JSON
// blob; the indexed columns exist for audit queries.
type checkpointRecord struct {
	RunID     string    `gorm:"primaryKey;column:run_id"`
	Stage     string    `gorm:"column:stage"`
	LoopCount int       `gorm:"column:loop_count"`
	Data      []byte    `gorm:"column:data"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (checkpointRecord) TableName() string { return "checkpoints" }

// SQLStore persists checkpoints through gorm. Pair it with the embedded
// SQLite driver for the CLI, or any other gorm dialect.
type SQLStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSQLStore creates the store and migrates its table.
func NewSQLStore(db *gorm.DB, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&checkpointRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate checkpoints table: %w", err)
	}
	return &SQLStore{
		db:     db,
		logger: logger.With(zap.String("store", "sql_checkpoint")),
	}, nil
}

// OpenSQLStore opens (or creates) a SQLite database at path and builds
// the store on it.
func OpenSQLStore(path string, logger *zap.Logger) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, types.NewError(types.ErrCheckpointFailed, "open checkpoint database").WithCause(err)
	}
	return NewSQLStore(db, logger)
}

func (s *SQLStore) Save(ctx context.Context, cp *Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	record := checkpointRecord{
		RunID:     cp.RunID,
		Stage:     cp.Stage,
		LoopCount: cp.LoopCount,
		Data:      data,
		UpdatedAt: cp.UpdatedAt,
	}

	err = s.db.WithContext(ctx).Save(&record).Error
	if err != nil {
		return types.NewError(types.ErrCheckpointFailed, "sql save failed").WithCause(err)
	}

	s.logger.Debug("checkpoint saved",
		zap.String("run_id", cp.RunID),
		zap.String("stage", cp.Stage),
	)
	return nil
}

func (s *SQLStore) Load(ctx context.Context, runID string) (*Checkpoint, error) {
	var record checkpointRecord
	err := s.db.WithContext(ctx).First(&record, "run_id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrRunNotFound, "no checkpoint for run "+runID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrCheckpointFailed, "sql load failed").WithCause(err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(record.Data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

func (s *SQLStore) Delete(ctx context.Context, runID string) error {
	return s.db.WithContext(ctx).Delete(&checkpointRecord{}, "run_id = ?", runID).Error
}
