// Package store persists documented projects between runs. An update
// run loads the previous code and terminology from here so the change
// detector and the workers can reference them.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/docflow/types"
)

// Project statuses. A run flips the project to processing on start and
// to completed or error on finish; ResetStuck cleans up runs that died
// in between.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Project is the persisted record of a documented code base.
type Project struct {
	Name          string `gorm:"primaryKey;size:255"`
	Language      string `gorm:"size:64"`
	Status        string `gorm:"size:32;index"`
	Code          string
	Documentation string
	Terminology   string // JSON object, symbol -> meaning
	UpdatedAt     time.Time
}

func (Project) TableName() string { return "projects" }

// ProjectStore is a gorm-backed project registry.
type ProjectStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open creates or opens the sqlite database at path and migrates the
// schema. Use "file::memory:?cache=shared" for tests.
func Open(path string, logger *zap.Logger) (*ProjectStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, types.NewError(types.ErrCheckpointFailed, "open project store").WithCause(err)
	}
	if err := db.AutoMigrate(&Project{}); err != nil {
		return nil, types.NewError(types.ErrCheckpointFailed, "migrate project store").WithCause(err)
	}
	return &ProjectStore{
		db:     db,
		logger: logger.With(zap.String("component", "project_store")),
	}, nil
}

// Get loads a project by name.
func (s *ProjectStore) Get(ctx context.Context, name string) (*Project, error) {
	var p Project
	err := s.db.WithContext(ctx).First(&p, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrProjectNotFound, "project "+name+" not found")
	}
	if err != nil {
		return nil, types.NewError(types.ErrCheckpointFailed, "load project").WithCause(err)
	}
	return &p, nil
}

// Put inserts or replaces a project record.
func (s *ProjectStore) Put(ctx context.Context, p *Project) error {
	p.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return types.NewError(types.ErrCheckpointFailed, "save project").WithCause(err)
	}
	return nil
}

// SetStatus updates only the status column.
func (s *ProjectStore) SetStatus(ctx context.Context, name, status string) error {
	res := s.db.WithContext(ctx).Model(&Project{}).
		Where("name = ?", name).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return types.NewError(types.ErrCheckpointFailed, "update project status").WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewError(types.ErrProjectNotFound, "project "+name+" not found")
	}
	return nil
}

// List returns all projects, most recently updated first.
func (s *ProjectStore) List(ctx context.Context) ([]Project, error) {
	var out []Project
	err := s.db.WithContext(ctx).Order("updated_at desc").Find(&out).Error
	if err != nil {
		return nil, types.NewError(types.ErrCheckpointFailed, "list projects").WithCause(err)
	}
	return out, nil
}

// Delete removes a project. Deleting a missing project is not an error.
func (s *ProjectStore) Delete(ctx context.Context, name string) error {
	err := s.db.WithContext(ctx).Delete(&Project{}, "name = ?", name).Error
	if err != nil {
		return types.NewError(types.ErrCheckpointFailed, "delete project").WithCause(err)
	}
	return nil
}

// ResetStuck flips projects left in processing for longer than maxAge
// to error, returning how many were reset. Run it on startup so a
// crashed run does not block its project forever.
func (s *ProjectStore) ResetStuck(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res := s.db.WithContext(ctx).Model(&Project{}).
		Where("status = ? AND updated_at < ?", StatusProcessing, cutoff).
		Updates(map[string]any{"status": StatusError, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, types.NewError(types.ErrCheckpointFailed, "reset stuck projects").WithCause(res.Error)
	}
	if res.RowsAffected > 0 {
		s.logger.Warn("reset stuck projects", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// TerminologyMap decodes the stored terminology JSON. A missing or
// malformed blob yields an empty map rather than an error.
func (p *Project) TerminologyMap() map[string]string {
	out := make(map[string]string)
	if p.Terminology == "" {
		return out
	}
	if err := json.Unmarshal([]byte(p.Terminology), &out); err != nil {
		return map[string]string{}
	}
	return out
}

// SetTerminology encodes the terminology map into the record.
func (p *Project) SetTerminology(terms map[string]string) {
	if len(terms) == 0 {
		p.Terminology = ""
		return
	}
	data, err := json.Marshal(terms)
	if err != nil {
		return
	}
	p.Terminology = string(data)
}
