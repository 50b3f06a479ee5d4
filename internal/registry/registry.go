// Package registry stores named demand monitors shared between users.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgtype"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chrissnell/demandmonitor/internal/database"
	"github.com/chrissnell/demandmonitor/internal/demand"
)

// ErrNotFound is returned when no active monitor matches a delete.
var ErrNotFound = errors.New("monitor not found")

// MonitorRecord is a row of demand_monitors. Deleting soft-deletes; at most
// one active row exists per key.
type MonitorRecord struct {
	ID         uint           `gorm:"primaryKey;column:monitor_id"`
	Key        string         `gorm:"column:monitor_key;not null;uniqueIndex:idx_demand_monitors_active_key,where:deleted_utc IS NULL"`
	Type       string         `gorm:"column:monitor_type;not null"`
	Definition pgtype.JSONB   `gorm:"column:definition;type:jsonb;not null"`
	Label      string         `gorm:"column:display_label;type:text"`
	CreatedBy  *string        `gorm:"column:created_by"`
	CreatedAt  time.Time      `gorm:"column:created_utc"`
	DeletedAt  gorm.DeletedAt `gorm:"column:deleted_utc;index"`
}

func (MonitorRecord) TableName() string {
	return "demand_monitors"
}

// Entry is the API view of a stored monitor.
type Entry struct {
	ID         uint               `json:"id"`
	Key        string             `json:"key"`
	Type       string             `json:"type"`
	Definition demand.MonitorSpec `json:"definition"`
	Label      string             `json:"label"`
	CreatedBy  *string            `json:"created_by"`
	CreatedUTC time.Time          `json:"created_utc"`
}

// CreateRequest is the body accepted by Create.
type CreateRequest struct {
	Definition demand.MonitorSpec `json:"definition"`
	Label      string             `json:"label,omitempty"`
	CreatedBy  *string            `json:"created_by,omitempty"`
}

// Registry persists monitors through gorm.
type Registry struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// Connect opens the registry database and creates its table.
func Connect(connectionString string, logger *zap.SugaredLogger) (*Registry, error) {
	db, err := database.CreateConnection(connectionString)
	if err != nil {
		return nil, fmt.Errorf("could not connect to monitor registry: %w", err)
	}
	r := New(db, logger)
	if err := r.CreateTables(); err != nil {
		return nil, err
	}
	return r, nil
}

// New wraps an open gorm connection.
func New(db *gorm.DB, logger *zap.SugaredLogger) *Registry {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Registry{db: db, logger: logger}
}

func (r *Registry) CreateTables() error {
	if err := r.db.AutoMigrate(MonitorRecord{}); err != nil {
		return fmt.Errorf("error creating or migrating demand monitor table: %w", err)
	}
	return nil
}

// List returns active monitors, newest first.
func (r *Registry) List(ctx context.Context) ([]Entry, error) {
	var records []MonitorRecord
	if err := r.db.WithContext(ctx).Order("created_utc DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("error listing monitors: %w", err)
	}

	entries := make([]Entry, 0, len(records))
	for i := range records {
		e, err := toEntry(&records[i])
		if err != nil {
			r.logger.Warnw("skipping unreadable monitor", "id", records[i].ID, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Create stores a monitor unless one with the same key is already active,
// in which case the existing entry is returned with created false.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (entry Entry, created bool, err error) {
	m, err := demand.ParseMonitor(req.Definition)
	if err != nil {
		return Entry{}, false, &demand.ValidationError{Index: -1, Reason: err.Error()}
	}

	existing, err := r.findActive(ctx, m.Key())
	if err != nil || existing != nil {
		return existing.entry(err)
	}

	record, err := newRecord(m, req.Label, req.CreatedBy)
	if err != nil {
		return Entry{}, false, err
	}
	// A concurrent create of the same key loses on the unique index.
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(record)
	if result.Error != nil {
		return Entry{}, false, fmt.Errorf("error creating monitor %s: %w", m.Key(), result.Error)
	}
	if result.RowsAffected == 0 {
		existing, err := r.findActive(ctx, m.Key())
		if err == nil && existing == nil {
			err = fmt.Errorf("monitor %s conflicted on insert but is not active", m.Key())
		}
		return existing.entry(err)
	}
	r.logger.Infow("registered monitor", "id", record.ID, "key", record.Key)

	e, err := toEntry(record)
	return e, true, err
}

// findActive returns the active record for key, or nil.
func (r *Registry) findActive(ctx context.Context, key string) (*MonitorRecord, error) {
	var rec MonitorRecord
	err := r.db.WithContext(ctx).Where("monitor_key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error looking up monitor %s: %w", key, err)
	}
	return &rec, nil
}

// entry converts an existing record for Create's not-created result.
func (rec *MonitorRecord) entry(err error) (Entry, bool, error) {
	if err != nil {
		return Entry{}, false, err
	}
	e, err := toEntry(rec)
	return e, false, err
}

// Delete soft-deletes by id when id > 0, otherwise by key.
func (r *Registry) Delete(ctx context.Context, id uint, key string) error {
	key = strings.TrimSpace(key)
	if id == 0 && key == "" {
		return &demand.ValidationError{Index: -1, Reason: "missing required parameter: id or monitor_key"}
	}

	tx := r.db.WithContext(ctx)
	if id > 0 {
		tx = tx.Where("monitor_id = ?", id)
	} else {
		tx = tx.Where("monitor_key = ?", key)
	}

	result := tx.Delete(&MonitorRecord{})
	if result.Error != nil {
		return fmt.Errorf("error deleting monitor: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func newRecord(m *demand.Monitor, label string, createdBy *string) (*MonitorRecord, error) {
	if label == "" {
		label = m.Label()
	}
	record := &MonitorRecord{
		Key:       m.Key(),
		Type:      string(m.Kind),
		Label:     label,
		CreatedBy: createdBy,
	}
	if err := record.Definition.Set(m.Spec()); err != nil {
		return nil, fmt.Errorf("could not encode monitor definition: %w", err)
	}
	return record, nil
}

func toEntry(rec *MonitorRecord) (Entry, error) {
	e := Entry{
		ID:         rec.ID,
		Key:        rec.Key,
		Type:       rec.Type,
		Label:      rec.Label,
		CreatedBy:  rec.CreatedBy,
		CreatedUTC: rec.CreatedAt.UTC(),
	}
	if err := rec.Definition.AssignTo(&e.Definition); err != nil {
		return Entry{}, fmt.Errorf("could not decode definition of monitor %d: %w", rec.ID, err)
	}
	return e, nil
}
