// Package storage persists what the portal itself owns: an audit trail of
// user actions. Course data lives in the LMS backend.
package storage

import (
	"context"
	"log"
	"sync"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/s/lmsPortal/internal/models"
)

// Activity records user actions. Recording never fails a page.
type Activity interface {
	Record(ctx context.Context, entry models.UserLog)
	Recent(ctx context.Context, userID int64, limit int) ([]models.UserLog, error)
}

// GormActivity writes to the user_logs table.
type GormActivity struct {
	db *gorm.DB
}

func NewGormActivity(db *gorm.DB) *GormActivity {
	return &GormActivity{db: db}
}

func (a *GormActivity) Record(ctx context.Context, entry models.UserLog) {
	if entry.Details == nil {
		entry.Details = datatypes.JSONMap{}
	}
	if err := a.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("Failed to record %s for user %d: %v", entry.Action, entry.UserID, err)
	}
}

// Recent returns the user's latest actions, newest first.
func (a *GormActivity) Recent(ctx context.Context, userID int64, limit int) ([]models.UserLog, error) {
	var logs []models.UserLog
	err := a.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// Nop is used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, models.UserLog) {}

func (Nop) Recent(context.Context, int64, int) ([]models.UserLog, error) { return nil, nil }

// Memory keeps entries in process; used by tests and single-node demos.
type Memory struct {
	mu      sync.Mutex
	entries []models.UserLog
}

func (m *Memory) Record(_ context.Context, entry models.UserLog) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.ID = uint(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
}

func (m *Memory) Recent(_ context.Context, userID int64, limit int) ([]models.UserLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.UserLog
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].UserID == userID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

// Actions lists recorded actions in order.
func (m *Memory) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

var (
	_ Activity = (*GormActivity)(nil)
	_ Activity = Nop{}
	_ Activity = (*Memory)(nil)
)
