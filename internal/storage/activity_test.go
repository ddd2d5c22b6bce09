package storage

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/s/lmsPortal/internal/database"
	"github.com/s/lmsPortal/internal/models"
)

func TestMemory_RecentIsNewestFirstPerUser(t *testing.T) {
	ctx := context.Background()
	m := &Memory{}
	m.Record(ctx, models.UserLog{UserID: 1, Action: models.ActionLogin})
	m.Record(ctx, models.UserLog{UserID: 2, Action: models.ActionLogin})
	m.Record(ctx, models.UserLog{UserID: 1, Action: models.ActionEnroll, Details: datatypes.JSONMap{"course_id": 4}})
	m.Record(ctx, models.UserLog{UserID: 1, Action: models.ActionLessonComplete})

	recent, err := m.Recent(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, models.ActionLessonComplete, recent[0].Action)
	assert.Equal(t, models.ActionEnroll, recent[1].Action)
	assert.Equal(t, 4, recent[1].Details["course_id"])

	assert.Equal(t, []string{"login", "login", "enroll", "lesson_complete"}, m.Actions())
}

func TestNop(t *testing.T) {
	var a Activity = Nop{}
	a.Record(context.Background(), models.UserLog{UserID: 1})
	logs, err := a.Recent(context.Background(), 1, 10)
	assert.NoError(t, err)
	assert.Empty(t, logs)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// every connection to :memory: is its own database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func TestGormActivity_RecentIsNewestFirstPerUser(t *testing.T) {
	ctx := context.Background()
	a := NewGormActivity(newTestDB(t))

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a.Record(ctx, models.UserLog{UserID: 1, Action: models.ActionLogin, CreatedAt: base})
	a.Record(ctx, models.UserLog{UserID: 2, Action: models.ActionLogin, CreatedAt: base.Add(time.Minute)})
	a.Record(ctx, models.UserLog{UserID: 1, Action: models.ActionEnroll, Details: datatypes.JSONMap{"course_id": 4}, CreatedAt: base.Add(2 * time.Minute)})
	a.Record(ctx, models.UserLog{UserID: 1, Action: models.ActionLessonComplete, RequestID: "req-7", CreatedAt: base.Add(3 * time.Minute)})

	recent, err := a.Recent(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, models.ActionLessonComplete, recent[0].Action)
	assert.Equal(t, "req-7", recent[0].RequestID)
	assert.Equal(t, models.ActionEnroll, recent[1].Action)
	assert.Equal(t, float64(4), recent[1].Details["course_id"])

	all, err := a.Recent(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	other, err := a.Recent(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, models.ActionLogin, other[0].Action)
}

func TestGormActivity_NilDetailsAreStoredEmpty(t *testing.T) {
	ctx := context.Background()
	a := NewGormActivity(newTestDB(t))

	a.Record(ctx, models.UserLog{UserID: 3, Action: models.ActionLogout})

	recent, err := a.Recent(ctx, 3, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.NotNil(t, recent[0].Details)
	assert.Empty(t, recent[0].Details)
	assert.False(t, recent[0].CreatedAt.IsZero())
}

func TestGormActivity_RecordSwallowsErrors(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&models.UserLog{}))
	a := NewGormActivity(db)

	require.NotPanics(t, func() {
		a.Record(context.Background(), models.UserLog{UserID: 1, Action: models.ActionLogin})
	})
	_, err := a.Recent(context.Background(), 1, 10)
	assert.Error(t, err)
}
