package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/glucoalert/alertcore/internal/datastore/v2/entities"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// setupAlertTestDB creates an in-memory SQLite database for alert tests.
// Uses a shared-cache database named after the test with a single
// connection so every operation sees the same data.
func setupAlertTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=ON", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gorm_logger.Default.LogMode(gorm_logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "failed to get sql.DB")
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(&entities.AlertType{}, &entities.AlertEntry{})
	require.NoError(t, err, "failed to migrate alert tables")
	return db
}

func strPtr(s string) *string { return &s }

// createTestType creates an enabled alert type with the given name.
func createTestType(t *testing.T, repo AlertTypeRepository, name string) *entities.AlertType {
	t.Helper()
	at := &entities.AlertType{
		Name:                       name,
		Enabled:                    true,
		Vibrate:                    true,
		SnoozeViaNotification:      true,
		DefaultSnoozePeriodMinutes: 60,
	}
	require.NoError(t, repo.Create(t.Context(), at))
	return at
}

// createTestEntry creates an entry for kind at start.
func createTestEntry(t *testing.T, repo AlertEntryRepository, kind, start, value int, typeID uint) *entities.AlertEntry {
	t.Helper()
	e := &entities.AlertEntry{Kind: kind, Start: start, Value: value, AlertTypeID: typeID}
	require.NoError(t, repo.Create(t.Context(), e))
	return e
}
