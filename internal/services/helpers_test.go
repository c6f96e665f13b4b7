package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Wikid82/warden/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// setupFileTestDB returns a file-backed database limited to one connection,
// so concurrent callers queue instead of failing with SQLITE_BUSY.
func setupFileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warden.db")
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []models.BlockRequest
	err   error
}

func (n *recordingNotifier) NotifyResolved(_ context.Context, req *models.BlockRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, *req)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type recordingReporter struct {
	mu       sync.Mutex
	requests []uint
	causes   []error
}

func (r *recordingReporter) ReportDeliveryFailure(_ context.Context, req *models.BlockRequest, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req.ID)
	r.causes = append(r.causes, cause)
}

func ptr[T any](v T) *T {
	return &v
}

func validPayload() BlockRequestPayload {
	return BlockRequestPayload{
		Description: ptr("spam site"),
		Email:       ptr("a@b.com"),
		IP:          ptr("192.0.2.1"),
		Website:     &WebsitePayload{Domain: ptr("http://bad.example")},
	}
}

func admin() Caller {
	return Caller{UserID: 1, Privileged: true}
}
