package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/database"
	"github.com/Wikid82/warden/internal/models"
)

func decide(o models.Outcome) BlockRequestPayload {
	return BlockRequestPayload{Outcome: OptionalOutcome{Set: true, Value: o}}
}

func TestBlockRequestService_ConcurrentResolutionNotifiesOnce(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "race.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)
	t.Cleanup(func() { _ = sqlDB.Close() })

	notifier := &recordingNotifier{}
	svc := NewBlockRequestService(db, notifier, nil)
	ctx := context.Background()

	const rounds = 20
	for i := 0; i < rounds; i++ {
		req, err := svc.Create(ctx, Anonymous(), validPayload())
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j, outcome := range []models.Outcome{models.OutcomeAccepted, models.OutcomeRejected} {
			wg.Add(1)
			go func(j int, outcome models.Outcome) {
				defer wg.Done()
				_, errs[j] = svc.Patch(ctx, admin(), req.ID, decide(outcome))
			}(j, outcome)
		}
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
	}

	perRequest := map[uint]int{}
	notifier.mu.Lock()
	for _, call := range notifier.calls {
		perRequest[call.ID]++
	}
	notifier.mu.Unlock()

	assert.Len(t, perRequest, rounds)
	for id, n := range perRequest {
		assert.Equal(t, 1, n, "block request %d", id)
	}
}

// raceOutcome registers an update hook that flips the stored outcome inside
// the running transaction, the way a competing writer would, for the first
// times calls.
func raceOutcome(t *testing.T, db *gorm.DB, times int) *int {
	t.Helper()
	fired := 0
	err := db.Callback().Update().Before("gorm:update").Register("test:race_outcome", func(tx *gorm.DB) {
		if tx.Statement.Table != "block_requests" || fired >= times {
			return
		}
		fired++
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE block_requests SET outcome = ? WHERE id = ?", models.OutcomeRejected, tx.Statement.Dest.(*models.BlockRequest).ID)
	})
	require.NoError(t, err)
	return &fired
}

func TestBlockRequestService_Patch_RetriesWhenOutcomeChanges(t *testing.T) {
	db := setupTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewBlockRequestService(db, notifier, nil)
	ctx := context.Background()

	req, err := svc.Create(ctx, Anonymous(), validPayload())
	require.NoError(t, err)

	fired := raceOutcome(t, db, 1)
	res, err := svc.Patch(ctx, admin(), req.ID, decide(models.OutcomeAccepted))
	require.NoError(t, err)
	assert.Equal(t, 1, *fired)

	// The first attempt rolled back; the second saw the row undecided again.
	assert.True(t, res.Resolution.Resolved())
	assert.Equal(t, 1, notifier.count())

	stored, err := svc.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAccepted, stored.Outcome)
}

func TestBlockRequestService_Patch_GivesUpAfterRepeatedConflicts(t *testing.T) {
	db := setupTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewBlockRequestService(db, notifier, nil)
	ctx := context.Background()

	req, err := svc.Create(ctx, Anonymous(), validPayload())
	require.NoError(t, err)

	fired := raceOutcome(t, db, maxUpdateAttempts)
	_, err = svc.Patch(ctx, admin(), req.ID, BlockRequestPayload{
		Description: ptr("changed"),
		Outcome:     OptionalOutcome{Set: true, Value: models.OutcomeAccepted},
	})
	assert.ErrorIs(t, err, ErrUpdateConflict)
	assert.Equal(t, maxUpdateAttempts, *fired)
	assert.Zero(t, notifier.count())

	stored, err := svc.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUndecided, stored.Outcome)
	assert.Equal(t, "spam site", stored.Description)
}
