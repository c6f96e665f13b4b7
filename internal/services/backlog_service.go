package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/metrics"
)

// BacklogService periodically publishes the number of undecided requests.
type BacklogService struct {
	requests *BlockRequestService
	schedule string
	cron     *cron.Cron
}

func NewBacklogService(requests *BlockRequestService, schedule string) *BacklogService {
	cronLogger := cron.VerbosePrintfLogger(log.New(logger.Writer(), "cron: ", 0))
	return &BacklogService{
		requests: requests,
		schedule: schedule,
		cron:     cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
	}
}

// Start registers the refresh job and starts the scheduler.
func (s *BacklogService) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() { _, _ = s.Refresh(context.Background()) }); err != nil {
		return fmt.Errorf("schedule backlog refresh %q: %w", s.schedule, err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running refresh to finish.
func (s *BacklogService) Stop() {
	<-s.cron.Stop().Done()
}

// Refresh counts undecided requests and publishes the result.
func (s *BacklogService) Refresh(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := s.requests.CountPending(ctx)
	if err != nil {
		logger.Log().WithError(err).Error("Failed to count pending block requests")
		return 0, err
	}
	metrics.SetPending(n)
	logger.Log().WithField("pending", n).Debug("Block request backlog refreshed")
	return n, nil
}
