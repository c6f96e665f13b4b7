package services

import (
	"context"

	"github.com/Wikid82/warden/internal/models"
)

// Notifier tells a submitter that their request was resolved.
type Notifier interface {
	NotifyResolved(ctx context.Context, req *models.BlockRequest) error
}

// FailureReporter makes notification failures visible to operators.
type FailureReporter interface {
	ReportDeliveryFailure(ctx context.Context, req *models.BlockRequest, cause error)
}

// Resolution captures a request's outcome before and after one update.
type Resolution struct {
	Before models.Outcome
	After  models.Outcome
}

// Resolved reports whether the update moved the request out of undecided.
// Changes between accepted and rejected do not count.
func (r Resolution) Resolved() bool {
	return !r.Before.Decided() && r.After.Decided()
}

// UpdateResult is returned by the update operations.
type UpdateResult struct {
	Request    *models.BlockRequest
	Resolution Resolution
	// NotificationErr is the delivery error, if a notification was attempted
	// and failed. The update itself is committed either way.
	NotificationErr error
}

// Notified reports whether a notification was attempted and succeeded.
func (r *UpdateResult) Notified() bool {
	return r.Resolution.Resolved() && r.NotificationErr == nil
}
