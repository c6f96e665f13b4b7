package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/metrics"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/util"
)

// maxUpdateAttempts bounds how often an update is re-applied after another
// writer changed the outcome underneath it.
const maxUpdateAttempts = 3

var errOutcomeRaced = errors.New("outcome changed by a concurrent update")

// ListFilter narrows the block request listing. A nil Resolved returns
// requests in any state.
type ListFilter struct {
	Domain   string
	Resolved *bool
}

// BlockRequestService validates, authorizes and persists block requests and
// runs the resolution workflow on updates.
type BlockRequestService struct {
	db       *gorm.DB
	notifier Notifier
	reporter FailureReporter
}

func NewBlockRequestService(db *gorm.DB, notifier Notifier, reporter FailureReporter) *BlockRequestService {
	return &BlockRequestService{db: db, notifier: notifier, reporter: reporter}
}

// Create validates a submission and stores it. Callers without privileges
// always produce an undecided request. Creation never notifies.
func (s *BlockRequestService) Create(ctx context.Context, caller Caller, p BlockRequestPayload) (*models.BlockRequest, error) {
	verr := &ValidationError{}
	requireFields(verr, p)
	if !verr.empty() {
		return nil, verr
	}

	candidate := candidateFrom(p, blockRequestCandidate{})
	if err := validateCandidate(candidate); err != nil {
		return nil, err
	}

	outcome := models.OutcomeUndecided
	if caller.Privileged && p.Outcome.Set {
		outcome = p.Outcome.Value
	}

	req := &models.BlockRequest{
		Description: candidate.Description,
		Email:       candidate.Email,
		IP:          candidate.IP,
		Outcome:     outcome,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		site, _, err := resolveOrCreateWebsite(tx, candidate.Domain)
		if err != nil {
			return err
		}
		req.WebsiteID = site.ID
		req.Website = *site
		return tx.Omit(clause.Associations).Create(req).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create block request: %w", err)
	}

	callerLabel := "anonymous"
	if caller.Privileged {
		callerLabel = "admin"
	}
	metrics.IncCreated(callerLabel)
	logger.Log().WithField("block_request_id", req.ID).
		WithField("domain", util.TruncateForLog(req.Website.Domain, 200)).
		WithField("caller", callerLabel).
		Info("Block request created")

	return req, nil
}

// GetByID loads a request with its website.
func (s *BlockRequestService) GetByID(ctx context.Context, id uint) (*models.BlockRequest, error) {
	return s.load(s.db.WithContext(ctx), id)
}

// List returns requests ordered by id, filtered by a case-insensitive domain
// substring and by whether an outcome has been decided.
func (s *BlockRequestService) List(ctx context.Context, filter ListFilter) ([]models.BlockRequest, error) {
	query := s.db.WithContext(ctx).Preload("Website").Order("id asc")

	if filter.Domain != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Domain)) + "%"
		sites := s.db.Model(&models.Website{}).Select("id").Where("LOWER(domain) LIKE ? ESCAPE ?", pattern, `\`)
		query = query.Where("website_id IN (?)", sites)
	}

	if filter.Resolved != nil {
		if *filter.Resolved {
			query = query.Where("outcome <> ?", models.OutcomeUndecided)
		} else {
			query = query.Where("outcome = ?", models.OutcomeUndecided)
		}
	}

	var requests []models.BlockRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("list block requests: %w", err)
	}
	return requests, nil
}

// CountPending returns how many requests are still undecided.
func (s *BlockRequestService) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.BlockRequest{}).
		Where("outcome = ?", models.OutcomeUndecided).
		Count(&n).Error
	return n, err
}

// Replace performs a full update: every field except outcome must be supplied.
func (s *BlockRequestService) Replace(ctx context.Context, caller Caller, id uint, p BlockRequestPayload) (*UpdateResult, error) {
	return s.update(ctx, caller, id, p, true)
}

// Patch performs a partial update: omitted fields keep their stored values.
func (s *BlockRequestService) Patch(ctx context.Context, caller Caller, id uint, p BlockRequestPayload) (*UpdateResult, error) {
	return s.update(ctx, caller, id, p, false)
}

// Delete removes a request. Its website stays registered.
func (s *BlockRequestService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.BlockRequest{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete block request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrBlockRequestNotFound
	}
	logger.Log().WithField("block_request_id", id).Info("Block request deleted")
	return nil
}

func (s *BlockRequestService) update(ctx context.Context, caller Caller, id uint, p BlockRequestPayload, full bool) (*UpdateResult, error) {
	var result *UpdateResult
	for attempt := 1; ; attempt++ {
		var err error
		result, err = s.applyUpdate(ctx, caller, id, p, full)
		if err == nil {
			break
		}
		if errors.Is(err, errOutcomeRaced) && attempt < maxUpdateAttempts {
			logger.Log().WithField("block_request_id", id).WithField("attempt", attempt).
				Debug("Outcome changed during update, retrying")
			continue
		}
		switch {
		case errors.Is(err, errOutcomeRaced):
			return nil, ErrUpdateConflict
		case errors.Is(err, ErrBlockRequestNotFound):
			return nil, err
		}
		if _, ok := AsValidationError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("update block request: %w", err)
	}

	if result.Resolution.Resolved() {
		metrics.IncResolved(result.Resolution.After.String())
		result.NotificationErr = s.notify(ctx, result.Request)
	}
	return result, nil
}

// applyUpdate reads and writes the request in one transaction. The write only
// matches while the stored outcome is still the one that was read, so of two
// racing updates only one observes the undecided to decided transition.
func (s *BlockRequestService) applyUpdate(ctx context.Context, caller Caller, id uint, p BlockRequestPayload, full bool) (*UpdateResult, error) {
	var result *UpdateResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.load(tx, id)
		if err != nil {
			return err
		}

		if full {
			verr := &ValidationError{}
			requireFields(verr, p)
			if !verr.empty() {
				return verr
			}
		}

		before := current.Outcome
		candidate := candidateFrom(p, blockRequestCandidate{
			Description: current.Description,
			Email:       current.Email,
			IP:          current.IP,
			Domain:      current.Website.Domain,
		})
		if err := validateCandidate(candidate); err != nil {
			return err
		}

		after := before
		switch {
		case !caller.Privileged:
			after = models.OutcomeUndecided
		case p.Outcome.Set:
			after = p.Outcome.Value
		}

		current.Description = candidate.Description
		current.Email = candidate.Email
		current.IP = candidate.IP
		current.Outcome = after

		if candidate.Domain != current.Website.Domain {
			site, _, err := resolveOrCreateWebsite(tx, candidate.Domain)
			if err != nil {
				return err
			}
			current.WebsiteID = site.ID
			current.Website = *site
		}

		res := tx.Model(current).Omit(clause.Associations).
			Where("outcome = ?", before).
			Select("description", "email", "ip", "outcome", "website_id").
			Updates(current)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errOutcomeRaced
		}

		result = &UpdateResult{
			Request:    current,
			Resolution: Resolution{Before: before, After: after},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// notify runs after the update is committed. Failures are handed to the
// reporter and never retried.
func (s *BlockRequestService) notify(ctx context.Context, req *models.BlockRequest) error {
	entry := logger.Log().WithField("block_request_id", req.ID).WithField("outcome", req.Outcome.String())

	var err error
	if s.notifier == nil {
		err = ErrMailNotConfigured
	} else {
		err = s.notifier.NotifyResolved(ctx, req)
	}

	if err != nil {
		metrics.IncNotificationFailure()
		entry.WithError(err).Error("Failed to notify submitter of resolution")
		if s.reporter != nil {
			s.reporter.ReportDeliveryFailure(ctx, req, err)
		}
		return err
	}

	entry.WithField("email", util.MaskEmail(req.Email)).Info("Submitter notified of resolution")
	return nil
}

func (s *BlockRequestService) load(db *gorm.DB, id uint) (*models.BlockRequest, error) {
	var req models.BlockRequest
	if err := db.Preload("Website").First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlockRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// requireFields reports fields that a create or full update must supply.
func requireFields(verr *ValidationError, p BlockRequestPayload) {
	const msg = "This field is required."
	if p.Description == nil {
		verr.add("description", msg)
	}
	if p.Email == nil {
		verr.add("email", msg)
	}
	if p.IP == nil {
		verr.add("ip", msg)
	}
	if p.Website == nil {
		verr.add("website", msg)
	} else if p.Website.Domain == nil {
		verr.add("website.domain", msg)
	}
}

// candidateFrom overlays the supplied payload fields on base.
func candidateFrom(p BlockRequestPayload, base blockRequestCandidate) blockRequestCandidate {
	if p.Description != nil {
		base.Description = strings.TrimSpace(*p.Description)
	}
	if p.Email != nil {
		base.Email = strings.TrimSpace(*p.Email)
	}
	if p.IP != nil {
		base.IP = strings.TrimSpace(*p.IP)
	}
	if p.Website != nil && p.Website.Domain != nil {
		base.Domain = strings.TrimSpace(*p.Website.Domain)
	}
	return base
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
