package services

import (
	"context"
	"fmt"

	"github.com/containrrr/shoutrrr"
	"github.com/containrrr/shoutrrr/pkg/router"
	"github.com/containrrr/shoutrrr/pkg/types"
	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/util"
)

// AlertSender delivers an operator alert to external channels.
type AlertSender interface {
	Send(message string) []error
}

type shoutrrrSender struct {
	router *router.ServiceRouter
}

// NewShoutrrrSender builds an AlertSender for the given shoutrrr service URLs
// (e.g. "slack://...", "telegram://...", "generic://..."). It returns nil
// when no URLs are configured.
func NewShoutrrrSender(urls []string) (AlertSender, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	r, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("create alert sender: %w", err)
	}
	return &shoutrrrSender{router: r}, nil
}

func (s *shoutrrrSender) Send(message string) []error {
	var failed []error
	for _, err := range s.router.Send(message, &types.Params{}) {
		if err != nil {
			failed = append(failed, err)
		}
	}
	return failed
}

// NotificationService keeps the operator notification feed and fans alerts
// out to external channels.
type NotificationService struct {
	DB     *gorm.DB
	alerts AlertSender
}

func NewNotificationService(db *gorm.DB, alerts AlertSender) *NotificationService {
	return &NotificationService{DB: db, alerts: alerts}
}

func (s *NotificationService) Create(nType models.NotificationType, title, message string) (*models.Notification, error) {
	notification := &models.Notification{
		Type:    nType,
		Title:   title,
		Message: message,
		Read:    false,
	}
	result := s.DB.Create(notification)
	return notification, result.Error
}

// NotificationFilter narrows the operator feed.
type NotificationFilter struct {
	UnreadOnly     bool
	BlockRequestID *uint
}

// List returns the newest notifications first.
func (s *NotificationService) List(filter NotificationFilter) ([]models.Notification, error) {
	var notifications []models.Notification
	query := s.DB.Order("created_at desc")
	if filter.UnreadOnly {
		query = query.Where("read = ?", false)
	}
	if filter.BlockRequestID != nil {
		query = query.Where("block_request_id = ?", *filter.BlockRequestID)
	}
	result := query.Find(&notifications)
	return notifications, result.Error
}

func (s *NotificationService) MarkAsRead(id string) error {
	res := s.DB.Model(&models.Notification{}).Where("id = ?", id).Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead() error {
	return s.DB.Model(&models.Notification{}).Where("read = ?", false).Update("read", true).Error
}

// ReportDeliveryFailure records a failed resolution email in the operator
// feed and forwards it to the alert channels. It never returns an error:
// every step that fails is logged instead.
func (s *NotificationService) ReportDeliveryFailure(ctx context.Context, req *models.BlockRequest, cause error) {
	title := "Resolution email not delivered"
	message := fmt.Sprintf("Block request #%d for %s was %s but the submitter could not be notified: %v",
		req.ID, util.SanitizeForLog(req.Website.Domain), req.Outcome.String(), cause)

	entry := logger.Log().WithField("block_request_id", req.ID)

	id := req.ID
	notification := &models.Notification{
		Type:           models.NotificationTypeError,
		Title:          title,
		Message:        message,
		BlockRequestID: &id,
	}
	if err := s.DB.WithContext(ctx).Create(notification).Error; err != nil {
		entry.WithError(err).Error("Failed to record notification failure")
	}

	s.SendExternal(title, message)
}

// SendExternal forwards an alert to every configured external channel.
func (s *NotificationService) SendExternal(title, message string) {
	if s.alerts == nil {
		return
	}
	// Use newline for better formatting in chat apps
	for _, err := range s.alerts.Send(fmt.Sprintf("%s\n\n%s", title, message)) {
		logger.Log().WithError(err).Warn("Failed to send operator alert")
	}
}
