package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

// Notification is an operator-facing message, e.g. a resolution email that
// could not be delivered.
type Notification struct {
	ID             string           `gorm:"primaryKey" json:"id"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	BlockRequestID *uint            `json:"block_request_id,omitempty" gorm:"index"`
	Read           bool             `json:"read"`
	CreatedAt      time.Time        `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}

// All returns every model managed by the service, in migration order.
func All() []interface{} {
	return []interface{}{
		&Website{},
		&BlockRequest{},
		&User{},
		&Notification{},
	}
}
