package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/api/middleware"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/services"
)

// NotificationHandler serves the operator notification feed, where failed
// resolution emails show up.
type NotificationHandler struct {
	service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// notificationView links a feed entry to the block request it concerns.
type notificationView struct {
	models.Notification
	BlockRequestURL string `json:"block_request_url,omitempty"`
}

func viewOf(n models.Notification) notificationView {
	v := notificationView{Notification: n}
	if n.BlockRequestID != nil {
		v.BlockRequestURL = fmt.Sprintf("/api/v1/block_request/%d/", *n.BlockRequestID)
	}
	return v
}

// List returns the feed, optionally filtered by ?unread=true and
// ?block_request=<id>.
func (h *NotificationHandler) List(c *gin.Context) {
	var filter services.NotificationFilter
	if raw, ok := c.GetQuery("unread"); ok {
		unread, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": "incorrect type of parameter"})
			return
		}
		filter.UnreadOnly = unread
	}
	if raw, ok := c.GetQuery("block_request"); ok {
		id, err := strconv.ParseUint(raw, 10, 0)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": "incorrect type of parameter"})
			return
		}
		blockRequestID := uint(id)
		filter.BlockRequestID = &blockRequestID
	}

	notifications, err := h.service.List(filter)
	if err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("Failed to list notifications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}

	views := make([]notificationView, 0, len(notifications))
	for _, n := range notifications {
		views = append(views, viewOf(n))
	}
	c.JSON(http.StatusOK, views)
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	if err := h.service.MarkAsRead(c.Param("id")); err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		middleware.GetRequestLogger(c).WithError(err).Error("Failed to mark notification as read")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	if err := h.service.MarkAllAsRead(); err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("Failed to mark notifications as read")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark all notifications as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}
