package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/api/middleware"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/services"
)

const maxBodyBytes = 1 << 20

type BlockRequestHandler struct {
	service *services.BlockRequestService
}

func NewBlockRequestHandler(service *services.BlockRequestService) *BlockRequestHandler {
	return &BlockRequestHandler{service: service}
}

// List returns block requests, optionally filtered by ?domain= (substring,
// case-insensitive) and ?resolved=0|1.
func (h *BlockRequestHandler) List(c *gin.Context) {
	filter := services.ListFilter{Domain: c.Query("domain")}
	if raw, ok := c.GetQuery("resolved"); ok {
		resolved, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": "incorrect type of parameter"})
			return
		}
		filter.Resolved = &resolved
	}

	requests, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	if requests == nil {
		requests = []models.BlockRequest{}
	}
	c.JSON(http.StatusOK, requests)
}

// Create files a new request. The submitter address always comes from the
// connection, never from the body.
func (h *BlockRequestHandler) Create(c *gin.Context) {
	payload, ok := h.decode(c)
	if !ok {
		return
	}
	payload = payload.WithIP(c.ClientIP())

	if _, err := h.service.Create(c.Request.Context(), middleware.CallerFrom(c), payload); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *BlockRequestHandler) Get(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	req, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// Update replaces every field of a request.
func (h *BlockRequestHandler) Update(c *gin.Context) {
	id, ok := h.existing(c)
	if !ok {
		return
	}
	payload, ok := h.decode(c)
	if !ok {
		return
	}
	if _, err := h.service.Replace(c.Request.Context(), middleware.CallerFrom(c), id, payload); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Patch changes only the supplied fields and returns the updated request.
func (h *BlockRequestHandler) Patch(c *gin.Context) {
	id, ok := h.existing(c)
	if !ok {
		return
	}
	payload, ok := h.decode(c)
	if !ok {
		return
	}
	res, err := h.service.Patch(c.Request.Context(), middleware.CallerFrom(c), id, payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res.Request)
}

func (h *BlockRequestHandler) Delete(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// existing resolves the :id parameter to a stored request so an unknown id is
// reported as 404 before the body is looked at.
func (h *BlockRequestHandler) existing(c *gin.Context) (uint, bool) {
	id, ok := requestID(c)
	if !ok {
		return 0, false
	}
	if _, err := h.service.GetByID(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return 0, false
	}
	return id, true
}

func (h *BlockRequestHandler) decode(c *gin.Context) (services.BlockRequestPayload, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": "Invalid JSON input"})
		return services.BlockRequestPayload{}, false
	}
	payload, err := services.DecodePayload(body)
	if err != nil {
		h.fail(c, err)
		return services.BlockRequestPayload{}, false
	}
	return payload, true
}

func (h *BlockRequestHandler) fail(c *gin.Context, err error) {
	if verr, ok := services.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, verr.Fields)
		return
	}
	switch {
	case errors.Is(err, services.ErrMalformedPayload):
		c.JSON(http.StatusBadRequest, gin.H{"errors": "Invalid JSON input"})
	case errors.Is(err, services.ErrBlockRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": services.ErrBlockRequestNotFound.Error()})
	case errors.Is(err, services.ErrUpdateConflict):
		c.JSON(http.StatusConflict, gin.H{"error": services.ErrUpdateConflict.Error()})
	default:
		middleware.GetRequestLogger(c).WithError(err).Error("Block request operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// requestID parses the :id path parameter. Ids that cannot exist are
// reported as not found.
func requestID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": services.ErrBlockRequestNotFound.Error()})
		return 0, false
	}
	return uint(id), true
}
