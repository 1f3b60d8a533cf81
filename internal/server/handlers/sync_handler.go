package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmbook/internal/domain/models"
)

// SyncBridge mirrors categories to and from the spreadsheet.
type SyncBridge interface {
	Pull(ctx context.Context, category models.Category) []models.Record
	Push(ctx context.Context, category models.Category, records []models.Record) error
	SyncAll(ctx context.Context) (models.SyncResult, error)
}

// RecordLister reads a category from the local store.
type RecordLister interface {
	GetAll(ctx context.Context, category models.Category) ([]models.Record, error)
}

// SyncHandler exposes the spreadsheet bridge. A nil bridge means the
// service runs local-only and every endpoint answers 503.
type SyncHandler struct {
	bridge SyncBridge
	store  RecordLister
	logger *zap.Logger
}

// NewSyncHandler constructs the HTTP handler adapter.
func NewSyncHandler(bridge SyncBridge, store RecordLister, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{bridge: bridge, store: store, logger: logger}
}

func (h *SyncHandler) enabled(c *gin.Context) bool {
	if h.bridge == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "spreadsheet sync disabled"})
		return false
	}
	return true
}

// Pull previews the remote rows of a category without touching local state.
func (h *SyncHandler) Pull(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	category, err := categoryParam(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, h.bridge.Pull(c.Request.Context(), category))
}

// Push appends every local record of the category to its sheet.
func (h *SyncHandler) Push(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	category, err := categoryParam(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	records, err := h.store.GetAll(c.Request.Context(), category)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	if err := h.bridge.Push(c.Request.Context(), category, records); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pushed": len(records)})
}

// SyncAll replaces local copies of every synced category with the remote ones.
func (h *SyncHandler) SyncAll(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	result, err := h.bridge.SyncAll(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
