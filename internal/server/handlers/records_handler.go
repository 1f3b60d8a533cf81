package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmbook/internal/domain/models"
	"github.com/mamadbah2/farmbook/internal/service/export"
)

// RecordStore is the record store surface exposed over HTTP.
type RecordStore interface {
	Add(ctx context.Context, category models.Category, fields map[string]any) (string, error)
	Get(ctx context.Context, category models.Category, id string) (models.Record, error)
	GetAll(ctx context.Context, category models.Category) ([]models.Record, error)
	Update(ctx context.Context, category models.Category, id string, fields map[string]any) error
	Delete(ctx context.Context, category models.Category, id string) error
	Query(ctx context.Context, category models.Category, field string, value any) ([]models.Record, error)
	Snapshot(ctx context.Context) (map[models.Category][]models.Record, error)
}

// FormIntake stores front-end form submissions.
type FormIntake interface {
	Submit(ctx context.Context, formID string, values map[string]string) (string, error)
	Resubmit(ctx context.Context, formID, id string, values map[string]string) error
}

// RecordsHandler serves record CRUD, form posts and CSV exports.
type RecordsHandler struct {
	store  RecordStore
	forms  FormIntake
	logger *zap.Logger
	today  func() time.Time
}

// NewRecordsHandler constructs the HTTP handler adapter. today dates export
// filenames and should resolve in the configured timezone; nil means time.Now.
func NewRecordsHandler(store RecordStore, forms FormIntake, today func() time.Time, logger *zap.Logger) *RecordsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if today == nil {
		today = time.Now
	}
	return &RecordsHandler{store: store, forms: forms, logger: logger, today: today}
}

// SubmitForm ingests a urlencoded or multipart form post. A non-empty "id"
// query parameter updates that record instead of creating one.
func (h *RecordsHandler) SubmitForm(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.logger.Warn("invalid form payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form payload"})
		return
	}

	values := make(map[string]string, len(c.Request.PostForm))
	for key, vals := range c.Request.PostForm {
		if len(vals) > 0 {
			values[key] = vals[0]
		}
	}

	formID := c.Param("formID")
	if editID := c.Query("id"); editID != "" {
		if err := h.forms.Resubmit(c.Request.Context(), formID, editID, values); err != nil {
			writeError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": editID})
		return
	}

	id, err := h.forms.Submit(c.Request.Context(), formID, values)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// List returns every record of the category, or the indexed subset when
// field and value query parameters are given.
func (h *RecordsHandler) List(c *gin.Context) {
	category, err := categoryParam(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	var records []models.Record
	if field := c.Query("field"); field != "" {
		records, err = h.store.Query(c.Request.Context(), category, field, c.Query("value"))
	} else {
		records, err = h.store.GetAll(c.Request.Context(), category)
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// Get returns one record.
func (h *RecordsHandler) Get(c *gin.Context) {
	category, err := categoryParam(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	record, err := h.store.Get(c.Request.Context(), category, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Create adds a record from a JSON object body.
func (h *RecordsHandler) Create(c *gin.Context) {
	category, err := categoryParam(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn("invalid record payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, err := h.store.Add(c.Request.Context(), category, body)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Update replaces a record's fields from a JSON object body.
func (h *RecordsHandler) Update(c *gin.Context) {
	category, err := categoryParam(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn("invalid record payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id := c.Param("id")
	if err := h.store.Update(c.Request.Context(), category, id, body); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// Delete removes a record. The caller must confirm with ?confirm=true.
func (h *RecordsHandler) Delete(c *gin.Context) {
	category, err := categoryParam(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	if c.Query("confirm") != "true" {
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": "delete must be confirmed with confirm=true"})
		return
	}

	if err := h.store.Delete(c.Request.Context(), category, c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Export streams the category as a CSV download.
func (h *RecordsHandler) Export(c *gin.Context) {
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

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, category, records); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(category, h.today())))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Snapshot returns every category's records.
func (h *RecordsHandler) Snapshot(c *gin.Context) {
	snapshot, err := h.store.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
