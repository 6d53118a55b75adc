package http

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foodflow/backend/internal/domain"
	"github.com/foodflow/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	receipts      *usecase.ReceiptService
	labels        *usecase.LabelService
	priceTags     *usecase.PriceTagService
	normalization *usecase.NormalizationService
	matching      *usecase.MatchingService
	maxUploadSize int64
}

// NewHandler creates a new HTTP handler
func NewHandler(
	receipts *usecase.ReceiptService,
	labels *usecase.LabelService,
	priceTags *usecase.PriceTagService,
	normalization *usecase.NormalizationService,
	matching *usecase.MatchingService,
	maxUploadSize int64,
) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = usecase.DefaultMaxImageBytes
	}
	return &Handler{
		receipts:      receipts,
		labels:        labels,
		priceTags:     priceTags,
		normalization: normalization,
		matching:      matching,
		maxUploadSize: maxUploadSize,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "foodflow-backend",
		"version": "1.0.0",
	})
}

// ScanReceipt handles receipt photo uploads. The extracted line items are
// normalized in the same request so the client gets canonical names and
// nutrition estimates in one round trip.
func (h *Handler) ScanReceipt(c *gin.Context) {
	image, mimeType, ok := h.readImage(c)
	if !ok {
		return
	}

	receipt, err := h.receipts.ExtractReceipt(c.Request.Context(), image, mimeType)
	if err != nil {
		h.writeError(c, err)
		return
	}

	normalized := h.normalization.Normalize(c.Request.Context(), receipt.Items)

	c.JSON(http.StatusOK, gin.H{
		"receipt": receipt,
		"items":   normalized,
	})
}

// ScanLabel handles product label photo uploads
func (h *Handler) ScanLabel(c *gin.Context) {
	image, mimeType, ok := h.readImage(c)
	if !ok {
		return
	}

	facts, err := h.labels.ExtractLabel(c.Request.Context(), image, mimeType)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, facts)
}

// ScanPriceTag handles shelf price tag photo uploads
func (h *Handler) ScanPriceTag(c *gin.Context) {
	image, mimeType, ok := h.readImage(c)
	if !ok {
		return
	}

	facts, err := h.priceTags.ExtractPriceTag(c.Request.Context(), image, mimeType)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, facts)
}

// reconcileRequest is the JSON body for the reconcile endpoint
type reconcileRequest struct {
	Labels []domain.LabelFacts     `json:"labels" binding:"required"`
	Items  []domain.NormalizedItem `json:"items" binding:"required"`
}

// Reconcile pairs scanned labels with receipt items
func (h *Handler) Reconcile(c *gin.Context) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	report := h.matching.Reconcile(req.Labels, req.Items)
	c.JSON(http.StatusOK, report)
}

// readImage pulls the uploaded image out of the multipart form. On failure it
// writes the error response itself and returns ok=false.
func (h *Handler) readImage(c *gin.Context) ([]byte, string, bool) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing image file in form field 'image'"})
		return nil, "", false
	}

	if fileHeader.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload size limit"})
		return nil, "", false
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return nil, "", false
	}
	if int64(len(data)) > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload size limit"})
		return nil, "", false
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	return data, mimeType, true
}

// writeError maps pipeline errors to HTTP responses
func (h *Handler) writeError(c *gin.Context, err error) {
	var chainErr *domain.ChainError
	switch {
	case errors.As(err, &chainErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    "all models failed",
			"task":     chainErr.Task,
			"attempts": chainErr.Attempts,
		})
	case errors.Is(err, domain.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload size limit"})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, domain.ErrExtractionFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "extraction failed"})
	default:
		log.Printf("[HTTP] Unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
