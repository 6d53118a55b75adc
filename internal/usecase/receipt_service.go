package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/foodflow/backend/internal/domain"
)

// DefaultMaxImageBytes is the upload ceiling applied when none is configured
const DefaultMaxImageBytes = 10 * 1024 * 1024

// ImagePreparer downscales and re-encodes a photo before it is sent to a
// vision model. Implementations must not fail: on trouble they return the
// input unchanged.
type ImagePreparer interface {
	Prepare(data []byte, mimeType string) ([]byte, string)
}

// ExtractorConfig holds configuration shared by the image extraction services
type ExtractorConfig struct {
	Models        []string
	MaxImageBytes int64
	Chain         ChainConfig
}

func (c ExtractorConfig) maxBytes() int64 {
	if c.MaxImageBytes <= 0 {
		return DefaultMaxImageBytes
	}
	return c.MaxImageBytes
}

// ReceiptService turns receipt photos into structured line items
type ReceiptService struct {
	gateway  domain.ModelGateway
	cache    domain.CacheRepository
	preparer ImagePreparer
	config   ExtractorConfig
}

// NewReceiptService creates a new receipt extraction service. preparer may be
// nil to send images to the models untouched.
func NewReceiptService(
	gateway domain.ModelGateway,
	cache domain.CacheRepository,
	preparer ImagePreparer,
	config ExtractorConfig,
) *ReceiptService {
	return &ReceiptService{
		gateway:  gateway,
		cache:    cache,
		preparer: preparer,
		config:   config,
	}
}

// ExtractReceipt parses a receipt photo into line items.
// Flow: size check -> fingerprint -> cache -> preprocess -> model chain -> cache
func (s *ReceiptService) ExtractReceipt(ctx context.Context, image []byte, mimeType string) (*domain.Receipt, error) {
	if len(image) == 0 {
		return nil, domain.ErrInvalidRequest
	}
	if int64(len(image)) > s.config.maxBytes() {
		return nil, fmt.Errorf("%w: %d bytes", domain.ErrPayloadTooLarge, len(image))
	}

	// Fingerprint the bytes as submitted, before any preprocessing
	fingerprint := imageFingerprint(image)

	if cached, err := s.cache.Get(ctx, fingerprint, domain.TaskReceipt); err == nil {
		var receipt domain.Receipt
		if err := json.Unmarshal(cached.Result, &receipt); err == nil {
			log.Printf("[RECEIPT] Cache hit for %s", shortFingerprint(fingerprint))
			return &receipt, nil
		}
	}

	payload := domain.ModelPayload{Prompt: receiptPrompt, Image: image, MimeType: mimeType}
	if s.preparer != nil {
		payload.Image, payload.MimeType = s.preparer.Prepare(image, mimeType)
	}

	receipt, err := runChain(ctx, s.gateway, domain.TaskReceipt, s.config.Models, payload, s.config.Chain, decodeReceipt)
	if err != nil {
		var chainErr *domain.ChainError
		if errors.As(err, &chainErr) {
			return nil, chainErr
		}
		return nil, err
	}

	s.store(ctx, fingerprint, domain.TaskReceipt, receipt)
	return receipt, nil
}

// decodeReceipt parses a model reply into a receipt. A reply with no
// extractable JSON or the wrong shape is rejected; an empty items list is a
// legitimate result for a blurry or empty receipt.
func decodeReceipt(reply string) (*domain.Receipt, error) {
	body, ok := extractJSON(reply)
	if !ok {
		return nil, fmt.Errorf("no JSON found in reply")
	}

	var receipt domain.Receipt
	if err := json.Unmarshal([]byte(body), &receipt); err != nil {
		return nil, fmt.Errorf("failed to decode receipt: %w", err)
	}
	if receipt.Items == nil {
		receipt.Items = []domain.RawLineItem{}
	}
	return &receipt, nil
}

// store caches a successful result. Failures here are logged, not returned:
// the extraction already succeeded.
func (s *ReceiptService) store(ctx context.Context, fingerprint string, task domain.TaskType, result interface{}) {
	data, err := json.Marshal(result)
	if err != nil {
		log.Printf("[RECEIPT] Failed to marshal result for caching: %v", err)
		return
	}

	entry := &domain.CacheEntry{
		Fingerprint: fingerprint,
		Task:        task,
		Result:      data,
		CreatedAt:   time.Now(),
	}
	if err := s.cache.Put(ctx, entry); err != nil {
		log.Printf("[RECEIPT] Failed to cache result: %v", err)
	}
}

// shortFingerprint trims a fingerprint for log lines
func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
