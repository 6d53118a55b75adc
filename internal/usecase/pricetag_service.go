package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/foodflow/backend/internal/domain"
)

// PriceTagService turns shelf price tag photos into product/price facts
type PriceTagService struct {
	gateway  domain.ModelGateway
	cache    domain.CacheRepository
	preparer ImagePreparer
	config   ExtractorConfig
}

// NewPriceTagService creates a new price tag extraction service
func NewPriceTagService(
	gateway domain.ModelGateway,
	cache domain.CacheRepository,
	preparer ImagePreparer,
	config ExtractorConfig,
) *PriceTagService {
	return &PriceTagService{
		gateway:  gateway,
		cache:    cache,
		preparer: preparer,
		config:   config,
	}
}

// ExtractPriceTag parses a price tag photo
func (s *PriceTagService) ExtractPriceTag(ctx context.Context, image []byte, mimeType string) (*domain.PriceTagFacts, error) {
	if len(image) == 0 {
		return nil, domain.ErrInvalidRequest
	}
	if int64(len(image)) > s.config.maxBytes() {
		return nil, fmt.Errorf("%w: %d bytes", domain.ErrPayloadTooLarge, len(image))
	}

	fingerprint := imageFingerprint(image)

	if cached, err := s.cache.Get(ctx, fingerprint, domain.TaskPriceTag); err == nil {
		var facts domain.PriceTagFacts
		if err := json.Unmarshal(cached.Result, &facts); err == nil {
			log.Printf("[PRICETAG] Cache hit for %s", shortFingerprint(fingerprint))
			return &facts, nil
		}
	}

	payload := domain.ModelPayload{Prompt: priceTagPrompt, Image: image, MimeType: mimeType}
	if s.preparer != nil {
		payload.Image, payload.MimeType = s.preparer.Prepare(image, mimeType)
	}

	facts, err := runChain(ctx, s.gateway, domain.TaskPriceTag, s.config.Models, payload, s.config.Chain, decodePriceTag)
	if err != nil {
		return nil, err
	}

	s.store(ctx, fingerprint, facts)
	return facts, nil
}

func decodePriceTag(reply string) (*domain.PriceTagFacts, error) {
	body, ok := extractJSON(reply)
	if !ok {
		return nil, fmt.Errorf("no JSON found in reply")
	}

	var facts domain.PriceTagFacts
	if err := json.Unmarshal([]byte(body), &facts); err != nil {
		return nil, fmt.Errorf("failed to decode price tag: %w", err)
	}
	if facts.ProductName == "" {
		return nil, fmt.Errorf("price tag reply has no product name")
	}
	return &facts, nil
}

func (s *PriceTagService) store(ctx context.Context, fingerprint string, facts *domain.PriceTagFacts) {
	data, err := json.Marshal(facts)
	if err != nil {
		log.Printf("[PRICETAG] Failed to marshal result for caching: %v", err)
		return
	}

	entry := &domain.CacheEntry{
		Fingerprint: fingerprint,
		Task:        domain.TaskPriceTag,
		Result:      data,
		CreatedAt:   time.Now(),
	}
	if err := s.cache.Put(ctx, entry); err != nil {
		log.Printf("[PRICETAG] Failed to cache result: %v", err)
	}
}
