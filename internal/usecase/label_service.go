package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/foodflow/backend/internal/domain"
)

// LabelService turns product label photos into nutrition facts
type LabelService struct {
	gateway  domain.ModelGateway
	cache    domain.CacheRepository
	preparer ImagePreparer
	config   ExtractorConfig
}

// NewLabelService creates a new label extraction service
func NewLabelService(
	gateway domain.ModelGateway,
	cache domain.CacheRepository,
	preparer ImagePreparer,
	config ExtractorConfig,
) *LabelService {
	return &LabelService{
		gateway:  gateway,
		cache:    cache,
		preparer: preparer,
		config:   config,
	}
}

// ExtractLabel parses a label photo into per-100g nutrition facts
func (s *LabelService) ExtractLabel(ctx context.Context, image []byte, mimeType string) (*domain.LabelFacts, error) {
	if len(image) == 0 {
		return nil, domain.ErrInvalidRequest
	}
	if int64(len(image)) > s.config.maxBytes() {
		return nil, fmt.Errorf("%w: %d bytes", domain.ErrPayloadTooLarge, len(image))
	}

	fingerprint := imageFingerprint(image)

	if cached, err := s.cache.Get(ctx, fingerprint, domain.TaskLabel); err == nil {
		var facts domain.LabelFacts
		if err := json.Unmarshal(cached.Result, &facts); err == nil {
			log.Printf("[LABEL] Cache hit for %s", shortFingerprint(fingerprint))
			return &facts, nil
		}
	}

	payload := domain.ModelPayload{Prompt: labelPrompt, Image: image, MimeType: mimeType}
	if s.preparer != nil {
		payload.Image, payload.MimeType = s.preparer.Prepare(image, mimeType)
	}

	facts, err := runChain(ctx, s.gateway, domain.TaskLabel, s.config.Models, payload, s.config.Chain, decodeLabel)
	if err != nil {
		return nil, err
	}

	s.store(ctx, fingerprint, facts)
	return facts, nil
}

// decodeLabel parses a model reply into label facts. The product name is the
// one field a usable label scan cannot lack.
func decodeLabel(reply string) (*domain.LabelFacts, error) {
	body, ok := extractJSON(reply)
	if !ok {
		return nil, fmt.Errorf("no JSON found in reply")
	}

	var facts domain.LabelFacts
	if err := json.Unmarshal([]byte(body), &facts); err != nil {
		return nil, fmt.Errorf("failed to decode label: %w", err)
	}
	if facts.Name == "" {
		return nil, fmt.Errorf("label reply has no product name")
	}
	return &facts, nil
}

func (s *LabelService) store(ctx context.Context, fingerprint string, facts *domain.LabelFacts) {
	data, err := json.Marshal(facts)
	if err != nil {
		log.Printf("[LABEL] Failed to marshal result for caching: %v", err)
		return
	}

	entry := &domain.CacheEntry{
		Fingerprint: fingerprint,
		Task:        domain.TaskLabel,
		Result:      data,
		CreatedAt:   time.Now(),
	}
	if err := s.cache.Put(ctx, entry); err != nil {
		log.Printf("[LABEL] Failed to cache result: %v", err)
	}
}
