package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/foodflow/backend/internal/domain"
)

// NormalizationConfig holds configuration for the normalization service
type NormalizationConfig struct {
	// Models ordered by preference; the first entry should be a
	// web-search-augmented model so OCR-garbled names resolve to real products
	Models []string
	Chain  ChainConfig
}

// NormalizationService resolves raw receipt names to canonical products with
// categories and per-100g nutrition estimates
type NormalizationService struct {
	gateway domain.ModelGateway
	cache   domain.CacheRepository
	config  NormalizationConfig
}

// NewNormalizationService creates a new normalization service
func NewNormalizationService(
	gateway domain.ModelGateway,
	cache domain.CacheRepository,
	config NormalizationConfig,
) *NormalizationService {
	return &NormalizationService{
		gateway: gateway,
		cache:   cache,
		config:  config,
	}
}

// normalizedReply is the wire shape of a normalization model reply
type normalizedReply struct {
	Normalized []normalizedEntry `json:"normalized"`
}

type normalizedEntry struct {
	Original string  `json:"original"`
	Name     string  `json:"name"`
	Category *string `json:"category"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
	Fiber    float64 `json:"fiber"`
}

// Normalize resolves a batch of raw receipt items. The output always has
// exactly one entry per input item in input order; items the model failed to
// cover keep their raw name. When every model fails the whole batch degrades
// to an identity mapping instead of an error.
func (s *NormalizationService) Normalize(ctx context.Context, raw []domain.RawLineItem) []domain.NormalizedItem {
	if len(raw) == 0 {
		return []domain.NormalizedItem{}
	}

	fingerprint := itemsFingerprint(raw)

	if cached, err := s.cache.Get(ctx, fingerprint, domain.TaskNormalization); err == nil {
		var entries []normalizedEntry
		if err := json.Unmarshal(cached.Result, &entries); err == nil {
			log.Printf("[NORMALIZE] Cache hit for %d items", len(raw))
			return mergeNormalized(raw, entries)
		}
	}

	payload := domain.ModelPayload{Prompt: normalizationPrompt(raw)}

	entries, err := runChain(ctx, s.gateway, domain.TaskNormalization, s.config.Models, payload, s.config.Chain, decodeNormalized)
	if err != nil {
		log.Printf("[NORMALIZE] All models failed, falling back to raw names: %v", err)
		return identityNormalized(raw)
	}

	s.store(ctx, fingerprint, entries)
	return mergeNormalized(raw, entries)
}

// decodeNormalized parses a model reply into normalized entries
func decodeNormalized(reply string) ([]normalizedEntry, error) {
	body, ok := extractJSON(reply)
	if !ok {
		return nil, fmt.Errorf("no JSON found in reply")
	}

	var parsed normalizedReply
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode normalization reply: %w", err)
	}
	if parsed.Normalized == nil {
		return nil, fmt.Errorf("reply has no normalized list")
	}
	return parsed.Normalized, nil
}

// mergeNormalized aligns model output with the input batch. Entries match by
// folded original name; every input item appears in the result exactly once.
func mergeNormalized(raw []domain.RawLineItem, entries []normalizedEntry) []domain.NormalizedItem {
	byOriginal := make(map[string]normalizedEntry, len(entries))
	for _, entry := range entries {
		key := mergeKey(entry.Original)
		if _, exists := byOriginal[key]; !exists {
			byOriginal[key] = entry
		}
	}

	result := make([]domain.NormalizedItem, 0, len(raw))
	for _, item := range raw {
		entry, found := byOriginal[mergeKey(item.Name)]
		if !found || entry.Name == "" {
			result = append(result, identityItem(item))
			continue
		}
		result = append(result, domain.NormalizedItem{
			CanonicalName: entry.Name,
			OriginalName:  item.Name,
			Category:      entry.Category,
			Calories:      entry.Calories,
			Protein:       entry.Protein,
			Fat:           entry.Fat,
			Carbs:         entry.Carbs,
			Fiber:         entry.Fiber,
		})
	}
	return result
}

// identityNormalized maps every raw item to itself with no category or
// nutrition data
func identityNormalized(raw []domain.RawLineItem) []domain.NormalizedItem {
	result := make([]domain.NormalizedItem, 0, len(raw))
	for _, item := range raw {
		result = append(result, identityItem(item))
	}
	return result
}

func identityItem(item domain.RawLineItem) domain.NormalizedItem {
	return domain.NormalizedItem{
		CanonicalName: item.Name,
		OriginalName:  item.Name,
	}
}

func (s *NormalizationService) store(ctx context.Context, fingerprint string, entries []normalizedEntry) {
	data, err := json.Marshal(entries)
	if err != nil {
		log.Printf("[NORMALIZE] Failed to marshal result for caching: %v", err)
		return
	}

	entry := &domain.CacheEntry{
		Fingerprint: fingerprint,
		Task:        domain.TaskNormalization,
		Result:      data,
		CreatedAt:   time.Now(),
	}
	if err := s.cache.Put(ctx, entry); err != nil {
		log.Printf("[NORMALIZE] Failed to cache result: %v", err)
	}
}
