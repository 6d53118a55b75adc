package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/foodflow/backend/internal/domain"
)

const labelReply = `{"name": "Творог Простоквашино 5%", "brand": "Простоквашино", "weight_grams": 200, "calories": 121, "protein": 16, "fat": 5, "carbs": 3, "fiber": 0}`

func newTestLabelService(gw *mockGateway, cache *mockCache) *LabelService {
	return NewLabelService(gw, cache, nil, ExtractorConfig{
		Models: []string{"model-a", "model-b"},
		Chain:  testChainConfig,
	})
}

func TestExtractLabel_Success(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{{reply: labelReply}}}
	svc := newTestLabelService(gw, newMockCache())

	facts, err := svc.ExtractLabel(context.Background(), []byte("label-photo"), "image/jpeg")
	if err != nil {
		t.Fatalf("ExtractLabel() error = %v", err)
	}

	if facts.Name != "Творог Простоквашино 5%" {
		t.Errorf("Name = %q", facts.Name)
	}
	if facts.Brand == nil || *facts.Brand != "Простоквашино" {
		t.Errorf("Brand = %v", facts.Brand)
	}
	if facts.WeightGrams == nil || *facts.WeightGrams != 200 {
		t.Errorf("WeightGrams = %v", facts.WeightGrams)
	}
	if facts.Calories != 121 || facts.Protein != 16 {
		t.Errorf("macros = %+v", facts)
	}
}

func TestExtractLabel_NullableFieldsStayNil(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{
		{reply: `{"name": "Хлеб", "brand": null, "weight_grams": null, "calories": 250, "protein": 8, "fat": 1, "carbs": 48, "fiber": 4}`},
	}}
	svc := newTestLabelService(gw, newMockCache())

	facts, err := svc.ExtractLabel(context.Background(), []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("ExtractLabel() error = %v", err)
	}
	if facts.Brand != nil {
		t.Errorf("Brand = %v, want nil", *facts.Brand)
	}
	if facts.WeightGrams != nil {
		t.Errorf("WeightGrams = %v, want nil", *facts.WeightGrams)
	}
}

func TestExtractLabel_CacheRoundTripPreservesNils(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{
		{reply: `{"name": "Хлеб", "calories": 250, "protein": 8, "fat": 1, "carbs": 48, "fiber": 4}`},
	}}
	cache := newMockCache()
	svc := newTestLabelService(gw, cache)

	image := []byte("same-label")
	if _, err := svc.ExtractLabel(context.Background(), image, "image/jpeg"); err != nil {
		t.Fatalf("first ExtractLabel() error = %v", err)
	}

	facts, err := svc.ExtractLabel(context.Background(), image, "image/jpeg")
	if err != nil {
		t.Fatalf("second ExtractLabel() error = %v", err)
	}

	if gw.callCount() != 1 {
		t.Errorf("gateway calls = %d, want 1", gw.callCount())
	}
	if facts.Brand != nil || facts.WeightGrams != nil {
		t.Error("nil fields should survive the cache round trip")
	}
}

func TestExtractLabel_MissingNameEscalates(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{
		{reply: `{"calories": 100}`},
		{reply: labelReply},
	}}
	svc := newTestLabelService(gw, newMockCache())

	facts, err := svc.ExtractLabel(context.Background(), []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("ExtractLabel() error = %v", err)
	}
	if facts.Name == "" {
		t.Error("Name should come from the second model")
	}
	if gw.callCount() != 2 {
		t.Errorf("gateway calls = %d, want 2", gw.callCount())
	}
}

func TestExtractLabel_ChainExhaustion(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{{err: modelErr(domain.KindRateLimited, "x")}}}
	cache := newMockCache()
	svc := newTestLabelService(gw, cache)

	_, err := svc.ExtractLabel(context.Background(), []byte("img"), "image/jpeg")
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Errorf("ExtractLabel() error = %v, want ErrExtractionFailed", err)
	}
	if cache.putCount() != 0 {
		t.Errorf("cache puts = %d, want 0", cache.putCount())
	}
}

func TestExtractPriceTag_Success(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{
		{reply: `{"product_name": "Сыр Российский", "price": 559.90, "volume": "1кг", "store": "Пятёрочка"}`},
	}}
	svc := NewPriceTagService(gw, newMockCache(), nil, ExtractorConfig{
		Models: []string{"model-a"},
		Chain:  testChainConfig,
	})

	facts, err := svc.ExtractPriceTag(context.Background(), []byte("tag-photo"), "image/jpeg")
	if err != nil {
		t.Fatalf("ExtractPriceTag() error = %v", err)
	}
	if facts.ProductName != "Сыр Российский" {
		t.Errorf("ProductName = %q", facts.ProductName)
	}
	if facts.Price != 559.90 {
		t.Errorf("Price = %v", facts.Price)
	}
	if facts.Store == nil || *facts.Store != "Пятёрочка" {
		t.Errorf("Store = %v", facts.Store)
	}
}
