package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/foodflow/backend/internal/domain"
)

const receiptReply = `{"items": [{"name": "Молоко Простоквашино 3.2%", "price": 89.99, "quantity": 1.0}, {"name": "Хлеб Бородинский", "price": 45.50, "quantity": 2.0}], "total": 181.0}`

func newTestReceiptService(gw *mockGateway, cache *mockCache) *ReceiptService {
	return NewReceiptService(gw, cache, nil, ExtractorConfig{
		Models: []string{"model-a", "model-b"},
		Chain:  testChainConfig,
	})
}

func TestExtractReceipt_Success(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{{reply: receiptReply}}}
	cache := newMockCache()
	svc := newTestReceiptService(gw, cache)

	receipt, err := svc.ExtractReceipt(context.Background(), []byte("fake-image"), "image/jpeg")
	if err != nil {
		t.Fatalf("ExtractReceipt() error = %v", err)
	}

	if len(receipt.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(receipt.Items))
	}
	if receipt.Items[0].Name != "Молоко Простоквашино 3.2%" {
		t.Errorf("Items[0].Name = %q", receipt.Items[0].Name)
	}
	if receipt.Items[0].Price != 89.99 {
		t.Errorf("Items[0].Price = %v", receipt.Items[0].Price)
	}
	if receipt.Total != 181.0 {
		t.Errorf("Total = %v", receipt.Total)
	}
	if cache.putCount() != 1 {
		t.Errorf("cache puts = %d, want 1", cache.putCount())
	}
}

func TestExtractReceipt_SecondCallHitsCache(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{{reply: receiptReply}}}
	cache := newMockCache()
	svc := newTestReceiptService(gw, cache)

	image := []byte("same-bytes")
	first, err := svc.ExtractReceipt(context.Background(), image, "image/jpeg")
	if err != nil {
		t.Fatalf("first ExtractReceipt() error = %v", err)
	}

	second, err := svc.ExtractReceipt(context.Background(), image, "image/jpeg")
	if err != nil {
		t.Fatalf("second ExtractReceipt() error = %v", err)
	}

	if gw.callCount() != 1 {
		t.Errorf("gateway calls = %d, want 1 (second call must be served from cache)", gw.callCount())
	}
	if len(first.Items) != len(second.Items) || first.Total != second.Total {
		t.Error("cached result differs from original")
	}
}

func TestExtractReceipt_MarkdownFencedReply(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{{reply: "```json\n" + receiptReply + "\n```"}}}
	svc := newTestReceiptService(gw, newMockCache())

	receipt, err := svc.ExtractReceipt(context.Background(), []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("ExtractReceipt() error = %v", err)
	}
	if len(receipt.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(receipt.Items))
	}
}

func TestExtractReceipt_EmptyItemsIsValidAndCached(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{{reply: `{"items": [], "total": 0}`}}}
	cache := newMockCache()
	svc := newTestReceiptService(gw, cache)

	receipt, err := svc.ExtractReceipt(context.Background(), []byte("blurry"), "image/jpeg")
	if err != nil {
		t.Fatalf("ExtractReceipt() error = %v", err)
	}
	if receipt.Items == nil || len(receipt.Items) != 0 {
		t.Errorf("Items = %v, want empty non-nil slice", receipt.Items)
	}
	if cache.putCount() != 1 {
		t.Errorf("cache puts = %d, want 1 (empty result is still cacheable)", cache.putCount())
	}
}

func TestExtractReceipt_RejectsOversizedImage(t *testing.T) {
	gw := &mockGateway{}
	svc := NewReceiptService(gw, newMockCache(), nil, ExtractorConfig{
		Models:        []string{"model-a"},
		MaxImageBytes: 16,
		Chain:         testChainConfig,
	})

	_, err := svc.ExtractReceipt(context.Background(), bytes.Repeat([]byte("x"), 17), "image/jpeg")
	if !errors.Is(err, domain.ErrPayloadTooLarge) {
		t.Errorf("ExtractReceipt() error = %v, want ErrPayloadTooLarge", err)
	}
	if gw.callCount() != 0 {
		t.Errorf("gateway calls = %d, want 0", gw.callCount())
	}
}

func TestExtractReceipt_RejectsEmptyImage(t *testing.T) {
	svc := newTestReceiptService(&mockGateway{}, newMockCache())

	_, err := svc.ExtractReceipt(context.Background(), nil, "image/jpeg")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("ExtractReceipt() error = %v, want ErrInvalidRequest", err)
	}
}

func TestExtractReceipt_ChainExhaustionWritesNothing(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{{err: modelErr(domain.KindTransportError, "x")}}}
	cache := newMockCache()
	svc := newTestReceiptService(gw, cache)

	_, err := svc.ExtractReceipt(context.Background(), []byte("img"), "image/jpeg")

	var chainErr *domain.ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("ExtractReceipt() error = %v, want *domain.ChainError", err)
	}
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Error("error should unwrap to ErrExtractionFailed")
	}
	if cache.putCount() != 0 {
		t.Errorf("cache puts = %d, want 0 after failure", cache.putCount())
	}
}

func TestExtractReceipt_ProseWrappedReplyEscalates(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{
		{reply: "I could not find any structured data in this image, sorry."},
		{reply: receiptReply},
	}}
	svc := newTestReceiptService(gw, newMockCache())

	receipt, err := svc.ExtractReceipt(context.Background(), []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("ExtractReceipt() error = %v", err)
	}
	if len(receipt.Items) != 2 {
		t.Errorf("len(Items) = %d, want 2", len(receipt.Items))
	}
	if gw.callCount() != 2 {
		t.Errorf("gateway calls = %d, want 2 (unparseable reply escalates)", gw.callCount())
	}
}
