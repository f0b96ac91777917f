package usecases

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
	"github.com/0xcro3dile/supportdesk-go/internal/domain/ports"
)

// mockCache implements ports.RecommendationCache for testing
type mockCache struct {
	mu    sync.Mutex
	items map[string]entities.CachedRecommendation
	ttl   time.Duration
}

func (m *mockCache) Get(ctx context.Context, key string) (*entities.CachedRecommendation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

func (m *mockCache) Set(ctx context.Context, key string, entry entities.CachedRecommendation, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]entities.CachedRecommendation)
	}
	m.items[key] = entry
	m.ttl = ttl
	return nil
}

const vnRecords = `{"content":{"data":[
	{"product_name":"Samsung Galaxy Tab S9","image_url":"https://img/1.jpg","price":"1.234.567₫","product_url":"https://shop/1"},
	{"product_name":"Google Pixel 8","image_url":"https://img/2.jpg","price":"15.990.000₫","product_url":"https://shop/2"},
	{"product_name":"Sony WF-1000XM5","image_url":"https://img/3.jpg","price":"5.490.000₫","product_url":"https://shop/3"}
]}}`

func newRecommend(d ports.WebhookDispatcher, cache ports.RecommendationCache, audit ports.AuditLog) *RecommendUseCase {
	return NewRecommendUseCase(d, NewFallbackSelector(nil), NewProductShaper(fixedSource{f: 0.5, n: 0}), cache, audit, quietLogger(),
		RecommendConfig{Endpoint: "http://hooks.test/recommend"})
}

func TestRecommendUseCase_ShapesRawRecords(t *testing.T) {
	d := &mockDispatcher{resp: jsonResponse(200, vnRecords)}
	uc := newRecommend(d, nil, nil)

	rec, err := uc.Recommend(context.Background(), map[string]any{"userEmail": "a@b.com", "category": "digital", "limit": float64(2)})
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if rec.IsFallback() {
		t.Fatal("expected live products")
	}
	if len(rec.Products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(rec.Products))
	}
	if rec.Products[0].Price != 1234.567 || rec.Products[1].Price != 15990 {
		t.Errorf("unexpected prices %v, %v", rec.Products[0].Price, rec.Products[1].Price)
	}
	for _, p := range rec.Products {
		if p.Category != "digital" {
			t.Errorf("unexpected category %s", p.Category)
		}
	}
	if rec.Reason != ReasonShaped || rec.Category != "digital" {
		t.Errorf("unexpected recommendation %+v", rec)
	}
}

func TestRecommendUseCase_Payload(t *testing.T) {
	d := &mockDispatcher{resp: jsonResponse(200, vnRecords)}
	uc := newRecommend(d, nil, nil)

	_, err := uc.Recommend(context.Background(), map[string]any{
		"userEmail":   "a@b.com",
		"category":    "food",
		"preferences": []any{"vegan"},
	})
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	call := d.calls[0]
	if call.Timeout != DefaultRecommendationTimeout {
		t.Errorf("expected 60s budget, got %s", call.Timeout)
	}
	payload, ok := call.Payload.(*entities.RecommendationPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", call.Payload)
	}
	if payload.Action != "get_recommendations" || payload.Limit != entities.DefaultRecommendationLimit {
		t.Errorf("unexpected payload %+v", payload)
	}
	if len(payload.Preferences) != 1 || payload.PreviousPurchases == nil {
		t.Errorf("unexpected lists %+v", payload)
	}
}

func TestRecommendUseCase_Fallback(t *testing.T) {
	for name, d := range map[string]*mockDispatcher{
		"timeout":  {err: &entities.TimeoutError{Endpoint: "x", Budget: time.Minute}},
		"status":   {resp: jsonResponse(500, `{}`)},
		"no shape": {resp: jsonResponse(200, `{"response":"hi"}`)},
	} {
		t.Run(name, func(t *testing.T) {
			audit := &mockAuditLog{}
			uc := newRecommend(d, nil, audit)
			rec, err := uc.Recommend(context.Background(), map[string]any{"userEmail": "a@b.com", "category": "clothes"})
			if err != nil {
				t.Fatalf("recommend failed: %v", err)
			}
			if !rec.IsFallback() || rec.Reason != ReasonPopular {
				t.Errorf("expected fallback, got %+v", rec)
			}
			if len(rec.Products) == 0 || rec.Products[0].Category != "clothes" {
				t.Errorf("unexpected fallback products %+v", rec.Products)
			}
			if len(audit.records) != 1 || audit.records[0].Domain != entities.DomainRecommendations {
				t.Errorf("unexpected audit %+v", audit.records)
			}
		})
	}
}

func TestRecommendUseCase_NotConfigured(t *testing.T) {
	d := &mockDispatcher{}
	uc := NewRecommendUseCase(d, NewFallbackSelector(nil), NewProductShaper(nil), nil, nil, quietLogger(), RecommendConfig{})

	_, err := uc.Recommend(context.Background(), map[string]any{"userEmail": "a@b.com", "category": "food"})
	if !errors.Is(err, ErrRecommendationsNotConfigured) {
		t.Fatalf("expected ErrRecommendationsNotConfigured, got %v", err)
	}
	if d.callCount() != 0 {
		t.Error("no call expected")
	}
}

func TestRecommendUseCase_ValidationMakesNoCall(t *testing.T) {
	d := &mockDispatcher{resp: jsonResponse(200, vnRecords)}
	uc := newRecommend(d, nil, nil)

	_, err := uc.Recommend(context.Background(), map[string]any{"userEmail": "a@b.com"})
	var vErr *entities.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if d.callCount() != 0 {
		t.Errorf("expected no calls, got %d", d.callCount())
	}
}

func TestRecommendUseCase_PassThroughClamped(t *testing.T) {
	d := &mockDispatcher{resp: jsonResponse(200, `{"products":[
		{"name":"Tea","price":-3,"rating":9,"reviewCount":5},
		{"id":"keep","name":"Rice","price":2,"rating":4.26,"reviewCount":5000,"tags":["Grain"]}
	],"reason":"Picked for you"}`)}
	uc := newRecommend(d, nil, nil)

	rec, err := uc.Recommend(context.Background(), map[string]any{"userEmail": "a@b.com", "category": "food"})
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	tea, rice := rec.Products[0], rec.Products[1]
	if tea.ID != "rec-food-1" || tea.Price != 0 || tea.Rating != 5 || tea.ReviewCount != 100 || tea.Tags == nil {
		t.Errorf("tea not normalized: %+v", tea)
	}
	if rice.ID != "keep" || rice.Rating != 4.3 || rice.ReviewCount != 1099 || rice.Category != "food" {
		t.Errorf("rice not normalized: %+v", rice)
	}
	if rec.Reason != "Picked for you" {
		t.Errorf("unexpected reason %s", rec.Reason)
	}
}

func TestRecommendUseCase_Cache(t *testing.T) {
	d := &mockDispatcher{resp: jsonResponse(200, vnRecords)}
	cache := &mockCache{}
	uc := newRecommend(d, cache, nil)
	raw := map[string]any{"userEmail": "A@B.com", "category": "digital", "limit": float64(3)}

	first, err := uc.Recommend(context.Background(), raw)
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	second, err := uc.Recommend(context.Background(), raw)
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if d.callCount() != 1 {
		t.Errorf("expected the second request to hit the cache, got %d calls", d.callCount())
	}
	if len(second.Products) != len(first.Products) || second.IsFallback() {
		t.Errorf("unexpected cached result %+v", second)
	}
	if cache.ttl != 10*time.Minute {
		t.Errorf("unexpected ttl %s", cache.ttl)
	}
	if second.Reason != first.Reason {
		t.Errorf("cached reason %q differs from live reason %q", second.Reason, first.Reason)
	}
	if len(cache.items) != 1 {
		t.Fatalf("expected one cache entry, got %d", len(cache.items))
	}
	for key := range cache.items {
		if !strings.HasPrefix(key, "rec:a@b.com:digital:3:") {
			t.Errorf("unexpected cache key %s", key)
		}
	}
}

func TestRecommendUseCase_CacheKeyedByPreferences(t *testing.T) {
	d := &mockDispatcher{respond: func(call ports.WebhookCall) (*entities.WebhookResponse, error) {
		payload := call.Payload.(*entities.RecommendationPayload)
		return jsonResponse(200, `{"products":[{"id":"`+payload.Preferences[0]+`","name":"x"}]}`), nil
	}}
	cache := &mockCache{}
	uc := newRecommend(d, cache, nil)
	ask := func(prefs ...any) *entities.Recommendation {
		rec, err := uc.Recommend(context.Background(), map[string]any{
			"userEmail": "a@b.com", "category": "food", "preferences": prefs,
		})
		if err != nil {
			t.Fatalf("recommend failed: %v", err)
		}
		return rec
	}

	vegan := ask("vegan")
	gaming := ask("gaming")
	if vegan.Products[0].ID != "vegan" || gaming.Products[0].ID != "gaming" {
		t.Errorf("preferences shared a cache entry: %s / %s", vegan.Products[0].ID, gaming.Products[0].ID)
	}
	if d.callCount() != 2 {
		t.Errorf("expected 2 upstream calls, got %d", d.callCount())
	}

	again := ask(" Vegan ")
	if again.Products[0].ID != "vegan" || d.callCount() != 2 {
		t.Errorf("equivalent preferences should hit the cache, calls=%d", d.callCount())
	}

	a := cacheKey(&entities.RecommendationRequest{UserEmail: "a@b.com", Category: "food", Limit: 6, Preferences: []string{"x", "y"}})
	b := cacheKey(&entities.RecommendationRequest{UserEmail: "a@b.com", Category: "food", Limit: 6, Preferences: []string{"y", "x"}})
	c := cacheKey(&entities.RecommendationRequest{UserEmail: "a@b.com", Category: "food", Limit: 6, PreviousPurchases: []string{"x", "y"}})
	if a != b {
		t.Error("preference order should not change the key")
	}
	if a == c {
		t.Error("preferences and purchases must not collide")
	}
}

func TestRecommendUseCase_FallbackNotCached(t *testing.T) {
	d := &mockDispatcher{resp: jsonResponse(502, `{}`)}
	cache := &mockCache{}
	uc := newRecommend(d, cache, nil)

	if _, err := uc.Recommend(context.Background(), map[string]any{"userEmail": "a@b.com", "category": "food"}); err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if len(cache.items) != 0 {
		t.Errorf("fallback products should not be cached: %v", cache.items)
	}
}

func TestRecommendUseCase_RefreshAll(t *testing.T) {
	d := &mockDispatcher{respond: func(call ports.WebhookCall) (*entities.WebhookResponse, error) {
		payload := call.Payload.(*entities.RecommendationPayload)
		if payload.Category == "clothes" {
			return nil, &entities.NetworkError{Endpoint: call.Endpoint, Err: errors.New("reset")}
		}
		return jsonResponse(200, vnRecords), nil
	}}
	uc := newRecommend(d, nil, nil)

	results, err := uc.RefreshAll(context.Background(), "a@b.com", 2)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if len(results) != len(RefreshCategories) {
		t.Fatalf("expected %d categories, got %d", len(RefreshCategories), len(results))
	}
	if !results["clothes"].IsFallback() {
		t.Error("failing category should be served from fallback")
	}
	if results["digital"].IsFallback() || len(results["food"].Products) != 2 {
		t.Errorf("sibling categories affected: %+v", results)
	}
	if d.callCount() != len(RefreshCategories) {
		t.Errorf("expected one call per category, got %d", d.callCount())
	}
}

func TestRecommendUseCase_RefreshAllValidation(t *testing.T) {
	uc := newRecommend(&mockDispatcher{}, nil, nil)
	_, err := uc.RefreshAll(context.Background(), " ", 0)
	var vErr *entities.ValidationError
	if !errors.As(err, &vErr) || !strings.Contains(vErr.Message, "userEmail") {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
