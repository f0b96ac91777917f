package usecases

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
)

func TestNormalizeChat_AcceptsKnownCategories(t *testing.T) {
	for _, cat := range entities.Categories {
		req, err := NormalizeChat(map[string]any{"message": "hello", "category": string(cat)})
		if err != nil {
			t.Fatalf("category %s rejected: %v", cat, err)
		}
		if req.Category != cat {
			t.Errorf("expected category %s, got %s", cat, req.Category)
		}
	}
}

func TestNormalizeChat_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"empty body", map[string]any{}},
		{"no category", map[string]any{"message": "hi"}},
		{"no message", map[string]any{"category": "food"}},
		{"blank message", map[string]any{"message": "   ", "category": "food"}},
		{"non-string message", map[string]any{"message": 42, "category": "food"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeChat(tt.raw)
			var vErr *entities.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Message != msgMissingChatFields {
				t.Errorf("unexpected message: %s", vErr.Message)
			}
		})
	}
}

func TestNormalizeChat_UnsupportedCategory(t *testing.T) {
	_, err := NormalizeChat(map[string]any{"message": "hi", "category": "toys"})
	var catErr *entities.UnsupportedCategoryError
	if !errors.As(err, &catErr) {
		t.Fatalf("expected UnsupportedCategoryError, got %v", err)
	}
	if catErr.Category != "toys" {
		t.Errorf("unexpected category: %s", catErr.Category)
	}
}

func TestNormalizeChat_OptionalFields(t *testing.T) {
	req, err := NormalizeChat(map[string]any{
		"message":        "where is my order",
		"category":       "orders",
		"Username":       "Lan",
		"userEmail":      "lan@example.com",
		"conversationId": "conv-1",
		"timestamp":      "2024-05-01T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if req.Username != "Lan" || req.UserEmail != "lan@example.com" {
		t.Errorf("identity not carried: %+v", req)
	}
	if req.ConversationID != "conv-1" || req.Timestamp != "2024-05-01T10:00:00Z" {
		t.Errorf("conversation fields not carried: %+v", req)
	}

	req, _ = NormalizeChat(map[string]any{"message": "x", "category": "food", "username": "lower"})
	if req.Username != "lower" {
		t.Errorf("expected lowercase username fallback, got %q", req.Username)
	}
}

func TestNormalizeRecommendation_Defaults(t *testing.T) {
	req, err := NormalizeRecommendation(map[string]any{"userEmail": "a@b.com", "category": "gadgets"})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if req.Limit != entities.DefaultRecommendationLimit {
		t.Errorf("expected default limit, got %d", req.Limit)
	}
	if req.Category != "gadgets" {
		t.Errorf("category should not be restricted, got %s", req.Category)
	}
	if req.Preferences == nil || req.PreviousPurchases == nil {
		t.Error("lists should default to empty, not nil")
	}
}

func TestNormalizeRecommendation_Limit(t *testing.T) {
	tests := []struct {
		raw  any
		want int
	}{
		{float64(2), 2},
		{3, 3},
		{json.Number("4"), 4},
		{float64(0), entities.DefaultRecommendationLimit},
		{float64(-5), entities.DefaultRecommendationLimit},
		{"7", entities.DefaultRecommendationLimit},
		{nil, entities.DefaultRecommendationLimit},
	}
	for _, tt := range tests {
		req, err := NormalizeRecommendation(map[string]any{"userEmail": "a@b.com", "category": "food", "limit": tt.raw})
		if err != nil {
			t.Fatalf("normalize failed: %v", err)
		}
		if req.Limit != tt.want {
			t.Errorf("limit %v: expected %d, got %d", tt.raw, tt.want, req.Limit)
		}
	}
}

func TestNormalizeRecommendation_StringLists(t *testing.T) {
	req, err := NormalizeRecommendation(map[string]any{
		"userEmail":         "a@b.com",
		"category":          "food",
		"preferences":       []any{"vegan", 3, "spicy"},
		"previousPurchases": "not a list",
	})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if len(req.Preferences) != 2 || req.Preferences[1] != "spicy" {
		t.Errorf("unexpected preferences: %v", req.Preferences)
	}
	if len(req.PreviousPurchases) != 0 {
		t.Errorf("expected no purchases, got %v", req.PreviousPurchases)
	}
}

func TestNormalizeRecommendation_MissingFields(t *testing.T) {
	for _, raw := range []map[string]any{
		{"category": "food"},
		{"userEmail": "a@b.com"},
		{"userEmail": " ", "category": "food"},
	} {
		_, err := NormalizeRecommendation(raw)
		var vErr *entities.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError for %v, got %v", raw, err)
		}
		if vErr.Message != msgMissingRecommendationFields {
			t.Errorf("unexpected message: %s", vErr.Message)
		}
	}
}
