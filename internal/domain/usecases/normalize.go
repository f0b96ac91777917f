// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
// They contain NO framework code - just the request/response pipeline.
package usecases

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
)

const (
	msgMissingChatFields           = "Missing required fields: message and category are required."
	msgMissingRecommendationFields = "Missing required fields: userEmail and category are required."
)

// NormalizeChat validates an untyped inbound chat body.
// Missing message/category fails with *entities.ValidationError, an unknown
// category with *entities.UnsupportedCategoryError.
func NormalizeChat(raw map[string]any) (*entities.ChatRequest, error) {
	message := stringField(raw, "message")
	category := stringField(raw, "category")
	if strings.TrimSpace(message) == "" || strings.TrimSpace(category) == "" {
		return nil, &entities.ValidationError{Message: msgMissingChatFields}
	}

	cat, ok := entities.ParseCategory(category)
	if !ok {
		return nil, &entities.UnsupportedCategoryError{Category: category}
	}

	userEmail := stringField(raw, "userEmail")
	username := stringField(raw, "Username")
	if username == "" {
		username = stringField(raw, "username")
	}

	return &entities.ChatRequest{
		Message:        message,
		Category:       cat,
		ConversationID: stringField(raw, "conversationId"),
		UserEmail:      userEmail,
		Username:       username,
		Timestamp:      stringField(raw, "timestamp"),
	}, nil
}

// NormalizeRecommendation validates an untyped inbound recommendation body.
// Only userEmail and category are required; the category is not restricted
// to the known set.
func NormalizeRecommendation(raw map[string]any) (*entities.RecommendationRequest, error) {
	userEmail := strings.TrimSpace(stringField(raw, "userEmail"))
	category := strings.TrimSpace(stringField(raw, "category"))
	if userEmail == "" || category == "" {
		return nil, &entities.ValidationError{Message: msgMissingRecommendationFields}
	}

	return &entities.RecommendationRequest{
		UserEmail:         userEmail,
		Category:          category,
		Limit:             limitField(raw, "limit"),
		Preferences:       stringList(raw, "preferences"),
		PreviousPurchases: stringList(raw, "previousPurchases"),
	}, nil
}

func stringField(raw map[string]any, key string) string {
	if s, ok := raw[key].(string); ok {
		return s
	}
	return ""
}

func limitField(raw map[string]any, key string) int {
	var n float64
	switch v := raw[key].(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return entities.DefaultRecommendationLimit
		}
		n = f
	default:
		return entities.DefaultRecommendationLimit
	}
	if n < 1 || math.IsNaN(n) || n > math.MaxInt32 {
		return entities.DefaultRecommendationLimit
	}
	return int(n)
}

func stringList(raw map[string]any, key string) []string {
	items, _ := raw[key].([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
