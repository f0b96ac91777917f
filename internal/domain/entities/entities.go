// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"strings"
	"time"
)

// Category is one of the fixed assistant specialties.
type Category string

const (
	CategoryDigital Category = "digital"
	CategoryClothes Category = "clothes"
	CategoryFood    Category = "food"
	CategoryOrders  Category = "orders"
)

// Categories lists every known category in display order.
var Categories = []Category{CategoryDigital, CategoryClothes, CategoryFood, CategoryOrders}

// ParseCategory maps a raw string onto a known category.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.TrimSpace(s)); c {
	case CategoryDigital, CategoryClothes, CategoryFood, CategoryOrders:
		return c, true
	default:
		return "", false
	}
}

// SourceKind tells whether a reply came from the webhook or from canned content.
type SourceKind string

const (
	SourceLive     SourceKind = "live"
	SourceFallback SourceKind = "fallback"
)

// FallbackReason is why a canned reply was selected.
type FallbackReason string

const (
	ReasonProcessing       FallbackReason = "processing"
	ReasonTimeout          FallbackReason = "timeout"
	ReasonError            FallbackReason = "error"
	ReasonEndpointNotFound FallbackReason = "endpoint_not_found"
	ReasonWebhookNotActive FallbackReason = "webhook_not_active"
)

// FallbackReasons lists the full reason taxonomy.
var FallbackReasons = []FallbackReason{
	ReasonProcessing,
	ReasonTimeout,
	ReasonError,
	ReasonEndpointNotFound,
	ReasonWebhookNotActive,
}

// ChatRequest is a validated inbound chat message.
type ChatRequest struct {
	Message        string
	Category       Category
	ConversationID string
	UserEmail      string
	Username       string
	Timestamp      string // RFC 3339
}

// AttachmentKind is the kind of structured card riding on a reply.
type AttachmentKind string

const (
	AttachmentProduct AttachmentKind = "product"
	AttachmentOrder   AttachmentKind = "order"
)

// Attachment references an external product or order by opaque identity.
type Attachment struct {
	Type       AttachmentKind `json:"type"`
	Title      string         `json:"title,omitempty"`
	OrderID    string         `json:"orderId,omitempty"`
	ProductURL string         `json:"productUrl,omitempty"`
	URL        string         `json:"url,omitempty"`
}

// ChatReply is the outcome of one chat request. Text is never empty.
type ChatReply struct {
	Text           string
	SourceKind     SourceKind
	FallbackReason FallbackReason // empty for live replies
	Category       Category
	ConversationID string
	Attachments    []Attachment
}

// IsFallback reports whether the reply came from canned content.
func (r *ChatReply) IsFallback() bool {
	return r.SourceKind == SourceFallback
}

// DefaultRecommendationLimit applies when the caller omits limit.
const DefaultRecommendationLimit = 6

// RecommendationRequest is a validated inbound recommendation query.
type RecommendationRequest struct {
	UserEmail         string
	Category          string
	Limit             int
	Preferences       []string
	PreviousPurchases []string
}

// RawProduct is a locale-specific product record as returned by the webhook.
type RawProduct struct {
	ProductName string `json:"product_name"`
	ImageURL    string `json:"image_url"`
	Price       string `json:"price"` // e.g. "1.234.567₫"
	ProductURL  string `json:"product_url"`
}

// Product is a normalized product ready for display.
type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Image         string   `json:"image"`
	Category      string   `json:"category"`
	Rating        float64  `json:"rating"`
	ReviewCount   int      `json:"reviewCount"`
	Tags          []string `json:"tags"`
	InStock       bool     `json:"inStock"`
	ProductURL    string   `json:"productUrl,omitempty"`
}

// Recommendation is the outcome of one recommendation request.
type Recommendation struct {
	Products   []Product
	Category   string
	Reason     string
	SourceKind SourceKind
	Timestamp  time.Time
}

// CachedRecommendation is a live result kept between identical requests.
type CachedRecommendation struct {
	Products []Product `json:"products"`
	Reason   string    `json:"reason"`
}

// IsFallback reports whether the products are the canned set.
func (r *Recommendation) IsFallback() bool {
	return r.SourceKind == SourceFallback
}

// WebhookResponse is the raw upstream answer, whatever its status.
type WebhookResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsSuccess reports a 2xx status.
func (r *WebhookResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsJSON reports whether the response declares a JSON body.
func (r *WebhookResponse) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "application/json")
}

// Domain names the pipeline a record belongs to.
type Domain string

const (
	DomainChat            Domain = "chat"
	DomainRecommendations Domain = "recommendations"
)

// AuditRecord is one reply outcome kept for internal monitoring.
type AuditRecord struct {
	ID             string
	Domain         Domain
	Category       string
	SourceKind     SourceKind
	FallbackReason FallbackReason
	ConversationID string
	UserEmail      string
	LatencyMS      int64
	CreatedAt      time.Time
}

// AuditCount aggregates records sharing the same outcome.
type AuditCount struct {
	Domain         Domain         `json:"domain"`
	SourceKind     SourceKind     `json:"sourceKind"`
	FallbackReason FallbackReason `json:"fallbackReason,omitempty"`
	Count          int            `json:"count"`
}
