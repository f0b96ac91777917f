package usecases

import (
	"strings"
	"sync/atomic"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
)

// GenericChatFallback answers when even the category is unknown.
const GenericChatFallback = "I'm here to help! While our AI system is being activated, I'm ready to assist you with your questions. How can I help you today?"

// GenericContext is sent upstream for categories without a dedicated prompt.
const GenericContext = "You are a helpful customer service assistant."

// Catalog is the static content behind the fallback selector and the
// context strings sent upstream.
type Catalog struct {
	ChatFallbacks          map[entities.Category]map[entities.FallbackReason]string
	ChatContexts           map[entities.Category]string
	RecommendationContexts map[entities.Category]string
	FallbackProducts       map[entities.Category][]entities.Product
}

// DefaultCatalog returns the built-in content. Every category has an entry
// for every reason.
func DefaultCatalog() *Catalog {
	return &Catalog{
		ChatFallbacks: map[entities.Category]map[entities.FallbackReason]string{
			entities.CategoryDigital: {
				entities.ReasonProcessing:       "I'm analyzing your digital product inquiry. Our digital products specialist will follow up with details shortly.",
				entities.ReasonTimeout:          "Our digital products database is taking a little longer than usual. Meanwhile, tell me which software, app or license you are looking at.",
				entities.ReasonError:            "I'm having trouble reaching our digital products system. I can still help with software, downloads, licenses and online services. What are you interested in?",
				entities.ReasonEndpointNotFound: "I'm your digital products specialist! While our AI system is being set up, I can help with software, digital downloads, licenses, apps and online services. What can I find for you?",
				entities.ReasonWebhookNotActive: "Hello! I'm your digital products specialist. Our AI system is in setup mode, but I can already help with software recommendations, licensing and technical questions. What do you need?",
			},
			entities.CategoryClothes: {
				entities.ReasonProcessing:       "I'm checking our fashion catalog for you. Our clothing specialist will help with sizing, styles and recommendations.",
				entities.ReasonTimeout:          "Our fashion database is slow to answer. While it loads, I can help with general sizing questions or style ideas.",
				entities.ReasonError:            "I'm having trouble reaching our fashion system. I can still help with sizes, materials, styles and fit. What clothing item are you looking for?",
				entities.ReasonEndpointNotFound: "I'm your fashion and clothing specialist! While our AI system is being configured, I can help with sizing guides, style advice, materials and care instructions. What can I help you with?",
				entities.ReasonWebhookNotActive: "Hi there! I'm your fashion specialist. Our AI system is being activated, but I'm ready to help with sizing, style and care questions. What are you shopping for today?",
			},
			entities.CategoryFood: {
				entities.ReasonProcessing:       "I'm checking our menu and food options for you. Our food & beverage specialist will have fresh recommendations shortly.",
				entities.ReasonTimeout:          "Our food database is taking a moment. Meanwhile, I can help with menu questions or dietary preferences.",
				entities.ReasonError:            "I'm having trouble reaching our food system. I can still help with menu items, ingredients, dietary restrictions and delivery. What are you interested in?",
				entities.ReasonEndpointNotFound: "I'm your food and beverage specialist! While our AI system is being prepared, I can help with the menu, ingredients, nutrition and delivery details. What can I help you with?",
				entities.ReasonWebhookNotActive: "Welcome! I'm your food and beverage specialist. Our AI system is being prepared, but I can already help you find something delicious. What are you craving today?",
			},
			entities.CategoryOrders: {
				entities.ReasonProcessing:       "I'm looking up your order information. If you have your order number handy, please share it so I can give you specific details.",
				entities.ReasonTimeout:          "Our order tracking system is slow to respond. Please have your order number ready; you can find it in your confirmation email or your order history.",
				entities.ReasonError:            "I'm having trouble reaching our order management system. I can still help with tracking, returns, exchanges and delivery. Do you have your order number? It looks like #12345.",
				entities.ReasonEndpointNotFound: "I'm your order management specialist! While our tracking system is being updated, I can help with tracking, returns, exchanges and delivery questions. Do you have an order number in the format #12345?",
				entities.ReasonWebhookNotActive: "Hello! I'm your order management specialist. Our AI system is being activated, but I can help with tracking, returns and shipping right away. For the fastest help, share your order number in the format #12345.",
			},
		},
		ChatContexts: map[entities.Category]string{
			entities.CategoryDigital: "You are a digital products specialist. Help with software, digital downloads, licenses, online services, apps, and digital content.",
			entities.CategoryClothes: "You are a fashion and clothing specialist. Help with sizing, materials, styles, fit, care instructions, and fashion advice.",
			entities.CategoryFood:    "You are a food and beverage specialist. Help with menu items, ingredients, dietary restrictions, nutrition, and delivery options.",
			entities.CategoryOrders:  "You are an order management specialist. Help with order tracking, shipping, returns, exchanges, refunds, and delivery status. When users ask about specific orders, ask for their order number in the format #12345.",
		},
		RecommendationContexts: map[entities.Category]string{
			entities.CategoryDigital: "Generate product recommendations for digital products including software, apps, digital downloads, online services, and digital content.",
			entities.CategoryClothes: "Generate product recommendations for clothing and fashion items including shirts, pants, shoes, and accessories.",
			entities.CategoryFood:    "Generate product recommendations for food and beverage items including snacks, drinks, gourmet items, and specialty foods.",
			entities.CategoryOrders:  "Generate product recommendations for order-related services including shipping upgrades, gift wrapping, and additional services.",
		},
		FallbackProducts: map[entities.Category][]entities.Product{
			entities.CategoryDigital: {
				fallbackProduct("dig-1", "Premium Photo Editor Pro", "Professional photo editing software with AI features", 89.99, 129.99, "digital", 4.8, 1047, "Software", "Photography", "AI"),
				fallbackProduct("dig-2", "Cloud Backup Plan (1 year)", "Encrypted backup for all your devices", 49.99, 0, "digital", 4.6, 812, "Software", "Cloud", "Security"),
			},
			entities.CategoryClothes: {
				fallbackProduct("clo-1", "Premium Cotton T-Shirt", "Soft, comfortable cotton t-shirt in multiple colors", 24.99, 34.99, "clothes", 4.5, 567, "Cotton", "Casual", "Comfortable"),
				fallbackProduct("clo-2", "Slim Fit Chinos", "Stretch chinos for work and weekends", 39.99, 0, "clothes", 4.4, 318, "Pants", "Casual"),
			},
			entities.CategoryFood: {
				fallbackProduct("foo-1", "Organic Coffee Beans", "Premium organic coffee beans from sustainable farms", 18.99, 0, "food", 4.9, 445, "Coffee", "Organic", "Premium"),
				fallbackProduct("foo-2", "Artisan Dark Chocolate", "72% cacao bar made in small batches", 6.49, 0, "food", 4.7, 289, "Chocolate", "Gourmet"),
			},
			entities.CategoryOrders: {
				fallbackProduct("ord-1", "Express Shipping Upgrade", "Upgrade your order to express shipping", 9.99, 0, "orders", 4.4, 156, "Shipping", "Express", "Fast"),
				fallbackProduct("ord-2", "Gift Wrapping", "Premium wrapping with a handwritten card", 4.99, 0, "orders", 4.6, 203, "Gift", "Service"),
			},
		},
	}
}

func fallbackProduct(id, name, description string, price, originalPrice float64, category string, rating float64, reviews int, tags ...string) entities.Product {
	p := entities.Product{
		ID:          id,
		Name:        name,
		Description: description,
		Price:       price,
		Image:       "/placeholder.svg?height=200&width=200",
		Category:    category,
		Rating:      rating,
		ReviewCount: reviews,
		Tags:        tags,
		InStock:     true,
	}
	if originalPrice > 0 {
		p.OriginalPrice = &originalPrice
	}
	return p
}

// Clone deep-copies the catalog so overrides never touch the active one.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{
		ChatFallbacks:          make(map[entities.Category]map[entities.FallbackReason]string, len(c.ChatFallbacks)),
		ChatContexts:           make(map[entities.Category]string, len(c.ChatContexts)),
		RecommendationContexts: make(map[entities.Category]string, len(c.RecommendationContexts)),
		FallbackProducts:       make(map[entities.Category][]entities.Product, len(c.FallbackProducts)),
	}
	for cat, reasons := range c.ChatFallbacks {
		m := make(map[entities.FallbackReason]string, len(reasons))
		for r, text := range reasons {
			m[r] = text
		}
		out.ChatFallbacks[cat] = m
	}
	for cat, s := range c.ChatContexts {
		out.ChatContexts[cat] = s
	}
	for cat, s := range c.RecommendationContexts {
		out.RecommendationContexts[cat] = s
	}
	for cat, products := range c.FallbackProducts {
		out.FallbackProducts[cat] = copyProducts(products)
	}
	return out
}

// FallbackSelector picks canned content. It never fails and is safe for
// concurrent use; the catalog can be swapped at runtime.
type FallbackSelector struct {
	catalog atomic.Pointer[Catalog]
}

// NewFallbackSelector starts from the given catalog, or the defaults when nil.
func NewFallbackSelector(catalog *Catalog) *FallbackSelector {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	s := &FallbackSelector{}
	s.catalog.Store(catalog)
	return s
}

// Swap replaces the active catalog.
func (s *FallbackSelector) Swap(catalog *Catalog) {
	if catalog != nil {
		s.catalog.Store(catalog)
	}
}

// Catalog returns the active catalog. Callers must not mutate it.
func (s *FallbackSelector) Catalog() *Catalog {
	return s.catalog.Load()
}

// ChatFallback returns the canned reply for (category, reason).
func (s *FallbackSelector) ChatFallback(category string, reason entities.FallbackReason) string {
	cat, known := entities.ParseCategory(category)
	if !known {
		return GenericChatFallback
	}
	reasons, ok := s.catalog.Load().ChatFallbacks[cat]
	if !ok {
		return GenericChatFallback
	}
	text, ok := reasons[reason]
	if !ok || strings.TrimSpace(text) == "" {
		return GenericChatFallback
	}
	return text
}

// ChatContext is the system prompt sent upstream with a chat message.
func (s *FallbackSelector) ChatContext(category entities.Category) string {
	ctx, ok := s.catalog.Load().ChatContexts[category]
	if !ok || ctx == "" {
		return GenericContext
	}
	return ctx
}

// RecommendationContext is the prompt sent upstream with a recommendation
// query. Unknown categories use the digital prompt.
func (s *FallbackSelector) RecommendationContext(category string) string {
	contexts := s.catalog.Load().RecommendationContexts
	if cat, known := entities.ParseCategory(category); known {
		if ctx, ok := contexts[cat]; ok && ctx != "" {
			return ctx
		}
	}
	if ctx, ok := contexts[entities.CategoryDigital]; ok && ctx != "" {
		return ctx
	}
	return DefaultCatalog().RecommendationContexts[entities.CategoryDigital]
}

// FallbackProducts returns a copy of the canned products for category,
// using the digital list for unknown categories. Never empty. Products are
// normalized, so loaded content that omits rating or reviewCount still
// satisfies the Product ranges.
func (s *FallbackSelector) FallbackProducts(category string) []entities.Product {
	all := s.catalog.Load().FallbackProducts
	if cat, known := entities.ParseCategory(category); known {
		if products, ok := all[cat]; ok && len(products) > 0 {
			return normalizeProducts(copyProducts(products), string(cat))
		}
	}
	digital := string(entities.CategoryDigital)
	if products, ok := all[entities.CategoryDigital]; ok && len(products) > 0 {
		return normalizeProducts(copyProducts(products), digital)
	}
	return normalizeProducts(copyProducts(DefaultCatalog().FallbackProducts[entities.CategoryDigital]), digital)
}

func copyProducts(in []entities.Product) []entities.Product {
	out := make([]entities.Product, len(in))
	for i, p := range in {
		p.Tags = append([]string(nil), p.Tags...)
		if p.OriginalPrice != nil {
			v := *p.OriginalPrice
			p.OriginalPrice = &v
		}
		out[i] = p
	}
	return out
}
