// Package usecases - recommend.go fetches, shapes and caches product recommendations.
package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
	"github.com/0xcro3dile/supportdesk-go/internal/domain/ports"
)

// DefaultRecommendationTimeout is the recommendations dispatch budget.
const DefaultRecommendationTimeout = 60 * time.Second

// Reasons shown alongside a product list.
const (
	ReasonShaped       = "Sản phẩm được đề xuất cho bạn"
	ReasonPersonalized = "Personalized recommendations for you"
	ReasonPopular      = "Popular items you might like"
)

const (
	recommendationSource = "product-recommendations"
	recommendationAction = "get_recommendations"
)

// RefreshCategories are fetched together by RefreshAll.
var RefreshCategories = []string{
	string(entities.CategoryDigital),
	string(entities.CategoryClothes),
	string(entities.CategoryFood),
}

// ErrRecommendationsNotConfigured means no recommendations webhook URL is set.
var ErrRecommendationsNotConfigured = errors.New("recommendations webhook not configured")

// RecommendUseCase runs the recommendation pipeline.
type RecommendUseCase struct {
	dispatcher ports.WebhookDispatcher
	fallbacks  *FallbackSelector
	shaper     *ProductShaper
	cache      ports.RecommendationCache
	audit      ports.AuditLog
	log        logrus.FieldLogger
	cfg        RecommendConfig
	now        func() time.Time
}

// RecommendConfig carries the endpoint and budgets.
type RecommendConfig struct {
	Endpoint string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// NewRecommendUseCase wires the recommendation pipeline. cache and audit may be nil.
func NewRecommendUseCase(
	dispatcher ports.WebhookDispatcher,
	fallbacks *FallbackSelector,
	shaper *ProductShaper,
	cache ports.RecommendationCache,
	audit ports.AuditLog,
	log logrus.FieldLogger,
	cfg RecommendConfig,
) *RecommendUseCase {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRecommendationTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RecommendUseCase{
		dispatcher: dispatcher,
		fallbacks:  fallbacks,
		shaper:     shaper,
		cache:      cache,
		audit:      audit,
		log:        log,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Recommend validates a raw body and answers it.
func (uc *RecommendUseCase) Recommend(ctx context.Context, raw map[string]any) (*entities.Recommendation, error) {
	req, err := NormalizeRecommendation(raw)
	if err != nil {
		return nil, err
	}
	return uc.Suggest(ctx, req)
}

// Suggest answers a validated request. The only error is
// ErrRecommendationsNotConfigured; upstream failures yield fallback products.
func (uc *RecommendUseCase) Suggest(ctx context.Context, req *entities.RecommendationRequest) (*entities.Recommendation, error) {
	if uc.cfg.Endpoint == "" {
		return nil, ErrRecommendationsNotConfigured
	}
	start := uc.now()
	log := uc.log.WithFields(logrus.Fields{"category": req.Category, "limit": req.Limit})

	key := cacheKey(req)
	if uc.cache != nil {
		entry, ok, err := uc.cache.Get(ctx, key)
		if err != nil {
			log.WithError(err).Warn("recommendation cache lookup failed")
		} else if ok {
			log.Debug("recommendations served from cache")
			reason := entry.Reason
			if reason == "" {
				reason = ReasonPersonalized
			}
			return &entities.Recommendation{
				Products:   truncate(entry.Products, req.Limit),
				Category:   req.Category,
				Reason:     reason,
				SourceKind: entities.SourceLive,
				Timestamp:  start.UTC(),
			}, nil
		}
	}

	rec, cause := uc.fetch(ctx, req)
	if cause != nil {
		rec = &entities.Recommendation{
			Products:   truncate(uc.fallbacks.FallbackProducts(req.Category), req.Limit),
			Reason:     ReasonPopular,
			SourceKind: entities.SourceFallback,
		}
	}
	rec.Category = req.Category
	rec.Timestamp = uc.now().UTC()

	if cause == nil && uc.cache != nil {
		entry := entities.CachedRecommendation{Products: rec.Products, Reason: rec.Reason}
		if err := uc.cache.Set(ctx, key, entry, uc.cfg.CacheTTL); err != nil {
			log.WithError(err).Warn("recommendation cache store failed")
		}
	}

	uc.report(ctx, req, rec, cause, uc.now().Sub(start))
	return rec, nil
}

func (uc *RecommendUseCase) fetch(ctx context.Context, req *entities.RecommendationRequest) (*entities.Recommendation, error) {
	resp, err := uc.dispatcher.Dispatch(ctx, ports.WebhookCall{
		Endpoint: uc.cfg.Endpoint,
		Timeout:  uc.cfg.Timeout,
		Payload: &entities.RecommendationPayload{
			UserEmail:         req.UserEmail,
			Category:          req.Category,
			Limit:             req.Limit,
			Preferences:       req.Preferences,
			PreviousPurchases: req.PreviousPurchases,
			Timestamp:         uc.now().UTC().Format(time.RFC3339),
			Source:            recommendationSource,
			Action:            recommendationAction,
			Context:           uc.fallbacks.RecommendationContext(req.Category),
		},
	})
	if err != nil {
		return nil, err
	}

	interp, err := InterpretRecommendations(resp)
	if err != nil {
		return nil, err
	}

	var products []entities.Product
	if interp.Shaped() {
		products = uc.shaper.Shape(interp.Raw, req.Category)
	} else {
		products = normalizeProducts(interp.Products, req.Category)
	}
	return &entities.Recommendation{
		Products:   truncate(products, req.Limit),
		Reason:     interp.Reason,
		SourceKind: entities.SourceLive,
	}, nil
}

func (uc *RecommendUseCase) report(ctx context.Context, req *entities.RecommendationRequest, rec *entities.Recommendation, cause error, took time.Duration) {
	entry := uc.log.WithFields(logrus.Fields{
		"category":    req.Category,
		"source_kind": rec.SourceKind,
		"products":    len(rec.Products),
		"took_ms":     took.Milliseconds(),
	})
	var reason entities.FallbackReason
	if cause != nil {
		reason = FallbackReasonFor(cause)
		entry.WithError(cause).WithField("fallback_reason", reason).Warn("recommendations served from fallback")
	} else {
		entry.Info("recommendations served")
	}

	if uc.audit == nil {
		return
	}
	err := uc.audit.Record(context.WithoutCancel(ctx), entities.AuditRecord{
		ID:             ulid.Make().String(),
		Domain:         entities.DomainRecommendations,
		Category:       req.Category,
		SourceKind:     rec.SourceKind,
		FallbackReason: reason,
		UserEmail:      req.UserEmail,
		LatencyMS:      took.Milliseconds(),
		CreatedAt:      uc.now().UTC(),
	})
	if err != nil {
		uc.log.WithError(err).Error("failed to record recommendation audit entry")
	}
}

// RefreshAll fetches every RefreshCategories entry concurrently. A failing
// category never aborts its siblings; the error is returned only when every
// category failed.
func (uc *RecommendUseCase) RefreshAll(ctx context.Context, userEmail string, limit int) (map[string]*entities.Recommendation, error) {
	if strings.TrimSpace(userEmail) == "" {
		return nil, &entities.ValidationError{Message: "Missing required field: userEmail is required."}
	}
	if limit <= 0 {
		limit = entities.DefaultRecommendationLimit
	}

	results := make([]*entities.Recommendation, len(RefreshCategories))
	errs := make([]error, len(RefreshCategories))
	var wg sync.WaitGroup
	for i, category := range RefreshCategories {
		wg.Add(1)
		go func(i int, category string) {
			defer wg.Done()
			results[i], errs[i] = uc.Suggest(ctx, &entities.RecommendationRequest{
				UserEmail:         userEmail,
				Category:          category,
				Limit:             limit,
				Preferences:       []string{},
				PreviousPurchases: []string{},
			})
		}(i, category)
	}
	wg.Wait()

	out := make(map[string]*entities.Recommendation, len(RefreshCategories))
	var firstErr error
	for i, category := range RefreshCategories {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		out[category] = results[i]
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// normalizeProducts enforces the Product invariants on pass-through and
// canned items. Ids are made unique within the list.
func normalizeProducts(products []entities.Product, category string) []entities.Product {
	out := make([]entities.Product, 0, len(products))
	seen := make(map[string]bool, len(products))
	for i, p := range products {
		if p.ID == "" {
			p.ID = fmt.Sprintf("rec-%s-%d", category, i+1)
		}
		for base, n := p.ID, 2; seen[p.ID]; n++ {
			p.ID = fmt.Sprintf("%s-%d", base, n)
		}
		seen[p.ID] = true
		if p.Category == "" {
			p.Category = category
		}
		if p.Price < 0 || math.IsNaN(p.Price) {
			p.Price = 0
		}
		if p.OriginalPrice != nil && *p.OriginalPrice < 0 {
			p.OriginalPrice = nil
		}
		p.Rating = roundRating(math.Min(5, math.Max(4, p.Rating)))
		if p.ReviewCount < 100 {
			p.ReviewCount = 100
		} else if p.ReviewCount > 1099 {
			p.ReviewCount = 1099
		}
		if p.Tags == nil {
			p.Tags = []string{}
		}
		out = append(out, p)
	}
	return out
}

func truncate(products []entities.Product, limit int) []entities.Product {
	if limit > 0 && len(products) > limit {
		return products[:limit]
	}
	return products
}

// cacheKey identifies a request: the user, category and limit in clear, and
// a digest of preferences and purchases (order-insensitive).
func cacheKey(req *entities.RecommendationRequest) string {
	h := sha256.New()
	for _, list := range [][]string{req.Preferences, req.PreviousPurchases} {
		items := make([]string, len(list))
		for i, item := range list {
			items[i] = strings.ToLower(strings.TrimSpace(item))
		}
		sort.Strings(items)
		for _, item := range items {
			h.Write([]byte(item))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return fmt.Sprintf("rec:%s:%s:%d:%s", strings.ToLower(req.UserEmail), req.Category, req.Limit, hex.EncodeToString(h.Sum(nil)[:8]))
}
