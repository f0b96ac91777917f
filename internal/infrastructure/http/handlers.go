package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
	"github.com/0xcro3dile/supportdesk-go/internal/domain/usecases"
)

const (
	maxRequestBytes = 1 << 20
	isoMillis       = "2006-01-02T15:04:05.000Z07:00"
	defaultStatsFor = 24 * time.Hour
)

const (
	msgInvalidBody          = "Invalid JSON body."
	msgMissingRecommendURL  = "Server configuration error: missing recommendation webhook URL."
	noteWebhookNotActive    = "Webhook not active - using intelligent fallback response"
	noteWebhookError        = "Using fallback response due to webhook error"
	noteFallbackRecommended = "Using fallback recommendations due to API error"
)

type chatRequestBody struct {
	Message        string `json:"message"`
	Category       string `json:"category" jsonschema:"enum=digital,enum=clothes,enum=food,enum=orders"`
	ConversationID string `json:"conversationId,omitempty"`
	UserEmail      string `json:"userEmail,omitempty"`
	Username       string `json:"Username,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
}

type chatResponse struct {
	Success        bool                  `json:"success"`
	Response       string                `json:"response"`
	BotType        string                `json:"botType,omitempty"`
	Note           string                `json:"note,omitempty"`
	ConversationID string                `json:"conversationId,omitempty"`
	Attachments    []entities.Attachment `json:"attachments,omitempty"`
}

type recommendationsRequestBody struct {
	UserEmail         string   `json:"userEmail"`
	Category          string   `json:"category"`
	Limit             int      `json:"limit,omitempty"`
	Preferences       []string `json:"preferences,omitempty"`
	PreviousPurchases []string `json:"previousPurchases,omitempty"`
}

type recommendationsResponse struct {
	Success   bool               `json:"success"`
	Products  []entities.Product `json:"products"`
	Category  string             `json:"category"`
	Reason    string             `json:"reason"`
	Timestamp string             `json:"timestamp"`
	Note      string             `json:"note,omitempty"`
}

type refreshRequestBody struct {
	UserEmail string `json:"userEmail"`
	Limit     int    `json:"limit,omitempty"`
}

type refreshResponse struct {
	Success            bool                          `json:"success"`
	Recommendations    map[string][]entities.Product `json:"recommendations"`
	FallbackCategories []string                      `json:"fallbackCategories"`
	Timestamp          string                        `json:"timestamp"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type statsResponse struct {
	Since     string                `json:"since"`
	Total     int                   `json:"total"`
	Fallbacks int                   `json:"fallbacks"`
	Counts    []entities.AuditCount `json:"counts"`
}

func buildSchemas() map[string]*jsonschema.Schema {
	r := &jsonschema.Reflector{AllowAdditionalProperties: true, DoNotReference: true}
	return map[string]*jsonschema.Schema{
		"chatRequest":             r.Reflect(&chatRequestBody{}),
		"chatResponse":            r.Reflect(&chatResponse{}),
		"recommendationsRequest":  r.Reflect(&recommendationsRequestBody{}),
		"recommendationsResponse": r.Reflect(&recommendationsResponse{}),
		"refreshRequest":          r.Reflect(&refreshRequestBody{}),
		"refreshResponse":         r.Reflect(&refreshResponse{}),
		"wsClientFrame":           r.Reflect(&wsIncoming{}),
		"wsServerFrame":           r.Reflect(&wsFrame{}),
	}
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)

	raw, err := decodeBody(r)
	if err != nil {
		log.WithError(err).Warn("rejecting malformed chat body")
		writeJSON(w, log, http.StatusBadRequest, chatResponse{Response: msgInvalidBody})
		return
	}

	reply, err := s.chat.Reply(r.Context(), raw)
	if err != nil {
		log.WithError(err).Info("chat request rejected")
		writeJSON(w, log, http.StatusBadRequest, chatResponse{Response: err.Error()})
		return
	}
	writeJSON(w, log, http.StatusOK, chatResponseFor(reply))
}

func chatResponseFor(reply *entities.ChatReply) chatResponse {
	resp := chatResponse{
		Success:        true,
		Response:       reply.Text,
		BotType:        usecases.BotType(reply.Category, reply.IsFallback()),
		ConversationID: reply.ConversationID,
		Attachments:    reply.Attachments,
	}
	switch reply.FallbackReason {
	case entities.ReasonWebhookNotActive:
		resp.Note = noteWebhookNotActive
	case entities.ReasonError:
		resp.Note = noteWebhookError
	}
	return resp
}

func (s *Server) recommendationsHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)

	raw, err := decodeBody(r)
	if err != nil {
		log.WithError(err).Warn("rejecting malformed recommendations body")
		writeJSON(w, log, http.StatusBadRequest, errorResponse{Error: msgInvalidBody})
		return
	}

	rec, err := s.recommend.Recommend(r.Context(), raw)
	if errors.Is(err, usecases.ErrRecommendationsNotConfigured) {
		log.WithError(err).Error("recommendations webhook URL is not set")
		writeJSON(w, log, http.StatusInternalServerError, errorResponse{Error: msgMissingRecommendURL})
		return
	}
	if err != nil {
		log.WithError(err).Info("recommendations request rejected")
		writeJSON(w, log, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	resp := recommendationsResponse{
		Success:   !rec.IsFallback(),
		Products:  nonNil(rec.Products),
		Category:  rec.Category,
		Reason:    rec.Reason,
		Timestamp: rec.Timestamp.Format(isoMillis),
	}
	if rec.IsFallback() {
		resp.Note = noteFallbackRecommended
	}
	writeJSON(w, log, http.StatusOK, resp)
}

func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)

	var body refreshRequestBody
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&body); err != nil {
		log.WithError(err).Warn("rejecting malformed refresh body")
		writeJSON(w, log, http.StatusBadRequest, errorResponse{Error: msgInvalidBody})
		return
	}

	results, err := s.recommend.RefreshAll(r.Context(), body.UserEmail, body.Limit)
	var validationErr *entities.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, log, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, usecases.ErrRecommendationsNotConfigured):
		log.WithError(err).Error("recommendations webhook URL is not set")
		writeJSON(w, log, http.StatusInternalServerError, errorResponse{Error: msgMissingRecommendURL})
		return
	case err != nil:
		log.WithError(err).Error("refresh failed")
		writeJSON(w, log, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	resp := refreshResponse{
		Recommendations:    make(map[string][]entities.Product, len(results)),
		FallbackCategories: []string{},
		Timestamp:          s.now().UTC().Format(isoMillis),
	}
	for _, category := range usecases.RefreshCategories {
		rec, ok := results[category]
		if !ok {
			continue
		}
		resp.Recommendations[category] = nonNil(rec.Products)
		if rec.IsFallback() {
			resp.FallbackCategories = append(resp.FallbackCategories, category)
		}
	}
	resp.Success = len(resp.FallbackCategories) == 0
	writeJSON(w, log, http.StatusOK, resp)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)

	window := defaultStatsFor
	if q := r.URL.Query().Get("since"); q != "" {
		d, err := time.ParseDuration(q)
		if err != nil || d <= 0 {
			writeJSON(w, log, http.StatusBadRequest, errorResponse{Error: "since must be a positive duration such as 1h or 30m"})
			return
		}
		window = d
	}
	since := s.now().Add(-window).UTC()

	resp := statsResponse{Since: since.Format(isoMillis), Counts: []entities.AuditCount{}}
	if s.audit != nil {
		counts, err := s.audit.Summary(r.Context(), since)
		if err != nil {
			log.WithError(err).Error("failed to summarize audit log")
			writeJSON(w, log, http.StatusInternalServerError, errorResponse{Error: "failed to read reply statistics"})
			return
		}
		if counts != nil {
			resp.Counts = counts
		}
	}
	for _, c := range resp.Counts {
		resp.Total += c.Count
		if c.SourceKind == entities.SourceFallback {
			resp.Fallbacks += c.Count
		}
	}
	writeJSON(w, log, http.StatusOK, resp)
}

func (s *Server) schemaHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	writeJSON(w, log, http.StatusOK, s.schemas)
}

// decodeBody reads an untyped JSON object. Numbers stay json.Number.
func decodeBody(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decoding request body")
	}
	if raw == nil {
		return nil, errors.New("request body is null")
	}
	return raw, nil
}

func writeJSON(w http.ResponseWriter, log logrus.FieldLogger, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func nonNil(products []entities.Product) []entities.Product {
	if products == nil {
		return []entities.Product{}
	}
	return products
}
