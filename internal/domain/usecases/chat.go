// Package usecases - chat.go proxies chat messages to the webhook and always answers.
package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
	"github.com/0xcro3dile/supportdesk-go/internal/domain/ports"
)

// DefaultChatTimeout is the chat dispatch budget.
const DefaultChatTimeout = 15 * time.Second

const chatSource = "customer-support-chat"

// ChatUseCase runs the chat pipeline: normalize, dispatch, interpret, and
// fall back on any failure after validation.
type ChatUseCase struct {
	dispatcher ports.WebhookDispatcher
	fallbacks  *FallbackSelector
	audit      ports.AuditLog
	log        logrus.FieldLogger
	endpoint   string
	timeout    time.Duration
	now        func() time.Time
}

// NewChatUseCase wires the chat pipeline. audit may be nil. An empty
// endpoint makes every reply a fallback.
func NewChatUseCase(
	dispatcher ports.WebhookDispatcher,
	fallbacks *FallbackSelector,
	audit ports.AuditLog,
	log logrus.FieldLogger,
	endpoint string,
	timeout time.Duration,
) *ChatUseCase {
	if timeout <= 0 {
		timeout = DefaultChatTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ChatUseCase{
		dispatcher: dispatcher,
		fallbacks:  fallbacks,
		audit:      audit,
		log:        log,
		endpoint:   endpoint,
		timeout:    timeout,
		now:        time.Now,
	}
}

// Reply validates a raw body and answers it. Only validation errors are
// returned; every upstream failure becomes a fallback reply.
func (uc *ChatUseCase) Reply(ctx context.Context, raw map[string]any) (*entities.ChatReply, error) {
	req, err := NormalizeChat(raw)
	if err != nil {
		return nil, err
	}
	return uc.Answer(ctx, req), nil
}

// Answer runs a validated request through the webhook. It never fails.
func (uc *ChatUseCase) Answer(ctx context.Context, req *entities.ChatRequest) *entities.ChatReply {
	start := uc.now()
	if req.ConversationID == "" {
		req.ConversationID = uuid.New().String()
	}
	if req.Timestamp == "" {
		req.Timestamp = start.UTC().Format(time.RFC3339)
	}

	reply, cause := uc.ask(ctx, req)
	if cause != nil {
		reason := FallbackReasonFor(cause)
		reply = &entities.ChatReply{
			Text:           uc.fallbacks.ChatFallback(string(req.Category), reason),
			SourceKind:     entities.SourceFallback,
			FallbackReason: reason,
		}
	}
	reply.Category = req.Category
	reply.ConversationID = req.ConversationID
	if req.Category == entities.CategoryOrders {
		reply.Attachments = withOrderAttachment(req.Message, reply.Attachments)
	}

	took := uc.now().Sub(start)
	uc.report(ctx, req, reply, cause, took)
	return reply
}

func (uc *ChatUseCase) ask(ctx context.Context, req *entities.ChatRequest) (*entities.ChatReply, error) {
	if uc.endpoint == "" {
		return nil, &entities.UpstreamStatusError{
			StatusCode: 0,
			Detail:     "chat webhook not configured",
			Reason:     entities.ReasonEndpointNotFound,
		}
	}

	resp, err := uc.dispatcher.Dispatch(ctx, ports.WebhookCall{
		Endpoint: uc.endpoint,
		Timeout:  uc.timeout,
		Payload: &entities.ChatPayload{
			UserMessage:    req.Message,
			UserEmail:      req.UserEmail,
			Username:       req.Username,
			Category:       string(req.Category),
			ConversationID: req.ConversationID,
			Timestamp:      req.Timestamp,
			Source:         chatSource,
			BotType:        BotType(req.Category, false),
			Context:        uc.fallbacks.ChatContext(req.Category),
		},
	})
	if err != nil {
		return nil, err
	}

	interp, err := InterpretChat(resp)
	if err != nil {
		return nil, err
	}
	return &entities.ChatReply{
		Text:        interp.Text,
		SourceKind:  entities.SourceLive,
		Attachments: interp.Attachments,
	}, nil
}

func (uc *ChatUseCase) report(ctx context.Context, req *entities.ChatRequest, reply *entities.ChatReply, cause error, took time.Duration) {
	entry := uc.log.WithFields(logrus.Fields{
		"category":        req.Category,
		"conversation_id": req.ConversationID,
		"source_kind":     reply.SourceKind,
		"took_ms":         took.Milliseconds(),
	})
	if cause != nil {
		entry.WithError(cause).WithField("fallback_reason", reply.FallbackReason).Warn("chat reply served from fallback")
	} else {
		entry.Info("chat reply served")
	}

	if uc.audit == nil {
		return
	}
	rec := entities.AuditRecord{
		ID:             ulid.Make().String(),
		Domain:         entities.DomainChat,
		Category:       string(req.Category),
		SourceKind:     reply.SourceKind,
		FallbackReason: reply.FallbackReason,
		ConversationID: req.ConversationID,
		UserEmail:      req.UserEmail,
		LatencyMS:      took.Milliseconds(),
		CreatedAt:      uc.now().UTC(),
	}
	if err := uc.audit.Record(context.WithoutCancel(ctx), rec); err != nil {
		uc.log.WithError(err).Error("failed to record chat audit entry")
	}
}

// BotType names the assistant that produced a reply.
func BotType(category entities.Category, fallback bool) string {
	if fallback {
		return string(category) + "-specialist-fallback"
	}
	return string(category) + "-specialist"
}

// FallbackReasonFor maps a pipeline failure onto the fallback taxonomy.
func FallbackReasonFor(err error) entities.FallbackReason {
	var (
		timeoutErr *entities.TimeoutError
		statusErr  *entities.UpstreamStatusError
		interpErr  *entities.InterpretationError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return entities.ReasonTimeout
	case errors.As(err, &statusErr) && statusErr.Reason != "":
		return statusErr.Reason
	case errors.As(err, &interpErr):
		return entities.ReasonProcessing
	default:
		return entities.ReasonError
	}
}
