// Package llm provides the OpenAI-compatible adapter.
// Clean Architecture: Adapter implementing ports.WebhookDispatcher by talking
// to a chat completion API directly instead of an automation webhook.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/invopop/jsonschema"
	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkg/errors"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
	"github.com/0xcro3dile/supportdesk-go/internal/domain/ports"
)

const jsonContentType = "application/json; charset=utf-8"

// recommendationEnvelope is the structured output requested for product lists.
// It matches the "data" layout the interpreter already knows.
type recommendationEnvelope struct {
	Data []entities.RawProduct `json:"data" jsonschema:"title=data,description=Recommended products in local currency formatting."`
}

// OpenAIDispatcher implements ports.WebhookDispatcher on top of any
// OpenAI-compatible server (OpenAI, llama.cpp, vLLM).
type OpenAIDispatcher struct {
	client openai.Client
	model  string
}

// NewOpenAIDispatcher creates a dispatcher. Retries are disabled: every
// dispatch is a single outbound attempt.
func NewOpenAIDispatcher(baseURL, apiKey, model string, httpClient *http.Client) *OpenAIDispatcher {
	if baseURL == "" {
		baseURL = "http://localhost:8080/v1"
	}
	if apiKey == "" {
		apiKey = "dummy"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAIDispatcher{client: openai.NewClient(opts...), model: model}
}

// Dispatch turns the payload into a completion request and wraps the answer
// as a webhook response. call.Endpoint is only used for error reporting.
func (d *OpenAIDispatcher) Dispatch(ctx context.Context, call ports.WebhookCall) (*entities.WebhookResponse, error) {
	params, wrap, err := d.params(call.Payload)
	if err != nil {
		return nil, err
	}

	callCtx := ctx
	if call.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, call.Timeout)
		defer cancel()
	}

	completion, err := d.client.Chat.Completions.New(callCtx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			body, _ := json.Marshal(map[string]string{"message": apiErr.Message})
			return &entities.WebhookResponse{StatusCode: apiErr.StatusCode, ContentType: jsonContentType, Body: body}, nil
		}
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &entities.TimeoutError{Endpoint: call.Endpoint, Budget: call.Timeout}
		}
		return nil, &entities.NetworkError{Endpoint: call.Endpoint, Err: errors.Wrap(err, "chat completion")}
	}
	if len(completion.Choices) == 0 {
		return &entities.WebhookResponse{StatusCode: http.StatusOK, ContentType: jsonContentType, Body: []byte(`{}`)}, nil
	}

	body, err := wrap(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, errors.Wrap(err, "wrapping completion")
	}
	return &entities.WebhookResponse{StatusCode: http.StatusOK, ContentType: jsonContentType, Body: body}, nil
}

// params builds the request for a payload and returns how to wrap the answer.
func (d *OpenAIDispatcher) params(payload any) (openai.ChatCompletionNewParams, func(string) ([]byte, error), error) {
	switch p := payload.(type) {
	case *entities.ChatPayload:
		params := openai.ChatCompletionNewParams{
			Model: openai.ChatModel(d.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(p.Context),
				openai.UserMessage(p.UserMessage),
			},
		}
		return params, wrapOutput, nil

	case *entities.RecommendationPayload:
		user := fmt.Sprintf("Recommend %d products in category %q for %s.", p.Limit, p.Category, p.UserEmail)
		if len(p.Preferences) > 0 {
			user += fmt.Sprintf(" Preferences: %v.", p.Preferences)
		}
		if len(p.PreviousPurchases) > 0 {
			user += fmt.Sprintf(" Previously bought: %v.", p.PreviousPurchases)
		}
		params := openai.ChatCompletionNewParams{
			Model: openai.ChatModel(d.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(p.Context),
				openai.UserMessage(user),
			},
			ResponseFormat: recommendationFormat(),
		}
		return params, wrapRaw, nil

	default:
		return openai.ChatCompletionNewParams{}, nil, errors.Errorf("unsupported payload type %T", payload)
	}
}

func recommendationFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        "recommendations",
				Description: openai.String("product recommendations"),
				Schema:      reflector.Reflect(&recommendationEnvelope{}),
				Strict:      openai.Bool(true),
			},
		},
	}
}

// wrapOutput mirrors the webhook's {"output": "..."} answer.
func wrapOutput(content string) ([]byte, error) {
	return json.Marshal(map[string]string{"output": content})
}

// wrapRaw passes structured output through when it is JSON.
func wrapRaw(content string) ([]byte, error) {
	if json.Valid([]byte(content)) {
		return []byte(content), nil
	}
	return wrapOutput(content)
}
