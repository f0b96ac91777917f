// Package webhook provides the automation webhook adapter.
// Clean Architecture: Adapter implementing ports.WebhookDispatcher.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
	"github.com/0xcro3dile/supportdesk-go/internal/domain/ports"
)

// maxBodyBytes caps how much of an upstream answer is read.
const maxBodyBytes = 4 << 20

// N8NDispatcher implements ports.WebhookDispatcher with a plain JSON POST.
type N8NDispatcher struct {
	client  *http.Client
	maxBody int64
}

// NewN8NDispatcher creates a dispatcher. A nil client uses a fresh one; the
// per-call budget always comes from ports.WebhookCall.Timeout.
func NewN8NDispatcher(client *http.Client) *N8NDispatcher {
	if client == nil {
		client = &http.Client{}
	}
	return &N8NDispatcher{client: client, maxBody: maxBodyBytes}
}

// Dispatch POSTs the payload once and returns the raw answer for any status.
func (d *N8NDispatcher) Dispatch(ctx context.Context, call ports.WebhookCall) (*entities.WebhookResponse, error) {
	body, err := json.Marshal(call.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling webhook payload")
	}

	callCtx := ctx
	if call.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, call.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, call.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &entities.NetworkError{Endpoint: call.Endpoint, Err: errors.Wrap(err, "creating request")}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json; charset=utf-8")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, d.failure(ctx, callCtx, call, errors.Wrap(err, "sending request"))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBody+1))
	if err != nil {
		return nil, d.failure(ctx, callCtx, call, errors.Wrap(err, "reading response"))
	}
	if int64(len(data)) > d.maxBody {
		return nil, &entities.InterpretationError{Detail: fmt.Sprintf("response body from %s exceeds %d bytes", call.Endpoint, d.maxBody)}
	}

	return &entities.WebhookResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// failure tells our own deadline apart from every other transport error.
func (d *N8NDispatcher) failure(parent, callCtx context.Context, call ports.WebhookCall, err error) error {
	if parent.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &entities.TimeoutError{Endpoint: call.Endpoint, Budget: call.Timeout}
	}
	return &entities.NetworkError{Endpoint: call.Endpoint, Err: err}
}
