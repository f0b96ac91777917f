package usecases

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
)

// maxOutputDepth bounds output-inside-output nesting.
const maxOutputDepth = 4

// shape is one recognizable response layout: predicate and extractor in one.
// Shapes are tried in slice order and the first match wins.
type shape[T any] struct {
	name  string
	match func(obj map[string]any, depth int) (T, bool)
}

func firstMatch[T any](shapes []shape[T], obj map[string]any, depth int) (T, string, bool) {
	for _, s := range shapes {
		if v, ok := s.match(obj, depth); ok {
			return v, s.name, true
		}
	}
	var zero T
	return zero, "", false
}

// ChatInterpretation is the reply text extracted from a successful response.
type ChatInterpretation struct {
	Text        string
	Attachments []entities.Attachment
	Shape       string
}

type chatMatch struct {
	text        string
	attachments []entities.Attachment
	unexpected  string
}

// Shape tables. The output matchers recurse back into them, so they are
// filled in init.
var (
	// chatElementShapes apply to element 0 of an array body.
	chatElementShapes []shape[chatMatch]
	// chatObjectShapes apply to an object body.
	chatObjectShapes []shape[chatMatch]

	recElementShapes []shape[RecommendationInterpretation]
	recObjectShapes  []shape[RecommendationInterpretation]
)

func init() {
	chatElementShapes = []shape[chatMatch]{
		{"content.data", chatUnexpectedArray("content.data")},
		{"output", chatOutput},
		{"response", chatResponse},
	}
	chatObjectShapes = []shape[chatMatch]{
		{"content.data", chatUnexpectedArray("content.data")},
		{"data", chatUnexpectedArray("data")},
		{"products", chatUnexpectedArray("products")},
		{"output", chatOutput},
		{"response", chatResponse},
	}
	recElementShapes = []shape[RecommendationInterpretation]{
		{"content.data", recRaw("content.data")},
		{"output", recOutput},
		{"products", recProducts},
	}
	recObjectShapes = []shape[RecommendationInterpretation]{
		{"content.data", recRaw("content.data")},
		{"data", recRaw("data")},
		{"products", recProducts},
		{"output", recOutput},
	}
}

// InterpretChat extracts a reply from a webhook response. Non-2xx statuses
// fail with *entities.UpstreamStatusError; bodies that match no shape or carry
// only whitespace fail with *entities.InterpretationError.
func InterpretChat(resp *entities.WebhookResponse) (*ChatInterpretation, error) {
	if !resp.IsSuccess() {
		return nil, classifyStatus(resp)
	}

	var (
		m         chatMatch
		shapeName string
		ok        bool
	)
	if v, decoded := decodeJSONBody(resp); decoded {
		m, shapeName, ok = matchChatValue(v, 0)
	} else {
		m, shapeName, ok = chatMatch{text: string(resp.Body)}, "text", true
	}

	if !ok {
		return nil, &entities.InterpretationError{Detail: "no known response shape"}
	}
	if m.unexpected != "" {
		return nil, &entities.InterpretationError{Detail: "product payload (" + m.unexpected + ") in chat response"}
	}
	if strings.TrimSpace(m.text) == "" {
		return nil, &entities.InterpretationError{Detail: "empty reply in " + shapeName}
	}
	return &ChatInterpretation{Text: m.text, Attachments: m.attachments, Shape: shapeName}, nil
}

func matchChatValue(v any, depth int) (chatMatch, string, bool) {
	switch val := v.(type) {
	case string:
		return chatMatch{text: val}, "string", true
	case []any:
		if len(val) == 0 {
			return chatMatch{}, "", false
		}
		switch el := val[0].(type) {
		case string:
			return chatMatch{text: el}, "[string]", true
		case map[string]any:
			m, name, ok := firstMatch(chatElementShapes, el, depth)
			return m, "[" + name + "]", ok
		}
	case map[string]any:
		return firstMatch(chatObjectShapes, val, depth)
	}
	return chatMatch{}, "", false
}

func chatUnexpectedArray(path string) func(map[string]any, int) (chatMatch, bool) {
	return func(obj map[string]any, _ int) (chatMatch, bool) {
		if _, ok := arrayAt(obj, path); ok {
			return chatMatch{unexpected: path}, true
		}
		return chatMatch{}, false
	}
}

func chatOutput(obj map[string]any, depth int) (chatMatch, bool) {
	out, present := obj["output"]
	if !present || out == nil {
		return chatMatch{}, false
	}
	switch val := out.(type) {
	case string:
		if depth < maxOutputDepth {
			var parsed any
			if err := json.Unmarshal([]byte(val), &parsed); err == nil {
				if m, _, ok := matchChatValue(parsed, depth+1); ok {
					if m.attachments == nil {
						m.attachments = attachmentsOf(obj)
					}
					return m, true
				}
			}
		}
		return chatMatch{text: val, attachments: attachmentsOf(obj)}, true
	case map[string]any, []any:
		if depth >= maxOutputDepth {
			return chatMatch{}, false
		}
		return mustChat(matchChatValue(val, depth+1))
	}
	return chatMatch{}, false
}

func mustChat(m chatMatch, _ string, ok bool) (chatMatch, bool) {
	return m, ok
}

func chatResponse(obj map[string]any, _ int) (chatMatch, bool) {
	s, ok := obj["response"].(string)
	if !ok {
		return chatMatch{}, false
	}
	return chatMatch{text: s, attachments: attachmentsOf(obj)}, true
}

// attachmentsOf keeps well-formed product/order cards from obj["attachments"].
func attachmentsOf(obj map[string]any) []entities.Attachment {
	items, ok := obj["attachments"].([]any)
	if !ok {
		return nil
	}
	var out []entities.Attachment
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		a := entities.Attachment{
			Type:       entities.AttachmentKind(stringField(m, "type")),
			Title:      stringField(m, "title"),
			OrderID:    stringField(m, "orderId"),
			ProductURL: stringField(m, "productUrl"),
			URL:        stringField(m, "url"),
		}
		switch a.Type {
		case entities.AttachmentOrder:
			if a.OrderID == "" {
				continue
			}
		case entities.AttachmentProduct:
			if a.ProductURL == "" && a.URL == "" {
				continue
			}
		default:
			continue
		}
		out = append(out, a)
	}
	return out
}

// RecommendationInterpretation is the product list extracted from a response.
// Raw records still need shaping; Products are already display-shaped.
type RecommendationInterpretation struct {
	Raw      []entities.RawProduct
	Products []entities.Product
	Reason   string
	Shape    string
}

// Shaped reports whether the result came from locale-specific raw records.
func (r *RecommendationInterpretation) Shaped() bool {
	return r.Raw != nil
}

// InterpretRecommendations extracts products from a webhook response. There is
// no plain-text path: non-JSON bodies fail with *entities.InterpretationError.
func InterpretRecommendations(resp *entities.WebhookResponse) (*RecommendationInterpretation, error) {
	if !resp.IsSuccess() {
		return nil, classifyStatus(resp)
	}
	v, ok := decodeJSONBody(resp)
	if !ok {
		return nil, &entities.InterpretationError{Detail: "recommendation response is not JSON"}
	}
	res, name, ok := matchRecValue(v, 0)
	if !ok {
		return nil, &entities.InterpretationError{Detail: "no known recommendation shape"}
	}
	if len(res.Raw) == 0 && len(res.Products) == 0 {
		return nil, &entities.InterpretationError{Detail: "empty product list in " + name}
	}
	res.Shape = name
	return &res, nil
}

func matchRecValue(v any, depth int) (RecommendationInterpretation, string, bool) {
	switch val := v.(type) {
	case []any:
		if len(val) == 0 {
			break
		}
		if el, ok := val[0].(map[string]any); ok {
			m, name, ok := firstMatch(recElementShapes, el, depth)
			return m, "[" + name + "]", ok
		}
	case map[string]any:
		return firstMatch(recObjectShapes, val, depth)
	}
	return RecommendationInterpretation{}, "", false
}

func recRaw(path string) func(map[string]any, int) (RecommendationInterpretation, bool) {
	return func(obj map[string]any, _ int) (RecommendationInterpretation, bool) {
		items, ok := arrayAt(obj, path)
		if !ok {
			return RecommendationInterpretation{}, false
		}
		return RecommendationInterpretation{Raw: rawProducts(items), Reason: ReasonShaped}, true
	}
}

func recProducts(obj map[string]any, _ int) (RecommendationInterpretation, bool) {
	items, ok := obj["products"].([]any)
	if !ok {
		return RecommendationInterpretation{}, false
	}
	reason := stringField(obj, "reason")
	if reason == "" {
		reason = ReasonPersonalized
	}
	return RecommendationInterpretation{Products: passThroughProducts(items), Reason: reason}, true
}

func recOutput(obj map[string]any, depth int) (RecommendationInterpretation, bool) {
	if depth >= maxOutputDepth {
		return RecommendationInterpretation{}, false
	}
	var parsed any
	switch val := obj["output"].(type) {
	case string:
		if err := json.Unmarshal([]byte(val), &parsed); err != nil {
			return RecommendationInterpretation{}, false
		}
	case map[string]any, []any:
		parsed = val
	default:
		return RecommendationInterpretation{}, false
	}
	res, _, ok := matchRecValue(parsed, depth+1)
	return res, ok
}

// rawProducts decodes locale records; numeric prices are accepted too.
func rawProducts(items []any) []entities.RawProduct {
	out := make([]entities.RawProduct, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rec := entities.RawProduct{
			ProductName: stringField(m, "product_name"),
			ImageURL:    stringField(m, "image_url"),
			ProductURL:  stringField(m, "product_url"),
		}
		switch p := m["price"].(type) {
		case string:
			rec.Price = p
		case float64:
			rec.Price = strconv.FormatFloat(p, 'f', -1, 64)
		}
		out = append(out, rec)
	}
	return out
}

// numericProductFields may arrive as strings ("15990", "4.5").
var numericProductFields = []string{"price", "originalPrice", "rating", "reviewCount"}

func passThroughProducts(items []any) []entities.Product {
	out := make([]entities.Product, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		b, err := json.Marshal(coerceNumbers(m))
		if err != nil {
			continue
		}
		var p entities.Product
		if err := json.Unmarshal(b, &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// coerceNumbers returns a copy of m with numeric strings in the product
// number fields converted; unparseable values are dropped.
func coerceNumbers(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, key := range numericProductFields {
		str, ok := out[key].(string)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(str), ",", ""), 64)
		if err != nil {
			delete(out, key)
			continue
		}
		if key == "reviewCount" {
			out[key] = int(f)
		} else {
			out[key] = f
		}
	}
	return out
}

// classifyStatus maps a non-2xx response onto a fallback reason.
func classifyStatus(resp *entities.WebhookResponse) error {
	detail := strings.TrimSpace(string(resp.Body))
	if resp.IsJSON() {
		var body struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(resp.Body, &body); err == nil && body.Message != "" {
			detail = body.Message
		}
	}

	reason := entities.ReasonError
	if resp.StatusCode == http.StatusNotFound {
		reason = entities.ReasonEndpointNotFound
		if strings.Contains(detail, "not registered") || strings.Contains(detail, "test mode") {
			reason = entities.ReasonWebhookNotActive
		}
	}
	return &entities.UpstreamStatusError{StatusCode: resp.StatusCode, Detail: detail, Reason: reason}
}

// decodeJSONBody parses the body when the response declares JSON.
func decodeJSONBody(resp *entities.WebhookResponse) (any, bool) {
	if !resp.IsJSON() {
		return nil, false
	}
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, false
	}
	return v, true
}

// arrayAt resolves a dotted path to an array value.
func arrayAt(obj map[string]any, path string) ([]any, bool) {
	var cur any = obj
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = m[key]
	}
	arr, ok := cur.([]any)
	return arr, ok
}
