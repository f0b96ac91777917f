package usecases

import (
	"regexp"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
)

// orderPatterns are tried in order; the first capture wins.
var orderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)order\s+number\s+#?(\d{5})\b`),
	regexp.MustCompile(`(?i)order\s+#?(\d{5})\b`),
	regexp.MustCompile(`#(\d{5})\b`),
	regexp.MustCompile(`\b(\d{5})\b`),
}

// ExtractOrderNumber finds a five-digit order number in free text.
func ExtractOrderNumber(message string) (string, bool) {
	for _, re := range orderPatterns {
		if m := re.FindStringSubmatch(message); len(m) == 2 {
			return m[1], true
		}
	}
	return "", false
}

// withOrderAttachment adds an order card for the number mentioned in the
// message, unless the reply already carries one for it.
func withOrderAttachment(message string, attachments []entities.Attachment) []entities.Attachment {
	id, ok := ExtractOrderNumber(message)
	if !ok {
		return attachments
	}
	for _, a := range attachments {
		if a.Type == entities.AttachmentOrder && a.OrderID == id {
			return attachments
		}
	}
	return append(attachments, entities.Attachment{
		Type:    entities.AttachmentOrder,
		OrderID: id,
		Title:   "Order #" + id,
		URL:     "/orders/" + id,
	})
}
