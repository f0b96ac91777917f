package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/0xcro3dile/supportdesk-go/internal/domain/entities"
)

// Server frame types.
const (
	frameConnected = "connected"
	frameMessage   = "message"
	frameError     = "error"
)

type wsIncoming struct {
	Message   string `json:"message"`
	Category  string `json:"category"`
	UserEmail string `json:"userEmail,omitempty"`
	Username  string `json:"Username,omitempty"`
}

type wsFrame struct {
	Type           string                `json:"type" jsonschema:"enum=connected,enum=message,enum=error"`
	Text           string                `json:"text,omitempty"`
	ConversationID string                `json:"conversationId"`
	BotType        string                `json:"botType,omitempty"`
	Attachments    []entities.Attachment `json:"attachments,omitempty"`
}

// wsHandler serves one conversation per connection. Each client frame runs
// through the chat pipeline; replies are written in order.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	log = log.WithField("conversation_id", conversationID)

	if err := conn.WriteJSON(wsFrame{Type: frameConnected, ConversationID: conversationID}); err != nil {
		log.WithError(err).Warn("failed to send connected frame")
		return
	}

	ctx := r.Context()
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("websocket closed unexpectedly")
			}
			return
		}

		var incoming wsIncoming
		if err := json.Unmarshal(message, &incoming); err != nil {
			log.WithError(err).Info("invalid websocket frame")
			if err := conn.WriteJSON(wsFrame{
				Type:           frameError,
				Text:           "Invalid message format. Send JSON with 'message' and 'category' fields.",
				ConversationID: conversationID,
			}); err != nil {
				return
			}
			continue
		}

		reply, err := s.chat.Reply(ctx, map[string]any{
			"message":        incoming.Message,
			"category":       incoming.Category,
			"userEmail":      incoming.UserEmail,
			"Username":       incoming.Username,
			"conversationId": conversationID,
		})
		frame := wsFrame{Type: frameError, ConversationID: conversationID}
		if err != nil {
			frame.Text = err.Error()
		} else {
			frame.Type = frameMessage
			frame.Text = reply.Text
			frame.BotType = chatResponseFor(reply).BotType
			frame.Attachments = reply.Attachments
		}
		if err := conn.WriteJSON(frame); err != nil {
			log.WithError(err).Warn("failed to write websocket frame")
			return
		}
	}
}
