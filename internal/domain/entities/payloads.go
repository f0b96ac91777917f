package entities

// ChatPayload is the body POSTed to the chat webhook.
type ChatPayload struct {
	UserMessage    string `json:"userMessage"`
	UserEmail      string `json:"userEmail,omitempty"`
	Username       string `json:"username,omitempty"`
	Category       string `json:"category"`
	ConversationID string `json:"conversationId"`
	Timestamp      string `json:"timestamp"`
	Source         string `json:"source"`
	BotType        string `json:"botType"`
	Context        string `json:"context"`
}

// RecommendationPayload is the body POSTed to the recommendations webhook.
type RecommendationPayload struct {
	UserEmail         string   `json:"userEmail"`
	Category          string   `json:"category"`
	Limit             int      `json:"limit"`
	Preferences       []string `json:"preferences"`
	PreviousPurchases []string `json:"previousPurchases"`
	Timestamp         string   `json:"timestamp"`
	Source            string   `json:"source"`
	Action            string   `json:"action"`
	Context           string   `json:"context"`
}
