package entity

// Conversation is the metadata record at messages/{conversationId}.
// LastMessage and LastMessageDate project the newest message and are
// written together with every append.
type Conversation struct {
	ID                 string   `json:"id" firestore:"-"`
	ChatEnabled        bool     `json:"chatEnabled" firestore:"chatEnabled"`
	LastMessage        string   `json:"lastMessage" firestore:"lastMessage"`
	LastMessageDate    int64    `json:"lastMessageDate" firestore:"lastMessageDate"`
	OrderID            string   `json:"orderId" firestore:"orderId"`
	SenderID           string   `json:"senderId" firestore:"senderId"`
	ReceiverID         string   `json:"receiverId" firestore:"receiverId"`
	ActiveParticipants []string `json:"activeParticipants,omitempty" firestore:"activeParticipants,omitempty"`
}

// Counterpart returns the participant who is not currentUserID: the
// receiver when the current user initiated the conversation, the sender
// otherwise.
func (c *Conversation) Counterpart(currentUserID string) string {
	if currentUserID == c.SenderID {
		return c.ReceiverID
	}
	return c.SenderID
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (userID == c.SenderID || userID == c.ReceiverID)
}

// Clone returns a deep copy safe to hand to observers.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	if c.ActiveParticipants != nil {
		out.ActiveParticipants = append([]string(nil), c.ActiveParticipants...)
	}
	return &out
}

// Record returns the metadata fields as written to the backing store.
func (c *Conversation) Record() map[string]interface{} {
	return map[string]interface{}{
		"chatEnabled":     c.ChatEnabled,
		"lastMessage":     c.LastMessage,
		"lastMessageDate": c.LastMessageDate,
		"orderId":         c.OrderID,
		"senderId":        c.SenderID,
		"receiverId":      c.ReceiverID,
	}
}

// ParseConversation decodes the metadata fields of a conversation record.
// senderId and receiverId are required; everything else defaults.
func ParseConversation(id string, fields map[string]interface{}) (*Conversation, bool) {
	if fields == nil {
		return nil, false
	}
	sender, ok := fields["senderId"].(string)
	if !ok || sender == "" {
		return nil, false
	}
	receiver, ok := fields["receiverId"].(string)
	if !ok || receiver == "" {
		return nil, false
	}

	conv := &Conversation{
		ID:         id,
		SenderID:   sender,
		ReceiverID: receiver,
	}
	conv.ChatEnabled, _ = fields["chatEnabled"].(bool)
	conv.LastMessage, _ = fields["lastMessage"].(string)
	conv.OrderID, _ = fields["orderId"].(string)
	if d, ok := AsInt64(fields["lastMessageDate"]); ok {
		conv.LastMessageDate = d
	}
	conv.ActiveParticipants = parseParticipantSet(fields["activeParticipants"])
	return conv, true
}

// parseParticipantSet accepts both a list of ids (firestore arrays) and a
// map of id to true (rtdb children).
func parseParticipantSet(v interface{}) []string {
	switch set := v.(type) {
	case []string:
		return append([]string(nil), set...)
	case []interface{}:
		out := make([]string, 0, len(set))
		for _, item := range set {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case map[string]interface{}:
		out := make([]string, 0, len(set))
		for id, flag := range set {
			if b, ok := flag.(bool); ok && b {
				out = append(out, id)
			}
		}
		return out
	}
	return nil
}
