package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/domain/repository"
	"fazaachat/internal/domain/service"
	"fazaachat/internal/infrastructure/metrics"
	"fazaachat/internal/infrastructure/ratelimit"
	"fazaachat/pkg/errors"
	"fazaachat/pkg/logger"
)

type ChatUseCase struct {
	deps          SessionDeps
	conversations repository.ConversationRepository
	messages      *service.MessageStore
	rateLimiter   *ratelimit.RateLimiter
	metrics       *metrics.Metrics
}

func NewChatUseCase(deps SessionDeps, rateLimiter *ratelimit.RateLimiter) *ChatUseCase {
	deps = deps.withDefaults()
	return &ChatUseCase{
		deps:          deps,
		conversations: deps.Conversations,
		messages:      deps.Messages,
		rateLimiter:   rateLimiter,
		metrics:       deps.Metrics,
	}
}

type CreateConversationInput struct {
	ConversationID string
	OrderID        string
	ReceiverID     string
}

// Allow applies the per-user rate limit for action.
func (uc *ChatUseCase) Allow(userID, action string) error {
	if uc.rateLimiter == nil {
		return nil
	}
	allowed, wait := uc.rateLimiter.Allow(userID, action)
	if !allowed {
		logger.Debug("ChatUseCase: user %s rate limited on %s, retry in %v", userID, action, wait)
		uc.metrics.Limited(action)
		return errors.TooManyRequests(fmt.Sprintf("Rate limit exceeded, retry in %s", wait.Round(100*time.Millisecond)))
	}
	return nil
}

// OpenSession starts a live chat session for the caller.
func (uc *ChatUseCase) OpenSession(ctx context.Context, session entity.Session, conversationID string) (*ChatSession, error) {
	return OpenChatSession(ctx, session, conversationID, uc.deps)
}

// CreateConversation opens the chat that belongs to an accepted order. The
// conversation id defaults to the order id, so accepting the same order
// twice returns the existing conversation.
func (uc *ChatUseCase) CreateConversation(ctx context.Context, session entity.Session, input CreateConversationInput) (*entity.Conversation, error) {
	senderID := session.CurrentUserID
	receiverID := strings.TrimSpace(input.ReceiverID)

	if senderID == "" {
		return nil, errors.Unauthorized("Session has no current user", nil)
	}
	if receiverID == "" {
		return nil, errors.BadRequest("Receiver is required", nil)
	}
	if receiverID == senderID {
		logger.Warn("CreateConversation Error: user %s attempted to chat with themselves", senderID)
		return nil, errors.BadRequest("You cannot create a conversation with yourself", nil)
	}
	if err := uc.Allow(senderID, ratelimit.ActionCreateChat); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(input.ConversationID)
	if id == "" {
		id = strings.TrimSpace(input.OrderID)
	}
	if id == "" {
		id = uuid.NewString()
	}

	existing, err := uc.conversations.GetByID(ctx, id)
	if err == nil {
		if existing.HasParticipant(senderID) && existing.HasParticipant(receiverID) {
			return existing, nil
		}
		return nil, errors.Conflict("Conversation id is already used by other participants")
	}
	if !errors.Is(err, "NOT_FOUND") {
		logger.Error("CreateConversation Error: failed to look up conversation %s: %v", id, err)
		return nil, err
	}

	conv := &entity.Conversation{
		ID:          id,
		ChatEnabled: true,
		OrderID:     input.OrderID,
		SenderID:    senderID,
		ReceiverID:  receiverID,
	}
	if err := uc.conversations.Create(ctx, conv); err != nil {
		logger.Error("CreateConversation Error: failed to create conversation %s: %v", id, err)
		return nil, err
	}
	logger.Info("Conversation %s created for order %q between %s and %s", id, input.OrderID, senderID, receiverID)
	return conv, nil
}

// GetConversation returns the metadata of a conversation the caller takes
// part in.
func (uc *ChatUseCase) GetConversation(ctx context.Context, session entity.Session, conversationID string) (*entity.Conversation, error) {
	conv, err := uc.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(session.CurrentUserID) {
		return nil, errors.Forbidden("You are not a participant in this conversation", nil)
	}
	return conv, nil
}

// ListConversations returns the caller's conversations, most recent first.
func (uc *ChatUseCase) ListConversations(ctx context.Context, session entity.Session) ([]*entity.Conversation, error) {
	if session.CurrentUserID == "" {
		return nil, errors.Unauthorized("Session has no current user", nil)
	}
	return uc.conversations.ListByUserID(ctx, session.CurrentUserID)
}

// GetMessages returns the ordered message list of a conversation.
func (uc *ChatUseCase) GetMessages(ctx context.Context, session entity.Session, conversationID string) ([]entity.Message, error) {
	if _, err := uc.GetConversation(ctx, session, conversationID); err != nil {
		return nil, err
	}
	return uc.messages.Snapshot(ctx, conversationID)
}

// SendMessage sends one message through a short-lived session.
func (uc *ChatUseCase) SendMessage(ctx context.Context, session entity.Session, conversationID, text string) (*entity.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.BadRequest("Message is required", nil)
	}
	if err := uc.Allow(session.CurrentUserID, ratelimit.ActionSendMessage); err != nil {
		return nil, err
	}

	chat, err := uc.OpenSession(ctx, session, conversationID)
	if err != nil {
		return nil, err
	}
	defer chat.Close()

	return chat.Send(ctx, text)
}
