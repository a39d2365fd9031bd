package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/domain/repository"
	"fazaachat/internal/domain/service"
	"fazaachat/internal/infrastructure/metrics"
	"fazaachat/pkg/errors"
	"fazaachat/pkg/logger"
	"fazaachat/pkg/observable"
)

const (
	NotificationTitle = "New Message"

	// closeTimeout bounds the best-effort writes issued by Close.
	closeTimeout = 5 * time.Second
)

type SessionStatus string

const (
	StatusUninitialized SessionStatus = "uninitialized"
	StatusSubscribed    SessionStatus = "subscribed"
	StatusDisposed      SessionStatus = "disposed"
)

// SessionState is an immutable snapshot of everything a chat screen renders.
type SessionState struct {
	Status            SessionStatus        `json:"status"`
	ConversationID    string               `json:"conversationId"`
	Messages          []entity.Message     `json:"messages"`
	Conversation      *entity.Conversation `json:"conversation,omitempty"`
	Draft             string               `json:"draft"`
	CounterpartTyping bool                 `json:"counterpartTyping"`
}

func (s SessionState) clone() SessionState {
	out := s
	out.Messages = append([]entity.Message(nil), s.Messages...)
	out.Conversation = s.Conversation.Clone()
	return out
}

// SessionDeps are the collaborators of a chat session.
type SessionDeps struct {
	Messages      *service.MessageStore
	Conversations repository.ConversationRepository
	Typing        *service.TypingTracker
	Dispatcher    *service.NotificationDispatcher
	Metrics       *metrics.Metrics

	// Clock and NewID default to time.Now and UUIDv7.
	Clock func() time.Time
	NewID func() string
}

func (d SessionDeps) withDefaults() SessionDeps {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.NewID == nil {
		d.NewID = newMessageID
	}
	return d
}

// newMessageID returns a UUIDv7 so store key order follows creation time.
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

type command struct {
	apply   func(*SessionState)
	applied chan struct{}
}

// ChatSession is a live view of one conversation for one user. It is
// obtained from OpenChatSession and must be released with Close on every
// exit path. All state changes are applied on a single loop goroutine.
type ChatSession struct {
	conversationID string
	session        entity.Session
	counterpart    string
	deps           SessionDeps
	log            *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	cmds   chan command
	done   chan struct{}
	state  *observable.Subject[SessionState]

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// OpenChatSession subscribes to the conversation's messages, loads its
// metadata, starts observing the counterpart's typing flag and marks the
// user active. On failure everything acquired so far is released.
func OpenChatSession(ctx context.Context, session entity.Session, conversationID string, deps SessionDeps) (*ChatSession, error) {
	if session.CurrentUserID == "" {
		return nil, errors.Unauthorized("Session has no current user", nil)
	}
	if conversationID == "" {
		return nil, errors.BadRequest("Conversation id is required", nil)
	}
	deps = deps.withDefaults()

	sessCtx, cancel := context.WithCancel(context.Background())
	s := &ChatSession{
		conversationID: conversationID,
		session:        session,
		deps:           deps,
		log:            logger.With("conversation", conversationID, "user", session.CurrentUserID),
		ctx:            sessCtx,
		cancel:         cancel,
		cmds:           make(chan command),
		done:           make(chan struct{}),
		state: observable.NewBehaviorSubject(SessionState{
			Status:         StatusUninitialized,
			ConversationID: conversationID,
		}),
	}

	msgs, err := deps.Messages.Subscribe(sessCtx, conversationID)
	if err != nil {
		cancel()
		return nil, err
	}

	conv, err := deps.Conversations.GetByID(ctx, conversationID)
	if err != nil {
		cancel()
		return nil, err
	}
	if !conv.HasParticipant(session.CurrentUserID) {
		cancel()
		return nil, errors.Forbidden("You are not a participant in this conversation", nil)
	}
	s.counterpart = conv.Counterpart(session.CurrentUserID)

	typing, err := deps.Typing.ObserveTyping(sessCtx, conversationID, s.counterpart)
	if err != nil {
		cancel()
		return nil, err
	}

	if err := deps.Conversations.SetActive(ctx, conversationID, session.CurrentUserID, true); err != nil {
		s.log.Warnf("failed to mark user active: %v", err)
	}

	initial := SessionState{
		Status:         StatusSubscribed,
		ConversationID: conversationID,
		Messages:       []entity.Message{},
		Conversation:   conv,
	}
	s.state.Publish(initial.clone())
	deps.Metrics.SessionOpened()

	go s.run(msgs, typing, initial)
	s.log.Debugf("chat session opened, counterpart=%s", s.counterpart)
	return s, nil
}

func (s *ChatSession) run(msgs <-chan []entity.Message, typing <-chan bool, state SessionState) {
	defer close(s.done)
	for {
		var applied chan struct{}
		select {
		case <-s.ctx.Done():
			return
		case list, ok := <-msgs:
			if !ok {
				msgs = nil
				s.log.Debugf("message stream ended")
				continue
			}
			state.Messages = list
			if n := len(list); n > 0 {
				projectLastMessage(state.Conversation, list[n-1])
			}
		case v, ok := <-typing:
			if !ok {
				typing = nil
				continue
			}
			state.CounterpartTyping = v
		case cmd := <-s.cmds:
			cmd.apply(&state)
			applied = cmd.applied
		}
		s.state.Publish(state.clone())
		if applied != nil {
			close(applied)
		}
	}
}

// projectLastMessage keeps the local metadata in line with the newest
// message seen, without moving it backwards.
func projectLastMessage(conv *entity.Conversation, last entity.Message) {
	if conv == nil || last.MessageDate < conv.LastMessageDate {
		return
	}
	conv.LastMessage = last.Message
	conv.LastMessageDate = last.MessageDate
}

// apply runs fn on the loop goroutine and waits until the resulting state
// has been published.
func (s *ChatSession) apply(fn func(*SessionState)) error {
	cmd := command{apply: fn, applied: make(chan struct{})}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return errors.SessionClosed()
	}
	select {
	case <-cmd.applied:
		return nil
	case <-s.done:
		return errors.SessionClosed()
	}
}

func (s *ChatSession) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *ChatSession) ConversationID() string {
	return s.conversationID
}

// Counterpart is the other participant of the conversation.
func (s *ChatSession) Counterpart() string {
	return s.counterpart
}

// State returns the latest snapshot.
func (s *ChatSession) State() SessionState {
	v, _ := s.state.Value()
	return v.clone()
}

// Subscribe streams snapshots, starting with the current one. The channel
// closes when the session is closed or cancel is called.
func (s *ChatSession) Subscribe() (<-chan SessionState, func()) {
	return s.state.Subscribe()
}

// Send appends text as a new message from the current user. Blank text is a
// no-op and returns a nil message. Once the append has succeeded the call
// succeeds: typing clear and notification are best-effort.
func (s *ChatSession) Send(ctx context.Context, text string) (*entity.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if s.isClosed() {
		return nil, errors.SessionClosed()
	}

	current := s.State()
	if current.Conversation != nil && !current.Conversation.ChatEnabled {
		return nil, errors.ChatDisabled(s.conversationID)
	}

	msg := entity.Message{
		ID:          s.deps.NewID(),
		Message:     text,
		MessageDate: s.deps.Clock().Unix(),
		SenderID:    s.session.CurrentUserID,
	}
	if err := s.deps.Messages.Append(ctx, s.conversationID, msg); err != nil {
		s.log.Errorf("failed to append message: %v", err)
		return nil, err
	}
	s.deps.Metrics.MessageSent()

	if err := s.apply(func(st *SessionState) {
		st.Draft = ""
		projectLastMessage(st.Conversation, msg)
	}); err != nil {
		s.log.Debugf("session closed before the sent message was applied locally")
	}

	if err := s.deps.Typing.SetTyping(ctx, s.conversationID, s.session.CurrentUserID, false); err != nil {
		s.log.Warnf("failed to clear typing flag after send: %v", err)
	}

	s.deps.Dispatcher.NotifyUser(s.counterpart, NotificationTitle, msg.Message)
	return &msg, nil
}

// SetDraft records the local draft. A non-blank draft marks the user as
// typing and restarts the expiry; a blank one clears the flag.
func (s *ChatSession) SetDraft(ctx context.Context, text string) error {
	if s.isClosed() {
		return errors.SessionClosed()
	}
	if err := s.apply(func(st *SessionState) { st.Draft = text }); err != nil {
		return err
	}
	typing := strings.TrimSpace(text) != ""
	if err := s.deps.Typing.SetTyping(ctx, s.conversationID, s.session.CurrentUserID, typing); err != nil {
		s.log.Warnf("failed to update typing flag: %v", err)
	}
	return nil
}

// StopTyping clears the local typing flag without touching the draft.
func (s *ChatSession) StopTyping(ctx context.Context) error {
	if s.isClosed() {
		return errors.SessionClosed()
	}
	return s.deps.Typing.SetTyping(ctx, s.conversationID, s.session.CurrentUserID, false)
}

// Close revokes the message and typing subscriptions, clears the local
// typing flag and removes the user from the active set. Only the first
// call has any effect.
func (s *ChatSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.cancel()
		<-s.done

		final := s.State()
		final.Status = StatusDisposed
		final.CounterpartTyping = false
		s.state.Publish(final)
		s.state.Close()

		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := s.deps.Typing.SetTyping(ctx, s.conversationID, s.session.CurrentUserID, false); err != nil {
			s.log.Warnf("failed to clear typing flag on close: %v", err)
		}
		if err := s.deps.Conversations.SetActive(ctx, s.conversationID, s.session.CurrentUserID, false); err != nil {
			s.log.Warnf("failed to clear active flag on close: %v", err)
		}
		s.deps.Metrics.SessionClosed()
		s.log.Debugf("chat session closed")
	})
	return nil
}
