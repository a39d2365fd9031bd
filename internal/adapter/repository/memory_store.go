package repository

import (
	"context"
	"sort"
	"sync"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/domain/repository"
	"fazaachat/pkg/errors"
	"fazaachat/pkg/observable"
)

// MemoryStore is an in-process realtime store with the same keyspace as the
// hosted backends. It backs local development, the CLI demo mode and tests.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[string]*entity.Conversation
	logs          map[string]*memoryLog
	typing        map[string]*observable.Subject[bool]
	users         map[string]map[string]interface{}
}

type memoryLog struct {
	keys    []string
	records map[string]map[string]interface{}
	subject *observable.Subject[[]entity.RawRecord]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*entity.Conversation),
		logs:          make(map[string]*memoryLog),
		typing:        make(map[string]*observable.Subject[bool]),
		users:         make(map[string]map[string]interface{}),
	}
}

func (s *MemoryStore) Messages() repository.MessageRepository {
	return &memoryMessageRepository{store: s}
}

func (s *MemoryStore) Conversations() repository.ConversationRepository {
	return &memoryConversationRepository{store: s}
}

func (s *MemoryStore) Typing() repository.TypingRepository {
	return &memoryTypingRepository{store: s}
}

func (s *MemoryStore) Directory() repository.DirectoryRepository {
	return &memoryDirectoryRepository{store: s}
}

// PutUser stores a raw user record at user/{userId}.
func (s *MemoryStore) PutUser(userID string, fields map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = copyFields(fields)
}

// PutRecord writes a raw child under messages/{c}/messagesList/{key}
// without touching conversation metadata. Existing keys keep their position.
func (s *MemoryStore) PutRecord(conversationID, key string, fields map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.logLocked(conversationID)
	if _, exists := l.records[key]; !exists {
		l.keys = append(l.keys, key)
	}
	l.records[key] = copyFields(fields)
	l.subject.Publish(l.snapshot())
}

func (s *MemoryStore) logLocked(conversationID string) *memoryLog {
	l, ok := s.logs[conversationID]
	if !ok {
		l = &memoryLog{
			records: make(map[string]map[string]interface{}),
			subject: observable.NewBehaviorSubject([]entity.RawRecord{}),
		}
		s.logs[conversationID] = l
	}
	return l
}

func (s *MemoryStore) typingLocked(key string) *observable.Subject[bool] {
	subj, ok := s.typing[key]
	if !ok {
		subj = observable.NewBehaviorSubject(false)
		s.typing[key] = subj
	}
	return subj
}

func (l *memoryLog) snapshot() []entity.RawRecord {
	out := make([]entity.RawRecord, 0, len(l.keys))
	for _, k := range l.keys {
		out = append(out, entity.RawRecord{Key: k, Fields: copyFields(l.records[k])})
	}
	return out
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// forward relays a subject subscription until ctx is done.
func forward[T any](ctx context.Context, ch <-chan T, cancel func()) <-chan T {
	out := make(chan T, 1)
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

type memoryMessageRepository struct {
	store *MemoryStore
}

func (r *memoryMessageRepository) Watch(ctx context.Context, conversationID string) (<-chan []entity.RawRecord, error) {
	r.store.mu.Lock()
	ch, cancel := r.store.logLocked(conversationID).subject.Subscribe()
	r.store.mu.Unlock()
	return forward(ctx, ch, cancel), nil
}

func (r *memoryMessageRepository) Append(ctx context.Context, conversationID string, message entity.Message) error {
	if err := ctx.Err(); err != nil {
		return errors.Internal("Failed to append message", err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	conv, ok := r.store.conversations[conversationID]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}

	l := r.store.logLocked(conversationID)
	if _, exists := l.records[message.ID]; exists {
		return nil
	}
	l.keys = append(l.keys, message.ID)
	l.records[message.ID] = message.Record()

	conv.LastMessage = message.Message
	conv.LastMessageDate = message.MessageDate

	l.subject.Publish(l.snapshot())
	return nil
}

type memoryConversationRepository struct {
	store *MemoryStore
}

func (r *memoryConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.conversations[conversation.ID]; exists {
		return errors.Conflict("Conversation already exists")
	}
	r.store.conversations[conversation.ID] = conversation.Clone()
	return nil
}

func (r *memoryConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	conv, ok := r.store.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return conv.Clone(), nil
}

func (r *memoryConversationRepository) ListByUserID(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*entity.Conversation
	for _, conv := range r.store.conversations {
		if conv.HasParticipant(userID) {
			out = append(out, conv.Clone())
		}
	}
	sortByLastMessage(out)
	return out, nil
}

func (r *memoryConversationRepository) SetActive(ctx context.Context, conversationID, userID string, active bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	conv, ok := r.store.conversations[conversationID]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}

	kept := conv.ActiveParticipants[:0]
	for _, id := range conv.ActiveParticipants {
		if id != userID {
			kept = append(kept, id)
		}
	}
	if active {
		kept = append(kept, userID)
	}
	if len(kept) == 0 {
		kept = nil
	}
	conv.ActiveParticipants = kept
	return nil
}

type memoryTypingRepository struct {
	store *MemoryStore
}

func (r *memoryTypingRepository) SetTyping(ctx context.Context, conversationID, userID string, typing bool) error {
	r.store.mu.Lock()
	subj := r.store.typingLocked(typingKey(conversationID, userID))
	r.store.mu.Unlock()
	subj.Publish(typing)
	return nil
}

func (r *memoryTypingRepository) Watch(ctx context.Context, conversationID, userID string) (<-chan bool, error) {
	r.store.mu.Lock()
	ch, cancel := r.store.typingLocked(typingKey(conversationID, userID)).Subscribe()
	r.store.mu.Unlock()
	return forward(ctx, ch, cancel), nil
}

type memoryDirectoryRepository struct {
	store *MemoryStore
}

func (r *memoryDirectoryRepository) GetByID(ctx context.Context, userID string) (*entity.DirectoryEntry, error) {
	r.store.mu.Lock()
	fields, ok := r.store.users[userID]
	r.store.mu.Unlock()
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	entry, ok := entity.ParseDirectoryEntry(userID, fields)
	if !ok {
		return nil, errors.Malformed("User", nil)
	}
	return entry, nil
}

func typingKey(conversationID, userID string) string {
	return conversationID + "/" + userID
}

func sortByLastMessage(convs []*entity.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		if convs[i].LastMessageDate != convs[j].LastMessageDate {
			return convs[i].LastMessageDate > convs[j].LastMessageDate
		}
		return convs[i].ID < convs[j].ID
	})
}
