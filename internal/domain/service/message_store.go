package service

import (
	"context"
	"sort"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/domain/repository"
	"fazaachat/internal/infrastructure/metrics"
	"fazaachat/pkg/errors"
	"fazaachat/pkg/logger"
)

// MessageStore turns the raw record stream of a conversation into ordered,
// de-duplicated message lists.
type MessageStore struct {
	repo    repository.MessageRepository
	metrics *metrics.Metrics
}

func NewMessageStore(repo repository.MessageRepository, m *metrics.Metrics) *MessageStore {
	return &MessageStore{repo: repo, metrics: m}
}

// Subscribe emits the full materialized list for conversationID on every
// change of the underlying collection. Every call starts from a fresh
// snapshot. The channel is closed when ctx is done.
func (s *MessageStore) Subscribe(ctx context.Context, conversationID string) (<-chan []entity.Message, error) {
	raw, err := s.repo.Watch(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	out := make(chan []entity.Message, 1)
	go func() {
		defer close(out)
		m := NewMaterializer()
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-raw:
				if !ok {
					return
				}
				msgs, dropped := m.Apply(batch)
				if dropped > 0 {
					logger.Debug("MessageStore: dropped %d malformed records in conversation %s", dropped, conversationID)
					s.metrics.Dropped("message", dropped)
				}
				select {
				case out <- msgs:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Snapshot returns the current materialized list and stops listening.
func (s *MessageStore) Snapshot(ctx context.Context, conversationID string) ([]entity.Message, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := s.Subscribe(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	select {
	case msgs, ok := <-ch:
		if !ok {
			if ctx.Err() != nil {
				return nil, errors.Internal("Message snapshot cancelled", ctx.Err())
			}
			return nil, errors.Internal("Message stream closed before first snapshot", nil)
		}
		return msgs, nil
	case <-ctx.Done():
		return nil, errors.Internal("Message snapshot cancelled", ctx.Err())
	}
}

func (s *MessageStore) Append(ctx context.Context, conversationID string, message entity.Message) error {
	return s.repo.Append(ctx, conversationID, message)
}

// Materializer keeps the arrival order of message ids across successive
// snapshots of one subscription.
type Materializer struct {
	arrival map[string]uint64
	next    uint64
}

func NewMaterializer() *Materializer {
	return &Materializer{arrival: make(map[string]uint64)}
}

// Apply parses a full snapshot and returns it sorted by messageDate, ties
// in arrival order. Records that fail to parse are counted and skipped; the
// first record for a given id wins.
func (m *Materializer) Apply(records []entity.RawRecord) ([]entity.Message, int) {
	msgs := make([]entity.Message, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	dropped := 0

	for _, rec := range records {
		msg, ok := entity.ParseMessage(rec)
		if !ok {
			dropped++
			continue
		}
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}
		if _, known := m.arrival[msg.ID]; !known {
			m.arrival[msg.ID] = m.next
			m.next++
		}
		msgs = append(msgs, msg)
	}

	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].MessageDate != msgs[j].MessageDate {
			return msgs[i].MessageDate < msgs[j].MessageDate
		}
		return m.arrival[msgs[i].ID] < m.arrival[msgs[j].ID]
	})
	return msgs, dropped
}
