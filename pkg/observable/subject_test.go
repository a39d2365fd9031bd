package observable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectReplaysLatestValue(t *testing.T) {
	s := NewSubject[int]()
	s.Publish(1)
	s.Publish(2)

	ch, cancel := s.Subscribe()
	defer cancel()

	assert.Equal(t, 2, <-ch)
}

func TestSubjectSlowSubscriberGetsNewest(t *testing.T) {
	s := NewSubject[int]()
	ch, cancel := s.Subscribe()
	defer cancel()

	for i := 0; i < 10; i++ {
		s.Publish(i)
	}

	assert.Equal(t, 9, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}

func TestSubjectCancelIsIdempotent(t *testing.T) {
	s := NewBehaviorSubject("a")
	ch, cancel := s.Subscribe()
	require.Equal(t, "a", <-ch)

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, s.Subscribers())
}

func TestSubjectClose(t *testing.T) {
	s := NewSubject[int]()
	ch, cancel := s.Subscribe()
	s.Close()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	s.Publish(5)
	late, _ := s.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
