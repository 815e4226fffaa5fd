package notification

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureStream struct {
	mu       sync.Mutex
	received []*Notification
	err      error
}

func (s *captureStream) Send(n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.received = append(s.received, n)
	return nil
}

func (s *captureStream) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

func TestNotifierBroadcast(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	s1 := &captureStream{}
	s2 := &captureStream{}
	n.Subscribe(s1)
	n.Subscribe(s2)
	require.Equal(t, 2, n.SubscriberCount())

	n.Broadcast(&Notification{Type: TypeRoundAdvanced, Round: 1})
	n.Broadcast(&Notification{Type: TypeRoundAdvanced, Round: 2})

	assert.Equal(t, 2, s1.count())
	assert.Equal(t, 2, s2.count())
}

func TestNotifierSequenceNumbers(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	s := &captureStream{}
	n.Subscribe(s)

	n.Broadcast(&Notification{Type: TypePhaseChanged})
	n.Broadcast(&Notification{Type: TypeRoundAdvanced})
	n.Broadcast(&Notification{Type: TypeFinished})

	require.Equal(t, 3, s.count())
	assert.Equal(t, uint64(1), s.received[0].SequenceNo)
	assert.Equal(t, uint64(2), s.received[1].SequenceNo)
	assert.Equal(t, uint64(3), s.received[2].SequenceNo)
}

func TestNotifierUnsubscribe(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	s := &captureStream{}
	id := n.Subscribe(s)
	n.Broadcast(&Notification{Type: TypeRoundAdvanced})

	n.Unsubscribe(id)
	assert.Equal(t, 0, n.SubscriberCount())

	n.Broadcast(&Notification{Type: TypeRoundAdvanced})
	assert.Equal(t, 1, s.count())
}

func TestNotifierFailingStreamDoesNotBlockOthers(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	bad := &captureStream{err: errors.New("connection reset")}
	good := &captureStream{}
	n.Subscribe(bad)
	n.Subscribe(good)

	n.Broadcast(&Notification{Type: TypeRoundAdvanced, Round: 5})

	assert.Equal(t, 0, bad.count())
	assert.Equal(t, 1, good.count())
}

func TestNotifierNextSequenceNo(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	first := n.NextSequenceNo()
	assert.Equal(t, uint64(1), first)

	s := &captureStream{}
	n.Subscribe(s)
	n.Broadcast(&Notification{Type: TypeRoundAdvanced})

	require.Equal(t, 1, s.count())
	assert.Equal(t, uint64(2), s.received[0].SequenceNo)
}
