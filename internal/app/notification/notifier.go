// Package notification provides the broadcaster that fans game events
// out to subscribed streams (the SSE endpoint, the CLI watcher).
package notification

import (
	"sync"

	"github.com/google/uuid"
)

// Type identifies the notification payload.
type Type string

const (
	TypeInitialState  Type = "initial_state"
	TypeRoundAdvanced Type = "round_advanced"
	TypePhaseChanged  Type = "phase_changed"
	TypeFinished      Type = "finished"
	TypePlaybackError Type = "playback_error"
)

// TrackInfo is the wire form of the current round's track.
type TrackInfo struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	ArtistName  string `json:"artist_name"`
	AlbumArtURL string `json:"album_art_url,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
	OffsetMs    int64  `json:"offset_ms"`
	Popularity  int    `json:"popularity"`
}

// Notification is one event on the stream. Track is nil for rounds
// with an absent slot and for non-round events.
type Notification struct {
	Type        Type       `json:"type"`
	SequenceNo  uint64     `json:"sequence_no"`
	Phase       string     `json:"phase"`
	Round       int        `json:"round,omitempty"`
	Rounds      int        `json:"rounds,omitempty"`
	ArtistIndex int        `json:"artist_index,omitempty"`
	TrackRank   int        `json:"track_rank,omitempty"`
	Track       *TrackInfo `json:"track,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Stream receives notifications for one subscriber.
type Stream interface {
	Send(*Notification) error
}

// subscription pairs a subscriber ID with its stream.
type subscription struct {
	id     string
	stream Stream
}

// Notifier broadcasts notifications to all subscribers.
type Notifier struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a stream and returns its subscription ID.
func (n *Notifier) Subscribe(stream Stream) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := uuid.New().String()
	n.subscriptions[id] = &subscription{id: id, stream: stream}
	return id
}

// Unsubscribe removes a subscription.
func (n *Notifier) Unsubscribe(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subscriptions, id)
}

// SubscriberCount returns the number of active subscribers.
func (n *Notifier) SubscriberCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subscriptions)
}

// NextSequenceNo assigns the next sequence number. Used for the
// initial-state snapshot a new subscriber receives before broadcast
// notifications.
func (n *Notifier) NextSequenceNo() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sequenceNo++
	return n.sequenceNo
}

// Broadcast stamps the notification with a sequence number and sends
// it to every subscriber. A failing stream is dropped silently; the
// subscriber notices via its own transport.
func (n *Notifier) Broadcast(notification *Notification) {
	n.mu.Lock()
	n.sequenceNo++
	notification.SequenceNo = n.sequenceNo

	subs := make([]*subscription, 0, len(n.subscriptions))
	for _, sub := range n.subscriptions {
		subs = append(subs, sub)
	}
	n.mu.Unlock()

	for _, sub := range subs {
		// Send errors are ignored; a dead SSE connection unsubscribes
		// itself when its handler returns.
		_ = sub.stream.Send(notification)
	}
}

// Close removes all subscriptions.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscriptions = make(map[string]*subscription)
}
