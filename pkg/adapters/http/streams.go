package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/hashfsm/pkg/domain"
)

// StreamManager fans host notifications out to active SSE connections.
// Subscribers register for one key prefix, or "" for every key.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // Prefix -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(prefix string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[prefix]; !ok {
		sm.subscribers[prefix] = make(map[chan<- string]struct{})
	}
	sm.subscribers[prefix][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[prefix]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, prefix)
			}
		}
	}
}

// Notify is a ports.NotificationHandler broadcasting n to the subscribers of
// its key prefix and to the catch-all subscribers.
func (sm *StreamManager) Notify(_ context.Context, n domain.Notification) {
	msg, err := json.Marshal(n)
	if err != nil {
		return
	}
	sm.Broadcast("", string(msg))
	if prefix, ok := domain.PrefixOf(n.Key); ok {
		sm.Broadcast(prefix, string(msg))
	}
}

func (sm *StreamManager) Broadcast(prefix string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[prefix] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "prefix", prefix)
		}
	}
}
