package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// TournamentEvent is pushed to stream subscribers after every saved change.
type TournamentEvent struct {
	Type         string `json:"type"`
	Tournament   string `json:"tournament"`
	Status       string `json:"status"`
	CurrentRound int    `json:"current_round"`
	Round        string `json:"round,omitempty"`
	Match        int    `json:"match,omitempty"`
	At           string `json:"at"`
}

// EventBroker fans tournament events out to SSE subscribers, keyed by
// tournament slug. Slow subscribers drop events rather than block publishers.
type EventBroker struct {
	mu          sync.Mutex
	subscribers map[string]map[chan TournamentEvent]struct{}
	keepAlive   time.Duration
}

func NewEventBroker() *EventBroker {
	return &EventBroker{
		subscribers: make(map[string]map[chan TournamentEvent]struct{}),
		keepAlive:   15 * time.Second,
	}
}

// Subscribe registers a buffered channel for the slug. The returned func
// unregisters and closes it.
func (b *EventBroker) Subscribe(slug string) (<-chan TournamentEvent, func()) {
	ch := make(chan TournamentEvent, 16)
	b.mu.Lock()
	if b.subscribers[slug] == nil {
		b.subscribers[slug] = make(map[chan TournamentEvent]struct{})
	}
	b.subscribers[slug][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers[slug], ch)
			if len(b.subscribers[slug]) == 0 {
				delete(b.subscribers, slug)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *EventBroker) Publish(slug string, ev TournamentEvent) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers[slug] {
		select {
		case ch <- ev:
		default:
			log.Printf("[SSE] subscriber for %s is behind, dropping %s event", slug, ev.Type)
		}
	}
}

// Subscribers returns how many streams are open for the slug.
func (b *EventBroker) Subscribers(slug string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[slug])
}

// Stream writes events for slug to the response until the client leaves.
// initial, when non-nil, is sent first so clients render without waiting.
func (b *EventBroker) Stream(c *fiber.Ctx, slug string, initial *TournamentEvent) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	events, cancel := b.Subscribe(slug)
	done := c.Context().Done()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(b.keepAlive)
		defer ticker.Stop()

		w.WriteString(":\n\n")
		if initial != nil {
			writeEvent(w, *initial)
		}
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				writeEvent(w, ev)
				if err := w.Flush(); err != nil {
					// client disconnected
					return
				}
			case <-ticker.C:
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	})
	return nil
}

func writeEvent(w *bufio.Writer, ev TournamentEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[SSE] encode %s event: %v", ev.Type, err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
}
