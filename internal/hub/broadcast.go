package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/soar/gamepadview/internal/session"
	"go.uber.org/zap"
)

const fullSyncInterval = 5 * time.Second

type tabState struct {
	title string
	data  json.RawMessage
}

// Broadcaster keeps the last document and title of every open tab and
// forwards changes to the hub.
type Broadcaster struct {
	hub *Hub
	log *zap.Logger

	mu   sync.Mutex
	tabs map[string]*tabState
	seq  int64
}

func NewBroadcaster(h *Hub, log *zap.Logger) *Broadcaster {
	return &Broadcaster{
		hub:  h,
		log:  log,
		tabs: make(map[string]*tabState),
	}
}

// Surface returns the display for one tab.
func (b *Broadcaster) Surface(tab string) *Surface {
	b.mu.Lock()
	if _, ok := b.tabs[tab]; !ok {
		b.tabs[tab] = &tabState{}
	}
	b.mu.Unlock()
	return &Surface{b: b, tab: tab}
}

// Run resends every tab's full document periodically until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	ticker := time.NewTicker(fullSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.mu.Lock()
			for _, msg := range b.snapshotLocked(false) {
				b.sendLocked(msg)
			}
			b.mu.Unlock()
		}
	}
}

// SendInitialState sends every open tab to a newly connected client.
func (b *Broadcaster) SendInitialState(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, msg := range b.snapshotLocked(true) {
		data, err := json.Marshal(msg)
		if err != nil {
			b.log.Error("error marshaling initial state", zap.Error(err))
			continue
		}
		c.enqueue(data)
	}
}

// Error reports err to every client.
func (b *Broadcaster) Error(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	b.sendLocked(NewErrorMessage(b.seq, err))
}

// Tabs returns the ids of the tabs with a live surface, sorted.
func (b *Broadcaster) Tabs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.idsLocked()
}

// Document returns the last document rendered on tab.
func (b *Broadcaster) Document(tab string) (json.RawMessage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tabs[tab]
	if !ok || t.data == nil {
		return nil, false
	}
	return t.data, true
}

func (b *Broadcaster) idsLocked() []string {
	ids := make([]string, 0, len(b.tabs))
	for id := range b.tabs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (b *Broadcaster) snapshotLocked(withTitles bool) []*WSMessage {
	var out []*WSMessage
	for _, id := range b.idsLocked() {
		t := b.tabs[id]
		if withTitles && t.title != "" {
			b.seq++
			out = append(out, NewTitleMessage(b.seq, id, t.title))
		}
		if t.data != nil {
			b.seq++
			out = append(out, NewRenderMessage(b.seq, id, session.MimeJSON, t.data))
		}
	}
	return out
}

func (b *Broadcaster) render(tab string, data json.RawMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tabs[tab]
	if !ok || bytes.Equal(t.data, data) {
		return
	}
	t.data = data
	b.seq++
	b.sendLocked(NewRenderMessage(b.seq, tab, session.MimeJSON, data))
}

func (b *Broadcaster) setTitle(tab, title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tabs[tab]
	if !ok || t.title == title {
		return
	}
	t.title = title
	b.seq++
	b.sendLocked(NewTitleMessage(b.seq, tab, title))
}

func (b *Broadcaster) close(tab string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tabs[tab]; !ok {
		return
	}
	delete(b.tabs, tab)
	b.seq++
	b.sendLocked(NewClosedMessage(b.seq, tab))
}

// sendLocked hands msg to the hub while b.mu is held, so clients receive
// messages in seq order. Hub.Broadcast never blocks.
func (b *Broadcaster) sendLocked(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.log.Error("error marshaling message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	b.hub.Broadcast(data)
}

// Surface renders one session's documents to every connected client.
type Surface struct {
	b   *Broadcaster
	tab string
}

func (s *Surface) Tab() string {
	return s.tab
}

// Render broadcasts p unless it is identical to the tab's last document.
// done is called before Render returns.
func (s *Surface) Render(p session.Payload, done func(error)) {
	data, err := json.Marshal(p)
	if err != nil {
		done(err)
		return
	}
	s.b.render(s.tab, data)
	done(nil)
}

func (s *Surface) SetTitle(label string) {
	s.b.setTitle(s.tab, label)
}

func (s *Surface) Close() {
	s.b.close(s.tab)
}
