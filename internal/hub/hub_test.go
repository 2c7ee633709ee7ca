package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/soar/gamepadview/internal/gamepad"
	"github.com/soar/gamepadview/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func testClient(h *Hub, id string) *Client {
	return &Client{
		id:   id,
		hub:  h,
		send: make(chan []byte, 16),
		log:  h.log,
	}
}

func connect(t *testing.T, h *Hub, id string) *Client {
	t.Helper()
	c := testClient(h, id)
	want := h.Len() + 1
	h.Register(c)
	require.Eventually(t, func() bool { return h.Len() == want }, time.Second, time.Millisecond)
	return c
}

func receive(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return WSMessage{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message %s", data)
	default:
	}
}

func TestHubBroadcast(t *testing.T) {
	h := startHub(t)
	a := connect(t, h, "a")
	b := connect(t, h, "b")

	h.Broadcast([]byte(`{"type":"error","error":"x"}`))
	assert.Equal(t, "x", receive(t, a).Error)
	assert.Equal(t, "x", receive(t, b).Error)

	h.Unregister(a)
	require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, time.Millisecond)
	_, open := <-a.send
	assert.False(t, open)
}

func TestHubDropsSlowClient(t *testing.T) {
	h := startHub(t)
	c := testClient(h, "slow")
	c.send = make(chan []byte)
	h.Register(c)
	require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, time.Millisecond)

	h.Broadcast([]byte(`{}`))
	require.Eventually(t, func() bool { return h.Len() == 0 }, time.Second, time.Millisecond)
}

func connectedPayload() session.Payload {
	return session.Payload{Gamepad: gamepad.Message{
		Header:  &gamepad.Header{ID: "PadX", Stamp: 12.5},
		Axes:    []float64{0.5, -1},
		Buttons: []int{1, 0},
	}}
}

func TestSurfaceRender(t *testing.T) {
	h := startHub(t)
	b := NewBroadcaster(h, zaptest.NewLogger(t))
	c := connect(t, h, "a")
	s := b.Surface("tab-1")

	var results []error
	done := func(err error) { results = append(results, err) }

	s.Render(connectedPayload(), done)
	msg := receive(t, c)
	assert.Equal(t, TypeRender, msg.Type)
	assert.Equal(t, "tab-1", msg.Tab)
	assert.Equal(t, session.MimeJSON, msg.MimeType)
	assert.JSONEq(t,
		`{"gamepad":{"header":{"id":"PadX","stamp":12.5},"axes":[0.5,-1],"buttons":[1,0]}}`,
		string(msg.Data))

	// identical documents are not resent but still settle
	s.Render(connectedPayload(), done)
	assertSilent(t, c)

	s.Render(session.Payload{}, done)
	msg = receive(t, c)
	assert.JSONEq(t, `{"gamepad":{}}`, string(msg.Data))

	assert.Equal(t, []error{nil, nil, nil}, results)
}

func TestSurfaceTitleAndClose(t *testing.T) {
	h := startHub(t)
	b := NewBroadcaster(h, zaptest.NewLogger(t))
	c := connect(t, h, "a")
	s := b.Surface("tab-1")

	s.SetTitle("Gamepad #0 PadX")
	msg := receive(t, c)
	assert.Equal(t, TypeTitle, msg.Type)
	assert.Equal(t, "Gamepad #0 PadX", msg.Title)

	s.SetTitle("Gamepad #0 PadX")
	assertSilent(t, c)

	s.Close()
	msg = receive(t, c)
	assert.Equal(t, TypeClosed, msg.Type)
	assert.Equal(t, "tab-1", msg.Tab)

	// closed tabs ignore further output
	s.Close()
	s.Render(connectedPayload(), func(error) {})
	assertSilent(t, c)
}

func TestSendInitialState(t *testing.T) {
	h := startHub(t)
	b := NewBroadcaster(h, zaptest.NewLogger(t))
	s := b.Surface("tab-1")
	s.SetTitle("Gamepad #0 PadX")
	s.Render(connectedPayload(), func(error) {})

	c := testClient(h, "late")
	b.SendInitialState(c)

	title := receive(t, c)
	assert.Equal(t, TypeTitle, title.Type)
	render := receive(t, c)
	assert.Equal(t, TypeRender, render.Type)
	assert.Greater(t, render.Seq, title.Seq)
	assertSilent(t, c)
}

func TestBroadcasterError(t *testing.T) {
	h := startHub(t)
	b := NewBroadcaster(h, zaptest.NewLogger(t))
	c := connect(t, h, "a")

	b.Error(errors.New("gamepadIndex must be unique"))
	msg := receive(t, c)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, "gamepadIndex must be unique", msg.Error)
}

type fakeHandler struct {
	closed   []string
	executed []string
	err      error
}

func (f *fakeHandler) CloseTab(id string) bool {
	f.closed = append(f.closed, id)
	return id == "known"
}

func (f *fakeHandler) Execute(command string) error {
	f.executed = append(f.executed, command)
	return f.err
}

func TestClientHandle(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	c := testClient(h, "a")
	handler := &fakeHandler{}

	c.handle(handler, []byte(`{"type":"close_tab","tab":"known"}`))
	c.handle(handler, []byte(`{"type":"execute","command":"gamepadview:open-tab:0"}`))
	c.handle(handler, []byte(`not json`))
	c.handle(handler, []byte(`{"type":"bogus"}`))

	assert.Equal(t, []string{"known"}, handler.closed)
	assert.Equal(t, []string{"gamepadview:open-tab:0"}, handler.executed)
	assertSilent(t, c)

	handler.err = errors.New("cannot open gamepad session")
	c.handle(handler, []byte(`{"type":"execute","command":"x"}`))
	msg := receive(t, c)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, "cannot open gamepad session", msg.Error)
}

func TestHubStopped(t *testing.T) {
	h := NewHub(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.Run(ctx)
	}()
	a := connect(t, h, "a")
	cancel()
	<-done

	_, open := <-a.send
	assert.False(t, open)

	// neither call blocks once the hub is gone
	h.Unregister(a)
	late := testClient(h, "late")
	h.Register(late)
	_, open = <-late.send
	assert.False(t, open)
}

func TestBroadcastSeqOrder(t *testing.T) {
	h := startHub(t)
	b := NewBroadcaster(h, zaptest.NewLogger(t))
	c := testClient(h, "a")
	c.send = make(chan []byte, 1024)
	h.Register(c)
	require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, time.Millisecond)

	const tabs, renders = 4, 50
	var wg sync.WaitGroup
	for i := range tabs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := b.Surface(fmt.Sprintf("tab-%d", i))
			for n := range renders {
				s.SetTitle(fmt.Sprintf("title %d", n%3))
				s.Render(session.Payload{Gamepad: gamepad.Message{
					Header: &gamepad.Header{ID: "PadX", Stamp: float64(n)},
				}}, func(error) {})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range renders {
			b.Error(errors.New("bindings rejected"))
		}
	}()
	wg.Wait()

	var last int64
	count := 0
	for len(c.send) > 0 {
		msg := receive(t, c)
		assert.Greater(t, msg.Seq, last)
		last = msg.Seq
		count++
	}
	assert.Equal(t, tabs*renders*2+renders, count)
}

func TestBroadcasterTabsAndDocument(t *testing.T) {
	h := startHub(t)
	b := NewBroadcaster(h, zaptest.NewLogger(t))
	s := b.Surface("tab-2")
	b.Surface("tab-1")
	assert.Equal(t, []string{"tab-1", "tab-2"}, b.Tabs())

	_, ok := b.Document("tab-2")
	assert.False(t, ok)
	s.Render(connectedPayload(), func(error) {})
	doc, ok := b.Document("tab-2")
	require.True(t, ok)
	assert.JSONEq(t,
		`{"gamepad":{"header":{"id":"PadX","stamp":12.5},"axes":[0.5,-1],"buttons":[1,0]}}`,
		string(doc))

	s.Close()
	assert.Equal(t, []string{"tab-1"}, b.Tabs())
}
