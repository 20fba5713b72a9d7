package control

import (
	"Xtion/internal/app/runner"
	"Xtion/internal/trigger"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu     sync.Mutex
	events []runner.Event
}

func (f *fakeRunner) Submit(ev runner.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return true
}

func (f *fakeRunner) Status() runner.Status {
	return runner.Status{ActiveWord: "deadman", Fired: 3}
}

func (f *fakeRunner) got() []runner.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Event(nil), f.events...)
}

func startServer(t *testing.T, token string) (*Server, *fakeRunner) {
	t.Helper()
	fr := &fakeRunner{}
	s := New(Config{BindAddr: "127.0.0.1:0", AuthToken: token}, fr, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	t.Cleanup(func() {
		cancel()
		_ = s.Stop(context.Background())
	})
	return s, fr
}

func TestRequestSubmitsEvents(t *testing.T) {
	s, fr := startServer(t, "")
	ctx := context.Background()

	rep, err := Request(ctx, s.Addr(), "/ws", "", Inbound{Type: TypeConfigChanged})
	require.NoError(t, err)
	assert.True(t, rep.Accepted)

	_, err = Request(ctx, s.Addr(), "/ws", "", Inbound{Type: TypeBuffer, Text: "ghost"})
	require.NoError(t, err)
	_, err = Request(ctx, s.Addr(), "/ws", "", Inbound{Type: TypeSpecialKey, KeyCode: trigger.KeyEscape})
	require.NoError(t, err)

	assert.Equal(t, []runner.Event{
		runner.ConfigChanged{},
		runner.BufferUpdated{Text: "ghost"},
		runner.SpecialKeyPressed{Code: trigger.KeyEscape},
	}, fr.got())
}

func TestRequestStatusAndErrors(t *testing.T) {
	s, _ := startServer(t, "")
	ctx := context.Background()

	rep, err := Request(ctx, s.Addr(), "/ws", "", Inbound{Type: TypeStatus})
	require.NoError(t, err)
	require.NotNil(t, rep.Status)
	assert.Equal(t, "deadman", rep.Status.ActiveWord)

	_, err = Request(ctx, s.Addr(), "/ws", "", Inbound{Type: "explode"})
	assert.ErrorContains(t, err, "unknown message type")
}

func TestAuthToken(t *testing.T) {
	s, fr := startServer(t, "s3cret")
	ctx := context.Background()

	_, err := Request(ctx, s.Addr(), "/ws", "wrong", Inbound{Type: TypeConfigChanged})
	assert.Error(t, err)

	_, err = Request(ctx, s.Addr(), "/ws", "s3cret", Inbound{Type: TypeConfigChanged})
	require.NoError(t, err)

	u := url.URL{Scheme: "ws", Host: s.Addr(), Path: "/ws", RawQuery: "token=s3cret"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	conn.Close()

	assert.Len(t, fr.got(), 1)
}

func TestBroadcastFire(t *testing.T) {
	s, _ := startServer(t, "")
	u := url.URL{Scheme: "ws", Host: s.Addr(), Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), http.Header{})
	require.NoError(t, err)
	defer conn.Close()

	// ответ на status гарантирует, что клиент уже зарегистрирован
	require.NoError(t, conn.WriteJSON(Inbound{Type: TypeStatus}))
	var rep Reply
	require.NoError(t, conn.ReadJSON(&rep))
	assert.Equal(t, 1, s.Clients())

	s.Broadcast(NewFire(trigger.Decision{ID: "01J", Origin: "666", Effect: trigger.EffectGlitchWave, HasEffect: true}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "fire", got["type"])
	assert.Equal(t, "01J", got["id"])
	assert.Equal(t, "glitchWave", got["effect"])
}

func TestInvalidJSONReply(t *testing.T) {
	s := New(Config{}, &fakeRunner{}, nil)
	rep := s.handle([]byte("{"))
	assert.Equal(t, TypeError, rep.Type)
}
