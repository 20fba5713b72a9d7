package overlay

import (
	"Xtion/internal/trigger"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type grabFunc func() (string, error)

func (f grabFunc) Grab() (string, error) { return f() }

type sink struct {
	mu  sync.Mutex
	evs []Event
}

func (s *sink) add(ev Event) {
	s.mu.Lock()
	s.evs = append(s.evs, ev)
	s.mu.Unlock()
}

func (s *sink) types() []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []EventType
	for _, ev := range s.evs {
		out = append(out, ev.Type)
	}
	return out
}

func TestStartIgnoredWhileActive(t *testing.T) {
	o := New(grabFunc(func() (string, error) { return "frame.jpg", nil }), nil)
	s := &sink{}
	o.Subscribe(s.add)

	require.NoError(t, o.Start(trigger.EffectGlitchWave, 50*time.Millisecond))
	require.NoError(t, o.Start(trigger.EffectSnowStatic, 50*time.Millisecond))

	effect, active := o.Active()
	assert.True(t, active)
	assert.Equal(t, trigger.EffectGlitchWave, effect)

	require.Eventually(t, func() bool { return len(s.types()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []EventType{EventStarted, EventStopped}, s.types())
	_, active = o.Active()
	assert.False(t, active)
	assert.Equal(t, "frame.jpg", s.evs[0].Frame)
	assert.Equal(t, "fragment_glitch_wave", s.evs[0].Fragment)
}

func TestStopEndsEffectEarly(t *testing.T) {
	o := New(grabFunc(func() (string, error) { return "", errors.New("no display") }), nil)
	s := &sink{}
	o.Subscribe(s.add)

	require.NoError(t, o.Start(trigger.EffectBlockGlitch, time.Hour))
	o.Stop()
	o.Stop()
	_, active := o.Active()
	assert.False(t, active)
	assert.Equal(t, []EventType{EventStarted, EventStopped}, s.types())

	require.NoError(t, o.Start(trigger.EffectHeartbeatGlow, time.Hour))
	effect, _ := o.Active()
	assert.Equal(t, trigger.EffectHeartbeatGlow, effect)
	o.Stop()
}

func TestStartUnknownEffect(t *testing.T) {
	assert.Error(t, New(nil, nil).Start(trigger.EffectKind(42), time.Second))
}

func TestSinkMaySubscribeDuringEmit(t *testing.T) {
	o := New(nil, nil)
	s := &sink{}
	o.Subscribe(func(ev Event) {
		if ev.Type == EventStarted {
			o.Subscribe(s.add)
		}
	})

	require.NoError(t, o.Start(trigger.EffectSnowStatic, time.Hour))
	assert.Empty(t, s.types())
	o.Stop()
	assert.Equal(t, []EventType{EventStopped}, s.types())
}
