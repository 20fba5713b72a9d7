package trigger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMediaSelector(t *testing.T) {
	tests := []struct {
		in   string
		want MediaSelector
		ok   bool
	}{
		{in: "halloween", want: Named("halloween"), ok: true},
		{in: "  halloween ", want: Named("halloween"), ok: true},
		{in: "random", want: Random(""), ok: true},
		{in: "RANDOM", want: Random(""), ok: true},
		{in: "random:GIFGroup", want: Random("GIFGroup"), ok: true},
		{in: "Random: scary ", want: Random("scary"), ok: true},
		{in: "random:", want: Random(""), ok: true},
		{in: "", ok: false},
		{in: "   ", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseMediaSelector(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMediaSelectorString(t *testing.T) {
	assert.Equal(t, "halloween", Named("halloween").String())
	assert.Equal(t, "random", Random("").String())
	assert.Equal(t, "random:GIFGroup", Random("GIFGroup").String())
	assert.True(t, MediaSelector{}.IsZero())
}

func TestParseEffect(t *testing.T) {
	tests := []struct {
		in   string
		want EffectKind
		ok   bool
	}{
		{in: "glitchWave", want: EffectGlitchWave, ok: true},
		{in: "heartbeatglow", want: EffectHeartbeatGlow, ok: true},
		{in: "snow_static", want: EffectSnowStatic, ok: true},
		{in: " BlockGlitch ", want: EffectBlockGlitch, ok: true},
		{in: "故障波浪", want: EffectGlitchWave, ok: true},
		{in: "fireworks", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseEffect(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "fragment_glitch_wave", EffectGlitchWave.FragmentFunction())
}

func TestActionJSON(t *testing.T) {
	in := Action{Kind: ActionMedia, Effect: EffectSnowStatic, Media: Random("GIFGroup"), Size: Size{W: 800, H: 800}}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"media":"random:GIFGroup"`)
	assert.Contains(t, string(data), `"effect":"snowStatic"`)

	var out Action
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	data, err = json.Marshal(Action{Kind: ActionStopSound})
	require.NoError(t, err)
	assert.JSONEq(t, `{"delay":0,"kind":"stop-sound"}`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`{"effect":"fireworks"}`), &out))
}
