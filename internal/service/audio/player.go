package audio

import (
	"errors"
	"io"
	"math"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

var ErrUnsupportedFormat = errors.New("unsupported format for direct playback; use mp3 or wav")

// decode открывает поток в зависимости от формата.
func decode(format string, r io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(format) {
	case "wav":
		return wav.Decode(r)
	case "mp3":
		return mp3.Decode(r)
	default:
		return nil, beep.Format{}, ErrUnsupportedFormat
	}
}

// gain переводит линейную громкость 0..1 в параметры effects.Volume с основанием 2.
func gain(linear float64) (volume float64, silent bool) {
	if linear <= 0 {
		return 0, true
	}
	return math.Log2(min(linear, 1)), false
}

func withVolume(s beep.Streamer, linear float64, muted bool) *effects.Volume {
	v, silent := gain(linear)
	return &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   v,
		Silent:   silent || muted,
	}
}
