package trigger

import (
	"fmt"
	"strings"
)

// EffectKind — вид полноэкранного эффекта оверлея.
type EffectKind int

const (
	EffectGlitchWave EffectKind = iota + 1
	EffectHeartbeatGlow
	EffectSnowStatic
	EffectBlockGlitch
)

var effectNames = map[EffectKind]string{
	EffectGlitchWave:    "glitchWave",
	EffectHeartbeatGlow: "heartbeatGlow",
	EffectSnowStatic:    "snowStatic",
	EffectBlockGlitch:   "blockGlitch",
}

// Отображаемые имена эффектов, которые встречаются в старых конфигурациях.
var effectDisplayNames = map[string]EffectKind{
	"故障波浪": EffectGlitchWave,
}

func (e EffectKind) String() string {
	if n, ok := effectNames[e]; ok {
		return n
	}
	return "unknown"
}

// FragmentFunction возвращает имя fragment-функции шейдера для эффекта.
func (e EffectKind) FragmentFunction() string {
	switch e {
	case EffectGlitchWave:
		return "fragment_glitch_wave"
	case EffectHeartbeatGlow:
		return "fragment_heartbeat_glow"
	case EffectSnowStatic:
		return "fragment_snow_static"
	case EffectBlockGlitch:
		return "fragment_block_glitch"
	}
	return ""
}

func (e EffectKind) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *EffectKind) UnmarshalText(b []byte) error {
	k, ok := ParseEffect(string(b))
	if !ok {
		return fmt.Errorf("unknown effect %q", b)
	}
	*e = k
	return nil
}

// ParseEffect разбирает ключ эффекта из конфигурации: имя кейса (без учёта регистра)
// или отображаемое имя. Неизвестный ключ — false.
func ParseEffect(key string) (EffectKind, bool) {
	k := strings.TrimSpace(key)
	if e, ok := effectDisplayNames[k]; ok {
		return e, true
	}
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(k))
	for e, n := range effectNames {
		if strings.ToLower(n) == norm {
			return e, true
		}
	}
	return 0, false
}
