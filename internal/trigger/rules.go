package trigger

import (
	"maps"
	"strings"
	"time"
)

// RuleSet — таблицы правил, которые движок получает из хранилища конфигурации.
// Ключи всех таблиц сравниваются без учёта регистра.
type RuleSet struct {
	Suffix     map[string]EffectKind
	Cumulative map[string]EffectKind
	Media      map[string]MediaSelector
	Cooldowns  map[string]time.Duration
}

// DefaultRuleSet возвращает встроенные правила, с которыми движок стартует до загрузки конфигурации.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Suffix: map[string]EffectKind{
			"666":   EffectGlitchWave,
			"xtion": EffectHeartbeatGlow,
			"dead":  EffectSnowStatic,
		},
		Cumulative: map[string]EffectKind{
			"ghost": EffectBlockGlitch,
		},
		Media: map[string]MediaSelector{
			"ghost": Named("halloween"),
		},
		Cooldowns: map[string]time.Duration{
			"ghost": 3000 * time.Second,
		},
	}
}

// normalize приводит ключи к нижнему регистру и отбрасывает пустые.
func (rs RuleSet) normalize() RuleSet {
	return RuleSet{
		Suffix:     foldKeys(rs.Suffix),
		Cumulative: foldKeys(rs.Cumulative),
		Media:      foldKeys(rs.Media),
		Cooldowns:  foldKeys(rs.Cooldowns),
	}
}

func foldKeys[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// mergeOver накладывает next поверх base; при совпадении ключей побеждает next.
func mergeOver[V any](base, next map[string]V) map[string]V {
	out := maps.Clone(base)
	if out == nil {
		out = make(map[string]V, len(next))
	}
	maps.Copy(out, next)
	return out
}

// withoutKeys возвращает копию m без ключей, присутствующих в exclude.
func withoutKeys[V, X any](m map[string]V, exclude map[string]X) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		if _, dup := exclude[k]; dup {
			continue
		}
		out[k] = v
	}
	return out
}
