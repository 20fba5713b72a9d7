// Package rules разбирает JSON-документы хранилища в таблицы правил движка.
// Разбор «по возможности»: битые записи пропускаются и попадают в Issues, загрузка не прерывается.
package rules

import (
	"Xtion/internal/store"
	"Xtion/internal/trigger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Source — то, откуда читаются документы правил.
type Source interface {
	Values(ctx context.Context, keys ...string) (map[string]string, error)
}

// Issue — пропущенная при разборе запись.
type Issue struct {
	Key   string
	Entry string
	Err   error
}

func (i Issue) Error() string {
	if i.Entry == "" {
		return fmt.Sprintf("%s: %v", i.Key, i.Err)
	}
	return fmt.Sprintf("%s[%s]: %v", i.Key, i.Entry, i.Err)
}

func (i Issue) Unwrap() error { return i.Err }

var (
	ErrUnknownEffect = errors.New("unknown effect key")
	ErrBadCooldown   = errors.New("cooldown is not a non-negative number")
	ErrBadMedia      = errors.New("empty media selector")
	ErrBadSchedule   = errors.New("schedule item needs start, word and gif")
)

// Result — итог загрузки. Пустые таблицы движок игнорирует.
type Result struct {
	Rules    trigger.RuleSet
	Schedule trigger.Schedule
	Issues   []Issue
}

// Load читает все ключи правил из src. Ошибка возвращается только при сбое чтения источника.
func Load(ctx context.Context, src Source, loc *time.Location) (Result, error) {
	vals, err := src.Values(ctx, store.RuleKeys...)
	if err != nil {
		return Result{}, fmt.Errorf("read rules: %w", err)
	}
	var res Result
	if v, ok := vals[store.KeySuffixTriggers]; ok {
		res.Rules.Suffix = res.parseEffects(store.KeySuffixTriggers, v)
	}
	if v, ok := vals[store.KeyCumulativeTriggers]; ok {
		res.Rules.Cumulative = res.parseEffects(store.KeyCumulativeTriggers, v)
	}
	if v, ok := vals[store.KeyMediaRules]; ok {
		res.Rules.Media = res.parseMedia(store.KeyMediaRules, v)
	}
	if v, ok := vals[store.KeyCooldowns]; ok {
		res.Rules.Cooldowns = res.parseCooldowns(store.KeyCooldowns, v)
	}
	if v, ok := vals[store.KeyRotatingSchedule]; ok {
		res.Schedule = res.parseSchedule(store.KeyRotatingSchedule, v, loc)
	}
	return res, nil
}

func (r *Result) issue(key, entry string, err error) {
	r.Issues = append(r.Issues, Issue{Key: key, Entry: entry, Err: err})
}

// object разбирает JSON-объект верхнего уровня; при ошибке категория остаётся пустой.
func (r *Result) object(key, doc string) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		r.issue(key, "", err)
		return nil
	}
	return m
}

func (r *Result) str(key, entry string, raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		r.issue(key, entry, err)
		return "", false
	}
	return s, true
}

func (r *Result) parseEffects(key, doc string) map[string]trigger.EffectKind {
	out := map[string]trigger.EffectKind{}
	for pattern, raw := range r.object(key, doc) {
		s, ok := r.str(key, pattern, raw)
		if !ok {
			continue
		}
		e, ok := trigger.ParseEffect(s)
		if !ok {
			r.issue(key, pattern, fmt.Errorf("%w %q", ErrUnknownEffect, s))
			continue
		}
		out[strings.ToLower(pattern)] = e
	}
	return out
}

func (r *Result) parseMedia(key, doc string) map[string]trigger.MediaSelector {
	out := map[string]trigger.MediaSelector{}
	for pattern, raw := range r.object(key, doc) {
		s, ok := r.str(key, pattern, raw)
		if !ok {
			continue
		}
		sel, ok := trigger.ParseMediaSelector(s)
		if !ok {
			r.issue(key, pattern, ErrBadMedia)
			continue
		}
		out[strings.ToLower(pattern)] = sel
	}
	return out
}

func (r *Result) parseCooldowns(key, doc string) map[string]time.Duration {
	out := map[string]time.Duration{}
	for pattern, raw := range r.object(key, doc) {
		secs, ok := seconds(raw)
		if !ok {
			r.issue(key, pattern, ErrBadCooldown)
			continue
		}
		out[strings.ToLower(pattern)] = time.Duration(secs * float64(time.Second))
	}
	return out
}

// seconds принимает число или числовую строку.
func seconds(raw json.RawMessage) (float64, bool) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		v, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
	}
	// time.Duration переполняется около 292 лет
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) || v >= math.MaxInt64/float64(time.Second) {
		return 0, false
	}
	return v, true
}

type scheduleEntry struct {
	Start string `json:"start"`
	Word  string `json:"word"`
	Gif   string `json:"gif"`
	Sound string `json:"sound"`
}

func (r *Result) parseSchedule(key, doc string, loc *time.Location) trigger.Schedule {
	if loc == nil {
		loc = time.Local
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(doc), &items); err != nil {
		r.issue(key, "", err)
		return nil
	}
	var out trigger.Schedule
	for i, raw := range items {
		entry := strconv.Itoa(i)
		var se scheduleEntry
		if err := json.Unmarshal(raw, &se); err != nil {
			r.issue(key, entry, err)
			continue
		}
		media, ok := trigger.ParseMediaSelector(se.Gif)
		if se.Start == "" || strings.TrimSpace(se.Word) == "" || !ok {
			r.issue(key, entry, ErrBadSchedule)
			continue
		}
		start, err := time.ParseInLocation(trigger.ScheduleLayout, strings.TrimSpace(se.Start), loc)
		if err != nil {
			r.issue(key, entry, err)
			continue
		}
		sound := strings.TrimSpace(se.Sound)
		if sound == "" {
			sound = trigger.DefaultRotatingSound
		}
		out = append(out, trigger.ScheduleItem{Start: start, Word: strings.TrimSpace(se.Word), Media: media, Sound: sound})
	}
	return out.Sorted()
}
