package trigger

import (
	"slices"
	"strings"
	"time"
)

// ScheduleLayout — формат времени начала в расписании ротации.
const ScheduleLayout = "2006-01-02 15:04"

// DefaultRotatingSound — звук ротационного слова, если в расписании он не указан.
const DefaultRotatingSound = "2"

// ScheduleItem — слово ротации, действующее с момента Start до начала следующего элемента.
type ScheduleItem struct {
	Start time.Time
	Word  string
	Media MediaSelector
	Sound string
}

// Schedule — расписание ротации, отсортированное по Start по возрастанию.
type Schedule []ScheduleItem

// Sorted возвращает копию расписания, упорядоченную по времени начала.
// Элементы с одинаковым временем сохраняют исходный порядок.
func (s Schedule) Sorted() Schedule {
	out := slices.Clone(s)
	slices.SortStableFunc(out, func(a, b ScheduleItem) int { return a.Start.Compare(b.Start) })
	return out
}

// Contains сообщает, есть ли слово в расписании (без учёта регистра).
func (s Schedule) Contains(word string) bool {
	w := strings.ToLower(word)
	return slices.ContainsFunc(s, func(it ScheduleItem) bool { return strings.ToLower(it.Word) == w })
}

// ActiveItem возвращает элемент с наибольшим Start, не превышающим now.
// Расписание должно быть отсортировано заранее; функция его не пересортировывает.
func ActiveItem(s Schedule, now time.Time) (ScheduleItem, bool) {
	var (
		cur   ScheduleItem
		found bool
	)
	for _, it := range s {
		if it.Start.After(now) {
			continue
		}
		cur, found = it, true
	}
	return cur, found
}

// NextSwitch возвращает наименьший Start строго позже now.
func NextSwitch(s Schedule, now time.Time) (time.Time, bool) {
	var (
		next  time.Time
		found bool
	)
	for _, it := range s {
		if !it.Start.After(now) {
			continue
		}
		if !found || it.Start.Before(next) {
			next, found = it.Start, true
		}
	}
	return next, found
}

// DefaultTestSchedule — тестовое расписание, которое ставится при старте,
// если сохранённое не даёт активного слова.
func DefaultTestSchedule(loc *time.Location) Schedule {
	if loc == nil {
		loc = time.Local
	}
	at := func(v string) time.Time {
		t, _ := time.ParseInLocation(ScheduleLayout, v, loc)
		return t
	}
	return Schedule{
		{Start: at("2025-10-22 23:00"), Word: "bloodymary", Media: Named("bloodymary"), Sound: DefaultRotatingSound},
		{Start: at("2025-10-23 00:00"), Word: "bonjout", Media: Named("bonjour"), Sound: DefaultRotatingSound},
		{Start: at("2025-10-23 01:00"), Word: "deadman", Media: Named("deadman"), Sound: DefaultRotatingSound},
	}
}
