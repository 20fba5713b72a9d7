package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveItemWindows(t *testing.T) {
	t1 := time.Date(2025, 10, 22, 23, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)
	s := Schedule{
		{Start: t1, Word: "one"},
		{Start: t2, Word: "two"},
		{Start: t3, Word: "three"},
	}

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{name: "before first", at: t1.Add(-time.Nanosecond), want: ""},
		{name: "at first", at: t1, want: "one"},
		{name: "inside first", at: t2.Add(-time.Nanosecond), want: "one"},
		{name: "at second", at: t2, want: "two"},
		{name: "inside second", at: t2.Add(30 * time.Minute), want: "two"},
		{name: "after last", at: t3.Add(24 * time.Hour), want: "three"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, ok := ActiveItem(s, tt.at)
			if tt.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, item.Word)
		})
	}
}

func TestActiveItemEmpty(t *testing.T) {
	_, ok := ActiveItem(nil, time.Now())
	assert.False(t, ok)
	_, ok = NextSwitch(nil, time.Now())
	assert.False(t, ok)
}

func TestNextSwitch(t *testing.T) {
	t1 := time.Date(2025, 10, 22, 23, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	s := Schedule{{Start: t1, Word: "a"}, {Start: t2, Word: "b"}}

	next, ok := NextSwitch(s, t1.Add(-time.Minute))
	require.True(t, ok)
	assert.Equal(t, t1, next)

	next, ok = NextSwitch(s, t1)
	require.True(t, ok)
	assert.Equal(t, t2, next, "switch must be strictly after now")

	_, ok = NextSwitch(s, t2)
	assert.False(t, ok)
}

func TestScheduleSortedIsStable(t *testing.T) {
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Schedule{
		{Start: t1.Add(time.Hour), Word: "late"},
		{Start: t1, Word: "first"},
		{Start: t1, Word: "second"},
	}
	sorted := s.Sorted()
	assert.Equal(t, []string{"first", "second", "late"}, []string{sorted[0].Word, sorted[1].Word, sorted[2].Word})
	assert.Equal(t, "late", s[0].Word, "input slice is untouched")
	assert.True(t, s.Contains("LATE"))
	assert.False(t, s.Contains("missing"))
}

func TestDefaultTestSchedule(t *testing.T) {
	s := DefaultTestSchedule(time.UTC)
	require.Len(t, s, 3)

	item, ok := ActiveItem(s, time.Date(2025, 10, 23, 0, 30, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, "bonjout", item.Word)
	assert.Equal(t, Named("bonjour"), item.Media)
	assert.Equal(t, DefaultRotatingSound, item.Sound)
}
