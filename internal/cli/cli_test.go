package cli

import (
	"Xtion/internal/app/runner"
	"Xtion/internal/service/control"
	"Xtion/internal/store"
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run выполняет команду с флагами по умолчанию, чтобы тесты не влияли друг на друга.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	reset(RootCmd)
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetIn(strings.NewReader(stdin))
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return out.String(), err
}

func reset(cmd *cobra.Command) {
	resetFlag := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(resetFlag)
	cmd.Flags().VisitAll(resetFlag)
	for _, c := range cmd.Commands() {
		reset(c)
	}
}

func TestSetGetListRm(t *testing.T) {
	db := filepath.Join(t.TempDir(), "xtion.db")

	out, err := run(t, "", "--db", db, "set", store.KeySuffixTriggers, `{"666":"glitchWave"}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"ok":true`)

	_, err = run(t, `{"ghost":300}`, "--db", db, "set", store.KeyCooldowns)
	require.NoError(t, err)

	out, err = run(t, "", "--db", db, "get", store.KeySuffixTriggers)
	require.NoError(t, err)
	assert.JSONEq(t, `{"666":"glitchWave"}`, out)

	out, err = run(t, "", "--db", db, "list")
	require.NoError(t, err)
	var entries []store.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, store.KeyCooldowns, entries[0].Key)

	out, err = run(t, "", "--db", db, "-f", "text", "list")
	require.NoError(t, err)
	assert.Contains(t, out, store.KeySuffixTriggers)

	_, err = run(t, "", "--db", db, "rm", store.KeyCooldowns)
	require.NoError(t, err)
	_, err = run(t, "", "--db", db, "rm", store.KeyCooldowns)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSetRejectsInvalidJSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "xtion.db")
	_, err := run(t, "", "--db", db, "set", store.KeyMediaRules, `{"ghost":`)
	assert.ErrorIs(t, err, store.ErrInvalidJSON)
}

func TestStatusFromStore(t *testing.T) {
	db := filepath.Join(t.TempDir(), "xtion.db")
	_, err := run(t, "", "--db", db, "set", store.KeyRotatingSchedule,
		`[{"start":"2020-01-01 00:00","word":"wraith","gif":"random"},{"start":"2020-01-02 00:00","word":"banshee","gif":"banshee"},{"word":"broken"}]`)
	require.NoError(t, err)

	out, err := run(t, "", "--db", db, "status", "--tz", "UTC")
	require.NoError(t, err)

	var st statusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "banshee", st.ActiveWord)
	assert.True(t, st.NextSwitch.IsZero())
	assert.Equal(t, 2, st.Tables.Schedule)
	assert.Len(t, st.Issues, 1)

	out, err = run(t, "", "--db", db, "-f", "text", "status", "--tz", "UTC")
	require.NoError(t, err)
	assert.Contains(t, out, "active: banshee (since 2020-01-02 00:00)")
}

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

func (f *fakeRunner) Status() runner.Status { return runner.Status{ActiveWord: "deadman"} }

func (f *fakeRunner) got() []runner.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Event(nil), f.events...)
}

func startDaemon(t *testing.T) (string, *fakeRunner) {
	t.Helper()
	fr := &fakeRunner{}
	s := control.New(control.Config{BindAddr: "127.0.0.1:0", AuthToken: "tok"}, fr, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	t.Cleanup(cancel)
	return s.Addr(), fr
}

func TestReloadTypeKey(t *testing.T) {
	addr, fr := startDaemon(t)

	out, err := run(t, "", "--addr", addr, "--token", "tok", "reload")
	require.NoError(t, err)
	assert.Contains(t, out, `"accepted":true`)

	_, err = run(t, "", "--addr", addr, "--token", "tok", "type", "boo", "--buffer", "2")
	require.NoError(t, err)

	out, err = run(t, "", "--addr", addr, "--token", "tok", "key", "53", "-r", "4")
	require.NoError(t, err)
	assert.Contains(t, out, `"sent":4`)

	evs := fr.got()
	require.Len(t, evs, 1+3+4)
	assert.Equal(t, runner.ConfigChanged{}, evs[0])
	assert.Equal(t, runner.BufferUpdated{Text: "b"}, evs[1])
	assert.Equal(t, runner.BufferUpdated{Text: "oo"}, evs[3])
	assert.Equal(t, runner.SpecialKeyPressed{Code: 53}, evs[7])

	out, err = run(t, "", "--addr", addr, "--token", "tok", "status", "--live")
	require.NoError(t, err)
	assert.Contains(t, out, "deadman")

	_, err = run(t, "", "--addr", addr, "--token", "nope", "reload")
	assert.Error(t, err)
	_, err = run(t, "", "--addr", addr, "key", "esc")
	assert.Error(t, err)
}
