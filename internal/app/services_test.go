package app

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/stripd/internal/config"
	"github.com/dokzlo13/stripd/internal/eventbus"
	"github.com/dokzlo13/stripd/internal/state"
)

func testConfig(t *testing.T, dbPath string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
strip:
  length: 12
  tick_interval: 5ms
  outputs: [log]
database:
  path: %s
control:
  colors: [door]
default_pattern:
  kind: rainbow
  name: idle
  duration: 10s
`, dbPath)))
	require.NoError(t, err)
	return cfg
}

func startServices(t *testing.T, cfg *config.Config) (*Services, context.CancelFunc) {
	t.Helper()
	s, err := NewServices(cfg, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx, func(err error) { t.Errorf("fatal: %v", err) }))
	return s, cancel
}

func TestServices_ConfigDefault(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "stripd.sqlite"))
	s, cancel := startServices(t, cfg)

	assert.Equal(t, "idle", s.Scheduler.Scheduler.Status().Current)
	assert.Eventually(t, func() bool { return s.Scheduler.Buffer.Flushes() > 2 }, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		entries, err := s.Ledger.Recent(10)
		return err == nil && len(entries) == 1 && entries[0].EventType == eventbus.EventPatternStarted
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, s.Stop())
}

func TestServices_PersistedDefaultWins(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "stripd.sqlite")
	cfg := testConfig(t, dbPath)

	s, err := NewServices(cfg, "")
	require.NoError(t, err)
	require.NoError(t, s.Defaults.Set(state.IDDefaultPattern, config.PatternConfig{
		Kind:   "remote_rainbow",
		Name:   "door-glow",
		Source: "door",
	}))
	s.Close()

	s, cancel := startServices(t, cfg)
	assert.Equal(t, "door-glow", s.Scheduler.Scheduler.Status().Default)
	cancel()
	require.NoError(t, s.Stop())

	// --reset-state drops it again.
	s, err = NewServices(cfg, "")
	require.NoError(t, err)
	require.NoError(t, s.ClearState())
	s.Close()

	s, cancel = startServices(t, cfg)
	assert.Equal(t, "idle", s.Scheduler.Scheduler.Status().Default)
	cancel()
	require.NoError(t, s.Stop())
}

func TestServices_DuplicateSource(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "stripd.sqlite"))
	cfg.Redis.Addr = "127.0.0.1:0"
	cfg.Redis.Colors = map[string]string{"door": "door:color"}

	_, err := NewServices(cfg, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defined twice")
}

func TestSchedulerService_ReloadDefault(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "stripd.sqlite"))
	s, cancel := startServices(t, cfg)
	defer func() {
		cancel()
		require.NoError(t, s.Stop())
	}()

	reloaded := *cfg
	reloaded.DefaultPattern = &config.PatternConfig{Kind: "blink", Name: "beacon", Color: "#ff0000", Interval: config.Duration(time.Second)}
	s.Scheduler.reloadDefault(&reloaded)

	st := s.Scheduler.Scheduler.Status()
	assert.Equal(t, "beacon", st.Default)
	assert.Equal(t, "beacon", st.Current, "running default is replaced")

	// An invalid definition keeps the previous default.
	broken := *cfg
	broken.DefaultPattern = &config.PatternConfig{Kind: "blink"}
	s.Scheduler.reloadDefault(&broken)
	assert.Equal(t, "beacon", s.Scheduler.Scheduler.Status().Default)
}

func TestSchedulerService_ReloadKeepsOverride(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "stripd.sqlite"))
	s, cancel := startServices(t, cfg)
	defer func() {
		cancel()
		require.NoError(t, s.Stop())
	}()

	override, err := s.Sources.Catalog.Build(config.PatternConfig{Kind: "rainbow", Name: "party", Duration: config.Duration(time.Hour)})
	require.NoError(t, err)
	require.NoError(t, s.Scheduler.Scheduler.SetPattern(override))

	reloaded := *cfg
	reloaded.DefaultPattern = &config.PatternConfig{Kind: "blink", Name: "beacon", Color: "#ff0000", Interval: config.Duration(time.Second)}
	s.Scheduler.reloadDefault(&reloaded)

	st := s.Scheduler.Scheduler.Status()
	assert.Equal(t, "beacon", st.Default)
	assert.Equal(t, "party", st.Current)
}

func TestServices_PersistedScriptDefaultIsIgnored(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "stripd.sqlite"))

	s, err := NewServices(cfg, "")
	require.NoError(t, err)
	require.NoError(t, s.Defaults.Set(state.IDDefaultPattern, config.PatternConfig{
		Kind:   "script",
		Name:   "sneaky",
		Script: "function update() end",
	}))
	s.Close()

	s, cancel := startServices(t, cfg)
	assert.Equal(t, "idle", s.Scheduler.Scheduler.Status().Default)
	cancel()
	require.NoError(t, s.Stop())
}
