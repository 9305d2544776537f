package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ADDR", "PORT", "PUBLIC_URL", "ALLOWED_ORIGIN", "DB_PATH", "JWT_SECRET", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8002", cfg.Server.Addr)
	assert.Equal(t, "pong.db", cfg.Database.Path)
	assert.Equal(t, 60, cfg.Game.TickRate)
	assert.Equal(t, 5, cfg.Game.PointsToWin)
	assert.Equal(t, 30*time.Second, cfg.Game.StartTimeout)
	assert.Zero(t, cfg.Game.MatchDuration)
	assert.InDelta(t, 60*degree, cfg.Game.MaxBounceAngle, 1e-12)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9100"
  public_url: "https://pong.example"
database:
  path: "/tmp/pong-test.db"
game:
  points_to_win: 11
  match_duration: 3m
log:
  level: debug
`), 0o644))
	t.Setenv("PORT", "9200")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9200", cfg.Server.Addr, "environment wins over the file")
	assert.Equal(t, "https://pong.example", cfg.Server.PublicURL)
	assert.Equal(t, "/tmp/pong-test.db", cfg.Database.Path)
	assert.Equal(t, 11, cfg.Game.PointsToWin)
	assert.Equal(t, 3*time.Minute, cfg.Game.MatchDuration)
	assert.Equal(t, 800.0, cfg.Game.Width, "unset keys keep their defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()

	cases := map[string]string{
		"tick rate":     "game:\n  tick_rate: 0\n",
		"points":        "game:\n  points_to_win: -1\n",
		"paddle height": "game:\n  paddle_height: 900\n",
		"speed":         "game:\n  max_ball_speed: 10\n",
		"yaml":          "game: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := NewLogger("debug", format)
		require.NoError(t, err)
		l.Debug("hello")
	}
	_, err := NewLogger("loud", "json")
	assert.Error(t, err)
	_, err = NewLogger("info", "xml")
	assert.Error(t, err)
}
