package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration
type Config struct {
	Server struct {
		Addr          string `yaml:"addr"`
		PublicURL     string `yaml:"public_url"`
		AllowedOrigin string `yaml:"allowed_origin"`
		MaxConnsPerIP int    `yaml:"max_conns_per_ip"`
		MaxTotalConns int    `yaml:"max_total_conns"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Auth struct {
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`

	Game GameSettings `yaml:"game"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // "json" or "console"
	} `yaml:"log"`
}

// GameSettings holds everything a room needs to simulate one match
type GameSettings struct {
	TickRate       int           `yaml:"tick_rate"`
	PointsToWin    int           `yaml:"points_to_win"`
	StartTimeout   time.Duration `yaml:"start_timeout"`
	MatchDuration  time.Duration `yaml:"match_duration"` // 0 = no clock
	Width          float64       `yaml:"width"`
	Height         float64       `yaml:"height"`
	PaddleWidth    float64       `yaml:"paddle_width"`
	PaddleHeight   float64       `yaml:"paddle_height"`
	PaddleMargin   float64       `yaml:"paddle_margin"`
	PaddleSpeed    float64       `yaml:"paddle_speed"` // px/s while a key is held
	BallRadius     float64       `yaml:"ball_radius"`
	BallSpeed      float64       `yaml:"ball_speed"`      // serve speed, px/s
	SpeedIncrement float64       `yaml:"speed_increment"` // added on every paddle hit
	MaxBallSpeed   float64       `yaml:"max_ball_speed"`
	MaxBounceAngle float64       `yaml:"max_bounce_angle"` // radians
	WallWidth      float64       `yaml:"wall_width"`
	WallGap        float64       `yaml:"wall_gap"`
}

// DefaultGameSettings returns the standard field and physics constants
func DefaultGameSettings() GameSettings {
	return GameSettings{
		TickRate:       60,
		PointsToWin:    5,
		StartTimeout:   30 * time.Second,
		Width:          800,
		Height:         600,
		PaddleWidth:    10,
		PaddleHeight:   100,
		PaddleMargin:   10,
		PaddleSpeed:    420,
		BallRadius:     10,
		BallSpeed:      360,
		SpeedIncrement: 30,
		MaxBallSpeed:   900,
		MaxBounceAngle: 60 * degree,
		WallWidth:      10,
		WallGap:        200,
	}
}

// DefaultConfig returns a config usable without any file or environment
func DefaultConfig() *Config {
	cfg := &Config{Game: DefaultGameSettings()}
	cfg.Server.Addr = ":8002"
	cfg.Server.PublicURL = "http://localhost:3000"
	cfg.Server.MaxConnsPerIP = 5
	cfg.Server.MaxTotalConns = 1000
	cfg.Database.Path = "pong.db"
	cfg.Auth.TokenTTL = 7 * 24 * time.Hour
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

// LoadConfig reads the YAML file at path (a missing file is not an error),
// then applies .env and environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ADDR"); v != "" {
		c.Server.Addr = v
	} else if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("PUBLIC_URL"); v != "" {
		c.Server.PublicURL = v
	}
	if v := os.Getenv("ALLOWED_ORIGIN"); v != "" {
		c.Server.AllowedOrigin = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

// Validate rejects settings the simulation cannot run with
func (c *Config) Validate() error {
	g := c.Game
	if g.TickRate <= 0 {
		return fmt.Errorf("game.tick_rate must be positive, got %d", g.TickRate)
	}
	if g.PointsToWin <= 0 {
		return fmt.Errorf("game.points_to_win must be positive, got %d", g.PointsToWin)
	}
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("game field must have a positive size")
	}
	if g.PaddleHeight >= g.Height {
		return fmt.Errorf("game.paddle_height must be smaller than the field height")
	}
	if g.WallGap >= g.Height {
		return fmt.Errorf("game.wall_gap must be smaller than the field height")
	}
	if g.BallSpeed <= 0 || g.MaxBallSpeed < g.BallSpeed {
		return fmt.Errorf("game.max_ball_speed must be at least game.ball_speed")
	}
	return nil
}
