package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost       = 12
	minPasswordLen   = 4
	minUsernameLen   = 2
	maxUsernameLen   = 16
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrTooManyAttempts    = errors.New("too many login attempts, try again later")
	ErrInvalidInput       = errors.New("invalid input")
)

// Identity is the authenticated user behind a connection
type Identity struct {
	ID       int64
	Username string
}

// Auth issues and verifies identity tokens
type Auth struct {
	db        *DB
	jwtSecret []byte
	ttl       time.Duration
	cost      int
	log       *zap.Logger

	// Rate limiting for login attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates an Auth. An empty secret is loaded from, or generated
// into, the settings table.
func NewAuth(db *DB, secret string, ttl time.Duration, log *zap.Logger) *Auth {
	log = log.Named("auth")
	key := []byte(secret)
	if secret == "" {
		key = loadOrCreateSecret(db, log)
	}
	return &Auth{
		db:        db,
		jwtSecret: key,
		ttl:       ttl,
		cost:      bcryptCost,
		log:       log,
		rateMap:   make(map[string]*rateEntry),
	}
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *DB, log *zap.Logger) []byte {
	if db != nil {
		if h := db.GetSetting("jwt_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			log.Warn("could not persist JWT secret", zap.Error(err))
		}
	}
	return secret
}

// Register creates a new account and returns its identity and a token
func (a *Auth) Register(ctx context.Context, username, password string) (Identity, string, error) {
	username = strings.TrimSpace(username)

	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return Identity{}, "", fmt.Errorf("%w: username must be %d-%d characters", ErrInvalidInput, minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return Identity{}, "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}

	exists, err := a.db.UsernameExists(ctx, username)
	if err != nil {
		return Identity{}, "", fmt.Errorf("check username: %w", err)
	}
	if exists {
		return Identity{}, "", ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return Identity{}, "", fmt.Errorf("hash password: %w", err)
	}

	id, err := a.db.CreateUser(ctx, username, string(hash))
	if err != nil {
		return Identity{}, "", fmt.Errorf("create user: %w", err)
	}

	ident := Identity{ID: id, Username: username}
	token, err := a.GenerateToken(ident)
	if err != nil {
		return Identity{}, "", err
	}
	a.log.Info("user registered", zap.Int64("user_id", id), zap.String("username", username))
	return ident, token, nil
}

// Login checks a password and returns the identity and a fresh token
func (a *Auth) Login(ctx context.Context, username, password, ip string) (Identity, string, error) {
	if !a.checkRate(ip) {
		return Identity{}, "", ErrTooManyAttempts
	}

	user, err := a.db.GetUserByUsername(ctx, username)
	if err != nil {
		return Identity{}, "", fmt.Errorf("load user: %w", err)
	}
	if user == nil || user.PassHash == "" {
		return Identity{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PassHash), []byte(password)); err != nil {
		return Identity{}, "", ErrInvalidCredentials
	}

	ident := Identity{ID: user.ID, Username: user.Username}
	token, err := a.GenerateToken(ident)
	if err != nil {
		return Identity{}, "", err
	}
	return ident, token, nil
}

// ValidateToken verifies a token and returns the identity it carries.
// Any failure is reported as ErrUnauthorized.
func (a *Auth) ValidateToken(tokenStr string) (Identity, error) {
	if tokenStr == "" {
		return Identity{}, ErrUnauthorized
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrUnauthorized
	}
	pid, ok := claims["pid"].(float64)
	if !ok {
		return Identity{}, ErrUnauthorized
	}
	username, ok := claims["usr"].(string)
	if !ok || username == "" {
		return Identity{}, ErrUnauthorized
	}
	return Identity{ID: int64(pid), Username: username}, nil
}

// GenerateToken signs a token for ident
func (a *Auth) GenerateToken(ident Identity) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"pid": ident.ID,
		"usr": ident.Username,
		"exp": now.Add(a.ttl).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}
