package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxAuthBody         = 4096
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func newUpgrader(allowedOrigin string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // Non-browser clients don't send Origin
			}
			if allowedOrigin != "" && origin == allowedOrigin {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return u.Host == r.Host
		},
	}
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// extractToken reads the identity token from ?token= or a Bearer header
func extractToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if t, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(t)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub, auth *Auth, db *DB, metrics *Metrics, cfg *Config, log *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	upgrader := newUpgrader(cfg.Server.AllowedOrigin)
	log = log.Named("http")

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		token := extractToken(r)
		ident, err := hub.gateway.Authenticate(token)
		if err != nil {
			http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("upgrade error", zap.String("remote_addr", ip), zap.Error(err))
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip, ident, token, r.URL.Query().Get("enc") == "msgpack")
		hub.gateway.Connect(ident, client)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBody)).Decode(&creds); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorMsg{Message: ErrBadPayload.Error()})
			return
		}
		ident, token, err := auth.Register(r.Context(), creds.Username, creds.Password)
		switch {
		case errors.Is(err, ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, ErrorMsg{Message: err.Error()})
		case errors.Is(err, ErrUsernameTaken):
			writeJSON(w, http.StatusConflict, ErrorMsg{Message: err.Error()})
		case err != nil:
			log.Error("register failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ErrorMsg{Message: errInternal.Error()})
		default:
			writeJSON(w, http.StatusCreated, AuthOKMsg{Token: token, UserID: ident.ID, Username: ident.Username})
		}
	})

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAuthBody)).Decode(&creds); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorMsg{Message: ErrBadPayload.Error()})
			return
		}
		ident, token, err := auth.Login(r.Context(), creds.Username, creds.Password, extractIP(r))
		switch {
		case errors.Is(err, ErrTooManyAttempts):
			writeJSON(w, http.StatusTooManyRequests, ErrorMsg{Message: err.Error()})
		case errors.Is(err, ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, ErrorMsg{Message: err.Error()})
		case err != nil:
			log.Error("login failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ErrorMsg{Message: errInternal.Error()})
		default:
			writeJSON(w, http.StatusOK, AuthOKMsg{Token: token, UserID: ident.ID, Username: ident.Username})
		}
	})

	mux.HandleFunc("GET /invites/{id}/qr.png", handleInviteQR(hub.gateway.invites, cfg.Server.PublicURL))

	// Invite status; resolved invites pruned from memory are read back from
	// the database.
	mux.HandleFunc("GET /invites/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if inv, ok := hub.gateway.invites.Get(id); ok {
			writeJSON(w, http.StatusOK, InviteStatusMsg{InviteID: id, Status: inv.Status})
			return
		}
		status, err := db.InviteStatusOf(r.Context(), id)
		switch {
		case errors.Is(err, ErrInviteNotFound):
			writeJSON(w, http.StatusNotFound, ErrorMsg{Message: err.Error()})
		case err != nil:
			log.Error("invite lookup failed", zap.String("invite_id", id), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ErrorMsg{Message: errInternal.Error()})
		default:
			writeJSON(w, http.StatusOK, InviteStatusMsg{InviteID: id, Status: status})
		}
	})

	// Match history of the authenticated user, newest first
	mux.HandleFunc("GET /matches", func(w http.ResponseWriter, r *http.Request) {
		ident, err := auth.ValidateToken(extractToken(r))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, ErrorMsg{Message: ErrUnauthorized.Error()})
			return
		}
		limit := defaultHistoryLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, ErrorMsg{Message: ErrBadPayload.Error()})
				return
			}
			limit = min(n, maxHistoryLimit)
		}
		rows, err := db.GetMatchHistory(r.Context(), ident.ID, limit)
		if err != nil {
			log.Error("match history failed", zap.Int64("user_id", ident.ID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ErrorMsg{Message: errInternal.Error()})
			return
		}
		if rows == nil {
			rows = []MatchRow{}
		}
		writeJSON(w, http.StatusOK, rows)
	})

	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"sessions": hub.gateway.sessions.Count(),
			"rooms":    hub.gateway.rooms.Count(),
			"conns":    hub.TotalConns(),
			"clients":  hub.ClientCount(),
		})
	})

	return mux
}
