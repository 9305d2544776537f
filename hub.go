package main

import (
	"sync"

	"go.uber.org/zap"
)

const (
	defaultMaxConnsPerIP = 5
	defaultMaxTotalConns = 1000
)

// Hub tracks connected clients and enforces connection limits
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	gateway    *Gateway
	log        *zap.Logger

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu        sync.Mutex
	ipConns       map[string]int
	totalConns    int
	maxConnsPerIP int
	maxTotalConns int
}

// NewHub creates a Hub in front of gw. Non-positive limits fall back to
// the defaults.
func NewHub(gw *Gateway, maxPerIP, maxTotal int, log *zap.Logger) *Hub {
	if maxPerIP <= 0 {
		maxPerIP = defaultMaxConnsPerIP
	}
	if maxTotal <= 0 {
		maxTotal = defaultMaxTotalConns
	}
	return &Hub{
		clients:       make(map[*Client]bool),
		register:      make(chan *Client, 64),
		unregister:    make(chan *Client, 64),
		done:          make(chan struct{}),
		gateway:       gw,
		log:           log.Named("hub"),
		ipConns:       make(map[string]int),
		maxConnsPerIP: maxPerIP,
		maxTotalConns: maxTotal,
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= h.maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events until Stop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
			}
			h.mu.Unlock()
			client.close()
			h.gateway.Disconnect(client.identity.ID, client)

		case <-h.done:
			return
		}
	}
}

// Stop ends Run and every room
func (h *Hub) Stop() {
	close(h.done)
	h.gateway.Shutdown()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
