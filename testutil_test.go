package main

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

// recordingConn captures everything sent to a session
type recordingConn struct {
	mu     sync.Mutex
	msgs   []Envelope
	states []GameUpdate
}

func newRecordingConn() *recordingConn {
	return &recordingConn{}
}

func (c *recordingConn) SendJSON(msg interface{}) {
	env, ok := msg.(Envelope)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, env)
}

func (c *recordingConn) SendState(u GameUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = append(c.states, u)
}

// all returns every message of type t, in order
func (c *recordingConn) all(t string) []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Envelope
	for _, m := range c.msgs {
		if m.T == t {
			out = append(out, m)
		}
	}
	return out
}

func (c *recordingConn) count(t string) int {
	return len(c.all(t))
}

// last returns the most recent message of type t
func (c *recordingConn) last(t string) (Envelope, bool) {
	msgs := c.all(t)
	if len(msgs) == 0 {
		return Envelope{}, false
	}
	return msgs[len(msgs)-1], true
}

func (c *recordingConn) lastError(t *testing.T) string {
	t.Helper()
	env, ok := c.last(MsgError)
	if !ok {
		t.Fatalf("no error message recorded")
	}
	return env.Data.(ErrorMsg).Message
}

func (c *recordingConn) lastState() (GameUpdate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.states) == 0 {
		return GameUpdate{}, false
	}
	return c.states[len(c.states)-1], true
}

func (c *recordingConn) stateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.states)
}

// fakeAuth accepts a fixed set of tokens
type fakeAuth struct {
	tokens map[string]Identity
}

func (f *fakeAuth) ValidateToken(token string) (Identity, error) {
	if id, ok := f.tokens[token]; ok {
		return id, nil
	}
	return Identity{}, ErrUnauthorized
}

// fakeUsers resolves usernames from a map
type fakeUsers map[string]Identity

func (f fakeUsers) FindUserByUsername(_ context.Context, username string) (Identity, error) {
	if id, ok := f[username]; ok {
		return id, nil
	}
	return Identity{}, ErrUserNotFound
}

// fakeResults collects submitted results
type fakeResults struct {
	mu  sync.Mutex
	got []MatchResult
}

func (f *fakeResults) Submit(r MatchResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, r)
}

func (f *fakeResults) results() []MatchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MatchResult(nil), f.got...)
}

func mustRaw(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}
