package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRegistrySetGetRemove(t *testing.T) {
	r := NewSessionRegistry()
	conn := newRecordingConn()

	sess := r.Set(Identity{ID: 1, Username: "alice"}, conn)
	require.NotNil(t, sess)
	assert.Equal(t, StatusWaiting, sess.Status())
	assert.Same(t, sess, r.Get(1))
	assert.Equal(t, 1, r.Count())
	assert.Nil(t, r.Get(2))

	removed := r.Remove(1, conn)
	assert.Same(t, sess, removed)
	assert.Nil(t, r.Get(1))
	assert.Zero(t, r.Count())
	assert.Nil(t, r.Remove(1, nil), "removing twice is a no-op")
}

func TestSessionRegistryReconnectKeepsState(t *testing.T) {
	r := NewSessionRegistry()
	oldConn, newConn := newRecordingConn(), newRecordingConn()

	sess := r.Set(Identity{ID: 1, Username: "alice"}, oldConn)
	sess.setStatus(StatusQueued)

	again := r.Set(Identity{ID: 1, Username: "alice"}, newConn)
	assert.Same(t, sess, again)
	assert.Equal(t, StatusQueued, again.Status())
	assert.Same(t, newConn, again.Conn())

	// the old socket closing must not tear down the new one
	assert.Nil(t, r.Remove(1, oldConn))
	assert.NotNil(t, r.Get(1))

	sess.Send(Envelope{T: MsgQueued})
	assert.Equal(t, 1, newConn.count(MsgQueued))
	assert.Zero(t, oldConn.count(MsgQueued))
}

func TestReservePair(t *testing.T) {
	a := &Session{UserID: 1, Username: "alice"}
	b := &Session{UserID: 2, Username: "bob"}
	c := &Session{UserID: 3, Username: "carol"}

	require.NoError(t, reservePair(a, b, "r1"))
	roomID, no := a.Room()
	assert.Equal(t, "r1", roomID)
	assert.Equal(t, 1, no)
	_, no = b.Room()
	assert.Equal(t, 2, no)
	assert.Equal(t, StatusReady, a.Status())
	assert.True(t, b.InMatch())

	// a session can only belong to one room
	assert.ErrorIs(t, reservePair(c, b, "r2"), ErrAlreadyInMatch)
	assert.False(t, c.InMatch(), "a failed reservation leaves both sessions alone")

	assert.ErrorIs(t, reservePair(c, c, "r3"), ErrSelfInvite)

	a.leaveRoom("other")
	assert.True(t, a.InMatch(), "leaving a different room is ignored")
	a.leaveRoom("r1")
	assert.False(t, a.InMatch())
	assert.Equal(t, StatusWaiting, a.Status())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "WAITING", StatusWaiting.String())
	assert.Equal(t, "PLAYING", StatusPlaying.String())
	assert.Equal(t, "Status(42)", Status(42).String())
}
