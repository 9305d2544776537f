package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDBUsers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	assert.Positive(t, id)

	exists, err := db.UsernameExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = db.UsernameExists(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, exists)

	row, err := db.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, id, row.ID)
	assert.Equal(t, "hash", row.PassHash)

	row, err = db.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, row)

	ident, err := db.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Identity{ID: id, Username: "alice"}, ident)

	_, err = db.FindUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = db.CreateUser(ctx, "alice", "other")
	assert.Error(t, err, "usernames are unique")
}

func TestDBSettings(t *testing.T) {
	db := openTestDB(t)

	assert.Empty(t, db.GetSetting("jwt_secret"))
	require.NoError(t, db.SetSetting("jwt_secret", "abc"))
	assert.Equal(t, "abc", db.GetSetting("jwt_secret"))
	require.NoError(t, db.SetSetting("jwt_secret", "def"))
	assert.Equal(t, "def", db.GetSetting("jwt_secret"))
}

func TestDBInvites(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	a, _ := db.CreateUser(ctx, "alice", "")
	b, _ := db.CreateUser(ctx, "bob", "")

	inv := Invite{
		ID:         GenerateID(),
		SenderID:   a,
		ReceiverID: b,
		Type:       InviteTypeGame,
		Status:     InvitePending,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, db.SaveInvite(ctx, inv))

	status, err := db.InviteStatusOf(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, InvitePending, status)

	require.NoError(t, db.UpdateInviteStatus(ctx, inv.ID, InviteAccepted))
	status, err = db.InviteStatusOf(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, InviteAccepted, status)

	assert.ErrorIs(t, db.UpdateInviteStatus(ctx, "missing", InviteRejected), ErrInviteNotFound)
	_, err = db.InviteStatusOf(ctx, "missing")
	assert.ErrorIs(t, err, ErrInviteNotFound)
}

func TestDBRecordMatches(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	a, _ := db.CreateUser(ctx, "alice", "")
	b, _ := db.CreateUser(ctx, "bob", "")
	c, _ := db.CreateUser(ctx, "carol", "")

	results := []MatchResult{
		{
			RoomID:   "room-1",
			Player1:  PlayerInfo{ID: a, Username: "alice"},
			Player2:  PlayerInfo{ID: b, Username: "bob"},
			Score1:   5,
			Score2:   3,
			WinnerID: a,
			Outcome:  OutcomeWin,
			Duration: 90 * time.Second,
			EndedAt:  time.Now(),
		},
		{
			RoomID:        "room-2",
			Player1:       PlayerInfo{ID: b, Username: "bob"},
			Player2:       PlayerInfo{ID: c, Username: "carol"},
			Score1:        1,
			Score2:        1,
			HasMiddleWall: true,
			Outcome:       OutcomeDraw,
			EndedAt:       time.Now(),
		},
		{
			RoomID:   "room-3",
			Player1:  PlayerInfo{ID: a, Username: "alice"},
			Player2:  PlayerInfo{ID: c, Username: "carol"},
			WinnerID: c,
			Outcome:  OutcomeForfeit,
			EndedAt:  time.Now(),
		},
	}
	require.NoError(t, db.RecordMatches(ctx, results))
	// replays of the same room are ignored
	require.NoError(t, db.RecordMatches(ctx, results[:1]))

	hist, err := db.GetMatchHistory(ctx, b, 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "room-2", hist[0].RoomID, "newest first")
	assert.Zero(t, hist[0].WinnerID)
	assert.True(t, hist[0].HasMiddleWall)
	assert.Equal(t, "draw", hist[0].Outcome)
	assert.Equal(t, "room-1", hist[1].RoomID)
	assert.Equal(t, a, hist[1].WinnerID)
	assert.Equal(t, 90.0, hist[1].Duration)
	assert.False(t, hist[1].Forfeit)

	hist, err = db.GetMatchHistory(ctx, c, 1)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "room-3", hist[0].RoomID)
	assert.True(t, hist[0].Forfeit)
}
