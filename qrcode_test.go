package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestInviteURL(t *testing.T) {
	assert.Equal(t, "https://pong.example/game?invite=abc", InviteURL("https://pong.example/", "abc"))
	assert.Equal(t, "http://localhost:3000/game?invite=a%26b", InviteURL("http://localhost:3000", "a&b"))
}

func TestInviteQR(t *testing.T) {
	png, err := InviteQR("https://pong.example", "abc")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestHandleInviteQR(t *testing.T) {
	invites := NewInviteManager(nil, zap.NewNop())
	inv, err := invites.Create(alice.ID, bob.ID)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /invites/{id}/qr.png", handleInviteQR(invites, "https://pong.example"))

	get := func(id string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invites/"+id+"/qr.png", nil))
		return rec
	}

	rec := get(inv.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), pngMagic))

	assert.Equal(t, http.StatusNotFound, get("missing").Code)

	_, err = invites.Reject(inv.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, get(inv.ID).Code, "resolved invites have no code")
}
