package main

import (
	"net/http"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// InviteURL is the link a client opens to accept an invite
func InviteURL(publicURL, inviteID string) string {
	return strings.TrimRight(publicURL, "/") + "/game?invite=" + url.QueryEscape(inviteID)
}

// InviteQR renders the invite link as a PNG QR code
func InviteQR(publicURL, inviteID string) ([]byte, error) {
	return qrcode.Encode(InviteURL(publicURL, inviteID), qrcode.Medium, qrSize)
}

// handleInviteQR serves GET /invites/{id}/qr.png for pending invites
func handleInviteQR(invites *InviteManager, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		inv, ok := invites.Get(id)
		if !ok || inv.Status != InvitePending {
			http.NotFound(w, r)
			return
		}
		png, err := InviteQR(publicURL, inv.ID)
		if err != nil {
			http.Error(w, "failed to render code", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(png)
	}
}
