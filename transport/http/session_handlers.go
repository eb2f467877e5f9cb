package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/service"
)

// SessionHandlers contains HTTP handlers for session management.
type SessionHandlers struct {
	sessions *service.SessionService
}

func NewSessionHandlers(sessions *service.SessionService) *SessionHandlers {
	return &SessionHandlers{sessions: sessions}
}

type sessionView struct {
	ID         string          `json:"id"`
	IsValid    bool            `json:"isValid"`
	ExpiresAt  time.Time       `json:"expiresAt"`
	LastUsed   time.Time       `json:"lastUsed"`
	CreatedAt  time.Time       `json:"createdAt"`
	DeviceInfo core.DeviceInfo `json:"deviceInfo"`
}

// List returns the caller's active sessions. Tokens are never echoed
// back; the view carries only device and timing data.
func (h *SessionHandlers) List(c *gin.Context) {
	address := addressFrom(c)

	sessions, err := h.sessions.ActiveSessions(c.Request.Context(), address)
	if err != nil {
		respondErr(c, err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			ID:         s.ID,
			IsValid:    s.IsValid,
			ExpiresAt:  s.ExpiresAt,
			LastUsed:   s.LastUsed,
			CreatedAt:  s.CreatedAt,
			DeviceInfo: s.DeviceInfo,
		})
	}
	respondOK(c, http.StatusOK, gin.H{"sessions": views})
}

// Revoke invalidates one of the caller's sessions by id.
func (h *SessionHandlers) Revoke(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		respondErr(c, core.ValidationError("session id is required"))
		return
	}

	if err := h.sessions.InvalidateSession(c.Request.Context(), addressFrom(c), sessionID); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Session invalidated"})
}

// RevokeAll invalidates every session of the caller, including the one
// making this request.
func (h *SessionHandlers) RevokeAll(c *gin.Context) {
	if err := h.sessions.InvalidateAll(c.Request.Context(), addressFrom(c)); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "All sessions invalidated"})
}
