package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/service"
)

// ProfileHandlers contains HTTP handlers for user profiles.
type ProfileHandlers struct {
	profiles *service.ProfileService
}

func NewProfileHandlers(profiles *service.ProfileService) *ProfileHandlers {
	return &ProfileHandlers{profiles: profiles}
}

type profileView struct {
	WalletAddress string            `json:"walletAddress"`
	Username      string            `json:"username"`
	Bio           string            `json:"bio,omitempty"`
	AvatarURL     string            `json:"avatarUrl,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	LedgerTxID    string            `json:"ledgerTxId,omitempty"`
	IsActive      bool              `json:"isActive"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func toProfileView(p *core.Profile) profileView {
	return profileView{
		WalletAddress: p.Address,
		Username:      p.Username,
		Bio:           p.Bio,
		AvatarURL:     p.AvatarURL,
		Metadata:      p.Metadata,
		LedgerTxID:    p.LedgerTxID,
		IsActive:      p.Active,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type profileRequest struct {
	Username  string            `json:"username" binding:"required"`
	Bio       string            `json:"bio"`
	AvatarURL string            `json:"avatarUrl"`
	Metadata  map[string]string `json:"metadata"`
}

func (r profileRequest) input() service.ProfileInput {
	return service.ProfileInput{
		Username:  r.Username,
		Bio:       r.Bio,
		AvatarURL: r.AvatarURL,
		Metadata:  r.Metadata,
	}
}

// Create makes the caller's profile.
func (h *ProfileHandlers) Create(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, core.ValidationError("username is required"))
		return
	}

	profile, err := h.profiles.Create(c.Request.Context(), addressFrom(c), req.input())
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, http.StatusCreated, toProfileView(profile))
}

// Get returns the caller's own profile.
func (h *ProfileHandlers) Get(c *gin.Context) {
	profile, err := h.profiles.Get(c.Request.Context(), addressFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, http.StatusOK, toProfileView(profile))
}

// GetByAddress returns any profile by wallet address.
func (h *ProfileHandlers) GetByAddress(c *gin.Context) {
	profile, err := h.profiles.Get(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, http.StatusOK, toProfileView(profile))
}

// Update replaces the caller's profile fields.
func (h *ProfileHandlers) Update(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, core.ValidationError("username is required"))
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), addressFrom(c), req.input())
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, http.StatusOK, toProfileView(profile))
}

// Deactivate hides the caller's profile. The record survives; public reads
// will show it inactive.
func (h *ProfileHandlers) Deactivate(c *gin.Context) {
	if err := h.profiles.Deactivate(c.Request.Context(), addressFrom(c)); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Profile deactivated"})
}

// LedgerStatus reports whether the caller's profile transaction confirmed.
func (h *ProfileHandlers) LedgerStatus(c *gin.Context) {
	status, err := h.profiles.LedgerStatus(c.Request.Context(), addressFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"status": status})
}
