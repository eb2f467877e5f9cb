package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/service"
)

// AuthHandlers contains HTTP handlers for the wallet auth endpoints.
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

type identityView struct {
	ID            string            `json:"id"`
	WalletAddress string            `json:"walletAddress"`
	Roles         []core.Role       `json:"roles"`
	IsActive      bool              `json:"isActive"`
	ENSName       string            `json:"ensName,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	LastLogin     time.Time         `json:"lastLogin"`
	CreatedAt     time.Time         `json:"createdAt"`
}

func toIdentityView(id *core.Identity) identityView {
	return identityView{
		ID:            id.ID,
		WalletAddress: id.Address,
		Roles:         id.Roles,
		IsActive:      id.Active,
		ENSName:       id.ENSName,
		Metadata:      id.Metadata,
		LastLogin:     id.LastLogin,
		CreatedAt:     id.CreatedAt,
	}
}

// Connect handles the challenge request.
func (h *AuthHandlers) Connect(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"walletAddress" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, core.ValidationError("walletAddress is required"))
		return
	}

	result, err := h.authService.Connect(c.Request.Context(), req.WalletAddress)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"nonce":         result.Nonce,
		"walletAddress": result.WalletAddress,
		"message":       result.Message,
	})
}

// Verify handles signature verification and opens a session.
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"walletAddress" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, core.ValidationError("walletAddress and signature are required"))
		return
	}

	device := core.DeviceInfo{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	}

	result, err := h.authService.Verify(c.Request.Context(), req.WalletAddress, req.Signature, device)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"user":         toIdentityView(result.Identity),
		"token":        result.Tokens.AccessToken,
		"refreshToken": result.Tokens.RefreshToken,
	})
}

// Refresh handles token rotation.
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, core.ValidationError("refreshToken is required"))
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"user":         toIdentityView(result.Identity),
		"token":        result.Tokens.AccessToken,
		"refreshToken": result.Tokens.RefreshToken,
	})
}

// Logout invalidates the caller's current session.
func (h *AuthHandlers) Logout(c *gin.Context) {
	token, _ := c.Get(ctxAccessToken)
	accessToken, _ := token.(string)

	if err := h.authService.Logout(c.Request.Context(), accessToken); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the authenticated caller's identity claims.
func (h *AuthHandlers) Me(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		respondErr(c, core.AuthenticationError("not authenticated"))
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"walletAddress": claims.Address,
		"roles":         claims.Roles,
	})
}
