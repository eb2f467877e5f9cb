package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/service"
)

// AdminHandlers contains HTTP handlers for the admin surface.
type AdminHandlers struct {
	admin *service.AdminService
}

func NewAdminHandlers(admin *service.AdminService) *AdminHandlers {
	return &AdminHandlers{admin: admin}
}

// ListUsers pages through all identities.
func (h *AdminHandlers) ListUsers(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	page, err := h.admin.ListUsers(c.Request.Context(), offset, limit)
	if err != nil {
		respondErr(c, err)
		return
	}

	users := make([]identityView, 0, len(page.Users))
	for _, u := range page.Users {
		users = append(users, toIdentityView(u))
	}
	respondOK(c, http.StatusOK, gin.H{
		"users":  users,
		"total":  page.Total,
		"offset": page.Offset,
		"limit":  page.Limit,
	})
}

// UpdateRoles replaces a user's role set.
func (h *AdminHandlers) UpdateRoles(c *gin.Context) {
	var req struct {
		Roles []core.Role `json:"roles" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, core.ValidationError("roles are required"))
		return
	}

	identity, err := h.admin.UpdateRoles(c.Request.Context(), c.Param("address"), req.Roles)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, http.StatusOK, toIdentityView(identity))
}

// Deactivate disables an account and revokes its sessions.
func (h *AdminHandlers) Deactivate(c *gin.Context) {
	if err := h.admin.Deactivate(c.Request.Context(), c.Param("address")); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "User deactivated"})
}

// Reactivate re-enables an account.
func (h *AdminHandlers) Reactivate(c *gin.Context) {
	if err := h.admin.Reactivate(c.Request.Context(), c.Param("address")); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "User reactivated"})
}

// InvalidateSessions force-revokes every session of a user.
func (h *AdminHandlers) InvalidateSessions(c *gin.Context) {
	if err := h.admin.InvalidateUserSessions(c.Request.Context(), c.Param("address")); err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Sessions invalidated"})
}

type statsView struct {
	TotalUsers     int64               `json:"totalUsers"`
	ActiveUsers    int64               `json:"activeUsers"`
	ActiveSessions int64               `json:"activeSessions"`
	TotalProfiles  int64               `json:"totalProfiles"`
	UsersByRole    map[core.Role]int64 `json:"usersByRole"`
	GeneratedAt    time.Time           `json:"generatedAt"`
}

// Stats returns aggregate platform counters.
func (h *AdminHandlers) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, http.StatusOK, statsView{
		TotalUsers:     stats.TotalIdentities,
		ActiveUsers:    stats.ActiveIdentities,
		ActiveSessions: stats.ActiveSessions,
		TotalProfiles:  stats.TotalProfiles,
		UsersByRole:    stats.IdentitiesByRole,
		GeneratedAt:    stats.GeneratedAt,
	})
}
