package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rollcall/internal/apperr"
	"rollcall/internal/auth"
	"rollcall/internal/user"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and issues a session token, both in the body and
// as an httponly cookie.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	token, _, err := auth.Issue(u.ID, u.Role, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.SessionTTL)
	if err != nil {
		h.fail(c, apperr.Internal("Failed to issue session token.", err))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, int(h.cfg.SessionTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": u})
}

// Logout clears the session cookie.
func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

// Me returns the account behind the current session.
func (h *Handler) Me(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		h.fail(c, apperr.Unauthorized("Unauthorized"))
		return
	}
	id, err := claims.UserID()
	if err != nil {
		h.fail(c, apperr.Unauthorized("Unauthorized"))
		return
	}

	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// ListUsers returns all accounts.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// CreateUser adds an account. The role is fixed from this point on.
func (h *Handler) CreateUser(c *gin.Context) {
	var req user.CreateInput
	if !h.bindJSON(c, &req) {
		return
	}

	u, err := h.users.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": u})
}

// UpdateUser applies a partial profile patch.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	var req user.UpdateInput
	if !h.bindJSON(c, &req) {
		return
	}

	u, err := h.users.Update(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// DeleteUser removes an account.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted."})
}

func (h *Handler) userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.fail(c, apperr.Invalid("invalid user id"))
		return 0, false
	}
	return id, true
}
