// Package handlers wires the HTTP endpoints: the session endpoints and
// the generated CRUD resources.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"keel/internal/infrastructure/auth"
	"keel/internal/infrastructure/cache"
	"keel/internal/infrastructure/persistence/models"
	"keel/internal/interfaces/http/middleware"
	"keel/internal/shared/errors"
	"keel/internal/shared/logger"
	"keel/internal/shared/response"
	"keel/internal/shared/status"
)

// AuthHandler serves login, refresh, logout and the session data
// endpoints.
type AuthHandler struct {
	db     *gorm.DB
	jwt    *auth.JWTService
	hasher *auth.BcryptPasswordHasher
	cache  *cache.PermissionCache
	authn  *auth.Authenticator
	log    logger.Interface
}

func NewAuthHandler(db *gorm.DB, jwtSvc *auth.JWTService, hasher *auth.BcryptPasswordHasher, permCache *cache.PermissionCache, authn *auth.Authenticator, log logger.Interface) *AuthHandler {
	return &AuthHandler{
		db:     db,
		jwt:    jwtSvc,
		hasher: hasher,
		cache:  permCache,
		authn:  authn,
		log:    log.Named("auth"),
	}
}

// RegisterRoutes mounts the session endpoints under /auth.
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	grp := rg.Group("/auth")
	grp.POST("/login", h.Login)
	grp.POST("/refresh", middleware.RequireAuth(h.authn), h.Refresh)
	grp.POST("/logout", middleware.OptionalAuth(h.authn), h.Logout)
	grp.GET("/load_data", middleware.OptionalAuth(h.authn), h.LoadData)
	grp.GET("/user/info", middleware.RequireAuth(h.authn), h.UserInfo)
}

// LoginForm is the OAuth2-style password grant body.
type LoginForm struct {
	Username string `form:"username" binding:"required,username"`
	Password string `form:"password" binding:"required"`
	Scope    string `form:"scope"`
	Remember bool   `form:"remember"`
}

func (f LoginForm) scopes() []string {
	if f.Scope == "" {
		return nil
	}
	return strings.Fields(strings.ReplaceAll(f.Scope, ",", " "))
}

// LoadData is the bootstrap payload the frontend fetches on startup.
type LoadData struct {
	Auth        bool                `json:"auth"`
	Superuser   bool                `json:"superuser"`
	Permissions map[string][]string `json:"permissions"`
}

// loadUserPermissions collects the user's active permissions across
// roles, grouped by method.
func (h *AuthHandler) loadUserPermissions(userID uint64) (map[string][]cache.Entry, error) {
	var perms []models.Permission
	err := h.db.Model(&models.Permission{}).
		Distinct("permission.id", "permission.method", "permission.url", "permission.code").
		Joins("JOIN role_to_permission ON role_to_permission.permission_id = permission.id").
		Joins("JOIN user_to_role ON user_to_role.role_id = role_to_permission.role_id").
		Where("user_to_role.user_id = ?", userID).
		Where("permission.status = ?", status.Active).
		Find(&perms).Error
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]cache.Entry)
	for _, p := range perms {
		method := string(p.Method)
		grouped[method] = append(grouped[method], cache.Entry{ID: p.ID, URL: p.URL, Code: p.Code})
	}
	return grouped, nil
}

// issueSession signs the token pair and fills the permission cache.
func (h *AuthHandler) issueSession(ctx context.Context, user *models.User, scopes []string, remembered bool) (*auth.TokenPair, error) {
	if user.Status != status.Active {
		return nil, errors.New(errors.UserNotActive)
	}

	info := &auth.UserInfo{
		ID:        user.ID,
		Name:      user.Name,
		Username:  user.Username,
		Email:     user.Email,
		Avatar:    user.Avatar,
		Superuser: user.Superuser,
	}
	pair, err := h.jwt.IssuePair(info, scopes, remembered)
	if err != nil {
		h.log.Errorw("failed to issue token pair", "username", user.Username, "error", err)
		return nil, errors.New(errors.LoginFailed)
	}

	perms, err := h.loadUserPermissions(user.ID)
	if err != nil {
		h.log.Errorw("failed to load permissions", "user_id", user.ID, "error", err)
		return nil, errors.New(errors.LoginFailed)
	}

	ttl := h.jwt.AccessLifetime()
	if remembered {
		ttl = h.jwt.RememberedLifetime()
	}
	if err := h.cache.SetPermission(ctx, user.ID, perms, user.Superuser, ttl); err != nil {
		return nil, err
	}
	return pair, nil
}

// Login godoc
// @Summary Sign in and obtain a token pair
// @Description OAuth2 password-style login. Returns access and refresh tokens.
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "username"
// @Param password formData string true "password"
// @Param scope formData string false "requested scopes, space separated"
// @Param remember formData bool false "stretch the refresh token lifetime"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, errors.Newf(errors.DataValidationFailed, "malformed login form"))
		return
	}

	var users []models.User
	if err := h.db.WithContext(c.Request.Context()).Where("username = ?", form.Username).Limit(1).Find(&users).Error; err != nil {
		h.log.Errorw("user lookup failed", "username", form.Username, "error", err)
		response.Error(c, errors.New(errors.LoginFailed))
		return
	}
	if len(users) == 0 {
		response.Error(c, errors.New(errors.IdentifyInvalid))
		return
	}
	user := &users[0]

	if err := h.hasher.Verify(form.Password, user.Password); err != nil {
		response.Error(c, errors.New(errors.IdentifyInvalid))
		return
	}

	pair, err := h.issueSession(c.Request.Context(), user, form.scopes(), form.Remember)
	if err != nil {
		response.Error(c, err)
		return
	}

	now := time.Now()
	err = h.db.WithContext(c.Request.Context()).Model(user).
		Updates(map[string]any{"last_login_ip": c.ClientIP(), "last_login_time": now}).Error
	if err != nil {
		// The session is already issued; record the miss and move on.
		h.log.Warnw("failed to record login", "user_id", user.ID, "error", err)
	}

	response.OK(c, pair)
}

// Refresh godoc
// @Summary Rotate the token pair
// @Description Requires a refresh token. Issues a fresh access/refresh pair.
// @Tags auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	payload := middleware.PayloadFromContext(c)
	if payload.IsAnonymous() || !payload.IsRefresh() {
		response.Error(c, errors.New(errors.IdentifyInvalid))
		return
	}

	var users []models.User
	if err := h.db.WithContext(c.Request.Context()).Where("username = ?", payload.Data.Username).Limit(1).Find(&users).Error; err != nil {
		h.log.Errorw("user lookup failed", "username", payload.Data.Username, "error", err)
		response.Error(c, errors.New(errors.LoginFailed))
		return
	}
	if len(users) == 0 {
		response.Error(c, errors.New(errors.IdentifyInvalid))
		return
	}

	// Refresh keeps the stretched lifetime so sessions do not shrink.
	pair, err := h.issueSession(c.Request.Context(), &users[0], payload.Scopes, true)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, pair)
}

// Logout godoc
// @Summary Invalidate the current session
// @Description Records a blacklist cutoff so tokens issued before now are rejected.
// @Tags auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	payload := middleware.PayloadFromContext(c)
	if payload.IsAnonymous() {
		response.OK(c, gin.H{})
		return
	}

	ttl := h.jwt.AccessLifetime()
	if payload.ExpiresAt != nil {
		if remaining := time.Until(payload.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}
	ctx := c.Request.Context()
	if err := h.cache.SetBlacklist(ctx, payload.Data.ID, payload, ttl); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.cache.DeletePermission(ctx, payload.Data.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{})
}

// LoadData godoc
// @Summary Load session bootstrap data
// @Description Works both anonymous and authenticated; returns the superuser flag and the permission codes per method.
// @Tags auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/load_data [get]
func (h *AuthHandler) LoadData(c *gin.Context) {
	payload := middleware.PayloadFromContext(c)
	if payload.IsAnonymous() {
		// A refresh token in the fallback header still identifies the
		// session for bootstrap purposes.
		if token := c.GetHeader("Authorization-Refresh"); token != "" {
			payload = h.authn.OptionalAuthenticate(c.Request.Context(), token, nil, c.Request.Method, c.Request.URL.Path)
		}
	}

	data := LoadData{Permissions: map[string][]string{}}
	if payload.IsAnonymous() {
		response.OK(c, data)
		return
	}
	data.Auth = true

	superuser, err := h.cache.IsSuperuser(c.Request.Context(), payload.Data.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	// A superuser with no stored grants has no cache entry; the token
	// claim still identifies the session as privileged.
	data.Superuser = superuser || payload.Data.Superuser

	methods := models.PermissionMethods()
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}
	perms, err := h.cache.GetPermissions(c.Request.Context(), payload.Data.ID, names...)
	if err != nil {
		response.Error(c, err)
		return
	}
	for method, entries := range perms {
		codes := make([]string, 0, len(entries))
		for _, entry := range entries {
			codes = append(codes, entry.Code)
		}
		data.Permissions[method] = codes
	}
	response.OK(c, data)
}

// UserInfo godoc
// @Summary Current user's identity
// @Tags auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/user/info [get]
func (h *AuthHandler) UserInfo(c *gin.Context) {
	payload := middleware.PayloadFromContext(c)
	response.OK(c, payload.Data)
}
