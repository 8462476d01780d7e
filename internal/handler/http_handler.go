package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/rexmirak/Chat-app/internal/domain"
	"github.com/rexmirak/Chat-app/internal/middleware"
	"github.com/rexmirak/Chat-app/internal/repository"
	"github.com/rexmirak/Chat-app/internal/token"
	"github.com/rexmirak/Chat-app/pkg/log"
	"github.com/rexmirak/Chat-app/pkg/response"
)

const (
	historyLimit      = 50
	notificationLimit = 50
)

// HTTPHandler serves the REST surface around the relay: account setup for
// handshake tokens, chat membership management, and the history endpoint
// clients re-fetch on reconnect.
type HTTPHandler struct {
	store          repository.Store
	tokens         *token.Manager
	authMiddleware *middleware.Auth
}

// NewHTTPHandler creates the REST handler.
func NewHTTPHandler(store repository.Store, tokens *token.Manager, authMiddleware *middleware.Auth) *HTTPHandler {
	return &HTTPHandler{
		store:          store,
		tokens:         tokens,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all REST routes.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
		}

		authed := api.Group("")
		authed.Use(h.authMiddleware.RequireAuth())
		{
			authed.GET("/users/me", h.GetMe)
			authed.POST("/chats", h.CreateChat)
			authed.GET("/chats", h.ListChats)
			authed.DELETE("/chats/:id", h.DeleteChat)
			authed.GET("/chats/:id/messages", h.ChatMessages)
			authed.GET("/notifications", h.Notifications)
		}
	}
}

// Register handles user registration and returns an access token usable for
// the relay handshake.
func (h *HTTPHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		l.Error().Err(err).Msg("password hashing failed")
		response.InternalError(c, "failed to register user")
		return
	}

	user := &domain.User{
		Email:           req.Email,
		Username:        req.Username,
		DisplayName:     req.DisplayName,
		PasswordHash:    string(hash),
		NotificationsOn: true,
	}
	if err := h.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			response.Conflict(c, "email already exists")
			return
		}
		if errors.Is(err, repository.ErrUsernameExists) {
			response.Conflict(c, "username already exists")
			return
		}
		l.Error().Err(err).Msg("register failed")
		response.InternalError(c, "failed to register user")
		return
	}

	accessToken, expiresAt, err := h.tokens.Sign(user.ID, user.Email, user.Username)
	if err != nil {
		l.Error().Err(err).Msg("token signing failed")
		response.InternalError(c, "failed to register user")
		return
	}

	response.Created(c, &domain.AuthResult{User: user, AccessToken: accessToken, ExpiresAt: expiresAt})
}

// Login verifies credentials and returns an access token.
func (h *HTTPHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Unauthorized(c, "invalid email or password")
			return
		}
		l.Error().Err(err).Msg("login failed")
		response.InternalError(c, "failed to login")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	accessToken, expiresAt, err := h.tokens.Sign(user.ID, user.Email, user.Username)
	if err != nil {
		l.Error().Err(err).Msg("token signing failed")
		response.InternalError(c, "failed to login")
		return
	}

	response.Success(c, &domain.AuthResult{User: user, AccessToken: accessToken, ExpiresAt: expiresAt})
}

// GetMe returns the caller's user record.
func (h *HTTPHandler) GetMe(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.store.GetUserByID(ctx, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		response.InternalError(c, "failed to load user")
		return
	}
	response.Success(c, user)
}

// CreateChat creates a chat; the creator is always a participant.
func (h *HTTPHandler) CreateChat(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	userID := middleware.UserID(c)

	var req domain.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	participantIDs := []string{userID}
	for _, id := range req.ParticipantIDs {
		if id != userID {
			participantIDs = append(participantIDs, id)
		}
	}

	chat := &domain.Chat{
		Name:    req.Name,
		IsGroup: req.IsGroup || len(participantIDs) > 2,
	}
	if err := h.store.CreateChat(ctx, chat, participantIDs); err != nil {
		l.Error().Err(err).Msg("chat creation failed")
		response.InternalError(c, "failed to create chat")
		return
	}

	response.Created(c, chat)
}

// ListChats lists the caller's chats, most recently active first.
func (h *HTTPHandler) ListChats(c *gin.Context) {
	ctx := c.Request.Context()

	chats, err := h.store.ChatsForUser(ctx, middleware.UserID(c))
	if err != nil {
		response.InternalError(c, "failed to list chats")
		return
	}
	response.Success(c, chats)
}

// DeleteChat removes a chat and all dependent records in one transaction.
// Only participants may delete.
func (h *HTTPHandler) DeleteChat(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	chatID := c.Param("id")

	member, err := h.store.IsParticipant(ctx, chatID, middleware.UserID(c))
	if err != nil {
		response.InternalError(c, "failed to delete chat")
		return
	}
	if !member {
		response.Forbidden(c, "not a member of this chat")
		return
	}

	if err := h.store.DeleteChat(ctx, chatID); err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			response.NotFound(c, "chat not found")
			return
		}
		l.Error().Err(err).Str(log.FieldChatID, chatID).Msg("chat deletion failed")
		response.InternalError(c, "failed to delete chat")
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// ChatMessages returns the chat's recent history in chronological order.
// This is the recovery path for events missed while offline.
func (h *HTTPHandler) ChatMessages(c *gin.Context) {
	ctx := c.Request.Context()
	chatID := c.Param("id")

	member, err := h.store.IsParticipant(ctx, chatID, middleware.UserID(c))
	if err != nil {
		response.InternalError(c, "failed to load messages")
		return
	}
	if !member {
		response.Forbidden(c, "not a member of this chat")
		return
	}

	messages, err := h.store.ChatHistory(ctx, chatID, historyLimit)
	if err != nil {
		response.InternalError(c, "failed to load messages")
		return
	}
	response.Success(c, messages)
}

// Notifications lists the caller's notifications, newest first.
func (h *HTTPHandler) Notifications(c *gin.Context) {
	ctx := c.Request.Context()

	notifications, err := h.store.NotificationsForUser(ctx, middleware.UserID(c), notificationLimit)
	if err != nil {
		response.InternalError(c, "failed to load notifications")
		return
	}
	response.Success(c, notifications)
}
