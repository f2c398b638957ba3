package userdesk

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"userdesk/internal/models"
	"userdesk/internal/users"
	"userdesk/shared/logger"
)

// UserHandler exposes the user operations over HTTP. It translates requests
// into service calls and envelopes into status codes; it holds no rules of
// its own.
type UserHandler struct {
	users *users.Service
	views *ViewCache
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(svc *users.Service, views *ViewCache) *UserHandler {
	return &UserHandler{users: svc, views: views}
}

// Messages for raised store failures, by route.
const (
	msgListFailed    = "Failed to fetch users."
	msgGetFailed     = "Failed to fetch user."
	msgRequestFailed = "Request failed. Please try again."
)

// List handles GET /users.
func (h *UserHandler) List(ctx *gin.Context) {
	p := CurrentPrincipal(ctx)
	// The gate runs before the cache so a cached view is never served to a
	// signed-out caller.
	if _, err := users.RequireSession(p); err != nil {
		h.fail(ctx, err, msgListFailed)
		return
	}

	body, err := h.views.Render(ctx.Request.Context(), users.ViewUsers, func() (any, error) {
		return h.users.ListUsers(ctx.Request.Context(), p)
	})
	if err != nil {
		h.fail(ctx, err, msgListFailed)
		return
	}
	ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// Get handles GET /users/:id.
func (h *UserHandler) Get(ctx *gin.Context) {
	id, ok := h.id(ctx)
	if !ok {
		return
	}
	p := CurrentPrincipal(ctx)
	if _, err := users.RequireSession(p); err != nil {
		h.fail(ctx, err, msgGetFailed)
		return
	}

	body, err := h.views.Render(ctx.Request.Context(), users.UserView(id), func() (any, error) {
		user, err := h.users.GetUser(ctx.Request.Context(), p, id)
		if err == nil && user == nil {
			return nil, users.ErrNotFound
		}
		return user, err
	})
	if err != nil {
		h.fail(ctx, err, msgGetFailed)
		return
	}
	ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// Create handles POST /users.
func (h *UserHandler) Create(ctx *gin.Context) {
	var in models.UserInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		h.malformed(ctx, err)
		return
	}

	env, err := h.users.Create(ctx.Request.Context(), CurrentPrincipal(ctx), in)
	h.respond(ctx, http.StatusCreated, env, err)
}

// Update handles PATCH and PUT /users/:id.
func (h *UserHandler) Update(ctx *gin.Context) {
	id, ok := h.id(ctx)
	if !ok {
		return
	}

	var patch models.UserPatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		h.malformed(ctx, err)
		return
	}

	env, err := h.users.Update(ctx.Request.Context(), CurrentPrincipal(ctx), id, patch)
	h.respond(ctx, http.StatusOK, env, err)
}

// Delete handles DELETE /users/:id.
func (h *UserHandler) Delete(ctx *gin.Context) {
	id, ok := h.id(ctx)
	if !ok {
		return
	}

	env, err := h.users.Delete(ctx.Request.Context(), CurrentPrincipal(ctx), id)
	h.respond(ctx, http.StatusOK, env, err)
}

func (h *UserHandler) id(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, users.Fail("Invalid user id.", users.ErrValidation, nil))
		return 0, false
	}
	return id, true
}

func (h *UserHandler) malformed(ctx *gin.Context, err error) {
	_ = ctx.Error(err)
	ctx.JSON(http.StatusBadRequest, users.Fail("Invalid request body.", users.ErrValidation, nil))
}

// respond writes an envelope, or the raised error when there is no envelope.
func (h *UserHandler) respond(ctx *gin.Context, okStatus int, env users.Envelope, err error) {
	if err != nil {
		h.fail(ctx, err, msgRequestFailed)
		return
	}
	if env.Success {
		ctx.JSON(okStatus, env)
		return
	}
	ctx.JSON(statusFor(env.Err), env)
}

// fail answers a raised error. msg is used for unexpected failures.
func (h *UserHandler) fail(ctx *gin.Context, err error, msg string) {
	_ = ctx.Error(err)
	switch {
	case errors.Is(err, users.ErrUnauthorized):
		ctx.JSON(http.StatusUnauthorized, users.Fail("Unauthorized.", err, nil))
	case errors.Is(err, users.ErrNotFound):
		ctx.JSON(http.StatusNotFound, users.Fail(users.MsgNotFound, err, nil))
	default:
		requestLogger(ctx).Error("User request failed", logger.Err(err))
		ctx.JSON(http.StatusInternalServerError, users.Fail(msg, err, nil))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, users.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, users.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, users.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
