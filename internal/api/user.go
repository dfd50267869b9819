package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/0xfdc/foodgram/internal/middleware"
	"github.com/0xfdc/foodgram/internal/service"
	"github.com/0xfdc/foodgram/internal/types"
)

type UserHandler struct {
	users     *service.UserService
	relations *service.RelationService
}

func NewUserHandler(users *service.UserService, relations *service.RelationService) *UserHandler {
	return &UserHandler{users: users, relations: relations}
}

// RegisterRoutes wires the user endpoints. The /users/me and subscription
// routes must be registered before /users/:id so gin resolves them first.
func (h *UserHandler) RegisterRoutes(public, authed *gin.RouterGroup) {
	authed.GET("/users/me", h.Me)
	authed.PUT("/users/me/avatar", h.PutAvatar)
	authed.DELETE("/users/me/avatar", h.DeleteAvatar)
	authed.GET("/users/subscriptions", h.Subscriptions)
	authed.POST("/users/:id/subscribe", h.Subscribe)
	authed.DELETE("/users/:id/subscribe", h.Unsubscribe)

	public.GET("/users", h.List)
	public.GET("/users/:id", h.Get)
}

func userID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *UserHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	views, total, err := h.users.List(c.Request.Context(), page, limit, middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageView{Count: total, Results: views})
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	view, err := h.users.Get(c.Request.Context(), id, middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) Me(c *gin.Context) {
	viewer := middleware.ViewerID(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	view, err := h.users.Get(c.Request.Context(), *viewer, viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) PutAvatar(c *gin.Context) {
	viewer := middleware.ViewerID(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req types.AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	url, err := h.users.SetAvatar(c.Request.Context(), *viewer, req.Avatar)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar": url})
}

func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	viewer := middleware.ViewerID(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if err := h.users.ClearAvatar(c.Request.Context(), *viewer); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func recipesLimit(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.Query("recipes_limit"))
	return limit
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	viewer := middleware.ViewerID(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	views, err := h.relations.ListSubscriptions(c.Request.Context(), *viewer, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageView{Count: int64(len(views)), Results: views})
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	viewer := middleware.ViewerID(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	view, err := h.relations.Subscribe(c.Request.Context(), *viewer, id, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	viewer := middleware.ViewerID(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if err := h.relations.Unsubscribe(c.Request.Context(), *viewer, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
