package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/0xfdc/foodgram/internal/middleware"
	"github.com/0xfdc/foodgram/internal/service"
	"github.com/0xfdc/foodgram/internal/types"
)

type RecipeHandler struct {
	recipes      *service.RecipeService
	relations    *service.RelationService
	shoppingList *service.ShoppingListService
	shortLinks   *service.ShortLinkService
}

func NewRecipeHandler(
	recipes *service.RecipeService,
	relations *service.RelationService,
	shoppingList *service.ShoppingListService,
	shortLinks *service.ShortLinkService,
) *RecipeHandler {
	return &RecipeHandler{
		recipes:      recipes,
		relations:    relations,
		shoppingList: shoppingList,
		shortLinks:   shortLinks,
	}
}

// RegisterRoutes wires the recipe endpoints. Reads are open (with optional
// viewer resolution done by the router); writes require authentication and
// may additionally be rate limited.
func (h *RecipeHandler) RegisterRoutes(public, authed *gin.RouterGroup, writeLimit gin.HandlerFunc) {
	public.GET("/recipes", h.List)
	public.GET("/recipes/:id", h.Get)
	public.GET("/recipes/:id/get-link", h.GetLink)

	authed.GET("/recipes/download_shopping_cart", h.DownloadShoppingCart)
	authed.POST("/recipes", writeLimit, h.Create)
	authed.PATCH("/recipes/:id", writeLimit, h.Update)
	authed.DELETE("/recipes/:id", h.Delete)
	authed.POST("/recipes/:id/favorite", h.Favorite)
	authed.DELETE("/recipes/:id/favorite", h.Unfavorite)
	authed.POST("/recipes/:id/shopping_cart", h.AddToCart)
	authed.DELETE("/recipes/:id/shopping_cart", h.RemoveFromCart)
}

func recipeID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return uuid.Nil, false
	}
	return id, true
}

func parseBoolFilter(c *gin.Context, name string) *bool {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	value := raw == "1" || raw == "true"
	return &value
}

func (h *RecipeHandler) List(c *gin.Context) {
	filter := service.RecipeFilter{
		TagSlugs:         c.QueryArray("tags"),
		IsFavorited:      parseBoolFilter(c, "is_favorited"),
		IsInShoppingCart: parseBoolFilter(c, "is_in_shopping_cart"),
	}
	if author := c.Query("author"); author != "" {
		id, err := uuid.Parse(author)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author id"})
			return
		}
		filter.AuthorID = &id
	}
	filter.Page, _ = strconv.Atoi(c.Query("page"))
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))

	views, total, err := h.recipes.List(c.Request.Context(), filter, middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageView{Count: total, Results: views})
}

func (h *RecipeHandler) Get(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	view, err := h.recipes.Get(c.Request.Context(), id, middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *RecipeHandler) Create(c *gin.Context) {
	var req types.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	viewer := middleware.ViewerID(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	view, err := h.recipes.Create(c.Request.Context(), *viewer, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *RecipeHandler) Update(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	var req types.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	viewer := middleware.ViewerID(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	view, err := h.recipes.Update(c.Request.Context(), id, *viewer, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	viewer := middleware.ViewerID(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), id, *viewer); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) GetLink(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	link, err := h.shortLinks.Link(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"short-link": link})
}

func (h *RecipeHandler) Favorite(c *gin.Context) {
	h.addRelation(c, h.relations.AddFavorite)
}

func (h *RecipeHandler) Unfavorite(c *gin.Context) {
	h.removeRelation(c, h.relations.RemoveFavorite)
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addRelation(c, h.relations.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removeRelation(c, h.relations.RemoveFromCart)
}

func (h *RecipeHandler) addRelation(c *gin.Context, add func(context.Context, uuid.UUID, uuid.UUID) (*types.RecipeMinified, error)) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	viewer := middleware.ViewerID(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	view, err := add(c.Request.Context(), *viewer, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *RecipeHandler) removeRelation(c *gin.Context, remove func(context.Context, uuid.UUID, uuid.UUID) error) {
	id, ok := recipeID(c)
	if !ok {
		return
	}
	viewer := middleware.ViewerID(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	if err := remove(c.Request.Context(), *viewer, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	viewer := middleware.ViewerID(c)
	if viewer == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	doc, err := h.shoppingList.Generate(c.Request.Context(), *viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="shopping_list.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", doc)
}
