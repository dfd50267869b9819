package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/0xfdc/foodgram/internal/service"
)

// ShortLinkHandler serves the public short-link redirect. It only resolves;
// hash generation lives with recipe creation.
type ShortLinkHandler struct {
	shortLinks *service.ShortLinkService
}

func NewShortLinkHandler(shortLinks *service.ShortLinkService) *ShortLinkHandler {
	return &ShortLinkHandler{shortLinks: shortLinks}
}

func (h *ShortLinkHandler) Redirect(c *gin.Context) {
	recipeID, err := h.shortLinks.Resolve(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/recipes/%s", recipeID))
}
