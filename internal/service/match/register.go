package match

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/vivahvows/internal/auth"
	"github.com/oggyb/vivahvows/internal/db"
	"github.com/oggyb/vivahvows/internal/httperr"
)

// RegisterRoutes attaches the matching endpoints to the authenticated
// API group.
func (s *Service) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/suggestions", s.handleSuggestions)
	rg.POST("/like/:user_id", s.actionHandler(db.StatusLiked))
	rg.POST("/reject/:user_id", s.actionHandler(db.StatusRejected))
	rg.POST("/block/:user_id", s.actionHandler(db.StatusBlocked))
	rg.GET("/mutual", s.handleMutual)
}

// handleSuggestions handles GET /suggestions.
func (s *Service) handleSuggestions(c *gin.Context) {
	userID := auth.CurrentUserID(c)

	cards, err := s.Suggestions(c.Request.Context(), userID, c.Request.URL.Query())
	if err != nil {
		httperr.Render(c, err)
		return
	}

	c.JSON(http.StatusOK, cards)
}

// actionHandler builds the handler for one of the like/reject/block
// endpoints; the verb is fixed by the route.
func (s *Service) actionHandler(status db.ActionStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		initiatorID := auth.CurrentUserID(c)

		targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
		if err != nil {
			httperr.Render(c, httperr.Validation("user_id must be a valid id"))
			return
		}

		result, err := s.Act(c.Request.Context(), initiatorID, targetID, status)
		if err != nil {
			httperr.Render(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// handleMutual handles GET /mutual.
func (s *Service) handleMutual(c *gin.Context) {
	userID := auth.CurrentUserID(c)

	var token *string
	if t := c.Query("page_token"); t != "" {
		token = &t
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			httperr.Render(c, httperr.Validation("limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	items, nextToken, err := s.MutualMatches(c.Request.Context(), userID, token, limit)
	if err != nil {
		httperr.Render(c, err)
		return
	}

	resp := gin.H{"results": items}
	if nextToken != nil {
		resp["next_page_token"] = *nextToken
	}
	c.JSON(http.StatusOK, resp)
}
