package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/forkful/backend/internal/middleware"
	"github.com/forkful/backend/internal/models"
	"github.com/forkful/backend/internal/service"
)

type RecipeHandler struct {
	authService   *service.AuthService
	userService   *service.UserService
	recipeService *service.RecipeService
	rateLimiter   *middleware.RateLimiter
}

func NewRecipeHandler(authService *service.AuthService, userService *service.UserService, recipeService *service.RecipeService, rateLimiter *middleware.RateLimiter) *RecipeHandler {
	return &RecipeHandler{
		authService:   authService,
		userService:   userService,
		recipeService: recipeService,
		rateLimiter:   rateLimiter,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := middleware.AuthMiddleware(h.authService)
	write := []gin.HandlerFunc{auth}
	if h.rateLimiter != nil {
		write = append(write, h.rateLimiter.RateLimitMiddleware())
	}

	recipes := router.Group("/recipes")
	{
		recipes.GET("", middleware.OptionalAuthMiddleware(h.authService), h.ListRecipes)
		// download_shopping_cart is dispatched inside GetRecipe; gin's
		// router does not allow literal siblings of a :id segment.
		recipes.GET("/:id", middleware.OptionalAuthMiddleware(h.authService), h.GetRecipe)
		recipes.POST("", append(write, h.CreateRecipe)...)
		recipes.PATCH("/:id", append(write, h.UpdateRecipe)...)
		recipes.DELETE("/:id", auth, h.DeleteRecipe)
		recipes.POST("/:id/favorite", auth, h.AddFavorite)
		recipes.DELETE("/:id/favorite", auth, h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart", auth, h.AddToCart)
		recipes.DELETE("/:id/shopping_cart", auth, h.RemoveFromCart)
	}
}

type RecipeIngredientRequest struct {
	ID     uuid.UUID `json:"id"`
	Amount int       `json:"amount"`
}

type RecipeRequest struct {
	Ingredients []RecipeIngredientRequest `json:"ingredients"`
	Tags        []uuid.UUID               `json:"tags"`
	Image       string                    `json:"image"`
	Name        string                    `json:"name"`
	Text        string                    `json:"text"`
	CookingTime int                       `json:"cooking_time"`
}

func (r *RecipeRequest) toInput() service.RecipeInput {
	ingredients := make([]service.IngredientAmount, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ingredients[i] = service.IngredientAmount{ID: ing.ID, Amount: ing.Amount}
	}
	return service.RecipeInput{
		Name:        r.Name,
		Text:        r.Text,
		Image:       r.Image,
		CookingTime: r.CookingTime,
		TagIDs:      r.Tags,
		Ingredients: ingredients,
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	limit, offset, pageNum := pageParams(c)
	viewerID, _ := currentUserID(c)

	filter := service.RecipeFilter{
		TagSlugs: c.QueryArray("tags"),
		UserID:   viewerID,
		Limit:    limit,
		Offset:   offset,
	}
	if author := c.Query("author"); author != "" {
		if id, err := uuid.Parse(author); err == nil {
			filter.AuthorID = id
		}
	}
	filter.Favorited = isTruthy(c.Query("is_favorited"))
	filter.InCart = isTruthy(c.Query("is_in_shopping_cart"))

	recipes, total, err := h.recipeService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.serializeRecipes(c, viewerID, recipes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPage(c, total, limit, pageNum, results))
}

func isTruthy(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	if c.Param("id") == "download_shopping_cart" {
		h.DownloadShoppingCart(c)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrRecipeNotFound.Error()})
		return
	}

	recipe, err := h.recipeService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	viewerID, _ := currentUserID(c)
	resp, err := h.serializeRecipe(c, viewerID, recipe)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	userID, _ := currentUserID(c)

	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipe, err := h.recipeService.Create(c.Request.Context(), userID, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.serializeRecipe(c, userID, recipe)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	userID, _ := currentUserID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrRecipeNotFound.Error()})
		return
	}

	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipe, err := h.recipeService.Update(c.Request.Context(), id, userID, req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.serializeRecipe(c, userID, recipe)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	userID, _ := currentUserID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrRecipeNotFound.Error()})
		return
	}

	if err := h.recipeService.Delete(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.addRelation(c, h.recipeService.AddFavorite)
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.removeRelation(c, h.recipeService.RemoveFavorite)
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addRelation(c, h.recipeService.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removeRelation(c, h.recipeService.RemoveFromCart)
}

type addRelationFunc func(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error)

type removeRelationFunc func(ctx context.Context, userID, recipeID uuid.UUID) error

func (h *RecipeHandler) addRelation(c *gin.Context, add addRelationFunc) {
	userID, _ := currentUserID(c)
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrRecipeNotFound.Error()})
		return
	}

	recipe, err := add(c.Request.Context(), userID, recipeID)
	if err != nil {
		// Adding an unknown recipe is a validation failure, not a missing
		// resource.
		if errors.Is(err, service.ErrRecipeNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toRecipeShort(recipe))
}

func (h *RecipeHandler) removeRelation(c *gin.Context, remove removeRelationFunc) {
	userID, _ := currentUserID(c)
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrRecipeNotFound.Error()})
		return
	}

	if err := remove(c.Request.Context(), userID, recipeID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	items, err := h.recipeService.ShoppingList(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%s\t%s\t%d", item.Name, item.MeasurementUnit, item.Amount)
	}

	c.Header("Content-Disposition", `attachment; filename="list.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(strings.Join(lines, "\n")))
}

func (h *RecipeHandler) serializeRecipe(c *gin.Context, viewerID uuid.UUID, recipe *models.Recipe) (RecipeResponse, error) {
	results, err := h.serializeRecipes(c, viewerID, []models.Recipe{*recipe})
	if err != nil {
		return RecipeResponse{}, err
	}
	return results[0], nil
}

// serializeRecipes resolves the viewer-dependent flags in bulk before
// rendering the full read shape.
func (h *RecipeHandler) serializeRecipes(c *gin.Context, viewerID uuid.UUID, recipes []models.Recipe) ([]RecipeResponse, error) {
	ids := make([]uuid.UUID, len(recipes))
	authorIDs := make([]uuid.UUID, 0, len(recipes))
	seen := make(map[uuid.UUID]bool, len(recipes))
	for i := range recipes {
		ids[i] = recipes[i].ID
		if !seen[recipes[i].AuthorID] {
			seen[recipes[i].AuthorID] = true
			authorIDs = append(authorIDs, recipes[i].AuthorID)
		}
	}

	favorited, inCart, err := h.recipeService.FlagSets(c.Request.Context(), viewerID, ids)
	if err != nil {
		return nil, err
	}
	subscribed, err := h.userService.SubscribedSet(c.Request.Context(), viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	results := make([]RecipeResponse, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		results[i] = toRecipeResponse(r, subscribed[r.AuthorID], favorited[r.ID], inCart[r.ID])
	}
	return results, nil
}
