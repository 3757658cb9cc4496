package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/forkful/backend/internal/middleware"
	"github.com/forkful/backend/internal/models"
	"github.com/forkful/backend/internal/service"
)

type UserHandler struct {
	authService   *service.AuthService
	userService   *service.UserService
	recipeService *service.RecipeService
}

func NewUserHandler(authService *service.AuthService, userService *service.UserService, recipeService *service.RecipeService) *UserHandler {
	return &UserHandler{
		authService:   authService,
		userService:   userService,
		recipeService: recipeService,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.POST("", h.Register)
		users.GET("", middleware.OptionalAuthMiddleware(h.authService), h.ListUsers)
		// "me" and "subscriptions" are dispatched inside GetUser; gin's
		// router does not allow literal siblings of a :id segment.
		users.GET("/:id", middleware.OptionalAuthMiddleware(h.authService), h.GetUser)
		users.POST("/:id", middleware.AuthMiddleware(h.authService), h.PostUserAction)
		users.POST("/:id/subscribe", middleware.AuthMiddleware(h.authService), h.Subscribe)
		users.DELETE("/:id/subscribe", middleware.AuthMiddleware(h.authService), h.Unsubscribe)
	}

	auth := router.Group("/auth/token")
	{
		auth.POST("/login", h.Login)
		auth.POST("/logout", middleware.AuthMiddleware(h.authService), h.Logout)
	}
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Username  string `json:"username" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Password  string `json:"password" binding:"required,min=8"`
}

func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.Register(service.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	limit, offset, pageNum := pageParams(c)

	users, total, err := h.userService.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	viewerID, _ := currentUserID(c)
	ids := make([]uuid.UUID, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	subscribed, err := h.userService.SubscribedSet(c.Request.Context(), viewerID, ids)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]UserResponse, len(users))
	for i := range users {
		results[i] = toUserResponse(&users[i], subscribed[users[i].ID])
	}

	c.JSON(http.StatusOK, newPage(c, total, limit, pageNum, results))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	switch c.Param("id") {
	case "me":
		h.me(c)
	case "subscriptions":
		h.Subscriptions(c)
	default:
		h.profile(c)
	}
}

func (h *UserHandler) me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	user, err := h.userService.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user, false))
}

func (h *UserHandler) profile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrUserNotFound.Error()})
		return
	}

	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	viewerID, _ := currentUserID(c)
	subscribed, err := h.userService.IsSubscribed(c.Request.Context(), viewerID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user, subscribed))
}

func (h *UserHandler) PostUserAction(c *gin.Context) {
	if c.Param("id") != "set_password" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	h.SetPassword(c)
}

type SetPasswordRequest struct {
	NewPassword     string `json:"new_password" binding:"required,min=8"`
	CurrentPassword string `json:"current_password" binding:"required"`
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authService.SetPassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"auth_token": token})
}

// Logout exists for client compatibility. Tokens are stateless JWTs, so
// there is nothing to revoke server side.
func (h *UserHandler) Logout(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	userID, _ := currentUserID(c)
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrUserNotFound.Error()})
		return
	}

	if err := h.userService.Subscribe(c.Request.Context(), userID, authorID); err != nil {
		respondError(c, err)
		return
	}

	author, err := h.userService.Get(c.Request.Context(), authorID)
	if err != nil {
		respondError(c, err)
		return
	}

	entry, err := h.subscriptionEntry(c, author)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	userID, _ := currentUserID(c)
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrUserNotFound.Error()})
		return
	}

	if err := h.userService.Unsubscribe(c.Request.Context(), userID, authorID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	limit, offset, pageNum := pageParams(c)
	authors, total, err := h.userService.Subscriptions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]SubscriptionResponse, len(authors))
	for i := range authors {
		entry, err := h.subscriptionEntry(c, &authors[i])
		if err != nil {
			respondError(c, err)
			return
		}
		results[i] = entry
	}

	c.JSON(http.StatusOK, newPage(c, total, limit, pageNum, results))
}

// subscriptionEntry builds the author profile with its recipes, truncated
// by the recipes_limit query parameter when present.
func (h *UserHandler) subscriptionEntry(c *gin.Context, author *models.User) (SubscriptionResponse, error) {
	recipesLimit := 0
	if v, err := strconv.Atoi(c.Query("recipes_limit")); err == nil && v > 0 {
		recipesLimit = v
	}

	recipes, err := h.recipeService.AuthorRecipes(c.Request.Context(), author.ID, recipesLimit)
	if err != nil {
		return SubscriptionResponse{}, err
	}
	count, err := h.recipeService.RecipeCount(c.Request.Context(), author.ID)
	if err != nil {
		return SubscriptionResponse{}, err
	}

	short := make([]RecipeShortResponse, len(recipes))
	for i := range recipes {
		short[i] = toRecipeShort(&recipes[i])
	}

	return SubscriptionResponse{
		UserResponse: toUserResponse(author, true),
		Recipes:      short,
		RecipesCount: count,
	}, nil
}
