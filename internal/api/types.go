package api

import (
	"github.com/google/uuid"

	"github.com/forkful/backend/internal/models"
)

// UserResponse is the public profile shape. IsSubscribed reflects the
// requesting user's relation to this profile, always false for anonymous
// requests.
type UserResponse struct {
	Email        string    `json:"email"`
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsSubscribed bool      `json:"is_subscribed"`
}

// SubscriptionResponse extends the profile with the author's recipes.
type SubscriptionResponse struct {
	UserResponse
	Recipes      []RecipeShortResponse `json:"recipes"`
	RecipesCount int64                 `json:"recipes_count"`
}

// RecipeIngredientResponse flattens an ingredient row with its quantity.
// ID is the ingredient id, not the join row id.
type RecipeIngredientResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	MeasurementUnit string    `json:"measurement_unit"`
	Amount          int       `json:"amount"`
}

// RecipeResponse is the full read shape.
type RecipeResponse struct {
	ID               uuid.UUID                  `json:"id"`
	Tags             []models.Tag               `json:"tags"`
	Author           UserResponse               `json:"author"`
	Ingredients      []RecipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
}

// RecipeShortResponse is the compact shape used for favorites, cart entries
// and subscription listings.
type RecipeShortResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Image       string    `json:"image"`
	CookingTime int       `json:"cooking_time"`
}

func toUserResponse(u *models.User, isSubscribed bool) UserResponse {
	return UserResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: isSubscribed,
	}
}

func toRecipeShort(r *models.Recipe) RecipeShortResponse {
	return RecipeShortResponse{
		ID:          r.ID,
		Name:        r.Name,
		Image:       r.Image,
		CookingTime: r.CookingTime,
	}
}

func toRecipeResponse(r *models.Recipe, authorSubscribed, favorited, inCart bool) RecipeResponse {
	ingredients := make([]RecipeIngredientResponse, 0, len(r.Ingredients))
	for _, ri := range r.Ingredients {
		row := RecipeIngredientResponse{ID: ri.IngredientID, Amount: ri.Amount}
		if ri.Ingredient != nil {
			row.Name = ri.Ingredient.Name
			row.MeasurementUnit = ri.Ingredient.MeasurementUnit
		}
		ingredients = append(ingredients, row)
	}
	tags := r.Tags
	if tags == nil {
		tags = []models.Tag{}
	}
	resp := RecipeResponse{
		ID:               r.ID,
		Tags:             tags,
		Ingredients:      ingredients,
		IsFavorited:      favorited,
		IsInShoppingCart: inCart,
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
	if r.Author != nil {
		resp.Author = toUserResponse(r.Author, authorSubscribed)
	}
	return resp
}
