package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkful/backend/internal/models"
)

// AddFavorite links the recipe to the user's favorites and returns the
// recipe for the short response shape.
func (s *RecipeService) AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error) {
	return s.addRelation(ctx, userID, recipeID, &models.Favorite{UserID: userID, RecipeID: recipeID}, ErrAlreadyFavorited)
}

func (s *RecipeService) RemoveFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	return s.removeRelation(ctx, userID, recipeID, &models.Favorite{}, ErrNotFavorited)
}

func (s *RecipeService) AddToCart(ctx context.Context, userID, recipeID uuid.UUID) (*models.Recipe, error) {
	return s.addRelation(ctx, userID, recipeID, &models.ShoppingCart{UserID: userID, RecipeID: recipeID}, ErrAlreadyInCart)
}

func (s *RecipeService) RemoveFromCart(ctx context.Context, userID, recipeID uuid.UUID) error {
	return s.removeRelation(ctx, userID, recipeID, &models.ShoppingCart{}, ErrNotInCart)
}

func (s *RecipeService) addRelation(ctx context.Context, userID, recipeID uuid.UUID, row interface{}, dupErr error) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		// The unique (user, recipe) constraint is the final backstop for
		// concurrent adds.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, dupErr
		}
		return nil, err
	}
	return &recipe, nil
}

func (s *RecipeService) removeRelation(ctx context.Context, userID, recipeID uuid.UUID, model interface{}, missingErr error) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", recipeID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrRecipeNotFound
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return missingErr
	}
	return nil
}

// FlagSets returns which of recipeIDs the user has favorited and carted,
// one query per relation instead of one per recipe.
func (s *RecipeService) FlagSets(ctx context.Context, userID uuid.UUID, recipeIDs []uuid.UUID) (map[uuid.UUID]bool, map[uuid.UUID]bool, error) {
	favorited := make(map[uuid.UUID]bool)
	inCart := make(map[uuid.UUID]bool)
	if userID == uuid.Nil || len(recipeIDs) == 0 {
		return favorited, inCart, nil
	}

	var ids []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error; err != nil {
		return nil, nil, err
	}
	for _, id := range ids {
		favorited[id] = true
	}

	var cartIDs []uuid.UUID
	if err := s.db.WithContext(ctx).Model(&models.ShoppingCart{}).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &cartIDs).Error; err != nil {
		return nil, nil, err
	}
	for _, id := range cartIDs {
		inCart[id] = true
	}

	return favorited, inCart, nil
}

// ShoppingListItem is one aggregated line of the exported shopping list.
type ShoppingListItem struct {
	Name            string
	MeasurementUnit string
	Amount          int
}

// ShoppingList aggregates the ingredient quantities of every recipe in the
// user's cart, grouped by (name, unit), summed and ordered by name.
func (s *RecipeService) ShoppingList(ctx context.Context, userID uuid.UUID) ([]ShoppingListItem, error) {
	var items []ShoppingListItem
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients").
		Select("ingredients.name AS name, ingredients.measurement_unit AS measurement_unit, SUM(recipe_ingredients.amount) AS amount").
		Joins("JOIN ingredients ON ingredients.id = recipe_ingredients.ingredient_id").
		Joins("JOIN shopping_carts ON shopping_carts.recipe_id = recipe_ingredients.recipe_id").
		Where("shopping_carts.user_id = ?", userID).
		Group("ingredients.name, ingredients.measurement_unit").
		Order("ingredients.name").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
