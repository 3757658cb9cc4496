package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkful/backend/internal/models"
)

// RecipeService owns recipe CRUD, the favorite/cart relations and the
// shopping-list aggregation.
type RecipeService struct {
	db     *gorm.DB
	images *ImageService
}

func NewRecipeService(db *gorm.DB, images *ImageService) *RecipeService {
	return &RecipeService{db: db, images: images}
}

// RecipeFilter is the parsed query surface of the recipe list endpoint.
// UserID is the requester; uuid.Nil means anonymous, which turns the
// favorited/in-cart predicates into no-ops.
type RecipeFilter struct {
	TagSlugs  []string
	AuthorID  uuid.UUID
	Favorited bool
	InCart    bool
	UserID    uuid.UUID
	Limit     int
	Offset    int
}

// IngredientAmount pairs an ingredient id with its quantity.
type IngredientAmount struct {
	ID     uuid.UUID
	Amount int
}

// RecipeInput is the write shape for create and update. Image carries the
// base64 payload from the request.
type RecipeInput struct {
	Name        string
	Text        string
	Image       string
	CookingTime int
	TagIDs      []uuid.UUID
	Ingredients []IngredientAmount
}

func (in *RecipeInput) validate() error {
	if len(in.Ingredients) == 0 {
		return &ValidationError{Field: "ingredients", Message: "ingredients list must not be empty"}
	}
	seen := make(map[uuid.UUID]bool, len(in.Ingredients))
	for _, ing := range in.Ingredients {
		if seen[ing.ID] {
			return &ValidationError{Field: "ingredients", Message: "ingredients must not repeat"}
		}
		seen[ing.ID] = true
		if ing.Amount < models.MinValue || ing.Amount > models.MaxValue {
			return &ValidationError{
				Field:   "ingredients",
				Message: fmt.Sprintf("amount must be between %d and %d", models.MinValue, models.MaxValue),
			}
		}
	}
	if len(in.TagIDs) == 0 {
		return &ValidationError{Field: "tags", Message: "tags list must not be empty"}
	}
	seenTags := make(map[uuid.UUID]bool, len(in.TagIDs))
	for _, id := range in.TagIDs {
		if seenTags[id] {
			return &ValidationError{Field: "tags", Message: "tags must not repeat"}
		}
		seenTags[id] = true
	}
	if in.Name == "" {
		return &ValidationError{Field: "name", Message: "name must not be empty"}
	}
	if in.Image == "" {
		return &ValidationError{Field: "image", Message: "image must not be empty"}
	}
	if in.CookingTime < models.MinValue || in.CookingTime > models.MaxValue {
		return &ValidationError{
			Field:   "cooking_time",
			Message: fmt.Sprintf("cooking_time must be between %d and %d", models.MinValue, models.MaxValue),
		}
	}
	return nil
}

// List applies the filter and returns one page of recipes, newest first,
// with the total match count.
func (s *RecipeService) List(ctx context.Context, f RecipeFilter) ([]models.Recipe, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Recipe{})

	if len(f.TagSlugs) > 0 {
		query = query.Where("recipes.id IN (?)", s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", f.TagSlugs))
	}
	if f.AuthorID != uuid.Nil {
		query = query.Where("recipes.author_id = ?", f.AuthorID)
	}
	// Authenticated requesters only; the filters are silently skipped for
	// anonymous requests.
	if f.UserID != uuid.Nil {
		if f.Favorited {
			query = query.Where("recipes.id IN (?)", s.db.Model(&models.Favorite{}).
				Select("recipe_id").Where("user_id = ?", f.UserID))
		}
		if f.InCart {
			query = query.Where("recipes.id IN (?)", s.db.Model(&models.ShoppingCart{}).
				Select("recipe_id").Where("user_id = ?", f.UserID))
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recipes []models.Recipe
	if err := query.
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Order("recipes.created_at DESC").
		Limit(f.Limit).Offset(f.Offset).
		Find(&recipes).Error; err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

func (s *RecipeService) Get(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		First(&recipe, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// Create validates the input, stores the image and writes the recipe row
// plus its association sets in one transaction.
func (s *RecipeService) Create(ctx context.Context, authorID uuid.UUID, in RecipeInput) (*models.Recipe, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	imageURL, err := s.images.SaveBase64(ctx, in.Image)
	if err != nil {
		return nil, &ValidationError{Field: "image", Message: err.Error()}
	}

	recipe := models.Recipe{
		Name:        in.Name,
		Text:        in.Text,
		Image:       imageURL,
		CookingTime: in.CookingTime,
		AuthorID:    authorID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := s.resolveTags(tx, in.TagIDs)
		if err != nil {
			return err
		}
		if err := s.checkIngredientIDs(tx, in.Ingredients); err != nil {
			return err
		}

		if err := tx.Create(&recipe).Error; err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Tags").Append(tags); err != nil {
			return err
		}
		return s.createIngredients(tx, recipe.ID, in.Ingredients)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, recipe.ID)
}

// Update rewrites the recipe row and replaces (not merges) the tag and
// ingredient sets. Only the author may update.
func (s *RecipeService) Update(ctx context.Context, id, userID uuid.UUID, in RecipeInput) (*models.Recipe, error) {
	recipe, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != userID {
		return nil, ErrNotAuthor
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	imageURL, err := s.images.SaveBase64(ctx, in.Image)
	if err != nil {
		return nil, &ValidationError{Field: "image", Message: err.Error()}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := s.resolveTags(tx, in.TagIDs)
		if err != nil {
			return err
		}
		if err := s.checkIngredientIDs(tx, in.Ingredients); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"name":         in.Name,
			"text":         in.Text,
			"image":        imageURL,
			"cooking_time": in.CookingTime,
		}
		if err := tx.Model(&models.Recipe{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Model(recipe).Association("Tags").Replace(tags); err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		return s.createIngredients(tx, id, in.Ingredients)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes the recipe; only the author may delete. Join rows cascade.
func (s *RecipeService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	recipe, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if recipe.AuthorID != userID {
		return ErrNotAuthor
	}
	return s.db.WithContext(ctx).Select("Tags", "Ingredients").Delete(recipe).Error
}

func (s *RecipeService) resolveTags(tx *gorm.DB, ids []uuid.UUID) ([]models.Tag, error) {
	var tags []models.Tag
	if err := tx.Find(&tags, "id IN ?", ids).Error; err != nil {
		return nil, err
	}
	if len(tags) != len(ids) {
		return nil, &ValidationError{Field: "tags", Message: "unknown tag id"}
	}
	return tags, nil
}

func (s *RecipeService) checkIngredientIDs(tx *gorm.DB, ingredients []IngredientAmount) error {
	ids := make([]uuid.UUID, len(ingredients))
	for i, ing := range ingredients {
		ids[i] = ing.ID
	}
	var count int64
	if err := tx.Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return &ValidationError{Field: "ingredients", Message: "unknown ingredient id"}
	}
	return nil
}

func (s *RecipeService) createIngredients(tx *gorm.DB, recipeID uuid.UUID, ingredients []IngredientAmount) error {
	rows := make([]models.RecipeIngredient, len(ingredients))
	for i, ing := range ingredients {
		rows[i] = models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: ing.ID,
			Amount:       ing.Amount,
		}
	}
	return tx.Create(&rows).Error
}

// AuthorRecipes returns the author's recipes, newest first, optionally
// truncated to limit (limit <= 0 returns all).
func (s *RecipeService) AuthorRecipes(ctx context.Context, authorID uuid.UUID, limit int) ([]models.Recipe, error) {
	query := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

func (s *RecipeService) RecipeCount(ctx context.Context, authorID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("author_id = ?", authorID).
		Count(&count).Error
	return count, err
}
