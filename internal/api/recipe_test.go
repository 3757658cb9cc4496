package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkful/backend/internal/models"
)

func TestCreateRecipe(t *testing.T) {
	ts := newTestServer(t)
	user, token := ts.createUser(t, "author")
	tag := ts.seedTag(t, "Dinner", "#8775D2", "dinner")
	flour := ts.seedIngredient(t, "flour", "g")
	salt := ts.seedIngredient(t, "salt", "g")

	resp := ts.createRecipe(t, token, "Bread", []uuid.UUID{tag.ID}, []RecipeIngredientRequest{
		{ID: flour.ID, Amount: 300},
		{ID: salt.ID, Amount: 5},
	})

	assert.Equal(t, "Bread", resp.Name)
	assert.Equal(t, 30, resp.CookingTime)
	assert.Equal(t, user.ID, resp.Author.ID)
	assert.False(t, resp.IsFavorited)
	assert.False(t, resp.IsInShoppingCart)
	require.Len(t, resp.Tags, 1)
	assert.Equal(t, "dinner", resp.Tags[0].Slug)
	require.Len(t, resp.Ingredients, 2)
	assert.NotEmpty(t, resp.Image)

	// anonymous create is rejected
	w := ts.request(t, http.MethodPost, "/api/recipes", recipeBody("X", []uuid.UUID{tag.ID}, nil), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRecipeValidation(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createUser(t, "author")
	tag := ts.seedTag(t, "Dinner", "#8775D2", "dinner")
	flour := ts.seedIngredient(t, "flour", "g")

	cases := []struct {
		name  string
		tweak func(body map[string]interface{})
		field string
	}{
		{
			name:  "empty ingredients",
			tweak: func(b map[string]interface{}) { b["ingredients"] = []RecipeIngredientRequest{} },
			field: "ingredients",
		},
		{
			name: "duplicate ingredients",
			tweak: func(b map[string]interface{}) {
				b["ingredients"] = []RecipeIngredientRequest{
					{ID: flour.ID, Amount: 100},
					{ID: flour.ID, Amount: 200},
				}
			},
			field: "ingredients",
		},
		{
			name: "amount below minimum",
			tweak: func(b map[string]interface{}) {
				b["ingredients"] = []RecipeIngredientRequest{{ID: flour.ID, Amount: 0}}
			},
			field: "ingredients",
		},
		{
			name: "amount above maximum",
			tweak: func(b map[string]interface{}) {
				b["ingredients"] = []RecipeIngredientRequest{{ID: flour.ID, Amount: 32001}}
			},
			field: "ingredients",
		},
		{
			name:  "empty tags",
			tweak: func(b map[string]interface{}) { b["tags"] = []uuid.UUID{} },
			field: "tags",
		},
		{
			name:  "duplicate tags",
			tweak: func(b map[string]interface{}) { b["tags"] = []uuid.UUID{tag.ID, tag.ID} },
			field: "tags",
		},
		{
			name:  "unknown tag",
			tweak: func(b map[string]interface{}) { b["tags"] = []uuid.UUID{uuid.New()} },
			field: "tags",
		},
		{
			name: "unknown ingredient",
			tweak: func(b map[string]interface{}) {
				b["ingredients"] = []RecipeIngredientRequest{{ID: uuid.New(), Amount: 10}}
			},
			field: "ingredients",
		},
		{
			name:  "cooking time below minimum",
			tweak: func(b map[string]interface{}) { b["cooking_time"] = 0 },
			field: "cooking_time",
		},
		{
			name:  "cooking time above maximum",
			tweak: func(b map[string]interface{}) { b["cooking_time"] = 32001 },
			field: "cooking_time",
		},
		{
			name:  "empty name",
			tweak: func(b map[string]interface{}) { b["name"] = "" },
			field: "name",
		},
		{
			name:  "missing image",
			tweak: func(b map[string]interface{}) { b["image"] = "" },
			field: "image",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := recipeBody("Bread", []uuid.UUID{tag.ID}, []RecipeIngredientRequest{{ID: flour.ID, Amount: 100}})
			tc.tweak(body)

			w := ts.request(t, http.MethodPost, "/api/recipes", body, token)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tc.field)
		})
	}

	// nothing persisted by the rejected requests
	var count int64
	require.NoError(t, ts.db.Model(&models.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetRecipe(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createUser(t, "author")
	tag := ts.seedTag(t, "Dinner", "#8775D2", "dinner")
	flour := ts.seedIngredient(t, "flour", "g")

	created := ts.createRecipe(t, token, "Bread", []uuid.UUID{tag.ID},
		[]RecipeIngredientRequest{{ID: flour.ID, Amount: 300}})

	w := ts.request(t, http.MethodGet, fmt.Sprintf("/api/recipes/%s", created.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp RecipeResponse
	decodeJSON(t, w, &resp)
	assert.Equal(t, created.ID, resp.ID)
	require.Len(t, resp.Ingredients, 1)
	assert.Equal(t, "flour", resp.Ingredients[0].Name)
	assert.Equal(t, "g", resp.Ingredients[0].MeasurementUnit)
	assert.Equal(t, 300, resp.Ingredients[0].Amount)

	w = ts.request(t, http.MethodGet, fmt.Sprintf("/api/recipes/%s", uuid.New()), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateRecipe(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createUser(t, "author")
	_, otherToken := ts.createUser(t, "other")
	dinner := ts.seedTag(t, "Dinner", "#8775D2", "dinner")
	lunch := ts.seedTag(t, "Lunch", "#49B64E", "lunch")
	flour := ts.seedIngredient(t, "flour", "g")
	salt := ts.seedIngredient(t, "salt", "g")

	created := ts.createRecipe(t, token, "Bread", []uuid.UUID{dinner.ID},
		[]RecipeIngredientRequest{{ID: flour.ID, Amount: 300}})
	path := fmt.Sprintf("/api/recipes/%s", created.ID)

	body := recipeBody("Salted Bread", []uuid.UUID{lunch.ID},
		[]RecipeIngredientRequest{{ID: salt.ID, Amount: 5}})

	// only the author may update
	w := ts.request(t, http.MethodPatch, path, body, otherToken)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = ts.request(t, http.MethodPatch, path, body, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp RecipeResponse
	decodeJSON(t, w, &resp)
	assert.Equal(t, "Salted Bread", resp.Name)
	require.Len(t, resp.Tags, 1)
	assert.Equal(t, "lunch", resp.Tags[0].Slug)
	require.Len(t, resp.Ingredients, 1)
	assert.Equal(t, "salt", resp.Ingredients[0].Name)

	// the old join rows are gone
	var count int64
	require.NoError(t, ts.db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", created.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeleteRecipe(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createUser(t, "author")
	_, otherToken := ts.createUser(t, "other")
	tag := ts.seedTag(t, "Dinner", "#8775D2", "dinner")
	flour := ts.seedIngredient(t, "flour", "g")

	created := ts.createRecipe(t, token, "Bread", []uuid.UUID{tag.ID},
		[]RecipeIngredientRequest{{ID: flour.ID, Amount: 300}})
	path := fmt.Sprintf("/api/recipes/%s", created.ID)

	w := ts.request(t, http.MethodDelete, path, nil, otherToken)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = ts.request(t, http.MethodDelete, path, nil, token)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = ts.request(t, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var count int64
	require.NoError(t, ts.db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", created.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListRecipesFilters(t *testing.T) {
	ts := newTestServer(t)
	author, token := ts.createUser(t, "author")
	_, viewerToken := ts.createUser(t, "viewer")
	dinner := ts.seedTag(t, "Dinner", "#8775D2", "dinner")
	lunch := ts.seedTag(t, "Lunch", "#49B64E", "lunch")
	flour := ts.seedIngredient(t, "flour", "g")

	bread := ts.createRecipe(t, token, "Bread", []uuid.UUID{dinner.ID},
		[]RecipeIngredientRequest{{ID: flour.ID, Amount: 300}})
	soup := ts.createRecipe(t, token, "Soup", []uuid.UUID{lunch.ID},
		[]RecipeIngredientRequest{{ID: flour.ID, Amount: 50}})

	var page struct {
		Count   int64            `json:"count"`
		Results []RecipeResponse `json:"results"`
	}

	// newest first
	w := ts.request(t, http.MethodGet, "/api/recipes", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &page)
	require.Equal(t, int64(2), page.Count)
	assert.Equal(t, soup.ID, page.Results[0].ID)
	assert.Equal(t, bread.ID, page.Results[1].ID)

	// tag filter, multiple slugs are OR-ed
	w = ts.request(t, http.MethodGet, "/api/recipes?tags=dinner", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &page)
	require.Equal(t, int64(1), page.Count)
	assert.Equal(t, bread.ID, page.Results[0].ID)

	w = ts.request(t, http.MethodGet, "/api/recipes?tags=dinner&tags=lunch", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &page)
	assert.Equal(t, int64(2), page.Count)

	// author filter
	w = ts.request(t, http.MethodGet, fmt.Sprintf("/api/recipes?author=%s", author.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &page)
	assert.Equal(t, int64(2), page.Count)

	// favorited filter needs authentication to bite
	w = ts.request(t, http.MethodPost, fmt.Sprintf("/api/recipes/%s/favorite", bread.ID), nil, viewerToken)
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.request(t, http.MethodGet, "/api/recipes?is_favorited=1", nil, viewerToken)
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &page)
	require.Equal(t, int64(1), page.Count)
	assert.Equal(t, bread.ID, page.Results[0].ID)
	assert.True(t, page.Results[0].IsFavorited)

	// anonymous requests ignore the flag filters
	w = ts.request(t, http.MethodGet, "/api/recipes?is_favorited=1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &page)
	assert.Equal(t, int64(2), page.Count)
}

func TestListRecipesPagination(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createUser(t, "author")
	tag := ts.seedTag(t, "Dinner", "#8775D2", "dinner")
	flour := ts.seedIngredient(t, "flour", "g")

	for i := 0; i < 7; i++ {
		ts.createRecipe(t, token, fmt.Sprintf("Recipe %d", i), []uuid.UUID{tag.ID},
			[]RecipeIngredientRequest{{ID: flour.ID, Amount: 10}})
	}

	var page struct {
		Count   int64            `json:"count"`
		Next    *string          `json:"next"`
		Results []RecipeResponse `json:"results"`
	}

	// default page size is 6
	w := ts.request(t, http.MethodGet, "/api/recipes", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &page)
	assert.Equal(t, int64(7), page.Count)
	assert.Len(t, page.Results, 6)
	assert.NotNil(t, page.Next)

	w = ts.request(t, http.MethodGet, "/api/recipes?limit=2&page=4", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &page)
	assert.Len(t, page.Results, 1)
	assert.Nil(t, page.Next)
}

func TestRecipeBadBody(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createUser(t, "author")

	w := ts.request(t, http.MethodPost, "/api/recipes", gin.H{"name": 42}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
