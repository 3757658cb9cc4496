package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkful/backend/internal/models"
)

func TestListIngredientsPrefixFilter(t *testing.T) {
	ts := newTestServer(t)
	ts.seedIngredient(t, "Milk", "ml")
	ts.seedIngredient(t, "milk powder", "g")
	ts.seedIngredient(t, "Almond Milk", "ml")

	w := ts.request(t, http.MethodGet, "/api/ingredients?name=Mi", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var ingredients []models.Ingredient
	decodeJSON(t, w, &ingredients)
	require.Len(t, ingredients, 2)

	// prefix match is case-insensitive and excludes mid-word hits
	names := []string{ingredients[0].Name, ingredients[1].Name}
	assert.Contains(t, names, "Milk")
	assert.Contains(t, names, "milk powder")
}

func TestGetIngredient(t *testing.T) {
	ts := newTestServer(t)
	flour := ts.seedIngredient(t, "flour", "g")

	w := ts.request(t, http.MethodGet, fmt.Sprintf("/api/ingredients/%s", flour.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var ingredient models.Ingredient
	decodeJSON(t, w, &ingredient)
	assert.Equal(t, "flour", ingredient.Name)
	assert.Equal(t, "g", ingredient.MeasurementUnit)

	w = ts.request(t, http.MethodGet, fmt.Sprintf("/api/ingredients/%s", uuid.New()), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListTags(t *testing.T) {
	ts := newTestServer(t)
	ts.seedTag(t, "Dinner", "#8775D2", "dinner")
	ts.seedTag(t, "Breakfast", "#E26C2D", "breakfast")

	w := ts.request(t, http.MethodGet, "/api/tags", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var tags []models.Tag
	decodeJSON(t, w, &tags)
	require.Len(t, tags, 2)
	assert.Equal(t, "Breakfast", tags[0].Name)
}

func TestGetTag(t *testing.T) {
	ts := newTestServer(t)
	tag := ts.seedTag(t, "Dinner", "#8775D2", "dinner")

	w := ts.request(t, http.MethodGet, fmt.Sprintf("/api/tags/%s", tag.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Tag
	decodeJSON(t, w, &got)
	assert.Equal(t, "dinner", got.Slug)

	w = ts.request(t, http.MethodGet, fmt.Sprintf("/api/tags/%s", uuid.New()), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
