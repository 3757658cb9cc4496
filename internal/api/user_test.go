package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodPost, "/api/users", gin.H{
		"email":      "vasya@example.com",
		"username":   "vasya.pupkin",
		"first_name": "Vasya",
		"last_name":  "Pupkin",
		"password":   "strong-password",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp UserResponse
	decodeJSON(t, w, &resp)
	assert.Equal(t, "vasya@example.com", resp.Email)
	assert.Equal(t, "vasya.pupkin", resp.Username)
	assert.NotEmpty(t, resp.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "vasya")

	w := ts.request(t, http.MethodPost, "/api/users", gin.H{
		"email":      "vasya@example.com",
		"username":   "othername",
		"first_name": "Other",
		"last_name":  "User",
		"password":   "strong-password",
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "email")
}

func TestRegisterInvalidUsername(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodPost, "/api/users", gin.H{
		"email":      "bad@example.com",
		"username":   "bad__name",
		"first_name": "Bad",
		"last_name":  "Name",
		"password":   "strong-password",
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "username")
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "vasya")

	w := ts.request(t, http.MethodPost, "/api/auth/token/login", gin.H{
		"email":    "vasya@example.com",
		"password": "strong-password",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]string
	decodeJSON(t, w, &resp)
	assert.NotEmpty(t, resp["auth_token"])
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "vasya")

	w := ts.request(t, http.MethodPost, "/api/auth/token/login", gin.H{
		"email":    "vasya@example.com",
		"password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMe(t *testing.T) {
	ts := newTestServer(t)
	user, token := ts.createUser(t, "vasya")

	w := ts.request(t, http.MethodGet, "/api/users/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp UserResponse
	decodeJSON(t, w, &resp)
	assert.Equal(t, user.ID, resp.ID)

	w = ts.request(t, http.MethodGet, "/api/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserProfileSubscriptionFlag(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createUser(t, "follower")
	author, _ := ts.createUser(t, "author")

	path := fmt.Sprintf("/api/users/%s", author.ID)

	w := ts.request(t, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp UserResponse
	decodeJSON(t, w, &resp)
	assert.False(t, resp.IsSubscribed)

	w = ts.request(t, http.MethodPost, path+"/subscribe", nil, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.request(t, http.MethodGet, path, nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &resp)
	assert.True(t, resp.IsSubscribed)
}

func TestUserListPagination(t *testing.T) {
	ts := newTestServer(t)
	for i := 0; i < 8; i++ {
		ts.createUser(t, fmt.Sprintf("user%d", i))
	}

	w := ts.request(t, http.MethodGet, "/api/users?limit=3", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Count    int64          `json:"count"`
		Next     *string        `json:"next"`
		Previous *string        `json:"previous"`
		Results  []UserResponse `json:"results"`
	}
	decodeJSON(t, w, &page)
	assert.Equal(t, int64(8), page.Count)
	assert.Len(t, page.Results, 3)
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page=2")
	assert.Nil(t, page.Previous)

	w = ts.request(t, http.MethodGet, "/api/users?limit=3&page=3", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &page)
	assert.Len(t, page.Results, 2)
	assert.Nil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Contains(t, *page.Previous, "page=2")
}

func TestSetPassword(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createUser(t, "vasya")

	w := ts.request(t, http.MethodPost, "/api/users/set_password", gin.H{
		"new_password":     "brand-new-password",
		"current_password": "wrong",
	}, token)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "current_password")

	w = ts.request(t, http.MethodPost, "/api/users/set_password", gin.H{
		"new_password":     "brand-new-password",
		"current_password": "strong-password",
	}, token)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = ts.request(t, http.MethodPost, "/api/auth/token/login", gin.H{
		"email":    "vasya@example.com",
		"password": "brand-new-password",
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubscribeErrors(t *testing.T) {
	ts := newTestServer(t)
	user, token := ts.createUser(t, "follower")
	author, _ := ts.createUser(t, "author")

	// self-subscription
	w := ts.request(t, http.MethodPost, fmt.Sprintf("/api/users/%s/subscribe", user.ID), nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	path := fmt.Sprintf("/api/users/%s/subscribe", author.ID)
	w = ts.request(t, http.MethodPost, path, nil, token)
	require.Equal(t, http.StatusCreated, w.Code)

	// duplicate
	w = ts.request(t, http.MethodPost, path, nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.request(t, http.MethodDelete, path, nil, token)
	require.Equal(t, http.StatusNoContent, w.Code)

	// not subscribed anymore
	w = ts.request(t, http.MethodDelete, path, nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown author
	w = ts.request(t, http.MethodPost, "/api/users/00000000-0000-0000-0000-000000000001/subscribe", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscriptions(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.createUser(t, "follower")
	author, authorToken := ts.createUser(t, "author")

	tag := ts.seedTag(t, "Dinner", "#8775D2", "dinner")
	flour := ts.seedIngredient(t, "flour", "g")
	for i := 0; i < 3; i++ {
		ts.createRecipe(t, authorToken, fmt.Sprintf("Recipe %d", i),
			[]uuid.UUID{tag.ID},
			[]RecipeIngredientRequest{{ID: flour.ID, Amount: 100}})
	}

	w := ts.request(t, http.MethodPost, fmt.Sprintf("/api/users/%s/subscribe", author.ID), nil, token)
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.request(t, http.MethodGet, "/api/users/subscriptions?recipes_limit=2", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page struct {
		Count   int64                  `json:"count"`
		Results []SubscriptionResponse `json:"results"`
	}
	decodeJSON(t, w, &page)
	require.Equal(t, int64(1), page.Count)
	require.Len(t, page.Results, 1)

	entry := page.Results[0]
	assert.Equal(t, author.ID, entry.ID)
	assert.True(t, entry.IsSubscribed)
	assert.Equal(t, int64(3), entry.RecipesCount)
	assert.Len(t, entry.Recipes, 2)

	// anonymous access is rejected
	w = ts.request(t, http.MethodGet, "/api/users/subscriptions", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
