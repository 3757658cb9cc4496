package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/forkful/backend/internal/models"
	"github.com/forkful/backend/internal/service"
	"github.com/forkful/backend/internal/testdb"
)

const testJWTSecret = "test-secret-key-of-sufficient-length"

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	auth   *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testdb.New(t)
	images := service.NewImageService(service.NewLocalImageStore(t.TempDir(), "/media"))

	router := gin.New()
	SetupAPI(router, db, nil, images, testJWTSecret)

	return &testServer{
		router: router,
		db:     db,
		auth:   service.NewAuthService(db, testJWTSecret),
	}
}

// request performs an HTTP request against the in-process router. A non-nil
// body is JSON-encoded; a non-empty token goes into the Authorization header.
func (ts *testServer) request(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

// createUser registers a user directly through the service layer and
// returns the user with a valid token.
func (ts *testServer) createUser(t *testing.T, username string) (*models.User, string) {
	t.Helper()

	user, err := ts.auth.Register(service.RegisterInput{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: "Test",
		LastName:  "User",
		Password:  "strong-password",
	})
	require.NoError(t, err)

	token, err := ts.auth.GenerateToken(user.ID)
	require.NoError(t, err)
	return user, token
}

func (ts *testServer) seedTag(t *testing.T, name, color, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Color: color, Slug: slug}
	require.NoError(t, ts.db.Create(tag).Error)
	return tag
}

func (ts *testServer) seedIngredient(t *testing.T, name, unit string) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, ts.db.Create(ingredient).Error)
	return ingredient
}

func testImage() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("test image bytes"))
}

// recipeBody builds a valid create/update payload that tests tweak.
func recipeBody(name string, tagIDs []uuid.UUID, ingredients []RecipeIngredientRequest) map[string]interface{} {
	return map[string]interface{}{
		"name":         name,
		"text":         "Mix everything and cook.",
		"image":        testImage(),
		"cooking_time": 30,
		"tags":         tagIDs,
		"ingredients":  ingredients,
	}
}

// createRecipe posts a valid recipe and returns its decoded response.
func (ts *testServer) createRecipe(t *testing.T, token, name string, tagIDs []uuid.UUID, ingredients []RecipeIngredientRequest) RecipeResponse {
	t.Helper()

	w := ts.request(t, http.MethodPost, "/api/recipes", recipeBody(name, tagIDs, ingredients), token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp RecipeResponse
	decodeJSON(t, w, &resp)
	return resp
}
