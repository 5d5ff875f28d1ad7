package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/davrius/taskwell/internal/db"
	"github.com/davrius/taskwell/internal/realtime"
	"github.com/davrius/taskwell/internal/services"
	"github.com/gofiber/fiber/v2"
)

func newTestApp(t *testing.T) (*fiber.App, *db.Repositories) {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "taskwell-api-test.db")
	database, err := db.OpenSQLite(databasePath)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	repositories := db.NewRepositories(database)

	hub := realtime.NewHub()
	pushService := services.NewPushService(repositories.Subscriptions, "mailto:test@example.com", "", "")
	handler := NewHandler(repositories, hub, pushService, []byte("api-test-secret"))

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	RegisterRoutes(app, handler)
	return app, repositories
}

func doJSON(t *testing.T, app *fiber.App, method string, path string, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response, err := app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return response
}

func decodeJSON(t *testing.T, response *http.Response, target any) {
	t.Helper()
	defer response.Body.Close()
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func signupTestUser(t *testing.T, app *fiber.App, email string, username string) string {
	t.Helper()
	response := doJSON(t, app, http.MethodPost, "/auth/signup", "", map[string]string{
		"email":    email,
		"username": username,
		"password": "a-long-enough-password",
	})
	if response.StatusCode != http.StatusCreated {
		t.Fatalf("signup %s: expected 201, got %d", email, response.StatusCode)
	}
	var result struct {
		Token string `json:"token"`
	}
	decodeJSON(t, response, &result)
	if result.Token == "" {
		t.Fatalf("signup %s: expected session token", email)
	}
	return result.Token
}
