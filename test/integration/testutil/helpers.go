//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/destinos/platform/internal/auth"
	"github.com/google/uuid"
)

// TestPassword satisfies the minimum password length.
const TestPassword = "securepass123"

// Signup creates a user through the API and returns the token and user ID.
func (env *TestEnv) Signup(username, email string) (token string, userID uuid.UUID) {
	env.t.Helper()
	resp := env.POST("/auth/signup", map[string]string{
		"username": username,
		"email":    email,
		"password": TestPassword,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("Signup: expected 201, got %d", resp.StatusCode)
	}

	var result struct {
		Token  string    `json:"token"`
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("Signup: decode: %v", err)
	}
	return result.Token, result.UserID
}

// Login authenticates an existing user and returns the token.
func (env *TestEnv) Login(email, password string) string {
	env.t.Helper()
	resp := env.POST("/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		env.t.Fatalf("Login: expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("Login: decode: %v", err)
	}
	return result.Token
}

// CreateStaff signs up a user, sets its role directly in the database and
// returns a token that carries the new role.
func (env *TestEnv) CreateStaff(username, role string) (token string, userID uuid.UUID) {
	env.t.Helper()
	_, userID = env.Signup(username, username+"@destinos.test")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := env.Pool.Exec(ctx, "UPDATE users SET role = $1 WHERE id = $2", role, userID); err != nil {
		env.t.Fatalf("CreateStaff: set role: %v", err)
	}

	token, err := env.JWTMgr.GenerateToken(userID, username, role)
	if err != nil {
		env.t.Fatalf("CreateStaff: token: %v", err)
	}
	return token, userID
}

// CreateModerator returns a moderator token.
func (env *TestEnv) CreateModerator() string {
	env.t.Helper()
	token, _ := env.CreateStaff("moderator", auth.RoleModerator)
	return token
}

// CreateAdmin returns an admin token.
func (env *TestEnv) CreateAdmin() string {
	env.t.Helper()
	token, _ := env.CreateStaff("admin", auth.RoleAdmin)
	return token
}

// Suggest submits a pending destination and returns its ID.
func (env *TestEnv) Suggest(token, name string) uuid.UUID {
	env.t.Helper()
	resp := env.POST("/destinations", map[string]interface{}{
		"name":        name,
		"description": "Descripción de " + name,
		"province":    "Cádiz",
	}, token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("Suggest: expected 201, got %d", resp.StatusCode)
	}

	var result struct {
		Destination struct {
			ID uuid.UUID `json:"id"`
		} `json:"destination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("Suggest: decode: %v", err)
	}
	return result.Destination.ID
}

// Approve moderates a destination to active and fails on anything but 200.
func (env *TestEnv) Approve(modToken string, id uuid.UUID) {
	env.t.Helper()
	resp := env.AuthPATCH(fmt.Sprintf("/admin/destinations/%s/approve", id), nil, modToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		env.t.Fatalf("Approve: expected 200, got %d", resp.StatusCode)
	}
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodGet, path, nil, "", nil)
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPost, path, body, token, nil)
}

// POSTWithHeaders performs a POST request with optional auth token and extra headers.
func (env *TestEnv) POSTWithHeaders(path string, body interface{}, token string, headers map[string]string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPost, path, body, token, headers)
}

// AuthPOST performs an authenticated POST request.
func (env *TestEnv) AuthPOST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPost, path, body, token, nil)
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodGet, path, nil, token, nil)
}

// AuthPUT performs an authenticated PUT request.
func (env *TestEnv) AuthPUT(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPut, path, body, token, nil)
}

// AuthPATCH performs an authenticated PATCH request.
func (env *TestEnv) AuthPATCH(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodPatch, path, body, token, nil)
}

// AuthDELETE performs an authenticated DELETE request.
func (env *TestEnv) AuthDELETE(path, token string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodDelete, path, nil, token, nil)
}

// OPTIONS performs a preflight request from origin.
func (env *TestEnv) OPTIONS(path, origin string) *http.Response {
	env.t.Helper()
	return env.do(http.MethodOptions, path, nil, "", map[string]string{"Origin": origin})
}

func (env *TestEnv) do(method, path string, body interface{}, token string, headers map[string]string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("%s %s: new request: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}
