package integration

import (
	"testing"
)

// TestRegistration verifies that a new account can be created.
func TestRegistration(t *testing.T) {
	skipIfNotRunning(t)

	username := uniqueUsername("register")
	status, data := httpPost(t, baseURL()+"/users", map[string]interface{}{
		"username": username,
		"password": "TestPass123!",
	})
	requireStatus(t, status, 201)

	if success, _ := data["success"].(bool); !success {
		t.Fatalf("expected success=true, got body %v", data)
	}
}

// TestRegistrationDuplicateUsername verifies that registering the same
// username twice yields a 409 with the duplicate-username code.
func TestRegistrationDuplicateUsername(t *testing.T) {
	skipIfNotRunning(t)

	username := uniqueUsername("dup")
	body := map[string]interface{}{"username": username, "password": "TestPass123!"}

	status, _ := httpPost(t, baseURL()+"/users", body)
	requireStatus(t, status, 201)

	status, data := httpPost(t, baseURL()+"/users", body)
	requireStatus(t, status, 409)
	if code := extractString(t, data, "error.code"); code != "DUPLICATE_USERNAME" {
		t.Fatalf("expected DUPLICATE_USERNAME, got %q", code)
	}
}

// TestLoginReturnsTokenAndAccount verifies the login response shape.
func TestLoginReturnsTokenAndAccount(t *testing.T) {
	skipIfNotRunning(t)

	username := uniqueUsername("login")
	regStatus, _ := httpPost(t, baseURL()+"/users", map[string]interface{}{
		"username": username,
		"password": "TestPass123!",
	})
	requireStatus(t, regStatus, 201)

	status, data := httpPost(t, baseURL()+"/users/login", map[string]interface{}{
		"username": username,
		"password": "TestPass123!",
	})
	requireStatus(t, status, 200)

	token := extractString(t, data, "data.token")
	if token == "" {
		t.Fatal("expected non-empty token in login response")
	}
	if got := extractString(t, data, "data.account.username"); got != username {
		t.Fatalf("expected account.username %q, got %q", username, got)
	}
}

// TestSecondLoginRejectedWhileSessionActive verifies the single-session rule:
// a second login for the same account is refused until the first logs out.
func TestSecondLoginRejectedWhileSessionActive(t *testing.T) {
	skipIfNotRunning(t)

	username := uniqueUsername("single")
	creds := map[string]interface{}{"username": username, "password": "TestPass123!"}

	regStatus, _ := httpPost(t, baseURL()+"/users", creds)
	requireStatus(t, regStatus, 201)

	status, data := httpPost(t, baseURL()+"/users/login", creds)
	requireStatus(t, status, 200)
	token := extractString(t, data, "data.token")

	status, data = httpPost(t, baseURL()+"/users/login", creds)
	requireStatus(t, status, 403)
	if code := extractString(t, data, "error.code"); code != "ALREADY_LOGGED_IN" {
		t.Fatalf("expected ALREADY_LOGGED_IN, got %q", code)
	}

	// Logging out frees the slot; the next login succeeds.
	status, _ = httpPostWithAuth(t, baseURL()+"/users/logout", nil, token)
	requireStatus(t, status, 200)

	status, _ = httpPost(t, baseURL()+"/users/login", creds)
	requireStatus(t, status, 200)
}

// TestLogoutInvalidatesToken verifies that a token stops working after logout.
func TestLogoutInvalidatesToken(t *testing.T) {
	skipIfNotRunning(t)

	token := registerAndLogin(t, "logout")

	status, _ := httpGetWithAuth(t, baseURL()+"/users/me", token)
	requireStatus(t, status, 200)

	status, _ = httpPostWithAuth(t, baseURL()+"/users/logout", nil, token)
	requireStatus(t, status, 200)

	status, _ = httpGetWithAuth(t, baseURL()+"/users/me", token)
	requireStatus(t, status, 401)
}

// TestMeRequiresToken verifies that protected endpoints reject anonymous calls.
func TestMeRequiresToken(t *testing.T) {
	skipIfNotRunning(t)

	status, _ := httpGet(t, baseURL()+"/users/me")
	requireStatus(t, status, 401)
}
