package integration

import (
	"net/http"
	"testing"
)

func TestHealth(t *testing.T) {
	app := setupApp(t)

	result := mustStatus(t, app.request("GET", "/api/health", "", ""), http.StatusOK)
	if result["status"] != "ok" {
		t.Errorf("expected ok, got %v", result["status"])
	}
}

func TestAuthFlow(t *testing.T) {
	app := setupApp(t)

	token, userID := app.signUp(t, "alice")

	t.Run("profile with token", func(t *testing.T) {
		result := mustStatus(t, app.request("GET", "/api/v1/users", "", token), http.StatusOK)
		user := result["user"].(map[string]interface{})
		if user["id"] != userID || user["username"] != "alice" {
			t.Errorf("unexpected profile %v", user)
		}
	})

	t.Run("protected routes need a token", func(t *testing.T) {
		for _, path := range []string{"/api/v1/users", "/api/v1/expenses", "/api/v1/budgets", "/api/v1/reports"} {
			rec := app.request("GET", path, "", "")
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("%s: expected 401, got %d", path, rec.Code)
			}
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/users", "", "not-a-jwt")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("duplicate email ignores case", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/users/register",
			`{"username":"alice2","email":"ALICE@test.com","password":"password123"}`, "")
		result := mustStatus(t, rec, http.StatusBadRequest)
		if code := errorCode(result); code != "DUPLICATE_EMAIL" {
			t.Errorf("expected DUPLICATE_EMAIL, got %s", code)
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/users/register",
			`{"username":"alice","email":"other@test.com","password":"password123"}`, "")
		result := mustStatus(t, rec, http.StatusBadRequest)
		if code := errorCode(result); code != "DUPLICATE_USERNAME" {
			t.Errorf("expected DUPLICATE_USERNAME, got %s", code)
		}
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		for _, body := range []string{
			`{"username":"alice","password":"wrong-password"}`,
			`{"username":"nobody","password":"password123"}`,
		} {
			result := mustStatus(t, app.request("POST", "/api/v1/users/login", body, ""), http.StatusUnauthorized)
			if code := errorCode(result); code != "INVALID_CREDENTIALS" {
				t.Errorf("expected INVALID_CREDENTIALS, got %s", code)
			}
		}
	})

	t.Run("registration is audited", func(t *testing.T) {
		var count int64
		app.DB.Table("audit_logs").Where("user_id = ? AND action = ?", userID, "REGISTER").Count(&count)
		if count != 1 {
			t.Errorf("expected 1 REGISTER audit row, got %d", count)
		}
	})
}
