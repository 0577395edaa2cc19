package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestCategoryFlow(t *testing.T) {
	app := setupApp(t)
	global := app.globalCategory(t, "Food")

	alice, _ := app.signUp(t, "alice")
	bob, _ := app.signUp(t, "bob")

	hobbies := app.createCategory(t, alice, "Hobbies")
	app.createCategory(t, bob, "Garden")

	t.Run("listing shows global plus own", func(t *testing.T) {
		result := mustStatus(t, app.request("GET", "/api/v1/categories", "", alice), http.StatusOK)
		categories := result["categories"].([]interface{})
		if len(categories) != 2 {
			t.Fatalf("expected 2 categories, got %d", len(categories))
		}
		first := categories[0].(map[string]interface{})
		second := categories[1].(map[string]interface{})
		if first["name"] != "Food" || second["name"] != "Hobbies" {
			t.Errorf("expected Food then Hobbies, got %v then %v", first["name"], second["name"])
		}
	})

	t.Run("duplicate name for the same owner", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/categories", `{"name":"hobbies","description":"again"}`, alice)
		result := mustStatus(t, rec, http.StatusBadRequest)
		if code := errorCode(result); code != "INVALID_INPUT" {
			t.Errorf("expected INVALID_INPUT, got %s", code)
		}
	})

	t.Run("same name for a different owner is fine", func(t *testing.T) {
		app.createCategory(t, bob, "Hobbies")
	})

	t.Run("global categories cannot be deleted", func(t *testing.T) {
		result := mustStatus(t, app.request("DELETE", "/api/v1/categories/"+global.ID, "", alice), http.StatusForbidden)
		if code := errorCode(result); code != "FORBIDDEN" {
			t.Errorf("expected FORBIDDEN, got %s", code)
		}
	})

	t.Run("other users cannot rename", func(t *testing.T) {
		rec := app.request("PUT", "/api/v1/categories/"+hobbies, `{"name":"Mine now"}`, bob)
		mustStatus(t, rec, http.StatusForbidden)
	})

	t.Run("single lookup respects visibility", func(t *testing.T) {
		result := mustStatus(t, app.request("GET", "/api/v1/categories/"+global.ID, "", bob), http.StatusOK)
		if result["category"].(map[string]interface{})["name"] != "Food" {
			t.Errorf("expected Food, got %v", result)
		}
		mustStatus(t, app.request("GET", "/api/v1/categories/"+hobbies, "", alice), http.StatusOK)
		mustStatus(t, app.request("GET", "/api/v1/categories/"+hobbies, "", bob), http.StatusForbidden)
	})

	t.Run("other users cannot spend against it", func(t *testing.T) {
		body := fmt.Sprintf(`{"category_id":%q,"amount":5}`, hobbies)
		mustStatus(t, app.request("POST", "/api/v1/expenses", body, bob), http.StatusForbidden)
	})

	t.Run("owner renames then deletes", func(t *testing.T) {
		result := mustStatus(t, app.request("PUT", "/api/v1/categories/"+hobbies, `{"name":"Crafts"}`, alice), http.StatusOK)
		if result["category"].(map[string]interface{})["name"] != "Crafts" {
			t.Errorf("rename did not stick: %v", result)
		}
		mustStatus(t, app.request("DELETE", "/api/v1/categories/"+hobbies, "", alice), http.StatusOK)

		result = mustStatus(t, app.request("DELETE", "/api/v1/categories/"+hobbies, "", alice), http.StatusBadRequest)
		if code := errorCode(result); code != "CATEGORY_NOT_FOUND" {
			t.Errorf("expected CATEGORY_NOT_FOUND, got %s", code)
		}
	})
}

func TestExpenseFlow(t *testing.T) {
	app := setupApp(t)
	food := app.globalCategory(t, "Food")

	alice, _ := app.signUp(t, "alice")
	bob, _ := app.signUp(t, "bob")
	travel := app.createCategory(t, alice, "Travel")

	day := today()
	app.createExpense(t, alice, food.ID, "12.50", day)
	app.createExpense(t, alice, travel, "40", day.AddDate(0, 0, -1))
	lunch := app.createExpense(t, alice, food.ID, "8", day.AddDate(0, 0, -2))

	t.Run("list is sorted by category then newest first", func(t *testing.T) {
		result := mustStatus(t, app.request("GET", "/api/v1/expenses", "", alice), http.StatusOK)
		data := result["data"].([]interface{})
		if len(data) != 3 {
			t.Fatalf("expected 3 expenses, got %d", len(data))
		}
		amounts := []float64{}
		for _, item := range data {
			amounts = append(amounts, item.(map[string]interface{})["amount"].(float64))
		}
		want := []float64{12.5, 8, 40}
		for i := range want {
			if amounts[i] != want[i] {
				t.Fatalf("expected order %v, got %v", want, amounts)
			}
		}
	})

	t.Run("filters by category and window", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/expenses?category_id=%s&start_date=%s&end_date=%s",
			food.ID, day.AddDate(0, 0, -2).Format("2006-01-02"), day.AddDate(0, 0, -1).Format("2006-01-02"))
		result := mustStatus(t, app.request("GET", path, "", alice), http.StatusOK)
		data := result["data"].([]interface{})
		if len(data) != 1 || data[0].(map[string]interface{})["id"] != lunch {
			t.Errorf("expected only the lunch expense, got %v", data)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		result := mustStatus(t, app.request("GET", "/api/v1/expenses?page=2&page_size=2", "", alice), http.StatusOK)
		if len(result["data"].([]interface{})) != 1 || result["total_pages"].(float64) != 2 {
			t.Errorf("unexpected page %v", result)
		}
	})

	t.Run("existence before ownership", func(t *testing.T) {
		mustStatus(t, app.request("GET", "/api/v1/expenses/"+lunch, "", bob), http.StatusForbidden)

		missing := "01900000-0000-7000-8000-00000000dead"
		result := mustStatus(t, app.request("GET", "/api/v1/expenses/"+missing, "", bob), http.StatusBadRequest)
		if code := errorCode(result); code != "EXPENSE_NOT_FOUND" {
			t.Errorf("expected EXPENSE_NOT_FOUND, got %s", code)
		}
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		result := mustStatus(t, app.request("PUT", "/api/v1/expenses/"+lunch, `{"amount":9.25}`, alice), http.StatusOK)
		expense := result["expense"].(map[string]interface{})
		if expense["amount"].(float64) != 9.25 || expense["category_id"] != food.ID {
			t.Errorf("unexpected expense %v", expense)
		}
	})

	t.Run("delete", func(t *testing.T) {
		mustStatus(t, app.request("DELETE", "/api/v1/expenses/"+lunch, "", bob), http.StatusForbidden)
		mustStatus(t, app.request("DELETE", "/api/v1/expenses/"+lunch, "", alice), http.StatusOK)
		mustStatus(t, app.request("GET", "/api/v1/expenses/"+lunch, "", alice), http.StatusBadRequest)
	})
}
