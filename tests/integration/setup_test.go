package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"spendtrack/internal/events"
	"spendtrack/internal/logger"
	"spendtrack/internal/middleware"
	"spendtrack/internal/models"
	"spendtrack/internal/server"
	"spendtrack/internal/testutil"
	"spendtrack/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Events *capturePublisher
}

// capturePublisher keeps every published event in memory.
type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test", "error")
	validator.Register()
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	publisher := &capturePublisher{}
	router := server.NewRouter(server.Deps{
		DB:        db,
		Tokens:    middleware.NewTokenManager("integration-secret", time.Hour),
		Publisher: publisher,
	})

	return &testApp{DB: db, Router: router, Events: publisher}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// mustStatus fails the test unless the recorder carries the expected status.
func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) map[string]interface{} {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)
}

func errorCode(result map[string]interface{}) string {
	errObj, _ := result["error"].(map[string]interface{})
	code, _ := errObj["code"].(string)
	return code
}

// signUp registers and logs in a user, returning the bearer token and user id.
func (app *testApp) signUp(t *testing.T, username string) (token, userID string) {
	t.Helper()

	body := fmt.Sprintf(`{"username":%q,"email":"%s@test.com","password":"password123"}`, username, username)
	result := mustStatus(t, app.request("POST", "/api/v1/users/register", body, ""), http.StatusCreated)
	userID = result["user"].(map[string]interface{})["id"].(string)

	body = fmt.Sprintf(`{"username":%q,"password":"password123"}`, username)
	result = mustStatus(t, app.request("POST", "/api/v1/users/login", body, ""), http.StatusOK)
	return result["token"].(string), userID
}

// createCategory creates a user-owned category and returns its id.
func (app *testApp) createCategory(t *testing.T, token, name string) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"description":"%s spending"}`, name, name)
	result := mustStatus(t, app.request("POST", "/api/v1/categories", body, token), http.StatusCreated)
	return result["category"].(map[string]interface{})["id"].(string)
}

// createExpense records an expense and returns its id.
func (app *testApp) createExpense(t *testing.T, token, categoryID, amount string, date time.Time) string {
	t.Helper()
	body := fmt.Sprintf(`{"category_id":%q,"amount":%s,"date":%q}`, categoryID, amount, date.Format(validator.DateLayout))
	result := mustStatus(t, app.request("POST", "/api/v1/expenses", body, token), http.StatusCreated)
	return result["expense"].(map[string]interface{})["id"].(string)
}

// globalCategory inserts an Everyone category the way the seed migration does.
func (app *testApp) globalCategory(t *testing.T, name string) *models.Category {
	t.Helper()
	return testutil.CreateGlobalCategory(t, app.DB, name)
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
