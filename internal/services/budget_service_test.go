package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"spendtrack/internal/budgeting"
	apperrors "spendtrack/internal/errors"
	"spendtrack/internal/events"
	"spendtrack/internal/models"
	"spendtrack/internal/testutil"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

var budgetClock = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)

func newTestBudgetService(db *gorm.DB, pub events.Publisher, now time.Time) *budgetService {
	return &budgetService{db: db, publisher: pub, now: func() time.Time { return now }}
}

func jan(d int) time.Time { return testutil.Date(2025, time.January, d) }

func TestCreateBudget(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestBudgetService(db, events.NopPublisher{}, budgetClock)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, "40", jan(12))

		budget, err := svc.CreateBudget(ctx, user.ID, cat.ID, decimal.NewFromInt(100), jan(10), jan(20))
		testutil.AssertNoError(t, err)

		if budget.ID == "" {
			t.Fatal("expected budget ID")
		}
		testutil.AssertDecimal(t, budget.TotalExpenses, "40")
		if budget.IsOverspent {
			t.Error("expected budget not overspent")
		}
		if !budget.IsActive {
			t.Error("expected budget active")
		}
		if budget.EndDate.Hour() != 23 || budget.EndDate.Minute() != 59 {
			t.Errorf("expected end date at end of day, got %v", budget.EndDate)
		}
	})

	t.Run("end_before_start", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestBudgetService(db, events.NopPublisher{}, budgetClock)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)

		_, err := svc.CreateBudget(ctx, user.ID, cat.ID, decimal.NewFromInt(100), jan(20), jan(10))
		testutil.AssertAppError(t, err, "INVALID_DATE_RANGE")
	})

	t.Run("single_day_window", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestBudgetService(db, events.NopPublisher{}, budgetClock)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, "5", time.Date(2025, time.January, 20, 18, 30, 0, 0, time.UTC))

		budget, err := svc.CreateBudget(ctx, user.ID, cat.ID, decimal.NewFromInt(10), jan(20), jan(20))
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, budget.TotalExpenses, "5")
	})

	t.Run("other_users_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := newTestBudgetService(db, events.NopPublisher{}, budgetClock)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, other.ID)

		_, err := svc.CreateBudget(ctx, user.ID, cat.ID, decimal.NewFromInt(100), jan(1), jan(31))
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("overspent_on_create_publishes_event", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		pub := &recordingPublisher{}
		svc := newTestBudgetService(db, pub, budgetClock)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, "80", jan(11))
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, "30", jan(12))

		budget, err := svc.CreateBudget(ctx, user.ID, cat.ID, decimal.NewFromInt(100), jan(10), jan(20))
		testutil.AssertNoError(t, err)

		if !budget.IsOverspent {
			t.Error("expected budget overspent")
		}
		if got := pub.count(events.BudgetOverspent); got != 1 {
			t.Errorf("expected 1 overspent event, got %d", got)
		}
	})

	t.Run("publish_failure_does_not_fail_create", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		pub := &recordingPublisher{err: errors.New("broker down")}
		svc := newTestBudgetService(db, pub, budgetClock)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, "200", jan(11))

		_, err := svc.CreateBudget(ctx, user.ID, cat.ID, decimal.NewFromInt(100), jan(10), jan(20))
		testutil.AssertNoError(t, err)
	})
}

func TestBudgetOverlap(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestBudgetService(db, events.NopPublisher{}, budgetClock)
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID)
	otherCat := testutil.CreateTestCategory(t, db, user.ID)

	first, err := svc.CreateBudget(ctx, user.ID, cat.ID, decimal.NewFromInt(100), jan(10), jan(20))
	testutil.AssertNoError(t, err)

	t.Run("overlapping_window_rejected", func(t *testing.T) {
		_, err := svc.CreateBudget(ctx, user.ID, cat.ID, decimal.NewFromInt(50), jan(15), jan(25))
		testutil.AssertAppError(t, err, "BUDGET_OVERLAP")
		if !errors.Is(err, apperrors.ErrBudgetOverlap) {
			t.Error("expected errors.Is to match ErrBudgetOverlap")
		}

		var stored models.Budget
		db.First(&stored, "id = ?", first.ID)
		testutil.AssertDecimal(t, stored.Amount, "100")
		if !stored.StartDate.Equal(first.StartDate) {
			t.Error("existing budget should be untouched")
		}
	})

	t.Run("touching_endpoint_rejected", func(t *testing.T) {
		_, err := svc.CreateBudget(ctx, user.ID, cat.ID, decimal.NewFromInt(50), jan(20), jan(30))
		testutil.AssertAppError(t, err, "BUDGET_OVERLAP")
	})

	t.Run("adjacent_window_allowed", func(t *testing.T) {
		_, err := svc.CreateBudget(ctx, user.ID, cat.ID, decimal.NewFromInt(50), jan(21), jan(30))
		testutil.AssertNoError(t, err)
	})

	t.Run("other_category_allowed", func(t *testing.T) {
		_, err := svc.CreateBudget(ctx, user.ID, otherCat.ID, decimal.NewFromInt(50), jan(15), jan(25))
		testutil.AssertNoError(t, err)
	})

	t.Run("other_user_allowed", func(t *testing.T) {
		other := testutil.CreateTestUser(t, db)
		global := testutil.CreateGlobalCategory(t, db, "Shared")
		_, err := svc.CreateBudget(ctx, user.ID, global.ID, decimal.NewFromInt(50), jan(10), jan(20))
		testutil.AssertNoError(t, err)
		_, err = svc.CreateBudget(ctx, other.ID, global.ID, decimal.NewFromInt(50), jan(10), jan(20))
		testutil.AssertNoError(t, err)
	})

	t.Run("has_overlap_excludes_self", func(t *testing.T) {
		window := budgeting.DayWindow(jan(10), jan(20))
		overlaps, err := hasOverlap(db, user.ID, cat.ID, window, first.ID)
		testutil.AssertNoError(t, err)
		if overlaps {
			t.Error("budget should not overlap itself")
		}

		overlaps, err = hasOverlap(db, user.ID, cat.ID, window, "")
		testutil.AssertNoError(t, err)
		if !overlaps {
			t.Error("expected overlap without exclusion")
		}
	})

	t.Run("deleted_budget_frees_window", func(t *testing.T) {
		cat3 := testutil.CreateTestCategory(t, db, user.ID)
		b, err := svc.CreateBudget(ctx, user.ID, cat3.ID, decimal.NewFromInt(10), jan(1), jan(5))
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, svc.DeleteBudget(ctx, user.ID, b.ID))

		_, err = svc.CreateBudget(ctx, user.ID, cat3.ID, decimal.NewFromInt(10), jan(1), jan(5))
		testutil.AssertNoError(t, err)
	})
}

func TestGetBudgetByID_ReconcilesAndPersists(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	pub := &recordingPublisher{}
	svc := newTestBudgetService(db, pub, budgetClock)
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID)

	budget, err := svc.CreateBudget(ctx, user.ID, cat.ID, decimal.NewFromInt(100), jan(10), jan(20))
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, budget.TotalExpenses, "0")

	// Expenses added outside the service: in window, on the last day, outside, other category.
	sixty := testutil.CreateTestExpense(t, db, user.ID, cat.ID, "60", jan(10))
	testutil.CreateTestExpense(t, db, user.ID, cat.ID, "45.50", time.Date(2025, time.January, 20, 23, 0, 0, 0, time.UTC))
	testutil.CreateTestExpense(t, db, user.ID, cat.ID, "500", jan(21))
	testutil.CreateTestExpense(t, db, user.ID, testutil.CreateTestCategory(t, db, user.ID).ID, "500", jan(12))

	t.Run("get_mutates_stored_fields", func(t *testing.T) {
		got, err := svc.GetBudgetByID(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)

		testutil.AssertDecimal(t, got.TotalExpenses, "105.50")
		if !got.IsOverspent {
			t.Error("expected overspent after read")
		}

		var stored models.Budget
		db.First(&stored, "id = ?", budget.ID)
		testutil.AssertDecimal(t, stored.TotalExpenses, "105.50")
		if !stored.IsOverspent {
			t.Error("expected stored is_overspent to be updated by the read")
		}
		if pub.count(events.BudgetOverspent) != 1 {
			t.Errorf("expected 1 overspent event, got %d", pub.count(events.BudgetOverspent))
		}
	})

	t.Run("idempotent_read", func(t *testing.T) {
		first, err := svc.GetBudgetByID(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		second, err := svc.GetBudgetByID(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)

		if !first.TotalExpenses.Equal(second.TotalExpenses) || first.IsOverspent != second.IsOverspent {
			t.Error("repeated reads should agree")
		}
		if pub.count(events.BudgetOverspent) != 1 {
			t.Error("no new event expected while the budget stays overspent")
		}
	})

	t.Run("overspent_clears_when_expense_removed", func(t *testing.T) {
		db.Delete(sixty)

		got, err := svc.GetBudgetByID(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, got.TotalExpenses, "45.50")
		if got.IsOverspent {
			t.Error("overspent should be recomputed, not sticky")
		}
	})

	t.Run("inactive_after_window", func(t *testing.T) {
		later := newTestBudgetService(db, pub, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC))
		got, err := later.GetBudgetByID(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if got.IsActive {
			t.Error("expected budget inactive after end date")
		}

		var stored models.Budget
		db.First(&stored, "id = ?", budget.ID)
		if stored.IsActive {
			t.Error("expected stored is_active to be false")
		}
	})

	t.Run("not_owner", func(t *testing.T) {
		other := testutil.CreateTestUser(t, db)
		_, err := svc.GetBudgetByID(ctx, other.ID, budget.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("not_found", func(t *testing.T) {
		_, err := svc.GetBudgetByID(ctx, user.ID, "0190f5c2-0000-7000-8000-000000000000")
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})
}

func TestGetUserBudgets(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestBudgetService(db, events.NopPublisher{}, budgetClock)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	travel := testutil.CreateTestCategoryNamed(t, db, user.ID, "Travel")
	books := testutil.CreateTestCategoryNamed(t, db, user.ID, "books")

	testutil.CreateTestBudget(t, db, user.ID, travel.ID, "100", jan(1), jan(31))
	testutil.CreateTestBudget(t, db, user.ID, books.ID, "20", jan(1), jan(31))
	testutil.CreateTestBudget(t, db, other.ID, testutil.CreateTestCategory(t, db, other.ID).ID, "5", jan(1), jan(31))
	testutil.CreateTestExpense(t, db, user.ID, books.ID, "25", jan(3))

	budgets, err := svc.GetUserBudgets(ctx, user.ID)
	testutil.AssertNoError(t, err)

	if len(budgets) != 2 {
		t.Fatalf("expected 2 budgets, got %d", len(budgets))
	}
	if budgets[0].CategoryID != books.ID || budgets[1].CategoryID != travel.ID {
		t.Error("expected budgets sorted by category name")
	}
	if !budgets[0].IsOverspent {
		t.Error("expected books budget overspent after list")
	}

	for _, b := range budgets {
		var stored models.Budget
		db.First(&stored, "id = ?", b.ID)
		if stored.IsOverspent != (stored.TotalExpenses.GreaterThan(stored.Amount)) {
			t.Errorf("stored budget %s violates overspent rule", b.ID)
		}
	}
}

func TestUpdateBudget(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*gorm.DB, *budgetService, *models.User, *models.Category, *models.Budget) {
		db := testutil.SetupTestDB(t)
		svc := newTestBudgetService(db, events.NopPublisher{}, budgetClock)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)
		budget, err := svc.CreateBudget(ctx, user.ID, cat.ID, decimal.NewFromInt(100), jan(16), jan(20))
		testutil.AssertNoError(t, err)
		return db, svc, user, cat, budget
	}

	t.Run("same_window_excludes_self", func(t *testing.T) {
		db, svc, user, _, budget := setup(t)
		defer testutil.TeardownTestDB(t, db)

		start, end := jan(16), jan(20)
		updated, err := svc.UpdateBudget(ctx, user.ID, budget.ID, BudgetUpdate{StartDate: &start, EndDate: &end, Amount: decPtr("150")})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, updated.Amount, "150")
	})

	t.Run("start_today_allowed", func(t *testing.T) {
		db, svc, user, _, budget := setup(t)
		defer testutil.TeardownTestDB(t, db)

		start := jan(15)
		_, err := svc.UpdateBudget(ctx, user.ID, budget.ID, BudgetUpdate{StartDate: &start})
		testutil.AssertNoError(t, err)
	})

	t.Run("start_in_past_rejected", func(t *testing.T) {
		db, svc, user, _, budget := setup(t)
		defer testutil.TeardownTestDB(t, db)

		start := jan(14)
		_, err := svc.UpdateBudget(ctx, user.ID, budget.ID, BudgetUpdate{StartDate: &start})
		testutil.AssertAppError(t, err, "START_DATE_IN_PAST")
	})

	t.Run("end_before_start_rejected", func(t *testing.T) {
		db, svc, user, _, budget := setup(t)
		defer testutil.TeardownTestDB(t, db)

		end := jan(15)
		_, err := svc.UpdateBudget(ctx, user.ID, budget.ID, BudgetUpdate{EndDate: &end})
		testutil.AssertAppError(t, err, "INVALID_DATE_RANGE")
	})

	t.Run("overlap_with_sibling_rejected", func(t *testing.T) {
		db, svc, user, cat, budget := setup(t)
		defer testutil.TeardownTestDB(t, db)

		_, err := svc.CreateBudget(ctx, user.ID, cat.ID, decimal.NewFromInt(10), jan(25), jan(31))
		testutil.AssertNoError(t, err)

		end := jan(26)
		_, err = svc.UpdateBudget(ctx, user.ID, budget.ID, BudgetUpdate{EndDate: &end})
		testutil.AssertAppError(t, err, "BUDGET_OVERLAP")

		var stored models.Budget
		db.First(&stored, "id = ?", budget.ID)
		if stored.EndDate.Day() != 20 {
			t.Errorf("budget should be unchanged, end date is %v", stored.EndDate)
		}
	})

	t.Run("lowering_amount_flags_overspent", func(t *testing.T) {
		db, svc, user, cat, budget := setup(t)
		defer testutil.TeardownTestDB(t, db)
		testutil.CreateTestExpense(t, db, user.ID, cat.ID, "60", jan(17))

		updated, err := svc.UpdateBudget(ctx, user.ID, budget.ID, BudgetUpdate{Amount: decPtr("50")})
		testutil.AssertNoError(t, err)
		if !updated.IsOverspent {
			t.Error("expected overspent after lowering the cap")
		}
	})

	t.Run("not_owner_leaves_budget_unchanged", func(t *testing.T) {
		db, svc, _, _, budget := setup(t)
		defer testutil.TeardownTestDB(t, db)
		other := testutil.CreateTestUser(t, db)

		_, err := svc.UpdateBudget(ctx, other.ID, budget.ID, BudgetUpdate{Amount: decPtr("1")})
		testutil.AssertAppError(t, err, "FORBIDDEN")

		var stored models.Budget
		db.First(&stored, "id = ?", budget.ID)
		testutil.AssertDecimal(t, stored.Amount, "100")
	})
}

func TestDeleteBudget(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestBudgetService(db, events.NopPublisher{}, budgetClock)
	owner := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, owner.ID)
	budget := testutil.CreateTestBudget(t, db, owner.ID, cat.ID, "100", jan(1), jan(31))

	testutil.AssertAppError(t, svc.DeleteBudget(ctx, other.ID, budget.ID), "FORBIDDEN")

	testutil.AssertNoError(t, svc.DeleteBudget(ctx, owner.ID, budget.ID))

	_, err := svc.GetBudgetByID(ctx, owner.ID, budget.ID)
	testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
}

func TestUpdateBudget_AmountOnlyInNonUTCZone(t *testing.T) {
	ctx := context.Background()

	local := time.Local
	time.Local = time.FixedZone("UTC+8", 8*60*60)
	defer func() { time.Local = local }()

	db := testutil.SetupLocalTimeTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestBudgetService(db, events.NopPublisher{}, budgetClock)
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID)

	first, err := svc.CreateBudget(ctx, user.ID, cat.ID, decimal.NewFromInt(100), jan(20), jan(25))
	testutil.AssertNoError(t, err)
	_, err = svc.CreateBudget(ctx, user.ID, cat.ID, decimal.NewFromInt(100), jan(26), jan(30))
	testutil.AssertNoError(t, err)
	testutil.CreateTestExpense(t, db, user.ID, cat.ID, "40", time.Date(2025, time.January, 26, 10, 0, 0, 0, time.UTC))

	updated, err := svc.UpdateBudget(ctx, user.ID, first.ID, BudgetUpdate{Amount: decPtr("150")})
	testutil.AssertNoError(t, err)

	wantEnd := time.Date(2025, time.January, 25, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !updated.EndDate.Equal(wantEnd) {
		t.Errorf("expected end %v, got %v", wantEnd, updated.EndDate.UTC())
	}
	testutil.AssertDecimal(t, updated.TotalExpenses, "0")

	var stored models.Budget
	if err := db.First(&stored, "id = ?", first.ID).Error; err != nil {
		t.Fatalf("failed to reload budget: %v", err)
	}
	if !stored.EndDate.Equal(wantEnd) {
		t.Errorf("expected stored end %v, got %v", wantEnd, stored.EndDate.UTC())
	}
}
