// Package server assembles the HTTP router from services and handlers.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"spendtrack/internal/events"
	"spendtrack/internal/handlers"
	"spendtrack/internal/middleware"
	"spendtrack/internal/services"

	_ "spendtrack/internal/docs" // swagger spec
)

// Deps are the shared resources the router hands to services.
type Deps struct {
	DB        *gorm.DB
	Tokens    *middleware.TokenManager
	Publisher events.Publisher
}

// NewRouter wires every service, handler and route.
func NewRouter(deps Deps) *gin.Engine {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	// Services
	userService := services.NewUserService(deps.DB)
	categoryService := services.NewCategoryService(deps.DB)
	expenseService := services.NewExpenseService(deps.DB)
	budgetService := services.NewBudgetService(deps.DB, publisher)
	totalsService := services.NewTotalsService(deps.DB)
	reportService := services.NewReportService(deps.DB, publisher)
	auditService := services.NewAuditService(deps.DB)

	// Handlers
	userHandler := handlers.NewUserHandler(userService, auditService, deps.Tokens)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	expenseHandler := handlers.NewExpenseHandler(expenseService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	totalsHandler := handlers.NewTotalsHandler(totalsService)
	reportHandler := handlers.NewReportHandler(reportService, auditService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	v1.POST("/users/register", userHandler.Register)
	v1.POST("/users/login", userHandler.Login)

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Tokens))

	protected.GET("/users", userHandler.GetProfile)

	categories := protected.Group("/categories")
	categories.GET("", categoryHandler.GetCategories)
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	expenses := protected.Group("/expenses")
	expenses.GET("", expenseHandler.GetExpenses)
	expenses.POST("", expenseHandler.CreateExpense)
	expenses.GET("/:id", expenseHandler.GetExpense)
	expenses.PUT("/:id", expenseHandler.UpdateExpense)
	expenses.DELETE("/:id", expenseHandler.DeleteExpense)

	budgets := protected.Group("/budgets")
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)

	protected.GET("/totals/spending", totalsHandler.GetSpending)

	reports := protected.Group("/reports")
	reports.POST("", reportHandler.GenerateReport)
	reports.GET("", reportHandler.GetLatestReport)
	reports.GET("/history", reportHandler.GetReportHistory)

	return router
}
