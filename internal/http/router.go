package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func NewRouter(handler *Handler, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(Recoverer(log))
	r.Use(Timeout)
	r.Use(CORS)

	r.Get("/healthz", handler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/students", handler.ListStudents)
		r.Post("/students", handler.CreateStudent)
		r.Post("/students/import-excel", handler.ImportStudentsExcel)
		r.Get("/students/{id}", handler.GetStudent)
		r.Patch("/students/{id}", handler.PatchStudent)
		r.Post("/students/{id}/balance", handler.AdjustBalance)
		r.Delete("/students/{id}", handler.DeleteStudent)

		r.Get("/categories", handler.ListCategories)
		r.Post("/categories", handler.CreateCategory)
		r.Put("/categories/{id}", handler.UpdateCategory)
		r.Delete("/categories/{id}", handler.DeleteCategory)

		r.Get("/products", handler.ListProducts)
		r.Post("/products", handler.CreateProduct)
		r.Get("/products/low-stock", handler.LowStockProducts)
		r.Get("/products/{id}", handler.GetProduct)
		r.Patch("/products/{id}", handler.PatchProduct)
		r.Post("/products/{id}/stock", handler.AdjustStock)
		r.Delete("/products/{id}", handler.DeleteProduct)

		r.Post("/transactions", handler.CreateTransaction)
		r.Get("/transactions", handler.ListTransactions)
		r.Get("/transactions/stats", handler.TransactionStats)
		r.Get("/transactions/export", handler.ExportTransactions)
		r.Get("/transactions/{id}", handler.GetTransaction)

		r.Get("/inventory/logs", handler.ListInventoryLogs)
		r.Get("/inventory/logs/export", handler.ExportInventoryLogs)

		r.Get("/dashboard/weekly-sales", handler.WeeklySales)
		r.Get("/dashboard/product-sales", handler.ProductSales)
		r.Get("/dashboard/sold-items", handler.SoldItems)
		r.Get("/dashboard/recent-products", handler.RecentProducts)
		r.Get("/dashboard/recent-stock-updates", handler.RecentStockUpdates)
	})

	return r
}
