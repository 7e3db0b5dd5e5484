package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/financeflow/financeflow/internal/api/handlers"
	"github.com/financeflow/financeflow/internal/api/middleware"
)

// NewRouter wires the HTTP surface. Every /api route runs behind request-id,
// logging, recovery and owner resolution; /healthz stays open for probes.
func NewRouter(
	log zerolog.Logger,
	transactions *handlers.TransactionsHandler,
	tags *handlers.TagsHandler,
	budgets *handlers.BudgetsHandler,
	account *handlers.AccountHandler,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/transactions", transactions.List)
	mux.HandleFunc("POST /api/transactions", transactions.Create)
	mux.HandleFunc("POST /api/transactions/bulk", transactions.BulkCreate)
	mux.HandleFunc("DELETE /api/transactions/bulk", transactions.BulkDelete)
	mux.HandleFunc("POST /api/transactions/csv", transactions.PreviewCSV)
	mux.HandleFunc("PUT /api/transactions/{id}", transactions.Update)
	mux.HandleFunc("DELETE /api/transactions/{id}", transactions.Delete)

	mux.HandleFunc("GET /api/tags", tags.List)
	mux.HandleFunc("POST /api/tags", tags.Create)
	mux.HandleFunc("GET /api/tags/colors", tags.Palette)
	mux.HandleFunc("PUT /api/tags/{id}", tags.Rename)
	mux.HandleFunc("DELETE /api/tags/{id}", tags.Delete)
	mux.HandleFunc("PUT /api/tags/{name}/color", tags.SetColor)
	mux.HandleFunc("DELETE /api/tags/{name}/color", tags.ClearColor)

	mux.HandleFunc("GET /api/budgets", budgets.List)
	mux.HandleFunc("POST /api/budgets", budgets.Create)
	mux.HandleFunc("PUT /api/budgets/reorder", budgets.Reorder)
	mux.HandleFunc("GET /api/budgets/active", budgets.Active)
	mux.HandleFunc("GET /api/budgets/suggestions", budgets.Suggestions)
	mux.HandleFunc("PUT /api/budgets/{id}", budgets.Update)
	mux.HandleFunc("DELETE /api/budgets/{id}", budgets.Delete)
	mux.HandleFunc("GET /api/budgets/{id}/report", budgets.Report)
	mux.HandleFunc("GET /api/budget/tags", budgets.Actuals)

	mux.HandleFunc("DELETE /api/account/data", account.ResetData)

	var apiHandler http.Handler = mux
	apiHandler = middleware.Owner(apiHandler)
	apiHandler = middleware.Logger(log)(apiHandler)
	apiHandler = middleware.Recovery(log)(apiHandler)
	apiHandler = middleware.RequestID(apiHandler)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	root.Handle("/api/", apiHandler)
	return root
}
