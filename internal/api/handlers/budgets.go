package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/financeflow/financeflow/internal/api/middleware"
	"github.com/financeflow/financeflow/internal/database/repository"
	"github.com/financeflow/financeflow/internal/service"
)

// BudgetsHandler serves budget CRUD, ordering and the reconciliation views.
type BudgetsHandler struct {
	Budgets *service.BudgetService
	Log     zerolog.Logger
	Now     func() time.Time
}

func (h *BudgetsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

type budgetItemJSON struct {
	Tag    string          `json:"tag"`
	Amount decimal.Decimal `json:"amount"`
}

type budgetJSON struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Position  int              `json:"position"`
	Items     []budgetItemJSON `json:"items"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func toBudgetJSON(b repository.TagBudget) budgetJSON {
	items := make([]budgetItemJSON, 0, len(b.Items))
	for _, item := range b.Items {
		items = append(items, budgetItemJSON{Tag: item.Tag, Amount: item.Amount})
	}
	return budgetJSON{
		ID:        b.ID,
		Name:      b.Name,
		Position:  b.Position,
		Items:     items,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

type budgetRequest struct {
	Name  string                    `json:"name"`
	Items []service.BudgetItemInput `json:"items"`
}

// List handles GET /api/budgets, ordered by position (index 0 is active).
func (h *BudgetsHandler) List(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.Budgets.List(r.Context(), middleware.OwnerID(r.Context()))
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to list budgets")
		return
	}
	out := make([]budgetJSON, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetJSON(b))
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"budgets": out})
}

// Create handles POST /api/budgets.
func (h *BudgetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	budget, err := h.Budgets.Create(r.Context(), middleware.OwnerID(r.Context()), req.Name, req.Items)
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to create budget")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, toBudgetJSON(budget))
}

// Update handles PUT /api/budgets/{id}.
func (h *BudgetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	budget, err := h.Budgets.Update(r.Context(), middleware.OwnerID(r.Context()), r.PathValue("id"), req.Name, req.Items)
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to update budget")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toBudgetJSON(*budget))
}

// Delete handles DELETE /api/budgets/{id}; survivors are renumbered.
func (h *BudgetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Budgets.Delete(r.Context(), middleware.OwnerID(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, h.Log, err, "Failed to delete budget")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Reorder handles PUT /api/budgets/reorder: position = index of the supplied
// id list.
func (h *BudgetsHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BudgetIDs []string `json:"budgetIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.Budgets.Reorder(r.Context(), middleware.OwnerID(r.Context()), req.BudgetIDs); err != nil {
		writeServiceError(w, h.Log, err, "Failed to reorder budgets")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Active handles GET /api/budgets/active.
func (h *BudgetsHandler) Active(w http.ResponseWriter, r *http.Request) {
	budget, err := h.Budgets.Active(r.Context(), middleware.OwnerID(r.Context()))
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to load active budget")
		return
	}
	if budget == nil {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"budget": nil})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"budget": toBudgetJSON(*budget)})
}

// Report handles GET /api/budgets/{id}/report?period=&startDate=&endDate=.
func (h *BudgetsHandler) Report(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.window(r)
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to resolve report window")
		return
	}
	report, err := h.Budgets.Report(r.Context(), middleware.OwnerID(r.Context()), r.PathValue("id"), start, end)
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to build budget report")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}

// Suggestions handles GET /api/budgets/suggestions?period= (default "last"):
// per-tag expense totals to pre-fill a new budget.
func (h *BudgetsHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "last"
	}
	start, end, err := service.ResolveWindow(period, time.Time{}, time.Time{}, h.now())
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to resolve suggestion window")
		return
	}
	amounts, err := h.Budgets.Suggestions(r.Context(), middleware.OwnerID(r.Context()), start, end)
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to build budget suggestions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"suggestions": amounts})
}

// Actuals handles GET /api/budget/tags: the per-tag spend rollup for a
// window, independent of any stored budget.
func (h *BudgetsHandler) Actuals(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.window(r)
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to resolve window")
		return
	}
	groups, totalSpent, totalIncome, err := h.Budgets.Actuals(r.Context(), middleware.OwnerID(r.Context()), start, end)
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to build tag rollup")
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "current"
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tagGroups":   groups,
		"totalSpent":  totalSpent,
		"totalIncome": totalIncome,
		"period":      period,
		"startDate":   start.Format(time.RFC3339),
		"endDate":     end.Format(time.RFC3339),
	})
}

// window resolves the period query parameters into an inclusive range.
func (h *BudgetsHandler) window(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	var start, end time.Time
	if raw := q.Get("startDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, service.Invalid(err.Error())
		}
		start = t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, service.Invalid(err.Error())
		}
		end = t
	}
	return service.ResolveWindow(q.Get("period"), start, end, h.now())
}
