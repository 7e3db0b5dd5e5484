package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/financeflow/financeflow/internal/api/handlers"
	"github.com/financeflow/financeflow/internal/database"
	"github.com/financeflow/financeflow/internal/database/repository"
	"github.com/financeflow/financeflow/internal/service"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrations(db))

	txRepo := repository.NewTransactionRepo(db)
	registry := &service.TagRegistry{
		Tags:         repository.NewTagRepo(db),
		Transactions: txRepo,
		Colors:       repository.NewColorOverrideRepo(db),
		Log:          zerolog.Nop(),
	}
	importer := &service.Importer{Transactions: txRepo, Registry: registry, DefaultCurrency: "USD", Log: zerolog.Nop()}
	budgets := &service.BudgetService{Budgets: repository.NewBudgetRepo(db), Transactions: txRepo, Log: zerolog.Nop()}

	router := NewRouter(zerolog.Nop(),
		&handlers.TransactionsHandler{Transactions: txRepo, Importer: importer, MaxRows: 100, Log: zerolog.Nop()},
		&handlers.TagsHandler{Registry: registry, Log: zerolog.Nop()},
		&handlers.BudgetsHandler{Budgets: budgets, Log: zerolog.Nop()},
		&handlers.AccountHandler{Maintenance: &service.MaintenanceService{DB: db, Log: zerolog.Nop()}, Log: zerolog.Nop()},
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, owner string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if owner != "" {
		req.Header.Set("X-User-ID", owner)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestRouter_RequiresOwner(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	resp, body := do(t, srv, http.MethodGet, "/api/transactions", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Unauthorized", body["error"])

	resp, _ = do(t, srv, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_CSVPreviewThenImportThenReport(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	csv := "Date,Amount,Description,Type\n" +
		"2026-03-05,100.50,Groceries,expense\n" +
		"2026-03-06,50.00,Refund,income\n" +
		"2026-03-07,oops,Broken,expense\n"

	resp, preview := do(t, srv, http.MethodPost, "/api/transactions/csv", "alice", csv)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, ",", preview["delimiter"])
	candidates := preview["candidates"].([]interface{})
	require.Len(t, candidates, 2)
	require.Len(t, preview["errors"].([]interface{}), 1)

	// The client tags the kept candidates and submits them for creation.
	var txs []map[string]interface{}
	for _, c := range candidates {
		m := c.(map[string]interface{})
		m["tags"] = []string{"Food"}
		txs = append(txs, m)
	}
	resp, created := do(t, srv, http.MethodPost, "/api/transactions/bulk", "alice",
		map[string]interface{}{"transactions": txs})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(2), created["created"])
	require.Empty(t, created["errors"])

	resp, budget := do(t, srv, http.MethodPost, "/api/budgets", "alice", map[string]interface{}{
		"name":  "March",
		"items": []map[string]interface{}{{"tag": "Food", "amount": "80"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	budgetID := budget["id"].(string)

	resp, report := do(t, srv, http.MethodGet,
		"/api/budgets/"+budgetID+"/report?period=custom&startDate=2026-03-01&endDate=2026-03-31", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := report["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	require.Equal(t, "50.5", item["outstanding"])
	require.Equal(t, "63.125", item["percentage"])
	require.Equal(t, "ok", item["status"])
}

func TestRouter_TransactionCRUD(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	resp, tx := do(t, srv, http.MethodPost, "/api/transactions", "alice", map[string]interface{}{
		"amount":      "42.00",
		"type":        "EXPENSE",
		"description": "Coffee",
		"date":        "2026-03-05",
		"tags":        []string{"Coffee"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := tx["id"].(string)

	resp, list := do(t, srv, http.MethodGet, "/api/transactions", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(1), list["total"])

	// Other owners see nothing and cannot delete it.
	resp, list = do(t, srv, http.MethodGet, "/api/transactions", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(0), list["total"])
	resp, _ = do(t, srv, http.MethodDelete, "/api/transactions/"+id, "bob", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, updated := do(t, srv, http.MethodPut, "/api/transactions/"+id, "alice", map[string]interface{}{
		"amount":      "45.00",
		"type":        "EXPENSE",
		"description": "Coffee beans",
		"date":        "2026-03-05",
		"tags":        []string{"Coffee"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Coffee beans", updated["description"])

	resp, _ = do(t, srv, http.MethodDelete, "/api/transactions/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_TagLifecycle(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	resp, tag := do(t, srv, http.MethodPost, "/api/tags", "alice", map[string]string{"name": "Food"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := tag["id"].(string)

	resp, _ = do(t, srv, http.MethodPost, "/api/tags", "alice", map[string]string{"name": "Food"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPut, "/api/tags/Food/color", "alice", map[string]string{"color": "#123456"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, list := do(t, srv, http.MethodGet, "/api/tags", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tags := list["tags"].([]interface{})
	require.Len(t, tags, 1)
	require.Equal(t, "#123456", tags[0].(map[string]interface{})["color"])

	resp, renamed := do(t, srv, http.MethodPut, "/api/tags/"+id, "alice", map[string]string{"name": "Meals"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Meals", renamed["name"])

	resp, deleted := do(t, srv, http.MethodDelete, "/api/tags/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, deleted["success"])
	require.Equal(t, "Meals", deleted["deletedTag"])
}

func TestRouter_ValidationErrors(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	resp, body := do(t, srv, http.MethodPost, "/api/budgets", "alice", map[string]interface{}{
		"name": "", "items": []map[string]interface{}{{"tag": "Food", "amount": "1"}},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.True(t, strings.Contains(body["error"].(string), "budget name"))

	resp, _ = do(t, srv, http.MethodPost, "/api/transactions/bulk", "alice", map[string]interface{}{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPut, "/api/budgets/nope", "alice", map[string]interface{}{
		"name": "X", "items": []map[string]interface{}{{"tag": "Food", "amount": "1"}},
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_AccountReset(t *testing.T) {
	t.Parallel()
	srv := setupServer(t)

	resp, _ := do(t, srv, http.MethodPost, "/api/transactions", "alice", map[string]interface{}{
		"amount": "10", "type": "EXPENSE", "description": "Coffee", "date": "2026-03-05", "tags": []string{"Coffee"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodPost, "/api/transactions", "bob", map[string]interface{}{
		"amount": "10", "type": "EXPENSE", "description": "Tea", "date": "2026-03-05",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, srv, http.MethodDelete, "/api/account/data", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])

	_, list := do(t, srv, http.MethodGet, "/api/transactions", "alice", nil)
	require.Equal(t, float64(0), list["total"])
	// Other owners are untouched.
	_, list = do(t, srv, http.MethodGet, "/api/transactions", "bob", nil)
	require.Equal(t, float64(1), list["total"])
}
