package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/financeflow/financeflow/internal/api/middleware"
	"github.com/financeflow/financeflow/internal/csvimport"
	"github.com/financeflow/financeflow/internal/database/repository"
	"github.com/financeflow/financeflow/internal/service"
)

const maxCSVBody = 10 << 20 // 10 MiB

// TransactionsHandler serves the transaction CRUD, bulk and CSV endpoints.
type TransactionsHandler struct {
	Transactions *repository.TransactionRepo
	Importer     *service.Importer
	MaxRows      int
	Log          zerolog.Logger
}

type transactionJSON struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	Tags        []string        `json:"tags"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toTransactionJSON(t repository.Transaction) transactionJSON {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return transactionJSON{
		ID:          t.ID,
		Amount:      t.Amount,
		Currency:    t.Currency,
		Type:        t.Type,
		Description: t.Description,
		Date:        t.Date.UTC().Format(time.RFC3339),
		Tags:        tags,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type transactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	Tags        []string        `json:"tags"`
}

// candidate converts the wire form into an import candidate. An unparseable
// date yields a zero Date, which candidate validation rejects downstream.
func (req transactionRequest) candidate() service.ImportCandidate {
	date, _ := parseDate(req.Date)
	return service.ImportCandidate{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Type:        req.Type,
		Description: req.Description,
		Date:        date,
		Tags:        req.Tags,
	}
}

// List handles GET /api/transactions with limit/offset paging.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.OwnerID(r.Context())

	limit := queryInt(r, "limit", 10)
	offset := queryInt(r, "offset", 0)
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	txs, err := h.Transactions.List(r.Context(), ownerID, repository.TransactionFilters{Limit: limit, Offset: offset})
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to list transactions")
		return
	}
	total, err := h.Transactions.Count(r.Context(), ownerID)
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to count transactions")
		return
	}

	out := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionJSON(t))
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": out,
		"total":        total,
		"limit":        limit,
		"offset":       offset,
	})
}

// Create handles POST /api/transactions.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	t, err := h.Importer.Create(r.Context(), middleware.OwnerID(r.Context()), req.candidate())
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to create transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, toTransactionJSON(*t))
}

// Update handles PUT /api/transactions/{id}.
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	t, err := h.Importer.UpdateOne(r.Context(), middleware.OwnerID(r.Context()), r.PathValue("id"), req.candidate())
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toTransactionJSON(*t))
}

// Delete handles DELETE /api/transactions/{id}.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	found, err := h.Transactions.Delete(r.Context(), middleware.OwnerID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.Log, err, "Failed to delete transaction")
		return
	}
	if !found {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// BulkCreate handles POST /api/transactions/bulk: validated candidates go in,
// a partial-failure summary comes out.
func (h *TransactionsHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transactions []transactionRequest `json:"transactions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Transactions == nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transactions data")
		return
	}
	candidates := make([]service.ImportCandidate, 0, len(req.Transactions))
	for _, t := range req.Transactions {
		candidates = append(candidates, t.candidate())
	}
	result := h.Importer.Import(r.Context(), middleware.OwnerID(r.Context()), candidates)
	middleware.WriteJSON(w, http.StatusOK, result)
}

// BulkDelete handles DELETE /api/transactions/bulk.
func (h *TransactionsHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionIDs []string `json:"transactionIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransactionIDs == nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction IDs")
		return
	}
	result := h.Importer.BulkDelete(r.Context(), middleware.OwnerID(r.Context()), req.TransactionIDs)
	middleware.WriteJSON(w, http.StatusOK, result)
}

type csvCandidateJSON struct {
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	Currency    string          `json:"currency"`
	Tags        []string        `json:"tags"`
	Row         int             `json:"row"`
}

// PreviewCSV handles POST /api/transactions/csv: tokenize, map columns and
// normalize the raw upload without persisting anything. The client reviews
// the candidates and submits the kept ones through the bulk endpoint.
func (h *TransactionsHandler) PreviewCSV(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCSVBody))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read CSV data")
		return
	}
	if len(raw) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Empty CSV data")
		return
	}

	file, parseErrs := csvimport.Parse(string(raw), h.MaxRows)
	cols := csvimport.MapColumns(file.Headers)
	res := csvimport.Normalize(file, cols, h.Importer.DefaultCurrency, nil)

	errs := append([]string{}, parseErrs...)
	errs = append(errs, res.Errors...)
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	candidates := make([]csvCandidateJSON, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		candidates = append(candidates, csvCandidateJSON{
			Amount:      c.Amount,
			Type:        c.Type,
			Description: c.Description,
			Date:        c.Date.Format("2006-01-02"),
			Currency:    c.Currency,
			Tags:        c.Tags,
			Row:         c.Row,
		})
	}

	h.Log.Info().
		Int("candidates", len(candidates)).
		Int("errors", len(errs)).
		Int("warnings", len(warnings)).
		Str("delimiter", string(file.Delimiter)).
		Msg("CSV preview")
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"delimiter":  string(file.Delimiter),
		"headers":    file.Headers,
		"candidates": candidates,
		"errors":     errs,
		"warnings":   warnings,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
