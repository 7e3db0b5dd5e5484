package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/financeflow/financeflow/internal/database/repository"
)

const (
	defaultImportBatchSize = 10
	deleteBatchSize        = 50
)

// ImportCandidate is one transaction awaiting creation, either normalized
// from a CSV row or supplied directly by the API.
type ImportCandidate struct {
	Amount      decimal.Decimal
	Currency    string
	Type        string
	Description string
	Date        time.Time
	Tags        []string
}

// ImportResult is the partial-failure summary of a bulk import.
type ImportResult struct {
	Success bool     `json:"success"`
	Created int      `json:"created"`
	Errors  []string `json:"errors"`
	Total   int      `json:"total"`
}

// BulkDeleteResult mirrors ImportResult for bulk deletes.
type BulkDeleteResult struct {
	Success bool     `json:"success"`
	Deleted int      `json:"deleted"`
	Errors  []string `json:"errors"`
	Total   int      `json:"total"`
}

// Importer creates transactions in bounded batches, collecting per-candidate
// failures instead of aborting. Within a chunk candidates run concurrently;
// chunks run one after another to bound peak load on the record store.
type Importer struct {
	Transactions    *repository.TransactionRepo
	Registry        *TagRegistry
	BatchSize       int
	DefaultCurrency string
	Log             zerolog.Logger
}

// Import processes candidates chunk by chunk. One candidate failing records
// an indexed error and never blocks the rest of its chunk or later chunks.
func (s *Importer) Import(ctx context.Context, ownerID string, candidates []ImportCandidate) ImportResult {
	batch := s.BatchSize
	if batch <= 0 {
		batch = defaultImportBatchSize
	}

	var mu sync.Mutex
	created := 0
	slots := make([]string, len(candidates))

	for start := 0; start < len(candidates); start += batch {
		end := start + batch
		if end > len(candidates) {
			end = len(candidates)
		}
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int, c ImportCandidate) {
				defer wg.Done()
				if err := s.importOne(ctx, ownerID, c); err != nil {
					mu.Lock()
					slots[idx] = fmt.Sprintf("Transaction %d: %v", idx+1, err)
					mu.Unlock()
					return
				}
				mu.Lock()
				created++
				mu.Unlock()
			}(i, candidates[i])
		}
		wg.Wait()
	}

	// Concurrent completion order is arbitrary; report errors in input order.
	errs := []string{}
	for _, msg := range slots {
		if msg != "" {
			errs = append(errs, msg)
		}
	}
	s.Log.Info().Int("created", created).Int("total", len(candidates)).Int("errors", len(errs)).Msg("bulk import finished")
	return ImportResult{Success: true, Created: created, Errors: errs, Total: len(candidates)}
}

func (s *Importer) importOne(ctx context.Context, ownerID string, c ImportCandidate) error {
	_, err := s.Create(ctx, ownerID, c)
	return err
}

// Create validates and inserts a single transaction, resolving its tags
// through the registry. Used by both the bulk importer and direct creation.
func (s *Importer) Create(ctx context.Context, ownerID string, c ImportCandidate) (*repository.Transaction, error) {
	if err := validateCandidate(c); err != nil {
		return nil, err
	}
	tags, err := s.resolveTags(ctx, ownerID, c.Tags)
	if err != nil {
		return nil, err
	}
	t := repository.Transaction{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Amount:      c.Amount,
		Currency:    s.currencyOrDefault(c.Currency),
		Type:        c.Type,
		Description: c.Description,
		Date:        c.Date.UTC(),
		Tags:        tags,
	}
	if err := s.Transactions.Insert(ctx, t); err != nil {
		return nil, err
	}
	return s.Transactions.Get(ctx, ownerID, t.ID)
}

// UpdateOne rewrites an owned transaction, re-resolving its tag list. A
// foreign or missing id reports ErrNotFound.
func (s *Importer) UpdateOne(ctx context.Context, ownerID, id string, c ImportCandidate) (*repository.Transaction, error) {
	if err := validateCandidate(c); err != nil {
		return nil, err
	}
	tags, err := s.resolveTags(ctx, ownerID, c.Tags)
	if err != nil {
		return nil, err
	}
	found, err := s.Transactions.Update(ctx, repository.Transaction{
		ID:          id,
		OwnerID:     ownerID,
		Amount:      c.Amount,
		Currency:    s.currencyOrDefault(c.Currency),
		Type:        c.Type,
		Description: c.Description,
		Date:        c.Date.UTC(),
		Tags:        tags,
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return s.Transactions.Get(ctx, ownerID, id)
}

func validateCandidate(c ImportCandidate) error {
	if c.Amount.IsZero() || c.Type == "" || c.Description == "" || c.Date.IsZero() {
		return fmt.Errorf("missing required fields")
	}
	if c.Amount.IsNegative() {
		return fmt.Errorf("amount must not be negative")
	}
	if c.Type != repository.TypeIncome && c.Type != repository.TypeExpense {
		return fmt.Errorf("unknown type %q", c.Type)
	}
	return nil
}

// resolveTags builds the canonical tag list from registry results, not the
// raw input strings, dropping duplicates while preserving first-seen order.
// Empty names are silently skipped.
func (s *Importer) resolveTags(ctx context.Context, ownerID string, raw []string) ([]string, error) {
	var tags []string
	seen := make(map[string]bool)
	for _, name := range raw {
		tag, _, err := s.Registry.Resolve(ctx, ownerID, name)
		if err != nil {
			if isValidationErr(err) {
				continue
			}
			return nil, err
		}
		if !seen[tag.Name] {
			seen[tag.Name] = true
			tags = append(tags, tag.Name)
		}
	}
	return tags, nil
}

func (s *Importer) currencyOrDefault(currency string) string {
	if currency != "" {
		return currency
	}
	if s.DefaultCurrency != "" {
		return s.DefaultCurrency
	}
	return "USD"
}

// BulkDelete removes owned transactions in batches. Ids not owned by the
// caller simply do not count toward Deleted; a failing batch records one
// error and later batches still run.
func (s *Importer) BulkDelete(ctx context.Context, ownerID string, ids []string) BulkDeleteResult {
	deleted := 0
	errs := []string{}
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		n, err := s.Transactions.DeleteBatch(ctx, ownerID, ids[start:end])
		if err != nil {
			s.Log.Error().Err(err).Int("batch", start/deleteBatchSize+1).Msg("bulk delete batch failed")
			errs = append(errs, fmt.Sprintf("Failed to delete batch %d", start/deleteBatchSize+1))
			continue
		}
		deleted += int(n)
	}
	return BulkDeleteResult{Success: true, Deleted: deleted, Errors: errs, Total: len(ids)}
}
