package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/financeflow/financeflow/internal/database/repository"
)

// tagPalette is the fixed set of distinguishable default colors. A tag name
// always hashes to the same entry, independent of creation order.
var tagPalette = []string{
	"#6366f1", // indigo
	"#06b6d4", // cyan
	"#10b981", // emerald
	"#f59e0b", // amber
	"#8b5cf6", // violet
	"#ef4444", // red
	"#84cc16", // lime
	"#f97316", // orange
	"#0ea5e9", // sky
	"#ec4899", // pink
	"#14b8a6", // teal
	"#f43f5e", // rose
	"#a855f7", // purple
	"#22c55e", // green
	"#eab308", // yellow
	"#3b82f6", // blue
}

// DefaultTagColor reduces a deterministic hash of the name into the palette.
func DefaultTagColor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return tagPalette[int(h.Sum32())%len(tagPalette)]
}

// TagColors returns the palette offered for manual color picks.
func TagColors() []string {
	out := make([]string, len(tagPalette))
	copy(out, tagPalette)
	return out
}

// TagRegistry resolves tag names to canonical tag records, creating them
// lazily on first use. Resolution is idempotent under concurrent creation of
// the same name.
type TagRegistry struct {
	Tags         *repository.TagRepo
	Transactions *repository.TransactionRepo
	Colors       *repository.ColorOverrideRepo
	Log          zerolog.Logger
}

// Resolve returns the canonical tag for (owner, trimmed name), creating it
// with a palette color on first use. The boolean reports whether a new tag
// was created. When a concurrent create wins the uniqueness race, the winner
// is returned instead of the conflict.
func (s *TagRegistry) Resolve(ctx context.Context, ownerID, name string) (*repository.Tag, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, fmt.Errorf("%w: tag name is required", ErrValidation)
	}
	existing, err := s.Tags.ByName(ctx, ownerID, name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	tag := repository.Tag{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Name:    name,
		Color:   DefaultTagColor(name),
	}
	if err := s.Tags.Insert(ctx, tag); err != nil {
		if repository.IsConflict(err) {
			// Lost the race; the winner is equivalent.
			winner, lookupErr := s.Tags.ByName(ctx, ownerID, name)
			return winner, false, lookupErr
		}
		return nil, false, err
	}
	return &tag, true, nil
}

// Rename updates the tag's name only. Historical transactions keep the old
// name in their tags arrays; treating them as immutable snapshots keeps past
// budget reports stable.
func (s *TagRegistry) Rename(ctx context.Context, ownerID, id, name string) (*repository.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tag name is required", ErrValidation)
	}
	existing, err := s.Tags.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	conflict, err := s.Tags.ByName(ctx, ownerID, name)
	if err != nil {
		return nil, err
	}
	if conflict != nil && conflict.ID != id {
		return nil, fmt.Errorf("%w: a tag with this name already exists", ErrValidation)
	}
	if _, err := s.Tags.Rename(ctx, ownerID, id, name); err != nil {
		return nil, err
	}
	existing.Name = name
	return existing, nil
}

// DeleteResult reports the outcome of a tag delete with its sweep.
type DeleteResult struct {
	DeletedTag          string
	UpdatedTransactions int
}

// Delete removes the tag record, then sweeps every owned transaction that
// still carries the name and rewrites its tags array. The sweep is retried
// with exponential backoff; an interrupted sweep leaves dangling names,
// which is recoverable (budget items tolerate names with no transactions).
func (s *TagRegistry) Delete(ctx context.Context, ownerID, id string) (DeleteResult, error) {
	tag, err := s.Tags.Get(ctx, ownerID, id)
	if err != nil {
		return DeleteResult{}, err
	}
	if tag == nil {
		return DeleteResult{}, ErrNotFound
	}
	if _, err := s.Tags.Delete(ctx, ownerID, id); err != nil {
		return DeleteResult{}, err
	}

	updated := 0
	sweep := func() error {
		txs, err := s.Transactions.ListByTag(ctx, ownerID, tag.Name)
		if err != nil {
			return err
		}
		for _, t := range txs {
			remaining := make([]string, 0, len(t.Tags))
			for _, name := range t.Tags {
				if name != tag.Name {
					remaining = append(remaining, name)
				}
			}
			if err := s.Transactions.RewriteTags(ctx, ownerID, t.ID, remaining); err != nil {
				return err
			}
			updated++
		}
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(sweep, policy); err != nil {
		s.Log.Error().Err(err).Str("tag", tag.Name).Msg("tag delete sweep incomplete")
		return DeleteResult{DeletedTag: tag.Name, UpdatedTransactions: updated}, err
	}
	return DeleteResult{DeletedTag: tag.Name, UpdatedTransactions: updated}, nil
}

// Search lists owned tags matching the query as a case-insensitive
// substring. When nothing contains the query, near matches within a small
// edit distance are offered instead, closest first.
func (s *TagRegistry) Search(ctx context.Context, ownerID, query string) ([]repository.Tag, error) {
	query = strings.TrimSpace(query)
	tags, err := s.Tags.List(ctx, ownerID, query)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 || query == "" {
		return tags, nil
	}

	all, err := s.Tags.List(ctx, ownerID, "")
	if err != nil {
		return nil, err
	}
	const maxDistance = 2
	type scored struct {
		tag  repository.Tag
		dist int
	}
	var near []scored
	for _, t := range all {
		d := levenshtein.ComputeDistance(strings.ToLower(query), strings.ToLower(t.Name))
		if d <= maxDistance {
			near = append(near, scored{tag: t, dist: d})
		}
	}
	sort.SliceStable(near, func(i, j int) bool { return near[i].dist < near[j].dist })
	out := make([]repository.Tag, 0, len(near))
	for _, n := range near {
		out = append(out, n.tag)
	}
	return out, nil
}

// DisplayColor resolves the color shown for a tag name: a per-owner override
// wins over the canonical tag color.
func (s *TagRegistry) DisplayColor(ctx context.Context, ownerID, tagName string) (string, error) {
	if override, err := s.Colors.Get(ctx, ownerID, tagName); err != nil {
		return "", err
	} else if override != "" {
		return override, nil
	}
	tag, err := s.Tags.ByName(ctx, ownerID, tagName)
	if err != nil {
		return "", err
	}
	if tag != nil {
		return tag.Color, nil
	}
	return DefaultTagColor(tagName), nil
}

// SetColorOverride records a display-only color for (owner, tag name).
func (s *TagRegistry) SetColorOverride(ctx context.Context, ownerID, tagName, color string) error {
	if strings.TrimSpace(color) == "" {
		return fmt.Errorf("%w: color is required", ErrValidation)
	}
	return s.Colors.Set(ctx, ownerID, tagName, color)
}

// ClearColorOverride restores the canonical color for (owner, tag name).
func (s *TagRegistry) ClearColorOverride(ctx context.Context, ownerID, tagName string) error {
	return s.Colors.Remove(ctx, ownerID, tagName)
}
