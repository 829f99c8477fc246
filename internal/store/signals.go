package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nvsudo/jodi/internal/signal"
)

// UpsertSignals merges incoming signals into the category column and
// returns the merged batch. The read-merge-write runs inside a
// transaction with the row locked, so concurrent turns cannot lose a
// higher-confidence value. Category names become identifiers, so they
// are checked against the known set before any SQL is built.
func (s *Store) UpsertSignals(ctx context.Context, userID, category string, incoming signal.Batch) (signal.Batch, error) {
	if !signal.ValidCategory(category) {
		return nil, fmt.Errorf("invalid signal category %q", category)
	}

	if err := s.CreateUser(ctx, userID); err != nil {
		return nil, err
	}

	column := pq.QuoteIdentifier(category)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin signals upsert: %w", err)
	}
	defer tx.Rollback()

	var raw []byte
	query := fmt.Sprintf(
		"SELECT COALESCE(%s, '{}'::jsonb) FROM user_signals WHERE user_id = $1 FOR UPDATE",
		column)
	err = tx.QueryRowContext(ctx, query, userID).Scan(&raw)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %s signals: %w", category, err)
	}

	existing := signal.Batch{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &existing); err != nil {
			return nil, fmt.Errorf("decode %s signals: %w", category, err)
		}
	}

	merged := signal.Merge(existing, stampBatch(incoming, time.Now().UTC()))

	payload, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode %s signals: %w", category, err)
	}

	upsert := fmt.Sprintf(`
		INSERT INTO user_signals (user_id, %s) VALUES ($1, $2::jsonb)
		ON CONFLICT (user_id) DO UPDATE SET %s = EXCLUDED.%s, updated_at = now()`,
		column, column, column)
	if _, err := tx.ExecContext(ctx, upsert, userID, payload); err != nil {
		return nil, fmt.Errorf("upsert %s signals: %w", category, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit signals upsert: %w", err)
	}

	s.logger.Debug("signals merged",
		zap.String("user_id", userID),
		zap.String("category", category),
		zap.Int("incoming", len(incoming)),
		zap.Int("stored", len(merged)),
	)
	return merged, nil
}

// GetSignals returns every non-empty category batch for the user.
func (s *Store) GetSignals(ctx context.Context, userID string) (map[string]signal.Batch, error) {
	columns := make([]string, len(signal.Categories))
	for i, category := range signal.Categories {
		columns[i] = fmt.Sprintf("COALESCE(%s, '{}'::jsonb)", pq.QuoteIdentifier(category))
	}

	query := fmt.Sprintf("SELECT %s FROM user_signals WHERE user_id = $1",
		strings.Join(columns, ", "))

	raws := make([][]byte, len(signal.Categories))
	dest := make([]any, len(signal.Categories))
	for i := range raws {
		dest[i] = &raws[i]
	}

	err := s.db.QueryRowContext(ctx, query, userID).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]signal.Batch{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}

	signals := make(map[string]signal.Batch, len(signal.Categories))
	for i, category := range signal.Categories {
		if len(raws[i]) == 0 {
			continue
		}
		batch := signal.Batch{}
		if err := json.Unmarshal(raws[i], &batch); err != nil {
			return nil, fmt.Errorf("decode %s signals: %w", category, err)
		}
		if len(batch) > 0 {
			signals[category] = batch
		}
	}
	return signals, nil
}

// stampBatch copies the batch, filling UpdatedAt where the extractor
// left it blank. The input is never mutated.
func stampBatch(batch signal.Batch, now time.Time) signal.Batch {
	stamp := now.Format(time.RFC3339)

	stamped := make(signal.Batch, len(batch))
	for field, sig := range batch {
		if sig.UpdatedAt == "" {
			sig.UpdatedAt = stamp
		}
		stamped[field] = sig
	}
	return stamped
}
