package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/nvsudo/jodi/internal/extraction"
)

// Interaction directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// RecordInteraction appends one turn to the conversation audit log.
// Extracted data rides along as JSONB for later review.
func (s *Store) RecordInteraction(ctx context.Context, userID, direction, content string, extracted *extraction.Result) error {
	if direction != DirectionInbound && direction != DirectionOutbound {
		return fmt.Errorf("invalid interaction direction %q", direction)
	}

	interactionType := "message"
	if direction == DirectionOutbound {
		interactionType = "response"
	}

	var payload []byte
	if extracted != nil {
		encoded, err := json.Marshal(extracted)
		if err != nil {
			return fmt.Errorf("encode extracted data: %w", err)
		}
		payload = encoded
	} else {
		payload = []byte("{}")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interactions (user_id, direction, content, extracted_data, interaction_type)
		VALUES ($1, $2, $3, $4::jsonb, $5)`,
		userID, direction, content, payload, interactionType)
	if err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}

	s.logger.Debug("interaction recorded",
		zap.String("user_id", userID),
		zap.String("direction", direction),
	)
	return nil
}

// RecentTurns returns the last n logged turns in chronological order,
// shaped for the extraction history window.
func (s *Store) RecentTurns(ctx context.Context, userID string, limit int) ([]extraction.Turn, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT direction, COALESCE(content, '')
		FROM interactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent turns: %w", err)
	}
	defer rows.Close()

	var reversed []extraction.Turn
	for rows.Next() {
		var direction, content string
		if err := rows.Scan(&direction, &content); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}

		role := "user"
		if direction == DirectionOutbound {
			role = "assistant"
		}
		reversed = append(reversed, extraction.Turn{Role: role, Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load recent turns: %w", err)
	}

	turns := make([]extraction.Turn, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		turns = append(turns, reversed[i])
	}
	return turns, nil
}
