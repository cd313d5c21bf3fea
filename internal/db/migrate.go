package db

import (
	"context"
	"fmt"
)

// OpenJourneyIndex enforces at most one open journey per user.
const OpenJourneyIndex = "journeys_one_open_per_user"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS journeys (
		id UUID PRIMARY KEY,
		user_id BIGINT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ,
		distance DOUBLE PRECISION,
		avg_speed DOUBLE PRECISION
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + OpenJourneyIndex + ` ON journeys (user_id) WHERE end_time IS NULL`,
	`CREATE INDEX IF NOT EXISTS journeys_user_start_idx ON journeys (user_id, start_time DESC)`,
	`CREATE TABLE IF NOT EXISTS coordinates (
		id BIGSERIAL PRIMARY KEY,
		journey_id UUID NOT NULL REFERENCES journeys(id) ON DELETE CASCADE,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL,
		heading INTEGER,
		horizontal_accuracy DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS coordinates_journey_recorded_idx ON coordinates (journey_id, recorded_at)`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
