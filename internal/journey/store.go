package journey

import (
	"context"
	"errors"
	"time"

	"journeybot/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNoOpenJourney = errors.New("no open journey")
	ErrJourneyOpen   = errors.New("user already has an open journey")
	ErrNotFound      = errors.New("journey not found")
)

// Store is what the state machine needs from persistence.
type Store interface {
	CreateJourney(ctx context.Context, userID int64, start time.Time) (string, error)
	InsertCoordinate(ctx context.Context, c Coordinate) error
	FindOpenJourney(ctx context.Context, userID int64) (Journey, error)
	ListCoordinates(ctx context.Context, journeyID string) ([]Coordinate, error)
	CloseJourney(ctx context.Context, journeyID string, end time.Time, distance, avgSpeed *float64) error
}

// Reader backs the read API. Every query is scoped by user.
type Reader interface {
	ListJourneys(ctx context.Context, userID int64, page Page) ([]Journey, error)
	GetJourney(ctx context.Context, userID int64, id string) (Journey, error)
	ListCoordinatesPage(ctx context.Context, journeyID string, page Page) ([]Coordinate, error)
}

type PGStore struct {
	db db.Querier
}

func NewStore(db db.Querier) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) CreateJourney(ctx context.Context, userID int64, start time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO journeys (id, user_id, start_time)
		VALUES ($1,$2,$3)
	`, id, userID, start)
	if db.IsUniqueViolation(err, db.OpenJourneyIndex) {
		return "", ErrJourneyOpen
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *PGStore) InsertCoordinate(ctx context.Context, c Coordinate) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO coordinates (journey_id, latitude, longitude, recorded_at, heading, horizontal_accuracy)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, c.JourneyID, c.Latitude, c.Longitude, c.Timestamp, c.Heading, c.HorizontalAccuracy)
	return err
}

func (s *PGStore) FindOpenJourney(ctx context.Context, userID int64) (Journey, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id::text, user_id, start_time
		FROM journeys
		WHERE user_id=$1 AND end_time IS NULL
		ORDER BY start_time DESC
		LIMIT 1
	`, userID)

	var j Journey
	if err := row.Scan(&j.ID, &j.UserID, &j.StartTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Journey{}, ErrNoOpenJourney
		}
		return Journey{}, err
	}
	return j, nil
}

func (s *PGStore) ListCoordinates(ctx context.Context, journeyID string) ([]Coordinate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, journey_id::text, latitude, longitude, recorded_at, heading, horizontal_accuracy
		FROM coordinates WHERE journey_id=$1
		ORDER BY recorded_at ASC, id ASC
	`, journeyID)
	if err != nil {
		return nil, err
	}
	return scanCoordinates(rows)
}

// CloseJourney sets the end fields exactly once; closing a journey that is
// already closed reports ErrNoOpenJourney.
func (s *PGStore) CloseJourney(ctx context.Context, journeyID string, end time.Time, distance, avgSpeed *float64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE journeys
		SET end_time=$2, distance=$3, avg_speed=$4
		WHERE id=$1 AND end_time IS NULL
	`, journeyID, end, distance, avgSpeed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoOpenJourney
	}
	return nil
}

func (s *PGStore) ListJourneys(ctx context.Context, userID int64, page Page) ([]Journey, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, user_id, start_time, end_time, distance, avg_speed
		FROM journeys WHERE user_id=$1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	journeys := []Journey{}
	for rows.Next() {
		var j Journey
		if err := rows.Scan(&j.ID, &j.UserID, &j.StartTime, &j.EndTime, &j.Distance, &j.AvgSpeed); err != nil {
			return nil, err
		}
		journeys = append(journeys, j)
	}
	return journeys, rows.Err()
}

func (s *PGStore) GetJourney(ctx context.Context, userID int64, id string) (Journey, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id::text, user_id, start_time, end_time, distance, avg_speed
		FROM journeys WHERE id=$1 AND user_id=$2
	`, id, userID)

	var j Journey
	if err := row.Scan(&j.ID, &j.UserID, &j.StartTime, &j.EndTime, &j.Distance, &j.AvgSpeed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Journey{}, ErrNotFound
		}
		return Journey{}, err
	}
	return j, nil
}

func (s *PGStore) ListCoordinatesPage(ctx context.Context, journeyID string, page Page) ([]Coordinate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, journey_id::text, latitude, longitude, recorded_at, heading, horizontal_accuracy
		FROM coordinates WHERE journey_id=$1
		ORDER BY recorded_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`, journeyID, page.Limit, page.Offset())
	if err != nil {
		return nil, err
	}
	return scanCoordinates(rows)
}

func scanCoordinates(rows pgx.Rows) ([]Coordinate, error) {
	defer rows.Close()

	coords := []Coordinate{}
	for rows.Next() {
		var c Coordinate
		if err := rows.Scan(&c.ID, &c.JourneyID, &c.Latitude, &c.Longitude, &c.Timestamp, &c.Heading, &c.HorizontalAccuracy); err != nil {
			return nil, err
		}
		coords = append(coords, c)
	}
	return coords, rows.Err()
}
