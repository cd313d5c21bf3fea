package journey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"journeybot/internal/logging"
	"journeybot/internal/metrics"
	"journeybot/internal/shared/geo"
	"journeybot/internal/telegram"

	"github.com/goccy/go-json"
)

// Notifier delivers acknowledgement text to the chat an update came from.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Broadcaster fans frames out to live stream subscribers of a journey.
type Broadcaster interface {
	Broadcast(journeyID string, payload []byte)
}

var errAnonymous = errors.New("update has no sender")

// Service is the journey state machine. Per user it is either without an open
// journey or tracking exactly one; storage holds all of that state.
type Service struct {
	store    Store
	notifier Notifier
	hub      Broadcaster
	now      func() time.Time
}

func NewService(store Store, notifier Notifier, hub Broadcaster) *Service {
	return &Service{store: store, notifier: notifier, hub: hub, now: time.Now}
}

// Handle applies one classified update. Only storage failures are returned;
// updates that match no open journey are logged and dropped.
func (s *Service) Handle(ctx context.Context, ev telegram.Event) error {
	metrics.UpdatesTotal.WithLabelValues(ev.Kind.String()).Inc()
	if ev.At.IsZero() {
		ev.At = s.now().UTC()
	}

	switch ev.Kind {
	case telegram.StaticLocation:
		s.notify(ctx, ev.ChatID, fmt.Sprintf("📍 Received static location from %s.\nLatitude: %v\nLongitude: %v", ev.Name, ev.Latitude, ev.Longitude))
		return nil
	case telegram.LiveStart:
		return s.start(ctx, ev)
	case telegram.LiveUpdate:
		return s.update(ctx, ev)
	case telegram.LiveEnd:
		return s.end(ctx, ev)
	default:
		return nil
	}
}

func (s *Service) start(ctx context.Context, ev telegram.Event) error {
	const transition = "live_start"
	if ev.UserID == 0 {
		s.dropped(transition, ev, errAnonymous)
		s.notify(ctx, ev.ChatID, "Sorry, I could not identify you.")
		return nil
	}

	stale, err := s.store.FindOpenJourney(ctx, ev.UserID)
	switch {
	case err == nil:
		// The previous session never delivered its end event.
		logging.Warn().Str("journey_id", stale.ID).Int64("user_id", ev.UserID).Msg("closing stale open journey")
		if _, err := s.finalize(ctx, stale, time.Time{}); err != nil && !errors.Is(err, ErrNoOpenJourney) {
			return s.failed(transition, ev, err)
		}
	case !errors.Is(err, ErrNoOpenJourney):
		return s.failed(transition, ev, fmt.Errorf("find open journey: %w", err))
	}

	id, err := s.store.CreateJourney(ctx, ev.UserID, ev.At)
	if errors.Is(err, ErrJourneyOpen) {
		s.dropped(transition, ev, err)
		return nil
	}
	if err != nil {
		s.notify(ctx, ev.ChatID, "Sorry, I could not start tracking your journey.")
		return s.failed(transition, ev, fmt.Errorf("create journey: %w", err))
	}

	if err := s.store.InsertCoordinate(ctx, coordinateFrom(id, ev)); err != nil {
		// Abandon the journey so later updates are not appended to a trace
		// that lacks its first point.
		if cerr := s.store.CloseJourney(ctx, id, ev.At, nil, nil); cerr != nil {
			logging.Error().Err(cerr).Str("journey_id", id).Msg("failed to abandon journey")
		}
		s.notify(ctx, ev.ChatID, "Sorry, I could not start tracking your journey.")
		return s.failed(transition, ev, fmt.Errorf("insert first coordinate: %w", err))
	}

	metrics.TransitionsTotal.WithLabelValues(transition, "ok").Inc()
	logging.Info().Str("journey_id", id).Int64("user_id", ev.UserID).Msg("journey started")
	s.notify(ctx, ev.ChatID, fmt.Sprintf("📍 Tracking live location for %s.", ev.Name))
	return nil
}

func (s *Service) update(ctx context.Context, ev telegram.Event) error {
	const transition = "live_update"
	open, ok, err := s.openJourney(ctx, transition, ev)
	if !ok {
		return err
	}

	c := coordinateFrom(open.ID, ev)
	if err := s.store.InsertCoordinate(ctx, c); err != nil {
		return s.failed(transition, ev, fmt.Errorf("insert coordinate: %w", err))
	}

	metrics.TransitionsTotal.WithLabelValues(transition, "ok").Inc()
	s.broadcast(open.ID, Frame{Type: "coordinate", Coordinate: &c})
	s.notify(ctx, ev.ChatID, fmt.Sprintf("📍 Updated live location for %s.\nLatitude: %v\nLongitude: %v", ev.Name, ev.Latitude, ev.Longitude))
	return nil
}

func (s *Service) end(ctx context.Context, ev telegram.Event) error {
	const transition = "live_end"
	open, ok, err := s.openJourney(ctx, transition, ev)
	if !ok {
		return err
	}

	if err := s.store.InsertCoordinate(ctx, coordinateFrom(open.ID, ev)); err != nil {
		return s.failed(transition, ev, fmt.Errorf("insert final coordinate: %w", err))
	}

	closed, err := s.finalize(ctx, open, ev.At)
	if errors.Is(err, ErrNoOpenJourney) {
		s.dropped(transition, ev, err)
		return nil
	}
	if err != nil {
		return s.failed(transition, ev, err)
	}

	metrics.TransitionsTotal.WithLabelValues(transition, "ok").Inc()
	logging.Info().Str("journey_id", closed.ID).Int64("user_id", ev.UserID).Msg("journey closed")

	if closed.Distance == nil {
		s.notify(ctx, ev.ChatID, fmt.Sprintf("Live location tracking for %s ended. Not enough data to calculate a trip.", ev.Name))
		return nil
	}
	s.notify(ctx, ev.ChatID, fmt.Sprintf("Live location tracking for %s ended.\nDistance: %.2f km\nAvg. Speed: %.2f m/s",
		ev.Name, *closed.Distance/1000, *closed.AvgSpeed))
	return nil
}

// finalize closes j. A zero end time means the time of the last recorded
// coordinate. Fewer than two coordinates close with null statistics.
func (s *Service) finalize(ctx context.Context, j Journey, end time.Time) (Journey, error) {
	coords, err := s.store.ListCoordinates(ctx, j.ID)
	if err != nil {
		return Journey{}, fmt.Errorf("list coordinates: %w", err)
	}

	if end.IsZero() {
		end = j.StartTime
		if len(coords) > 0 {
			end = coords[len(coords)-1].Timestamp
		}
	}

	var distance, avgSpeed *float64
	if len(coords) >= 2 {
		stats := geo.TripStatistics(samples(coords), j.StartTime)
		distance, avgSpeed = &stats.DistanceM, &stats.AvgSpeedMps
	}

	if err := s.store.CloseJourney(ctx, j.ID, end, distance, avgSpeed); err != nil {
		return Journey{}, fmt.Errorf("close journey: %w", err)
	}

	j.EndTime, j.Distance, j.AvgSpeed = &end, distance, avgSpeed
	s.broadcast(j.ID, Frame{Type: "journey_closed", Journey: &j})
	return j, nil
}

// openJourney resolves the target of an update or end event. ok is false when
// the event must stop here; err is then non-nil only for storage failures.
func (s *Service) openJourney(ctx context.Context, transition string, ev telegram.Event) (Journey, bool, error) {
	if ev.UserID == 0 {
		s.dropped(transition, ev, errAnonymous)
		return Journey{}, false, nil
	}

	open, err := s.store.FindOpenJourney(ctx, ev.UserID)
	if errors.Is(err, ErrNoOpenJourney) {
		s.dropped(transition, ev, err)
		return Journey{}, false, nil
	}
	if err != nil {
		return Journey{}, false, s.failed(transition, ev, fmt.Errorf("find open journey: %w", err))
	}
	return open, true, nil
}

func (s *Service) dropped(transition string, ev telegram.Event, reason error) {
	metrics.TransitionsTotal.WithLabelValues(transition, "dropped").Inc()
	logging.Warn().Err(reason).Str("transition", transition).Int64("user_id", ev.UserID).Int64("update_id", ev.UpdateID).Msg("update dropped")
}

func (s *Service) failed(transition string, ev telegram.Event, err error) error {
	metrics.TransitionsTotal.WithLabelValues(transition, "failed").Inc()
	logging.Error().Err(err).Str("transition", transition).Int64("user_id", ev.UserID).Int64("update_id", ev.UpdateID).Msg("journey transition failed")
	return err
}

func (s *Service) notify(ctx context.Context, chatID int64, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendMessage(ctx, chatID, text); err != nil {
		metrics.NotifyFailuresTotal.Inc()
		logging.Warn().Err(err).Int64("chat_id", chatID).Msg("acknowledgement not delivered")
	}
}

func (s *Service) broadcast(journeyID string, frame Frame) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		logging.Error().Err(err).Str("journey_id", journeyID).Msg("encode stream frame")
		return
	}
	s.hub.Broadcast(journeyID, payload)
}

func coordinateFrom(journeyID string, ev telegram.Event) Coordinate {
	return Coordinate{
		JourneyID:          journeyID,
		Latitude:           ev.Latitude,
		Longitude:          ev.Longitude,
		Timestamp:          ev.At,
		Heading:            ev.Heading,
		HorizontalAccuracy: ev.HorizontalAccuracy,
	}
}

func samples(coords []Coordinate) []geo.Sample {
	out := make([]geo.Sample, len(coords))
	for i, c := range coords {
		out[i] = geo.Sample{Point: geo.Point{Lat: c.Latitude, Lng: c.Longitude}, At: c.Timestamp}
	}
	return out
}
