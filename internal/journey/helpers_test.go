package journey

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
)

var errQuery = errors.New("query error")

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

type floatNear struct{ want, tol float64 }

func (m floatNear) Match(v any) bool {
	p, ok := v.(*float64)
	return ok && p != nil && math.Abs(*p-m.want) <= m.tol
}

type nilFloat struct{}

func (nilFloat) Match(v any) bool {
	p, ok := v.(*float64)
	return ok && p == nil
}

var (
	journeyCols    = []string{"id", "user_id", "start_time", "end_time", "distance", "avg_speed"}
	openCols       = []string{"id", "user_id", "start_time"}
	coordinateCols = []string{"id", "journey_id", "latitude", "longitude", "recorded_at", "heading", "horizontal_accuracy"}
)

const (
	findOpenSQL        = `FROM journeys\s+WHERE user_id=\$1 AND end_time IS NULL`
	listCoordinatesSQL = `FROM coordinates WHERE journey_id=\$1\s+ORDER BY recorded_at ASC, id ASC\s*$`
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) SendMessage(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return f.err
}

func (f *fakeNotifier) last(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatalf("expected a sent message")
	}
	return f.sent[len(f.sent)-1].text
}

type fakeHub struct {
	mu     sync.Mutex
	frames map[string][][]byte
}

func (h *fakeHub) Broadcast(journeyID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.frames == nil {
		h.frames = map[string][][]byte{}
	}
	h.frames[journeyID] = append(h.frames[journeyID], payload)
}

func (h *fakeHub) count(journeyID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames[journeyID])
}

var baseTime = time.Unix(1700000000, 0).UTC()
