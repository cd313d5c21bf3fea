package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"journeybot/internal/journey"
	"journeybot/internal/telegram"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

type recordingHandler struct {
	events []telegram.Event
	err    error
}

func (h *recordingHandler) Handle(_ context.Context, ev telegram.Event) error {
	h.events = append(h.events, ev)
	return h.err
}

func post(t *testing.T, app *fiber.App, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/update", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(raw)
}

const liveStartBody = `{"update_id":1,"message":{"message_id":10,"date":1700000000,
	"from":{"id":7,"first_name":"Ada"},"chat":{"id":42,"type":"private"},
	"location":{"latitude":52.52,"longitude":13.405,"live_period":900}}}`

func TestUpdateAccepted(t *testing.T) {
	h := &recordingHandler{}
	app := fiber.New()
	RegisterRoutes(app, h)

	status, body := post(t, app, liveStartBody)
	if status != http.StatusOK || body != "OK" {
		t.Fatalf("unexpected response %d %q", status, body)
	}
	if len(h.events) != 1 || h.events[0].Kind != telegram.LiveStart || h.events[0].UserID != 7 {
		t.Fatalf("unexpected events %+v", h.events)
	}
}

func TestUpdateWithoutLocationIsAcknowledged(t *testing.T) {
	h := &recordingHandler{}
	app := fiber.New()
	RegisterRoutes(app, h)

	status, _ := post(t, app, `{"update_id":2,"message":{"message_id":11,"date":1700000000,"chat":{"id":42,"type":"private"},"text":"hi"}}`)
	if status != http.StatusOK {
		t.Fatalf("expected ok, got %d", status)
	}
	if h.events[0].Kind != telegram.Ignored {
		t.Fatalf("expected ignored disposition")
	}
}

func TestUpdateRejectsMalformed(t *testing.T) {
	h := &recordingHandler{}
	app := fiber.New()
	RegisterRoutes(app, h)

	for _, body := range []string{
		`not json`,
		`{"update_id":3,"message":{"message_id":12,"date":1700000000,"chat":{"type":"private"}}}`,
		`{"update_id":4,"message":{"message_id":13,"date":1700000000,"chat":{"id":42,"type":"private"},"location":{"latitude":"north","longitude":1}}}`,
	} {
		status, text := post(t, app, body)
		if status != http.StatusBadRequest || !strings.HasPrefix(text, "Bad Request") {
			t.Fatalf("%s: unexpected response %d %q", body, status, text)
		}
	}
	if len(h.events) != 0 {
		t.Fatalf("malformed updates must not reach the state machine")
	}
}

func TestUpdateProcessingFailure(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app, &recordingHandler{err: errors.New("db down")})

	status, body := post(t, app, liveStartBody)
	if status != http.StatusInternalServerError || body != "Internal Server Error" {
		t.Fatalf("unexpected response %d %q", status, body)
	}
}

func TestUpdateEndWithoutOpenJourney(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM journeys\s+WHERE user_id=\$1 AND end_time IS NULL`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "start_time"}))

	app := fiber.New()
	RegisterRoutes(app, journey.NewService(journey.NewStore(mock), nil, nil))

	status, body := post(t, app, `{"update_id":5,"edited_message":{"message_id":10,"date":1700000000,"edit_date":1700000300,
		"from":{"id":7,"first_name":"Ada"},"chat":{"id":42,"type":"private"},
		"location":{"latitude":52.53,"longitude":13.41}}}`)
	if status != http.StatusOK || body != "OK" {
		t.Fatalf("unexpected response %d %q", status, body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
