package telegram

import "time"

// Kind is the disposition of an inbound update.
type Kind int

const (
	Ignored Kind = iota
	StaticLocation
	LiveStart
	LiveUpdate
	LiveEnd
)

func (k Kind) String() string {
	switch k {
	case StaticLocation:
		return "static_location"
	case LiveStart:
		return "live_start"
	case LiveUpdate:
		return "live_update"
	case LiveEnd:
		return "live_end"
	default:
		return "ignored"
	}
}

// Event is a classified update. UserID is zero when the message has no sender.
type Event struct {
	Kind     Kind
	UpdateID int64
	ChatID   int64
	UserID   int64
	Name     string

	Latitude           float64
	Longitude          float64
	Heading            *int
	HorizontalAccuracy *float64
	LivePeriod         int

	At time.Time
}

// Classify maps a validated update to exactly one disposition. The end of a
// live session carries no explicit signal: it is an edited message whose
// location lost its live_period.
func Classify(u Update) Event {
	msg, edited := u.Message, false
	if msg == nil {
		msg, edited = u.EditedMessage, true
	}
	if msg == nil {
		return Event{Kind: Ignored, UpdateID: deref(u.UpdateID)}
	}

	ev := Event{
		UpdateID: deref(u.UpdateID),
		Name:     msg.From.DisplayName(),
		At:       msg.EventTime(),
	}
	if msg.Chat != nil {
		ev.ChatID = deref(msg.Chat.ID)
	}
	if msg.From != nil {
		ev.UserID = deref(msg.From.ID)
	}

	loc := msg.Location
	if loc == nil {
		ev.Kind = Ignored
		return ev
	}
	ev.Latitude = deref(loc.Latitude)
	ev.Longitude = deref(loc.Longitude)
	ev.Heading = loc.Heading
	ev.HorizontalAccuracy = loc.HorizontalAccuracy
	ev.LivePeriod = deref(loc.LivePeriod)

	live := loc.LivePeriod != nil
	switch {
	case !edited && live && ev.LivePeriod > 0:
		ev.Kind = LiveStart
	case !edited:
		ev.Kind = StaticLocation
	case live:
		ev.Kind = LiveUpdate
	default:
		ev.Kind = LiveEnd
	}
	return ev
}
