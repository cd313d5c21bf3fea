// Package telegram holds the subset of the Bot API this service consumes:
// webhook update decoding and validation, classification of location
// messages, and an outbound sendMessage client.
package telegram

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

type Update struct {
	UpdateID      *int64   `json:"update_id" validate:"required"`
	Message       *Message `json:"message,omitempty"`
	EditedMessage *Message `json:"edited_message,omitempty"`
}

type Message struct {
	MessageID *int64    `json:"message_id" validate:"required"`
	From      *User     `json:"from,omitempty"`
	Chat      *Chat     `json:"chat" validate:"required"`
	Date      *int64    `json:"date" validate:"required"`
	EditDate  int64     `json:"edit_date,omitempty"`
	Text      string    `json:"text,omitempty"`
	Location  *Location `json:"location,omitempty"`
}

type User struct {
	ID        *int64 `json:"id" validate:"required"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID   *int64 `json:"id" validate:"required"`
	Type string `json:"type" validate:"required,oneof=private group supergroup channel"`
}

type Location struct {
	Latitude           *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude          *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	HorizontalAccuracy *float64 `json:"horizontal_accuracy,omitempty" validate:"omitempty,gte=0"`
	LivePeriod         *int     `json:"live_period,omitempty"`
	Heading            *int     `json:"heading,omitempty" validate:"omitempty,gte=0,lte=360"`
}

// DisplayName mirrors how the bot greets senders: username, then first
// name, then a generic fallback.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return "User"
	case u.Username != "":
		return u.Username
	case u.FirstName != "":
		return u.FirstName
	default:
		return "User"
	}
}

// EventTime is the edit time for edited messages and the send time otherwise.
func (m *Message) EventTime() time.Time {
	if m.EditDate > 0 {
		return time.Unix(m.EditDate, 0).UTC()
	}
	return time.Unix(deref(m.Date), 0).UTC()
}

// ValidationError reports an update that is not well formed.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid update: " + e.Reason
	}
	return fmt.Sprintf("invalid update: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ParseUpdate decodes a webhook body and checks its shape. Every failure is
// a *ValidationError.
func ParseUpdate(body []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(body, &u); err != nil {
		return Update{}, &ValidationError{Reason: "malformed json", Err: err}
	}

	if err := getValidator().Struct(&u); err != nil {
		return Update{}, translate(err)
	}
	if (u.Message == nil) == (u.EditedMessage == nil) {
		return Update{}, &ValidationError{Reason: "exactly one of message or edited_message is required"}
	}
	return u, nil
}

func translate(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &ValidationError{Reason: err.Error(), Err: err}
	}

	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	reason := "is invalid"
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "oneof":
		reason = "must be one of " + fe.Param()
	case "gte":
		reason = "must be >= " + fe.Param()
	case "lte":
		reason = "must be <= " + fe.Param()
	}
	return &ValidationError{Field: field, Reason: reason, Err: err}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
