package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Rejection reasons reported to clients and metrics.
const (
	ReasonMissingHeader = "missing_header"
	ReasonBadSignature  = "bad_signature"
	ReasonStale         = "stale"
	ReasonMalformedUser = "malformed_user"
)

// Error is an initData rejection.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "initData rejected: " + e.Reason
}

type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

// InitData is a verified Mini App launch payload.
type InitData struct {
	UserID   int64
	User     TelegramUser
	AuthDate time.Time
	QueryID  string
}

// Verifier checks initData signed with the bot token.
type Verifier struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewVerifier(botToken string, maxAge time.Duration) *Verifier {
	return &Verifier{
		secret: hmacSHA256([]byte("WebAppData"), []byte(botToken)),
		maxAge: maxAge,
		now:    time.Now,
	}
}

func (v *Verifier) Verify(initData string) (InitData, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return InitData{}, &Error{Reason: ReasonBadSignature}
	}

	hash := values.Get("hash")
	if hash == "" {
		return InitData{}, &Error{Reason: ReasonBadSignature}
	}
	expected := hex.EncodeToString(hmacSHA256(v.secret, []byte(checkString(values))))
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return InitData{}, &Error{Reason: ReasonBadSignature}
	}

	authUnix, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return InitData{}, &Error{Reason: ReasonStale}
	}
	// Whole seconds, as auth_date carries no finer precision.
	if v.now().Unix()-authUnix > int64(v.maxAge.Seconds()) {
		return InitData{}, &Error{Reason: ReasonStale}
	}

	var user TelegramUser
	raw := values.Get("user")
	if raw == "" || json.Unmarshal([]byte(raw), &user) != nil || user.ID == 0 {
		return InitData{}, &Error{Reason: ReasonMalformedUser}
	}

	return InitData{
		UserID:   user.ID,
		User:     user,
		AuthDate: time.Unix(authUnix, 0),
		QueryID:  values.Get("query_id"),
	}, nil
}

// checkString is every field except hash as key=value, sorted by key and
// joined by newlines.
func checkString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + values.Get(k)
	}
	return strings.Join(lines, "\n")
}

func hmacSHA256(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}
