package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
)

const (
	testBotToken = "123456:TEST"
	// Signed with testBotToken; hash computed independently.
	fixtureInitData = "auth_date=1700000000&query_id=AAHdF6IQAAAAAN0XohDhrOrc" +
		"&user=%7B%22id%22%3A7%2C%22first_name%22%3A%22Ada%22%2C%22username%22%3A%22ada%22%7D" +
		"&hash=78e8dcfd1dd7b05f66cc022e4a432e269f7753a8f806745edf9ba54d2b868e66"
)

func newTestVerifier(now time.Time) *Verifier {
	v := NewVerifier(testBotToken, time.Hour)
	v.now = func() time.Time { return now }
	return v
}

func sign(t *testing.T, token string, values url.Values) string {
	t.Helper()
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(token))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString(values)))
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	var authErr *Error
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	return authErr.Reason
}

func TestVerifyFixture(t *testing.T) {
	v := newTestVerifier(time.Unix(1700000060, 0))
	data, err := v.Verify(fixtureInitData)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if data.UserID != 7 || data.User.Username != "ada" || data.QueryID != "AAHdF6IQAAAAAN0XohDhrOrc" {
		t.Fatalf("unexpected data %+v", data)
	}
	if !data.AuthDate.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("unexpected auth date %v", data.AuthDate)
	}
}

func TestVerifyTampered(t *testing.T) {
	v := newTestVerifier(time.Unix(1700000060, 0))
	values, _ := url.ParseQuery(fixtureInitData)
	values.Set("user", `{"id":8,"first_name":"Eve"}`)

	_, err := v.Verify(values.Encode())
	if reasonOf(t, err) != ReasonBadSignature {
		t.Fatalf("expected bad signature, got %v", err)
	}
}

func TestVerifyWrongBotToken(t *testing.T) {
	v := NewVerifier("654321:OTHER", time.Hour)
	v.now = func() time.Time { return time.Unix(1700000060, 0) }
	if _, err := v.Verify(fixtureInitData); reasonOf(t, err) != ReasonBadSignature {
		t.Fatalf("expected bad signature, got %v", err)
	}
}

func TestVerifyMissingHash(t *testing.T) {
	v := newTestVerifier(time.Unix(1700000060, 0))
	if _, err := v.Verify("auth_date=1700000000&user=%7B%22id%22%3A7%7D"); reasonOf(t, err) != ReasonBadSignature {
		t.Fatalf("expected bad signature, got %v", err)
	}
}

func TestVerifyStale(t *testing.T) {
	v := newTestVerifier(time.Unix(1700000000, 0).Add(time.Hour + time.Second))
	if _, err := v.Verify(fixtureInitData); reasonOf(t, err) != ReasonStale {
		t.Fatalf("expected stale, got %v", err)
	}

	v = newTestVerifier(time.Unix(1700000000, 0).Add(time.Hour))
	if _, err := v.Verify(fixtureInitData); err != nil {
		t.Fatalf("expected boundary to pass, got %v", err)
	}

	v = newTestVerifier(time.Unix(1700000000, 0).Add(time.Hour + 500*time.Millisecond))
	if _, err := v.Verify(fixtureInitData); err != nil {
		t.Fatalf("expected sub-second past the boundary to pass, got %v", err)
	}
}

func TestVerifyHashIsCaseSensitive(t *testing.T) {
	v := newTestVerifier(time.Unix(1700000060, 0))
	values, _ := url.ParseQuery(fixtureInitData)
	values.Set("hash", strings.ToUpper(values.Get("hash")))

	if _, err := v.Verify(values.Encode()); reasonOf(t, err) != ReasonBadSignature {
		t.Fatalf("expected bad signature for uppercased hash, got %v", err)
	}
}

func TestVerifyMissingAuthDate(t *testing.T) {
	v := newTestVerifier(time.Unix(1700000060, 0))
	raw := sign(t, testBotToken, url.Values{"user": {`{"id":7}`}})
	if _, err := v.Verify(raw); reasonOf(t, err) != ReasonStale {
		t.Fatalf("expected stale, got %v", err)
	}
}

func TestVerifyMalformedUser(t *testing.T) {
	v := newTestVerifier(time.Unix(1700000060, 0))
	cases := map[string]url.Values{
		"missing":  {"auth_date": {"1700000000"}},
		"not json": {"auth_date": {"1700000000"}, "user": {"ada"}},
		"zero id":  {"auth_date": {"1700000000"}, "user": {`{"first_name":"Ada"}`}},
	}
	for name, values := range cases {
		if _, err := v.Verify(sign(t, testBotToken, values)); reasonOf(t, err) != ReasonMalformedUser {
			t.Fatalf("%s: expected malformed user, got %v", name, err)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	if got := (&Error{Reason: ReasonStale}).Error(); got != "initData rejected: stale" {
		t.Fatalf("unexpected message %q", got)
	}
}
