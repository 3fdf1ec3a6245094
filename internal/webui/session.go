package webui

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const sessionCookie = "etapas_session"

var errBadSession = errors.New("invalid session cookie")

// sessionClaims is what a cookie vouches for: "<uuid>.<unix expiry>.<mac>".
type sessionClaims struct {
	ID      string
	Expires time.Time
}

func newSecret() ([]byte, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func sessionMAC(secret []byte, id string, exp int64) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(id))
	mac.Write([]byte{'.'})
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func newSessionToken(secret []byte, ttl time.Duration, now time.Time) (id, token string, err error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", "", err
	}
	id = u.String()
	exp := now.Add(ttl).Unix()
	token = id + "." + strconv.FormatInt(exp, 10) + "." + sessionMAC(secret, id, exp)
	return id, token, nil
}

func verifyToken(secret []byte, token string, now time.Time) (sessionClaims, error) {
	id, rest, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok {
		return sessionClaims{}, errBadSession
	}
	expStr, sig, ok := strings.Cut(rest, ".")
	if !ok {
		return sessionClaims{}, errBadSession
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return sessionClaims{}, errBadSession
	}
	if !hmac.Equal([]byte(sig), []byte(sessionMAC(secret, id, exp))) {
		return sessionClaims{}, errBadSession
	}
	if _, err := uuid.Parse(id); err != nil {
		return sessionClaims{}, errBadSession
	}
	expires := time.Unix(exp, 0)
	if now.After(expires) {
		return sessionClaims{}, errors.New("session expired")
	}
	return sessionClaims{ID: id, Expires: expires}, nil
}
