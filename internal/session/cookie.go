package session

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
)

// CookieStorage keeps the session fields inside the signed and encrypted
// gorilla session cookie (see NewCookieStore).
type CookieStorage struct {
	session *sessions.Session
	r       *http.Request
	w       http.ResponseWriter
}

func NewCookieStorage(session *sessions.Session, w http.ResponseWriter, r *http.Request) *CookieStorage {
	return &CookieStorage{session: session, r: r, w: w}
}

func (c *CookieStorage) Load(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := c.session.Values[k].(string); ok {
			out[k] = v
		}
	}
	return out, nil
}

func (c *CookieStorage) Save(_ context.Context, values map[string]string) error {
	for k, v := range values {
		c.session.Values[k] = v
	}
	return c.session.Save(c.r, c.w)
}

// Clear expires the cookie with this response only. The session's own
// options come back afterwards so a Login later in the same request
// writes a live cookie again.
func (c *CookieStorage) Clear(_ context.Context) error {
	for _, k := range keys {
		delete(c.session.Values, k)
	}

	live := c.session.Options
	c.session.Options = expired(live)
	err := c.session.Save(c.r, c.w)
	c.session.Options = live
	return err
}

func expired(live *sessions.Options) *sessions.Options {
	opts := sessions.Options{Path: "/"}
	if live != nil {
		opts = *live
	}
	opts.MaxAge = -1
	return &opts
}
