package session

import (
	"crypto/sha256"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

const (
	CookieName = "lms_session"
	sidKey     = "sid"
)

// NewCookieStore builds the gorilla store shared by every backend. The
// cookie is signed with key and encrypted with a key derived from it.
func NewCookieStore(key string, maxAge int, secure bool) *sessions.CookieStore {
	blockKey := sha256.Sum256([]byte("lms-portal/session-encryption:" + key))
	store := sessions.NewCookieStore([]byte(key), blockKey[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(maxAge)
	return store
}

// Manager opens the Store of the browser behind a request. With a redis
// client the fields live server side, otherwise inside the cookie.
type Manager struct {
	cookies sessions.Store
	rdb     redis.Cmdable
	ttl     time.Duration
}

func NewManager(cookies sessions.Store, rdb redis.Cmdable, ttl time.Duration) *Manager {
	return &Manager{cookies: cookies, rdb: rdb, ttl: ttl}
}

// Open hydrates the session for this navigation. A cookie that fails to
// decode yields an anonymous session, never an error.
func (m *Manager) Open(w http.ResponseWriter, r *http.Request) *Store {
	sess, err := m.cookies.Get(r, CookieName)
	if err != nil {
		log.Printf("Session cookie rejected, continuing anonymous: %v", err)
	}
	if sess == nil {
		sess = sessions.NewSession(m.cookies, CookieName)
	}

	store := New(m.storageFor(sess, w, r))
	if err := store.Hydrate(r.Context()); err != nil {
		log.Printf("Session hydrate failed, continuing anonymous: %v", err)
	}
	return store
}

func (m *Manager) storageFor(sess *sessions.Session, w http.ResponseWriter, r *http.Request) Storage {
	if m.rdb == nil {
		return NewCookieStorage(sess, w, r)
	}

	sid, _ := sess.Values[sidKey].(string)
	return NewRedisStorage(m.rdb, sid, m.ttl, func(sid string) error {
		if sid == "" {
			delete(sess.Values, sidKey)
		} else {
			sess.Values[sidKey] = sid
		}
		return sess.Save(r, w)
	})
}
