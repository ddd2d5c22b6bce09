package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s/lmsPortal/internal/models"
)

func newRedisManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewManager(NewCookieStore(testKey, 3600, false), rdb, time.Hour), mr
}

// sidOf opens the cookie written by rec and returns the session id in it.
func sidOf(t *testing.T, m *Manager, rec *httptest.ResponseRecorder) string {
	t.Helper()
	req := replay(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	sess, err := m.cookies.Get(req, CookieName)
	require.NoError(t, err)
	sid, _ := sess.Values[sidKey].(string)
	return sid
}

func TestRedisManager_LoginStoresFieldsServerSide(t *testing.T) {
	m, mr := newRedisManager(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	store := m.Open(rec, req)
	require.False(t, store.IsAuthenticated())
	assert.Empty(t, mr.Keys(), "anonymous visits create no hash")

	user := models.User{ID: 1, Username: "alice", Role: models.RoleStudent}
	require.NoError(t, store.Login(req.Context(), user, models.Tokens{Access: "t1", Refresh: "r1"}))

	sid := sidOf(t, m, rec)
	require.NotEmpty(t, sid)
	key := redisKeyPrefix + sid
	assert.Equal(t, []string{key}, mr.Keys())
	assert.Equal(t, "t1", mr.HGet(key, KeyAccessToken))
	assert.Equal(t, "r1", mr.HGet(key, KeyRefreshToken))
	assert.Contains(t, mr.HGet(key, KeyUserData), `"alice"`)
	assert.Equal(t, time.Hour, mr.TTL(key))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.NotContains(t, payload(t, cookies[len(cookies)-1]), "t1")

	next := replay(httptest.NewRequest(http.MethodGet, "/student/dashboard", nil), rec)
	hydrated := m.Open(httptest.NewRecorder(), next)
	require.True(t, hydrated.IsAuthenticated())
	sess, _ := hydrated.Current()
	assert.Equal(t, "t1", sess.AccessToken)
}

func TestRedisManager_LoginRotatesSessionID(t *testing.T) {
	m, mr := newRedisManager(t)

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	require.NoError(t, m.Open(first, req).Login(req.Context(), models.User{ID: 1}, models.Tokens{Access: "t1"}))
	oldSID := sidOf(t, m, first)

	// logout keeps nothing an attacker could reuse
	out := httptest.NewRecorder()
	logoutReq := replay(httptest.NewRequest(http.MethodPost, "/logout", nil), first)
	require.NoError(t, m.Open(out, logoutReq).Logout(logoutReq.Context()))
	assert.False(t, mr.Exists(redisKeyPrefix+oldSID))
	assert.Empty(t, sidOf(t, m, out))

	// a second login from the original cookie gets a fresh id
	again := httptest.NewRecorder()
	loginReq := replay(httptest.NewRequest(http.MethodPost, "/login", nil), first)
	store := m.Open(again, loginReq)
	require.False(t, store.IsAuthenticated())
	require.NoError(t, store.Login(loginReq.Context(), models.User{ID: 2}, models.Tokens{Access: "t2"}))

	newSID := sidOf(t, m, again)
	require.NotEmpty(t, newSID)
	assert.NotEqual(t, oldSID, newSID)
	assert.Equal(t, []string{redisKeyPrefix + newSID}, mr.Keys())

	stale := replay(httptest.NewRequest(http.MethodGet, "/", nil), first)
	assert.False(t, m.Open(httptest.NewRecorder(), stale).IsAuthenticated())
}

func TestRedisManager_ReloginDropsPreviousHash(t *testing.T) {
	m, mr := newRedisManager(t)

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	require.NoError(t, m.Open(first, req).Login(req.Context(), models.User{ID: 1}, models.Tokens{Access: "t1"}))
	oldSID := sidOf(t, m, first)

	second := httptest.NewRecorder()
	req = replay(httptest.NewRequest(http.MethodPost, "/login", nil), first)
	store := m.Open(second, req)
	require.True(t, store.IsAuthenticated())
	require.NoError(t, store.Login(req.Context(), models.User{ID: 1}, models.Tokens{Access: "t1b"}))

	newSID := sidOf(t, m, second)
	assert.NotEqual(t, oldSID, newSID)
	assert.Equal(t, []string{redisKeyPrefix + newSID}, mr.Keys())
	assert.Equal(t, "t1b", mr.HGet(redisKeyPrefix+newSID, KeyAccessToken))
}

func TestRedisStorage_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })

	bound := "unchanged"
	s := NewRedisStorage(rdb, "abc", time.Hour, func(sid string) error {
		bound = sid
		return nil
	})
	mr.Close()

	ctx := context.Background()
	_, err := s.Load(ctx)
	assert.Error(t, err)

	err = s.Save(ctx, map[string]string{KeyAccessToken: "t"})
	assert.Error(t, err)
	assert.Equal(t, "abc", s.SessionID())
	assert.Equal(t, "unchanged", bound)
}

func TestRedisManager_StorageUnavailableIsAnonymous(t *testing.T) {
	m, mr := newRedisManager(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	require.NoError(t, m.Open(rec, req).Login(req.Context(), models.User{ID: 1}, models.Tokens{Access: "t1"}))
	mr.Close()

	next := replay(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	var store *Store
	require.NotPanics(t, func() {
		store = m.Open(httptest.NewRecorder(), next)
	})
	assert.False(t, store.IsAuthenticated())
}
