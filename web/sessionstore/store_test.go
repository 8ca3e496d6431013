package sessionstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/authgate/authgate/config"
	"github.com/authgate/authgate/database"
	"github.com/authgate/authgate/database/model"

	"github.com/gin-contrib/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieName = "authgate"

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newRedisTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, testKey), mr
}

func newDatabaseTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Type:   config.DatabaseTypeSQLite,
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "sessions.db")},
	}
	require.NoError(t, database.InitDB(cfg))
	t.Cleanup(func() { _ = database.CloseDB() })
	return NewDatabaseStore(database.GetDB(), testKey)
}

// saveValue stores key=value in a fresh session and returns the issued cookie.
func saveValue(t *testing.T, store *Store, key string, value any) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s, err := store.Get(req, cookieName)
	require.NoError(t, err)
	require.True(t, s.IsNew)
	s.Values[key] = value

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(req, rec, s))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func requestWith(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func TestRoundTrip(t *testing.T) {
	stores := map[string]func(t *testing.T) *Store{
		"redis": func(t *testing.T) *Store {
			s, _ := newRedisTestStore(t)
			return s
		},
		"database": newDatabaseTestStore,
	}
	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			store := mk(t)
			cookie := saveValue(t, store, "cart", 3)
			assert.True(t, cookie.HttpOnly)
			assert.Equal(t, "/", cookie.Path)

			s, err := store.Get(requestWith(cookie), cookieName)
			require.NoError(t, err)
			assert.False(t, s.IsNew)
			assert.Equal(t, 3, s.Values["cart"])
			assert.Len(t, s.ID, idLength)
			assert.NotContains(t, cookie.Value, s.ID, "cookie carries the signed ID, not the raw one")
		})
	}
}

func TestMissingCookieGivesEmptySession(t *testing.T) {
	store, _ := newRedisTestStore(t)
	s, err := store.Get(requestWith(nil), cookieName)
	require.NoError(t, err)
	assert.True(t, s.IsNew)
	assert.Empty(t, s.Values)
	assert.Empty(t, s.ID)
}

func TestTamperedCookieGivesEmptySession(t *testing.T) {
	store, _ := newRedisTestStore(t)
	cookie := saveValue(t, store, "cart", 3)
	cookie.Value = cookie.Value[:len(cookie.Value)-2] + "xx"

	s, err := store.Get(requestWith(cookie), cookieName)
	require.NoError(t, err)
	assert.True(t, s.IsNew)
	assert.Empty(t, s.Values)
}

func TestUnknownSessionIsNotReused(t *testing.T) {
	store, mr := newRedisTestStore(t)
	cookie := saveValue(t, store, "cart", 3)
	mr.FlushAll()

	s, err := store.Get(requestWith(cookie), cookieName)
	require.NoError(t, err)
	assert.True(t, s.IsNew)
	assert.Empty(t, s.ID)
}

func TestRedisTTLFollowsMaxAge(t *testing.T) {
	store, mr := newRedisTestStore(t)
	store.Options(sessions.Options{Path: "/", MaxAge: 60})
	saveValue(t, store, "k", "v")

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, 60*time.Second, mr.TTL(keys[0]))

	mr.FastForward(61 * time.Second)
	assert.Empty(t, mr.Keys())
}

func TestBackendUnavailable(t *testing.T) {
	store, mr := newRedisTestStore(t)
	cookie := saveValue(t, store, "k", "v")
	mr.Close()

	s, err := store.Get(requestWith(cookie), cookieName)
	require.Error(t, err)
	require.NotNil(t, s)
	assert.Empty(t, s.Values)

	rec := httptest.NewRecorder()
	s.Values["k"] = "w"
	assert.Error(t, store.Save(requestWith(nil), rec, s))
	assert.Empty(t, rec.Result().Cookies(), "no cookie may be issued for an unsaved session")
}

func TestNegativeMaxAgeDeletes(t *testing.T) {
	store, mr := newRedisTestStore(t)
	cookie := saveValue(t, store, "k", "v")
	req := requestWith(cookie)
	s, err := store.Get(req, cookieName)
	require.NoError(t, err)

	s.Options.MaxAge = -1
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(req, rec, s))
	assert.Empty(t, mr.Keys())
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Empty(t, rec.Result().Cookies()[0].Value)
}

func TestDatabaseExpiryAndCleanup(t *testing.T) {
	store := newDatabaseTestStore(t)
	cookie := saveValue(t, store, "k", "v")

	require.NoError(t, database.GetDB().Model(&model.Session{}).
		Where("1 = 1").
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	s, err := store.Get(requestWith(cookie), cookieName)
	require.NoError(t, err)
	assert.True(t, s.IsNew, "expired rows must not be loaded")

	removed, err := store.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestDatabaseSaveUpdatesInPlace(t *testing.T) {
	store := newDatabaseTestStore(t)
	cookie := saveValue(t, store, "k", "v1")

	req := requestWith(cookie)
	s, err := store.Get(req, cookieName)
	require.NoError(t, err)
	s.Values["k"] = "v2"
	require.NoError(t, store.Save(req, httptest.NewRecorder(), s))

	var count int64
	require.NoError(t, database.GetDB().Model(&model.Session{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	again, err := store.Get(requestWith(cookie), cookieName)
	require.NoError(t, err)
	assert.Equal(t, "v2", again.Values["k"])
}

func TestRedisCleanupIsNoop(t *testing.T) {
	store, _ := newRedisTestStore(t)
	n, err := store.Cleanup(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestRenewIssuesFreshID(t *testing.T) {
	stores := map[string]func(t *testing.T) *Store{
		"redis": func(t *testing.T) *Store {
			s, _ := newRedisTestStore(t)
			return s
		},
		"database": newDatabaseTestStore,
	}
	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			store := mk(t)
			oldCookie := saveValue(t, store, "k", "v")

			req := requestWith(oldCookie)
			s, err := store.Get(req, cookieName)
			require.NoError(t, err)
			oldID := s.ID

			require.NoError(t, store.Renew(req, cookieName))
			rec := httptest.NewRecorder()
			require.NoError(t, store.Save(req, rec, s))
			require.Len(t, rec.Result().Cookies(), 1)
			newCookie := rec.Result().Cookies()[0]

			renewed, err := store.Get(requestWith(newCookie), cookieName)
			require.NoError(t, err)
			assert.NotEqual(t, oldID, renewed.ID)
			assert.Equal(t, "v", renewed.Values["k"])

			stale, err := store.Get(requestWith(oldCookie), cookieName)
			require.NoError(t, err)
			assert.True(t, stale.IsNew, "the previous ID must no longer load")
		})
	}
}

func TestRenewWithoutStoredSession(t *testing.T) {
	store, mr := newRedisTestStore(t)
	req := requestWith(nil)
	require.NoError(t, store.Renew(req, cookieName))
	assert.Empty(t, mr.Keys())
}
