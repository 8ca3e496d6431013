// Package sessionstore provides server-side stores for gin sessions. Only an opaque,
// signed session ID travels in the cookie; the session values live in Redis or in the
// sessions table.
package sessionstore

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/authgate/authgate/logger"
	"github.com/authgate/authgate/util/random"

	"github.com/gin-contrib/sessions"
	gorillasessions "github.com/gorilla/sessions"
	"github.com/gorilla/securecookie"
)

const (
	defaultMaxAge = 86400 * 7 // 7 days
	idLength      = 48
)

var errNotFound = errors.New("session not found")

// backend persists encoded session values under a session ID.
type backend interface {
	load(ctx context.Context, id string) ([]byte, error)
	save(ctx context.Context, id string, data []byte, ttl time.Duration) error
	delete(ctx context.Context, id string) error
}

type cleaner interface {
	cleanup(ctx context.Context) (int64, error)
}

// Store implements sessions.Store on top of a backend.
type Store struct {
	backend backend
	Codecs  []securecookie.Codec
	options *sessions.Options
}

var _ sessions.Store = (*Store)(nil)

func newStore(b backend, keyPairs ...[]byte) *Store {
	s := &Store{
		backend: b,
		Codecs:  securecookie.CodecsFromPairs(keyPairs...),
	}
	s.Options(sessions.Options{
		Path:     "/",
		MaxAge:   defaultMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

// Options sets the cookie options; the cookie signature expires together with MaxAge.
func (s *Store) Options(opts sessions.Options) {
	s.options = &opts
	if opts.MaxAge > 0 {
		for _, codec := range s.Codecs {
			if sc, ok := codec.(*securecookie.SecureCookie); ok {
				sc.MaxAge(opts.MaxAge)
			}
		}
	}
}

// Get returns the session for this request, loading it at most once per request.
func (s *Store) Get(r *http.Request, name string) (*gorillasessions.Session, error) {
	return gorillasessions.GetRegistry(r).Get(s, name)
}

// New loads the session named by the request cookie. A missing, tampered, expired or
// unknown cookie yields an empty new session. The returned error is non-nil only when
// the backend could not be reached; the session is still usable (and empty) then.
func (s *Store) New(r *http.Request, name string) (*gorillasessions.Session, error) {
	session := gorillasessions.NewSession(s, name)
	session.Options = &gorillasessions.Options{
		Path:     s.options.Path,
		Domain:   s.options.Domain,
		MaxAge:   s.options.MaxAge,
		Secure:   s.options.Secure,
		HttpOnly: s.options.HttpOnly,
		SameSite: s.options.SameSite,
	}
	session.IsNew = true

	c, errCookie := r.Cookie(name)
	if errCookie != nil {
		return session, nil
	}

	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.Codecs...); err != nil {
		logger.Debug("session cookie rejected: ", err)
		return session, nil
	}

	data, err := s.backend.load(r.Context(), id)
	if errors.Is(err, errNotFound) {
		return session, nil
	}
	if err != nil {
		return session, fmt.Errorf("load session: %w", err)
	}

	if err := decodeValues(data, &session.Values); err != nil {
		logger.Warning("discarding undecodable session: ", err)
		session.Values = make(map[any]any)
		return session, nil
	}
	session.ID = id
	session.IsNew = false
	return session, nil
}

// Save writes the session to the backend and only then sets the cookie, so a nil
// return means the new state is durable. MaxAge < 0 deletes the record.
func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *gorillasessions.Session) error {
	ctx := r.Context()

	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.backend.delete(ctx, session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, s.newCookie(session, ""))
		return nil
	}

	if session.ID == "" {
		session.ID = random.Seq(idLength)
	}

	data, err := encodeValues(session.Values)
	if err != nil {
		return err
	}

	maxAge := session.Options.MaxAge
	if maxAge == 0 {
		maxAge = s.options.MaxAge
	}
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	if err := s.backend.save(ctx, session.ID, data, time.Duration(maxAge)*time.Second); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, s.newCookie(session, encoded))
	return nil
}

// Renew drops the stored record of the request's session and clears its ID, so the
// next Save writes the values under a fresh ID and cookie.
func (s *Store) Renew(r *http.Request, name string) error {
	session, err := s.Get(r, name)
	if err != nil {
		return err
	}
	if session.ID == "" {
		return nil
	}
	if err := s.backend.delete(r.Context(), session.ID); err != nil {
		return err
	}
	session.ID = ""
	return nil
}

// Cleanup removes expired records for backends that do not expire them on their own.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	if c, ok := s.backend.(cleaner); ok {
		return c.cleanup(ctx)
	}
	return 0, nil
}

func (s *Store) newCookie(session *gorillasessions.Session, value string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     session.Name(),
		Value:    value,
		Path:     session.Options.Path,
		Domain:   session.Options.Domain,
		MaxAge:   session.Options.MaxAge,
		Secure:   session.Options.Secure,
		HttpOnly: session.Options.HttpOnly,
		SameSite: session.Options.SameSite,
	}
	if session.Options.MaxAge > 0 {
		cookie.Expires = time.Now().Add(time.Duration(session.Options.MaxAge) * time.Second)
	}
	return cookie
}

// gob keeps the concrete types of the values; they must be registered with gob.Register.
func encodeValues(values map[any]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(values); err != nil {
		return nil, fmt.Errorf("failed to encode session values: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeValues(data []byte, values *map[any]any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(values); err != nil {
		return fmt.Errorf("failed to decode session data: %w", err)
	}
	return nil
}
