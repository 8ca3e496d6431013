// Package session keeps the authentication state of a visitor inside the gin session
// as a single typed value.
package session

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const stateKey = "AUTH_STATE"

// Forms that can carry a pending echo.
const (
	FormSignup = "signup"
	FormLogin  = "login"
)

// SessionUser is the snapshot of the user taken at login. It is not refreshed when
// the user record changes.
type SessionUser struct {
	Id    int
	Email string
}

// FormEcho is the submitted input of a failed form, shown once on the next render.
// The password is never stored.
type FormEcho struct {
	Form         string
	HasError     bool
	Message      string
	Email        string
	ConfirmEmail string
}

// State is everything authgate stores in a session.
type State struct {
	User            *SessionUser
	IsAuthenticated bool
	PendingEcho     *FormEcho
}

func init() {
	gob.Register(State{})
}

// Load returns a copy of the state stored in the request's session; an empty
// state when there is none.
func Load(c *gin.Context) *State {
	s := sessions.Default(c)
	if obj := s.Get(stateKey); obj != nil {
		if st, ok := obj.(State); ok {
			return &st
		}
	}
	return &State{}
}

// Save writes st into the session and persists it. It returns only after the store
// acknowledged the write, so a redirect issued afterwards sees the new state.
func Save(c *gin.Context, st *State) error {
	s := sessions.Default(c)
	s.Set(stateKey, *st)
	return s.Save()
}

// PopFormEcho returns the pending echo for form (zero echo when none) and clears any
// pending echo from st; an echo recorded for another form is discarded. The bool
// reports whether st changed and has to be saved.
func (st *State) PopFormEcho(form string) (FormEcho, bool) {
	echo := st.PendingEcho
	st.PendingEcho = nil
	if echo == nil {
		return FormEcho{Form: form}, false
	}
	if echo.Form != form {
		return FormEcho{Form: form}, true
	}
	return *echo, true
}

// SetFormEcho records a failed submission for the next render of form.
func (st *State) SetFormEcho(echo FormEcho) {
	st.PendingEcho = &echo
}
