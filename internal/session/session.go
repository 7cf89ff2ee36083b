// Package session handles saving/loading users to/from sessions
package session

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
)

const sessionName = "sessionid"

const (
	userIDKey   = "userID"
	rememberKey = "remember"
)

// RememberMaxAge is how long a "remember me" login lasts, in seconds.
const RememberMaxAge = 86400 * 30

// Flash is a one time message shown on the next page.
type Flash struct {
	Category string
	Message  string
}

func init() {
	gob.Register(Flash{})
}

// Store keeps sessions in signed cookies.
type Store struct {
	cookies *sessions.CookieStore
	secure  bool
}

// NewStore creates a cookie store signed with secretKey.
func NewStore(secretKey string, secure bool) *Store {
	cookies := sessions.NewCookieStore([]byte(secretKey))
	// Cookies are never trusted for longer than a remembered login.
	cookies.MaxAge(RememberMaxAge)

	return &Store{cookies: cookies, secure: secure}
}

func (store *Store) get(request *http.Request) *sessions.Session {
	// A bad or old cookie still returns a new empty session.
	session, _ := store.cookies.Get(request, sessionName)

	return session
}

// save writes the session, keeping a browser session cookie unless the user
// asked to be remembered.
func (store *Store) save(writer http.ResponseWriter, request *http.Request, session *sessions.Session) error {
	maxAge := 0

	if remember, _ := session.Values[rememberKey].(bool); remember {
		maxAge = RememberMaxAge
	}

	session.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   store.secure,
		SameSite: http.SameSiteLaxMode,
	}

	return session.Save(request, writer)
}

// LoadUserID returns the ID of the logged in user, if any.
func (store *Store) LoadUserID(request *http.Request) (int64, bool) {
	userID, ok := store.get(request).Values[userIDKey].(int64)

	return userID, ok && userID > 0
}

// SaveUser logs a user in. remember keeps the login for RememberMaxAge.
func (store *Store) SaveUser(writer http.ResponseWriter, request *http.Request, userID int64, remember bool) error {
	session := store.get(request)
	session.Values[userIDKey] = userID
	session.Values[rememberKey] = remember

	return store.save(writer, request, session)
}

// Clear logs a user out and deletes the session cookie.
func (store *Store) Clear(writer http.ResponseWriter, request *http.Request) error {
	session := store.get(request)

	for key := range session.Values {
		delete(session.Values, key)
	}

	session.Options = &sessions.Options{Path: "/", MaxAge: -1}

	return session.Save(request, writer)
}

// AddFlash queues a message for the next page rendered.
func (store *Store) AddFlash(writer http.ResponseWriter, request *http.Request, category, message string) error {
	session := store.get(request)
	session.AddFlash(Flash{Category: category, Message: message})

	return store.save(writer, request, session)
}

// Flashes removes and returns the queued messages.
func (store *Store) Flashes(writer http.ResponseWriter, request *http.Request) ([]Flash, error) {
	session := store.get(request)
	values := session.Flashes()

	if len(values) == 0 {
		return nil, nil
	}

	flashes := make([]Flash, 0, len(values))

	for _, value := range values {
		if flash, ok := value.(Flash); ok {
			flashes = append(flashes, flash)
		}
	}

	return flashes, store.save(writer, request, session)
}
