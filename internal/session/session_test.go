package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// roundTrip runs fn on a new request carrying cookies, returning the
// cookies set in the response.
func roundTrip(t *testing.T, cookies []*http.Cookie, fn func(http.ResponseWriter, *http.Request)) []*http.Cookie {
	request := httptest.NewRequest(http.MethodGet, "/", nil)

	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}

	recorder := httptest.NewRecorder()
	fn(recorder, request)

	return recorder.Result().Cookies()
}

func TestSaveAndLoadUser(t *testing.T) {
	store := NewStore(testSecret, false)

	cookies := roundTrip(t, nil, func(writer http.ResponseWriter, request *http.Request) {
		_, ok := store.LoadUserID(request)
		assert.False(t, ok)
		require.NoError(t, store.SaveUser(writer, request, 42, false))
	})
	require.Len(t, cookies, 1)
	assert.Equal(t, 0, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)

	roundTrip(t, cookies, func(writer http.ResponseWriter, request *http.Request) {
		userID, ok := store.LoadUserID(request)
		assert.True(t, ok)
		assert.Equal(t, int64(42), userID)
	})

	// Cookies signed with another key are ignored.
	other := NewStore("another secret key value", false)

	roundTrip(t, cookies, func(writer http.ResponseWriter, request *http.Request) {
		_, ok := other.LoadUserID(request)
		assert.False(t, ok)
	})
}

func TestRememberMe(t *testing.T) {
	store := NewStore(testSecret, false)

	cookies := roundTrip(t, nil, func(writer http.ResponseWriter, request *http.Request) {
		require.NoError(t, store.SaveUser(writer, request, 7, true))
	})
	require.Len(t, cookies, 1)
	assert.Equal(t, RememberMaxAge, cookies[0].MaxAge)

	// Later saves keep the remembered lifetime.
	cookies = roundTrip(t, cookies, func(writer http.ResponseWriter, request *http.Request) {
		require.NoError(t, store.AddFlash(writer, request, "info", "hello"))
	})
	require.Len(t, cookies, 1)
	assert.Equal(t, RememberMaxAge, cookies[0].MaxAge)
}

func TestClear(t *testing.T) {
	store := NewStore(testSecret, false)

	cookies := roundTrip(t, nil, func(writer http.ResponseWriter, request *http.Request) {
		require.NoError(t, store.SaveUser(writer, request, 42, true))
	})

	cookies = roundTrip(t, cookies, func(writer http.ResponseWriter, request *http.Request) {
		require.NoError(t, store.Clear(writer, request))
	})
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestFlashes(t *testing.T) {
	store := NewStore(testSecret, false)

	cookies := roundTrip(t, nil, func(writer http.ResponseWriter, request *http.Request) {
		require.NoError(t, store.AddFlash(writer, request, "success", "Saved"))
		require.NoError(t, store.AddFlash(writer, request, "danger", "Careful"))
	})
	// Each save sets the cookie again, the last one wins.
	require.NotEmpty(t, cookies)
	cookies = cookies[len(cookies)-1:]

	cookies = roundTrip(t, cookies, func(writer http.ResponseWriter, request *http.Request) {
		flashes, err := store.Flashes(writer, request)
		require.NoError(t, err)
		assert.Equal(t, []Flash{{"success", "Saved"}, {"danger", "Careful"}}, flashes)
	})

	roundTrip(t, cookies, func(writer http.ResponseWriter, request *http.Request) {
		flashes, err := store.Flashes(writer, request)
		require.NoError(t, err)
		assert.Empty(t, flashes)
	})
}
