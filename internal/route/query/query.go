// Package query reads values from request URLs.
package query

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// Page returns the ?page= number, defaulting to 1.
func Page(request *http.Request) int {
	page, err := strconv.Atoi(request.URL.Query().Get("page"))

	if err != nil || page < 1 {
		return 1
	}

	return page
}

// ID reads a positive integer route variable.
func ID(request *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(request)[name], 10, 64)

	if err != nil || id < 1 {
		return 0, false
	}

	return id, true
}

// Var returns a route variable.
func Var(request *http.Request, name string) string {
	return mux.Vars(request)[name]
}

// SafeNext returns next if it is a local path, or "/" otherwise.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}

	parsed, err := url.Parse(next)

	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return "/"
	}

	return next
}
