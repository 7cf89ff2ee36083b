// Package util holds the helpers every route uses for responses and users.
package util

import (
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/account"
	"github.com/dense-analysis/boardfolio/internal/app"
	"github.com/dense-analysis/boardfolio/internal/model"
	"github.com/dense-analysis/boardfolio/internal/template"
	"github.com/dense-analysis/boardfolio/internal/validate"
)

// ApologyPageData is shown for every error response.
type ApologyPageData struct {
	template.Base
	Status  int
	Message string
}

// Base builds the layout data for a page, taking any queued flash messages.
func Base(app *app.App, writer http.ResponseWriter, request *http.Request, user *model.User) template.Base {
	flashes, err := app.Sessions.Flashes(writer, request)

	if err != nil {
		app.Log.Warn("Failed to read flash messages", zap.Error(err))
	}

	return template.Base{Site: app.Site, User: user, Flashes: flashes}
}

// RespondApology renders the apology page with a status and message.
func RespondApology(app *app.App, writer http.ResponseWriter, request *http.Request, status int, message string) {
	user, _ := LoadUser(app, request)
	data := ApologyPageData{
		Base:    template.Base{Site: app.Site, User: user},
		Status:  status,
		Message: message,
	}

	app.Templates.Render(writer, status, template.Apology, data)
}

func RespondInternalServerError(app *app.App, writer http.ResponseWriter, request *http.Request, err error) {
	app.Log.Error(
		"Internal error",
		zap.String("method", request.Method),
		zap.String("path", request.URL.Path),
		zap.Error(err),
	)
	RespondApology(app, writer, request, http.StatusInternalServerError, "something went wrong")
}

func RespondNotFound(app *app.App, writer http.ResponseWriter, request *http.Request) {
	RespondApology(app, writer, request, http.StatusNotFound, "that page could not be found")
}

func RespondForbidden(app *app.App, writer http.ResponseWriter, request *http.Request) {
	RespondApology(app, writer, request, http.StatusForbidden, "you are not allowed to do that")
}

func RespondMethodNotAllowed(app *app.App, writer http.ResponseWriter, request *http.Request) {
	RespondApology(app, writer, request, http.StatusMethodNotAllowed, "that method is not allowed here")
}

// RespondValidationError renders a form page again with its field errors.
func RespondValidationError(app *app.App, writer http.ResponseWriter, name string, data any) {
	app.Templates.Render(writer, http.StatusBadRequest, name, data)
}

// LoadUser returns the logged in user, or nil if nobody is logged in.
func LoadUser(app *app.App, request *http.Request) (*model.User, error) {
	userID, ok := app.Sessions.LoadUserID(request)

	if !ok {
		return nil, nil
	}

	user, err := app.Accounts.ByID(request.Context(), userID)

	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return user, nil
}

// RequireUser loads the logged in user, redirecting to the login page
// when there isn't one. false means a response has been written.
func RequireUser(app *app.App, writer http.ResponseWriter, request *http.Request) (*model.User, bool) {
	user, err := LoadUser(app, request)

	if err != nil {
		RespondInternalServerError(app, writer, request, err)

		return nil, false
	}

	if user == nil {
		target := "/login?next=" + url.QueryEscape(request.URL.RequestURI())
		http.Redirect(writer, request, target, http.StatusFound)

		return nil, false
	}

	return user, true
}

// Flash queues a message for the next page, logging any failure.
func Flash(app *app.App, writer http.ResponseWriter, request *http.Request, category, message string) {
	if err := app.Sessions.AddFlash(writer, request, category, message); err != nil {
		app.Log.Warn("Failed to save flash message", zap.Error(err))
	}
}

// WithErrors sets the field errors on page data.
func WithErrors(base template.Base, errs validate.Errors) template.Base {
	base.Errors = errs

	return base
}
