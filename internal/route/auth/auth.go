// Package auth defines routes for accounts: sign up, log in and password resets.
package auth

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/account"
	"github.com/dense-analysis/boardfolio/internal/app"
	"github.com/dense-analysis/boardfolio/internal/mail"
	"github.com/dense-analysis/boardfolio/internal/route/query"
	"github.com/dense-analysis/boardfolio/internal/route/util"
	"github.com/dense-analysis/boardfolio/internal/template"
	"github.com/dense-analysis/boardfolio/internal/validate"
	"github.com/dense-analysis/boardfolio/pkg/lax"
)

type LoginPageData struct {
	template.Base
	Login    string
	Remember bool
	Next     string
}

type RegisterPageData struct {
	template.Base
	Form validate.Registration
}

type ResetRequestPageData struct {
	template.Base
	Email string
}

type ResetPasswordPageData struct {
	template.Base
	Token string
}

// redirectIfLoggedIn sends logged in users home, returning true if it did.
func redirectIfLoggedIn(app *app.App, writer http.ResponseWriter, request *http.Request) bool {
	if _, ok := app.Sessions.LoadUserID(request); ok {
		user, err := util.LoadUser(app, request)

		if err == nil && user != nil {
			http.Redirect(writer, request, "/", http.StatusFound)

			return true
		}
	}

	return false
}

func HandleLoginForm(app *app.App, writer http.ResponseWriter, request *http.Request) {
	if redirectIfLoggedIn(app, writer, request) {
		return
	}

	data := LoginPageData{
		Base: util.Base(app, writer, request, nil),
		Next: query.SafeNext(request.URL.Query().Get("next")),
	}

	app.Templates.Render(writer, http.StatusOK, template.Login, data)
}

func HandleLogin(app *app.App, writer http.ResponseWriter, request *http.Request) {
	if redirectIfLoggedIn(app, writer, request) {
		return
	}

	request.ParseForm()

	form := validate.Login{
		Login:    request.Form.Get("login"),
		Password: request.Form.Get("password"),
		Remember: request.Form.Get("remember") != "",
	}
	data := LoginPageData{
		Base:     util.Base(app, writer, request, nil),
		Remember: form.Remember,
		Next:     query.SafeNext(request.Form.Get("next")),
	}
	errs := validate.LogIn(&form)
	data.Login = form.Login

	if errs.Empty() {
		user, err := app.Accounts.Authenticate(request.Context(), form.Login, form.Password)

		if err != nil {
			if !errors.Is(err, account.ErrInvalidCredentials) {
				util.RespondInternalServerError(app, writer, request, err)

				return
			}

			errs.Add("login", "Login Unsuccessful. Please check your username or email and password")
			app.Log.Info("Failed login", zap.String("login", form.Login))
		} else {
			if err := app.Sessions.SaveUser(writer, request, user.ID, form.Remember); err != nil {
				util.RespondInternalServerError(app, writer, request, err)

				return
			}

			app.Log.Info("Logged in", zap.Int64("user_id", user.ID))
			http.Redirect(writer, request, data.Next, http.StatusFound)

			return
		}
	}

	data.Base = util.WithErrors(data.Base, errs)
	util.RespondValidationError(app, writer, template.Login, data)
}

func HandleLogout(app *app.App, writer http.ResponseWriter, request *http.Request) {
	if err := app.Sessions.Clear(writer, request); err != nil {
		app.Log.Warn("Failed to clear session", zap.Error(err))
	}

	http.Redirect(writer, request, "/", http.StatusFound)
}

func HandleRegisterForm(app *app.App, writer http.ResponseWriter, request *http.Request) {
	if redirectIfLoggedIn(app, writer, request) {
		return
	}

	data := RegisterPageData{Base: util.Base(app, writer, request, nil)}

	app.Templates.Render(writer, http.StatusOK, template.Register, data)
}

func HandleRegister(app *app.App, writer http.ResponseWriter, request *http.Request) {
	if redirectIfLoggedIn(app, writer, request) {
		return
	}

	request.ParseForm()

	data := RegisterPageData{
		Base: util.Base(app, writer, request, nil),
		Form: validate.Registration{
			Username:     request.Form.Get("username"),
			Email:        request.Form.Get("email"),
			Password:     request.Form.Get("password"),
			Confirmation: request.Form.Get("confirmation"),
		},
	}
	errs := validate.Register(&data.Form)

	if errs.Empty() {
		_, err := app.Accounts.Create(request.Context(), data.Form.Username, data.Form.Email, data.Form.Password)

		if err == nil {
			util.Flash(app, writer, request, "success", "Your account has been created! You are now able to log in")
			http.Redirect(writer, request, "/login", http.StatusFound)

			return
		}

		if !errors.Is(err, account.ErrUsernameTaken) && !errors.Is(err, account.ErrEmailTaken) {
			util.RespondInternalServerError(app, writer, request, err)

			return
		}

		if errors.Is(err, account.ErrUsernameTaken) {
			errs.Add("username", "That username is taken. Please choose a different one.")
		}

		if errors.Is(err, account.ErrEmailTaken) {
			errs.Add("email", "That email is taken. Please choose a different one.")
		}
	}

	// Passwords are never sent back to the browser.
	data.Form.Password = ""
	data.Form.Confirmation = ""
	data.Base = util.WithErrors(data.Base, errs)
	util.RespondValidationError(app, writer, template.Register, data)
}

// CheckUsernameView answers whether a username can still be registered.
func CheckUsernameView(app *app.App) lax.View {
	return lax.View{
		Get: func(request *lax.Request) any {
			available, err := app.Accounts.UsernameAvailable(request.Context(), request.URL.Query().Get("username"))

			if err != nil {
				return err
			}

			return available
		},
	}
}

const resetSentMessage = "If an account exists for that email, an email has been sent with instructions to reset your password."

func HandleResetRequestForm(app *app.App, writer http.ResponseWriter, request *http.Request) {
	if redirectIfLoggedIn(app, writer, request) {
		return
	}

	data := ResetRequestPageData{Base: util.Base(app, writer, request, nil)}

	app.Templates.Render(writer, http.StatusOK, template.ResetRequest, data)
}

func HandleResetRequest(app *app.App, writer http.ResponseWriter, request *http.Request) {
	if redirectIfLoggedIn(app, writer, request) {
		return
	}

	request.ParseForm()

	email, errs := validate.ResetRequest(request.Form.Get("email"))

	if !errs.Empty() {
		data := ResetRequestPageData{
			Base:  util.WithErrors(util.Base(app, writer, request, nil), errs),
			Email: email,
		}
		util.RespondValidationError(app, writer, template.ResetRequest, data)

		return
	}

	user, err := app.Accounts.ByEmail(request.Context(), email)

	if err != nil && !errors.Is(err, account.ErrNotFound) {
		util.RespondInternalServerError(app, writer, request, err)

		return
	}

	if user != nil {
		resetToken, err := app.Tokens.Issue(user.ID)

		if err != nil {
			util.RespondInternalServerError(app, writer, request, err)

			return
		}

		link := app.Config.BaseURL + "/reset_password/" + resetToken

		if err := app.Mail.Send(request.Context(), mail.ResetMessage(user.Email, link)); err != nil {
			app.Log.Error("Failed to send reset email", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	util.Flash(app, writer, request, "info", resetSentMessage)
	http.Redirect(writer, request, "/login", http.StatusFound)
}

// resolveToken finds the user for the reset token in the URL. false means a
// response has been written.
func resolveToken(app *app.App, writer http.ResponseWriter, request *http.Request) (int64, string, bool) {
	resetToken := query.Var(request, "token")
	user, ok, err := app.Accounts.ResolveResetToken(request.Context(), app.Tokens, resetToken)

	if err != nil {
		util.RespondInternalServerError(app, writer, request, err)

		return 0, "", false
	}

	if !ok {
		util.Flash(app, writer, request, "warning", "That is an invalid or expired token")
		http.Redirect(writer, request, "/reset_password", http.StatusFound)

		return 0, "", false
	}

	return user.ID, resetToken, true
}

func HandleResetPasswordForm(app *app.App, writer http.ResponseWriter, request *http.Request) {
	if redirectIfLoggedIn(app, writer, request) {
		return
	}

	_, resetToken, ok := resolveToken(app, writer, request)

	if !ok {
		return
	}

	data := ResetPasswordPageData{Base: util.Base(app, writer, request, nil), Token: resetToken}

	app.Templates.Render(writer, http.StatusOK, template.ResetPassword, data)
}

func HandleResetPassword(app *app.App, writer http.ResponseWriter, request *http.Request) {
	if redirectIfLoggedIn(app, writer, request) {
		return
	}

	userID, resetToken, ok := resolveToken(app, writer, request)

	if !ok {
		return
	}

	request.ParseForm()

	errs := validate.ResetPassword(request.Form.Get("password"), request.Form.Get("confirmation"))

	if !errs.Empty() {
		data := ResetPasswordPageData{
			Base:  util.WithErrors(util.Base(app, writer, request, nil), errs),
			Token: resetToken,
		}
		util.RespondValidationError(app, writer, template.ResetPassword, data)

		return
	}

	if err := app.Accounts.SetPassword(request.Context(), userID, request.Form.Get("password")); err != nil {
		util.RespondInternalServerError(app, writer, request, err)

		return
	}

	util.Flash(app, writer, request, "success", "Your password has been updated! You are now able to log in")
	http.Redirect(writer, request, "/login", http.StatusFound)
}
