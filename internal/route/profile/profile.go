// Package profile defines routes for viewing and editing your own account.
package profile

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/account"
	"github.com/dense-analysis/boardfolio/internal/app"
	"github.com/dense-analysis/boardfolio/internal/avatar"
	"github.com/dense-analysis/boardfolio/internal/model"
	"github.com/dense-analysis/boardfolio/internal/route/util"
	"github.com/dense-analysis/boardfolio/internal/template"
	"github.com/dense-analysis/boardfolio/internal/validate"
)

// maxUploadSize leaves room for the other form fields next to an avatar.
const maxUploadSize = avatar.MaxSize + 1<<20

type ProfilePageData struct {
	template.Base
	Form   validate.Profile
	Avatar string
}

func newPageData(app *app.App, writer http.ResponseWriter, request *http.Request, user *model.User) ProfilePageData {
	return ProfilePageData{
		Base:   util.Base(app, writer, request, user),
		Form:   validate.Profile{Username: user.Username, Email: user.Email},
		Avatar: user.Avatar,
	}
}

func HandleProfile(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := util.RequireUser(app, writer, request)

	if !ok {
		return
	}

	app.Templates.Render(writer, http.StatusOK, template.Profile, newPageData(app, writer, request, user))
}

// saveAvatar stores an uploaded picture, if there is one. An empty name
// means no picture was sent or it was rejected.
func saveAvatar(app *app.App, request *http.Request, errs *validate.Errors) (string, error) {
	file, header, err := request.FormFile("picture")

	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}

		return "", err
	}

	defer file.Close()

	if header.Size == 0 && header.Filename == "" {
		return "", nil
	}

	name, err := app.Avatars.Save(header.Filename, file)

	switch {
	case errors.Is(err, avatar.ErrTooLarge), errors.Is(err, avatar.ErrUnsupported), errors.Is(err, avatar.ErrInvalid):
		errs.Add("picture", err.Error())

		return "", nil
	case err != nil:
		return "", err
	}

	return name, nil
}

func HandleProfileUpdate(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := util.RequireUser(app, writer, request)

	if !ok {
		return
	}

	var errs validate.Errors
	request.Body = http.MaxBytesReader(writer, request.Body, maxUploadSize)

	if err := request.ParseMultipartForm(avatar.MaxSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError

		if !errors.As(err, &tooLarge) {
			util.RespondApology(app, writer, request, http.StatusBadRequest, "the form could not be read")

			return
		}

		errs.Add("picture", avatar.ErrTooLarge.Error())
	}

	data := newPageData(app, writer, request, user)

	// An oversized body has been consumed, so the form keeps the saved values.
	if errs.Empty() {
		data.Form = validate.Profile{
			Username: request.FormValue("username"),
			Email:    request.FormValue("email"),
		}
		errs = validate.UpdateProfile(&data.Form)
	}

	var avatarName string

	if errs.Empty() {
		var err error

		if avatarName, err = saveAvatar(app, request, &errs); err != nil {
			util.RespondInternalServerError(app, writer, request, err)

			return
		}
	}

	if errs.Empty() {
		updated, err := app.Accounts.UpdateProfile(request.Context(), user.ID, data.Form.Username, data.Form.Email, avatarName)

		if err == nil {
			if avatarName != "" && user.Avatar != updated.Avatar {
				if err := app.Avatars.Remove(user.Avatar); err != nil {
					app.Log.Warn("Failed to remove old avatar", zap.String("file", user.Avatar), zap.Error(err))
				}
			}

			util.Flash(app, writer, request, "success", "Your account has been updated!")
			http.Redirect(writer, request, "/profile", http.StatusFound)

			return
		}

		if avatarName != "" {
			_ = app.Avatars.Remove(avatarName)
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

	data.Base = util.WithErrors(data.Base, errs)
	util.RespondValidationError(app, writer, template.Profile, data)
}
