// Package post defines routes for the posting board.
package post

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dense-analysis/boardfolio/internal/account"
	"github.com/dense-analysis/boardfolio/internal/app"
	"github.com/dense-analysis/boardfolio/internal/model"
	postStore "github.com/dense-analysis/boardfolio/internal/post"
	"github.com/dense-analysis/boardfolio/internal/route/query"
	"github.com/dense-analysis/boardfolio/internal/route/util"
	"github.com/dense-analysis/boardfolio/internal/template"
	"github.com/dense-analysis/boardfolio/internal/validate"
)

type PostListPageData struct {
	template.Base
	Page    *model.PostPage
	PageURL string
	// Owner is set when listing the posts of one user.
	Owner *model.User
}

type PostPageData struct {
	template.Base
	Post    *model.Post
	CanEdit bool
}

type PostFormPageData struct {
	template.Base
	Legend  string
	Action  string
	Message string
}

// loadOptionalUser loads the user for pages anyone can see. false means a
// response has been written.
func loadOptionalUser(app *app.App, writer http.ResponseWriter, request *http.Request) (*model.User, bool) {
	user, err := util.LoadUser(app, request)

	if err != nil {
		util.RespondInternalServerError(app, writer, request, err)

		return nil, false
	}

	return user, true
}

func respondPageError(app *app.App, writer http.ResponseWriter, request *http.Request, err error) {
	if errors.Is(err, postStore.ErrPageOutOfRange) {
		util.RespondNotFound(app, writer, request)
	} else {
		util.RespondInternalServerError(app, writer, request, err)
	}
}

// HandleIndex lists every post, newest first.
func HandleIndex(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := loadOptionalUser(app, writer, request)

	if !ok {
		return
	}

	page, err := app.Posts.List(request.Context(), query.Page(request))

	if err != nil {
		respondPageError(app, writer, request, err)

		return
	}

	data := PostListPageData{
		Base:    util.Base(app, writer, request, user),
		Page:    page,
		PageURL: request.URL.Path,
	}

	app.Templates.Render(writer, http.StatusOK, template.Index, data)
}

func HandleAbout(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := loadOptionalUser(app, writer, request)

	if !ok {
		return
	}

	app.Templates.Render(writer, http.StatusOK, template.About, util.Base(app, writer, request, user))
}

// HandleUserPosts lists the posts of one user.
func HandleUserPosts(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := loadOptionalUser(app, writer, request)

	if !ok {
		return
	}

	owner, err := app.Accounts.ByUsername(request.Context(), query.Var(request, "username"))

	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			util.RespondNotFound(app, writer, request)
		} else {
			util.RespondInternalServerError(app, writer, request, err)
		}

		return
	}

	page, err := app.Posts.ListByOwner(request.Context(), owner.ID, query.Page(request))

	if err != nil {
		respondPageError(app, writer, request, err)

		return
	}

	data := PostListPageData{
		Base:    util.Base(app, writer, request, user),
		Page:    page,
		PageURL: request.URL.Path,
		Owner:   owner,
	}

	app.Templates.Render(writer, http.StatusOK, template.UserPosts, data)
}

func HandleNewPostForm(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := util.RequireUser(app, writer, request)

	if !ok {
		return
	}

	data := PostFormPageData{
		Base:   util.Base(app, writer, request, user),
		Legend: "New Post",
		Action: "/posts/new",
	}

	app.Templates.Render(writer, http.StatusOK, template.PostForm, data)
}

func HandleCreatePost(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := util.RequireUser(app, writer, request)

	if !ok {
		return
	}

	request.ParseForm()

	message, errs := validate.Post(request.Form.Get("message"))

	if !errs.Empty() {
		data := PostFormPageData{
			Base:    util.WithErrors(util.Base(app, writer, request, user), errs),
			Legend:  "New Post",
			Action:  "/posts/new",
			Message: message,
		}
		util.RespondValidationError(app, writer, template.PostForm, data)

		return
	}

	if _, err := app.Posts.Create(request.Context(), user.ID, message); err != nil {
		util.RespondInternalServerError(app, writer, request, err)

		return
	}

	util.Flash(app, writer, request, "success", "Your post has been created!")
	http.Redirect(writer, request, "/", http.StatusFound)
}

// loadPost loads the post named in the URL. false means a response has been
// written.
func loadPost(app *app.App, writer http.ResponseWriter, request *http.Request) (*model.Post, bool) {
	id, ok := query.ID(request, "id")

	if !ok {
		util.RespondNotFound(app, writer, request)

		return nil, false
	}

	found, err := app.Posts.Get(request.Context(), id)

	if err != nil {
		if errors.Is(err, postStore.ErrNotFound) {
			util.RespondNotFound(app, writer, request)
		} else {
			util.RespondInternalServerError(app, writer, request, err)
		}

		return nil, false
	}

	return found, true
}

func HandlePost(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := loadOptionalUser(app, writer, request)

	if !ok {
		return
	}

	found, ok := loadPost(app, writer, request)

	if !ok {
		return
	}

	data := PostPageData{
		Base:    util.Base(app, writer, request, user),
		Post:    found,
		CanEdit: user != nil && user.ID == found.OwnerID,
	}

	app.Templates.Render(writer, http.StatusOK, template.Post, data)
}

func HandleUpdatePostForm(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := util.RequireUser(app, writer, request)

	if !ok {
		return
	}

	found, ok := loadPost(app, writer, request)

	if !ok {
		return
	}

	if found.OwnerID != user.ID {
		util.RespondForbidden(app, writer, request)

		return
	}

	data := PostFormPageData{
		Base:    util.Base(app, writer, request, user),
		Legend:  "Update Post",
		Action:  fmt.Sprintf("/posts/%d/update", found.ID),
		Message: found.Message,
	}

	app.Templates.Render(writer, http.StatusOK, template.PostForm, data)
}

func respondMutationError(app *app.App, writer http.ResponseWriter, request *http.Request, err error) {
	switch {
	case errors.Is(err, postStore.ErrForbidden):
		util.RespondForbidden(app, writer, request)
	case errors.Is(err, postStore.ErrNotFound):
		util.RespondNotFound(app, writer, request)
	default:
		util.RespondInternalServerError(app, writer, request, err)
	}
}

func HandleUpdatePost(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := util.RequireUser(app, writer, request)

	if !ok {
		return
	}

	found, ok := loadPost(app, writer, request)

	if !ok {
		return
	}

	if found.OwnerID != user.ID {
		util.RespondForbidden(app, writer, request)

		return
	}

	request.ParseForm()

	message, errs := validate.Post(request.Form.Get("message"))

	if !errs.Empty() {
		data := PostFormPageData{
			Base:    util.WithErrors(util.Base(app, writer, request, user), errs),
			Legend:  "Update Post",
			Action:  fmt.Sprintf("/posts/%d/update", found.ID),
			Message: message,
		}
		util.RespondValidationError(app, writer, template.PostForm, data)

		return
	}

	if _, err := app.Posts.Update(request.Context(), user.ID, found.ID, message); err != nil {
		respondMutationError(app, writer, request, err)

		return
	}

	util.Flash(app, writer, request, "success", "Your post has been updated!")
	http.Redirect(writer, request, fmt.Sprintf("/posts/%d", found.ID), http.StatusFound)
}

func HandleDeletePost(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := util.RequireUser(app, writer, request)

	if !ok {
		return
	}

	id, ok := query.ID(request, "id")

	if !ok {
		util.RespondNotFound(app, writer, request)

		return
	}

	if err := app.Posts.Delete(request.Context(), user.ID, id); err != nil {
		respondMutationError(app, writer, request, err)

		return
	}

	util.Flash(app, writer, request, "success", "Your post has been deleted!")
	http.Redirect(writer, request, "/", http.StatusFound)
}
