// Package template renders the HTML pages for both sites.
package template

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/model"
	"github.com/dense-analysis/boardfolio/internal/session"
	"github.com/dense-analysis/boardfolio/internal/validate"
)

//go:embed html/*.tmpl
var files embed.FS

// Page names.
const (
	Apology       = "apology"
	About         = "about"
	Login         = "login"
	Register      = "register"
	ResetRequest  = "reset_request"
	ResetPassword = "reset_password"
	Profile       = "profile"
	Index         = "index"
	UserPosts     = "user_posts"
	Post          = "post"
	PostForm      = "post_form"
	Portfolio     = "portfolio"
	Quote         = "quote"
	Quoted        = "quoted"
	Buy           = "buy"
	Sell          = "sell"
	History       = "history"
)

var pageNames = []string{
	Apology,
	About,
	Login,
	Register,
	ResetRequest,
	ResetPassword,
	Profile,
	Index,
	UserPosts,
	Post,
	PostForm,
	Portfolio,
	Quote,
	Quoted,
	Buy,
	Sell,
	History,
}

// Base is the data every page needs for the shared layout.
type Base struct {
	// Site is "meetup" or "finance", and picks the navigation shown.
	Site    string
	User    *model.User
	Flashes []session.Flash
	Errors  validate.Errors
}

// USD formats an amount of dollars like $1,234.50
func USD(amount decimal.Decimal) string {
	sign := ""

	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	whole, fraction, _ := strings.Cut(amount.StringFixed(2), ".")
	var grouped strings.Builder

	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}

		grouped.WriteRune(digit)
	}

	return fmt.Sprintf("%s$%s.%s", sign, grouped.String(), fraction)
}

func formatDate(value time.Time) string {
	return value.UTC().Format("January 2, 2006 15:04")
}

var funcs = template.FuncMap{
	"usd":    USD,
	"date":   formatDate,
	"avatar": func(name string) string { return "/static/profile-imgs/" + name },
	"abs": func(value int64) int64 {
		if value < 0 {
			return -value
		}

		return value
	},
}

// Renderer holds the parsed pages.
type Renderer struct {
	pages map[string]*template.Template
	log   *zap.Logger
}

// New parses every page with the base layout.
func New(logger *zap.Logger) (*Renderer, error) {
	renderer := &Renderer{pages: map[string]*template.Template{}, log: logger}

	for _, name := range pageNames {
		page, err := template.New(name).Funcs(funcs).ParseFS(
			files,
			"html/base.tmpl",
			"html/"+name+".tmpl",
		)

		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}

		renderer.pages[name] = page
	}

	return renderer, nil
}

// Render writes a page with a status code.
//
// Pages are rendered into a buffer first so a template error can still
// become a 500 response.
func (renderer *Renderer) Render(writer http.ResponseWriter, status int, name string, data any) {
	page, ok := renderer.pages[name]

	if !ok {
		renderer.log.Error("Unknown template", zap.String("template", name))
		http.Error(writer, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	var buffer bytes.Buffer

	if err := page.ExecuteTemplate(&buffer, "base", data); err != nil {
		renderer.log.Error("Template error", zap.String("template", name), zap.Error(err))
		http.Error(writer, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.WriteHeader(status)
	_, _ = buffer.WriteTo(writer)
}
