package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dense-analysis/boardfolio/internal/app"
	"github.com/dense-analysis/boardfolio/internal/route/auth"
	"github.com/dense-analysis/boardfolio/internal/route/portfolio"
	"github.com/dense-analysis/boardfolio/internal/route/post"
	"github.com/dense-analysis/boardfolio/internal/route/profile"
	"github.com/dense-analysis/boardfolio/internal/route/util"
	"github.com/dense-analysis/boardfolio/pkg/lax"
)

type appHandler func(app *app.App, writer http.ResponseWriter, request *http.Request)

func newRouter(app *app.App) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)

	router.NotFoundHandler = http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		util.RespondNotFound(app, writer, request)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		util.RespondMethodNotAllowed(app, writer, request)
	})

	return router
}

func bind(app *app.App, handler appHandler) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		handler(app, writer, request)
	}
}

// addAccountRoutes registers the routes both sites have for accounts.
func addAccountRoutes(app *app.App, router *mux.Router, api *lax.API) {
	router.HandleFunc("/register", bind(app, auth.HandleRegisterForm)).Methods("GET")
	router.HandleFunc("/register", bind(app, auth.HandleRegister)).Methods("POST")
	router.HandleFunc("/login", bind(app, auth.HandleLoginForm)).Methods("GET")
	router.HandleFunc("/login", bind(app, auth.HandleLogin)).Methods("POST")
	router.HandleFunc("/logout", bind(app, auth.HandleLogout)).Methods("GET", "POST")
	router.HandleFunc("/reset_password", bind(app, auth.HandleResetRequestForm)).Methods("GET")
	router.HandleFunc("/reset_password", bind(app, auth.HandleResetRequest)).Methods("POST")
	router.HandleFunc("/reset_password/{token}", bind(app, auth.HandleResetPasswordForm)).Methods("GET")
	router.HandleFunc("/reset_password/{token}", bind(app, auth.HandleResetPassword)).Methods("POST")
	router.Handle("/check", api.Wrap(auth.CheckUsernameView(app)))
}

// serveFiles serves files from dir without listing directories.
func serveFiles(app *app.App, prefix, dir string) http.Handler {
	files := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))

	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if strings.HasSuffix(request.URL.Path, "/") {
			util.RespondNotFound(app, writer, request)

			return
		}

		files.ServeHTTP(writer, request)
	})
}

func addStaticRoutes(app *app.App, router *mux.Router) {
	router.PathPrefix("/static/profile-imgs/").
		Handler(serveFiles(app, "/static/profile-imgs/", app.Avatars.Dir()))
	router.PathPrefix("/static/").
		Handler(serveFiles(app, "/static/", app.Config.StaticDir))
}

func newAPI(app *app.App) *lax.API {
	return &lax.API{Debug: app.Config.Debug, Log: app.Log}
}

// NewMeetupRouter returns the handler for the posting board.
func NewMeetupRouter(app *app.App) http.Handler {
	router := newRouter(app)
	api := newAPI(app)

	router.HandleFunc("/", bind(app, post.HandleIndex)).Methods("GET")
	router.HandleFunc("/home", bind(app, post.HandleIndex)).Methods("GET")
	router.HandleFunc("/about", bind(app, post.HandleAbout)).Methods("GET")
	addAccountRoutes(app, router, api)
	router.HandleFunc("/profile", bind(app, profile.HandleProfile)).Methods("GET")
	router.HandleFunc("/profile", bind(app, profile.HandleProfileUpdate)).Methods("POST")
	router.HandleFunc("/users/{username}", bind(app, post.HandleUserPosts)).Methods("GET")
	router.HandleFunc("/posts/new", bind(app, post.HandleNewPostForm)).Methods("GET")
	router.HandleFunc("/posts/new", bind(app, post.HandleCreatePost)).Methods("POST")
	router.HandleFunc("/posts/{id:[0-9]+}", bind(app, post.HandlePost)).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}/update", bind(app, post.HandleUpdatePostForm)).Methods("GET")
	router.HandleFunc("/posts/{id:[0-9]+}/update", bind(app, post.HandleUpdatePost)).Methods("POST")
	router.HandleFunc("/posts/{id:[0-9]+}/delete", bind(app, post.HandleDeletePost)).Methods("POST")
	addStaticRoutes(app, router)

	return wrap(app, router)
}

// NewFinanceRouter returns the handler for the trading simulator.
func NewFinanceRouter(app *app.App) http.Handler {
	router := newRouter(app)
	api := newAPI(app)

	router.HandleFunc("/", bind(app, portfolio.HandlePortfolio)).Methods("GET")
	addAccountRoutes(app, router, api)
	router.HandleFunc("/quote", bind(app, portfolio.HandleQuoteForm)).Methods("GET")
	router.HandleFunc("/quote", bind(app, portfolio.HandleQuote)).Methods("POST")
	router.HandleFunc("/buy", bind(app, portfolio.HandleBuyForm)).Methods("GET")
	router.HandleFunc("/buy", bind(app, portfolio.HandleBuy)).Methods("POST")
	router.HandleFunc("/sell", bind(app, portfolio.HandleSellForm)).Methods("GET")
	router.HandleFunc("/sell", bind(app, portfolio.HandleSell)).Methods("POST")
	router.HandleFunc("/history", bind(app, portfolio.HandleHistory)).Methods("GET")
	router.Handle("/api/quote/{symbol}", api.Wrap(portfolio.QuoteAPIView(app)))
	addStaticRoutes(app, router)

	return wrap(app, router)
}

// NewRouter returns the handler for the site the App was built for.
func NewRouter(application *app.App) http.Handler {
	if application.Site == app.SiteFinance {
		return NewFinanceRouter(application)
	}

	return NewMeetupRouter(application)
}
