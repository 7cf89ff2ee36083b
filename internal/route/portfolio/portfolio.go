// Package portfolio defines routes for the stock trading simulator.
package portfolio

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/app"
	"github.com/dense-analysis/boardfolio/internal/ledger"
	"github.com/dense-analysis/boardfolio/internal/model"
	"github.com/dense-analysis/boardfolio/internal/quote"
	"github.com/dense-analysis/boardfolio/internal/route/query"
	"github.com/dense-analysis/boardfolio/internal/route/util"
	"github.com/dense-analysis/boardfolio/internal/template"
	"github.com/dense-analysis/boardfolio/internal/validate"
	"github.com/dense-analysis/boardfolio/pkg/lax"
)

const (
	stockNotFoundMessage      = "the requested stock was not found"
	quoteUnavailableMessage   = "quote service unavailable"
	concurrentTradeMessage    = "your account changed during the trade, please try again"
	insufficientFundsMessage  = "You can't afford that many shares"
	insufficientSharesMessage = "You don't own that many shares"
)

type PortfolioPageData struct {
	template.Base
	Portfolio *model.Portfolio
}

type QuotePageData struct {
	template.Base
	Symbol string
}

type QuotedPageData struct {
	template.Base
	Quote *model.Quote
}

type TradePageData struct {
	template.Base
	Symbol string
	Shares string
	// Holdings fills the symbol choices on the sell form.
	Holdings []model.Holding
}

type HistoryPageData struct {
	template.Base
	Transactions []model.Transaction
}

// QuoteResponse is the JSON body for a quote.
type QuoteResponse struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Price  string `json:"price"`
}

// quoteStatus picks the apology for a failed quote lookup.
func quoteStatus(err error) (int, string) {
	if errors.Is(err, quote.ErrNotFound) {
		return http.StatusBadRequest, stockNotFoundMessage
	}

	return http.StatusBadGateway, quoteUnavailableMessage
}

func HandlePortfolio(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := util.RequireUser(app, writer, request)

	if !ok {
		return
	}

	portfolio, err := app.Ledger.Portfolio(request.Context(), user.ID)

	if err != nil {
		util.RespondInternalServerError(app, writer, request, err)

		return
	}

	data := PortfolioPageData{
		Base:      util.Base(app, writer, request, user),
		Portfolio: portfolio,
	}

	app.Templates.Render(writer, http.StatusOK, template.Portfolio, data)
}

func HandleQuoteForm(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := util.RequireUser(app, writer, request)

	if !ok {
		return
	}

	data := QuotePageData{Base: util.Base(app, writer, request, user)}

	app.Templates.Render(writer, http.StatusOK, template.Quote, data)
}

// HandleQuote shows the current price of the submitted symbol.
func HandleQuote(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := util.RequireUser(app, writer, request)

	if !ok {
		return
	}

	request.ParseForm()

	symbol, errs := validate.Symbol(request.Form.Get("symbol"))

	if !errs.Empty() {
		data := QuotePageData{
			Base:   util.WithErrors(util.Base(app, writer, request, user), errs),
			Symbol: symbol,
		}
		util.RespondValidationError(app, writer, template.Quote, data)

		return
	}

	found, err := app.Quotes.Lookup(request.Context(), symbol)

	if err != nil {
		app.Log.Info("Quote lookup failed", zap.String("symbol", symbol), zap.Error(err))
		status, message := quoteStatus(err)
		util.RespondApology(app, writer, request, status, message)

		return
	}

	data := QuotedPageData{Base: util.Base(app, writer, request, user), Quote: found}

	app.Templates.Render(writer, http.StatusOK, template.Quoted, data)
}

func HandleBuyForm(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := util.RequireUser(app, writer, request)

	if !ok {
		return
	}

	data := TradePageData{
		Base:   util.Base(app, writer, request, user),
		Symbol: quote.Normalize(request.URL.Query().Get("symbol")),
		Shares: parseShares(request.URL.Query().Get("shares")),
	}

	app.Templates.Render(writer, http.StatusOK, template.Buy, data)
}

// respondTradeError turns a failed trade into field errors or an apology.
func respondTradeError(
	app *app.App,
	writer http.ResponseWriter,
	request *http.Request,
	page string,
	data TradePageData,
	err error,
) {
	var errs validate.Errors

	switch {
	case errors.Is(err, ledger.ErrQuoteUnavailable):
		status, message := quoteStatus(err)
		util.RespondApology(app, writer, request, status, message)

		return
	case errors.Is(err, ledger.ErrConcurrentModification):
		util.RespondApology(app, writer, request, http.StatusConflict, concurrentTradeMessage)

		return
	case errors.Is(err, ledger.ErrInvalidSymbol):
		errs.Add("symbol", "Symbol is required")
	case errors.Is(err, ledger.ErrNotHeld):
		errs.Add("symbol", ledger.ErrNotHeld.Error())
	case errors.Is(err, ledger.ErrInvalidShares):
		errs.Add("shares", "Shares must be a positive integer")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		errs.Add("shares", insufficientFundsMessage)
	case errors.Is(err, ledger.ErrInsufficientShares):
		errs.Add("shares", insufficientSharesMessage)
	default:
		util.RespondInternalServerError(app, writer, request, err)

		return
	}

	data.Base = util.WithErrors(data.Base, errs)
	util.RespondValidationError(app, writer, page, data)
}

func HandleBuy(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := util.RequireUser(app, writer, request)

	if !ok {
		return
	}

	request.ParseForm()

	trade, errs := validate.ParseTrade(request.Form.Get("symbol"), request.Form.Get("shares"))
	data := TradePageData{
		Base:   util.Base(app, writer, request, user),
		Symbol: trade.Symbol,
		Shares: request.Form.Get("shares"),
	}

	if !errs.Empty() {
		data.Base = util.WithErrors(data.Base, errs)
		util.RespondValidationError(app, writer, template.Buy, data)

		return
	}

	transaction, err := app.Ledger.Buy(request.Context(), user.ID, trade.Symbol, trade.Shares)

	if err != nil {
		respondTradeError(app, writer, request, template.Buy, data, err)

		return
	}

	app.Log.Info(
		"Bought shares",
		zap.Int64("user_id", user.ID),
		zap.String("symbol", transaction.Symbol),
		zap.Int64("shares", transaction.Shares),
		zap.String("cost", transaction.Cost.String()),
	)
	util.Flash(app, writer, request, "success", "Bought!")
	http.Redirect(writer, request, "/", http.StatusFound)
}

// loadSellForm builds the sell form data. false means a response has been
// written.
func loadSellForm(app *app.App, writer http.ResponseWriter, request *http.Request, user *model.User) (TradePageData, bool) {
	holdings, err := app.Ledger.Holdings(request.Context(), user.ID)

	if err != nil {
		util.RespondInternalServerError(app, writer, request, err)

		return TradePageData{}, false
	}

	data := TradePageData{
		Base:     util.Base(app, writer, request, user),
		Holdings: holdings,
	}

	return data, true
}

func HandleSellForm(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := util.RequireUser(app, writer, request)

	if !ok {
		return
	}

	data, ok := loadSellForm(app, writer, request, user)

	if !ok {
		return
	}

	data.Symbol = quote.Normalize(request.URL.Query().Get("symbol"))
	data.Shares = parseShares(request.URL.Query().Get("shares"))

	app.Templates.Render(writer, http.StatusOK, template.Sell, data)
}

func HandleSell(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := util.RequireUser(app, writer, request)

	if !ok {
		return
	}

	data, ok := loadSellForm(app, writer, request, user)

	if !ok {
		return
	}

	request.ParseForm()

	trade, errs := validate.ParseTrade(request.Form.Get("symbol"), request.Form.Get("shares"))
	data.Symbol = trade.Symbol
	data.Shares = request.Form.Get("shares")

	if !errs.Empty() {
		data.Base = util.WithErrors(data.Base, errs)
		util.RespondValidationError(app, writer, template.Sell, data)

		return
	}

	transaction, err := app.Ledger.Sell(request.Context(), user.ID, trade.Symbol, trade.Shares)

	if err != nil {
		respondTradeError(app, writer, request, template.Sell, data, err)

		return
	}

	app.Log.Info(
		"Sold shares",
		zap.Int64("user_id", user.ID),
		zap.String("symbol", transaction.Symbol),
		zap.Int64("shares", -transaction.Shares),
		zap.String("proceeds", transaction.Cost.Neg().String()),
	)
	util.Flash(app, writer, request, "success", "Sold!")
	http.Redirect(writer, request, "/", http.StatusFound)
}

func HandleHistory(app *app.App, writer http.ResponseWriter, request *http.Request) {
	user, ok := util.RequireUser(app, writer, request)

	if !ok {
		return
	}

	transactions, err := app.Ledger.History(request.Context(), user.ID)

	if err != nil {
		util.RespondInternalServerError(app, writer, request, err)

		return
	}

	data := HistoryPageData{
		Base:         util.Base(app, writer, request, user),
		Transactions: transactions,
	}

	app.Templates.Render(writer, http.StatusOK, template.History, data)
}

// QuoteAPIView returns a quote as JSON for logged in users.
func QuoteAPIView(app *app.App) lax.View {
	return lax.View{
		Get: func(request *lax.Request) any {
			user, err := util.LoadUser(app, request.Request)

			if err != nil {
				return err
			}

			if user == nil {
				return lax.MakeErrorResponse(http.StatusUnauthorized, "login required")
			}

			symbol, errs := validate.Symbol(query.Var(request.Request, "symbol"))

			if !errs.Empty() {
				return lax.MakeErrorResponse(http.StatusBadRequest, errs.Error())
			}

			found, err := app.Quotes.Lookup(request.Context(), symbol)

			if err != nil {
				if errors.Is(err, quote.ErrNotFound) {
					return lax.MakeErrorResponse(http.StatusNotFound, stockNotFoundMessage)
				}

				app.Log.Warn("Quote lookup failed", zap.String("symbol", symbol), zap.Error(err))

				return lax.MakeErrorResponse(http.StatusBadGateway, quoteUnavailableMessage)
			}

			return QuoteResponse{
				Symbol: found.Symbol,
				Name:   found.Name,
				Price:  found.Price.StringFixed(2),
			}
		},
	}
}

// parseShares reads a share count from a query string for prefilling forms.
func parseShares(value string) string {
	if count, err := strconv.ParseInt(value, 10, 64); err == nil && count > 0 {
		return strconv.FormatInt(count, 10)
	}

	return ""
}
