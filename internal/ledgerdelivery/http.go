// Package ledgerdelivery manages delivery layer of the ledger.
package ledgerdelivery

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/ledgerservice"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/statement"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Ledger provides the ledger operations of the signed-in user.
//
//go:generate mockgen -source http.go -destination http_mock.go -package ledgerdelivery
type Ledger interface {
	CreateAccount(ctx context.Context, category domain.Category) (domain.Account, error)
	Deposit(ctx context.Context, accountID uuid.UUID, amount, description string) (domain.Transaction, error)
	Withdraw(ctx context.Context, accountID uuid.UUID, amount, description string) (domain.Transaction, error)
	Transfer(ctx context.Context, fromID, toID uuid.UUID, amount, description string) (domain.TransferResult, error)
	Account(ctx context.Context, id uuid.UUID) (domain.Account, error)
	Accounts(ctx context.Context) ([]domain.Account, error)
	History(ctx context.Context, accountID uuid.UUID, period statement.Period) ([]domain.Transaction, error)
	Overview(ctx context.Context) (ledgerservice.Overview, error)
	Statement(ctx context.Context, accountID uuid.UUID, period statement.Period) (ledgerservice.Statement, error)
	Close() error
}

// Sessions resolves the active ledger of a user.
type Sessions interface {
	Ledger(username string) (Ledger, error)
}

// Feed lists the notifications of a user.
type Feed interface {
	List(owner string) []domain.Notification
}

// Handler facilitates ledger delivery layer logic.
type Handler struct {
	sessions Sessions
	feed     Feed
}

// NewHandler returns ledger handler.
func NewHandler(s Sessions, f Feed) *Handler {
	return &Handler{
		sessions: s,
		feed:     f,
	}
}

func username(gctx *gin.Context) string {
	return gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload).Username
}

// activeLedger writes 401 and returns false when the user has no active ledger.
func (h *Handler) activeLedger(gctx *gin.Context) (Ledger, bool) {
	lg, err := h.sessions.Ledger(username(gctx))
	if err != nil {
		zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()
		gctx.JSON(http.StatusUnauthorized, web.Error(domain.ErrNoActiveUser))

		return nil, false
	}

	return lg, true
}

func fail(gctx *gin.Context, err error) {
	switch err {
	case domain.ErrInvalidAmount,
		domain.ErrInsufficientFunds,
		domain.ErrSameAccount,
		domain.ErrInvalidCategory,
		statement.ErrInvalidPeriod:
		gctx.JSON(http.StatusBadRequest, web.Error(err))
		return
	case domain.ErrAccountNotFound:
		gctx.JSON(http.StatusNotFound, web.Error(err))
		return
	case domain.ErrNoActiveUser:
		gctx.JSON(http.StatusUnauthorized, web.Error(err))
		return
	}

	zerolog.Ctx(gctx.Request.Context()).Error().Err(err).Send()
	gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
}

func badRequest(gctx *gin.Context, err error) {
	zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()
	gctx.JSON(http.StatusBadRequest, web.BindingError(err))
}

type accountURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type periodQuery struct {
	Period string `form:"period"`
}

type accountData struct {
	Account domain.Account `json:"account"`
}

type accountsData struct {
	Accounts []domain.Account `json:"accounts"`
}

type transactionData struct {
	Transaction domain.Transaction `json:"transaction"`
}

type transactionsData struct {
	Period       statement.Period     `json:"period"`
	Transactions []domain.Transaction `json:"transactions"`
}

type transferData struct {
	Transfer domain.TransferResult `json:"transfer"`
}

type overviewData struct {
	Overview ledgerservice.Overview `json:"overview"`
}

type statementData struct {
	Statement ledgerservice.Statement `json:"statement"`
}

type notificationsData struct {
	Notifications []domain.Notification `json:"notifications"`
}

// Overview handles http request to get all accounts with the total balance.
func (h *Handler) Overview(gctx *gin.Context) {
	lg, ok := h.activeLedger(gctx)
	if !ok {
		return
	}

	overview, err := lg.Overview(gctx.Request.Context())
	if err != nil {
		fail(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: overviewData{overview}})
}

type createAccountRequest struct {
	Category string `json:"category" binding:"required,category"`
}

// CreateAccount handles http request to open an account.
func (h *Handler) CreateAccount(gctx *gin.Context) {
	var req createAccountRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		badRequest(gctx, err)
		return
	}

	lg, ok := h.activeLedger(gctx)
	if !ok {
		return
	}

	acc, err := lg.CreateAccount(gctx.Request.Context(), domain.Category(req.Category))
	if err != nil {
		fail(gctx, err)
		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: accountData{acc}})
}

// ListAccounts handles http request to list accounts in creation order.
func (h *Handler) ListAccounts(gctx *gin.Context) {
	lg, ok := h.activeLedger(gctx)
	if !ok {
		return
	}

	accounts, err := lg.Accounts(gctx.Request.Context())
	if err != nil {
		fail(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: accountsData{accounts}})
}

// GetAccount handles http request to get an account.
func (h *Handler) GetAccount(gctx *gin.Context) {
	var uri accountURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		badRequest(gctx, err)
		return
	}

	lg, ok := h.activeLedger(gctx)
	if !ok {
		return
	}

	acc, err := lg.Account(gctx.Request.Context(), uuid.MustParse(uri.ID))
	if err != nil {
		fail(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: accountData{acc}})
}

// History handles http request to list transactions of an account, newest first.
func (h *Handler) History(gctx *gin.Context) {
	var (
		uri   accountURI
		query periodQuery
	)

	if err := gctx.ShouldBindUri(&uri); err != nil {
		badRequest(gctx, err)
		return
	}

	if err := gctx.ShouldBindQuery(&query); err != nil {
		badRequest(gctx, err)
		return
	}

	period, err := statement.ParsePeriod(query.Period)
	if err != nil {
		fail(gctx, err)
		return
	}

	lg, ok := h.activeLedger(gctx)
	if !ok {
		return
	}

	txs, err := lg.History(gctx.Request.Context(), uuid.MustParse(uri.ID), period)
	if err != nil {
		fail(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: transactionsData{Period: period, Transactions: txs}})
}

// Statement handles http request to get an account statement.
func (h *Handler) Statement(gctx *gin.Context) {
	var (
		uri   accountURI
		query periodQuery
	)

	if err := gctx.ShouldBindUri(&uri); err != nil {
		badRequest(gctx, err)
		return
	}

	if err := gctx.ShouldBindQuery(&query); err != nil {
		badRequest(gctx, err)
		return
	}

	period, err := statement.ParsePeriod(query.Period)
	if err != nil {
		fail(gctx, err)
		return
	}

	lg, ok := h.activeLedger(gctx)
	if !ok {
		return
	}

	st, err := lg.Statement(gctx.Request.Context(), uuid.MustParse(uri.ID), period)
	if err != nil {
		fail(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: statementData{st}})
}

// amount accepts a JSON number or string. Parsing is left to the ledger so
// that malformed amounts fail like any other invalid amount.
type amount json.RawMessage

func (a *amount) UnmarshalJSON(b []byte) error {
	*a = append((*a)[:0], b...)
	return nil
}

func (a amount) String() string {
	var s string
	if err := json.Unmarshal(a, &s); err == nil {
		return s
	}

	return strings.TrimSpace(string(a))
}

type moneyRequest struct {
	Amount      amount `json:"amount"`
	Description string `json:"description" binding:"max=200"`
}

// Deposit handles http request to deposit money to an account.
func (h *Handler) Deposit(gctx *gin.Context) {
	h.move(gctx, func(ctx context.Context, lg Ledger, id uuid.UUID, req moneyRequest) (domain.Transaction, error) {
		return lg.Deposit(ctx, id, req.Amount.String(), req.Description)
	})
}

// Withdraw handles http request to withdraw money from an account.
func (h *Handler) Withdraw(gctx *gin.Context) {
	h.move(gctx, func(ctx context.Context, lg Ledger, id uuid.UUID, req moneyRequest) (domain.Transaction, error) {
		return lg.Withdraw(ctx, id, req.Amount.String(), req.Description)
	})
}

type moveFunc func(ctx context.Context, lg Ledger, id uuid.UUID, req moneyRequest) (domain.Transaction, error)

func (h *Handler) move(gctx *gin.Context, op moveFunc) {
	var (
		uri accountURI
		req moneyRequest
	)

	if err := gctx.ShouldBindUri(&uri); err != nil {
		badRequest(gctx, err)
		return
	}

	if err := gctx.ShouldBindJSON(&req); err != nil {
		badRequest(gctx, err)
		return
	}

	lg, ok := h.activeLedger(gctx)
	if !ok {
		return
	}

	tx, err := op(gctx.Request.Context(), lg, uuid.MustParse(uri.ID), req)
	if err != nil {
		fail(gctx, err)
		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: transactionData{tx}})
}

type transferRequest struct {
	FromAccountID string `json:"from_account_id" binding:"required,uuid"`
	ToAccountID   string `json:"to_account_id" binding:"required,uuid"`
	Amount        amount `json:"amount"`
	Description   string `json:"description" binding:"max=200"`
}

// Transfer handles http request to move money between two accounts.
func (h *Handler) Transfer(gctx *gin.Context) {
	var req transferRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		badRequest(gctx, err)
		return
	}

	lg, ok := h.activeLedger(gctx)
	if !ok {
		return
	}

	res, err := lg.Transfer(gctx.Request.Context(),
		uuid.MustParse(req.FromAccountID), uuid.MustParse(req.ToAccountID), req.Amount.String(), req.Description)
	if err != nil {
		fail(gctx, err)
		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: transferData{res}})
}

// Notifications handles http request to list notifications, newest first.
func (h *Handler) Notifications(gctx *gin.Context) {
	gctx.JSON(http.StatusOK, web.Response{Data: notificationsData{h.feed.List(username(gctx))}})
}
