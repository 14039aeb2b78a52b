package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"walletbook/internal/aggregate"
	"walletbook/internal/core"
	"walletbook/internal/engine"
	"walletbook/internal/ledger"
	"walletbook/internal/log"
)

const dateLayout = "2006-01-02"

type transactionRequest struct {
	Type       string `json:"type"`
	Amount     string `json:"amount"`
	Date       string `json:"date"`
	CategoryID string `json:"category_id"`
	WalletID   string `json:"wallet_id"`
}

type transactionPatchRequest struct {
	Type       *string `json:"type"`
	Amount     *string `json:"amount"`
	Date       *string `json:"date"`
	CategoryID *string `json:"category_id"`
	WalletID   *string `json:"wallet_id"`
}

type transactionResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	CategoryID  string `json:"category_id,omitempty"`
	WalletID    string `json:"wallet_id"`
}

type dailySummaryResponse struct {
	Date         string                `json:"date"`
	IncomeCents  int64                 `json:"income_cents"`
	ExpenseCents int64                 `json:"expense_cents"`
	Transactions []transactionResponse `json:"transactions"`
}

type walletBalanceResponse struct {
	BalanceCents int64  `json:"balance_cents"`
	Balance      string `json:"balance"`
}

type alertResponse struct {
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type overviewResponse struct {
	Year           int                              `json:"year"`
	Month          int                              `json:"month"`
	Daily          []dailySummaryResponse           `json:"daily"`
	MonthlyIncome  int64                            `json:"monthly_income_cents"`
	MonthlyExpense int64                            `json:"monthly_expense_cents"`
	WalletBalances map[string]walletBalanceResponse `json:"wallet_balances"`
	Alerts         []alertResponse                  `json:"alerts"`
}

type categoryLimitPayload struct {
	CategoryID string `json:"category_id"`
	Limit      string `json:"limit"`
}

type alertSettingsPayload struct {
	MonthlyTargetEnabled  bool                   `json:"monthly_target_enabled"`
	MonthlyTarget         *string                `json:"monthly_target"`
	CategoryLimitsEnabled bool                   `json:"category_limits_enabled"`
	CategoryLimits        []categoryLimitPayload `json:"category_limits"`
}

type categoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
	Kind string `json:"kind"`
}

type walletResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := transactionFromRequest(req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	created, err := s.engine.AddTransaction(r.Context(), tx)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.engine.GetTransaction(r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	patch, err := patchFromRequest(req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	updated, err := s.engine.UpdateTransaction(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	view, err := viewFromQuery(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ov, err := s.engine.Overview(r.Context(), view)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "overview failed", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, toOverviewResponse(view, ov))
}

func (s *Server) handleGetAlertSettings(w http.ResponseWriter, r *http.Request) {
	as, err := s.engine.AlertSettings(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "read alert settings failed", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, toAlertSettingsPayload(as))
}

func (s *Server) handlePutAlertSettings(w http.ResponseWriter, r *http.Request) {
	var req alertSettingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	as, err := alertSettingsFromPayload(req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.engine.UpdateAlertSettings(r.Context(), as); err != nil {
		s.logger.ErrorContext(r.Context(), "save alert settings failed", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, toAlertSettingsPayload(as))
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	categories := s.engine.Categories()
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name, Icon: c.Icon, Kind: string(c.Kind)})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListWallets(w http.ResponseWriter, _ *http.Request) {
	wallets := s.engine.Wallets()
	out := make([]walletResponse, 0, len(wallets))
	for _, wl := range wallets {
		out = append(out, walletResponse{ID: wl.ID, Name: wl.Name, Icon: wl.Icon})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func transactionFromRequest(req transactionRequest) (core.Transaction, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Type:       core.TransactionType(strings.TrimSpace(req.Type)),
		Amount:     core.Money{Cents: cents},
		Date:       date,
		CategoryID: strings.TrimSpace(req.CategoryID),
		WalletID:   strings.TrimSpace(req.WalletID),
	}, nil
}

func patchFromRequest(req transactionPatchRequest) (ledger.Patch, error) {
	var patch ledger.Patch
	if req.Type != nil {
		t := core.TransactionType(strings.TrimSpace(*req.Type))
		patch.Type = &t
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			return ledger.Patch{}, err
		}
		m := core.Money{Cents: cents}
		patch.Amount = &m
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return ledger.Patch{}, err
		}
		patch.Date = &date
	}
	if req.CategoryID != nil {
		id := strings.TrimSpace(*req.CategoryID)
		patch.CategoryID = &id
	}
	if req.WalletID != nil {
		id := strings.TrimSpace(*req.WalletID)
		patch.WalletID = &id
	}
	return patch, nil
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return core.Date{}, core.ErrInvalidDate
	}
	return core.Date{Time: t}, nil
}

// viewFromQuery reads the view selection from query parameters. Year and
// month default to the current month; day and wallet are optional filters.
func viewFromQuery(r *http.Request) (aggregate.View, error) {
	now := time.Now()
	view := aggregate.View{Year: now.Year(), Month: int(now.Month())}

	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			return aggregate.View{}, errors.New("invalid year parameter")
		}
		view.Year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return aggregate.View{}, errors.New("invalid month parameter")
		}
		view.Month = m
	}
	if v := strings.TrimSpace(q.Get("day")); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 1 || d > 31 {
			return aggregate.View{}, errors.New("invalid day parameter")
		}
		view.Day = d
	}
	view.WalletID = strings.TrimSpace(q.Get("wallet"))
	return view, nil
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Type:        string(tx.Type),
		AmountCents: tx.Amount.Cents,
		Amount:      tx.Amount.Decimal(),
		Date:        tx.Date.Time.Format(dateLayout),
		CategoryID:  tx.CategoryID,
		WalletID:    tx.WalletID,
	}
}

func toOverviewResponse(view aggregate.View, ov engine.Overview) overviewResponse {
	out := overviewResponse{
		Year:           view.Year,
		Month:          view.Month,
		Daily:          make([]dailySummaryResponse, 0, len(ov.DailySummaries)),
		MonthlyIncome:  ov.Monthly.Income.Cents,
		MonthlyExpense: ov.Monthly.Expense.Cents,
		WalletBalances: make(map[string]walletBalanceResponse, len(ov.WalletBalances)),
		Alerts:         make([]alertResponse, 0, len(ov.Alerts)),
	}
	for _, ds := range ov.DailySummaries {
		day := dailySummaryResponse{
			Date:         ds.Date.Time.Format(dateLayout),
			IncomeCents:  ds.Income.Cents,
			ExpenseCents: ds.Expense.Cents,
			Transactions: make([]transactionResponse, 0, len(ds.Transactions)),
		}
		for _, tx := range ds.Transactions {
			day.Transactions = append(day.Transactions, toTransactionResponse(tx))
		}
		out.Daily = append(out.Daily, day)
	}
	for id, wb := range ov.WalletBalances {
		out.WalletBalances[id] = walletBalanceResponse{
			BalanceCents: wb.Balance.Cents,
			Balance:      wb.Balance.Format(),
		}
	}
	for _, a := range ov.Alerts {
		out.Alerts = append(out.Alerts, alertResponse{
			Severity:    string(a.Severity),
			Title:       a.Title,
			Description: a.Description,
		})
	}
	return out
}

func toAlertSettingsPayload(as core.AlertSettings) alertSettingsPayload {
	out := alertSettingsPayload{
		MonthlyTargetEnabled:  as.MonthlyTargetEnabled,
		CategoryLimitsEnabled: as.CategoryLimitsEnabled,
		CategoryLimits:        make([]categoryLimitPayload, 0, len(as.CategoryLimits)),
	}
	// Amounts go out as plain decimals: the payload must survive a
	// GET-then-PUT round trip, and grouped output would not.
	if as.MonthlyTarget != nil {
		v := as.MonthlyTarget.Decimal()
		out.MonthlyTarget = &v
	}
	for _, cl := range as.CategoryLimits {
		out.CategoryLimits = append(out.CategoryLimits, categoryLimitPayload{
			CategoryID: cl.CategoryID,
			Limit:      cl.Limit.Decimal(),
		})
	}
	return out
}

func alertSettingsFromPayload(req alertSettingsPayload) (core.AlertSettings, error) {
	out := core.AlertSettings{
		MonthlyTargetEnabled:  req.MonthlyTargetEnabled,
		CategoryLimitsEnabled: req.CategoryLimitsEnabled,
		CategoryLimits:        make([]core.CategoryLimit, 0, len(req.CategoryLimits)),
	}
	if req.MonthlyTarget != nil {
		cents, err := core.ParseDecimalToCents(*req.MonthlyTarget)
		if err != nil {
			return core.AlertSettings{}, err
		}
		out.MonthlyTarget = &core.Money{Cents: cents}
	}
	for _, cl := range req.CategoryLimits {
		cents, err := core.ParseDecimalToCents(cl.Limit)
		if err != nil {
			return core.AlertSettings{}, err
		}
		out.CategoryLimits = append(out.CategoryLimits, core.CategoryLimit{
			CategoryID: cl.CategoryID,
			Limit:      core.Money{Cents: cents},
		})
	}
	return out, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, _ *http.Request, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain failures onto HTTP status codes: validation
// failures are 422, missing transactions 404, everything else 500.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrTransactionNotFound):
		s.writeError(w, r, http.StatusNotFound, "transaction not found")
	case errors.Is(err, core.ErrValidation):
		s.writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "request failed", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
