package http

import (
	"net/http"

	"finsight/internal/core"
	applog "finsight/internal/log"
)

type listTransactionsResponse struct {
	Filter       core.Filter        `json:"filter"`
	Window       *core.Window       `json:"window"`
	Transactions []core.Transaction `json:"transactions"`
	Summary      core.Summary       `json:"summary"`
}

type categoriesResponse struct {
	Income  []string `json:"income"`
	Expense []string `json:"expense"`
}

// handleListTransactions serves GET /api/transactions?filter=all|day|week|month.
// The filter defaults to all.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("filter")
	if raw == "" {
		raw = string(core.FilterAll)
	}
	f, err := core.ParseFilter(raw)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}

	listing, err := s.transactions.List(r.Context(), userFrom(r.Context()), f, s.now().In(s.loc))
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	txs := listing.Transactions
	if txs == nil {
		txs = []core.Transaction{}
	}

	writeJSON(w, http.StatusOK, listTransactionsResponse{
		Filter:       f,
		Window:       listing.Window,
		Transactions: txs,
		Summary:      core.Summarize(txs),
	})
}

// handleCreateTransaction validates the entry form before anything reaches
// the store.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := parseCreateTransaction(r)
	if err != nil {
		s.writeError(w, r, applog.OpValidate, err)
		return
	}
	in, err := req.toInput(s.loc)
	if err != nil {
		s.writeError(w, r, applog.OpValidate, err)
		return
	}

	userID := userFrom(r.Context())
	id, err := s.transactions.Add(r.Context(), userID, in)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}

	s.events.LogTransactionCreated(r.Context(), userID, id, string(in.Type), in.Category, in.Amount.StringFixed(2))
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, categoriesResponse{
		Income:  core.CategoriesFor(core.Income),
		Expense: core.CategoriesFor(core.Expense),
	})
}
