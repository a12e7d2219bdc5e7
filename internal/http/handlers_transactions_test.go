package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/core"
)

type listBody struct {
	Filter string          `json:"filter"`
	Window json.RawMessage `json:"window"`
	Transactions []struct {
		ID       string `json:"id"`
		Date     string `json:"date"`
		Type     string `json:"type"`
		Category string `json:"category"`
		Amount   string `json:"amount"`
	} `json:"transactions"`
	Summary struct {
		Income  string `json:"income"`
		Expense string `json:"expense"`
		Net     string `json:"net"`
	} `json:"summary"`
}

func decodeList(t *testing.T, body []byte) listBody {
	t.Helper()
	var out listBody
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestCreateAndListTransactions(t *testing.T) {
	env := newTestEnv(t)

	rr := env.postJSON("/api/transactions", "u1", `{"date":"2024-01-05","type":"expense","category":"Food","amount":"12,50"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.NotEmpty(t, created["id"])

	rr = env.postJSON("/api/transactions", "u1", `{"date":"2024-01-10","type":"income","category":"Salary","amount":1000}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	// another user's data stays invisible
	rr = env.postJSON("/api/transactions", "u2", `{"date":"2024-01-10","type":"income","category":"Salary","amount":5}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(http.MethodGet, "/api/transactions?filter=all", "u1", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeList(t, rr.Body.Bytes())
	assert.Equal(t, "all", list.Filter)
	assert.Equal(t, "null", string(list.Window))
	require.Len(t, list.Transactions, 2)
	assert.Equal(t, "Salary", list.Transactions[0].Category, "newest date first")
	assert.Equal(t, "Food", list.Transactions[1].Category)
	assert.Equal(t, "12.5", list.Transactions[1].Amount)
	assert.Equal(t, "1000", list.Summary.Income)
	assert.Equal(t, "987.5", list.Summary.Net)
}

func TestListTransactionsFilters(t *testing.T) {
	env := newTestEnv(t)
	for _, body := range []string{
		`{"date":"2024-01-10","type":"expense","category":"Food","amount":1}`,
		`{"date":"2024-01-07","type":"expense","category":"Rent","amount":2}`,
		`{"date":"2024-01-06","type":"expense","category":"Bills","amount":3}`,
		`{"date":"2023-12-31","type":"expense","category":"Travel","amount":4}`,
	} {
		require.Equal(t, http.StatusCreated, env.postJSON("/api/transactions", "u1", body).Code)
	}

	tests := []struct {
		filter string
		want   []string
	}{
		{"", []string{"Food", "Rent", "Bills", "Travel"}},
		{"day", []string{"Food"}},
		// 2024-01-10 is a Wednesday; the week starts Sunday 2024-01-07
		{"week", []string{"Food", "Rent"}},
		{"month", []string{"Food", "Rent", "Bills"}},
	}
	for _, tt := range tests {
		t.Run("filter="+tt.filter, func(t *testing.T) {
			rr := env.do(http.MethodGet, "/api/transactions?filter="+tt.filter, "u1", "", "")
			require.Equal(t, http.StatusOK, rr.Code)
			var got []string
			for _, tx := range decodeList(t, rr.Body.Bytes()).Transactions {
				got = append(got, tx.Category)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListTransactionsInvalidFilter(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/api/transactions?filter=year", "u1", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid filter")
}

func TestCreateTransactionForm(t *testing.T) {
	env := newTestEnv(t)
	form := url.Values{
		"date":     {"2024-01-09"},
		"type":     {"Expense"},
		"category": {"  Cosmetics "},
		"amount":   {"7.999"},
	}
	rr := env.do(http.MethodPost, "/api/transactions", "u1", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(http.MethodGet, "/api/transactions", "u1", "", "")
	list := decodeList(t, rr.Body.Bytes())
	require.Len(t, list.Transactions, 1)
	assert.Equal(t, "Cosmetics", list.Transactions[0].Category)
	assert.Equal(t, "8", list.Transactions[0].Amount)
}

func TestCreateTransactionValidation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"negative amount", `{"date":"2024-01-05","type":"expense","category":"Food","amount":-5}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"date":"2024-01-05","type":"expense","category":"Food","amount":"0"}`, http.StatusUnprocessableEntity},
		{"garbage amount", `{"date":"2024-01-05","type":"expense","category":"Food","amount":"ten"}`, http.StatusUnprocessableEntity},
		{"bad type", `{"date":"2024-01-05","type":"transfer","category":"Food","amount":5}`, http.StatusUnprocessableEntity},
		{"empty category", `{"date":"2024-01-05","type":"expense","category":"  ","amount":5}`, http.StatusUnprocessableEntity},
		{"bad date", `{"date":"05/01/2024","type":"expense","category":"Food","amount":5}`, http.StatusUnprocessableEntity},
		{"missing date", `{"type":"expense","category":"Food","amount":5}`, http.StatusUnprocessableEntity},
		{"date past storable range", `{"date":"2500-06-01","type":"expense","category":"Food","amount":5}`, http.StatusUnprocessableEntity},
		{"year one", `{"date":"0001-01-01","type":"expense","category":"Food","amount":5}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"date":`, http.StatusBadRequest},
		{"unknown field", `{"date":"2024-01-05","type":"expense","category":"Food","amount":5,"owner":"x"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rr := env.postJSON("/api/transactions", "u1", tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.Equal(t, 0, env.store.insertCount(), "store must not be reached")
		})
	}
}

func TestCreateTransactionStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.fail = errBoom

	rr := env.postJSON("/api/transactions", "u1", `{"date":"2024-01-05","type":"expense","category":"Food","amount":5}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "boom", "causes stay in the logs")
}

func TestListTransactionsCorruptRecord(t *testing.T) {
	env := newTestEnv(t)
	env.store.corrupt = true

	rr := env.do(http.MethodGet, "/api/transactions?filter=month", "u1", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "rec-internal-7")
	assert.NotContains(t, rr.Body.String(), "invalid date kind")
}

func TestStatusForStorageFaultsWin(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad stored date", fmt.Errorf("%w: record abc: %w", core.ErrQueryFailure, core.ErrInvalidDateKind), http.StatusInternalServerError},
		{"bad date on write", fmt.Errorf("%w: %w", core.ErrWriteFailure, core.ErrInvalidDateKind), http.StatusInternalServerError},
		{"bad client date", fmt.Errorf("date: %w", core.ErrInvalidDateKind), http.StatusUnprocessableEntity},
		{"bad filter", core.ErrInvalidFilter, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg, _ := statusFor(tt.err)
			assert.Equal(t, tt.want, status)
			if status >= 500 {
				assert.NotContains(t, msg, "abc")
			}
		})
	}
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/api/categories", "u1", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body categoriesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body.Income, "Salary")
	assert.Contains(t, body.Expense, "Rent")
}
