package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"finsight/internal/core"
	"finsight/internal/report"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// createTransactionRequest is the entry form, posted as JSON or as a form.
type createTransactionRequest struct {
	Date     string      `json:"date"`
	Type     string      `json:"type"`
	Category string      `json:"category"`
	Amount   amountField `json:"amount"`
}

// amountField accepts both 12.5 and "12,50" in JSON bodies.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amountField(n.String())
	return nil
}

type createReportRequest struct {
	Filter       string         `json:"filter"`
	Transactions []report.Entry `json:"transactions"`
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// decodeJSON decodes a single JSON object. An empty body leaves dst alone.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: malformed JSON body: %w", errBadRequest, err)
	}
	return nil
}

func parseCreateTransaction(r *http.Request) (createTransactionRequest, error) {
	var req createTransactionRequest
	if isJSON(r) {
		err := decodeJSON(r, &req)
		return req, err
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("%w: malformed form: %w", errBadRequest, err)
	}
	req.Date = r.PostForm.Get("date")
	req.Type = r.PostForm.Get("type")
	req.Category = r.PostForm.Get("category")
	req.Amount = amountField(r.PostForm.Get("amount"))
	return req, nil
}

// toInput applies the entry form rules. Calendar-day dates are taken as
// midnight in loc.
func (req createTransactionRequest) toInput(loc *time.Location) (core.TransactionInput, error) {
	var in core.TransactionInput

	date, err := formDate(sanitizeInput(req.Date), loc)
	if err != nil {
		return in, err
	}
	in.Date = date

	if in.Type, err = core.ParseTransactionType(req.Type); err != nil {
		return in, err
	}
	in.Category = sanitizeInput(req.Category)
	if in.Amount, err = core.ParseAmount(string(req.Amount)); err != nil {
		return in, err
	}
	return in, in.Validate()
}

func formDate(s string, loc *time.Location) (any, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: date is required", core.ErrInvalidDateKind)
	}
	if t, err := time.ParseInLocation(core.DayLayout, s, loc); err == nil {
		return t, nil
	}
	d, err := core.Normalize(s)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// sanitizeInput trims whitespace and drops control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
