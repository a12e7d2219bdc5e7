package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"finsight/internal/core"
	"finsight/internal/report"
	"finsight/internal/reveal"
)

// ReportGenerator produces report text for a prompt.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, prompt string) (string, error)
}

// TransactionFetcher lists a user's transactions for a filter.
type TransactionFetcher interface {
	Fetch(ctx context.Context, userID string, f core.Filter, now time.Time) ([]core.Transaction, error)
}

// ReportResult describes an accepted report.
type ReportResult struct {
	Ticket      uint64 `json:"ticket"`
	PromptChars int    `json:"prompt_chars"`
	Length      int    `json:"length"`
}

// ReportService runs the report pipeline: prompt, generation and reveal
// on the user's session.
type ReportService struct {
	transactions TransactionFetcher
	builder      report.PromptBuilder
	generator    ReportGenerator
	sessions     *reveal.Sessions
}

func NewReportService(tx TransactionFetcher, builder report.PromptBuilder, gen ReportGenerator, sessions *reveal.Sessions) *ReportService {
	return &ReportService{
		transactions: tx,
		builder:      builder,
		generator:    gen,
		sessions:     sessions,
	}
}

// RequestForFilter generates a report over the user's current listing.
func (s *ReportService) RequestForFilter(ctx context.Context, userID string, f core.Filter, now time.Time) (ReportResult, error) {
	txs, err := s.transactions.Fetch(ctx, userID, f, now)
	if err != nil {
		return ReportResult{}, err
	}
	return s.Request(ctx, userID, report.EntriesFrom(txs))
}

// Request generates a report over entries and reveals it on the user's
// panel, which reports generating meanwhile. A request that completes after a newer one from the same user
// returns core.ErrReportSuperseded and leaves the panel alone.
func (s *ReportService) Request(ctx context.Context, userID string, entries []report.Entry) (ReportResult, error) {
	sess := s.sessions.Get(userID)
	ticket := sess.NextTicket()

	prompt, err := s.builder.Build(entries)
	if err != nil {
		sess.Fail(ticket)
		return ReportResult{}, err
	}

	// the caller going away does not abort generation; the panel is
	// observed separately
	text, err := s.generator.GenerateReport(context.WithoutCancel(ctx), prompt)
	if err != nil {
		slog.ErrorContext(ctx, "Report generation failed", "user_id", userID, "ticket", ticket, "error", err)
		sess.Fail(ticket)
		return ReportResult{}, err
	}

	if !sess.Reveal(ticket, text) {
		slog.InfoContext(ctx, "Dropping superseded report", "user_id", userID, "ticket", ticket)
		return ReportResult{}, fmt.Errorf("%w: ticket %d", core.ErrReportSuperseded, ticket)
	}

	res := ReportResult{
		Ticket:      ticket,
		PromptChars: utf8.RuneCountInString(prompt),
		Length:      utf8.RuneCountInString(text),
	}
	slog.InfoContext(ctx, "Report generated",
		"user_id", userID,
		"ticket", ticket,
		"prompt_chars", res.PromptChars,
		"report_chars", res.Length)
	return res, nil
}

// Dismiss stops the user's reveal.
func (s *ReportService) Dismiss(userID string) {
	s.sessions.Get(userID).Controller.Stop()
}

// Panel returns the display surface of the user's report.
func (s *ReportService) Panel(userID string) *reveal.Panel {
	return s.sessions.Get(userID).Panel
}
