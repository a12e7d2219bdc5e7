package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finsight/internal/core"
)

// Generator turns a prompt into report text. Implementations make exactly
// one call to the engine and do not retry.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Formatter post-processes generated text before it is displayed.
type Formatter func(string) string

var errEmptyReport = errors.New("generator returned an empty report")

// Client requests reports from a Generator.
type Client struct {
	gen    Generator
	format Formatter
}

type Option func(*Client)

// WithFormatter replaces the identity formatter.
func WithFormatter(f Formatter) Option {
	return func(c *Client) {
		if f != nil {
			c.format = f
		}
	}
}

func NewClient(gen Generator, opts ...Option) *Client {
	c := &Client{gen: gen, format: func(s string) string { return s }}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateReport performs one generation call. Every failure, including an
// empty response, is reported as core.ErrReportGeneration.
func (c *Client) GenerateReport(ctx context.Context, prompt string) (string, error) {
	text, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrReportGeneration, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %w", core.ErrReportGeneration, errEmptyReport)
	}
	return c.format(text), nil
}
