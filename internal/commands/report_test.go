package commands

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/config"
	"finsight/internal/core"
	"finsight/internal/services"
	"finsight/internal/storage"
	"finsight/internal/store"
)

type fakeGenerator struct {
	text   string
	err    error
	prompt string
}

func (f *fakeGenerator) GenerateReport(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.text, f.err
}

func seedDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "finsight.db")
	repo, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.Insert(context.Background(), store.Record{
		UserID:   "alice",
		Date:     core.NewDate(2024, 1, 10).Timestamp(),
		Type:     core.Expense,
		Category: "Food",
		Amount:   decimal.RequireFromString("12.50"),
	})
	require.NoError(t, err)
	return path
}

func run(t *testing.T, gen *fakeGenerator, args ...string) (string, error) {
	t.Helper()
	cmd := newReportCommand(func(*config.Config) services.ReportGenerator { return gen })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReportCommand(t *testing.T) {
	db := seedDB(t)
	gen := &fakeGenerator{text: "Eat out less."}

	out, err := run(t, gen, "--user", "alice", "--filter", "all", "--db", db, "--interval", "1ms")
	require.NoError(t, err)
	assert.Equal(t, "Eat out less.\n", out)
	assert.Contains(t, gen.prompt, `"category": "Food"`)
}

func TestReportCommandInstant(t *testing.T) {
	db := seedDB(t)
	out, err := run(t, &fakeGenerator{text: "Fine."}, "-u", "alice", "-f", "all", "--db", db, "--instant")
	require.NoError(t, err)
	assert.Equal(t, "Fine.\n", out)
}

func TestReportCommandErrors(t *testing.T) {
	db := seedDB(t)
	tests := []struct {
		name string
		gen  *fakeGenerator
		args []string
		want string
	}{
		{"missing user", &fakeGenerator{}, []string{"--db", db}, "--user is required"},
		{"bad filter", &fakeGenerator{}, []string{"-u", "alice", "-f", "year", "--db", db}, "invalid filter"},
		{"generator failure", &fakeGenerator{err: errors.New("quota")}, []string{"-u", "alice", "-f", "all", "--db", db}, "quota"},
		{"extra args", &fakeGenerator{}, []string{"alice"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.gen, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReportCommandNoTransactions(t *testing.T) {
	db := seedDB(t)
	gen := &fakeGenerator{text: "unused"}
	out, err := run(t, gen, "-u", "bob", "-f", "all", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No transactions for bob")
	assert.Empty(t, gen.prompt)
}

func TestTypeOutStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	long := strings.Repeat("x", 1000)
	require.NoError(t, typeOut(ctx, &out, long, 5*time.Millisecond))
	assert.Less(t, out.Len(), len(long))
	assert.True(t, strings.HasSuffix(out.String(), "\n"))
}

