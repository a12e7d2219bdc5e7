package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"finsight/internal/core"
	"finsight/internal/store"
)

var _ store.TransactionStore = (*Store)(nil)

type row struct {
	seq  int
	rec  store.Record
	when core.Date
}

// Store keeps transactions in process memory. It is used for local
// development and tests.
type Store struct {
	mu   sync.Mutex
	seq  int
	rows []row
}

func New() *Store {
	return &Store{}
}

// Insert stores rec verbatim and assigns a new id. The date is only parsed
// to be able to order and filter rows; the original value is returned by
// Query untouched.
func (s *Store) Insert(_ context.Context, rec store.Record) (string, error) {
	if rec.UserID == "" {
		return "", errors.New("missing owner id")
	}
	when, err := core.Normalize(rec.Date)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	rec.ID = uuid.NewString()
	s.rows = append(s.rows, row{seq: s.seq, rec: rec, when: when})
	return rec.ID, nil
}

// Query returns the owner's rows inside q.Window.
func (s *Store) Query(_ context.Context, q store.Query) ([]store.Record, error) {
	s.mu.Lock()
	matched := make([]row, 0, len(s.rows))
	for _, r := range s.rows {
		if r.rec.UserID != q.OwnerID {
			continue
		}
		if q.Window != nil && !q.Window.Contains(r.when.Time) {
			continue
		}
		matched = append(matched, r)
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.when.Equal(b.when.Time) {
			return a.when.After(b.when.Time)
		}
		return a.seq > b.seq
	})

	out := make([]store.Record, len(matched))
	for i, r := range matched {
		out[i] = r.rec
	}
	return out, nil
}

// Len reports the number of stored rows across all owners.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
