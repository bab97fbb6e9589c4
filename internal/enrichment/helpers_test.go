package enrichment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/couchcryptid/rain-fact-enricher/internal/adapter/memgraph"
	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
	"github.com/stretchr/testify/require"
)

const minskForecast = `{"list":[
	{"dt_txt":"2024-06-01 09:00:00","pop":0.2},
	{"dt_txt":"2024-06-01 12:00:00","pop":0.7},
	{"dt_txt":"2024-06-02 00:00:00","pop":0.9}
]}`

const dryForecast = `{"list":[
	{"dt_txt":"2024-06-01 09:00:00","pop":0.1},
	{"dt_txt":"2024-06-01 12:00:00"}
]}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadSeed(t *testing.T, name string) *memgraph.Store {
	t.Helper()
	s, err := memgraph.LoadSeedFile(context.Background(), filepath.Join("testdata", name))
	require.NoError(t, err)
	return s
}

func addr(t *testing.T, s domain.GraphStore, idtf string) domain.Addr {
	t.Helper()
	a, err := s.FindByIdentifier(context.Background(), idtf)
	require.NoError(t, err)
	return a
}

// spyStore counts mutating calls and can fail them on demand.
type spyStore struct {
	*memgraph.Store
	writes  atomic.Int32
	failErr error
}

func (s *spyStore) TryRename(ctx context.Context, node domain.Addr, idtf string) (domain.RenameResult, error) {
	s.writes.Add(1)
	if s.failErr != nil {
		return domain.RenameResult{}, s.failErr
	}
	return s.Store.TryRename(ctx, node, idtf)
}

func (s *spyStore) CreateEdge(ctx context.Context, kind domain.EdgeKind, from, to domain.Addr) (domain.Addr, error) {
	s.writes.Add(1)
	if s.failErr != nil {
		return 0, s.failErr
	}
	return s.Store.CreateEdge(ctx, kind, from, to)
}

func (s *spyStore) Erase(ctx context.Context, a domain.Addr) error {
	s.writes.Add(1)
	if s.failErr != nil {
		return s.failErr
	}
	return s.Store.Erase(ctx, a)
}

func (s *spyStore) Apply(ctx context.Context, tx *domain.Transaction) ([]domain.Addr, error) {
	s.writes.Add(1)
	if s.failErr != nil {
		return nil, s.failErr
	}
	return s.Store.Apply(ctx, tx)
}

// stubFetcher returns a canned body or error and records the cities asked for.
type stubFetcher struct {
	body   string
	err    error
	cities []string
}

func (f *stubFetcher) FetchForecast(_ context.Context, city string) ([]byte, error) {
	f.cities = append(f.cities, city)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body), nil
}

var errStoreDown = errors.New("store unavailable")
