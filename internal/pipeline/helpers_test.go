package pipeline_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/station-data-etl-service/internal/adapter/memstore"
	"github.com/couchcryptid/station-data-etl-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

const gsodHeader = `"STATION","DATE","LATITUDE","LONGITUDE","ELEVATION","TEMP","DEWP","STP","MIN","MAX","PRCP","FRSHTT"`

func csvOf(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

// stationCSV builds a consistent station-year file with one row per temp.
func stationCSV(station string, temps ...string) []byte {
	lines := []string{gsodHeader}
	for i, temp := range temps {
		lines = append(lines, fmt.Sprintf(`"%s","1929-01-%02d","51.25","-2.333","134.0","%s","40","1000","45","55","0","000000"`,
			station, i+1, temp))
	}
	return csvOf(lines...)
}

func newStore(t *testing.T) (*memstore.Store, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	return memstore.New(clock), clock
}

func put(t *testing.T, s *memstore.Store, key string, data []byte) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), key, data, nil))
}

// getFailer fails Get for the listed keys with err.
type getFailer struct {
	*memstore.Store
	keys map[string]bool
	err  error
}

func (g *getFailer) Get(ctx context.Context, key string) ([]byte, error) {
	if g.keys[key] {
		return nil, g.err
	}
	return g.Store.Get(ctx, key)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OutputEvent
	err    error
}

func (p *recordingPublisher) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) byType(eventType string) []domain.OutputEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.OutputEvent
	for _, e := range p.events {
		if e.Headers["event_type"] == eventType {
			out = append(out, e)
		}
	}
	return out
}
