// Command validate checks a local station-year tree laid out as
// {dir}/{year}/{station}.csv. It prints every file's verdict, then runs the
// full pipeline against an in-memory copy of the tree and prints the summary
// each year would get. It exits 1 if any file fails validation.
//
// Usage:
//
//	go run ./cmd/validate --dir data/mock
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/alecthomas/kong"
	"github.com/couchcryptid/station-data-etl-service/internal/adapter/memstore"
	"github.com/couchcryptid/station-data-etl-service/internal/domain"
	"github.com/couchcryptid/station-data-etl-service/internal/observability"
	"github.com/couchcryptid/station-data-etl-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

type cli struct {
	Dir       string `help:"Root of the station-year tree." default:"data/mock" type:"existingdir"`
	Summaries bool   `help:"Print the summary each year would produce." default:"true" negatable:""`
	Verbose   bool   `help:"Log pipeline activity to stderr." short:"v"`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("validate"),
		kong.Description("Validate a local station-year tree and preview yearly summaries."),
	)
	failed, err := c.run(context.Background())
	kctx.FatalIfErrorf(err)
	if failed > 0 {
		fmt.Printf("\n%d file(s) failed validation\n", failed)
		os.Exit(1)
	}
}

func (c *cli) run(ctx context.Context) (int, error) {
	files, err := loadTree(c.Dir)
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	failed := 0
	for _, key := range keys {
		insp := domain.Inspect(files[key])
		line := fmt.Sprintf("%-40s %s", key, insp.Verdict)
		if insp.Column != "" {
			line += " (" + insp.Column + ")"
		}
		if insp.Err != nil {
			line += ": " + insp.Err.Error()
		}
		fmt.Println(line)
		if insp.Verdict != domain.Valid {
			failed++
		}
	}

	if !c.Summaries {
		return failed, nil
	}

	clock := clockwork.NewFakeClock()
	store := memstore.New(clock)
	for _, key := range keys {
		if err := store.Put(ctx, key, files[key], nil); err != nil {
			return 0, err
		}
	}

	logger := slog.New(slog.DiscardHandler)
	if c.Verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	p := pipeline.New(store, clock, pipeline.Options{
		BatchSize:     1000,
		Staleness:     time.Hour,
		NewerThan:     true,
		ForceAllYears: true,
		Workers:       4,
	}, nil, logger, observability.NewMetricsForTesting())

	report, err := p.Run(ctx)
	if err != nil {
		return 0, err
	}

	years, err := pipeline.NewDiscovery(store, clock).All(ctx, domain.SummaryPrefix)
	if err != nil {
		return 0, err
	}
	for _, key := range years {
		data, err := store.Get(ctx, key)
		if err != nil {
			return 0, err
		}
		fmt.Printf("\n== %s\n%s", key, data)
	}
	fmt.Printf("\nvalid=%d quarantined=%d years=%d sites=%d\n",
		report.Valid, report.QuarantinedTotal(), report.YearsWritten, report.Sites)
	return failed, nil
}

// loadTree reads every {year}/{file}.csv under root, keyed by its
// slash-separated relative path.
func loadTree(root string) (map[string][]byte, error) {
	files := make(map[string][]byte)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".csv" {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", root, err)
	}
	return files, nil
}
