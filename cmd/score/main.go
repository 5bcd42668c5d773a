// Command score runs the scoring engine offline over a batch schema
// document, a threat feed file, or links given as arguments.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/linkguard/internal/batch"
	"github.com/JaimeStill/linkguard/internal/config"
	"github.com/JaimeStill/linkguard/internal/feeds"
	"github.com/JaimeStill/linkguard/internal/scoring"
)

type options struct {
	schema  string
	feed    string
	format  string
	source  string
	sectors string
	sector  string
	out     string
	workers int
}

// FeedResult is one scored feed entry in the CLI output.
type FeedResult struct {
	Source      string          `json:"source"`
	ThreatLabel string          `json:"threat_label"`
	Sector      string          `json:"sector"`
	Score       *scoring.Record `json:"score"`
}

// FeedOutput is the CLI output for a feed run.
type FeedOutput struct {
	Report  *feeds.Report         `json:"report"`
	Results map[string]FeedResult `json:"results"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.LoadOffline).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

const tldRefreshTimeout = 10 * time.Second

func newRootCmd(load func() (*config.Offline, error)) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "score [links...]",
		Short: "Score URLs, app links, and content links offline",
		Long: "Score a batch schema document (--schema), a threat feed file (--feed), " +
			"or the links given as arguments. Output is JSON.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := 0
			for _, set := range []bool{opts.schema != "", opts.feed != "", len(args) > 0} {
				if set {
					modes++
				}
			}
			if modes != 1 {
				return errors.New("provide exactly one of --schema, --feed, or link arguments")
			}

			off, err := load()
			if err != nil {
				return err
			}
			cfg := off.Scoring
			if opts.workers <= 0 {
				opts.workers = cfg.BatchWorkers
			}

			logger := off.Log.NewLogger(cmd.ErrOrStderr())
			engine := scoring.New(cfg, logger)
			if cfg.TLDRefresh {
				ctx, cancel := context.WithTimeout(cmd.Context(), tldRefreshTimeout)
				if err := engine.RefreshTLDs(ctx); err != nil {
					logger.Warn("tld refresh failed, keeping fallback list", "error", err)
				}
				cancel()
			}

			var result any
			switch {
			case opts.schema != "":
				result, err = runSchema(cmd.Context(), engine, opts)
			case opts.feed != "":
				if opts.sectors == "" {
					opts.sectors = cfg.SectorsPath
				}
				result, err = runFeed(cmd.Context(), engine, opts)
			default:
				result = runLinks(cmd.Context(), engine, args, opts.sector)
			}
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), opts.out, result)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.schema, "schema", "", "Batch schema document to score")
	f.StringVar(&opts.feed, "feed", "", "Threat feed file to score")
	f.StringVar(&opts.format, "format", "list", "Feed format: urlhaus, adblock, list, hostfile")
	f.StringVar(&opts.source, "source", "", "Source name recorded on feed results (default: format)")
	f.StringVar(&opts.sectors, "sectors", "", "Sector keyword file for feeds (default: scoring.sectors_path)")
	f.StringVar(&opts.sector, "sector", scoring.DefaultSector, "Sector for link arguments")
	f.StringVarP(&opts.out, "out", "o", "", "Output file (default: stdout)")
	f.IntVar(&opts.workers, "workers", 0, "Concurrent scoring calls (default: scoring.batch_workers)")

	return cmd
}

func runSchema(ctx context.Context, scorer batch.Scorer, opts options) (*batch.Scored, error) {
	in, err := os.Open(opts.schema)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer in.Close()

	schema, err := batch.DecodeSchema(in)
	if err != nil {
		return nil, err
	}

	results, err := batch.Run(ctx, scorer, schema.Items(), opts.workers)
	if err != nil {
		return nil, err
	}
	return batch.Bucket(results), nil
}

func runFeed(ctx context.Context, scorer batch.Scorer, opts options) (*FeedOutput, error) {
	sectors, err := feeds.LoadSectors(opts.sectors)
	if err != nil {
		return nil, err
	}

	in, err := os.Open(opts.feed)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	defer in.Close()

	report, err := feeds.Ingest(ctx, scorer, in, feeds.Options{
		Format:  opts.format,
		Source:  opts.source,
		Sectors: sectors,
		Workers: opts.workers,
	})
	if err != nil {
		return nil, err
	}

	out := &FeedOutput{
		Report:  report,
		Results: make(map[string]FeedResult, len(report.Results)),
	}
	for _, r := range report.Results {
		out.Results[r.ID] = FeedResult{
			Source:      r.Source,
			ThreatLabel: r.Label,
			Sector:      r.Record.Sector,
			Score:       r.Record,
		}
	}
	return out, nil
}

func runLinks(ctx context.Context, engine *scoring.Engine, links []string, sector string) []*scoring.Record {
	records := make([]*scoring.Record, 0, len(links))
	for _, link := range links {
		records = append(records, engine.ScoreInput(ctx, link, sector))
	}
	return records
}

func writeJSON(stdout io.Writer, path string, v any) (err error) {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close output: %w", cerr)
			}
		}()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
