// Package batch scores many artifacts concurrently with a bounded worker pool.
package batch

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/linkguard/internal/features"
	"github.com/JaimeStill/linkguard/internal/scoring"
)

// Scorer scores a single artifact. *scoring.Engine satisfies it.
type Scorer interface {
	Score(ctx context.Context, a scoring.Artifact) *scoring.Record
}

// Item is one artifact to score under a caller-chosen id.
type Item struct {
	ID       string
	Artifact scoring.Artifact
	Source   string
	Label    string
}

// Result pairs an item with its record.
type Result struct {
	Item
	Record *scoring.Record
}

// Run scores items with at most workers concurrent calls and merges the
// results by artifact kind and id in input order. When ids collide the later
// item wins and keeps the position of the first occurrence. Run fails only
// when ctx is cancelled.
func Run(ctx context.Context, scorer Scorer, items []Item, workers int) ([]Result, error) {
	records := make([]*scoring.Record, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(workers, len(items)))

	for i := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = scorer.Score(gctx, items[i].Artifact)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch scoring: %w", err)
	}

	return merge(items, records), nil
}

func merge(items []Item, records []*scoring.Record) []Result {
	type key struct {
		kind features.Kind
		id   string
	}
	index := make(map[key]int, len(items))
	results := make([]Result, 0, len(items))

	for i, item := range items {
		r := Result{Item: item, Record: records[i]}
		k := key{item.Artifact.Kind, item.ID}
		if at, ok := index[k]; ok {
			results[at] = r
			continue
		}
		index[k] = len(results)
		results = append(results, r)
	}

	return results
}

func workerCount(workers, items int) int {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return max(min(workers, items), 1)
}
