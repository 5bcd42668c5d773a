package detections

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/linkguard/internal/batch"
	"github.com/JaimeStill/linkguard/internal/scoring"
	"github.com/JaimeStill/linkguard/pkg/pagination"
	"github.com/JaimeStill/linkguard/pkg/query"
	"github.com/JaimeStill/linkguard/pkg/repository"
)

const insertQ = `
	INSERT INTO detections(
		type, url, platform, sector, features, reasons,
		score, status, source, threat_label, detected_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id, type, url, platform, sector, features, reasons,
			  score, status, source, threat_label, detected_at`

type repo struct {
	db         *sql.DB
	scorer     Scorer
	publisher  Publisher
	logger     *slog.Logger
	pagination pagination.Config
	workers    int
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, *Detection) error        { return nil }
func (nopPublisher) PublishBatch(context.Context, []Detection) error { return nil }

// New creates a detection repository implementing the System interface.
// The scorer serves the detect and batch endpoints; each saved detection
// is handed to publisher. A nil publisher disables publishing.
func New(
	db *sql.DB,
	scorer Scorer,
	publisher Publisher,
	logger *slog.Logger,
	pagination pagination.Config,
	workers int,
) System {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &repo{
		db:         db,
		scorer:     scorer,
		publisher:  publisher,
		logger:     logger.With("system", "detections"),
		pagination: pagination,
		workers:    workers,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.scorer, r.logger, r.pagination, r.workers)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Detection], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "URL", "ThreatLabel")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count detections: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDetection)
	if err != nil {
		return nil, fmt.Errorf("query detections: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Detection, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDetection)
	if err != nil {
		return nil, dbErrors.Map(err)
	}
	return &d, nil
}

func (r *repo) Save(ctx context.Context, cmd SaveCommand) (*Detection, error) {
	args, err := insertArgs(cmd)
	if err != nil {
		return nil, err
	}

	d, err := repository.QueryOne(ctx, r.db, insertQ, args, scanDetection)
	if err != nil {
		return nil, dbErrors.Map(err)
	}

	r.logger.Info("detection saved",
		"id", d.ID,
		"type", d.Type,
		"score", d.Score,
		"status", d.Status,
	)
	r.publish(ctx, &d)
	return &d, nil
}

func (r *repo) SaveBatch(ctx context.Context, results []batch.Result) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}

	sets := make([][]any, 0, len(results))
	for _, res := range results {
		args, err := insertArgs(SaveCommand{
			Record:      res.Record,
			Source:      res.Source,
			ThreatLabel: res.Label,
		})
		if err != nil {
			return 0, fmt.Errorf("detection %s: %w", res.ID, err)
		}
		sets = append(sets, args)
	}

	saved, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) ([]Detection, error) {
		return repository.QueryEach(ctx, tx, insertQ, sets, scanDetection)
	})
	if err != nil {
		return 0, dbErrors.Map(err)
	}

	r.logger.Info("detections saved", "count", len(saved))
	if err := r.publisher.PublishBatch(ctx, saved); err != nil {
		r.logger.Warn("detection batch publish failed", "count", len(saved), "error", err)
	}
	return len(saved), nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := repository.ExecExpectOne(
		ctx, r.db,
		"DELETE FROM detections WHERE id = $1",
		id,
	); err != nil {
		return dbErrors.Map(err)
	}

	r.logger.Info("detection deleted", "id", id)
	return nil
}

func (r *repo) publish(ctx context.Context, d *Detection) {
	if err := r.publisher.Publish(ctx, d); err != nil {
		r.logger.Warn("detection event publish failed", "id", d.ID, "error", err)
	}
}

func insertArgs(cmd SaveCommand) ([]any, error) {
	rec := cmd.Record
	if rec == nil {
		return nil, fmt.Errorf("save detection: nil record")
	}

	featuresJSON, err := json.Marshal(rec.Features)
	if err != nil {
		return nil, fmt.Errorf("marshal features: %w", err)
	}

	reasons := rec.Reasons
	if reasons == nil {
		reasons = []scoring.Reason{}
	}
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return nil, fmt.Errorf("marshal reasons: %w", err)
	}

	source := cmd.Source
	if source == "" {
		source = SourceAPI
	}

	return []any{
		string(rec.Type),
		rec.URL,
		rec.Platform,
		rec.Sector,
		featuresJSON,
		reasonsJSON,
		rec.Score,
		string(rec.Status),
		source,
		cmd.ThreatLabel,
		rec.Timestamp,
	}, nil
}
