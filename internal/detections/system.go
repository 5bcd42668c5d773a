package detections

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/linkguard/internal/batch"
	"github.com/JaimeStill/linkguard/pkg/pagination"
)

// System defines the public contract for detection domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Detection], error)

	Find(ctx context.Context, id uuid.UUID) (*Detection, error)
	Save(ctx context.Context, cmd SaveCommand) (*Detection, error)
	SaveBatch(ctx context.Context, results []batch.Result) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
