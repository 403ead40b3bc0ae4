package handler

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"

	"github.com/shubhmrj/Sellium/internal/cache"
	"github.com/shubhmrj/Sellium/internal/order"
	"github.com/shubhmrj/Sellium/pkg/storage"
)

// idempotencyStore guards order submissions against replays. Keys are claimed
// before placement and released again when placement fails.
type idempotencyStore interface {
	SetOrderIdempotency(ctx context.Context, buyerID uint, key string) (bool, error)
	ReleaseOrderIdempotency(ctx context.Context, buyerID uint, key string) error
}

var (
	orderService *order.Service
	idempotency  idempotencyStore
	uploader     storage.Uploader
)

// Init wires the handler package's collaborators. idem may be nil when Redis
// is not configured.
func Init(svc *order.Service, idem *cache.Client, up storage.Uploader) {
	orderService = svc
	uploader = up
	idempotency = nil
	if idem != nil {
		idempotency = idem
	}
}

// parseID converts a path parameter into a numeric id
func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// isDuplicateKey reports whether a write failed on a unique index, which can
// happen when two requests race past the pre-insert existence check
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
