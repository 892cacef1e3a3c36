package outbox

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// maxErrorLength bounds last_error so a verbose driver error cannot bloat rows.
const maxErrorLength = 1024

// Repository reads and updates outbox_events. Inserts always run on the
// caller's transaction; relay bookkeeping runs on the base connection.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(&event).Error
}

// FetchUnpublished returns up to limit pending rows, oldest first, that still
// have relay attempts left.
func (r *Repository) FetchUnpublished(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	q := r.db.WithContext(ctx).Where("published_at IS NULL")
	if maxAttempts > 0 {
		q = q.Where("attempt_count < ?", maxAttempts)
	}
	var rows []models.OutboxEvent
	err := q.Order("created_at ASC").Order("id ASC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, map[string]any{"published_at": time.Now().UTC()})
}

// MarkFailed records a retryable failure and spends one attempt.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, err error) error {
	return r.update(ctx, id, map[string]any{
		"last_error":    errorText(err),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	})
}

// MarkTerminal records err and exhausts the attempt budget so the row is no
// longer fetched for relay.
func (r *Repository) MarkTerminal(ctx context.Context, id uuid.UUID, err error, maxAttempts int) error {
	return r.update(ctx, id, map[string]any{
		"last_error":    errorText(err),
		"attempt_count": maxAttempts,
	})
}

func (r *Repository) update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) <= maxErrorLength {
		return msg
	}
	cut := maxErrorLength
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
