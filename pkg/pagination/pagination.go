package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100

	cursorSep = "~"
)

// Params carries keyset pagination input from the HTTP layer.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the (created_at, id) pair of the last row on a page. Pages are
// ordered newest first, with id breaking ties between equal timestamps.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// EncodeCursor renders c as an opaque URL-safe token.
func EncodeCursor(c Cursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + cursorSep + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes a token from EncodeCursor. A blank token means the
// first page and yields a nil cursor. Malformed tokens are validation errors.
func ParseCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, invalidCursor(err)
	}
	stamp, id, ok := strings.Cut(string(raw), cursorSep)
	if !ok {
		return nil, invalidCursor(fmt.Errorf("missing separator"))
	}
	createdAt, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, invalidCursor(err)
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, invalidCursor(err)
	}
	return &Cursor{CreatedAt: createdAt, ID: parsedID}, nil
}

func invalidCursor(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").
		WithDetails(map[string]any{"field": "cursor"})
}

// Keyset returns a gorm scope that orders rows newest first and, when c is
// set, starts strictly after it. One extra row is requested so Page can tell
// whether another page exists.
func Keyset(table string, c *Cursor, limit int) func(*gorm.DB) *gorm.DB {
	col := func(name string) string {
		if table == "" {
			return name
		}
		return table + "." + name
	}
	return func(db *gorm.DB) *gorm.DB {
		if c != nil {
			db = db.Where(
				fmt.Sprintf("(%[1]s < ?) OR (%[1]s = ? AND %[2]s < ?)", col("created_at"), col("id")),
				c.CreatedAt, c.CreatedAt, c.ID,
			)
		}
		return db.
			Order(col("created_at") + " DESC").
			Order(col("id") + " DESC").
			Limit(NormalizeLimit(limit) + 1)
	}
}

// Page trims rows fetched through Keyset to limit and returns the cursor for
// the following page, or "" when rows holds the final page.
func Page[T any](rows []T, limit int, key func(T) Cursor) ([]T, string) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, EncodeCursor(key(rows[limit-1]))
}
