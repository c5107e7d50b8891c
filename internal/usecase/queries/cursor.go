package queries

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"salon-booking/internal/pkg/errs"

	"github.com/google/uuid"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 200

	cursorVersion = "v1"
)

var ErrInvalidCursor = errs.New("invalid cursor")

// Cursor is a keyset position in (start_at, id) order.
type Cursor struct {
	StartAt time.Time
	ID      uuid.UUID
}

// Encode uses microsecond precision to match Postgres timestamptz.
func (c Cursor) Encode() string {
	raw := cursorVersion + ":" + strconv.FormatInt(c.StartAt.UnixMicro(), 10) + "-" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidCursor)
	}

	payload, ok := strings.CutPrefix(string(decoded), cursorVersion+":")
	if !ok {
		return nil, errs.Wrap(ErrInvalidCursor, "unknown cursor version")
	}
	micros, id, ok := strings.Cut(payload, "-")
	if !ok {
		return nil, errs.Wrap(ErrInvalidCursor, "expected <micros>-<uuid>")
	}

	ts, err := strconv.ParseInt(micros, 10, 64)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidCursor)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidCursor)
	}
	return &Cursor{StartAt: time.UnixMicro(ts).UTC(), ID: parsed}, nil
}

func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
