package audit

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	id "geoasistencia/pkg/domain"
	dErrors "geoasistencia/pkg/domain-errors"
)

// Cursor is an opaque keyset continuation token over (created_at, id)
// descending. It replaces the original fixed LIMIT read so admin tooling can
// walk an arbitrarily long ledger in bounded pages.
type Cursor struct {
	CreatedAt time.Time
	ID        id.AuditID
}

// Encode renders the cursor as an opaque token.
func (c Cursor) Encode() string {
	raw := fmt.Sprintf("%s|%s", c.CreatedAt.Format(time.RFC3339Nano), c.ID.String())
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by Encode. An empty token means
// "start from the newest record".
func DecodeCursor(token string) (Cursor, bool, error) {
	if token == "" {
		return Cursor{}, false, nil
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, false, dErrors.New(dErrors.CodeInvalidInput, "invalid cursor")
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return Cursor{}, false, dErrors.New(dErrors.CodeInvalidInput, "invalid cursor")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Cursor{}, false, dErrors.New(dErrors.CodeInvalidInput, "invalid cursor")
	}
	parsed, err := uuid.Parse(parts[1])
	if err != nil {
		return Cursor{}, false, dErrors.New(dErrors.CodeInvalidInput, "invalid cursor")
	}
	return Cursor{CreatedAt: createdAt, ID: id.AuditID(parsed)}, true, nil
}
