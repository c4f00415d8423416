package postgres

import (
	"context"
	"encoding/json"
)

// AuditStore records credential lifecycle events (register, rotate) for
// operators. Best effort only: writes happen off the authentication hot path
// and failures are swallowed by callers. Never used on the authenticate path,
// where extra variable-cost work would undermine timing uniformity.
type AuditStore struct {
	db DB
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

// Record inserts one audit row. Empty email is stored as NULL.
func (s *AuditStore) Record(ctx context.Context, email, action, ip, userAgent string, metadata map[string]any) error {
	md, _ := json.Marshal(metadata)

	var emailArg any
	if email != "" {
		emailArg = email
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO audit_logs (email, action, ip, user_agent, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`, emailArg, action, ip, userAgent, md)
	return err
}
