package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Notifier announces stored PDF reports on a Postgres channel. The payload is
// the pdf_reports row id.
type Notifier struct {
	DB      *sql.DB
	Channel string
}

func NewNotifier(db *sql.DB, channel string) *Notifier {
	return &Notifier{DB: db, Channel: channel}
}

// Notify sends payload on the channel.
func (n *Notifier) Notify(ctx context.Context, payload string) error {
	// NOTIFY takes no bind parameters, pg_notify does
	if _, err := n.DB.ExecContext(ctx, "SELECT pg_notify($1, $2)", n.Channel, payload); err != nil {
		return fmt.Errorf("notify %q: %w", n.Channel, err)
	}
	return nil
}
