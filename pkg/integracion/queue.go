package integracion

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sistemamasajes/integracion/pkg/core"
	"github.com/sistemamasajes/integracion/pkg/outbox"
)

// ShowQueue prints the outbox entries still pending. It reads the outbox table
// directly, so it works whether or not a gateway is running, but only sees
// tasks of gateways started with sync.durable.
func (a *App) ShowQueue(ctx context.Context, cmd *QueueCommand, w io.Writer) error {
	journal := a.journal
	if journal == nil {
		journal = outbox.NewJournal(a.db.Gorm())
	}
	if err := journal.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to prepare outbox: %w", err)
	}
	if cmd.PurgeBefore > 0 {
		n, err := journal.Purge(ctx, time.Now().Add(-cmd.PurgeBefore))
		if err != nil {
			return fmt.Errorf("failed to purge outbox: %w", err)
		}
		fmt.Fprintf(w, "purged %d replayed entries\n", n)
	}
	entries, err := journal.Pending(ctx, cmd.Limit)
	if err != nil {
		return err
	}
	return renderEntries(w, entries, time.Now())
}

// Status fetches /api/sync/status from a running gateway and prints it. It
// needs no local store.
func Status(ctx context.Context, cmd *StatusCommand, w io.Writer) error {
	client := core.NewClient(strings.TrimSuffix(cmd.Addr, "/")+"/api/", core.WithTimeout(10*time.Second))
	var status SyncStatus
	if err := client.Get(ctx, "sync/status", &status); err != nil {
		return fmt.Errorf("failed to reach gateway at %s: %w", cmd.Addr, err)
	}
	return renderStatus(w, cmd.Addr, status)
}
