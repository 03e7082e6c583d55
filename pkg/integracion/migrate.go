package integracion

import (
	"context"
	"fmt"

	"github.com/sistemamasajes/integracion/pkg/outbox"
)

// Migrate creates or updates every local table, the outbox included, so the
// outbox can be switched on later without another migration. With Seed set,
// the sample clientes are inserted when missing.
//
// Safe to run repeatedly; it never drops columns or data.
func (a *App) Migrate(ctx context.Context, cmd *MigrateCommand) error {
	a.log.Info().Str("driver", a.db.Driver()).Msg("running local migrations")
	if err := a.db.Migrate(ctx, &outbox.Entry{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if cmd.Seed {
		n, err := a.db.Seed(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}
		a.log.Info().Int("inserted", n).Msg("seed data applied")
	}
	a.log.Info().Msg("migrations completed")
	return nil
}
