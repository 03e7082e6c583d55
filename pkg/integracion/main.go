package integracion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/sistemamasajes/integracion/pkg/logger"
)

// Main is the entry point of the integracion binary. It parses args, builds the
// application and runs the selected command until it finishes or ctx is
// cancelled. Tests call it directly instead of building the binary.
//
//	integracion serve                                   # gateway and sync worker
//	integracion --durable --log-console serve           # journal tasks, pretty logs
//	integracion --config /etc/integracion.yaml serve    # settings from a file
//	integracion migrate --seed                          # create tables, sample data
//	integracion --durable queue                         # pending outbox entries
//	integracion status --addr http://gateway:8080       # live sync status
//
// Every setting can also come from the environment, e.g.
// INTEGRACION_CORE_URL=http://core:5000/api/ or INTEGRACION_SYNC_RETRY_DELAY=30s.
func Main(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout)
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cmd, config, err := Parse(args, out)
	if errors.Is(err, ErrHelp) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	logData, err := logger.New().
		FromPath(config.LogFile).
		Console(config.LogConsole).
		Rotation(config.LogMaxSizeMB, config.LogMaxBackups, config.LogMaxAgeDays).
		Make()
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logData.Close()
	level, _ := logger.ParseLevel(config.LogLevel)
	zerolog.SetGlobalLevel(level)
	log := logData.Logger.With().Str("command", cmd.Name()).Logger()

	// status talks to another process and needs nothing local.
	if c, ok := cmd.(*StatusCommand); ok {
		return Status(ctx, c, out)
	}

	app, err := New(config, log)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	switch c := cmd.(type) {
	case *ServeCommand:
		if err := app.Run(ctx, c); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case *MigrateCommand:
		if err := app.Migrate(ctx, c); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case *QueueCommand:
		if err := app.ShowQueue(ctx, c, out); err != nil {
			return fmt.Errorf("queue failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}
	return nil
}
