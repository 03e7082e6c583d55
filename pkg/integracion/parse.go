package integracion

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ErrHelp is returned by Parse when usage was printed instead of selecting a
// command.
var ErrHelp = errors.New("help requested")

// Parse parses command line arguments and returns the command to execute and
// the application configuration shared across all commands.
//
// Usage and errors are written to out.
func Parse(args []string, out io.Writer) (Command, *Config, error) {
	v := newViper()
	var (
		cmd        Command
		configFile string
	)

	root := &cobra.Command{
		Use:           "integracion",
		Short:         "Local-first gateway between the spa front desk and Core",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if configFile == "" {
				return nil
			}
			v.SetConfigFile(configFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", configFile, err)
			}
			return nil
		},
	}
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	flags.Int("port", 0, "HTTP port")
	flags.String("core-url", "", "base URL of the Core API")
	flags.Duration("core-timeout", 0, "timeout of each Core request")
	flags.String("store-driver", "", "local store driver: sqlite or postgres")
	flags.String("store-dsn", "", "local store DSN or SQLite file")
	flags.Duration("retry-delay", 0, "pause after a failed replay")
	flags.String("backoff", "", "retry policy: fixed or exponential")
	flags.Int("max-retries", 0, "drop a task after this many failed replays, 0 retries forever")
	flags.Bool("durable", false, "journal queued tasks in the outbox table")
	flags.String("log-level", "", "log level")
	flags.String("log-file", "", "log to this file with rotation instead of stdout")
	flags.Bool("log-console", false, "human-readable log output")
	flags.Int("log-max-size", 0, "rotate the log file after this many megabytes")
	flags.Int("log-max-backups", 0, "rotated log files to keep")
	flags.Int("log-max-age", 0, "days to keep rotated log files")
	flags.Bool("read-only", false, "reject all local writes")

	for key, flag := range map[string]string{
		"server.port":      "port",
		"core.url":         "core-url",
		"core.timeout":     "core-timeout",
		"store.driver":     "store-driver",
		"store.dsn":        "store-dsn",
		"sync.retry_delay": "retry-delay",
		"sync.backoff":     "backoff",
		"sync.max_retries": "max-retries",
		"sync.durable":     "durable",
		"log.level":        "log-level",
		"log.file":         "log-file",
		"log.console":      "log-console",
		"log.max_size":     "log-max-size",
		"log.max_backups":  "log-max-backups",
		"log.max_age":      "log-max-age",
		"read_only":        "read-only",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	root.AddCommand(
		serveCmd(&cmd),
		migrateCmd(&cmd),
		queueCmd(&cmd),
		statusCmd(&cmd),
	)

	if err := root.Execute(); err != nil {
		return nil, nil, err
	}
	if cmd == nil {
		return nil, nil, ErrHelp
	}

	config, err := loadConfig(v)
	if err != nil {
		return nil, nil, err
	}
	return cmd, config, nil
}

func serveCmd(selected *Command) *cobra.Command {
	c := &ServeCommand{}
	cc := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway and the sync worker",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			*selected = c
			return nil
		},
	}
	cc.Flags().BoolVar(&c.AutoMigrate, "auto-migrate", true, "migrate the local schema before serving")
	return cc
}

func migrateCmd(selected *Command) *cobra.Command {
	c := &MigrateCommand{}
	cc := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the local tables",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			*selected = c
			return nil
		},
	}
	cc.Flags().BoolVar(&c.Seed, "seed", false, "insert sample clientes")
	return cc
}

func queueCmd(selected *Command) *cobra.Command {
	c := &QueueCommand{}
	cc := &cobra.Command{
		Use:   "queue",
		Short: "List sync tasks still pending in the outbox",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			*selected = c
			return nil
		},
	}
	cc.Flags().IntVar(&c.Limit, "limit", 50, "maximum entries to show, 0 for all")
	cc.Flags().DurationVar(&c.PurgeBefore, "purge-before", 0, "first delete replayed entries older than this, e.g. 168h")
	return cc
}

func statusCmd(selected *Command) *cobra.Command {
	c := &StatusCommand{}
	cc := &cobra.Command{
		Use:   "status",
		Short: "Show the sync status of a running gateway",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			*selected = c
			return nil
		},
	}
	cc.Flags().StringVar(&c.Addr, "addr", "http://localhost:8080", "gateway base URL")
	return cc
}
