// Package cli is the booking-engine command line: the HTTP service and the
// schema migrator share one binary and one configuration flag.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"booking-engine/internal/config"
)

type options struct {
	v *viper.Viper
}

// loadConfig reads the file named by --config or BOOKING_CONFIG, then the environment.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.v.GetString("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRootCommand() (*cobra.Command, *options) {
	opts := &options{v: viper.New()}
	root := &cobra.Command{
		Use:          "booking-engine",
		Short:        "Slot availability and conflict-free booking service",
		Long:         `Serves calendar slots and bookings over HTTP and manages the booking schema.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file (env BOOKING_CONFIG)")
	_ = opts.v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = opts.v.BindEnv("config", "BOOKING_CONFIG")

	root.AddCommand(newServeCommand(opts), newMigrateCommand(opts))
	return root, opts
}

// Execute runs the command line until it finishes or the process is signalled.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, _ := newRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
