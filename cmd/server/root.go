package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"pkt.systems/pslog"

	"github.com/iliyamo/club-table-reservation/internal/config"
)

func newRootCommand(logger pslog.Logger) *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	load := func() (config.Config, error) {
		return config.Load(v)
	}

	cmd := &cobra.Command{
		Use:           "clubtables",
		Short:         "clubtables serves club event table reservations with live updates",
		SilenceErrors: true,
		Example: `
  # Serve with RabbitMQ fanout and Redis cache (defaults from env/.env)
  clubtables

  # Single instance without a broker
  clubtables --bus-driver memory

  # Prepare a fresh database
  clubtables migrate && clubtables seed
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("app-port", "8080", "HTTP listen port")
	flags.String("db-host", "localhost", "MySQL host")
	flags.String("db-port", "3306", "MySQL port")
	flags.String("db-name", "clubtables", "MySQL database name")
	flags.String("redis-addr", "localhost:6379", "Redis address")
	flags.String("bus-driver", config.BusDriverAMQP, "notification bus driver (amqp|memory)")
	flags.String("rabbitmq-url", "", "RabbitMQ URL")
	flags.Duration("report-interval", time.Minute, "report job interval (0 disables)")
	bindFlags(v, flags)

	cmd.AddCommand(newMigrateCommand(load, logger))
	cmd.AddCommand(newSeedCommand(load, logger))
	cmd.AddCommand(newReportCommand(load, logger))
	return cmd
}

// bindFlags maps each flag onto the viper key of the same name with
// dashes turned into underscores.  Flags only win when set explicitly.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		key := flagKey(f.Name)
		_ = v.BindPFlag(key, f)
	})
}

func flagKey(name string) string {
	out := []byte(name)
	for i, c := range out {
		if c == '-' {
			out[i] = '_'
		}
	}
	return string(out)
}
