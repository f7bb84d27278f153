package main

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pkt.systems/pslog"

	"github.com/iliyamo/club-table-reservation/internal/config"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := newRootCommand(pslog.NoopLogger())
	for _, name := range []string{"migrate", "seed", "report"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestFlagsOverrideEnvOnlyWhenSet(t *testing.T) {
	t.Setenv("BUS_DRIVER", "memory")
	t.Setenv("APP_PORT", "9090")

	v := viper.New()
	config.SetDefaults(v)
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("app-port", "8080", "")
	flags.String("bus-driver", config.BusDriverAMQP, "")
	bindFlags(v, flags)

	require.NoError(t, flags.Parse([]string{"--app-port", "7070"}))
	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, config.BusDriverMemory, cfg.Bus.Driver)
}

func TestFlagKey(t *testing.T) {
	assert.Equal(t, "rate_limit_capacity", flagKey("rate-limit-capacity"))
}
