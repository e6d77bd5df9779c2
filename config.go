package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	server            string
	reconnectAttempts int
	reconnectDelay    time.Duration
	reconnectMaxDelay time.Duration
	tickRate          int
	logFile           string
	debug             bool
	statusAddr        string
	grid              bool
	db                string
	redis             string
}

func (c *Config) validate() error {
	u, err := url.Parse(c.server)
	if err != nil {
		return fmt.Errorf("invalid server url %q: %w", c.server, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid server url %q: scheme must be ws or wss", c.server)
	}
	if c.reconnectAttempts < 0 {
		return fmt.Errorf("invalid reconnect attempts (must be >= 0): %d", c.reconnectAttempts)
	}
	if c.reconnectDelay <= 0 {
		return errors.New("reconnect delay must be positive")
	}
	if c.tickRate < 1 || c.tickRate > 1000 {
		return fmt.Errorf("invalid tick rate (must be between 1-1000 inclusive): %d", c.tickRate)
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PIXELARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "pixelarena",
		Short:   "Desktop client for the pixel arena multiplayer game.",
		Args:    cobra.ExactArgs(0),
		Version: releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return play(cmd.Context(), cfg)
		},
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.server, "server", "s", "ws://localhost:5000/ws", "arena server websocket url (env: PIXELARENA_SERVER)")
	fs.IntVar(&cfg.reconnectAttempts, "reconnect-attempts", 5, "reconnect attempts before giving up (env: PIXELARENA_RECONNECT_ATTEMPTS)")
	fs.DurationVar(&cfg.reconnectDelay, "reconnect-delay", time.Second, "initial delay between reconnect attempts (env: PIXELARENA_RECONNECT_DELAY)")
	fs.DurationVar(&cfg.reconnectMaxDelay, "reconnect-max-delay", 5*time.Second, "maximum delay between reconnect attempts (env: PIXELARENA_RECONNECT_MAX_DELAY)")
	fs.IntVar(&cfg.tickRate, "tick-rate", 60, "movement samples per second (env: PIXELARENA_TICK_RATE)")
	fs.StringVar(&cfg.logFile, "log-file", "pixelarena.log", "path to log file (env: PIXELARENA_LOG_FILE)")
	fs.BoolVarP(&cfg.debug, "debug", "d", false, "log debug output (env: PIXELARENA_DEBUG)")
	fs.StringVar(&cfg.statusAddr, "status-addr", "", "serve local status endpoints on this address, e.g. 127.0.0.1:6060 (env: PIXELARENA_STATUS_ADDR)")
	fs.BoolVar(&cfg.grid, "grid", true, "draw the reference grid (env: PIXELARENA_GRID)")
	fs.StringVar(&cfg.db, "db", "pixelarena.db", "sqlite database for the players command (env: PIXELARENA_DB)")
	fs.StringVar(&cfg.redis, "redis", "", "redis url for the players command, overrides --db (env: PIXELARENA_REDIS)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(newPlayersCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("pixelarena v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
