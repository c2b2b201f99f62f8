package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Seednode/emojibox/wanted"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	metrics        bool
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	broadcastRate  int
	frameRate      int
	palette        []string
	baseTargets    int
	maxTargets     int
	minSpeed       float64
	maxSpeed       float64
	roundTime      time.Duration
	roundTimeDelta time.Duration
	roundTimeFloor time.Duration
	winDelay       time.Duration
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.frameRate < 1 || c.frameRate > 240 {
		return fmt.Errorf("invalid frame rate (must be between 1-240 inclusive): %d", c.frameRate)
	}
	if c.broadcastRate < 1 || c.broadcastRate > c.frameRate {
		return fmt.Errorf("invalid broadcast rate (must be between 1 and --frame-rate inclusive): %d", c.broadcastRate)
	}
	return c.gameConfig().Validate()
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// gameConfig builds the per-game settings. The playfield starts at the
// desktop layout; clients switch it once they report their viewport.
func (c *Config) gameConfig() wanted.Config {
	palette := make([]string, 0, len(c.palette))
	for _, s := range c.palette {
		if s = strings.TrimSpace(s); s != "" {
			palette = append(palette, s)
		}
	}

	return wanted.Config{
		Palette:         palette,
		BaseTargetCount: c.baseTargets,
		MaxTargetCount:  c.maxTargets,
		MinSpeed:        c.minSpeed,
		MaxSpeed:        c.maxSpeed,
		TimeBudget:      c.roundTime,
		TimeDelta:       c.roundTimeDelta,
		TimeFloor:       c.roundTimeFloor,
		WinDelay:        c.winDelay,
		Playfield:       wanted.LayoutFor(0),
	}
}

func (c *Config) frameInterval() time.Duration {
	return time.Second / time.Duration(c.frameRate)
}

func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

// gameFlags registers the gameplay options shared by the server and the
// terminal frontend.
func gameFlags(cfg *Config, fs *pflag.FlagSet) {
	defaults := wanted.DefaultConfig()

	fs.StringSliceVar(&cfg.palette, "palette", defaults.Palette, "comma-separated symbols targets are drawn from (env: EMOJIBOX_PALETTE)")
	fs.IntVar(&cfg.baseTargets, "base-targets", defaults.BaseTargetCount, "targets added on top of the round number (env: EMOJIBOX_BASE_TARGETS)")
	fs.IntVar(&cfg.maxTargets, "max-targets", defaults.MaxTargetCount, "maximum targets per round, 0 for palette size (env: EMOJIBOX_MAX_TARGETS)")
	fs.Float64Var(&cfg.minSpeed, "min-speed", defaults.MinSpeed, "minimum target speed, in pixels per frame (env: EMOJIBOX_MIN_SPEED)")
	fs.Float64Var(&cfg.maxSpeed, "max-speed", defaults.MaxSpeed, "maximum target speed, in pixels per frame (env: EMOJIBOX_MAX_SPEED)")
	fs.DurationVar(&cfg.roundTime, "round-time", defaults.TimeBudget, "time budget of the first round (env: EMOJIBOX_ROUND_TIME)")
	fs.DurationVar(&cfg.roundTimeDelta, "round-time-delta", defaults.TimeDelta, "time added to each later round, may be negative (env: EMOJIBOX_ROUND_TIME_DELTA)")
	fs.DurationVar(&cfg.roundTimeFloor, "round-time-floor", defaults.TimeFloor, "minimum round time budget (env: EMOJIBOX_ROUND_TIME_FLOOR)")
	fs.DurationVar(&cfg.winDelay, "win-delay", defaults.WinDelay, "pause between a won round and the next (env: EMOJIBOX_WIN_DELAY)")
	fs.IntVar(&cfg.frameRate, "frame-rate", 60, "simulation frames per second (env: EMOJIBOX_FRAME_RATE)")
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("EMOJIBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "emojibox",
		Short:         "A handful of emoji mini-games, packed in a single modular webapp.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: EMOJIBOX_BIND)")
	fs.IntVar(&cfg.broadcastRate, "broadcast-rate", 30, "state updates sent to browsers per second (env: EMOJIBOX_BROADCAST_RATE)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "expose prometheus metrics on /metrics (env: EMOJIBOX_METRICS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: EMOJIBOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: EMOJIBOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: EMOJIBOX_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: EMOJIBOX_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: EMOJIBOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: EMOJIBOX_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: EMOJIBOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: EMOJIBOX_VERSION)")
	gameFlags(cfg, fs)

	bindEnv(v, fs)

	cmd.AddCommand(newPlayCmd(v))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("emojibox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newPlayCmd(v *viper.Viper) *cobra.Command {
	play := &Config{}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play Emoji Wanted in the terminal.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := play.gameConfig().Validate(); err != nil {
				return err
			}
			if play.frameRate < 1 || play.frameRate > 240 {
				return fmt.Errorf("invalid frame rate (must be between 1-240 inclusive): %d", play.frameRate)
			}
			return PlayTerminal(cmd.Context(), play)
		},
	}

	fs := cmd.Flags()
	gameFlags(play, fs)
	bindEnv(v, fs)

	return cmd
}
