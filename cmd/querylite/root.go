package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"querylite/internal/config"
	"querylite/internal/posts"
	"querylite/internal/query"
)

// app carries state shared by every subcommand.
type app struct {
	cfg config.Config
	log zerolog.Logger

	configPath string
	logLevel   string
	logFormat  string
	upstream   string
	staleTime  time.Duration
	cacheTime  time.Duration
	delay      time.Duration
}

func newRootCmd() *cobra.Command { return newRootCmdFor(&app{}) }

func newRootCmdFor(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "querylite",
		Short:         "Client-side query cache with a posts API, browser and CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error (defaults QUERYLITE_LOG_LEVEL or info)")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: console|json")
	pf.StringVar(&a.upstream, "upstream", "", "Upstream posts API base URL")
	pf.DurationVar(&a.staleTime, "stale-time", 0, "How long loaded data counts as fresh")
	pf.DurationVar(&a.cacheTime, "cache-time", 0, "How long unobserved queries are kept")
	pf.DurationVar(&a.delay, "loader-delay", 0, "Artificial delay before each upstream request")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.init(cmd)
	}

	root.AddCommand(
		newServeCmd(a),
		newGetCmd(a),
		newPrefetchCmd(a),
		newBrowseCmd(a),
	)
	return root
}

// init resolves configuration with precedence flags > env > file > defaults
// and builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if flags.Changed("upstream") {
		cfg.UpstreamURL = a.upstream
	}
	if flags.Changed("stale-time") {
		cfg.StaleTime.Duration = a.staleTime
	}
	if flags.Changed("cache-time") {
		cfg.CacheTime.Duration = a.cacheTime
	}
	if flags.Changed("loader-delay") {
		cfg.LoaderDelay.Duration = a.delay
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	a.log = newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	return nil
}

// newService wires the upstream client, query client and posts service.
func (a *app) newService() (*posts.Service, error) {
	upstream, err := posts.NewClient(a.cfg.UpstreamURL, posts.ClientOptions{
		Limit: a.cfg.PostsLimit,
		Delay: a.cfg.LoaderDelay.Duration,
	})
	if err != nil {
		return nil, err
	}
	client := query.NewClient(query.ClientConfig{
		CacheTime: a.cfg.CacheTime.Duration,
		StaleTime: a.cfg.StaleTime.Duration,
		Logger:    &a.log,
	})
	posts.Register(client, upstream)
	return posts.NewService(client, a.queryOptions(), a.log), nil
}

func (a *app) queryOptions() query.Options {
	return query.Options{
		StaleTime: a.cfg.StaleTime.Duration,
		CacheTime: a.cfg.CacheTime.Duration,
	}
}

// newLogger builds a console or JSON zerolog logger. Unknown levels fall
// back to info.
func newLogger(level, format string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if w == nil {
		w = os.Stderr
	}
	if !strings.EqualFold(format, "json") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
