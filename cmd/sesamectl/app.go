package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/config"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/logging"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/metrics"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/session"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/store"
)

// app is everything one command invocation needs.
type app struct {
	ctx     context.Context
	cfg     *config.Config
	log     *logging.Logger
	store   store.Store
	metrics *metrics.Sesame
	ctl     *session.Controller
	out     io.Writer
	errOut  io.Writer
	styles  styles
}

// withApp opens the app for cmd, runs fn and closes the app.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(*app) error) error {
	a, err := o.open(cmd)
	if err != nil {
		return err
	}
	return errors.Join(fn(a), a.Close())
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (o *rootOptions) open(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	a := &app{
		ctx:     ctx,
		cfg:     cfg,
		metrics: metrics.NewSesame(nil),
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
		styles:  newStyles(defaultTheme),
	}

	lc := cfg.LoggerConfig()
	if lc.Output != "file" {
		lc.Writer = a.errOut
		// Keep the terminal for command output unless asked otherwise.
		if lc.Level < logging.LevelWarn {
			lc.Level = logging.LevelWarn
		}
	}
	if o.verbose {
		lc.Level = logging.LevelDebug
	}
	a.log, err = logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}

	sopts := cfg.StoreOptions()
	sopts.Logger = a.log.WithComponent("store").Logger
	a.store, err = store.Open(sopts)
	if err != nil {
		a.log.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	copts := session.OptionsFromConfig(cfg, a.store, a.log)
	copts.Metrics = a.metrics
	copts.Clock = o.clock
	a.ctl, err = session.New(copts)
	if err != nil {
		a.store.Close()
		a.log.Close()
		return nil, err
	}

	if err := a.ctl.Load(ctx); err != nil {
		fmt.Fprintln(a.errOut, a.styles.warn.Render("Some patterns could not be read: "+err.Error()))
	}
	return a, nil
}

// Close writes metrics when enabled and releases the store and log files.
func (a *app) Close() error {
	var errs []error
	if a.cfg.Metrics.Enabled {
		errs = append(errs, a.writeMetrics())
	}
	errs = append(errs, a.store.Close(), a.log.Close())
	return errors.Join(errs...)
}

func (a *app) writeMetrics() error {
	if a.cfg.Metrics.Output == "" || a.cfg.Metrics.Output == "stderr" {
		return a.metrics.Registry().WriteText(a.errOut)
	}
	f, err := os.OpenFile(a.cfg.Metrics.Output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("open metrics output: %w", err)
	}
	write := a.metrics.Registry().WriteText
	if filepath.Ext(a.cfg.Metrics.Output) == ".json" {
		write = a.metrics.Registry().WriteJSON
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write metrics: %w", err)
	}
	return f.Close()
}
