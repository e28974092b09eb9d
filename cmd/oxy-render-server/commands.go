package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine"
	"github.com/Carmen-Shannon/oxy-render/engine/client"
	"github.com/Carmen-Shannon/oxy-render/engine/config"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/Carmen-Shannon/oxy-render/engine/transport"
	"github.com/urfave/cli"
)

const defaultSettle = 2 * time.Second

var logger = log.New("server")

// loadConfig reads the --config file, if any, and applies the global flag overrides.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := ctx.GlobalString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}

	if ctx.GlobalIsSet("address") {
		cfg.Address = ctx.GlobalString("address")
	}
	if ctx.GlobalIsSet("device") {
		cfg.Device.Backend = ctx.GlobalString("device")
	}
	if ctx.GlobalIsSet("log-level") {
		cfg.Log.Level = ctx.GlobalString("log-level")
	}
	if ctx.GlobalIsSet("shader-dir") {
		cfg.ShaderDir = ctx.GlobalString("shader-dir")
	}
	if ctx.GlobalBool("profile") {
		cfg.Profiler.Enabled = true
	}
	if targets := ctx.StringSlice("targets"); len(targets) > 0 {
		cfg.Targets = targets
	}

	cfg.ApplyDefaults()
	if _, ok := log.ParseLevel(cfg.Log.Level); !ok {
		return cfg, status.Errorf(status.InvalidArgument, "unknown log level %q", cfg.Log.Level)
	}
	return cfg, cfg.Validate()
}

// serve runs the render server until SIGINT or SIGTERM.
func serve(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	e, err := engine.NewEngine(engine.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.Start(cfg.Address); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	stop := make(chan struct{})
	allocated := make(chan struct{})
	if len(cfg.Targets) > 0 {
		go allocateWhenSettled(e, cfg.Targets, ctx.Duration("settle"), stop, allocated)
	} else {
		close(allocated)
	}

	s := <-sig
	logger.Noticef("received %s, shutting down", s)
	close(stop)
	<-allocated
	return e.Stop()
}

// allocateWhenSettled allocates the output buffers once the scene set is non-empty
// and has not changed for the settle duration.
func allocateWhenSettled(e engine.Engine, targets []string, settle time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if settle <= 0 {
		settle = defaultSettle
	}
	ticker := time.NewTicker(settle / 4)
	defer ticker.Stop()

	last := ""
	since := time.Now()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		current := e.Summary()
		if current != last {
			last, since = current, time.Now()
			continue
		}
		if len(e.Service().Scenes()) == 0 || time.Since(since) < settle {
			continue
		}

		buffers, err := e.AutoAllocateBuffers(targets)
		if err != nil {
			logger.Errorf("allocate output buffers: %v", err)
			if status.CodeOf(err) == status.ResourceExhausted {
				return
			}
			since = time.Now()
			continue
		}
		for _, b := range buffers {
			logger.Noticef("buffer %s: type %s shape %v stride %d handle %s (%d bytes)",
				b.Name, b.Type, b.Shape, b.Stride, b.Handle.Path, b.Handle.Size)
		}
		return
	}
}

// summary connects to a running server and prints its scene and material counts.
func summary(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := transport.Dial(callCtx, cfg.Address)
	if err != nil {
		return err
	}
	defer c.Close()

	text, err := client.Summary(callCtx, c)
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}
