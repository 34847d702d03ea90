// Package main provides the questpilot bridge host: it owns the browser
// next to the widget and serves the bridge over a websocket, so a runner on
// another machine can drive quests through it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/questpilot/pkg/bridge"
	"github.com/entrhq/questpilot/pkg/bridge/transport"
	appconfig "github.com/entrhq/questpilot/pkg/config"
	"github.com/entrhq/questpilot/pkg/logging"
)

const version = "0.1.0"

// Options holds the parsed command line options.
type Options struct {
	ConfigPath  string
	Addr        string
	ShowVersion bool
}

func main() {
	opts := parseFlags()

	if opts.ShowVersion {
		fmt.Printf("questpilot-bridge v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		cancel()
		log.Fatalf("questpilot-bridge: %v", err)
	}
}

func parseFlags() *Options {
	opts := &Options{}

	flag.StringVar(&opts.ConfigPath, "config", "questpilot.yaml", "Path to the YAML configuration file")
	flag.StringVar(&opts.Addr, "addr", "", "Listen address (overrides bridge.listen_addr)")
	flag.BoolVar(&opts.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "questpilot-bridge - websocket bridge host for remote quest runners\n\n")
		fmt.Fprintf(os.Stderr, "Usage: questpilot-bridge [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	return opts
}

func run(ctx context.Context, opts *Options) error {
	cfg, err := appconfig.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	addr := cfg.Bridge.ListenAddr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	if addr == "" {
		return fmt.Errorf("no listen address; set bridge.listen_addr or -addr")
	}
	if len(cfg.Bridge.AllowedOrigins) == 0 {
		return fmt.Errorf("bridge host requires bridge.allowed_origins")
	}

	logger, err := logging.NewLogger("bridge-host")
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: file logging unavailable: %v\n", err)
	}
	defer logger.Close()

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(false),
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.NewPage()
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	if _, err := page.Goto(cfg.Target.URL); err != nil {
		return fmt.Errorf("failed to open %s: %w", cfg.Target.URL, err)
	}
	if err := page.Click(cfg.Target.OpenerSelector); err != nil {
		return fmt.Errorf("failed to open assistant panel: %w", err)
	}
	frame, err := waitForFrame(ctx, page, cfg.Target.FrameURLPattern, 15*time.Second)
	if err != nil {
		return err
	}

	upgrader := &transport.Upgrader{AllowedOrigins: cfg.Bridge.AllowedOrigins}
	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", func(w http.ResponseWriter, r *http.Request) {
		endpoint, err := upgrader.Upgrade(w, r)
		if err != nil {
			logger.Warnf("rejected bridge connection from %s: %v", r.RemoteAddr, err)
			return
		}
		logger.Infof("bridge connection from %s", r.RemoteAddr)
		b := bridge.New(bridge.NewFrameDOM(frame), endpoint, logger)
		if err := b.Run(r.Context()); err != nil && r.Context().Err() == nil {
			logger.Warnf("bridge connection ended: %v", err)
		}
		endpoint.Close()
	})

	server := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("serving bridge on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("bridge server failed: %w", err)
		}
		return nil
	}
}

// waitForFrame polls the page for the widget iframe.
func waitForFrame(ctx context.Context, page playwright.Page, urlPattern string, timeout time.Duration) (playwright.Frame, error) {
	deadline := time.Now().Add(timeout)
	for {
		for _, frame := range page.Frames() {
			if strings.Contains(frame.URL(), urlPattern) {
				return frame, nil
			}
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("widget frame matching %q never appeared", urlPattern)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}
