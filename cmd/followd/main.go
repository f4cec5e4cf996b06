package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/skylarkuav/go-follow/internal/config"
	"github.com/skylarkuav/go-follow/internal/log"
	"github.com/skylarkuav/go-follow/pkg/follow"
	"github.com/skylarkuav/go-follow/pkg/trackerfeed"
	"github.com/skylarkuav/go-follow/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "Session config YAML (defaults apply when empty)")
	mode := flag.String("mode", "", "Follower mode to activate at startup")
	trackerURL := flag.String("tracker", "", "Tracker websocket URL (overrides config)")
	port := flag.String("port", "", "Command surface port (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Init("info")
			log.Error("config load failed", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	level := cfg.LogLevel
	if *debug {
		level = "debug"
	}
	log.Init(level)

	url := cfg.TrackerURLFromEnv()
	if *trackerURL != "" {
		url = *trackerURL
	}
	webPort := cfg.WebPortFromEnv()
	if *port != "" {
		webPort = *port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		cancel()
	}()

	sink := newStdoutSink(ctx)

	manager := follow.NewManager(follow.ManagerConfig{
		CycleInterval: cfg.CycleInterval(),
		StaleAfter:    cfg.StaleAfter(),
		Limits:        cfg.SafetyLimits(),
		Parameters:    cfg.ModeParameters,
	}, follow.NewDefaultRegistry(), sink)

	feed := trackerfeed.NewClient(url, manager.Offer)
	go feed.Run(ctx)

	server := web.NewServer(webPort, manager)
	server.StartAsync()
	go server.PublishLoop(cfg.CycleInterval(), ctx.Done())

	startMode := *mode
	if startMode == "" {
		startMode = cfg.DefaultMode
	}
	if startMode != "" {
		if err := manager.StartTracking(startMode); err != nil {
			log.Error("startup mode rejected", "mode", startMode, "error", err)
			os.Exit(1)
		}
	}

	log.Info("followd running",
		"tracker", url,
		"port", webPort,
		"cycle_hz", cfg.CycleHz,
	)

	manager.Run(ctx)

	if err := server.Shutdown(); err != nil {
		log.Warn("web shutdown", "error", err)
	}
}
