package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"lpd8806-bridge/internal/adapters/input/homekit"
	"lpd8806-bridge/internal/adapters/input/http"
	"lpd8806-bridge/internal/adapters/input/ssdp"
	"lpd8806-bridge/internal/adapters/output/device"
	"lpd8806-bridge/internal/adapters/output/persistence"
	"lpd8806-bridge/internal/domain/model"
	"lpd8806-bridge/internal/domain/service"
)

func main() {
	// Support both -c and --config for config path
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	flag.Parse()

	if os.Getenv("CONFIG_PATH") != "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	configRepo := persistence.NewYAMLConfigRepository(configPath)
	cfg, err := configRepo.Get(context.Background())
	if err != nil {
		log.Fatal().Err(err).Str("config", configPath).Msg("Failed to load configuration")
	}

	setupLogging(cfg.Log)

	// Seed the config file from the environment on first start
	if cfg.Device.URL == "" {
		if deviceURL := os.Getenv("DEVICE_URL"); deviceURL != "" {
			cfg.Device.URL = deviceURL
			if err := configRepo.Save(context.Background(), cfg); err != nil {
				log.Warn().Err(err).Str("config", configPath).Msg("Failed to save configuration")
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().Str("config", configPath).Str("device", cfg.Device.URL).Msg("Starting LPD8806 bridge")

	client, err := device.NewClient(cfg.Device.URL,
		device.WithTimeout(cfg.Device.Timeout.Duration()),
		device.WithRateLimit(cfg.Device.RateLimitRPS),
		device.WithStatusCheck(cfg.Device.CheckStatus),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create device client")
	}
	defer client.Close()

	light, err := service.NewLightService(client, cfg.Controller)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create light service")
	}

	ctx := signalContext()

	initCtx, cancel := context.WithTimeout(ctx, cfg.Controller.RefreshTimeout.Duration())
	if err := light.Refresh(initCtx); err != nil {
		log.Warn().Err(err).Msg("Initial device state unavailable, starting with defaults")
	}
	cancel()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.HomeKit.Enabled {
		acc := homekit.NewAccessory(light, cfg.HomeKit)
		defer acc.Close()
		g.Go(func() error {
			return acc.Run(gctx, cfg.HomeKit)
		})
	}

	if cfg.Hue.Enabled {
		ip := cfg.Hue.LocalIP
		if ip == "" {
			ip = getLocalIP()
		}
		if ip == "" {
			log.Fatal().Msg("Could not determine local IP. Set hue.local_ip in the configuration.")
		}

		ssdpServer := ssdp.NewServer(ip, cfg.Hue.Port)
		g.Go(func() error {
			if err := ssdpServer.Start(gctx); err != nil {
				log.Error().Err(err).Msg("SSDP server error")
			}
			return nil
		})

		hueServer := http.NewServer(light, ip, cfg.Hue.Port, cfg.Hue.LightID, cfg.Hue.Name)
		g.Go(func() error {
			return hueServer.Run(gctx, fmt.Sprintf(":%d", cfg.Hue.Port))
		})
	}

	if !cfg.HomeKit.Enabled && !cfg.Hue.Enabled {
		log.Warn().Msg("No hub adapter enabled, nothing to serve")
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Bridge stopped with error")
	}

	// Let in-flight device calls finish
	waitDone := make(chan struct{})
	go func() {
		light.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(cfg.ShutdownTimeout.Duration()):
		log.Warn().Msg("Shutdown timeout reached with device calls in flight")
	}

	log.Info().Msg("Bridge stopped")
}

func setupLogging(cfg model.LogConfig) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.JSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !cfg.Colors,
		})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		cancel()
	}()
	return ctx
}

func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}
