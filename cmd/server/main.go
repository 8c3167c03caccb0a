package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Huddle/internal/adapters/auth"
	"github.com/dkeye/Huddle/internal/adapters/chat"
	router "github.com/dkeye/Huddle/internal/adapters/http"
	"github.com/dkeye/Huddle/internal/adapters/rtc"
	wssignal "github.com/dkeye/Huddle/internal/adapters/signal"
	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/app/fanout"
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, keeping info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	provider, err := rtc.NewProvider(rtc.Options{
		ICEServers:  iceServers(cfg.ICEServers),
		MinPort:     cfg.RTCMinPort,
		MaxPort:     cfg.RTCMaxPort,
		AnnouncedIP: cfg.AnnouncedIP,
		LogLevel:    zerolog.WarnLevel,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("media provider init")
	}

	verifier, err := auth.NewJWTVerifier(cfg.AuthSecret, cfg.AuthIssuer)
	if err != nil {
		log.Fatal().Err(err).Msg("auth init")
	}

	reg := app.NewRegistry()
	fan := fanout.NewRouter(reg, app.SimplePolicy{})
	rooms := app.NewRoomManager(provider, app.RoomManagerOptions{
		Codecs:          cfg.Codecs,
		ProviderTimeout: cfg.ProviderTimeout,
		IdleTTL:         cfg.RoomIdleTTL,
		JanitorInterval: cfg.RoomJanitorInterval,
		InUse: func(id domain.RoomID) bool {
			return len(fan.Members(fanout.RoomGroup(id))) > 0
		},
	})
	o := &orch.Orchestrator{
		Registry:        reg,
		Rooms:           rooms,
		Fanout:          fan,
		Provider:        provider,
		Chat:            chat.NewMemoryStore(chat.DefaultPerChannel),
		ProviderTimeout: cfg.ProviderTimeout,
		HistoryLimit:    cfg.ChatHistory,
	}

	opts := wssignal.DefaultOptions()
	if cfg.SendBuffer > 0 {
		opts.SendBuffer = cfg.SendBuffer
	}
	if cfg.ReadLimit > 0 {
		opts.MaxMessageSize = cfg.ReadLimit
	}
	if cfg.PingPeriod > 0 {
		opts.PingPeriod = cfg.PingPeriod
		opts.PongWait = cfg.PingPeriod * 10 / 9
	}
	limiter := wssignal.NewRoomRateLimiter(cfg.ChatRateLimit, cfg.ChatRateInterval)

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Orch:     o,
		Signal:   wssignal.NewSignalWSController(o, limiter, opts),
		Verifier: verifier,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Huddle server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return rooms.RunJanitor(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("server error")
	}
	log.Info().Msg("Server exited gracefully")
}

func iceServers(in []config.ICEServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(in))
	for _, s := range in {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}
