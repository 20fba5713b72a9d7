package main

import (
	"Xtion/internal/adapter/chat/twitch"
	"Xtion/internal/app/capturer"
	"Xtion/internal/app/runner"
	"Xtion/internal/config"
	"Xtion/internal/service/audio"
	"Xtion/internal/service/control"
	"Xtion/internal/service/dispatch"
	"Xtion/internal/service/keys"
	"Xtion/internal/service/media"
	"Xtion/internal/service/overlay"
	"Xtion/internal/service/watch"
	"Xtion/internal/store"
	"Xtion/internal/trigger"
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	// создаём регистратор zap; без режима дебага пишем с уровня Info
	lc := zap.NewDevelopmentConfig()
	if !cfg.DebugMode {
		lc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := lc.Build()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	if err := run(cfg, sugar); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Errorw("Xtion stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, sugar *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sugar.Infow("Starting app",
		"DebugMode", cfg.DebugMode,
		"store", cfg.StorePath,
		"keySource", cfg.KeySource,
		"control", cfg.ControlServer.Enabled,
		"twitch", cfg.TwitchEnabled,
	)

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	thresholds, err := config.ParseThresholds(cfg.SpecialKeyThresholds)
	if err != nil {
		return err
	}

	timing := trigger.DefaultTiming()
	timing.EffectDuration = cfg.EffectDuration
	timing.MediaDelay = cfg.GifDelay
	timing.OutputVolume = cfg.OutputVolume
	engine := trigger.New(
		trigger.WithTiming(timing),
		trigger.WithDefaultRotatingCooldown(cfg.DefaultRotatingCooldown),
	)
	for code, n := range thresholds {
		engine.SetSpecialThreshold(code, n)
	}

	// Представление: кадр → оверлей, медиа, звук
	capt := capturer.New(capturer.Config{
		Enabled: cfg.CaptureEnabled,
		Dir:     cfg.CaptureDir,
		TTL:     time.Duration(cfg.CaptureTTLSeconds) * time.Second,
		Debug:   cfg.DebugMode,
	}, sugar)
	go capt.Run(ctx)

	ov := overlay.New(capt, sugar)
	presenter := media.NewPresenter(media.NewResolver(media.Config{
		Dir:          cfg.MediaDir,
		DefaultGroup: cfg.MediaDefaultGroup,
		Fallback:     cfg.MediaFallback,
	}), sugar)
	snd := audio.New(audio.Config{Dir: cfg.SoundDir, Ext: cfg.SoundExt, Volume: 1, Muted: cfg.SoundMuted}, sugar)
	disp := dispatch.New(ov, presenter, snd, sugar)

	r := runner.New(runner.Config{
		Location:            loc,
		InstallTestSchedule: cfg.InstallTestSchedule,
	}, engine, st, disp, sugar)

	if cfg.ControlServer.Enabled {
		srv := control.New(control.Config{
			BindAddr:  cfg.ControlServer.BindAddr,
			Path:      cfg.ControlServer.Path,
			AuthToken: cfg.ControlServer.AuthToken,
		}, r, sugar)
		r.Observe(func(d trigger.Decision) { srv.Broadcast(control.NewFire(d)) })
		ov.Subscribe(func(ev overlay.Event) { srv.Broadcast(ev) })
		presenter.Subscribe(func(s media.Shown) { srv.Broadcast(control.NewMediaShown(s)) })
		if err := srv.Start(ctx); err != nil {
			return err
		}
	}

	w, err := watch.New(st.Path(), cfg.WatchDebounce, func() { r.Submit(runner.ConfigChanged{}) }, sugar)
	if err != nil {
		sugar.Warnw("Store watcher unavailable, use `xtionctl reload`", "error", err)
	} else {
		go w.Start(ctx)
	}

	if strings.EqualFold(cfg.KeySource, "hook") {
		svc := keys.New(keys.Config{BufferSize: cfg.BufferSize})
		go forwardKeys(svc, r)
		go func() {
			if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				sugar.Errorw("Keyboard source stopped", "error", err)
			}
		}()
	}

	if cfg.TwitchEnabled {
		go func() {
			tc := twitch.Config{
				Username:   cfg.TwitchUsername,
				OAuth:      cfg.TwitchOAuthToken,
				Channel:    cfg.TwitchChannel,
				BufferSize: cfg.BufferSize,
			}
			if err := twitch.Run(ctx, sugar, tc, r); err != nil && !errors.Is(err, context.Canceled) {
				sugar.Errorw("Twitch source stopped", "error", err)
			}
		}()
	}

	err = r.Run(ctx)
	disp.Wait()
	snd.Stop()
	sugar.Infow("Xtion stopped")
	return err
}

// forwardKeys переводит события клавиатуры в события движка.
func forwardKeys(svc keys.Service, r *runner.Runner) {
	for ev := range svc.Events() {
		switch ev.Type {
		case keys.EventBuffer:
			r.Submit(runner.BufferUpdated{Text: ev.Text})
		case keys.EventKey:
			r.Submit(runner.SpecialKeyPressed{Code: ev.Code})
		}
	}
}
