package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/liuscraft/softmix/internal/assets"
	"github.com/liuscraft/softmix/internal/audio"
	"github.com/liuscraft/softmix/internal/config"
	"github.com/liuscraft/softmix/internal/control"
	"github.com/liuscraft/softmix/internal/events"
	"github.com/liuscraft/softmix/internal/logging"
	"github.com/liuscraft/softmix/internal/mixer"
	"github.com/liuscraft/softmix/internal/settings"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "config file path")
	flag.Parse()

	appConfig, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Init(logging.Config{
		Level:  appConfig.Logging.Level,
		Format: appConfig.Logging.Format,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	logging.SetInstance(logging.NewInstanceID())

	logging.Infof("========================================")
	logging.Infof("        SoftMix Starting...             ")
	logging.Infof("========================================")

	backend, err := audio.ParseBackend(appConfig.Output.Backend)
	if err != nil {
		logging.Fatalf("Invalid output backend: %v", err)
	}

	mixerCfg := appConfig.MixerSettings()
	logging.Infof("Opening %s output...", backend)
	voice, err := audio.Open(audio.Options{
		Backend:     backend,
		Device:      appConfig.Output.Device,
		Latency:     appConfig.DeviceLatency(),
		HighLatency: appConfig.Output.HighLatency,
		WAVPath:     appConfig.Output.WAVPath,
		Realtime:    appConfig.Output.Realtime,
	}, mixerCfg)
	if err != nil {
		logging.Fatalf("Failed to open output: %v", err)
	}

	mix, err := mixer.New(voice, mixerCfg)
	if err != nil {
		voice.Close()
		logging.Fatalf("Failed to create mixer: %v", err)
	}
	defer func() {
		if err := mix.Close(); err != nil {
			logging.Errorf("Failed to close mixer: %v", err)
		}
	}()

	bus := events.NewBus()
	mix.SetEventBus(bus)
	bus.Subscribe(events.EventTypeStreamFinished, func(event events.Event) {
		logging.Debugf("Stream finished: %s", event.(events.StreamFinished).Name)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed := make(chan error, 1)
	bus.Subscribe(events.EventTypeBackendFailed, func(event events.Event) {
		select {
		case failed <- event.(events.BackendFailed).Err:
		default:
		}
	})

	if err := assets.LoadAll(mix, appConfig.Assets); err != nil {
		logging.Warnf("Some assets failed to load: %v", err)
	}
	logging.Infof("Registered %d assets", len(mix.Snapshot()))

	var store *settings.Store
	if appConfig.Settings.Persist {
		store, err = settings.Open(appConfig.Settings.AppName)
		if err != nil {
			logging.Warnf("Settings persistence disabled: %v", err)
		} else if st, err := store.Load(); err != nil {
			logging.Warnf("Failed to restore settings: %v", err)
		} else {
			settings.Apply(mix, st)
		}
	}

	if err := mix.Start(ctx); err != nil {
		logging.Fatalf("Failed to start mixer: %v", err)
	}
	logging.Infof("Mixer started (%d slots, %d frames per buffer)", mix.Capacity(), mixerCfg.BufferFrames())

	var server *control.Server
	serverErr := make(chan error, 1)
	if appConfig.Control.Enable {
		server = control.NewServer(mix, bus, control.Config{
			ListenAddr: appConfig.Control.ListenAddr,
			Path:       appConfig.Control.Path,
		})
		go func() {
			serverErr <- server.ListenAndServe(ctx)
		}()
	}

	serverDone := false
	select {
	case <-ctx.Done():
		logging.Infof("Shutting down...")
	case err := <-failed:
		logging.Errorf("Output failed, shutting down: %v", err)
	case err := <-serverErr:
		serverDone = true
		if err != nil {
			logging.Errorf("Control server stopped, shutting down: %v", err)
		}
	}
	stop()

	if server != nil {
		if !serverDone {
			<-serverErr
		}
		server.Close()
	}

	if err := mix.Halt(); err != nil {
		logging.Errorf("Failed to halt mixer: %v", err)
	}

	if store != nil {
		if err := store.Save(settings.Capture(mix)); err != nil {
			logging.Errorf("Failed to save settings: %v", err)
		}
	}

	bus.Wait()
	logging.Infof("SoftMix stopped")
}
