// Package app wires the service components together.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mina/internal/config"
	"mina/internal/events"
	"mina/internal/observability"
	"mina/internal/observability/logging"
	"mina/internal/service/audio"
	"mina/internal/service/segment"
	"mina/internal/service/stt"
	"mina/internal/service/stt/google"
	"mina/internal/service/stt/mock"
	"mina/internal/service/throttle"
	"mina/internal/service/vad"
	"mina/internal/transport/ws"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
	Throttler   *throttle.Throttler
	Publisher   *events.Publisher

	segmentGen *segment.Generator
}

// New constructs the application from validated configuration.
func New(cfg *config.Config) (*Application, error) {
	logging.Init(cfg.LogLevel, cfg.LogPretty)

	throttler, err := throttle.New(cfg.ThrottleConfig(), observability.NewSnapshotSink())
	if err != nil {
		return nil, fmt.Errorf("failed to create throttler: %w", err)
	}

	publisher := events.New(&events.Config{
		Enabled:      cfg.KafkaEnabled,
		Brokers:      cfg.KafkaBrokers,
		TopicInterim: cfg.KafkaTopicInterim,
		TopicFinal:   cfg.KafkaTopicFinal,
		Principal:    cfg.KafkaPrincipal,
	})

	a := &Application{
		Logger:     logging.WithComponent("application"),
		Cfg:        cfg,
		Throttler:  throttler,
		Publisher:  publisher,
		segmentGen: segment.NewGenerator(),
	}

	a.Logger.Info().
		Str("sttProvider", cfg.STTProvider).
		Int64("interimThrottleMs", cfg.InterimThrottleMs).
		Int64("vadTailSilenceMs", cfg.VADTailSilenceMs).
		Msg("Mina application created")
	return a, nil
}

// SessionFactory returns the factory the WebSocket transport uses to
// build the per-session pipeline.
func (a *Application) SessionFactory() ws.SessionFactory {
	return func(sessionID string, emitter audio.Emitter) (*audio.Handler, error) {
		adapter, err := a.newAdapter(context.Background())
		if err != nil {
			return nil, err
		}

		tracker := vad.NewTracker(vad.Config{
			EnergyThreshold: a.Cfg.VADEnergyThreshold,
			FrameDurationMs: a.Cfg.VADFrameDurationMs,
		})

		return audio.NewHandler(
			adapter,
			a.Throttler,
			a.Publisher,
			emitter,
			a.segmentGen,
			tracker,
			sessionID,
			audio.SessionLimits{
				MaxAudioBytes: a.Cfg.SessionMaxAudioBytes,
				MaxInterims:   a.Cfg.SessionMaxInterims,
			},
		), nil
	}
}

func (a *Application) newAdapter(ctx context.Context) (stt.Adapter, error) {
	switch a.Cfg.STTProvider {
	case "google":
		return google.New(ctx, google.Config{
			LanguageCode:   a.Cfg.STTLanguageCode,
			SampleRateHz:   a.Cfg.STTSampleRateHz,
			InterimResults: true,
			AudioEncoding:  "LINEAR16",
		})
	default:
		return mock.New(), nil
	}
}

// Start records startup and logs readiness.
func (a *Application) Start() {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Mina service starting")
}

// Shutdown releases application resources.
func (a *Application) Shutdown() {
	a.Logger.Info().
		Int("activeSessions", a.Throttler.ActiveSessions()).
		Msg("Mina service shutting down")
	if err := a.Publisher.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("Error closing publisher")
	}
}
