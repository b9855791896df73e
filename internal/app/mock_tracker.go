package app

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/tracking_alignment/internal/config"
	"github.com/relabs-tech/tracking_alignment/internal/logging"
	"github.com/relabs-tech/tracking_alignment/internal/mqttclient"
	"github.com/relabs-tech/tracking_alignment/internal/orientation"
	"github.com/relabs-tech/tracking_alignment/internal/tracking"
)

// publishTrackerState publishes the simulated tracker state for wall time now.
func publishTrackerState(client mqtt.Client, topic string, sim tracking.Simulator, now time.Time, logger zerolog.Logger) {
	t := orientation.MockClock(now)
	payload, err := json.Marshal(tracking.NewState(t, sim.At(t)))
	if err != nil {
		logger.Error().Err(err).Msg("tracker state encode failed")
		return
	}
	if token := mqttclient.Publish(client, topic, false, payload); token.Wait() && token.Error() != nil {
		logger.Warn().Err(token.Error()).Str("topic", topic).Msg("tracker state publish failed")
	}
}

// RunMockTracker publishes simulated tracker states that follow the mock
// orientation sensor, lagging it by MOCK_TRACKER_LATENCY.
func RunMockTracker() error {
	cfg := config.Get()
	logger := logging.Component(logging.New(cfg.LogLevel), "mock-tracker")

	client, err := mqttclient.Connect(cfg.MQTTBroker, cfg.MQTTClientIDTracker, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	sim := tracking.NewSimulator(float64(cfg.MockTrackerLatency) / 1000)
	logger.Info().
		Str("topic", cfg.TopicTrackerState).
		Int("interval_ms", cfg.MockTrackerInterval).
		Float64("latency", sim.Latency).
		Msg("publishing simulated tracker states")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.MockTrackerInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			publishTrackerState(client, cfg.TopicTrackerState, sim, now, logger)
		case <-sigCh:
			logger.Info().Msg("mock tracker shutting down")
			return nil
		}
	}
}
