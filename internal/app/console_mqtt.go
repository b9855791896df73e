package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/tracking_alignment/internal/config"
	"github.com/relabs-tech/tracking_alignment/internal/logging"
	"github.com/relabs-tech/tracking_alignment/internal/mqttclient"
	"github.com/relabs-tech/tracking_alignment/internal/tracking"
)

func printAlignedPose(w io.Writer, p AlignedPose) {
	state := "stopped"
	if p.Aligning {
		state = "aligning"
	}
	fmt.Fprintf(w,
		"[POSE] t=%8.3f  pos=(%7.3f %7.3f %7.3f)  rot=(%6.3f %6.3f %6.3f %6.3f)  lag=%5.1fms  %-8s %s\n",
		p.Timestamp, p.Position[0], p.Position[1], p.Position[2],
		p.Rotation[0], p.Rotation[1], p.Rotation[2], p.Rotation[3],
		p.ExtrapolationTime*1000, state, p.Stage,
	)
}

func printTrackerState(w io.Writer, s tracking.State) {
	fmt.Fprintf(w,
		"[TRK ] t=%8.3f  pos=(%7.3f %7.3f %7.3f)  rot=(%6.3f %6.3f %6.3f %6.3f)  %s conf=%.2f\n",
		s.Timestamp, s.Position[0], s.Position[1], s.Position[2],
		s.Rotation[0], s.Rotation[1], s.Rotation[2], s.Rotation[3],
		s.Stage, s.Confidence,
	)
}

// consoleHandlers prints aligned poses and tracker states to w.
func consoleHandlers(w io.Writer, logger zerolog.Logger) (poses, states mqtt.MessageHandler) {
	poses = func(_ mqtt.Client, msg mqtt.Message) {
		var p AlignedPose
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			logger.Warn().Err(err).Msg("aligned pose unmarshal error")
			return
		}
		printAlignedPose(w, p)
	}
	states = func(_ mqtt.Client, msg mqtt.Message) {
		var s tracking.State
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			logger.Warn().Err(err).Msg("tracker state unmarshal error")
			return
		}
		printTrackerState(w, s)
	}
	return poses, states
}

// RunConsoleMQTT prints aligned poses and tracker states until Ctrl+C.
func RunConsoleMQTT(showTracker bool) error {
	cfg := config.Get()
	logger := logging.Component(logging.New(cfg.LogLevel), "console")

	// Several consoles may watch the same broker.
	clientID := cfg.MQTTClientIDConsole + "-" + uuid.NewString()[:8]
	client, err := mqttclient.Connect(cfg.MQTTBroker, clientID, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	poses, states := consoleHandlers(os.Stdout, logger)
	if err := mqttclient.Subscribe(client, cfg.TopicPoseAligned, poses); err != nil {
		return err
	}
	logger.Info().Str("topic", cfg.TopicPoseAligned).Msg("subscribed")

	if showTracker {
		if err := mqttclient.Subscribe(client, cfg.TopicTrackerState, states); err != nil {
			return err
		}
		logger.Info().Str("topic", cfg.TopicTrackerState).Msg("subscribed")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("console shutting down")
	return nil
}
