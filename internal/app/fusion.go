// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/tracking_alignment/internal/calibration"
	"github.com/relabs-tech/tracking_alignment/internal/config"
	"github.com/relabs-tech/tracking_alignment/internal/frames"
	"github.com/relabs-tech/tracking_alignment/internal/lifecycle"
	"github.com/relabs-tech/tracking_alignment/internal/logging"
	"github.com/relabs-tech/tracking_alignment/internal/mqttclient"
	"github.com/relabs-tech/tracking_alignment/internal/orientation"
	"github.com/relabs-tech/tracking_alignment/internal/tracking"
)

// openSensor returns the orientation sensor selected by cfg.SensorSource.
func openSensor(cfg *config.Config, logger zerolog.Logger) (orientation.Source, error) {
	switch cfg.SensorSource {
	case "imu":
		return orientation.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, logger)
	case "mock":
		logger.Info().Msg("using mock orientation sensor")
		return orientation.NewMockSource(), nil
	default:
		return nil, fmt.Errorf("unknown sensor source %q", cfg.SensorSource)
	}
}

// controllerOptions maps the fusion settings of cfg onto controller options.
func controllerOptions(cfg *config.Config) (lifecycle.Options, error) {
	mode, err := frames.ParseTrackingType(cfg.TrackingType)
	if err != nil {
		return lifecycle.Options{}, err
	}
	opts := lifecycle.DefaultOptions()
	opts.TrackingType = mode
	opts.FixedWeight = cfg.PositionFixedWeight
	opts.ExtrapolationTime = cfg.ExtrapolationTime
	return opts, nil
}

// newResolver reads placements from cfg.StoragePath, or resolves to the
// identity placement when no storage is configured.
func newResolver(cfg *config.Config, logger zerolog.Logger) (*calibration.Resolver, error) {
	if cfg.StoragePath == "" {
		logger.Info().Msg("no placement storage configured")
		return calibration.NewResolver(nil, logger), nil
	}
	store, err := calibration.NewFileStore(cfg.StoragePath)
	if err != nil {
		return nil, err
	}
	return calibration.NewResolver(store, logger), nil
}

const publishTimeout = 5 * time.Second

// mqttPublisher publishes aligned poses on topic and to the websocket hub.
// Delivery is checked off the tick goroutine; failures are logged.
func mqttPublisher(client mqtt.Client, topic string, hub *poseHub, logger zerolog.Logger) func(AlignedPose, []byte) {
	return func(_ AlignedPose, data []byte) {
		token := mqttclient.Publish(client, topic, false, data)
		go func() {
			if !token.WaitTimeout(publishTimeout) {
				logger.Warn().Str("topic", topic).Msg("aligned pose publish timed out")
				return
			}
			if err := token.Error(); err != nil {
				logger.Warn().Err(err).Str("topic", topic).Msg("aligned pose publish failed")
			}
		}()
		hub.publish(data)
	}
}

// RunFusion runs the tick loop until SIGINT or SIGTERM. SIGUSR1 pauses
// alignment and SIGUSR2 resumes it; the focus topic does the same.
func RunFusion() error {
	cfg := config.Get()
	logger := logging.Component(logging.New(cfg.LogLevel), "fusion")

	client, err := mqttclient.Connect(cfg.MQTTBroker, cfg.MQTTClientIDFusion, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	sensor, err := openSensor(cfg, logger)
	if err != nil {
		return err
	}

	src, err := tracking.Discover(cfg, client, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	resolver, err := newResolver(cfg, logger)
	if err != nil {
		return err
	}
	opts, err := controllerOptions(cfg)
	if err != nil {
		return err
	}

	chain := frames.NewChain()
	ctrl, err := lifecycle.New(chain.SensorPose, src, resolver, opts, logger)
	if err != nil {
		return err
	}

	focus := make(chan bool, 8)
	if cfg.TopicFocus != "" {
		if err := mqttclient.Subscribe(client, cfg.TopicFocus, focusHandler(focus, logger)); err != nil {
			return err
		}
		logger.Info().Str("topic", cfg.TopicFocus).Msg("listening for focus changes")
	}

	hub := newPoseHub(logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: hub.routes(),
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("pose web server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("pose web server stopped")
		}
	}()
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	placementChanged := make(chan struct{}, 1)
	if cfg.StoragePath != "" {
		if err := watchPlacement(ctx, cfg.StoragePath, placementChanged, logger); err != nil {
			logger.Warn().Err(err).Msg("placement changes will only apply on the next focus gain")
		}
	}

	p := newPipeline(ctrl, sensor, mqttPublisher(client, cfg.TopicPoseAligned, hub, logger), logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(time.Duration(cfg.TickInterval) * time.Millisecond)
	defer ticker.Stop()

	logger.Info().Int("tick_ms", cfg.TickInterval).Str("tracking_type", opts.TrackingType.String()).Msg("fusion loop started")
	for {
		select {
		case now := <-ticker.C:
			p.tick(now)
		case focused := <-focus:
			ctrl.OnFocusChanged(focused)
		case <-placementChanged:
			ctrl.ReloadPlacement()
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGUSR1:
				ctrl.OnPause(true)
			case syscall.SIGUSR2:
				ctrl.OnPause(false)
			default:
				logger.Info().Int("ticks", p.ticks).Msg("fusion shutting down")
				return nil
			}
		}
	}
}
