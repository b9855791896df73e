package app

import (
	"fmt"
	"strconv"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// parseFocus accepts strconv.ParseBool values plus focused/unfocused and
// resume/pause.
func parseFocus(payload string) (bool, error) {
	s := strings.ToLower(strings.TrimSpace(payload))
	switch s {
	case "focused", "resume":
		return true, nil
	case "unfocused", "pause":
		return false, nil
	}
	focused, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid focus payload %q", payload)
	}
	return focused, nil
}

// focusHandler forwards focus messages to the tick loop. Events are
// dropped rather than blocking the MQTT client when the loop is behind.
func focusHandler(events chan<- bool, logger zerolog.Logger) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		focused, err := parseFocus(string(msg.Payload()))
		if err != nil {
			logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("ignoring focus message")
			return
		}
		select {
		case events <- focused:
		default:
			logger.Warn().Bool("focused", focused).Msg("focus event dropped, tick loop busy")
		}
	}
}
