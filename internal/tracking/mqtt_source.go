package tracking

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/tracking_alignment/internal/mqttclient"
)

// MQTTSource receives tracker states published on an MQTT topic.
type MQTTSource struct {
	*latest
	client mqtt.Client
	topic  string
	logger zerolog.Logger
}

// NewMQTTSource subscribes to topic on an already connected client.
func NewMQTTSource(client mqtt.Client, topic string, maxAge time.Duration, logger zerolog.Logger) (*MQTTSource, error) {
	s := &MQTTSource{
		latest: newLatest(maxAge, time.Now),
		client: client,
		topic:  topic,
		logger: logger,
	}
	if err := mqttclient.Subscribe(client, topic, s.handle); err != nil {
		return nil, err
	}
	logger.Info().Str("topic", topic).Msg("subscribed to tracker states")
	return s, nil
}

func (s *MQTTSource) handle(_ mqtt.Client, msg mqtt.Message) {
	sample, err := DecodeState(msg.Payload())
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("dropping tracker state")
		return
	}
	s.put(sample)
}

// Close unsubscribes. The client stays connected.
func (s *MQTTSource) Close() error {
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
	return token.Error()
}
