package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type MQTTConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	ClientID    string
	TopicPrefix string
	Retain      bool
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTStore publishes documents to <prefix>/<kind>/<key>. Meter data is
// large and only useful for auditing, so it is not published.
type MQTTStore struct {
	logger  *slog.Logger
	client  mqtt.Client
	pub     publisher
	prefix  string
	retain  bool
	timeout time.Duration
}

func NewMQTTStore(logger *slog.Logger, cfg MQTTConfig) *MQTTStore {
	logger = logger.With("module", "mqtt_store")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("MQTT connected")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	mqttLogger := logger.With(slog.String("client", "paho"))
	mqtt.CRITICAL = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.ERROR = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.WARN = newMqttLogger(mqttLogger, slog.LevelWarn)

	client := mqtt.NewClient(opts)
	return &MQTTStore{
		logger:  logger,
		client:  client,
		pub:     client,
		prefix:  strings.TrimRight(cfg.TopicPrefix, "/"),
		retain:  cfg.Retain,
		timeout: 5 * time.Second,
	}
}

func (s *MQTTStore) Connect() error {
	s.logger.Debug("connecting MQTT client")
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}
	return nil
}

func (s *MQTTStore) Disconnect() {
	s.logger.Info("disconnecting MQTT client")
	s.client.Disconnect(250)
}

func (s *MQTTStore) Topic(doc Document) string {
	key := strings.NewReplacer("+", "_", "#", "_", " ", "_").Replace(doc.Key)
	return fmt.Sprintf("%s/%s/%s", s.prefix, doc.Kind, key)
}

func (s *MQTTStore) Put(ctx context.Context, doc Document) error {
	if doc.Kind == KindMeterData {
		return nil
	}

	body, err := doc.Body()
	if err != nil {
		return err
	}

	topic := s.Topic(doc)
	token := s.pub.Publish(topic, 1, s.retain, body)

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("timeout when publishing to %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("error when publishing to %s: %w", topic, token.Error())
	}

	s.logger.Debug("document published", slog.String("topic", topic))
	return nil
}
