package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/niktheblak/waterlevel-uploader/pkg/document"
)

var errNotConnected = errors.New("mqtt client not connected")

type MQTTConfig struct {
	Broker      string
	Port        int
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Logger      *slog.Logger
}

type mqttStore struct {
	client mqtt.Client
	prefix string
	qos    byte
	logger *slog.Logger
	now    func() time.Time
}

// DialMQTT connects to the broker and returns a store that publishes
// created documents.
func DialMQTT(ctx context.Context, cfg MQTTConfig) (Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger := cfg.Logger
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("MQTT connected", "broker", cfg.Broker, "port", cfg.Port)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})
	client := mqtt.NewClient(opts)
	if err := wait(ctx, client.Connect()); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return NewMQTT(client, cfg), nil
}

// NewMQTT wraps an already configured client.
func NewMQTT(client mqtt.Client, cfg MQTTConfig) Store {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "documents"
	}
	if cfg.QoS == 0 {
		cfg.QoS = 1
	}
	return &mqttStore{
		client: client,
		prefix: strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:    cfg.QoS,
		logger: cfg.Logger,
		now:    time.Now,
	}
}

func (s *mqttStore) Create(ctx context.Context, parent Parent, path string, mask Mask, doc *document.Document) ([]byte, error) {
	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	if !s.client.IsConnected() {
		return nil, errNotConnected
	}
	created := s.now().UTC()
	payload, err := render(parent, path, doc, created)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	topic := s.Topic(parent, path)
	if err := wait(ctx, s.client.Publish(topic, s.qos, false, payload)); err != nil {
		return nil, fmt.Errorf("publish to %s: %w", topic, err)
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "Published document", slog.String("topic", topic), slog.Int("size", len(payload)))
	if len(mask) == 0 {
		return payload, nil
	}
	return render(parent, path, mask.Apply(doc), created)
}

// Topic returns {prefix}/{project}/{database}/{path}.
func (s *mqttStore) Topic(parent Parent, path string) string {
	return strings.Join([]string{s.prefix, parent.ProjectID, parent.Database(), path}, "/")
}

func (s *mqttStore) Ping(ctx context.Context) error {
	if !s.client.IsConnected() {
		return errNotConnected
	}
	return nil
}

func (s *mqttStore) Close() error {
	s.client.Disconnect(250)
	return nil
}

// wait blocks until the token completes or ctx is done.
func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
