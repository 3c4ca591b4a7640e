package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/dronecoord/infra/logger"
)

// DefaultTopicPrefix roots every topic when Config.TopicPrefix is empty.
const DefaultTopicPrefix = "dronecoord"

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled     bool            `json:"enabled" koanf:"enabled"`
	Broker      string          `json:"broker" koanf:"broker" validate:"required_if=Enabled true"`
	ClientID    string          `json:"client_id" koanf:"client_id"`
	Username    string          `json:"username" koanf:"username"`
	Password    string          `json:"password" koanf:"password"`
	TopicPrefix string          `json:"topic_prefix" koanf:"topic_prefix"`
	UseTLS      bool            `json:"use_tls" koanf:"use_tls"`
	ClientCert  string          `json:"client_cert" koanf:"client_cert"`
	ClientKey   string          `json:"client_key" koanf:"client_key"`
	CABundle    string          `json:"ca_bundle" koanf:"ca_bundle"`
	AuthMethod  string          `json:"auth_method" koanf:"auth_method" validate:"omitempty,oneof=username_password certificate both"`
	QoS         map[string]byte `json:"qos" koanf:"qos"`
	LWTTopic    string          `json:"lwt_topic" koanf:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload" koanf:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos" koanf:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain" koanf:"lwt_retain"`
	MaxRetries  int             `json:"max_retries" koanf:"max_retries"`
	BackoffMS   int             `json:"backoff_ms" koanf:"backoff_ms"`
	TLSConfig   *tls.Config     `json:"-" koanf:"-"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "dronecoord"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the fields a struct tag cannot express.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if strings.Contains(c.TopicPrefix, "#") || strings.Contains(c.TopicPrefix, "+") {
		return fmt.Errorf("mqtt: topic_prefix %q must not contain wildcards", c.TopicPrefix)
	}
	for k, q := range c.QoS {
		if q > 2 {
			return fmt.Errorf("mqtt: qos %s=%d out of range", k, q)
		}
	}
	return nil
}

// pahoClient is the subset of paho.Client used by the notifier.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// connect builds options from cfg, wires connection logging and connects.
func connect(cfg Config, log logger.Logger) (pahoClient, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return c, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt: broker is required")
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

// publishWithRetry publishes payload, retrying with exponential backoff.
func publishWithRetry(cli pahoClient, log logger.Logger, topic string, qos byte, payload []byte, maxRetries int, backoff time.Duration) error {
	var publishErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		token := cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		log.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt < maxRetries {
			time.Sleep(backoff * time.Duration(1<<attempt))
		}
	}
	return publishErr
}
