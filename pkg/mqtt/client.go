// Package mqtt publishes prediction and training events to an MQTT broker
// so downstream consumers (notification services, dashboards) can react
// without polling.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	pkg "github.com/plantwise/plantwise/pkg"
	"github.com/plantwise/plantwise/pkg/logx"
	"github.com/plantwise/plantwise/pkg/models"
)

// Client publishes plantwise prediction telemetry
type Client struct {
	client      MQTT.Client
	logger      *logx.Logger
	config      *Config
	connected   bool
	lastPublish time.Time
}

// Config holds MQTT configuration
type Config struct {
	Broker      string `yaml:"broker"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
	Enabled     bool   `yaml:"enabled"`
}

// DefaultConfig returns default MQTT configuration
func DefaultConfig() *Config {
	return &Config{
		Broker:      "localhost",
		Port:        1883,
		ClientID:    "plantwised",
		TopicPrefix: "plantwise",
		QoS:         1,
		Retain:      false,
		Enabled:     false,
	}
}

// NewClient creates a new MQTT client
func NewClient(config *Config, logger *logx.Logger) *Client {
	return &Client{
		logger: logger,
		config: config,
	}
}

// Connect establishes connection to the MQTT broker
func (c *Client) Connect() error {
	if !c.config.Enabled {
		c.logger.Debug("mqtt client disabled")
		return nil
	}

	opts := MQTT.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", c.config.Broker, c.config.Port))
	opts.SetClientID(c.config.ClientID)

	if c.config.Username != "" {
		opts.SetUsername(c.config.Username)
		opts.SetPassword(c.config.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(1 * time.Minute)

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.client = MQTT.NewClient(opts)

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	c.logger.Info("mqtt client connected",
		"broker", c.config.Broker, "port", c.config.Port)

	return nil
}

// Disconnect disconnects from the MQTT broker
func (c *Client) Disconnect() error {
	if c.client != nil && c.connected {
		c.client.Disconnect(250)
		c.connected = false
		c.logger.Info("mqtt client disconnected")
	}
	return nil
}

func (c *Client) onConnect(client MQTT.Client) {
	c.connected = true
	c.logger.Info("mqtt connection established")
}

func (c *Client) onConnectionLost(client MQTT.Client, err error) {
	c.connected = false
	c.logger.Error("mqtt connection lost", "error", err)
}

// PublishHealthPrediction publishes a health prediction for a plant
func (c *Client) PublishHealthPrediction(prediction *pkg.HealthPrediction) error {
	if !c.config.Enabled || !c.connected {
		return nil
	}

	topic := fmt.Sprintf("%s/plants/%s/health", c.config.TopicPrefix, prediction.PlantID)
	return c.publishJSON(topic, prediction)
}

// PublishSeasonalPrediction publishes a seasonal prediction for a plant
func (c *Client) PublishSeasonalPrediction(result *pkg.SeasonalPredictionResult) error {
	if !c.config.Enabled || !c.connected {
		return nil
	}

	topic := fmt.Sprintf("%s/plants/%s/seasonal", c.config.TopicPrefix, result.PlantID)
	return c.publishJSON(topic, result)
}

// PublishTrainingResult publishes the outcome of a training pass
func (c *Client) PublishTrainingResult(result *models.TrainResult) error {
	if !c.config.Enabled || !c.connected {
		return nil
	}

	topic := fmt.Sprintf("%s/models/training", c.config.TopicPrefix)
	payload := map[string]interface{}{
		"timestamp": time.Now(),
		"result":    result,
	}
	return c.publishJSON(topic, payload)
}

// PublishStatus publishes daemon status
func (c *Client) PublishStatus(status map[string]interface{}) error {
	if !c.config.Enabled || !c.connected {
		return nil
	}

	topic := fmt.Sprintf("%s/status", c.config.TopicPrefix)
	payload := map[string]interface{}{
		"timestamp": time.Now(),
		"status":    status,
	}
	return c.publishJSON(topic, payload)
}

// publishJSON publishes a JSON payload to an MQTT topic
func (c *Client) publishJSON(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	token := c.client.Publish(topic, byte(c.config.QoS), c.config.Retain, data)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	c.lastPublish = time.Now()
	c.logger.Debug("mqtt message published", "topic", topic, "size", len(data))

	return nil
}

// IsConnected returns whether the MQTT client is connected
func (c *Client) IsConnected() bool {
	return c.connected && c.client != nil && c.client.IsConnected()
}

// GetLastPublish returns the timestamp of the last publish
func (c *Client) GetLastPublish() time.Time {
	return c.lastPublish
}

// Subscribe subscribes to an MQTT topic
func (c *Client) Subscribe(topic string, handler MQTT.MessageHandler) error {
	if !c.config.Enabled || !c.connected {
		return nil
	}

	token := c.client.Subscribe(topic, byte(c.config.QoS), handler)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}

	c.logger.Info("mqtt subscription created", "topic", topic)
	return nil
}

// PublishWithRetry publishes with retry logic
func (c *Client) PublishWithRetry(topic string, payload interface{}, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if err := c.publishJSON(topic, payload); err != nil {
			lastErr = err
			c.logger.Warn("mqtt publish failed, retrying",
				"topic", topic, "attempt", i+1, "max_retries", maxRetries, "error", err)
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		return nil
	}

	return fmt.Errorf("failed to publish after %d retries: %w", maxRetries, lastErr)
}
