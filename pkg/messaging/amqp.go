package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"dialog-analyzer/pkg/analyzer"
	"dialog-analyzer/pkg/metrics"
)

// StatisticsMessage carries the result of one completed dialog analysis
type StatisticsMessage struct {
	AnalysisID string                    `json:"analysis_id"`
	File       string                    `json:"file"`
	Statistics analyzer.DialogStatistics `json:"statistics"`
	Timestamp  time.Time                 `json:"timestamp"`
	Metadata   map[string]interface{}    `json:"metadata,omitempty"`
}

// AMQPConfig holds AMQP client configuration
type AMQPConfig struct {
	URL          string
	QueueName    string
	ExchangeName string
	RoutingKey   string
	Durable      bool
	AutoDelete   bool
}

// AMQPClient handles AMQP connections and statistics publishing
type AMQPClient struct {
	logger    *logrus.Logger
	config    AMQPConfig
	conn      *amqp.Connection
	channel   *amqp.Channel
	connected bool
	connMutex sync.RWMutex
	stopChan  chan struct{}
}

// NewAMQPClient creates a new AMQP client
func NewAMQPClient(logger *logrus.Logger, config AMQPConfig) *AMQPClient {
	if config.RoutingKey == "" {
		config.RoutingKey = config.QueueName
	}
	config.Durable = true
	config.AutoDelete = false

	return &AMQPClient{
		logger:   logger,
		config:   config,
		stopChan: make(chan struct{}),
	}
}

// Connect establishes a connection to the AMQP server
func (c *AMQPClient) Connect() error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.connected {
		return nil
	}

	if c.config.URL == "" || c.config.QueueName == "" {
		c.logger.Warn("AMQP_URL or AMQP_QUEUE_NAME not set, AMQP functionality will be disabled")
		return fmt.Errorf("AMQP URL or queue name not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Dial in a goroutine so we can bound the wait
	connChan := make(chan struct {
		conn *amqp.Connection
		err  error
	}, 1)

	go func() {
		conn, err := amqp.Dial(c.config.URL)
		select {
		case <-ctx.Done():
			if conn != nil {
				conn.Close()
			}
			return
		case connChan <- struct {
			conn *amqp.Connection
			err  error
		}{conn, err}:
		}
	}()

	var conn *amqp.Connection
	var err error
	select {
	case result := <-connChan:
		conn = result.conn
		err = result.err
	case <-ctx.Done():
		metrics.RecordAMQPConnectionError("timeout")
		return fmt.Errorf("connection to AMQP server timed out after 5 seconds")
	}

	if err != nil {
		metrics.RecordAMQPConnectionError("dial")
		return fmt.Errorf("failed to connect to AMQP server: %w", err)
	}

	c.conn = conn

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		metrics.RecordAMQPConnectionError("channel")
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}
	c.channel = channel

	_, err = channel.QueueDeclare(
		c.config.QueueName,
		c.config.Durable,
		c.config.AutoDelete,
		false, // Exclusive
		false, // No-wait
		nil,   // Arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		metrics.RecordAMQPConnectionError("queue_declare")
		return fmt.Errorf("failed to declare AMQP queue: %w", err)
	}

	c.connected = true
	c.stopChan = make(chan struct{})
	go c.monitorConnection()

	c.logger.WithFields(logrus.Fields{
		"queue": c.config.QueueName,
	}).Info("Connected to AMQP server")

	return nil
}

// monitorConnection watches for the server closing the connection
func (c *AMQPClient) monitorConnection() {
	closeChan := make(chan *amqp.Error, 1)
	c.conn.NotifyClose(closeChan)

	select {
	case err := <-closeChan:
		if err != nil {
			c.logger.WithError(err).Warn("AMQP connection closed by server")
			metrics.RecordAMQPConnectionError("closed")
		}
		c.connMutex.Lock()
		c.connected = false
		c.connMutex.Unlock()
	case <-c.stopChan:
	}
}

// Disconnect closes the AMQP connection
func (c *AMQPClient) Disconnect() {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if !c.connected {
		return
	}

	close(c.stopChan)

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}

	c.connected = false
	c.logger.Info("Disconnected from AMQP server")
}

// IsConnected returns the connection status
func (c *AMQPClient) IsConnected() bool {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.connected
}

// PublishStatistics publishes a completed analysis to the configured queue
func (c *AMQPClient) PublishStatistics(msg *StatisticsMessage) error {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()

	if !c.connected {
		metrics.RecordAMQPPublish(c.config.QueueName, "dropped")
		return fmt.Errorf("not connected to AMQP server")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal statistics message: %w", err)
	}

	err = c.channel.Publish(
		c.config.ExchangeName,
		c.config.RoutingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		metrics.RecordAMQPPublish(c.config.QueueName, "error")
		return fmt.Errorf("failed to publish statistics: %w", err)
	}

	metrics.RecordAMQPPublish(c.config.QueueName, "ok")
	c.logger.WithFields(logrus.Fields{
		"analysis_id": msg.AnalysisID,
		"queue":       c.config.QueueName,
	}).Debug("Published dialog statistics")

	return nil
}
