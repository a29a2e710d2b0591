package rmq

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"plaid.dev/conllu/logger"
)

type Config struct {
	Host                    string `envconfig:"CONLLU_RMQ_HOST" required:"true"`
	Port                    int    `envconfig:"CONLLU_RMQ_PORT" default:"5672"`
	Username                string `envconfig:"CONLLU_RMQ_USERNAME" required:"true"`
	Password                string `envconfig:"CONLLU_RMQ_PASSWORD" required:"true"`
	Vhost                   string `envconfig:"CONLLU_RMQ_VHOST" default:"/"`
	Exchange                string `envconfig:"CONLLU_RMQ_EXCHANGE" default:"conllu-default-exchange"`
	MaxParallelRequestCount int    `envconfig:"CONLLU_RMQ_MAX_PARALLEL_REQUESTS" default:"5"`
	ConversionQueue         string `envconfig:"CONLLU_CONVERSION_QUEUE" required:"true"`
	CompletionQueue         string `envconfig:"CONLLU_COMPLETION_QUEUE" required:"true"`
}

// Client consumes conversion jobs on one connection and publishes completion
// messages on another, so a slow consumer never blocks publishing.
type Client struct {
	Deliveries     <-chan amqp.Delivery
	ReqChanErrors  <-chan *amqp.Error
	RespChanErrors <-chan *amqp.Error
	config         Config
	reqConn        *amqp.Connection
	respConn       *amqp.Connection
	respChannel    *amqp.Channel
	rmqLogger      *zerolog.Logger
}

func NewClient() (*Client, error) {
	rmqLogger := logger.NewLogger("RMQ client")
	var err error
	var config Config
	if err = envconfig.Process("", &config); err != nil {
		rmqLogger.Error().Err(err).Msg("Could not read env config")
		return nil, err
	}

	url := getURL(config)
	respConn, respChannel, err := setup(url)
	if err != nil {
		return nil, fmt.Errorf("failed connection: %w", err)
	}
	reqConn, reqChannel, err := setup(url)
	if err != nil {
		_ = respConn.Close()
		return nil, fmt.Errorf("failed connection: %w", err)
	}

	client := &Client{
		config:      config,
		reqConn:     reqConn,
		respConn:    respConn,
		respChannel: respChannel,
		rmqLogger:   &rmqLogger,
	}
	if err := client.consume(reqChannel); err != nil {
		client.Close()
		return nil, err
	}
	client.ReqChanErrors = reqChannel.NotifyClose(make(chan *amqp.Error, 1))
	client.RespChanErrors = respChannel.NotifyClose(make(chan *amqp.Error, 1))
	rmqLogger.Info().
		Str("queue", config.ConversionQueue).
		Int("prefetch", config.MaxParallelRequestCount).
		Msg("Consuming conversion jobs")
	return client, nil
}

func (c *Client) consume(reqChannel *amqp.Channel) error {
	q, err := reqChannel.QueueDeclarePassive(
		c.config.ConversionQueue, // name
		true,                     // durable
		false,                    // delete when unused
		false,                    // exclusive
		false,                    // no-wait
		nil,                      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare %s: %w", c.config.ConversionQueue, err)
	}
	if err := reqChannel.QueueBind(
		q.Name,
		q.Name,
		c.config.Exchange,
		false,
		nil); err != nil {
		return fmt.Errorf("bind %s: %w", q.Name, err)
	}
	if err := reqChannel.Qos(c.config.MaxParallelRequestCount, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	deliveries, err := reqChannel.Consume(
		q.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume deliveries: %w", err)
	}
	c.Deliveries = deliveries
	return nil
}

// SendCompletion publishes msg to the completion queue through the exchange.
func (c *Client) SendCompletion(msg amqp.Publishing) error {
	if msg.DeliveryMode == 0 {
		msg.DeliveryMode = amqp.Persistent
	}
	return c.respChannel.Publish(
		c.config.Exchange,
		c.config.CompletionQueue,
		false,
		false,
		msg)
}

func (c *Client) Close() {
	_ = c.reqConn.Close()
	_ = c.respConn.Close()
}

func getURL(config Config) string {
	return amqp.URI{
		Scheme:   "amqp",
		Host:     config.Host,
		Port:     config.Port,
		Username: config.Username,
		Password: config.Password,
		Vhost:    config.Vhost,
	}.String()
}

func setup(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}
