package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// RabbitMQServiceImpl wraps a connection and channel to the order_events
// topic exchange.
type RabbitMQServiceImpl struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// EventQueues lists the routing keys this service publishes and consumes.
// Each gets its own durable queue bound to the exchange under the same key.
var EventQueues = []string{
	"order.created",
	"order.updated",
	"order.deleted",
	"notification.sent",
}

func NewRabbitMQService(host, exchange, queueName string) (*RabbitMQServiceImpl, error) {
	conn, err := amqp.Dial(host)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare an exchange: %w", err)
	}

	// dead-letter exchange
	dlxName := exchange + ".dlx"
	err = ch.ExchangeDeclare(
		dlxName,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare a dead-letter exchange: %w", err)
	}

	dlqName := queueName + ".dlq"
	_, err = ch.QueueDeclare(
		dlqName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare a dead-letter queue: %w", err)
	}

	err = ch.QueueBind(
		dlqName,
		"",
		dlxName,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bind dead-letter queue: %w", err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange": dlxName,
	}

	for _, eventQueue := range EventQueues {
		_, err = ch.QueueDeclare(
			eventQueue,
			true,
			false,
			false,
			false,
			args,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to declare event queue %s: %w", eventQueue, err)
		}

		// Routing key matches the queue name
		err = ch.QueueBind(
			eventQueue,
			eventQueue,
			exchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to bind event queue %s: %w", eventQueue, err)
		}
	}

	return &RabbitMQServiceImpl{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
	}, nil
}

// Publish sends a message to a topic on the exchange. The message is made
// persistent to survive broker restarts.
func (s *RabbitMQServiceImpl) Publish(topic string, body []byte) error {
	if topic == "" {
		return fmt.Errorf("topic cannot be empty")
	}
	if body == nil {
		return fmt.Errorf("message body cannot be nil")
	}

	if s.conn.IsClosed() {
		return fmt.Errorf("connection to RabbitMQ is closed")
	}
	if s.channel == nil {
		return fmt.Errorf("channel is not initialized")
	}

	err := s.channel.Publish(
		s.exchange,
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message to topic '%s': %w", topic, err)
	}

	return nil
}

// Consume starts consuming messages from a queue.
func (s *RabbitMQServiceImpl) Consume(queueName string) (<-chan amqp.Delivery, error) {
	if s.conn.IsClosed() {
		return nil, fmt.Errorf("connection is closed")
	}

	msgs, err := s.channel.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming queue: %w", err)
	}
	return msgs, nil
}

// IsHealthy checks if the RabbitMQ connection is healthy
func (s *RabbitMQServiceImpl) IsHealthy() bool {
	return !s.conn.IsClosed() && s.channel != nil
}

// Close closes the channel and connection to RabbitMQ.
func (s *RabbitMQServiceImpl) Close() {
	s.channel.Close()
	s.conn.Close()
}
