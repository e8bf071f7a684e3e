package infrastructure

import (
	"context"
	"fmt"
	"go-order-api/src/infrastructure/log"
	rabbitmq "go-order-api/src/infrastructure/rabbitmq"
	"sync"
	"time"
)

type EventListener struct {
	rabbitMQService *rabbitmq.RabbitMQServiceImpl
	logger          log.Logger
	handlers        map[string]EventHandler
}

type EventHandler interface {
	Handle(ctx context.Context, msgBody []byte)
}

func NewEventListener(rabbit *rabbitmq.RabbitMQServiceImpl, logger log.Logger) *EventListener {
	return &EventListener{
		rabbitMQService: rabbit,
		logger:          logger,
		handlers:        make(map[string]EventHandler),
	}
}

// RegisterHandler registers an event handler for a specific event type
func (el *EventListener) RegisterHandler(eventType string, handler EventHandler) {
	el.handlers[eventType] = handler
}

// StartListening consumes every registered queue in its own goroutine until
// the context is cancelled.
func (el *EventListener) StartListening(ctx context.Context) error {
	var wg sync.WaitGroup

	for eventType, handler := range el.handlers {
		wg.Add(1)
		go func(evtType string, h EventHandler) {
			defer wg.Done()
			el.listenToQueue(ctx, evtType, h)
		}(eventType, handler)
	}

	wg.Wait()
	return nil
}

func (el *EventListener) listenToQueue(ctx context.Context, queueName string, handler EventHandler) {
	for {
		select {
		case <-ctx.Done():
			el.logger.Info(ctx, fmt.Sprintf("Stopping listener for queue: %s", queueName))
			return
		default:
		}

		msgs, err := el.rabbitMQService.Consume(queueName)
		if err != nil {
			el.logger.Exception(ctx, fmt.Sprintf("Failed to consume queue %s, retrying", queueName), err)
			time.Sleep(5 * time.Second)
			continue
		}

		el.logger.Info(ctx, fmt.Sprintf("Listening on queue: %s", queueName))

	consume:
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					// Channel closed, reconnect
					el.logger.Warn(ctx, fmt.Sprintf("Consumer channel closed for queue %s, reconnecting", queueName))
					time.Sleep(time.Second)
					break consume
				}
				handler.Handle(ctx, msg.Body)
				if err := msg.Ack(false); err != nil {
					el.logger.Exception(ctx, fmt.Sprintf("Failed to ack message on queue %s", queueName), err)
				}
			}
		}
	}
}
