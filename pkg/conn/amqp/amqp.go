// Package amqp carries deployment commands over a durable broker queue.
package amqp

import (
	"context"
	"encoding/json"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/poddle/poddle/pkg/domain"
	xe "github.com/poddle/poddle/pkg/errors"
)

// CommandQueue is the single queue all deployment commands travel on.
const CommandQueue = "compute.commands"

type Delivery = amqp091.Delivery

// Sender enqueues commands. Billing uses this to suspend debtors.
type Sender interface {
	SendCommand(ctx context.Context, env domain.CommandEnvelope) error
}

// Queue is a connected command channel.
//
// Deliveries from Consume must be acked or rejected by the caller;
// nothing is acknowledged automatically.
type Queue interface {
	Sender
	Consume(ctx context.Context) (<-chan Delivery, error)
	Close() error
}

type queue struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// Connect dials the broker and declares the durable command queue.
func Connect(url string, prefetch int) (Queue, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, xe.Wrap(err)
	}
	if _, err := channel.QueueDeclare(
		CommandQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		conn.Close()
		return nil, xe.Wrap(err)
	}
	if err := channel.Qos(prefetch, 0, false); err != nil {
		conn.Close()
		return nil, xe.Wrap(err)
	}
	return &queue{conn: conn, channel: channel}, nil
}

func (q *queue) SendCommand(ctx context.Context, env domain.CommandEnvelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return xe.Wrap(err)
	}
	err = q.channel.PublishWithContext(
		ctx,
		"",           // default exchange
		CommandQueue, // routing key = queue
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return xe.Wrap(err)
	}
	return nil
}

func (q *queue) Consume(ctx context.Context) (<-chan Delivery, error) {
	deliveries, err := q.channel.ConsumeWithContext(
		ctx,
		CommandQueue,
		"",    // let the broker name the consumer
		false, // manual ack
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return deliveries, nil
}

func (q *queue) Close() error {
	return q.conn.Close()
}
