package consumer

import (
	"context"
	"hash/fnv"
	"log"
	"sync"

	"github.com/poddle/poddle/pkg/conn/amqp"
	"github.com/poddle/poddle/pkg/domain"
)

// Dispatcher fans deliveries out to a fixed ring of workers, routing by
// deployment id so that commands for one deployment are handled in
// arrival order while different deployments proceed in parallel.
type Dispatcher struct {
	logger  *log.Logger
	handler CommandHandler
	workers int
	mailbox int
}

func NewDispatcher(logger *log.Logger, handler CommandHandler, workers int, mailbox int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if mailbox < 1 {
		mailbox = 16
	}
	return &Dispatcher{
		logger:  logger,
		handler: handler,
		workers: workers,
		mailbox: mailbox,
	}
}

type item struct {
	env      domain.CommandEnvelope
	delivery amqp.Delivery
}

// Run consumes deliveries until the channel closes or ctx is done.
//
// Malformed envelopes are rejected without requeue right here; they
// would fail the same way on every redelivery. Everything else is
// routed to a worker, and acked or requeued by that worker's outcome.
func (d *Dispatcher) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	mailboxes := make([]chan item, d.workers)
	wg := sync.WaitGroup{}
	for i := range mailboxes {
		mailboxes[i] = make(chan item, d.mailbox)
		wg.Add(1)
		go func(mailbox <-chan item) {
			defer wg.Done()
			d.work(ctx, mailbox)
		}(mailboxes[i])
	}

	drain := func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case delivery, ok := <-deliveries:
				if !ok {
					return nil
				}

				env, err := domain.ParseEnvelope(delivery.Body)
				if err != nil {
					d.logger.Printf("dropping malformed command: %v", err)
					if rerr := delivery.Reject(false); rerr != nil {
						d.logger.Printf("rejecting malformed command: %v", rerr)
					}
					continue
				}

				select {
				case mailboxes[d.route(env.DeploymentId)] <- item{env: env, delivery: delivery}:
				case <-ctx.Done():
					// not taken by a worker; hand it back to the broker.
					if rerr := delivery.Nack(false, true); rerr != nil {
						d.logger.Printf("requeueing on shutdown: %v", rerr)
					}
					return ctx.Err()
				}
			}
		}
	}

	err := drain()
	for _, mailbox := range mailboxes {
		close(mailbox)
	}
	wg.Wait()
	return err
}

func (d *Dispatcher) work(ctx context.Context, mailbox <-chan item) {
	for it := range mailbox {
		switch d.handler.Handle(ctx, it.env) {
		case Ack:
			if err := it.delivery.Ack(false); err != nil {
				d.logger.Printf("acking %s %s: %v", it.env.Type, it.env.DeploymentId, err)
			}
		case Requeue:
			if err := it.delivery.Nack(false, true); err != nil {
				d.logger.Printf("requeueing %s %s: %v", it.env.Type, it.env.DeploymentId, err)
			}
		}
	}
}

func (d *Dispatcher) route(deploymentId string) int {
	h := fnv.New32a()
	h.Write([]byte(deploymentId))
	return int(h.Sum32() % uint32(d.workers))
}
