package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rookgm/brewtrack/internal/models"
	"github.com/rookgm/brewtrack/internal/session"
	"go.uber.org/zap"
)

// Exchange is the fanout exchange changes are broadcast on
const Exchange = "brewtrack.changes"

const (
	tapBuffer      = 256
	publishTimeout = 5 * time.Second
)

func declareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		Exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
}

// AMQPBridge republishes hub changes to the broker so other processes can subscribe
type AMQPBridge struct {
	url string
	hub *Hub
	log *zap.Logger
}

// NewAMQPBridge creates new AMQPBridge instance
func NewAMQPBridge(url string, hub *Hub, log *zap.Logger) *AMQPBridge {
	return &AMQPBridge{url: url, hub: hub, log: log}
}

// Run publishes until ctx is done
func (b *AMQPBridge) Run(ctx context.Context) error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := declareExchange(ch); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	changes, release := b.hub.Tap(tapBuffer)
	defer release()

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	b.log.Info("bridging changes to broker", zap.String("exchange", Exchange))

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr, ok := <-closed:
			if !ok {
				return nil
			}
			return fmt.Errorf("broker connection closed: %w", amqpErr)
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			if err := b.publish(ctx, ch, c); err != nil {
				b.log.Warn("publish change", zap.String("order", c.OrderID), zap.Error(err))
			}
		}
	}
}

func (b *AMQPBridge) publish(ctx context.Context, ch *amqp.Channel, c models.Change) error {
	body, err := json.Marshal(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(ctx,
		Exchange, // exchange
		"",       // routing key
		false,    // mandatory
		false,    // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		})
}

// AMQPFeed subscribes to changes broadcast by a server's AMQPBridge
type AMQPFeed struct {
	conn *amqp.Connection
	log  *zap.Logger
}

// NewAMQPFeed connects to the broker
func NewAMQPFeed(url string, log *zap.Logger) (*AMQPFeed, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	return &AMQPFeed{conn: conn, log: log}, nil
}

// Close closes broker connection
func (f *AMQPFeed) Close() error {
	return f.conn.Close()
}

type amqpSubscription struct {
	ch     *amqp.Channel
	out    chan models.Change
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *amqpSubscription) Changes() <-chan models.Change {
	return s.out
}

func (s *amqpSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.ch.Close()
		<-s.done
	})
	return err
}

// Subscribe binds an exclusive queue to the exchange and forwards changes matching scope
func (f *AMQPFeed) Subscribe(ctx context.Context, scope models.Scope) (session.Subscription, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	ch, err := f.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareExchange(ch); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", Exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("consume: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &amqpSubscription{
		ch:     ch,
		out:    make(chan models.Change, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		defer close(sub.out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				var c models.Change
				if err := json.Unmarshal(d.Body, &c); err != nil {
					f.log.Warn("bad change message", zap.Error(err))
					continue
				}
				if !scope.Matches(c) {
					continue
				}
				select {
				case sub.out <- c:
				default:
				}
			}
		}
	}()

	return sub, nil
}
