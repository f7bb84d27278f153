package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"pkt.systems/pslog"

	"github.com/iliyamo/club-table-reservation/internal/config"
)

// AMQPBus publishes and consumes table updates through a RabbitMQ fanout
// exchange.  Publishing and consuming use separate connections, both
// private to this instance, so a slow consumer never blocks publishers
// via connection-level flow control.
type AMQPBus struct {
	url        string
	exchange   string
	instanceID string
	logger     pslog.Logger

	pubMu     sync.Mutex
	pubConn   *amqp.Connection
	pubCh     *amqp.Channel
	reopening bool
	closed    bool

	subMu   sync.Mutex
	subConn *amqp.Connection

	closeOnce sync.Once
}

// ConnectAMQP dials the broker for publishing and consuming and declares
// the fanout exchange.  Connection establishment retries with jittered
// exponential backoff up to cfg.ConnectAttempts; running out of attempts
// is returned as an error so the caller can fail startup.
func ConnectAMQP(ctx context.Context, cfg config.BusConfig, instanceID string, logger pslog.Logger) (*AMQPBus, error) {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	b := &AMQPBus{
		url:        cfg.URL,
		exchange:   cfg.Exchange,
		instanceID: instanceID,
		logger:     logger,
	}
	pubConn, err := b.dialWithBackoff(ctx, cfg, "publish")
	if err != nil {
		return nil, err
	}
	subConn, err := b.dialWithBackoff(ctx, cfg, "consume")
	if err != nil {
		_ = pubConn.Close()
		return nil, err
	}
	b.pubConn, b.subConn = pubConn, subConn

	ch, conn, err := b.openPublishChannel(ctx, pubConn)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.pubConn, b.pubCh = conn, ch
	logger.Info("bus.connected", "exchange", b.exchange, "instance", instanceID)
	return b, nil
}

func (b *AMQPBus) dialWithBackoff(ctx context.Context, cfg config.BusConfig, role string) (*amqp.Connection, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.InitialBackoff
	eb.MaxInterval = cfg.MaxBackoff
	conn, err := backoff.Retry(ctx,
		func() (*amqp.Connection, error) { return b.dial(ctx, role) },
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(cfg.ConnectAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			b.logger.Warn("bus.dial.retry", "role", role, "error", err, "next", next.String())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("queue: connect %s after %d attempts: %w", role, cfg.ConnectAttempts, err)
	}
	return conn, nil
}

// dialTimeout bounds connect plus handshake when ctx carries no deadline.
const dialTimeout = 30 * time.Second

// dial connects and completes the AMQP handshake within ctx.  The TCP
// connect honours ctx and the handshake runs under ctx's deadline; the
// client clears that deadline once the connection is open.
func (b *AMQPBus) dial(ctx context.Context, role string) (*amqp.Connection, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(dialTimeout)
	}
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName("clubtables-" + b.instanceID + "-" + role)
	return amqp.DialConfig(b.url, amqp.Config{
		Heartbeat:  10 * time.Second,
		Locale:     "en_US",
		Properties: props,
		Dial: func(network, addr string) (net.Conn, error) {
			d := net.Dialer{Deadline: deadline}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if err := conn.SetDeadline(deadline); err != nil {
				_ = conn.Close()
				return nil, err
			}
			return conn, nil
		},
	})
}

func (b *AMQPBus) declareExchange(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(b.exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}

// openPublishChannel opens a channel on conn and declares the exchange.
// A nil or closed conn is redialled once within ctx; the connection the
// channel lives on is returned alongside it.
func (b *AMQPBus) openPublishChannel(ctx context.Context, conn *amqp.Connection) (*amqp.Channel, *amqp.Connection, error) {
	if conn == nil || conn.IsClosed() {
		var err error
		conn, err = b.dial(ctx, "publish")
		if err != nil {
			return nil, nil, fmt.Errorf("publish dial: %w", err)
		}
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	if err := b.declareExchange(ch); err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	return ch, conn, nil
}

// errReopening is returned to publishers that arrive while another
// publisher is re-establishing the channel.
var errReopening = errors.New("queue: publish channel reconnecting")

// publishChannel returns the open channel or makes one reopen attempt.
// pubMu is not held during the dial; concurrent publishers fail fast
// instead of queueing behind it.
func (b *AMQPBus) publishChannel(ctx context.Context) (*amqp.Channel, error) {
	b.pubMu.Lock()
	switch {
	case b.closed:
		b.pubMu.Unlock()
		return nil, ErrClosed
	case b.pubCh != nil && !b.pubCh.IsClosed():
		ch := b.pubCh
		b.pubMu.Unlock()
		return ch, nil
	case b.reopening:
		b.pubMu.Unlock()
		return nil, errReopening
	}
	b.reopening = true
	conn := b.pubConn
	b.pubMu.Unlock()

	ch, newConn, err := b.openPublishChannel(ctx, conn)

	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	b.reopening = false
	if err != nil {
		return nil, err
	}
	if b.closed {
		_ = newConn.Close()
		return nil, ErrClosed
	}
	if newConn != b.pubConn {
		if b.pubConn != nil {
			_ = b.pubConn.Close()
		}
		b.pubConn = newConn
	}
	b.pubCh = ch
	return ch, nil
}

// Publish implements Publisher.  Messages are transient: they are only
// useful to sessions connected right now.
func (b *AMQPBus) Publish(ctx context.Context, msg TableUpdated) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal table update: %w", err)
	}
	ch, err := b.publishChannel(ctx)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Timestamp:    time.Now().UTC(),
		AppId:        b.instanceID,
		Type:         string(msg.Type),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		b.exchange, // fanout exchange
		"",         // routing key ignored by fanout
		false,      // mandatory
		false,      // immediate
		pub,
	); err != nil {
		_ = ch.Close()
		b.pubMu.Lock()
		if b.pubCh == ch {
			b.pubCh = nil
		}
		b.pubMu.Unlock()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Subscribe implements Bus.  Each call declares a fresh server-named,
// exclusive, auto-delete queue bound to the exchange and consumes it with
// auto-ack.  A lost consuming connection is redialled once; retrying
// beyond that is the caller's job.
func (b *AMQPBus) Subscribe(ctx context.Context) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.subMu.Lock()
	defer b.subMu.Unlock()
	if b.subConn == nil || b.subConn.IsClosed() {
		conn, err := b.dial(ctx, "consume")
		if err != nil {
			return nil, fmt.Errorf("consume dial: %w", err)
		}
		b.subConn = conn
	}
	ch, err := b.subConn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	fail := func(err error) (Subscription, error) {
		_ = ch.Close()
		return nil, err
	}
	if err := b.declareExchange(ch); err != nil {
		return fail(err)
	}
	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fail(fmt.Errorf("queue declare: %w", err))
	}
	if err := ch.QueueBind(q.Name, "", b.exchange, false, nil); err != nil {
		return fail(fmt.Errorf("queue bind: %w", err))
	}
	deliveries, err := ch.Consume(q.Name, "clubtables-"+b.instanceID, true, true, false, false, nil)
	if err != nil {
		return fail(fmt.Errorf("queue consume: %w", err))
	}

	sub := &amqpSubscription{
		ch:     ch,
		out:    make(chan TableUpdated),
		done:   make(chan struct{}),
		logger: b.logger,
	}
	go sub.pump(deliveries)
	b.logger.Debug("bus.subscribed", "queue", q.Name)
	return sub, nil
}

// Close shuts both connections down, ending any open subscription.
func (b *AMQPBus) Close() error {
	b.closeOnce.Do(func() {
		b.pubMu.Lock()
		b.closed = true
		if b.pubConn != nil {
			_ = b.pubConn.Close()
		}
		b.pubMu.Unlock()
		b.subMu.Lock()
		if b.subConn != nil {
			_ = b.subConn.Close()
		}
		b.subMu.Unlock()
	})
	return nil
}

type amqpSubscription struct {
	ch        *amqp.Channel
	out       chan TableUpdated
	done      chan struct{}
	closeOnce sync.Once
	logger    pslog.Logger
}

func (s *amqpSubscription) Messages() <-chan TableUpdated { return s.out }

func (s *amqpSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.ch.Close()
	})
	return err
}

func (s *amqpSubscription) pump(deliveries <-chan amqp.Delivery) {
	defer close(s.out)
	for d := range deliveries {
		var msg TableUpdated
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			s.logger.Warn("bus.message.invalid", "error", err)
			continue
		}
		select {
		case s.out <- msg:
		case <-s.done:
			return
		}
	}
}
