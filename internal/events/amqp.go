package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"booking-engine/internal/booking"
)

var errPublisherClosed = errors.New("rabbitmq publisher closed")

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	Close() error
}

// amqpSession is one connection and the channel opened on it.
type amqpSession struct {
	ch   amqpChannel
	conn io.Closer
}

type amqpDialer func(url, exchange string) (amqpSession, error)

// AMQPPublisher publishes events to a durable topic exchange, routed by event
// name. A closed channel or connection is redialed on the next publish.
type AMQPPublisher struct {
	url      string
	exchange string
	dial     amqpDialer

	mu     sync.Mutex
	sess   amqpSession
	closed chan *amqp.Error
	shut   bool
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, exchange: exchange, dial: dialAMQP}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func dialAMQP(url, exchange string) (amqpSession, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return amqpSession{}, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return amqpSession{}, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return amqpSession{}, fmt.Errorf("rabbitmq declare exchange %s: %w", exchange, err)
	}
	return amqpSession{ch: ch, conn: conn}, nil
}

// connect dials a fresh session. Callers hold mu, except the constructor.
func (p *AMQPPublisher) connect() error {
	sess, err := p.dial(p.url, p.exchange)
	if err != nil {
		return err
	}
	p.sess = sess
	// Closing the connection closes its channels, so one notification covers both.
	p.closed = sess.ch.NotifyClose(make(chan *amqp.Error, 1))
	return nil
}

// healthy reports whether the current channel is still open.
func (p *AMQPPublisher) healthy() bool {
	if p.sess.ch == nil {
		return false
	}
	select {
	case <-p.closed:
		return false
	default:
		return true
	}
}

func (p *AMQPPublisher) drop() {
	if p.sess.ch != nil {
		_ = p.sess.ch.Close()
	}
	if p.sess.conn != nil {
		_ = p.sess.conn.Close()
	}
	p.sess = amqpSession{}
}

func (p *AMQPPublisher) Emit(ctx context.Context, ev booking.Event) error {
	body, err := Encode(ev)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Name),
		Body:         body,
	}

	// amqp channels are not safe for concurrent publishes.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shut {
		return errPublisherClosed
	}
	for attempt := 0; attempt < 2; attempt++ {
		if !p.healthy() {
			p.drop()
			if err = p.connect(); err != nil {
				return fmt.Errorf("rabbitmq reconnect: %w", err)
			}
		}
		err = p.sess.ch.PublishWithContext(ctx, p.exchange, string(ev.Name), false, false, msg)
		if !errors.Is(err, amqp.ErrClosed) {
			break
		}
		p.drop()
	}
	if err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", ev.Name, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shut = true
	var err error
	if p.sess.ch != nil {
		err = p.sess.ch.Close()
	}
	if p.sess.conn != nil {
		if cerr := p.sess.conn.Close(); err == nil {
			err = cerr
		}
	}
	p.sess = amqpSession{}
	return err
}
