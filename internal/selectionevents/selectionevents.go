// Package selectionevents publishes map selections to Kafka for analytics.
package selectionevents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/county-overlay/internal/core/observability"
)

type Event struct {
	Session string    `json:"session"`
	GeoID   string    `json:"geoid"`
	Name    string    `json:"name,omitempty"`
	Lng     float64   `json:"lng"`
	Lat     float64   `json:"lat"`
	Mode    string    `json:"mode,omitempty"`
	TS      time.Time `json:"ts"`
}

// Sink is what sessions publish to; Nop when analytics are off.
type Sink interface {
	Publish(Event)
}

type Nop struct{}

func (Nop) Publish(Event) {}

type Publisher struct {
	topic   string
	log     *slog.Logger
	events  chan Event
	prod    sarama.AsyncProducer
	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
	errDone chan struct{}
}

func NewPublisher(brokers []string, topic string, queueSize int, log *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("selectionevents: create async producer: %w", err)
	}
	return newPublisher(prod, topic, queueSize, log), nil
}

func newPublisher(prod sarama.AsyncProducer, topic string, queueSize int, log *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Publisher{
		topic:   topic,
		log:     log,
		events:  make(chan Event, queueSize),
		prod:    prod,
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Error("selection event marshal", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.GeoID),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		defer close(p.errDone)
		for err := range p.prod.Errors() {
			if err != nil {
				p.log.Warn("selection event producer error", "err", err)
			}
		}
	}()

	return p
}

// Publish never blocks; events are dropped when the queue is full or the
// publisher is closed.
func (p *Publisher) Publish(ev Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
		observability.IncSelectionEventDropped()
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()
	<-p.stopped

	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("selectionevents: close producer: %w", err)
	}
	<-p.errDone
	return nil
}
