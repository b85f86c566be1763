package refresh

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// Notifier announces new data-feed versions; the data pipeline (or an
// operator, through cmd/refresh-notify) calls it after publishing a feed.
type Notifier struct {
	prod  sarama.SyncProducer
	topic string
	now   func() time.Time
}

func NewNotifier(brokers []string, topic string) (*Notifier, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("refresh notifier: %w", err)
	}
	return newNotifier(prod, topic), nil
}

func newNotifier(prod sarama.SyncProducer, topic string) *Notifier {
	if topic == "" {
		topic = Config{}.withDefaults().Topic
	}
	return &Notifier{prod: prod, topic: topic, now: time.Now}
}

// Notify sends one event keyed by dataset so a dataset's events stay ordered
// within one partition.
func (n *Notifier) Notify(dataset string, seq uint64, ids ...string) (partition int32, offset int64, err error) {
	ev := Event{Version: 1, Dataset: dataset, Seq: seq, TS: n.now().UTC(), IDs: ids}
	if err := ev.Validate(); err != nil {
		return 0, 0, fmt.Errorf("refresh event: %w", err)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return 0, 0, err
	}
	return n.prod.SendMessage(&sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(dataset),
		Value: sarama.ByteEncoder(b),
	})
}

func (n *Notifier) Close() error { return n.prod.Close() }
