package kafka

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler must return nil only when processing succeeded and the offset may
// be committed. Errors leave the message uncommitted for redelivery.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	topic   string
	group   string
	workers int
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	// FetchMessage + CommitMessages: offsets advance only after the handler
	// succeeds. ReadMessage would commit on fetch when a group id is set.
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  group,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, topic: topic, group: group, workers: workers}
}

// Start fetches messages and fans them out to a fixed worker pool. It blocks
// until ctx is cancelled or the reader fails.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	errs := make(chan error, c.workers)

	for i := 0; i < c.workers; i++ {
		go func() {
			for m := range jobs {
				if err := h(ctx, m); err != nil {
					errs <- err
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					errs <- err
				}
			}
		}()
	}

	log.Printf("consumer started topic=%s group=%s workers=%d", c.topic, c.group, c.workers)
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			close(jobs)
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			close(jobs)
			return nil
		}

		// drain worker errors without blocking the dispatcher
		select {
		case e := <-errs:
			log.Printf("consumer topic=%s: %v", c.topic, e)
			time.Sleep(200 * time.Millisecond)
		default:
		}
	}
}
