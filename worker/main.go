package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/cfumo/irc-stats/internal/config"
	"github.com/cfumo/irc-stats/internal/dedupe"
	"github.com/cfumo/irc-stats/internal/logger"
	"github.com/cfumo/irc-stats/internal/models"
	"github.com/cfumo/irc-stats/internal/store"
	"github.com/cfumo/irc-stats/internal/textproc"
)

type spoolAppender interface {
	Append(msg models.Message) error
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	spool, err := store.OpenSpool(cfg.SpoolPath)
	if err != nil {
		log.Error("open spool", slog.Any("err", err))
		os.Exit(1)
	}
	defer spool.Close()

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // Disable auto-commit; manual commit only
	})
	defer reader.Close()

	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic + "_dlq",
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("spool", cfg.SpoolPath),
		slog.String("dlq_topic", cfg.KafkaTopic+"_dlq"),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(log, spool, cache, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			dlqMsg := kafka.Message{
				Value: msg.Value,
				Headers: append(msg.Headers,
					kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
					kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
					kafka.Header{Key: "error", Value: []byte(err.Error())},
					kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
				),
			}

			// Retry DLQ write with exponential backoff
			dlqSuccess := false
			for attempt := range 5 {
				if dlqErr := dlqWriter.WriteMessages(ctx, dlqMsg); dlqErr == nil {
					dlqSuccess = true
					log.Info("message sent to DLQ",
						slog.Int("partition", msg.Partition),
						slog.Int64("offset", msg.Offset),
						slog.Int("attempt", attempt+1),
					)
					break
				} else {
					backoff := time.Duration(1<<uint(attempt)) * time.Second
					log.Warn("DLQ write failed, retrying",
						slog.Any("err", dlqErr),
						slog.Int("attempt", attempt+1),
						slog.Duration("backoff", backoff),
					)
					select {
					case <-time.After(backoff):
					case <-ctx.Done():
						log.Info("context canceled during DLQ retry")
						return
					}
				}
			}

			// Only commit if DLQ write succeeded; otherwise skip commit and reprocess on restart
			if dlqSuccess {
				if err := reader.CommitMessages(ctx, msg); err != nil {
					log.Error("commit failed message to dlq", slog.Any("err", err))
				}
			} else {
				log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
			}
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// processMessage validates one chat payload and appends it to the spool.
// Bouncer scrollback replays arrive as exact duplicates, so the record hash
// is checked against the dedupe cache before anything is written.
func processMessage(log *slog.Logger, spool spoolAppender, cache *dedupe.Cache, msg kafka.Message) error {
	var payload models.Message
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return err
	}

	payload.Nick = strings.TrimSpace(payload.Nick)
	payload.Message = strings.TrimSpace(payload.Message)
	if payload.Nick == "" {
		return errors.New("empty nick")
	}
	if payload.Message == "" {
		return errors.New("empty message")
	}
	var id string
	if payload.Timestamp > 0 {
		id = textproc.RecordHash(payload.Nick, payload.Message, time.Unix(payload.Timestamp, 0))
	} else {
		// A wall-clock fill makes the hash unstable across redeliveries,
		// so these records get a random id and skip dedupe.
		payload.Timestamp = time.Now().Unix()
		id = uuid.NewString()
	}

	if cache.IsSeen(id) {
		log.Debug("duplicate line", slog.String("id", id))
		return nil
	}

	if err := spool.Append(payload); err != nil {
		return err
	}

	cache.MarkSeen(id)
	log.Info("spooled line", slog.String("id", id), slog.String("nick", payload.Nick))
	return nil
}
