// Command transcriptviewer tails the Mina transcript topics and prints
// events as they arrive. Handy for watching a live session end to end
// when Kafka publishing is enabled.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"mina/internal/models"
)

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func tailTopic(ctx context.Context, wg *sync.WaitGroup, brokers []string, topic string, since time.Duration) {
	defer wg.Done()

	// Partition reader without a consumer group; works through a
	// port-forward and needs no group coordination for a viewer.
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, time.Now().Add(-since)); err != nil {
		log.Printf("Failed to seek on %s: %v", topic, err)
	}

	log.Printf("Tailing %s (from %s ago)", topic, since)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Kafka read error on %s: %v", topic, err)
			time.Sleep(time.Second)
			continue
		}
		printEvent(msg.Value)
	}
}

func printEvent(payload []byte) {
	var probe struct {
		EventType string `json:"eventType"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		log.Printf("Unparseable event: %s", payload)
		return
	}

	switch probe.EventType {
	case models.EventTypeInterim:
		var ev models.TranscriptInterim
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.Printf("Bad interim event: %v", err)
			return
		}
		log.Printf("  ~ [%s/%s] %s (conf=%.2f)",
			ev.SessionID, ev.SegmentID, truncate(ev.Text, 60), ev.Confidence)

	case models.EventTypeFinal:
		var ev models.TranscriptFinal
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.Printf("Bad final event: %v", err)
			return
		}
		log.Printf("  * [%s/%s] %s (reason=%s conf=%.2f)",
			ev.SessionID, ev.SegmentID, truncate(ev.Text, 60), ev.Reason, ev.Confidence)

	default:
		log.Printf("Unknown event type %q: %s", probe.EventType, truncate(string(payload), 120))
	}
}

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicInterim := flag.String("topic-interim", "mina.transcript.interim", "Interim transcript topic")
	topicFinal := flag.String("topic-final", "mina.transcript.final", "Final transcript topic")
	since := flag.Duration("since", time.Hour, "How far back to start reading")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	brokerList := strings.Split(*brokers, ",")

	var wg sync.WaitGroup
	wg.Add(2)
	go tailTopic(ctx, &wg, brokerList, *topicInterim, *since)
	go tailTopic(ctx, &wg, brokerList, *topicFinal, *since)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	wg.Wait()
}
