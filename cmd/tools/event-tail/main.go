package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/annel0/game-hub/internal/eventbus"
)

const timeFormat = "2006-01-02T15:04:05Z"

func main() {
	var (
		natsURL = flag.String("nats", envOr("NATS_URL", "nats://localhost:4222"), "NATS server URL")
		stream  = flag.String("stream", "CONTENT", "JetStream stream name")
		kinds   = flag.String("kinds", "", "Document kinds filter (comma-separated: game,genre,news,review)")
		actors  = flag.String("actors", "", "Actor usernames filter (comma-separated)")
		limit   = flag.Int("limit", 0, "Exit after this many events (0 = follow forever)")
		raw     = flag.Bool("json", false, "Print raw JSON envelopes")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 0)
	if err != nil {
		log.Fatalf("connect %s: %v", *natsURL, err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f := tailFilter{kinds: parseStringList(*kinds), actors: parseStringList(*actors)}
	var seen int64
	sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: []string{eventbus.ContentEventType}}, func(_ context.Context, env *eventbus.Envelope) {
		line, ok := f.format(env, *raw)
		if !ok {
			return
		}
		fmt.Println(line)
		if *limit > 0 && atomic.AddInt64(&seen, 1) >= int64(*limit) {
			stop()
		}
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	fmt.Fprintf(os.Stderr, "tailing %s on %s\n", eventbus.Subject(eventbus.ContentEventType), *natsURL)
	<-ctx.Done()
}

type tailFilter struct {
	kinds  []string
	actors []string
}

// format renders env as one line, or reports false when the filter
// rejects it.
func (f tailFilter) format(env *eventbus.Envelope, raw bool) (string, bool) {
	ev, err := eventbus.DecodeContent(env)
	if err != nil {
		return fmt.Sprintf("! %s undecodable: %v", env.ID, err), true
	}
	if !contains(f.kinds, ev.Kind) || !contains(f.actors, ev.Actor) {
		return "", false
	}
	if raw {
		return fmt.Sprintf(`{"id":%q,"timestamp":%q,"source":%q,"event_type":%q,"payload":%s}`,
			env.ID, env.Timestamp.UTC().Format(time.RFC3339Nano), env.Source, env.EventType, env.Payload), true
	}
	return fmt.Sprintf("%s  %-7s %-6s %s  by %s",
		env.Timestamp.UTC().Format(timeFormat), ev.Action, ev.Kind, ev.DocumentID, ev.Actor), true
}

// contains treats an empty list as "match everything".
func contains(list []string, v string) bool {
	if len(list) == 0 {
		return true
	}
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
