package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/bookcore/internal/logging"
	"github.com/iliyamo/bookcore/internal/queue"
)

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, queue.Event) error {
	p.calls++
	return errors.New("rabbitmq dial: connection refused")
}

func TestPublishFailureLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	p := &failingPublisher{}

	publish(context.Background(), p, log, queue.Event{Type: queue.LoanReturned})

	assert.Equal(t, 1, p.calls)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if assert.Len(t, lines, 1) {
		assert.Contains(t, lines[0], `"msg":"event publish failed"`)
		assert.Contains(t, lines[0], "rabbitmq dial")
	}
}

func TestPublishNilPublisher(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	publish(context.Background(), nil, log, queue.Event{Type: queue.LoanReturned})
	assert.Empty(t, buf.String())
}
