package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/llm-service/internal/broker"
	"github.com/magabrotheeeer/llm-service/internal/config"
	"github.com/magabrotheeeer/llm-service/internal/models"
)

type stubInference struct {
	answer string
	err    error
	calls  int
}

func (s *stubInference) Complete(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.answer, s.err
}

func setupWorkerTest(t *testing.T, client InferenceClient) (*WorkerService, *broker.Broker) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	b, err := broker.New(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	worker := NewWorkerService(b, client, logger, 10*time.Millisecond)
	return worker, b
}

// awaitReply подписывается на канал ответов сообщения и ждёт ReplyItem.
func awaitReply(t *testing.T, b *broker.Broker, messageID int64) <-chan models.ReplyItem {
	sub, err := b.Subscribe(context.Background(), broker.ReplyChannel(messageID))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	out := make(chan models.ReplyItem, 1)
	go func() {
		select {
		case m, ok := <-sub.Messages():
			if !ok {
				return
			}
			var reply models.ReplyItem
			if err := json.Unmarshal([]byte(m.Payload), &reply); err != nil {
				return
			}
			out <- reply
		case <-time.After(5 * time.Second):
		}
	}()
	return out
}

func TestRun_AnswersWorkItem(t *testing.T) {
	client := &stubInference{answer: "model answer"}
	worker, b := setupWorkerTest(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()
	// даём воркеру подписаться на канал работ
	time.Sleep(50 * time.Millisecond)

	replies := awaitReply(t, b, 1)
	work := models.WorkItem{MessageID: 1, Content: "prompt"}
	require.NoError(t, b.Publish(ctx, broker.WorkChannel, work))

	select {
	case reply := <-replies:
		assert.Equal(t, int64(1), reply.MessageID)
		assert.Equal(t, "model answer", reply.Response)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply published")
	}

	// ответ продублирован в KV для опроса диспетчером
	var stored models.ReplyItem
	found, err := b.Get(ctx, broker.AnswerKey(1), &stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "model answer", stored.Response)

	cancel()
	assert.NoError(t, <-done)
}

func TestRun_InferenceErrorYieldsSafeText(t *testing.T) {
	client := &stubInference{err: errors.New("backend exploded")}
	worker, b := setupWorkerTest(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	replies := awaitReply(t, b, 7)
	require.NoError(t, b.Publish(ctx, broker.WorkChannel, models.WorkItem{MessageID: 7, Content: "prompt"}))

	select {
	case reply := <-replies:
		assert.Equal(t, safeErrorText, reply.Response)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply published")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestRun_MalformedWorkItemDoesNotStopLoop(t *testing.T) {
	client := &stubInference{answer: "still alive"}
	worker, b := setupWorkerTest(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, b.Publish(ctx, broker.WorkChannel, "not-a-work-item"))

	replies := awaitReply(t, b, 2)
	require.NoError(t, b.Publish(ctx, broker.WorkChannel, models.WorkItem{MessageID: 2, Content: "prompt"}))

	select {
	case reply := <-replies:
		assert.Equal(t, "still alive", reply.Response)
	case <-time.After(5 * time.Second):
		t.Fatal("worker stopped after malformed item")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	worker, _ := setupWorkerTest(t, &stubInference{answer: "x"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
