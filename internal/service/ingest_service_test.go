package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-orchestrator-be/internal/apperror"
	"ai-orchestrator-be/internal/event"
)

func newIngestFixture(bufferSize int, pushTimeout time.Duration) (IIngestService, *fakeBus) {
	bus := newFakeBus()
	svc := NewIngestService(
		fakeSTTAdapter{},
		bus,
		nopLogger{},
		bufferSize,
		pushTimeout,
		2*time.Second,
	)
	return svc, bus
}

func TestUtteranceLifecycle(t *testing.T) {
	svc, bus := newIngestFixture(8, time.Second)
	sessionId := uuid.New()
	ctx := context.Background()

	require.NoError(t, svc.BeginUtterance(ctx, sessionId))
	require.NoError(t, svc.PushAudio(sessionId, []byte("hello ")))
	require.NoError(t, svc.PushAudio(sessionId, []byte("world")))

	transcript, err := svc.EndUtterance(ctx, sessionId)
	require.NoError(t, err)
	assert.Equal(t, "hello world", transcript)

	types := bus.typesFor(sessionId)
	assert.Contains(t, types, event.TypeTranscriptPartial)
	assert.Contains(t, types, event.TypeTranscriptFinal)

	// The final on the bus matches what the caller got back.
	for _, ev := range bus.published(sessionId) {
		if final, ok := ev.(event.TranscriptFinal); ok {
			assert.Equal(t, "hello world", final.Text)
		}
	}
}

func TestBeginUtteranceReplacesOpenStream(t *testing.T) {
	svc, _ := newIngestFixture(8, time.Second)
	sessionId := uuid.New()
	ctx := context.Background()

	require.NoError(t, svc.BeginUtterance(ctx, sessionId))
	require.NoError(t, svc.PushAudio(sessionId, []byte("stale")))

	// A second begin tears the old stream down and starts fresh.
	require.NoError(t, svc.BeginUtterance(ctx, sessionId))
	require.NoError(t, svc.PushAudio(sessionId, []byte("fresh")))

	transcript, err := svc.EndUtterance(ctx, sessionId)
	require.NoError(t, err)
	assert.Equal(t, "fresh", transcript)
}

func TestEndUtteranceWithoutAudioPublishesEmptyFinal(t *testing.T) {
	svc, bus := newIngestFixture(8, time.Second)
	sessionId := uuid.New()
	ctx := context.Background()

	require.NoError(t, svc.BeginUtterance(ctx, sessionId))

	transcript, err := svc.EndUtterance(ctx, sessionId)
	require.NoError(t, err)
	assert.Empty(t, transcript)

	// Subscribers still see the utterance close.
	assert.Contains(t, bus.typesFor(sessionId), event.TypeTranscriptFinal)
}

func TestPushWithoutUtteranceIsDropped(t *testing.T) {
	svc, _ := newIngestFixture(8, time.Second)

	assert.NoError(t, svc.PushAudio(uuid.New(), []byte("audio")))
}

func TestEndWithoutUtterance(t *testing.T) {
	svc, _ := newIngestFixture(8, time.Second)

	_, err := svc.EndUtterance(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindProtocolViolation))
}

func TestPushAudioBackpressure(t *testing.T) {
	bus := newFakeBus()
	svc := NewIngestService(
		blockingSTTAdapter{},
		bus,
		nopLogger{},
		0, // unbuffered: first push must time out
		50*time.Millisecond,
		time.Second,
	)
	sessionId := uuid.New()

	require.NoError(t, svc.BeginUtterance(context.Background(), sessionId))
	defer svc.Abort(sessionId)

	err := svc.PushAudio(sessionId, []byte("audio"))
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindOverloaded))
}

func TestAbortDropsStream(t *testing.T) {
	svc, _ := newIngestFixture(8, time.Second)
	sessionId := uuid.New()
	ctx := context.Background()

	require.NoError(t, svc.BeginUtterance(ctx, sessionId))
	svc.Abort(sessionId)

	// Audio after the abort falls into the drop-with-warning path.
	assert.NoError(t, svc.PushAudio(sessionId, []byte("audio")))

	_, err := svc.EndUtterance(ctx, sessionId)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindProtocolViolation))

	// Begin works again after an abort.
	require.NoError(t, svc.BeginUtterance(ctx, sessionId))
	svc.Abort(sessionId)
}
