package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-orchestrator-be/internal/apperror"
	"ai-orchestrator-be/internal/constant"
	"ai-orchestrator-be/internal/dto"
	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/serverutils"
	"ai-orchestrator-be/internal/repository/memory"
)

const testSecret = "test-secret"

func newRegistryFixture() (IRegistryService, *fakeUnitOfWork, *memory.StateRepository, *fakeShortTermStore) {
	uow := newFakeUnitOfWork()
	stateRepo := memory.NewStateRepository()
	shortTerm := newFakeShortTermStore(10)
	svc := NewRegistryService(
		&fakeFactory{uow: uow},
		stateRepo,
		shortTerm,
		nil,
		nopLogger{},
		testSecret,
		15*time.Minute,
	)
	return svc, uow, stateRepo, shortTerm
}

func TestCreateSessionDefaults(t *testing.T) {
	svc, uow, _, _ := newRegistryFixture()
	userId := uuid.New()

	res, err := svc.CreateSession(context.Background(), userId, &dto.CreateSessionRequest{})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, res.SessionId)
	require.NotEmpty(t, res.ConnectionToken)

	stored := uow.sessionRepo.sessions[res.SessionId]
	require.NotNil(t, stored)
	assert.Equal(t, constant.SessionStatusActive, stored.Status)
	assert.Equal(t, "Assistant", stored.Persona.Name)
	assert.Equal(t, "friendly", stored.Persona.Style)
	assert.True(t, stored.Capabilities.Transcription)
	assert.True(t, stored.Capabilities.Generation)
	assert.True(t, stored.Capabilities.Synthesis)
}

func TestCreateSessionCustomPersona(t *testing.T) {
	svc, _, _, _ := newRegistryFixture()
	userId := uuid.New()

	res, err := svc.CreateSession(context.Background(), userId, &dto.CreateSessionRequest{
		Persona: &dto.PersonaPayload{Name: "Nova", Style: "sardonic"},
		Capabilities: &dto.CapabilitiesPayload{
			Transcription: true,
			Generation:    true,
			Synthesis:     false,
		},
	})
	require.NoError(t, err)

	state, err := svc.GetState(context.Background(), userId, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, "Nova", state.Persona.Name)
	assert.Equal(t, "sardonic", state.Persona.Style)
	assert.False(t, state.Capabilities.Synthesis)
}

func TestCreateSessionTokenIsSessionScoped(t *testing.T) {
	svc, _, _, _ := newRegistryFixture()
	userId := uuid.New()

	res, err := svc.CreateSession(context.Background(), userId, nil)
	require.NoError(t, err)

	claims, err := serverutils.VerifyConnectionToken(testSecret, res.ConnectionToken)
	require.NoError(t, err)
	assert.Equal(t, userId, claims.UserId)
	assert.Equal(t, res.SessionId, claims.SessionId)
}

func TestGetStateRejectsForeignSession(t *testing.T) {
	svc, _, _, _ := newRegistryFixture()

	res, err := svc.CreateSession(context.Background(), uuid.New(), nil)
	require.NoError(t, err)

	_, err = svc.GetState(context.Background(), uuid.New(), res.SessionId)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestUpdateStateMergesFields(t *testing.T) {
	svc, uow, _, _ := newRegistryFixture()
	userId := uuid.New()
	ctx := context.Background()

	res, err := svc.CreateSession(ctx, userId, nil)
	require.NoError(t, err)

	// Only the persona is replaced; capabilities keep their defaults.
	updated, err := svc.UpdateState(ctx, userId, res.SessionId, &dto.UpdateSessionStateRequest{
		Persona: &dto.PersonaPayload{Name: "Nova", Style: "dry"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Nova", updated.Persona.Name)
	assert.True(t, updated.Capabilities.Synthesis)

	// The merge writes through to the durable row.
	stored := uow.sessionRepo.sessions[res.SessionId]
	assert.Equal(t, "Nova", stored.Persona.Name)
	assert.Equal(t, "dry", stored.Persona.Style)

	state, err := svc.GetState(ctx, userId, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, "Nova", state.Persona.Name)
}

func TestUpdateStateRejectsForeignSession(t *testing.T) {
	svc, _, _, _ := newRegistryFixture()

	res, err := svc.CreateSession(context.Background(), uuid.New(), nil)
	require.NoError(t, err)

	_, err = svc.UpdateState(context.Background(), uuid.New(), res.SessionId, &dto.UpdateSessionStateRequest{
		Capabilities: &dto.CapabilitiesPayload{},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestTerminateSession(t *testing.T) {
	svc, uow, stateRepo, shortTerm := newRegistryFixture()
	userId := uuid.New()
	ctx := context.Background()

	res, err := svc.CreateSession(ctx, userId, nil)
	require.NoError(t, err)
	require.NoError(t, shortTerm.Push(ctx, res.SessionId, entity.ShortTermEntry{Role: "user", Text: "hi"}))

	require.NoError(t, svc.Terminate(ctx, userId, res.SessionId))

	// Terminating again is a no-op, not an error.
	require.NoError(t, svc.Terminate(ctx, userId, res.SessionId))

	assert.Equal(t, constant.SessionStatusTerminated, uow.sessionRepo.sessions[res.SessionId].Status)

	// The cached projection flips to terminated rather than vanishing.
	cached, ok := stateRepo.Get(res.SessionId)
	require.True(t, ok)
	assert.Equal(t, constant.SessionStatusTerminated, cached.Status)

	// State queries keep answering for terminated sessions.
	got, err := svc.GetState(ctx, userId, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, constant.SessionStatusTerminated, got.Status)

	window, err := shortTerm.Window(ctx, res.SessionId)
	require.NoError(t, err)
	assert.Empty(t, window)

	// Terminated sessions cannot be resolved for new connections.
	_, err = svc.Resolve(ctx, res.SessionId)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestGetStateSurvivesCacheEviction(t *testing.T) {
	svc, _, stateRepo, _ := newRegistryFixture()
	userId := uuid.New()
	ctx := context.Background()

	res, err := svc.CreateSession(ctx, userId, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Terminate(ctx, userId, res.SessionId))

	// Even after eviction the durable row answers with the final status.
	stateRepo.Delete(res.SessionId)

	got, err := svc.GetState(ctx, userId, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, constant.SessionStatusTerminated, got.Status)
}

func TestResolveRebuildsEvictedState(t *testing.T) {
	svc, _, stateRepo, _ := newRegistryFixture()
	userId := uuid.New()
	ctx := context.Background()

	res, err := svc.CreateSession(ctx, userId, &dto.CreateSessionRequest{
		Persona: &dto.PersonaPayload{Name: "Nova", Style: "dry"},
	})
	require.NoError(t, err)

	// Simulate cache eviction.
	stateRepo.Delete(res.SessionId)

	state, err := svc.Resolve(ctx, res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, "Nova", state.Persona.Name)
	assert.Equal(t, constant.SessionStatusActive, state.Status)
	assert.Empty(t, state.MessageQueue)
}

func TestAppendOutboundCapsQueue(t *testing.T) {
	svc, _, stateRepo, _ := newRegistryFixture()
	ctx := context.Background()

	res, err := svc.CreateSession(ctx, uuid.New(), nil)
	require.NoError(t, err)

	for i := 0; i < messageQueueCap+10; i++ {
		svc.AppendOutbound(ctx, res.SessionId, "payload")
	}

	state, ok := stateRepo.Get(res.SessionId)
	require.True(t, ok)
	assert.Len(t, state.MessageQueue, messageQueueCap)
}
