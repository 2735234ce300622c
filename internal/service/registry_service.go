package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-orchestrator-be/internal/apperror"
	"ai-orchestrator-be/internal/constant"
	"ai-orchestrator-be/internal/dto"
	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/internal/pkg/serverutils"
	"ai-orchestrator-be/internal/repository/contract"
	"ai-orchestrator-be/internal/repository/memory"
	"ai-orchestrator-be/internal/repository/specification"
	"ai-orchestrator-be/internal/repository/unitofwork"
	"ai-orchestrator-be/pkg/nats"
)

// messageQueueCap bounds the per-session outbound message history kept in the
// state projection.
const messageQueueCap = 10

type IRegistryService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetState(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionStateResponse, error)
	// UpdateState merges the provided fields into the session state. The
	// merge writes through to the durable row and the cached projection.
	UpdateState(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.UpdateSessionStateRequest) (*dto.SessionStateResponse, error)
	Terminate(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error

	// Resolve loads the live state for a session, rebuilding the cached
	// projection from the database if it was evicted. Only active sessions
	// resolve; anything else is NotFound.
	Resolve(ctx context.Context, sessionId uuid.UUID) (*entity.SessionState, error)
	// AppendOutbound records a raw outbound payload on the session's message
	// queue projection.
	AppendOutbound(ctx context.Context, sessionId uuid.UUID, raw string)
}

type registryService struct {
	uowFactory    unitofwork.RepositoryFactory
	stateRepo     *memory.StateRepository
	shortTermRepo contract.ShortTermStore
	publisher     *nats.Publisher
	log           logger.ILogger

	jwtSecret string
	tokenTTL  time.Duration

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewRegistryService(
	uowFactory unitofwork.RepositoryFactory,
	stateRepo *memory.StateRepository,
	shortTermRepo contract.ShortTermStore,
	publisher *nats.Publisher,
	log logger.ILogger,
	jwtSecret string,
	tokenTTL time.Duration,
) IRegistryService {
	return &registryService{
		uowFactory:    uowFactory,
		stateRepo:     stateRepo,
		shortTermRepo: shortTermRepo,
		publisher:     publisher,
		log:           log,
		jwtSecret:     jwtSecret,
		tokenTTL:      tokenTTL,
		locks:         map[uuid.UUID]*sync.Mutex{},
	}
}

// lockFor serializes read-modify-write cycles on one session's projection.
func (s *registryService) lockFor(sessionId uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[sessionId]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[sessionId] = l
	return l
}

func (s *registryService) dropLock(sessionId uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, sessionId)
}

func (s *registryService) CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	state := entity.DefaultSessionState()
	if req != nil && req.Persona != nil {
		state.Persona = entity.Persona{
			Name:  req.Persona.Name,
			Style: req.Persona.Style,
		}
	}
	if req != nil && req.Capabilities != nil {
		state.Capabilities = entity.Capabilities{
			Transcription: req.Capabilities.Transcription,
			Generation:    req.Capabilities.Generation,
			Synthesis:     req.Capabilities.Synthesis,
		}
	}

	session := entity.Session{
		Id:           uuid.New(),
		UserId:       userId,
		Status:       constant.SessionStatusActive,
		Persona:      state.Persona,
		Capabilities: state.Capabilities,
		CreatedAt:    time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.SessionRepository().Create(ctx, &session); err != nil {
		return nil, apperror.PersistenceError("Failed to create session", err)
	}

	s.stateRepo.Save(session.Id, state)

	token, err := serverutils.GenerateConnectionToken(s.jwtSecret, userId, session.Id, s.tokenTTL)
	if err != nil {
		return nil, apperror.AuthFailure("Failed to issue connection token")
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, "session.created", map[string]interface{}{
			"session_id": session.Id.String(),
			"user_id":    userId.String(),
		}); err != nil {
			s.log.Warn("Registry", "Failed to publish lifecycle event", map[string]interface{}{
				"session_id": session.Id.String(),
				"error":      err.Error(),
			})
		}
	}

	s.log.Info("Registry", "Session created", map[string]interface{}{
		"session_id": session.Id.String(),
		"user_id":    userId.String(),
	})

	return &dto.CreateSessionResponse{
		SessionId:       session.Id,
		ConnectionToken: token,
		ExpiresAt:       time.Now().Add(s.tokenTTL),
	}, nil
}

func (s *registryService) findOwnedSession(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID) (*entity.Session, error) {
	session, err := uow.SessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, apperror.PersistenceError("Failed to load session", err)
	}
	if session == nil {
		return nil, apperror.NotFound("Session not found")
	}
	return session, nil
}

func (s *registryService) GetState(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionStateResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.findOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	// Unlike Resolve, terminated sessions stay observable here.
	lock := s.lockFor(sessionId)
	lock.Lock()
	state, ok := s.stateRepo.Get(sessionId)
	if !ok {
		state = &entity.SessionState{
			Persona:      session.Persona,
			Capabilities: session.Capabilities,
			MessageQueue: []string{},
			Status:       session.Status,
		}
		s.stateRepo.Save(sessionId, state)
	}
	lock.Unlock()

	return &dto.SessionStateResponse{
		SessionId: sessionId,
		Status:    state.Status,
		Persona: dto.PersonaPayload{
			Name:  state.Persona.Name,
			Style: state.Persona.Style,
		},
		Capabilities: dto.CapabilitiesPayload{
			Transcription: state.Capabilities.Transcription,
			Generation:    state.Capabilities.Generation,
			Synthesis:     state.Capabilities.Synthesis,
		},
		MessageQueue: append([]string{}, state.MessageQueue...),
	}, nil
}

func (s *registryService) UpdateState(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.UpdateSessionStateRequest) (*dto.SessionStateResponse, error) {
	lock := s.lockFor(sessionId)
	lock.Lock()
	defer lock.Unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.findOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}

	if req.Persona != nil {
		session.Persona = entity.Persona{
			Name:  req.Persona.Name,
			Style: req.Persona.Style,
		}
	}
	if req.Capabilities != nil {
		session.Capabilities = entity.Capabilities{
			Transcription: req.Capabilities.Transcription,
			Generation:    req.Capabilities.Generation,
			Synthesis:     req.Capabilities.Synthesis,
		}
	}

	if err := uow.SessionRepository().Update(ctx, session); err != nil {
		return nil, apperror.PersistenceError("Failed to update session state", err)
	}

	state, ok := s.stateRepo.Get(sessionId)
	if !ok {
		state = &entity.SessionState{MessageQueue: []string{}}
	}
	state.Persona = session.Persona
	state.Capabilities = session.Capabilities
	state.Status = session.Status
	s.stateRepo.Save(sessionId, state)

	return &dto.SessionStateResponse{
		SessionId: sessionId,
		Status:    state.Status,
		Persona: dto.PersonaPayload{
			Name:  state.Persona.Name,
			Style: state.Persona.Style,
		},
		Capabilities: dto.CapabilitiesPayload{
			Transcription: state.Capabilities.Transcription,
			Generation:    state.Capabilities.Generation,
			Synthesis:     state.Capabilities.Synthesis,
		},
		MessageQueue: append([]string{}, state.MessageQueue...),
	}, nil
}

func (s *registryService) Terminate(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.findOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return err
	}

	session.Status = constant.SessionStatusTerminated
	if err := uow.SessionRepository().Update(ctx, session); err != nil {
		return apperror.PersistenceError("Failed to terminate session", err)
	}

	// Write-through: the cached projection flips to terminated rather than
	// being evicted, so state queries keep answering.
	lock := s.lockFor(sessionId)
	lock.Lock()
	state, ok := s.stateRepo.Get(sessionId)
	if !ok {
		state = &entity.SessionState{
			Persona:      session.Persona,
			Capabilities: session.Capabilities,
			MessageQueue: []string{},
		}
	}
	state.Status = constant.SessionStatusTerminated
	s.stateRepo.Save(sessionId, state)
	lock.Unlock()
	s.dropLock(sessionId)

	if err := s.shortTermRepo.Clear(ctx, sessionId); err != nil {
		s.log.Warn("Registry", "Failed to clear short-term window", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, "session.terminated", map[string]interface{}{
			"session_id": sessionId.String(),
			"user_id":    userId.String(),
		}); err != nil {
			s.log.Warn("Registry", "Failed to publish lifecycle event", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      err.Error(),
			})
		}
	}

	s.log.Info("Registry", "Session terminated", map[string]interface{}{
		"session_id": sessionId.String(),
	})
	return nil
}

func (s *registryService) Resolve(ctx context.Context, sessionId uuid.UUID) (*entity.SessionState, error) {
	lock := s.lockFor(sessionId)
	lock.Lock()
	defer lock.Unlock()

	if state, ok := s.stateRepo.Get(sessionId); ok {
		if state.Status != constant.SessionStatusActive {
			return nil, apperror.NotFound("Session is not active")
		}
		return state, nil
	}

	// Cache miss: rebuild the projection from the durable row.
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.SessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, apperror.PersistenceError("Failed to load session", err)
	}
	if session == nil {
		return nil, apperror.NotFound("Session not found")
	}
	if session.Status != constant.SessionStatusActive {
		return nil, apperror.NotFound("Session is not active")
	}

	state := &entity.SessionState{
		Persona:      session.Persona,
		Capabilities: session.Capabilities,
		MessageQueue: []string{},
		Status:       session.Status,
	}
	s.stateRepo.Save(sessionId, state)
	return state, nil
}

func (s *registryService) AppendOutbound(ctx context.Context, sessionId uuid.UUID, raw string) {
	lock := s.lockFor(sessionId)
	lock.Lock()
	defer lock.Unlock()

	state, ok := s.stateRepo.Get(sessionId)
	if !ok {
		return
	}
	state.MessageQueue = append(state.MessageQueue, raw)
	if len(state.MessageQueue) > messageQueueCap {
		state.MessageQueue = state.MessageQueue[len(state.MessageQueue)-messageQueueCap:]
	}
	s.stateRepo.Save(sessionId, state)
}
