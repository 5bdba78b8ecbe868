package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storeforge/access-plane/authz"
	"github.com/storeforge/access-plane/models"
	"github.com/storeforge/access-plane/repositories"
)

// AuditEvent represents an event to be audited
type AuditEvent struct {
	Log      *models.AuditLog
	Priority int // Higher priority events are processed first (for future enhancements)
}

// AuditService handles asynchronous audit logging
type AuditService struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	eventChan   chan *AuditEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	senders     sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	mu          sync.Mutex
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  10000, // Buffer up to 10k events
		WorkerCount: 5,     // 5 concurrent workers
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	ctx, cancel := context.WithCancel(context.Background())

	return &AuditService{
		auditRepo:   auditRepo,
		logger:      logger,
		eventChan:   make(chan *AuditEvent, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
		started:     false,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	// Start worker goroutines
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the audit service
// Waits for all pending events to be processed
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	// Refuse new events before the channel closes; senders that already
	// passed the check are registered and waited out below.
	s.started = false
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))

	// Wait for in-flight sends, then close the event channel
	s.senders.Wait()
	close(s.eventChan)

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// LogEvent logs an event asynchronously (non-blocking)
// Returns immediately, event is processed in background
func (s *AuditService) LogEvent(event *AuditEvent) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.senders.Add(1)
	s.mu.Unlock()
	defer s.senders.Done()

	// Try to send event to channel (non-blocking)
	select {
	case s.eventChan <- event:
		return nil
	default:
		// Channel is full, log warning and drop event
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Log.Action)),
			zap.String("store_id", event.Log.StoreID.String()))
		return fmt.Errorf("audit event buffer full")
	}
}

// LogEventBlocking logs an event synchronously (blocking)
// Waits until event is queued or context is cancelled
func (s *AuditService) LogEventBlocking(ctx context.Context, event *AuditEvent) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.senders.Add(1)
	s.mu.Unlock()
	defer s.senders.Done()

	select {
	case s.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return fmt.Errorf("audit service stopped")
	}
}

// worker processes events from the channel
func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(event.Log.Action)),
				zap.String("store_id", event.Log.StoreID.String()))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// processEvent processes a single audit event
func (s *AuditService) processEvent(event *AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event.Log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// RequestMeta carries request metadata into audit entries
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
	Path      string
}

// Convenience methods for logging common events

// LogAccessDecision logs the outcome of a permission check on a route
func (s *AuditService) LogAccessDecision(storeID uuid.UUID, userID *uuid.UUID, permission authz.Permission, role authz.Role, allowed bool, meta RequestMeta) error {
	action := models.AuditActionAccessDenied
	if allowed {
		action = models.AuditActionAccessAllowed
	}

	log := models.NewAuditLog(storeID, action, "route")
	if userID != nil {
		log.WithUser(*userID)
	}
	log.WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
	log.WithDecision(permission, role, meta.Path)

	priority := 1
	if !allowed {
		priority = 2 // Denials are the interesting ones
	}

	return s.LogEvent(&AuditEvent{Log: log, Priority: priority})
}

// LogLogin logs a successful login
func (s *AuditService) LogLogin(user *models.User, meta RequestMeta) error {
	log := models.NewAuditLog(user.StoreID, models.AuditActionLogin, "session")
	log.WithUser(user.ID)
	log.WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
	log.WithDetails(map[string]interface{}{
		"email": user.Email,
		"role":  user.Role,
	})

	return s.LogEvent(&AuditEvent{Log: log, Priority: 1})
}

// LogLoginFailed logs a failed login attempt
func (s *AuditService) LogLoginFailed(storeID uuid.UUID, email string, meta RequestMeta) error {
	log := models.NewAuditLog(storeID, models.AuditActionLoginFailed, "session")
	log.WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
	log.WithDetails(map[string]interface{}{
		"email": email,
	})

	return s.LogEvent(&AuditEvent{Log: log, Priority: 2})
}

// LogLogout logs a logout
func (s *AuditService) LogLogout(user *models.User, meta RequestMeta) error {
	log := models.NewAuditLog(user.StoreID, models.AuditActionLogout, "session")
	log.WithUser(user.ID)
	log.WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)

	return s.LogEvent(&AuditEvent{Log: log, Priority: 1})
}

// LogGrantAdded logs a permission grant
func (s *AuditService) LogGrantAdded(storeID uuid.UUID, grant *models.Grant, meta RequestMeta) error {
	log := models.NewAuditLog(storeID, models.AuditActionGrantAdded, "grant")
	log.WithUser(grant.GrantedBy)
	log.WithResource(grant.ID)
	log.WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
	log.WithDetails(map[string]interface{}{
		"target_user": grant.UserID,
		"permission":  grant.Permission,
	})

	return s.LogEvent(&AuditEvent{Log: log, Priority: 1})
}

// LogGrantRevoked logs a permission revocation
func (s *AuditService) LogGrantRevoked(storeID, targetUserID, revokedBy uuid.UUID, permission authz.Permission, meta RequestMeta) error {
	log := models.NewAuditLog(storeID, models.AuditActionGrantRevoked, "grant")
	log.WithUser(revokedBy)
	log.WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
	log.WithDetails(map[string]interface{}{
		"target_user": targetUserID,
		"permission":  permission,
	})

	return s.LogEvent(&AuditEvent{Log: log, Priority: 1})
}

// LogUserCreated logs a user creation event
func (s *AuditService) LogUserCreated(user *models.User, creatorID uuid.UUID) error {
	log := models.NewAuditLog(user.StoreID, models.AuditActionUserCreated, "user")
	log.WithUser(creatorID)
	log.WithResource(user.ID)
	log.WithDetails(map[string]interface{}{
		"email": user.Email,
		"role":  user.Role,
	})

	return s.LogEvent(&AuditEvent{Log: log, Priority: 1})
}

// LogUserUpdated logs a user update event
func (s *AuditService) LogUserUpdated(user *models.User, updaterID uuid.UUID, changes map[string]interface{}) error {
	log := models.NewAuditLog(user.StoreID, models.AuditActionUserUpdated, "user")
	log.WithUser(updaterID)
	log.WithResource(user.ID)
	log.WithDetails(map[string]interface{}{
		"changes": changes,
	})

	return s.LogEvent(&AuditEvent{Log: log, Priority: 1})
}
