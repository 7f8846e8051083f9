package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncolab/leukoflow/internal/domain"
	"github.com/oncolab/leukoflow/pkg/metrics"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
}

// NotificationService persists status-change notifications best-effort:
// entries are queued on a buffered channel and written by a background
// worker. A full buffer drops the entry with a warning — notification
// loss is acceptable, blocking a report write is not.
type NotificationService struct {
	repo      NotificationRepository
	log       *zap.Logger
	collector *metrics.Collector
	entries   chan *domain.Notification
	done      chan struct{}

	mu     sync.Mutex
	closed bool
}

const notificationBufferSize = 10_000

// NewNotificationService starts the background writer. collector may be
// nil (tests).
func NewNotificationService(repo NotificationRepository, collector *metrics.Collector, log *zap.Logger) *NotificationService {
	svc := &NotificationService{
		repo:      repo,
		log:       log,
		collector: collector,
		entries:   make(chan *domain.Notification, notificationBufferSize),
		done:      make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// NotifyAsync enqueues a notification for async persistence.
func (s *NotificationService) NotifyAsync(userID, patientID, doctorID uuid.UUID, ntype domain.NotificationType, message string) {
	n := &domain.Notification{
		UserID:    userID,
		PatientID: patientID,
		DoctorID:  doctorID,
		Type:      ntype,
		Message:   message,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		if s.collector != nil {
			s.collector.NotificationsDropped.Inc()
		}
		s.log.Warn("notification service stopped, dropping entry",
			zap.String("type", string(ntype)),
			zap.String("user_id", userID.String()),
		)
		return
	}

	select {
	case s.entries <- n:
	default:
		if s.collector != nil {
			s.collector.NotificationsDropped.Inc()
		}
		s.log.Warn("notification buffer full, dropping entry",
			zap.String("type", string(ntype)),
			zap.String("user_id", userID.String()),
		)
	}
}

// Shutdown stops accepting entries, drains the buffer, and waits for the
// worker to finish. Safe to call more than once.
func (s *NotificationService) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.entries)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		s.log.Warn("notification service shutdown timed out; some entries may be lost")
	}
}

func (s *NotificationService) worker() {
	defer close(s.done)
	for n := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Create(ctx, n); err != nil {
			s.log.Error("failed to persist notification", zap.Error(err))
		} else if s.collector != nil {
			s.collector.NotificationsTotal.Inc()
		}
		cancel()
	}
}
