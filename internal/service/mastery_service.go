package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sped-tools/iep-progress-api/internal/mastery"
	"github.com/sped-tools/iep-progress-api/internal/models"
	appErrors "github.com/sped-tools/iep-progress-api/pkg/errors"
)

type masteryGoalRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Goal, error)
	ListObjectivesByStudent(ctx context.Context, studentID string) ([]models.Objective, error)
}

type masteryObservationRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Observation, error)
}

type dismissalStore interface {
	Add(ctx context.Context, studentID string, keys []models.AlertKey) error
	Members(ctx context.Context, studentID string) (map[models.AlertKey]struct{}, error)
}

type reviewLedger interface {
	Append(ctx context.Context, items []models.ReviewItem) error
	ListByStudent(ctx context.Context, studentID string) ([]models.ReviewItem, error)
	Remove(ctx context.Context, itemType models.AlertType, itemID string) error
}

type alertCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// DismissAlertsRequest names the alerts a teacher is acknowledging. With
// ReviewLater set the dismissed items are also written to the review ledger.
type DismissAlertsRequest struct {
	Items       []models.AlertKey `json:"items" validate:"required,min=1,dive"`
	ReviewLater bool              `json:"review_later"`
}

// MasteryService orchestrates mastery detection: it assembles the student's
// goal tree and observation history, runs the detector, and manages the two
// dismissal horizons (session set and review ledger).
type MasteryService struct {
	goals        masteryGoalRepository
	observations masteryObservationRepository
	students     studentChecker
	dismissals   dismissalStore
	review       reviewLedger
	cache        alertCache
	cacheTTL     time.Duration
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewMasteryService constructs the mastery service. cache may be nil to
// disable alert caching.
func NewMasteryService(
	goals masteryGoalRepository,
	observations masteryObservationRepository,
	students studentChecker,
	dismissals dismissalStore,
	review reviewLedger,
	cache alertCache,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *MasteryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MasteryService{
		goals:        goals,
		observations: observations,
		students:     students,
		dismissals:   dismissals,
		review:       review,
		cache:        cache,
		cacheTTL:     cacheTTL,
		validator:    validate,
		logger:       logger,
	}
}

// SetMetrics attaches detection instrumentation.
func (s *MasteryService) SetMetrics(m *MetricsService) {
	s.metrics = m
}

func alertCacheKey(studentID string) string {
	return fmt.Sprintf("mastery:alerts:%s", studentID)
}

// Alerts runs a detection pass over the student's data and returns active
// mastery alerts, minus anything dismissed this session.
func (s *MasteryService) Alerts(ctx context.Context, studentID string) ([]models.MasteryAlert, error) {
	exists, err := s.students.Exists(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	if s.cache != nil {
		var cached []models.MasteryAlert
		if err := s.cache.Get(ctx, alertCacheKey(studentID), &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	alerts, err := s.detect(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, alertCacheKey(studentID), alerts, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache mastery alerts", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return alerts, nil
}

// Dismiss acknowledges alerts for the rest of the session. With ReviewLater
// set, matching alerts are also appended to the persistent review ledger so
// they survive the session.
func (s *MasteryService) Dismiss(ctx context.Context, studentID string, req DismissAlertsRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid dismissal payload")
	}
	exists, err := s.students.Exists(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	if req.ReviewLater {
		// Snapshot the alerts before dismissing so the ledger rows carry
		// the detected mastery date and criteria text.
		alerts, err := s.detect(ctx, studentID)
		if err != nil {
			return err
		}
		byKey := make(map[models.AlertKey]models.MasteryAlert, len(alerts))
		for _, alert := range alerts {
			byKey[alert.Key] = alert
		}
		var items []models.ReviewItem
		for _, key := range req.Items {
			alert, ok := byKey[key]
			if !ok {
				continue
			}
			items = append(items, models.ReviewItem{
				StudentID:      studentID,
				ItemType:       key.Type,
				ItemID:         key.ItemID,
				Title:          alert.Title,
				TargetCriteria: alert.TargetCriteria,
				MasteryDate:    alert.MasteryDate,
			})
		}
		if len(items) > 0 {
			if err := s.review.Append(ctx, items); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record review items")
			}
		}
	}

	if err := s.dismissals.Add(ctx, studentID, req.Items); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to dismiss alerts")
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, alertCacheKey(studentID)); err != nil {
			s.logger.Warn("failed to invalidate alert cache", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return nil
}

// Review returns the student's pending review items.
func (s *MasteryService) Review(ctx context.Context, studentID string) ([]models.ReviewItem, error) {
	exists, err := s.students.Exists(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student")
	}
	if !exists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	items, err := s.review.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list review items")
	}
	return items, nil
}

// Invalidate drops the cached alert set for a student. Called after writes
// that change detection inputs (new or deleted observations, goal edits).
func (s *MasteryService) Invalidate(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, alertCacheKey(studentID)); err != nil {
		s.logger.Warn("failed to invalidate alert cache", zap.String("student_id", studentID), zap.Error(err))
	}
}

func (s *MasteryService) detect(ctx context.Context, studentID string) ([]models.MasteryAlert, error) {
	goals, err := s.goals.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load goals")
	}
	objectives, err := s.goals.ListObjectivesByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load objectives")
	}
	observations, err := s.observations.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load observations")
	}
	dismissed, err := s.dismissals.Members(ctx, studentID)
	if err != nil {
		s.logger.Warn("failed to load dismissal set, proceeding without", zap.String("student_id", studentID), zap.Error(err))
		dismissed = nil
	}

	byGoal := make(map[string][]models.Objective)
	for _, obj := range objectives {
		byGoal[obj.GoalID] = append(byGoal[obj.GoalID], obj)
	}

	started := time.Now()
	alerts := mastery.Detect(mastery.Input{
		StudentID:    studentID,
		Goals:        goals,
		Objectives:   byGoal,
		Observations: observations,
		Dismissed:    dismissed,
	})
	s.metrics.ObserveDetection(time.Since(started), len(alerts))
	return alerts, nil
}
