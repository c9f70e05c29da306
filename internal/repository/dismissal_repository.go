package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sped-tools/iep-progress-api/internal/models"
)

// DismissalRepository tracks the session-scoped "already shown" alert set in
// Redis. Members expire with the key; nothing here is durable state. This is
// intentionally a different store from the review ledger, which lives in
// Postgres and has no TTL.
type DismissalRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewDismissalRepository constructs a DismissalRepository.
func NewDismissalRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *DismissalRepository {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DismissalRepository{client: client, ttl: ttl, logger: logger}
}

func dismissalKey(studentID string) string {
	return fmt.Sprintf("mastery:dismissed:%s", studentID)
}

// Add records alert keys as dismissed for the student and refreshes the
// set's TTL.
func (r *DismissalRepository) Add(ctx context.Context, studentID string, keys []models.AlertKey) error {
	if r.client == nil || len(keys) == 0 {
		return nil
	}
	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k.String()
	}
	redisKey := dismissalKey(studentID)
	if err := r.client.SAdd(ctx, redisKey, members...).Err(); err != nil {
		return fmt.Errorf("record dismissals for %s: %w", studentID, err)
	}
	if err := r.client.Expire(ctx, redisKey, r.ttl).Err(); err != nil {
		r.logger.Warn("failed to refresh dismissal set ttl", zap.String("student_id", studentID), zap.Error(err))
	}
	return nil
}

// Members returns the student's currently dismissed alert keys.
func (r *DismissalRepository) Members(ctx context.Context, studentID string) (map[models.AlertKey]struct{}, error) {
	dismissed := make(map[models.AlertKey]struct{})
	if r.client == nil {
		return dismissed, nil
	}
	raw, err := r.client.SMembers(ctx, dismissalKey(studentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load dismissals for %s: %w", studentID, err)
	}
	for _, member := range raw {
		parts := strings.SplitN(member, ":", 2)
		if len(parts) != 2 {
			continue
		}
		dismissed[models.AlertKey{Type: models.AlertType(parts[0]), ItemID: parts[1]}] = struct{}{}
	}
	return dismissed, nil
}
