// Package redis stores pending approvals in Redis so they survive restarts
// and can be resolved from any replica.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/upb/procurement-agent/config"
	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/repositories"
	"go.uber.org/zap"
)

// ApprovalRepository keeps each approval as a JSON value with a TTL, plus a
// sorted set of IDs scored by creation time for listing.
type ApprovalRepository struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewClient connects to Redis and verifies the connection
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// NewApprovalRepository creates a Redis-backed approval repository
func NewApprovalRepository(client *goredis.Client, prefix string, ttl time.Duration, logger *zap.Logger) repositories.ApprovalRepository {
	return &ApprovalRepository{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *ApprovalRepository) key(id uuid.UUID) string {
	return r.prefix + id.String()
}

func (r *ApprovalRepository) indexKey() string {
	return r.prefix + "_index"
}

// Create stores the approval and adds it to the index
func (r *ApprovalRepository) Create(ctx context.Context, approval *models.PendingApproval) error {
	data, err := json.Marshal(approval)
	if err != nil {
		return fmt.Errorf("failed to marshal approval: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(approval.ID), data, r.ttl)
	pipe.ZAdd(ctx, r.indexKey(), goredis.Z{
		Score:  float64(approval.CreatedAt.UnixNano()),
		Member: approval.ID.String(),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store approval: %w", err)
	}

	r.logger.Debug("pending approval stored", zap.String("id", approval.ID.String()))
	return nil
}

// GetByID loads one approval; an expired or unknown ID is repositories.ErrNotFound
func (r *ApprovalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PendingApproval, error) {
	return r.get(ctx, r.client, id)
}

// getter is satisfied by both *goredis.Client and *goredis.Tx
type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

func (r *ApprovalRepository) get(ctx context.Context, cmd getter, id uuid.UUID) (*models.PendingApproval, error) {
	data, err := cmd.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}

	var approval models.PendingApproval
	if err := json.Unmarshal(data, &approval); err != nil {
		return nil, fmt.Errorf("failed to unmarshal approval: %w", err)
	}
	return &approval, nil
}

// List walks the index oldest first. Expired entries are pruned from the index.
func (r *ApprovalRepository) List(ctx context.Context, status models.ApprovalStatus) ([]*models.PendingApproval, error) {
	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read approval index: %w", err)
	}

	approvals := make([]*models.PendingApproval, 0, len(ids))
	if len(ids) == 0 {
		return approvals, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.prefix + id
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load approvals: %w", err)
	}

	var expired []interface{}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var approval models.PendingApproval
		if err := json.Unmarshal([]byte(raw), &approval); err != nil {
			r.logger.Warn("skipping unreadable approval", zap.String("id", ids[i]), zap.Error(err))
			continue
		}
		if status != "" && approval.Status != status {
			continue
		}
		approvals = append(approvals, &approval)
	}

	if len(expired) > 0 {
		if err := r.client.ZRem(ctx, r.indexKey(), expired...).Err(); err != nil {
			r.logger.Warn("failed to prune approval index", zap.Error(err))
		}
	}

	return approvals, nil
}

// Resolve applies fn under WATCH so a concurrent resolution aborts the write
func (r *ApprovalRepository) Resolve(ctx context.Context, id uuid.UUID, fn repositories.ResolveFunc) (*models.PendingApproval, error) {
	key := r.key(id)
	var resolved *models.PendingApproval

	err := r.client.Watch(ctx, func(tx *goredis.Tx) error {
		approval, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(approval); err != nil {
			return err
		}

		data, err := json.Marshal(approval)
		if err != nil {
			return fmt.Errorf("failed to marshal approval: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, goredis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}
		resolved = approval
		return nil
	}, key)
	if err != nil {
		if errors.Is(err, goredis.TxFailedErr) {
			return nil, fmt.Errorf("approval %s: %w", id, repositories.ErrConcurrentUpdate)
		}
		return nil, err
	}

	return resolved, nil
}

// HealthCheck pings Redis
func (r *ApprovalRepository) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
