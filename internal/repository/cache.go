package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hiroki-koketsu/taskboard/internal/model"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CachedStore wraps a Store with a Redis copy of each owner's full task list.
// Filtered lists are computed from the cached copy; every write evicts the
// owner's entry. Redis failures fall back to the wrapped store.
type CachedStore struct {
	Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedStore creates a caching Store wrapper using the provided Redis client and TTL.
func NewCachedStore(base Store, client *redis.Client, ttl time.Duration) *CachedStore {
	if base == nil {
		panic("repository.NewCachedStore: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &CachedStore{Store: base, redis: client, ttl: ttl}
}

func (c *CachedStore) Find(ctx context.Context, owner string, criteria model.Criteria) ([]*model.Task, error) {
	ctx, span := tracer.Start(ctx, "CachedStore.Find",
		trace.WithAttributes(attribute.String("task.owner", owner)),
	)
	defer span.End()

	tasks, ok := c.load(ctx, owner)
	span.SetAttributes(attribute.Bool("cache.hit", ok))
	if !ok {
		// The version must be read before the store is queried.
		version := c.version(ctx, owner)

		var err error
		tasks, err = c.Store.Find(ctx, owner, model.Criteria{})
		if err != nil {
			return nil, err
		}
		c.save(ctx, owner, version, tasks)
	}

	if criteria.Empty() {
		return tasks, nil
	}
	return model.Apply(tasks, criteria), nil
}

func (c *CachedStore) Insert(ctx context.Context, task *model.Task) error {
	if err := c.Store.Insert(ctx, task); err != nil {
		return err
	}
	c.evict(ctx, task.Owner)
	return nil
}

func (c *CachedStore) Update(ctx context.Context, id string, req model.UpdateTaskRequest, at time.Time) (*model.Task, error) {
	task, err := c.Store.Update(ctx, id, req, at)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, task.Owner)
	return task, nil
}

func (c *CachedStore) CompareAndSetStatus(ctx context.Context, id string, from, to model.Status, at time.Time) (*model.Task, error) {
	task, err := c.Store.CompareAndSetStatus(ctx, id, from, to, at)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, task.Owner)
	return task, nil
}

// Delete looks the task up first so the owner's entry can be evicted.
func (c *CachedStore) Delete(ctx context.Context, id string) error {
	task, err := c.Store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := c.Store.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, task.Owner)
	return nil
}

// Ping checks the wrapped store and Redis.
func (c *CachedStore) Ping(ctx context.Context) error {
	if err := c.Store.Ping(ctx); err != nil {
		return err
	}
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return model.Unavailable("ping redis", err)
	}
	return nil
}

func (c *CachedStore) load(ctx context.Context, owner string) ([]*model.Task, bool) {
	data, err := c.redis.Get(ctx, tasksCacheKey(owner)).Bytes()
	if err != nil {
		return nil, false
	}
	var tasks []*model.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey(owner)).Err()
		return nil, false
	}
	return tasks, true
}

// version returns the owner's eviction counter, "" when Redis is unreachable.
func (c *CachedStore) version(ctx context.Context, owner string) string {
	v, err := c.redis.Get(ctx, versionKey(owner)).Result()
	if errors.Is(err, redis.Nil) {
		return "0"
	}
	if err != nil {
		return ""
	}
	return v
}

// save stores the list only while the owner's version is still the one read
// before the store was queried.
func (c *CachedStore) save(ctx context.Context, owner, version string, tasks []*model.Task) {
	if c.ttl == 0 || version == "" {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}

	_ = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey(owner)).Result()
		if errors.Is(err, redis.Nil) {
			current = "0"
		} else if err != nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, tasksCacheKey(owner), data, c.ttl)
			return nil
		})
		return err
	}, versionKey(owner))
}

// evict bumps the owner's version and drops the cached list.
func (c *CachedStore) evict(ctx context.Context, owner string) {
	_, _ = c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(owner))
		pipe.Del(ctx, tasksCacheKey(owner))
		return nil
	})
}

func tasksCacheKey(owner string) string {
	return "taskboard:tasks:" + owner
}

func versionKey(owner string) string {
	return "taskboard:tasks:" + owner + ":version"
}
