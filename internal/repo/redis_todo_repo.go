package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	dom "Todo/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyTodoPrefix = "todo:item:"
	keyTodoIDs    = "todo:ids"
)

var _ TodoRepo = (*RedisTodoRepo)(nil)

// RedisTodoRepo implements TodoRepo on Redis: one JSON value per todo plus a set of ids.
// Keyword search filters the full set in process with MatchLike.
type RedisTodoRepo struct {
	rdb *redis.Client
}

func NewRedisTodoRepo(rdb *redis.Client) *RedisTodoRepo {
	return &RedisTodoRepo{rdb: rdb}
}

type redisTodo struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

func toRedis(t dom.Todo) redisTodo {
	return redisTodo{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		FinishedAt:  t.FinishedAt,
	}
}

func (v redisTodo) domain() dom.Todo {
	return dom.Todo{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
		FinishedAt:  v.FinishedAt,
	}
}

func decodeTodo(b []byte) (dom.Todo, error) {
	var v redisTodo
	if err := json.Unmarshal(b, &v); err != nil {
		return dom.Todo{}, fmt.Errorf("decode todo: %w", err)
	}
	return v.domain(), nil
}

func (r *RedisTodoRepo) ListAll(ctx context.Context) ([]dom.Todo, error) {
	ids, err := r.rdb.SMembers(ctx, keyTodoIDs).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyTodoPrefix + id
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	list := make([]dom.Todo, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			// removed between SMEMBERS and MGET
			continue
		}
		t, err := decodeTodo([]byte(s))
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (r *RedisTodoRepo) Insert(ctx context.Context, t dom.Todo) error {
	b, err := json.Marshal(toRedis(t))
	if err != nil {
		return err
	}
	var created *redis.BoolCmd
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		created = pipe.SetNX(ctx, keyTodoPrefix+t.ID, b, 0)
		pipe.SAdd(ctx, keyTodoIDs, t.ID)
		return nil
	})
	if err != nil {
		return err
	}
	if !created.Val() {
		return ErrDuplicateID
	}
	return nil
}

func (r *RedisTodoRepo) Remove(ctx context.Context, id string) (int64, error) {
	var deleted *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, keyTodoPrefix+id)
		pipe.SRem(ctx, keyTodoIDs, id)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted.Val(), nil
}

// UpdateByID rewrites the stored value under WATCH so a concurrent delete
// aborts the write instead of resurrecting the todo.
func (r *RedisTodoRepo) UpdateByID(ctx context.Context, t dom.Todo) error {
	key := keyTodoPrefix + t.ID
	return r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		stored, err := decodeTodo(b)
		if err != nil {
			return err
		}
		stored.Title = t.Title
		stored.Description = t.Description
		stored.UpdatedAt = t.UpdatedAt
		if t.FinishedAt != nil {
			stored.FinishedAt = t.FinishedAt
		}
		out, err := json.Marshal(toRedis(stored))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}, key)
}

func (r *RedisTodoRepo) FindByID(ctx context.Context, id string) (dom.Todo, bool, error) {
	b, err := r.rdb.Get(ctx, keyTodoPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return dom.Todo{}, false, nil
	}
	if err != nil {
		return dom.Todo{}, false, err
	}
	t, err := decodeTodo(b)
	if err != nil {
		return dom.Todo{}, false, err
	}
	return t, true, nil
}

func (r *RedisTodoRepo) FindByKeyword(ctx context.Context, pattern string) ([]dom.Todo, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var list []dom.Todo
	for _, t := range all {
		if MatchLike(pattern, t.Title) || MatchLike(pattern, t.Description) {
			list = append(list, t)
		}
	}
	return list, nil
}

func (r *RedisTodoRepo) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
