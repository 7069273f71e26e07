package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"snapquiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// FrameSetLoader fetches bundle content from a backing store.
type FrameSetLoader interface {
	LoadFrameSet(ctx context.Context, quizID string) (domain.FrameSet, error)
}

// FrameSetRepository caches frame sets in Redis as JSON blobs and falls back
// to a loader on cache miss.
// Stored as: SET quiz:{quizID}:frames {json} EX ttl
type FrameSetRepository struct {
	client *redis.Client
	loader FrameSetLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewFrameSetRepository(client *redis.Client, loader FrameSetLoader, ttl time.Duration) *FrameSetRepository {
	return &FrameSetRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *FrameSetRepository) GetFrameSet(ctx context.Context, quizID string) (domain.FrameSet, error) {
	key := r.framesKey(quizID)

	if set, ok := r.cached(ctx, key); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok := r.cached(ctx, key); ok {
			return set, nil
		}

		set, err := r.loader.LoadFrameSet(ctx, quizID)
		if err != nil {
			return domain.FrameSet{}, err
		}

		if raw, err := json.Marshal(set); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return set, nil
	})
	if err != nil {
		return domain.FrameSet{}, err
	}
	return result.(domain.FrameSet), nil
}

func (r *FrameSetRepository) cached(ctx context.Context, key string) (domain.FrameSet, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil || len(raw) == 0 {
		return domain.FrameSet{}, false
	}
	var set domain.FrameSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.FrameSet{}, false
	}
	return set, true
}

func (r *FrameSetRepository) framesKey(quizID string) string {
	return "quiz:" + quizID + ":frames"
}

func (r *FrameSetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
