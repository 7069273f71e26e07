package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"snapquiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// FrameSetLoader fetches bundle content from a backing store.
type FrameSetLoader interface {
	LoadFrameSet(ctx context.Context, quizID string) (domain.FrameSet, error)
}

// FrameSetRepository caches frame sets with TTL to avoid repeated store hits.
type FrameSetRepository struct {
	loader FrameSetLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	set       domain.FrameSet
	expiresAt time.Time
}

func NewFrameSetRepository(loader FrameSetLoader, ttl time.Duration) *FrameSetRepository {
	return &FrameSetRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *FrameSetRepository) GetFrameSet(ctx context.Context, quizID string) (domain.FrameSet, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.set, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.set, nil
		}
		r.mu.RUnlock()

		set, err := r.loader.LoadFrameSet(ctx, quizID)
		if err != nil {
			return domain.FrameSet{}, err
		}

		r.mu.Lock()
		r.cache[quizID] = cachedSet{
			set:       set,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.FrameSet{}, err
	}
	return result.(domain.FrameSet), nil
}

func (r *FrameSetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticFrameSetLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticFrameSetLoader struct {
	mu   sync.RWMutex
	sets map[string]domain.FrameSet
}

func NewStaticFrameSetLoader(sets map[string]domain.FrameSet) *StaticFrameSetLoader {
	if sets == nil {
		sets = make(map[string]domain.FrameSet)
	}
	return &StaticFrameSetLoader{sets: sets}
}

func (l *StaticFrameSetLoader) LoadFrameSet(_ context.Context, quizID string) (domain.FrameSet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if set, ok := l.sets[quizID]; ok {
		return set, nil
	}
	return domain.FrameSet{}, domain.ErrQuizNotFound
}

// Add registers a frame set under its ID.
func (l *StaticFrameSetLoader) Add(set domain.FrameSet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sets[set.ID] = set
}

// SaveFrameSet implements app.FrameSetStore for the upload endpoints.
func (l *StaticFrameSetLoader) SaveFrameSet(_ context.Context, set domain.FrameSet) error {
	l.Add(set)
	return nil
}
