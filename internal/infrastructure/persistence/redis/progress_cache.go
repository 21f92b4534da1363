package redis

import (
	"context"
	"errors"
	"time"

	"github.com/kurso-hub/kurso-learning-hub/internal/domain/progress"
	"github.com/kurso-hub/kurso-learning-hub/internal/domain/shared"
)

// ProgressCache implements progress.Cache interface using generic Redis Cache.
// Одна запись на пару студент×курс; инвалидируется на каждой записи.
type ProgressCache struct {
	cache *Cache
}

// NewProgressCache creates a new ProgressCache.
func NewProgressCache(cache *Cache) *ProgressCache {
	return &ProgressCache{
		cache: cache,
	}
}

// Get возвращает закешированную запись прогресса.
// Возвращает ErrCacheMiss при промахе: читающая сторона трактует любую
// ошибку кеша как промах и идёт в хранилище.
func (pc *ProgressCache) Get(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) (*progress.Progress, error) {
	var p progress.Progress
	key := ProgressKey(studentID.String(), courseID.String())
	if err := pc.cache.Get(ctx, key, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Set сохраняет запись прогресса с TTL.
func (pc *ProgressCache) Set(ctx context.Context, p *progress.Progress, ttl time.Duration) error {
	if p == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = TTLProgressCache
	}
	key := ProgressKey(p.StudentID.String(), p.CourseID.String())
	return pc.cache.Set(ctx, key, p, ttl)
}

// Invalidate удаляет запись прогресса из кеша.
// Отсутствующий ключ не считается ошибкой.
func (pc *ProgressCache) Invalidate(ctx context.Context, studentID shared.StudentID, courseID shared.CourseID) error {
	key := ProgressKey(studentID.String(), courseID.String())
	err := pc.cache.Delete(ctx, key)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		return err
	}
	return nil
}
