package flag

import "context"

// Service fronts the Redis store with the status cache. Reads prefer the
// cache; writes update both so the admin sees their toggle immediately.
type Service struct {
	store *Store
	cache *StatusCache
}

func NewService(store *Store, cache *StatusCache) *Service {
	return &Service{store: store, cache: cache}
}

// Status returns whether orders are open, serving from cache when fresh.
func (s *Service) Status(ctx context.Context) (bool, error) {
	if v, ok := s.cache.Get(); ok {
		return v, nil
	}
	v, err := s.store.Get(ctx)
	if err != nil {
		return false, err
	}
	s.cache.Set(v)
	return v, nil
}

// SetOpen writes the flag and refreshes the cache. Last write wins.
func (s *Service) SetOpen(ctx context.Context, open bool) error {
	if err := s.store.Set(ctx, open); err != nil {
		s.cache.Invalidate()
		return err
	}
	s.cache.Set(open)
	return nil
}
