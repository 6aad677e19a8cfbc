package storage

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// NewMemStore 返回进程内对象存储，供开发环境与测试使用。
// 条目永不过期，语义与磁盘驱动一致。
func NewMemStore() Store {
	return &memStore{cache: gocache.New(gocache.NoExpiration, 0)}
}

type memStore struct {
	cache *gocache.Cache
}

func (s *memStore) Get(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if value, ok := s.cache.Get(path); ok {
		return value.([]byte), nil
	}
	return nil, ErrNotFound
}

func (s *memStore) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := s.cache.Get(path)
	return ok, nil
}

func (s *memStore) PutMany(ctx context.Context, objects []Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, obj := range objects {
		data := make([]byte, len(obj.Data))
		copy(data, obj.Data)
		s.cache.Set(obj.Path, data, gocache.NoExpiration)
	}
	return nil
}
