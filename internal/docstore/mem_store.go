package docstore

import (
	"context"
	"sync"
)

// NewMemStore 返回进程内文档存储，供开发环境与测试使用。
func NewMemStore() Store {
	s := &memStore{
		crates: make(map[string]*CrateDoc),
		scenes: make(map[string]*SceneDoc),
	}
	s.crateCol = &memCrates{store: s}
	s.sceneCol = &memScenes{store: s}
	return s
}

type memStore struct {
	mu     sync.RWMutex
	crates map[string]*CrateDoc
	scenes map[string]*SceneDoc

	crateCol *memCrates
	sceneCol *memScenes
}

func (s *memStore) Crates() CrateCollection { return s.crateCol }
func (s *memStore) Scenes() SceneCollection { return s.sceneCol }

func (s *memStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crates = make(map[string]*CrateDoc)
	s.scenes = make(map[string]*SceneDoc)
	return nil
}

type memCrates struct {
	store *memStore
}

func (c *memCrates) Insert(ctx context.Context, doc *CrateDoc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.crates[doc.ID] = doc.Clone()
	return nil
}

func (c *memCrates) Get(ctx context.Context, id string) (*CrateDoc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	doc, ok := c.store.crates[id]
	if !ok {
		return nil, ErrDocNotFound
	}
	return doc.Clone(), nil
}

type memScenes struct {
	store *memStore
}

func (c *memScenes) Insert(ctx context.Context, doc *SceneDoc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.scenes[doc.ID] = doc.Clone()
	return nil
}

func (c *memScenes) InsertMany(ctx context.Context, docs []*SceneDoc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	for _, doc := range docs {
		c.store.scenes[doc.ID] = doc.Clone()
	}
	return nil
}

func (c *memScenes) Get(ctx context.Context, id string) (*SceneDoc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	doc, ok := c.store.scenes[id]
	if !ok {
		return nil, ErrDocNotFound
	}
	return doc.Clone(), nil
}

func (c *memScenes) Find(ctx context.Context, filter SceneFilter) ([]*SceneDoc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	var out []*SceneDoc
	for _, doc := range c.store.scenes {
		if filter.Matches(doc) {
			out = append(out, doc.Clone())
		}
	}
	return out, nil
}
