// Package hub 组合 registry、GitHub、对象存储与文档存储，
// 实现 crate/scene 的按需摄取与读穿透解析。
package hub

import (
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/scene-hub/scene-hub/internal/config"
	"github.com/scene-hub/scene-hub/internal/docstore"
	"github.com/scene-hub/scene-hub/internal/github"
	"github.com/scene-hub/scene-hub/internal/registry"
	"github.com/scene-hub/scene-hub/internal/storage"
)

// Services 持有全部后端能力，是路由层与 CLI 的统一入口。
type Services struct {
	Registry registry.Registry
	GitHub   *github.Client
	Storage  storage.Store
	Docs     docstore.Store
	Env      config.Environment

	logger *logrus.Logger

	// unpackFlight 合并同一 crate 的并发解包请求。
	unpackFlight singleflight.Group

	// latestMu 保护 latestLocks；每个 crate 家族独立串行化 latest 重算。
	latestMu    sync.Mutex
	latestLocks map[string]*sync.Mutex
}

// NewServices 组装服务实例。logger 为空时使用标准 logrus 单例。
func NewServices(reg registry.Registry, gh *github.Client, store storage.Store, docs docstore.Store, env config.Environment, logger *logrus.Logger) *Services {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Services{
		Registry:    reg,
		GitHub:      gh,
		Storage:     store,
		Docs:        docs,
		Env:         env,
		logger:      logger,
		latestLocks: map[string]*sync.Mutex{},
	}
}

// familyLock 返回指定家族键的互斥锁，不存在时懒初始化。
func (s *Services) familyLock(key string) *sync.Mutex {
	s.latestMu.Lock()
	defer s.latestMu.Unlock()

	lock, ok := s.latestLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.latestLocks[key] = lock
	}
	return lock
}
