package hub

import (
	"context"
	"fmt"

	"github.com/scene-hub/scene-hub/internal/crateid"
	"github.com/scene-hub/scene-hub/internal/errs"
)

// Clear 清空文档存储。生产环境拒绝执行。
func (s *Services) Clear(ctx context.Context) error {
	if s.Env.IsProd() {
		return fmt.Errorf("%w: refusing to clear documents in prod", errs.ErrPolicyRefusal)
	}
	return s.Docs.Clear(ctx)
}

// Populate 清空后按序摄取一批 crate，用于开发环境构造确定性数据集。
// 生产环境拒绝执行。摄取失败即中止并返回，已写入的文档保持不变。
func (s *Services) Populate(ctx context.Context, ids []crateid.CrateID) error {
	if s.Env.IsProd() {
		return fmt.Errorf("%w: refusing to populate documents in prod", errs.ErrPolicyRefusal)
	}

	if err := s.Docs.Clear(ctx); err != nil {
		return err
	}

	for _, id := range ids {
		if _, _, err := s.Ingest(ctx, id); err != nil {
			return fmt.Errorf("populate %s: %w", id.Path(), err)
		}
	}

	s.logger.WithField("crates", len(ids)).Info("documents populated")
	return nil
}
