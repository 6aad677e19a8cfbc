package manifest

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/scene-hub/scene-hub/internal/errs"
)

// Lockfile 是锁文件的解析结果，记录构建时解析出的精确依赖版本。
type Lockfile struct {
	Packages []LockedPackage `toml:"package"`
}

// LockedPackage 对应锁文件中的一个 [[package]] 条目。
type LockedPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// ParseLockfile 解析锁文件字节。语法错误归入 ErrMalformedData。
func ParseLockfile(data []byte) (*Lockfile, error) {
	var l Lockfile
	if err := toml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse lockfile: %w: %w", errs.ErrMalformedData, err)
	}
	return &l, nil
}

// Version 返回锁文件中某个依赖的精确版本。
func (l *Lockfile) Version(name string) (string, bool) {
	for _, p := range l.Packages {
		if p.Name == name {
			return p.Version, true
		}
	}
	return "", false
}

// ResolveDeps 将声明的依赖名映射为锁文件中的精确版本，未锁定的名字被跳过。
func (l *Lockfile) ResolveDeps(names []string) map[string]string {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]string, len(names))
	for _, name := range names {
		if v, ok := l.Version(name); ok {
			out[name] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
