// Package storage 提供对象存储的窄能力接口及其磁盘/内存驱动。
// 条目按不可变标识的前缀寻址，内容一次写入后永不变化。
package storage

import (
	"context"
	"errors"

	"github.com/scene-hub/scene-hub/internal/crateid"
)

// ErrNotFound 表示对象不存在。这是普通 cache miss，与上游 404 属于不同分类。
var ErrNotFound = errors.New("object not found")

// Object 是一次批量写入中的单个条目。
type Object struct {
	Path string
	Data []byte
}

// Store 是服务消费的对象存储能力接口，由具体驱动实现。
type Store interface {
	// Get 返回对象内容；不存在时返回 ErrNotFound。
	Get(ctx context.Context, path string) ([]byte, error)

	// Exists 报告对象是否存在，不读取内容。
	Exists(ctx context.Context, path string) (bool, error)

	// PutMany 一次写入一批对象。同一不可变键的内容恒等，重复写入是安全的。
	PutMany(ctx context.Context, objects []Object) error
}

// UnpackDir 是归档解包条目的顶层前缀。
const UnpackDir = "unpkg"

// unpackCompleteMarker 在一次解包的批量写入中最后写入，
// 作为“解包已完整发生”的见证，防止失败的部分写入被误判为完成。
const unpackCompleteMarker = ".unpack-complete"

// UnpackPrefix 返回某个 crate 解包条目的存储前缀。
func UnpackPrefix(id crateid.CrateID) string {
	return UnpackDir + "/" + id.Path()
}

// UnpackPath 返回归档内某个文件的存储路径。
func UnpackPath(id crateid.CrateID, relPath string) string {
	return UnpackPrefix(id) + "/" + relPath
}

// UnpackMarkerPath 返回解包完成标记的存储路径。
func UnpackMarkerPath(id crateid.CrateID) string {
	return UnpackPrefix(id) + "/" + unpackCompleteMarker
}
