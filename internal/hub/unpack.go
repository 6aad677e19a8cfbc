package hub

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/scene-hub/scene-hub/internal/errs"
)

// archiveEntry 是归档内一个普通文件，路径已去掉顶层目录前缀。
type archiveEntry struct {
	RelPath string
	Data    []byte
}

// unpackTarGz 解开 gzip 压缩的 tar 归档。registry 归档把全部内容放在
// 单个 "<name>-<version>/" 顶层目录下，这里统一剥掉第一段路径。
func unpackTarGz(data []byte) ([]archiveEntry, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", errs.ErrMalformedData, err)
	}
	defer gz.Close()

	var entries []archiveEntry
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: tar: %v", errs.ErrMalformedData, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		rel, ok := stripFirstComponent(hdr.Name)
		if !ok {
			continue
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("%w: tar entry %s: %v", errs.ErrMalformedData, hdr.Name, err)
		}
		entries = append(entries, archiveEntry{RelPath: rel, Data: content})
	}

	return entries, nil
}

// stripFirstComponent 去掉路径的第一段目录，并拒绝越界路径。
func stripFirstComponent(name string) (string, bool) {
	cleaned := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if cleaned == "." || path.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", false
	}

	idx := strings.IndexByte(cleaned, '/')
	if idx < 0 {
		return "", false
	}
	rel := cleaned[idx+1:]
	if rel == "" || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return rel, true
}
