package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ImageSource 是图片的读取接口，ingest 用 Exists 过滤，Deriver 用 ReadImage 取数据。
type ImageSource interface {
	ReadImage(ctx context.Context, ref string) ([]byte, error)
	Exists(ctx context.Context, ref string) (bool, error)
}

// FileSource 从本地目录读取图片，引用是相对 BaseDir 的路径。
type FileSource struct {
	BaseDir string
}

// NewFileSource 创建一个基于本地文件系统的图片数据源。
func NewFileSource(baseDir string) *FileSource {
	return &FileSource{BaseDir: baseDir}
}

func (s *FileSource) path(ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(s.BaseDir, ref)
}

// ReadImage 读取整个图片文件。
func (s *FileSource) ReadImage(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(ref))
	if err != nil {
		return nil, fmt.Errorf("读取图片失败: %w", err)
	}
	return data, nil
}

// Exists 报告图片文件是否存在且不是目录。
func (s *FileSource) Exists(ctx context.Context, ref string) (bool, error) {
	info, err := os.Stat(s.path(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}
