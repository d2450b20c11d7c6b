package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// Report 是数据完整性校验的结果。路径均为相对 baseDir 的斜杠路径。
type Report struct {
	Referenced      int
	OnDisk          int
	MissingFromDisk []string
	ExtraOnDisk     []string
}

// Verify 比较 jsonlPath 中引用的图片与 baseDir 下实际存在的图片文件。
func Verify(baseDir, jsonlPath string) (Report, error) {
	var report Report

	referenced, err := referencedImages(jsonlPath)
	if err != nil {
		return report, err
	}
	report.Referenced = len(referenced)

	existing := make(map[string]bool)
	err = filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !imageExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}
		existing[filepath.ToSlash(rel)] = true
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("扫描图片目录失败: %w", err)
	}
	report.OnDisk = len(existing)

	for img := range referenced {
		if !existing[img] {
			report.MissingFromDisk = append(report.MissingFromDisk, img)
		}
	}
	for img := range existing {
		if !referenced[img] {
			report.ExtraOnDisk = append(report.ExtraOnDisk, img)
		}
	}
	sort.Strings(report.MissingFromDisk)
	sort.Strings(report.ExtraOnDisk)
	return report, nil
}

func referencedImages(jsonlPath string) (map[string]bool, error) {
	f, err := os.Open(jsonlPath)
	if err != nil {
		return nil, fmt.Errorf("打开 JSONL 文件失败: %w", err)
	}
	defer f.Close()

	refs := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry struct {
			Img string `json:"img"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("解析 JSONL 行失败: %w", err)
		}
		if entry.Img != "" {
			refs[filepath.ToSlash(filepath.Clean(entry.Img))] = true
		}
	}
	return refs, scanner.Err()
}
