package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"meme-guard-go/internal/model"
)

// CSVOfflineLog 把特征行追加到单个 CSV 文件，首次写入时输出表头。
type CSVOfflineLog struct {
	path string
	mu   sync.Mutex
}

// NewCSVOfflineLog 创建一个写入 path 的离线日志，文件在首次 Append 时创建。
func NewCSVOfflineLog(path string) *CSVOfflineLog {
	return &CSVOfflineLog{path: path}
}

// CSVHeader 返回离线日志的列名：基础字段、分析字段、类别分数、类别标签。
func CSVHeader() []string {
	header := []string{"post_id", "post_text", "keywords", "visual_summary", "ocr_text"}
	for _, name := range model.RiskNames {
		header = append(header, name.FlagKey(), name.ReasonKey())
	}
	for _, c := range model.Categories {
		header = append(header, string(c))
	}
	for _, c := range model.Categories {
		header = append(header, c.TagKey())
	}
	return header
}

func encodeRow(row model.FeatureRow) ([]string, error) {
	keywords := row.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	kw, err := json.Marshal(keywords)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keywords: %w", err)
	}
	record := []string{row.PostID, row.PostText, string(kw), row.Analysis.VisualSummary, row.Analysis.OCRText}
	for _, name := range model.RiskNames {
		r := row.Analysis.Risk(name)
		record = append(record, strconv.FormatBool(r.Flag), r.Reason)
	}
	for _, c := range model.Categories {
		record = append(record, strconv.FormatFloat(row.Scores[c], 'f', -1, 64))
	}
	for _, c := range model.Categories {
		record = append(record, strconv.Itoa(row.Tags[c.TagKey()]))
	}
	return record, nil
}

// Append 把整批记录编码后一次性写入文件末尾并 fsync。
func (l *CSVOfflineLog) Append(ctx context.Context, rows []model.FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	needHeader := true
	if info, err := os.Stat(l.path); err == nil {
		needHeader = info.Size() == 0
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat offline log: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if needHeader {
		if err := w.Write(CSVHeader()); err != nil {
			return err
		}
	}
	for _, row := range rows {
		record, err := encodeRow(row)
		if err != nil {
			return fmt.Errorf("encode row %s: %w", row.PostID, err)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode offline rows: %w", err)
	}

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create offline log dir: %w", err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open offline log: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write offline log: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync offline log: %w", err)
	}
	return f.Close()
}

// ReadAll 读取整个日志。列按表头名称定位，因此兼容列顺序不同的旧文件。
func (l *CSVOfflineLog) ReadAll(ctx context.Context) ([]model.FeatureRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrOfflineLogMissing
	}
	if err != nil {
		return nil, fmt.Errorf("open offline log: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse offline log: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[name] = i
	}
	rows := make([]model.FeatureRow, 0, len(records)-1)
	for i, record := range records[1:] {
		row, err := decodeRow(cols, record)
		if err != nil {
			return nil, fmt.Errorf("offline log line %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeRow(cols map[string]int, record []string) (model.FeatureRow, error) {
	get := func(name string) string {
		if i, ok := cols[name]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}

	row := model.FeatureRow{
		PostID:   get("post_id"),
		PostText: get("post_text"),
		Analysis: model.StructuredAnalysis{
			VisualSummary: get("visual_summary"),
			OCRText:       get("ocr_text"),
			Risks:         make(map[model.RiskName]model.RiskIndicator, len(model.RiskNames)),
		},
		Scores: make(model.CategoryScores, len(model.Categories)),
		Tags:   make(model.TagVector, len(model.Categories)),
	}
	if row.PostID == "" {
		return row, errors.New("missing post_id")
	}
	if kw := get("keywords"); kw != "" {
		if err := json.Unmarshal([]byte(kw), &row.Keywords); err != nil {
			return row, fmt.Errorf("keywords: %w", err)
		}
	}
	for _, name := range model.RiskNames {
		var flag bool
		if v := get(name.FlagKey()); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return row, fmt.Errorf("%s: %w", name.FlagKey(), err)
			}
			flag = b
		}
		row.Analysis.Risks[name] = model.RiskIndicator{Flag: flag, Reason: get(name.ReasonKey())}
	}
	for _, c := range model.Categories {
		if v := get(string(c)); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return row, fmt.Errorf("%s: %w", c, err)
			}
			row.Scores[c] = f
		}
		v := get(c.TagKey())
		if v == "" {
			return row, fmt.Errorf("missing column %s", c.TagKey())
		}
		tag, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return row, fmt.Errorf("%s: %w", c.TagKey(), err)
		}
		row.Tags[c.TagKey()] = int(tag)
	}
	return row, nil
}

// Reset 删除日志文件，下一次 Append 会重新写表头。
func (l *CSVOfflineLog) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := os.Remove(l.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove offline log: %w", err)
	}
	return nil
}
