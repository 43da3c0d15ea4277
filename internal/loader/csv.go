// Package loader 把表格形式的 K 线数据读成检测器使用的序列
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"market-structure-analyzer/pkg/smc"
)

// ErrMissingColumn 缺少必需的 open/high/low/close 列
var ErrMissingColumn = errors.New("missing required column")

// 列名别名，比较前先转为小写
var columnAliases = map[string]string{
	"o":      "open",
	"h":      "high",
	"l":      "low",
	"c":      "close",
	"v":      "volume",
	"vol":    "volume",
	"open":   "open",
	"high":   "high",
	"low":    "low",
	"close":  "close",
	"volume": "volume",
}

var requiredColumns = []string{"open", "high", "low", "close"}

// LoadFile 读取 CSV 文件
func LoadFile(path string) (*smc.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Load 读取带表头的 CSV；没有 volume 列时序列不带成交量
// 其他列 (时间戳等) 被忽略，行的先后顺序即为位置下标
func Load(r io.Reader) (*smc.Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty input: %w", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int)
	for i, name := range header {
		canon, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		// 同一列出现多次时取第一个
		if _, dup := cols[canon]; !dup {
			cols[canon] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}
	volIdx, hasVolume := cols["volume"]

	var candles []smc.Candle
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}

		var c smc.Candle
		fields := []struct {
			name string
			dst  *float64
		}{
			{"open", &c.Open},
			{"high", &c.High},
			{"low", &c.Low},
			{"close", &c.Close},
		}
		for _, fld := range fields {
			if *fld.dst, err = parseCell(rec, cols[fld.name], row, fld.name); err != nil {
				return nil, err
			}
		}
		if hasVolume {
			if c.Volume, err = parseCell(rec, volIdx, row, "volume"); err != nil {
				return nil, err
			}
		}
		candles = append(candles, c)
	}

	return smc.NewSeries(candles, hasVolume), nil
}

func parseCell(rec []string, idx, row int, name string) (float64, error) {
	if idx >= len(rec) {
		return 0, fmt.Errorf("row %d: column %q missing", row, name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("row %d column %q: %w", row, name, err)
	}
	return v, nil
}
