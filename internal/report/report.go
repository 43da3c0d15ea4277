// Package report 把一次分析的所有叠加表合并成逐根 K 线的报告，并以 CSV/JSON/YAML 输出
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"market-structure-analyzer/pkg/smc"
	"market-structure-analyzer/pkg/ta"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Row 单根 K 线及其所有事件
type Row struct {
	Index      int                 `json:"index" yaml:"index"`
	Candle     smc.Candle          `json:"candle" yaml:"candle"`
	FVG        *smc.FairValueGap   `json:"fvg,omitempty" yaml:"fvg,omitempty"`
	Swing      *smc.SwingPoint     `json:"swing,omitempty" yaml:"swing,omitempty"`
	Structure  *smc.StructureBreak `json:"structure,omitempty" yaml:"structure,omitempty"`
	OrderBlock *smc.OrderBlock     `json:"order_block,omitempty" yaml:"order_block,omitempty"`
	Liquidity  *smc.LiquidityPool  `json:"liquidity,omitempty" yaml:"liquidity,omitempty"`
}

// Report 一次运行的完整输出
type Report struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	Symbol      string    `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Interval    string    `json:"interval,omitempty" yaml:"interval,omitempty"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Params      ta.Params `json:"params" yaml:"params"`
	Summary     ta.Counts `json:"summary" yaml:"summary"`
	Rows        []Row     `json:"rows" yaml:"rows"`
}

// Meta 报告的描述信息
type Meta struct {
	Symbol   string
	Interval string
	Params   ta.Params
}

// Build 按下标合并序列与分析结果
func Build(s *smc.Series, res *ta.Result, meta Meta) (*Report, error) {
	if res.Len != s.Len() {
		return nil, fmt.Errorf("%w: series=%d result=%d", smc.ErrLengthMismatch, s.Len(), res.Len)
	}

	rows := make([]Row, s.Len())
	for i := range rows {
		rows[i] = Row{
			Index:      i,
			Candle:     s.At(i),
			FVG:        at(res.FVG, i),
			Swing:      at(res.Swings, i),
			Structure:  at(res.Structure, i),
			OrderBlock: at(res.OrderBlocks, i),
			Liquidity:  at(res.Liquidity, i),
		}
	}

	return &Report{
		RunID:       uuid.New().String(),
		Symbol:      meta.Symbol,
		Interval:    meta.Interval,
		GeneratedAt: time.Now().UTC(),
		Params:      meta.Params,
		Summary:     res.Counts(),
		Rows:        rows,
	}, nil
}

// at 表为 nil (例如没有成交量时的订单块) 时返回 nil
func at[T any](table []*T, i int) *T {
	if i < len(table) {
		return table[i]
	}
	return nil
}

// Write 按格式输出
func (r *Report) Write(w io.Writer, format Format) error {
	switch format {
	case FormatCSV:
		return r.WriteCSV(w)
	case FormatJSON:
		return r.WriteJSON(w)
	case FormatYAML:
		return r.WriteYAML(w)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

var csvHeader = []string{
	"index", "open", "high", "low", "close", "volume",
	"fvg", "fvg_top", "fvg_bottom", "fvg_mitigated_at",
	"swing", "swing_level",
	"structure", "structure_direction", "structure_level", "structure_broken_at",
	"order_block", "ob_top", "ob_bottom", "ob_volume", "ob_strength_percent", "ob_mitigated_at",
	"liquidity", "liquidity_level", "liquidity_end", "liquidity_swept_at",
}

// WriteCSV 每根 K 线一行，没有事件的列留空；摘要不写入 CSV
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range r.Rows {
		if err := cw.Write(row.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (row Row) record() []string {
	rec := make([]string, 0, len(csvHeader))
	rec = append(rec,
		strconv.Itoa(row.Index),
		fmtFloat(row.Candle.Open), fmtFloat(row.Candle.High), fmtFloat(row.Candle.Low),
		fmtFloat(row.Candle.Close), fmtFloat(row.Candle.Volume),
	)

	if g := row.FVG; g != nil {
		rec = append(rec, string(g.Direction), fmtFloat(g.Top), fmtFloat(g.Bottom), fmtIndex(g.MitigatedAt))
	} else {
		rec = append(rec, "", "", "", "")
	}

	if sp := row.Swing; sp != nil {
		rec = append(rec, string(sp.Kind), fmtFloat(sp.Level))
	} else {
		rec = append(rec, "", "")
	}

	if ev := row.Structure; ev != nil {
		rec = append(rec, string(ev.Kind), string(ev.Direction), fmtFloat(ev.Level), strconv.Itoa(ev.BrokenAt))
	} else {
		rec = append(rec, "", "", "", "")
	}

	if ob := row.OrderBlock; ob != nil {
		strength := ""
		if ob.StrengthPercent != nil {
			strength = fmtFloat(*ob.StrengthPercent)
		}
		rec = append(rec, string(ob.Direction), fmtFloat(ob.Top), fmtFloat(ob.Bottom), fmtFloat(ob.Volume), strength, fmtIndex(ob.MitigatedAt))
	} else {
		rec = append(rec, "", "", "", "", "", "")
	}

	if p := row.Liquidity; p != nil {
		rec = append(rec, string(p.Side), fmtFloat(p.Level), strconv.Itoa(p.EndIndex), fmtIndex(p.SweptAt))
	} else {
		rec = append(rec, "", "", "", "")
	}
	return rec
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fmtIndex(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
