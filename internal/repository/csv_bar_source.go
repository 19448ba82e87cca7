package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"CryptoSign/internal/domain/models"
	domrepo "CryptoSign/internal/domain/repository"
	"CryptoSign/pkg/util"
)

// CSVBarSource reads bars from a file with a header row naming at least
// timestamp, open, high, low and close (volume optional). Timestamps may be RFC3339,
// "2006-01-02 15:04:05" or unix seconds/milliseconds. The symbol and granularity
// arguments are ignored; one file holds one series.
type CSVBarSource struct {
	path string
}

var _ domrepo.BarSource = (*CSVBarSource)(nil)

func NewCSVBarSource(path string) *CSVBarSource { return &CSVBarSource{path: path} }

func (s *CSVBarSource) Bars(_ context.Context, _ string, from, to time.Time, _ models.Granularity) ([]models.PriceBar, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open bars: %w", err)
	}
	defer f.Close()
	bars, err := ReadBarsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return slices.DeleteFunc(bars, func(b models.PriceBar) bool {
		return b.Timestamp.Before(from) || !b.Timestamp.Before(to)
	}), nil
}

var barColumns = []string{"timestamp", "open", "high", "low", "close"}

// ReadBarsCSV parses bars, sorts them by timestamp and drops duplicate timestamps
// keeping the first occurrence.
func ReadBarsCSV(r io.Reader) ([]models.PriceBar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx["timestamp"]; !ok {
		if i, ok := idx["time"]; ok {
			idx["timestamp"] = i
		}
	}
	for _, col := range barColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}
	vol, hasVol := idx["volume"]

	var out []models.PriceBar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ts, ok := util.ParseTime(rec[idx["timestamp"]])
		if !ok {
			return nil, fmt.Errorf("line %d: bad timestamp %q", line, rec[idx["timestamp"]])
		}
		b := models.PriceBar{Timestamp: ts}
		for _, f := range []struct {
			col string
			dst *float64
		}{{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low}, {"close", &b.Close}} {
			v, err := strconv.ParseFloat(rec[idx[f.col]], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, f.col, err)
			}
			*f.dst = v
		}
		if hasVol && rec[vol] != "" {
			if b.Volume, err = strconv.ParseFloat(rec[vol], 64); err != nil {
				return nil, fmt.Errorf("line %d: volume: %w", line, err)
			}
		}
		out = append(out, b)
	}
	slices.SortStableFunc(out, func(a, b models.PriceBar) int { return a.Timestamp.Compare(b.Timestamp) })
	return slices.CompactFunc(out, func(a, b models.PriceBar) bool { return a.Timestamp.Equal(b.Timestamp) }), nil
}
