package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"backsim/internal/domain"
	"backsim/internal/marketdata"
)

// Compile-time interface check.
var _ PriceStore = (*ParquetPriceStore)(nil)

// ParquetPriceStore implements PriceStore using Parquet files on disk,
// one file per instrument and year:
//
//	<DataDir>/daily/<ISIN>/<YYYY>.parquet
type ParquetPriceStore struct {
	DataDir string
}

// NewParquetPriceStore creates a store rooted at the given data directory.
func NewParquetPriceStore(dataDir string) *ParquetPriceStore {
	return &ParquetPriceStore{DataDir: dataDir}
}

// CloseRecord is the Parquet schema for one daily close.
type CloseRecord struct {
	ISIN      string  `parquet:"isin"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms, midnight UTC
	Close     float64 `parquet:"close"`
}

// WriteCloses writes daily closes grouped by instrument and year, merging
// with any records already on disk.
func (s *ParquetPriceStore) WriteCloses(_ context.Context, closes []DailyClose) error {
	if len(closes) == 0 {
		return nil
	}

	type key struct {
		isin domain.ISIN
		year int
	}
	groups := make(map[key][]CloseRecord)
	for _, c := range closes {
		k := key{isin: c.ISIN, year: c.Date.Year()}
		groups[k] = append(groups[k], CloseRecord{
			ISIN:      string(c.ISIN),
			Timestamp: c.Date.UnixMilli(),
			Close:     float64(c.Close),
		})
	}

	for k, records := range groups {
		path := s.closePath(k.isin, k.year)

		existing, _ := readParquetFile[CloseRecord](path)
		merged := mergeCloseRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing closes for %s/%d: %w", k.isin, k.year, err)
		}
	}
	return nil
}

// ReadSnapshots assembles one snapshot per stored trading day in
// [start, end], ordered by date.
func (s *ParquetPriceStore) ReadSnapshots(ctx context.Context, start, end time.Time) ([]marketdata.Snapshot, error) {
	isins, err := s.ListInstruments(ctx)
	if err != nil {
		return nil, err
	}

	days := make(map[int64]map[domain.ISIN]domain.Amount)
	for _, isin := range isins {
		for year := start.Year(); year <= end.Year(); year++ {
			records, err := readParquetFile[CloseRecord](s.closePath(isin, year))
			if err != nil {
				// No file for this instrument and year.
				continue
			}
			for _, r := range records {
				ts := time.UnixMilli(r.Timestamp).UTC()
				if ts.Before(start) || ts.After(end) {
					continue
				}
				prices, ok := days[r.Timestamp]
				if !ok {
					prices = make(map[domain.ISIN]domain.Amount)
					days[r.Timestamp] = prices
				}
				prices[isin] = domain.Amount(r.Close)
			}
		}
	}

	stamps := make([]int64, 0, len(days))
	for ts := range days {
		stamps = append(stamps, ts)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	snapshots := make([]marketdata.Snapshot, 0, len(stamps))
	for _, ts := range stamps {
		snapshots = append(snapshots, marketdata.Snapshot{
			Date:   time.UnixMilli(ts).UTC(),
			Prices: days[ts],
		})
	}
	return snapshots, nil
}

// ListInstruments lists all instruments that have stored closes.
func (s *ParquetPriceStore) ListInstruments(_ context.Context) ([]domain.ISIN, error) {
	dir := filepath.Join(s.DataDir, "daily")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var isins []domain.ISIN
	for _, e := range entries {
		if e.IsDir() {
			isins = append(isins, domain.ISIN(e.Name()))
		}
	}
	sort.Slice(isins, func(i, j int) bool { return isins[i] < isins[j] })
	return isins, nil
}

// closePath returns the file path for one instrument-year of closes.
func (s *ParquetPriceStore) closePath(isin domain.ISIN, year int) string {
	return filepath.Join(s.DataDir, "daily", strings.ToUpper(string(isin)), fmt.Sprintf("%d.parquet", year))
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergeCloseRecords deduplicates by (isin, timestamp), preferring incoming
// records, and sorts by timestamp.
func mergeCloseRecords(existing, incoming []CloseRecord) []CloseRecord {
	type key struct {
		isin string
		ts   int64
	}
	seen := make(map[key]CloseRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.ISIN, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.ISIN, r.Timestamp}] = r
	}

	merged := make([]CloseRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp < merged[j].Timestamp })
	return merged
}
