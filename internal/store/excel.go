package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"qcpulse/pkg/contracts/domain"
)

// SheetName is the sheet measurements are read from and written to.
const SheetName = "Measurements"

// ExcelStore reads and writes the authoritative series workbook. Writes are
// serialized through an internal mutex so two saves never race each other on
// the file; readers are never made to wait on a save.
type ExcelStore struct {
	path   string
	logger *slog.Logger

	writeMu sync.Mutex

	savedMu   sync.Mutex
	lastSaved time.Time
}

// NewExcelStore creates a store backed by the workbook at path.
func NewExcelStore(path string, logger *slog.Logger) *ExcelStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelStore{
		path:   path,
		logger: logger.With(slog.String("component", "store.excel")),
	}
}

// Path returns the workbook path the store operates on.
func (s *ExcelStore) Path() string { return s.path }

// Load reads the full series from the workbook. It returns an error for a
// missing or unreadable workbook; the caller decides how to degrade.
func (s *ExcelStore) Load(ctx context.Context) (domain.Series, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := s.sheetRows(f)
	if err != nil {
		return nil, err
	}

	headerIdx, cols := findHeader(rows)
	if headerIdx < 0 {
		return nil, fmt.Errorf("no header row with weight and hardness columns in %s", s.path)
	}

	series := domain.Series{}
	position := 0
	for _, row := range rows[headerIdx+1:] {
		if blankRow(row) {
			continue
		}
		position++
		series = append(series, parseSample(row, cols, position))
	}

	s.logger.InfoContext(ctx, "Loaded series from workbook",
		slog.String("path", s.path),
		slog.Int("samples", len(series)))
	return series, nil
}

// Save rewrites the whole sheet from the given series. A failed save leaves
// the previous file contents in place where the filesystem allows it.
func (s *ExcelStore) Save(ctx context.Context, series domain.Series) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"id", "weight", "hardness"}
	for col, name := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(SheetName, cell, name)
	}

	for i, smp := range series {
		rowVals := []interface{}{smp.ID, smp.Weight, smp.Hardness}
		for col, v := range rowVals {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(SheetName, cell, v)
		}
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	s.savedMu.Lock()
	s.lastSaved = time.Now()
	s.savedMu.Unlock()

	s.logger.InfoContext(ctx, "Saved series to workbook",
		slog.String("path", s.path),
		slog.Int("samples", len(series)))
	return nil
}

// SavedWithin reports whether the store itself wrote the workbook within the
// given window. The watcher uses this to tell self-inflicted file events from
// genuine external edits.
func (s *ExcelStore) SavedWithin(window time.Duration) bool {
	s.savedMu.Lock()
	defer s.savedMu.Unlock()
	return !s.lastSaved.IsZero() && time.Since(s.lastSaved) < window
}

// sheetRows returns the rows of the measurements sheet, falling back to the
// first sheet of the workbook when the expected name is absent.
func (s *ExcelStore) sheetRows(f *excelize.File) ([][]string, error) {
	if rows, err := f.GetRows(SheetName); err == nil {
		return rows, nil
	}
	list := f.GetSheetList()
	if len(list) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	s.logger.Warn("Measurements sheet not found, using first sheet",
		slog.String("sheet", list[0]))
	rows, err := f.GetRows(list[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", list[0], err)
	}
	return rows, nil
}

// columnMap holds the resolved column positions, -1 for absent.
type columnMap struct {
	id, weight, hardness int
}

// findHeader scans for the first row naming both measurement columns and maps
// the column positions. Matching is case-insensitive, so both weight and
// Weight resolve.
func findHeader(rows [][]string) (int, columnMap) {
	for i, row := range rows {
		cols := columnMap{id: -1, weight: -1, hardness: -1}
		for c, cell := range row {
			switch strings.ToLower(strings.TrimSpace(cell)) {
			case "id":
				cols.id = c
			case "weight":
				cols.weight = c
			case "hardness":
				cols.hardness = c
			}
		}
		if cols.weight >= 0 && cols.hardness >= 0 {
			return i, cols
		}
	}
	return -1, columnMap{}
}

// parseSample converts one data row. Missing or unparseable numeric cells
// default to 0.0; a missing id defaults to the row's 1-based position.
func parseSample(row []string, cols columnMap, position int) domain.Sample {
	id := position
	if v, ok := cellInt(row, cols.id); ok {
		id = v
	}
	return domain.Sample{
		ID:       id,
		Weight:   cellFloat(row, cols.weight),
		Hardness: cellFloat(row, cols.hardness),
	}
}

func cellFloat(row []string, col int) float64 {
	if col < 0 || col >= len(row) {
		return 0.0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return 0.0
	}
	return v
}

func cellInt(row []string, col int) (int, bool) {
	if col < 0 || col >= len(row) {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(row[col]))
	if err != nil {
		return 0, false
	}
	return v, true
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
