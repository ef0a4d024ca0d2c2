package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	"github.com/fieldops/opsboard/pkg/apiclient"
	"github.com/fieldops/opsboard/pkg/crud"
)

const SheetName = "Inventory"

// leadingColumns are placed first in the export; any other record keys follow alphabetically.
var leadingColumns = []string{"id", "name", "sku", "serial_number", "category", "quantity", "unit", "location", "status"}

type InventoryService struct {
	records *crud.Service
	now     func() time.Time
}

func NewInventoryService(api apiclient.API) *InventoryService {
	return &InventoryService{
		records: crud.NewService(api, "inventory", "/inventory"),
		now:     time.Now,
	}
}

func (s *InventoryService) Records() *crud.Service {
	return s.records
}

// FileName is the attachment name of an export produced now.
func (s *InventoryService) FileName() string {
	return fmt.Sprintf("inventory-%s.xlsx", s.now().Format("2006-01-02"))
}

// Export writes the inventory list matching query as a single-sheet workbook.
func (s *InventoryService) Export(ctx context.Context, w io.Writer, query url.Values) (int, error) {
	items, err := s.records.List(ctx, query)
	if err != nil {
		return 0, err
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return 0, errors.Wrap(err, "rename sheet")
	}

	columns := exportColumns(items)
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, errors.Wrap(err, "header style")
	}
	for col, name := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return 0, err
		}
		if err := f.SetCellValue(SheetName, cell, name); err != nil {
			return 0, errors.Wrapf(err, "header %s", name)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, bold); err != nil {
			return 0, errors.Wrap(err, "style header")
		}
	}
	for row, item := range items {
		for col, name := range columns {
			v, ok := item[name]
			if !ok || v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return 0, err
			}
			if err := f.SetCellValue(SheetName, cell, cellValue(v)); err != nil {
				return 0, errors.Wrapf(err, "cell %s", cell)
			}
		}
	}
	if err := f.Write(w); err != nil {
		return 0, errors.Wrap(err, "write workbook")
	}
	return len(items), nil
}

func exportColumns(items []crud.Record) []string {
	present := map[string]bool{}
	for _, item := range items {
		for k := range item {
			present[k] = true
		}
	}
	columns := make([]string, 0, len(present))
	for _, name := range leadingColumns {
		if present[name] {
			columns = append(columns, name)
			delete(present, name)
		}
	}
	rest := make([]string, 0, len(present))
	for name := range present {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	return append(columns, rest...)
}

// cellValue flattens nested JSON into its encoded text.
func cellValue(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
	return v
}
