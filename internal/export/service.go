// Package export renders an account's load book as an XLSX workbook.
package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/freightline/loadbook/internal/entity"
)

const sheetName = "Loads"

var headers = []string{
	"Load ID", "Broker", "Broker Email", "Rate Total", "Linehaul",
	"Miles", "RPM", "Pickup", "Pickup Date", "Delivery", "Delivery Date",
	"Equipment", "Commodity", "Weight", "Carrier", "Source File", "Extracted At",
}

type Service struct {
	log *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{log: logger}
}

// Workbook renders the loads into a single-sheet workbook, one row per load,
// route endpoints taken as first pickup and last delivery.
func (s *Service) Workbook(account string, loads []entity.Load) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.log.Warn("export.close_failed", "error", err)
		}
	}()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("export: create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("export: drop default sheet: %w", err)
	}

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("export: header %s: %w", h, err)
		}
	}

	for row, l := range loads {
		values := rowValues(l)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("export: row %d: %w", row+2, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("export: write workbook: %w", err)
	}

	s.log.Info("export.xlsx.done",
		"account", account,
		"rows", len(loads),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func rowValues(l entity.Load) []string {
	var pickup, pickupDate, delivery, deliveryDate string
	if p := l.FirstPickup(); p != nil {
		pickup = cityState(p)
		pickupDate = p.Date
	}
	if d := l.LastDelivery(); d != nil {
		delivery = cityState(d)
		deliveryDate = d.Date
	}
	extracted := ""
	if !l.ExtractedAt.IsZero() {
		extracted = l.ExtractedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		l.LoadID, l.Broker.Name, l.Broker.Email, l.RateTotal, l.LinehaulRate,
		l.Miles, l.RPM, pickup, pickupDate, delivery, deliveryDate,
		l.Cargo.EquipmentType, l.Cargo.Commodity, l.Cargo.Weight,
		l.Carrier.Name, l.SourceFile, extracted,
	}
}

func cityState(s *entity.Stop) string {
	parts := make([]string, 0, 2)
	if s.City != "" {
		parts = append(parts, s.City)
	}
	if s.State != "" {
		parts = append(parts, s.State)
	}
	return strings.Join(parts, ", ")
}
