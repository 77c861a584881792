package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/freightline/loadbook/internal/entity"
)

func TestWorkbook_RoundTrip(t *testing.T) {
	loads := []entity.Load{
		{
			LoadID:    "L-1",
			Broker:    entity.BrokerContact{Name: "Acme Logistics", Email: "ops@acme.test"},
			RateTotal: "1500.00",
			Miles:     "500",
			RPM:       "3.00",
			Stops: []entity.Stop{
				{Type: "pickup", City: "Dallas", State: "TX", Date: "2026-01-05"},
				{Type: "delivery", City: "Memphis", State: "TN"},
				{Type: "delivery", City: "Atlanta", State: "GA", Date: "2026-01-07"},
			},
			ExtractedAt: time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC),
		},
		{LoadID: "L-2", Broker: entity.BrokerContact{Name: "Beta Freight"}, RateTotal: "900.00"},
	}

	book, err := NewService(nil).Workbook("default", loads)
	if err != nil {
		t.Fatalf("workbook failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(book))
	if err != nil {
		t.Fatalf("workbook not readable: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header plus 2 loads", len(rows))
	}
	if rows[0][0] != "Load ID" {
		t.Errorf("header[0] = %q", rows[0][0])
	}

	first := rows[1]
	if first[0] != "L-1" {
		t.Errorf("load_id cell = %q", first[0])
	}
	if first[7] != "Dallas, TX" {
		t.Errorf("pickup cell = %q, want first pickup", first[7])
	}
	if first[9] != "Atlanta, GA" {
		t.Errorf("delivery cell = %q, want last delivery", first[9])
	}
}
