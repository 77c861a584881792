package llm

import (
	"context"
	"strings"
	"time"

	"github.com/freightline/loadbook/internal/entity"
)

// StopFields is one stop as the model returns it.
type StopFields struct {
	Type            string `json:"type"`
	LocationName    string `json:"location_name"`
	Address         string `json:"address"`
	City            string `json:"city"`
	State           string `json:"state"`
	Zip             string `json:"zip"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	AppointmentType string `json:"appointment_type"`
}

// AccessorialFields is one accessorial line item as the model returns it.
type AccessorialFields struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// LoadFields is the normalized shape we want from the LLM for one rate
// confirmation. Every key is always present; absent values come back as
// empty strings or empty lists, never omitted and never null.
type LoadFields struct {
	LoadID          string              `json:"load_id"`
	BrokerName      string              `json:"broker_name"`
	BrokerEmail     string              `json:"broker_email"`
	BrokerPhone     string              `json:"broker_phone"`
	CarrierName     string              `json:"carrier_name"`
	CarrierMCNumber string              `json:"carrier_mc_number"`
	CarrierEmail    string              `json:"carrier_email"`
	CarrierPhone    string              `json:"carrier_phone"`
	CarrierAddress  string              `json:"carrier_address"`
	RateTotal       string              `json:"rate_total"`     // decimal
	LinehaulRate    string              `json:"linehaul_rate"`  // decimal
	Accessorials    []AccessorialFields `json:"accessorials"`
	Stops           []StopFields        `json:"stops"`
	EquipmentType   string              `json:"equipment_type"`
	Temperature     string              `json:"temperature"`
	Commodity       string              `json:"commodity"`
	Weight          string              `json:"weight"`
	Notes           string              `json:"notes"`
}

// ExtractRequest carries the document text plus prompt hints.
type ExtractRequest struct {
	Text         string
	FilenameHint string
	SourceHint   string // "upload" | "gmail" | "extension"
}

// LoadExtractor is the interface the ingestion pipeline depends on.
type LoadExtractor interface {
	ExtractLoad(ctx context.Context, req ExtractRequest) (LoadFields, []byte /*rawJSON*/, error)
}

// HasRequired reports whether the three schema-required fields are present.
func (f LoadFields) HasRequired() bool {
	return strings.TrimSpace(f.LoadID) != "" &&
		strings.TrimSpace(f.BrokerName) != "" &&
		strings.TrimSpace(f.RateTotal) != ""
}

// ToLoad converts extracted fields into the canonical Load entity.
func (f LoadFields) ToLoad(sourceFile string, extractedAt time.Time) entity.Load {
	stops := make([]entity.Stop, 0, len(f.Stops))
	for _, s := range f.Stops {
		stops = append(stops, entity.Stop{
			Type:            s.Type,
			LocationName:    s.LocationName,
			Address:         s.Address,
			City:            s.City,
			State:           s.State,
			Zip:             s.Zip,
			Date:            s.Date,
			Time:            s.Time,
			AppointmentType: s.AppointmentType,
		})
	}
	accs := make([]entity.Accessorial, 0, len(f.Accessorials))
	for _, a := range f.Accessorials {
		accs = append(accs, entity.Accessorial{Name: a.Name, Amount: a.Amount})
	}
	return entity.Load{
		LoadID: strings.TrimSpace(f.LoadID),
		Broker: entity.BrokerContact{
			Name:  f.BrokerName,
			Email: strings.ToLower(strings.TrimSpace(f.BrokerEmail)),
			Phone: f.BrokerPhone,
		},
		Carrier: entity.CarrierContact{
			Name:     f.CarrierName,
			MCNumber: f.CarrierMCNumber,
			Email:    strings.ToLower(strings.TrimSpace(f.CarrierEmail)),
			Phone:    f.CarrierPhone,
			Address:  f.CarrierAddress,
		},
		RateTotal:    f.RateTotal,
		LinehaulRate: f.LinehaulRate,
		Accessorials: accs,
		Stops:        stops,
		Cargo: entity.Cargo{
			EquipmentType: f.EquipmentType,
			Temperature:   f.Temperature,
			Commodity:     f.Commodity,
			Weight:        f.Weight,
		},
		Notes:       f.Notes,
		SourceFile:  sourceFile,
		ExtractedAt: extractedAt,
	}
}
