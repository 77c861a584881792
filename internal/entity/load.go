package entity

import "time"

// Stop is one pickup or delivery within a load's route. Ordering matters:
// the first pickup and the LAST delivery define the billable route endpoints.
type Stop struct {
	Type            string `json:"type"` // "pickup" | "delivery"
	LocationName    string `json:"location_name"`
	Address         string `json:"address"`
	City            string `json:"city"`
	State           string `json:"state"`
	Zip             string `json:"zip"`
	Date            string `json:"date"` // YYYY-MM-DD when known
	Time            string `json:"time"`
	AppointmentType string `json:"appointment_type"`
}

// Accessorial is one named surcharge on a load. Owned by its load; no
// independent identity.
type Accessorial struct {
	Name   string `json:"name"`
	Amount string `json:"amount"` // decimal string
}

// BrokerContact holds the broker party fields as extracted from a rate con.
type BrokerContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CarrierContact holds the carrier party fields as extracted.
type CarrierContact struct {
	Name     string `json:"name"`
	MCNumber string `json:"mc_number"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Cargo describes what is being hauled.
type Cargo struct {
	EquipmentType string `json:"equipment_type"`
	Temperature   string `json:"temperature"`
	Commodity     string `json:"commodity"`
	Weight        string `json:"weight"`
}

// Load is one shipment/transaction extracted from a rate confirmation.
// Money and mileage values stay as decimal strings so the gap-filling merge
// rule (presence = non-empty) applies uniformly across fields; aggregation
// parses them when computing.
type Load struct {
	LoadID       string         `json:"load_id"`
	Broker       BrokerContact  `json:"broker"`
	Carrier      CarrierContact `json:"carrier"`
	RateTotal    string         `json:"rate_total"`
	LinehaulRate string         `json:"linehaul_rate"`
	Accessorials []Accessorial  `json:"accessorials"`
	RPM          string         `json:"rpm"`
	Stops        []Stop         `json:"stops"`
	Miles        string         `json:"miles"`
	Cargo        Cargo          `json:"cargo"`
	Notes        string         `json:"notes"`
	SourceFile   string         `json:"source_file"`
	ExtractedAt  time.Time      `json:"extracted_at"`
}

// FirstPickup returns the first pickup stop, or nil.
func (l *Load) FirstPickup() *Stop {
	for i := range l.Stops {
		if l.Stops[i].Type == "pickup" {
			return &l.Stops[i]
		}
	}
	return nil
}

// LastDelivery returns the last delivery stop, or nil. The last delivery,
// not the first, is the billable route endpoint.
func (l *Load) LastDelivery() *Stop {
	for i := len(l.Stops) - 1; i >= 0; i-- {
		if l.Stops[i].Type == "delivery" {
			return &l.Stops[i]
		}
	}
	return nil
}

// RouteAddress renders a stop as a routing-service query string.
func (s *Stop) RouteAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{s.Address, s.City, s.State, s.Zip} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
