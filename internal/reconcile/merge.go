package reconcile

import (
	"strings"
	"time"

	"github.com/freightline/loadbook/internal/entity"
)

// Field merge rules, one function per field kind. A candidate value
// overwrites only when it is present: trimmed non-empty for scalars,
// non-empty for lists. Nested party/cargo objects merge shallowly key by
// key under the scalar rule. Re-extractions can fill gaps but never blank
// out previously-known data.

func mergeString(existing, candidate string) string {
	if strings.TrimSpace(candidate) != "" {
		return candidate
	}
	return existing
}

func mergeStops(existing, candidate []entity.Stop) []entity.Stop {
	if len(candidate) > 0 {
		return candidate
	}
	return existing
}

func mergeAccessorials(existing, candidate []entity.Accessorial) []entity.Accessorial {
	if len(candidate) > 0 {
		return candidate
	}
	return existing
}

func mergeTime(existing, candidate time.Time) time.Time {
	if !candidate.IsZero() {
		return candidate
	}
	return existing
}

func mergeBrokerContact(existing, candidate entity.BrokerContact) entity.BrokerContact {
	return entity.BrokerContact{
		Name:  mergeString(existing.Name, candidate.Name),
		Email: mergeString(existing.Email, candidate.Email),
		Phone: mergeString(existing.Phone, candidate.Phone),
	}
}

func mergeCarrierContact(existing, candidate entity.CarrierContact) entity.CarrierContact {
	return entity.CarrierContact{
		Name:     mergeString(existing.Name, candidate.Name),
		MCNumber: mergeString(existing.MCNumber, candidate.MCNumber),
		Email:    mergeString(existing.Email, candidate.Email),
		Phone:    mergeString(existing.Phone, candidate.Phone),
		Address:  mergeString(existing.Address, candidate.Address),
	}
}

func mergeCargo(existing, candidate entity.Cargo) entity.Cargo {
	return entity.Cargo{
		EquipmentType: mergeString(existing.EquipmentType, candidate.EquipmentType),
		Temperature:   mergeString(existing.Temperature, candidate.Temperature),
		Commodity:     mergeString(existing.Commodity, candidate.Commodity),
		Weight:        mergeString(existing.Weight, candidate.Weight),
	}
}

// MergeLoad merges a candidate extraction onto an existing canonical load.
// The load_id is identical by construction; everything else follows the
// per-kind presence rule.
func MergeLoad(existing, candidate entity.Load) entity.Load {
	return entity.Load{
		LoadID:       existing.LoadID,
		Broker:       mergeBrokerContact(existing.Broker, candidate.Broker),
		Carrier:      mergeCarrierContact(existing.Carrier, candidate.Carrier),
		RateTotal:    mergeString(existing.RateTotal, candidate.RateTotal),
		LinehaulRate: mergeString(existing.LinehaulRate, candidate.LinehaulRate),
		Accessorials: mergeAccessorials(existing.Accessorials, candidate.Accessorials),
		RPM:          mergeString(existing.RPM, candidate.RPM),
		Stops:        mergeStops(existing.Stops, candidate.Stops),
		Miles:        mergeString(existing.Miles, candidate.Miles),
		Cargo:        mergeCargo(existing.Cargo, candidate.Cargo),
		Notes:        mergeString(existing.Notes, candidate.Notes),
		SourceFile:   mergeString(existing.SourceFile, candidate.SourceFile),
		ExtractedAt:  mergeTime(existing.ExtractedAt, candidate.ExtractedAt),
	}
}
