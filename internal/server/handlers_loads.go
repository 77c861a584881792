package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/freightline/loadbook/internal/common"
	"github.com/freightline/loadbook/internal/entity"
)

func (s *Server) handleListLoads(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())
	loads, err := s.loads.ListByAccount(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	if loads == nil {
		loads = []entity.Load{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"loads": loads, "count": len(loads)})
}

// handleClearLoads wipes the caller's partition: loads, brokers, and the
// broker children. Other partitions are untouched.
func (s *Server) handleClearLoads(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())

	deleted, err := s.loads.DeleteByAccount(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	brokersDeleted, err := s.brokers.DeleteByAccount(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	s.log.Info("loads.cleared", "account", account, "loads", deleted, "brokers", brokersDeleted)
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted":         deleted,
		"brokers_deleted": brokersDeleted,
	})
}

func (s *Server) handleExportLoads(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())
	loads, err := s.loads.ListByAccount(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	book, err := s.exporter.Workbook(account, loads)
	if err != nil {
		writeError(w, err)
		return
	}
	filename := "loads-" + time.Now().UTC().Format("2006-01-02") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(book)
}

type statsResponse struct {
	TotalLoads   int    `json:"total_loads"`
	TotalRevenue string `json:"total_revenue"`
	AvgRate      string `json:"avg_rate"`
	AvgRPM       string `json:"avg_rpm"`
	TotalMiles   string `json:"total_miles"`
}

// handleStats computes dashboard aggregates over the whole partition. RPM
// averages only over loads with usable mileage, matching the CRM engine.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())
	loads, err := s.loads.ListByAccount(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}

	var revenue, rpmSum, miles decimal.Decimal
	var rated, rpmN int
	for _, l := range loads {
		rate, rateOK := parseDecimal(l.RateTotal)
		if rateOK {
			revenue = revenue.Add(rate)
			rated++
		}
		if m, ok := parseDecimal(l.Miles); ok && m.IsPositive() {
			miles = miles.Add(m)
			if rateOK {
				rpmSum = rpmSum.Add(rate.DivRound(m, 4))
				rpmN++
			}
		}
	}

	resp := statsResponse{
		TotalLoads:   len(loads),
		TotalRevenue: revenue.StringFixed(2),
		AvgRate:      "0.00",
		AvgRPM:       "",
		TotalMiles:   miles.StringFixed(0),
	}
	if rated > 0 {
		resp.AvgRate = revenue.DivRound(decimal.NewFromInt(int64(rated)), 2).StringFixed(2)
	}
	if rpmN > 0 {
		resp.AvgRPM = rpmSum.DivRound(decimal.NewFromInt(int64(rpmN)), 2).StringFixed(2)
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
