// Package crm derives broker registry entries from the canonical load set.
package crm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/freightline/loadbook/internal/entity"
	"github.com/freightline/loadbook/internal/repository"
)

// Aggregator recomputes broker aggregates from an account's full load set.
// The recomputation is idempotent: the same loads always produce the same
// broker rows.
type Aggregator struct {
	brokers repository.BrokerRepository
	log     *slog.Logger
}

func NewAggregator(brokers repository.BrokerRepository, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{brokers: brokers, log: logger}
}

type group struct {
	name    string
	email   string
	phone   string
	count   int
	revenue decimal.Decimal
	rpmSum  decimal.Decimal
	rpmN    int
	first   string
	last    string
}

// SyncFromLoads groups loads by broker email (case-insensitive), computes
// revenue/rate/RPM/date aggregates, and upserts each broker row. User-owned
// fields (status, notes) are never written. A failed upsert for one broker
// logs and moves on; the remaining brokers still sync.
func (a *Aggregator) SyncFromLoads(ctx context.Context, account string, loads []entity.Load) (synced, updated int, err error) {
	start := time.Now()

	groups := make(map[string]*group)
	order := make([]string, 0)
	for _, l := range loads {
		name := strings.TrimSpace(l.Broker.Name)
		email := strings.ToLower(strings.TrimSpace(l.Broker.Email))
		if name == "" || email == "" {
			continue
		}
		g, ok := groups[email]
		if !ok {
			g = &group{email: email}
			groups[email] = g
			order = append(order, email)
		}
		if g.name == "" {
			g.name = name
		}
		if g.phone == "" {
			g.phone = strings.TrimSpace(l.Broker.Phone)
		}

		g.count++
		rate, rateOK := parseDecimal(l.RateTotal)
		if rateOK {
			g.revenue = g.revenue.Add(rate)
		}

		// RPM averages only over loads with usable mileage; invalid miles
		// are excluded, not treated as zero.
		if miles, ok := parseDecimal(l.Miles); ok && miles.IsPositive() && rateOK {
			g.rpmSum = g.rpmSum.Add(rate.DivRound(miles, 4))
			g.rpmN++
		}

		if d := earliestPickupDate(l); d != "" {
			if g.first == "" || d < g.first {
				g.first = d
			}
			if g.last == "" || d > g.last {
				g.last = d
			}
		}
	}

	for _, email := range order {
		g := groups[email]
		b := entity.Broker{
			AccountID:    account,
			Name:         g.name,
			Email:        g.email,
			Phone:        g.phone,
			TotalLoads:   g.count,
			TotalRevenue: g.revenue.StringFixed(2),
			AvgRate:      avgFixed(g.revenue, g.count),
			AvgRPM:       avgRPM(g.rpmSum, g.rpmN),
		}
		if g.first != "" {
			b.FirstLoadDate = &g.first
		}
		if g.last != "" {
			b.LastLoadDate = &g.last
		}

		created, upErr := a.brokers.UpsertAggregates(ctx, b)
		if upErr != nil {
			a.log.Error("crm.sync.broker_failed", "account", account, "email", g.email, "error", upErr)
			continue
		}
		synced++
		if !created {
			updated++
		}
	}

	a.log.Info("crm.sync.done",
		"account", account,
		"loads", len(loads),
		"brokers", len(groups),
		"synced", synced,
		"updated", updated,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return synced, updated, nil
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

func avgFixed(sum decimal.Decimal, n int) string {
	if n == 0 {
		return "0.00"
	}
	return sum.DivRound(decimal.NewFromInt(int64(n)), 2).StringFixed(2)
}

func avgRPM(sum decimal.Decimal, n int) string {
	if n == 0 {
		return "" // missing data, not zero
	}
	return sum.DivRound(decimal.NewFromInt(int64(n)), 2).StringFixed(2)
}

// earliestPickupDate returns the smallest parseable pickup date on the load
// in YYYY-MM-DD form, or "" when none parses.
func earliestPickupDate(l entity.Load) string {
	best := ""
	for _, s := range l.Stops {
		if s.Type != "pickup" {
			continue
		}
		d := strings.TrimSpace(s.Date)
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			continue
		}
		if best == "" || d < best {
			best = d
		}
	}
	return best
}
