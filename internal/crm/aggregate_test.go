package crm

import (
	"context"
	"testing"

	"github.com/freightline/loadbook/internal/entity"
	"github.com/freightline/loadbook/internal/repository"
)

const account = "carrier@example.test"

func brokeredLoad(id, rate, miles, pickupDate string) entity.Load {
	return entity.Load{
		LoadID:    id,
		Broker:    entity.BrokerContact{Name: "Acme Logistics", Email: "ops@acme.test"},
		RateTotal: rate,
		Miles:     miles,
		Stops: []entity.Stop{
			{Type: "pickup", City: "Dallas", State: "TX", Date: pickupDate},
			{Type: "delivery", City: "Atlanta", State: "GA"},
		},
	}
}

func TestSyncFromLoads_Aggregates(t *testing.T) {
	store := repository.NewMemoryStore()
	agg := NewAggregator(store.Brokers(), nil)
	ctx := context.Background()

	loads := []entity.Load{
		brokeredLoad("L-1", "1000.00", "500", "2026-01-05"),
		brokeredLoad("L-2", "2000.00", "1000", "2026-02-10"),
	}
	synced, updated, err := agg.SyncFromLoads(ctx, account, loads)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if synced != 1 || updated != 0 {
		t.Fatalf("expected synced=1 updated=0, got %d/%d", synced, updated)
	}

	brokers, err := store.Brokers().ListByAccount(ctx, account)
	if err != nil {
		t.Fatalf("list brokers: %v", err)
	}
	if len(brokers) != 1 {
		t.Fatalf("expected 1 broker, got %d", len(brokers))
	}
	b := brokers[0]
	if b.TotalLoads != 2 {
		t.Errorf("total_loads = %d, want 2", b.TotalLoads)
	}
	if b.TotalRevenue != "3000.00" {
		t.Errorf("total_revenue = %q, want 3000.00", b.TotalRevenue)
	}
	if b.AvgRate != "1500.00" {
		t.Errorf("avg_rate = %q, want 1500.00", b.AvgRate)
	}
	// RPMs are 2.00 each, so the mean is 2.00.
	if b.AvgRPM != "2.00" {
		t.Errorf("avg_rpm = %q, want 2.00", b.AvgRPM)
	}
	if b.FirstLoadDate == nil || *b.FirstLoadDate != "2026-01-05" {
		t.Errorf("first_load_date = %v, want 2026-01-05", b.FirstLoadDate)
	}
	if b.LastLoadDate == nil || *b.LastLoadDate != "2026-02-10" {
		t.Errorf("last_load_date = %v, want 2026-02-10", b.LastLoadDate)
	}
	if b.Status != entity.BrokerProspect {
		t.Errorf("new broker status = %q, want prospect", b.Status)
	}
}

func TestSyncFromLoads_ExcludesInvalidMilesFromRPM(t *testing.T) {
	store := repository.NewMemoryStore()
	agg := NewAggregator(store.Brokers(), nil)
	ctx := context.Background()

	loads := []entity.Load{
		brokeredLoad("L-1", "1000.00", "500", ""), // rpm 2.00
		brokeredLoad("L-2", "999.00", "", ""),     // no miles: excluded
		brokeredLoad("L-3", "999.00", "0", ""),    // zero miles: excluded
		brokeredLoad("L-4", "999.00", "n/a", ""),  // unparseable: excluded
	}
	if _, _, err := agg.SyncFromLoads(ctx, account, loads); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	brokers, _ := store.Brokers().ListByAccount(ctx, account)
	if brokers[0].AvgRPM != "2.00" {
		t.Errorf("avg_rpm = %q, want 2.00 (invalid miles must not dilute)", brokers[0].AvgRPM)
	}
	if brokers[0].TotalLoads != 4 {
		t.Errorf("total_loads = %d, want 4 (exclusion is RPM-only)", brokers[0].TotalLoads)
	}
}

func TestSyncFromLoads_NoUsableMilesMeansMissingRPM(t *testing.T) {
	store := repository.NewMemoryStore()
	agg := NewAggregator(store.Brokers(), nil)
	ctx := context.Background()

	if _, _, err := agg.SyncFromLoads(ctx, account, []entity.Load{
		brokeredLoad("L-1", "1000.00", "", ""),
	}); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	brokers, _ := store.Brokers().ListByAccount(ctx, account)
	if brokers[0].AvgRPM != "" {
		t.Errorf("avg_rpm = %q, want empty (missing data, not zero)", brokers[0].AvgRPM)
	}
}

func TestSyncFromLoads_PreservesUserOwnedFields(t *testing.T) {
	store := repository.NewMemoryStore()
	agg := NewAggregator(store.Brokers(), nil)
	ctx := context.Background()

	loads := []entity.Load{brokeredLoad("L-1", "1000.00", "500", "2026-01-05")}
	if _, _, err := agg.SyncFromLoads(ctx, account, loads); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	brokers, _ := store.Brokers().ListByAccount(ctx, account)
	status, notes := entity.BrokerActive, "pays in 15 days"
	if _, err := store.Brokers().UpdateUserFields(ctx, account, brokers[0].ID, repository.BrokerUserFields{
		Status: &status,
		Notes:  &notes,
	}); err != nil {
		t.Fatalf("update user fields: %v", err)
	}

	loads = append(loads, brokeredLoad("L-2", "2000.00", "1000", "2026-02-10"))
	synced, updated, err := agg.SyncFromLoads(ctx, account, loads)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if synced != 1 || updated != 1 {
		t.Fatalf("expected synced=1 updated=1, got %d/%d", synced, updated)
	}

	brokers, _ = store.Brokers().ListByAccount(ctx, account)
	b := brokers[0]
	if b.Status != entity.BrokerActive {
		t.Errorf("sync overwrote user-owned status: %q", b.Status)
	}
	if b.Notes != "pays in 15 days" {
		t.Errorf("sync overwrote user-owned notes: %q", b.Notes)
	}
	if b.TotalLoads != 2 {
		t.Errorf("aggregates not refreshed, total_loads = %d", b.TotalLoads)
	}
}

func TestSyncFromLoads_Idempotent(t *testing.T) {
	store := repository.NewMemoryStore()
	agg := NewAggregator(store.Brokers(), nil)
	ctx := context.Background()

	loads := []entity.Load{brokeredLoad("L-1", "1000.00", "500", "2026-01-05")}
	if _, _, err := agg.SyncFromLoads(ctx, account, loads); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	first, _ := store.Brokers().ListByAccount(ctx, account)

	if _, _, err := agg.SyncFromLoads(ctx, account, loads); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	second, _ := store.Brokers().ListByAccount(ctx, account)

	if len(second) != 1 {
		t.Fatalf("idempotent sync duplicated brokers: %d", len(second))
	}
	if first[0].TotalRevenue != second[0].TotalRevenue || first[0].AvgRPM != second[0].AvgRPM {
		t.Errorf("aggregates changed across identical syncs: %+v vs %+v", first[0], second[0])
	}
}

func TestSyncFromLoads_SkipsLoadsWithoutBrokerIdentity(t *testing.T) {
	store := repository.NewMemoryStore()
	agg := NewAggregator(store.Brokers(), nil)
	ctx := context.Background()

	loads := []entity.Load{
		{LoadID: "L-1", Broker: entity.BrokerContact{Name: "No Email Corp"}, RateTotal: "100.00"},
		{LoadID: "L-2", Broker: entity.BrokerContact{Email: "anon@x.test"}, RateTotal: "100.00"},
	}
	synced, _, err := agg.SyncFromLoads(ctx, account, loads)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if synced != 0 {
		t.Errorf("loads without name+email must not create brokers, synced=%d", synced)
	}
}
