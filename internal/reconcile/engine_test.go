package reconcile

import (
	"testing"

	"github.com/freightline/loadbook/internal/entity"
)

func testLoad(id string) entity.Load {
	return entity.Load{
		LoadID:    id,
		Broker:    entity.BrokerContact{Name: "Acme Logistics", Email: "ops@acme.test"},
		RateTotal: "1500.00",
	}
}

func TestReconcile_AddsNewLoads(t *testing.T) {
	e := NewEngine(nil)

	res := e.Reconcile(nil, []entity.Load{testLoad("L-1"), testLoad("L-2")})

	if res.Added != 2 || res.Merged != 0 || res.Skipped != 0 {
		t.Fatalf("expected 2 added, got added=%d merged=%d skipped=%d", res.Added, res.Merged, res.Skipped)
	}
	if len(res.Canonical) != 2 {
		t.Fatalf("expected 2 canonical loads, got %d", len(res.Canonical))
	}
	if len(res.Writes) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(res.Writes))
	}
}

func TestReconcile_ReingestIsIdempotent(t *testing.T) {
	e := NewEngine(nil)

	first := e.Reconcile(nil, []entity.Load{testLoad("L-1")})
	second := e.Reconcile(first.Canonical, []entity.Load{testLoad("L-1")})

	if second.Added != 0 {
		t.Errorf("re-ingesting the same load should add nothing, added=%d", second.Added)
	}
	if second.Merged != 1 {
		t.Errorf("re-ingesting should report a merge, merged=%d", second.Merged)
	}
	if len(second.Canonical) != 1 {
		t.Fatalf("expected 1 canonical load after re-ingest, got %d", len(second.Canonical))
	}
	if second.Canonical[0].RateTotal != "1500.00" {
		t.Errorf("rate changed across idempotent re-ingest: %q", second.Canonical[0].RateTotal)
	}
}

func TestReconcile_MergeFillsGapsNeverBlanks(t *testing.T) {
	e := NewEngine(nil)

	existing := entity.Load{
		LoadID:    "L-9",
		Broker:    entity.BrokerContact{Name: "Acme Logistics", Email: "ops@acme.test"},
		RateTotal: "2000.00",
		Miles:     "480",
		Stops: []entity.Stop{
			{Type: "pickup", City: "Dallas", State: "TX"},
			{Type: "delivery", City: "Atlanta", State: "GA"},
		},
	}
	// Candidate knows the broker phone but is missing almost everything else.
	candidate := entity.Load{
		LoadID: "L-9",
		Broker: entity.BrokerContact{Name: "Acme Logistics", Phone: "555-0100"},
	}

	res := e.Reconcile([]entity.Load{existing}, []entity.Load{candidate})
	if res.Merged != 1 {
		t.Fatalf("expected merge, got added=%d merged=%d", res.Added, res.Merged)
	}

	got := res.Canonical[0]
	if got.Broker.Phone != "555-0100" {
		t.Errorf("phone gap not filled: %q", got.Broker.Phone)
	}
	if got.Broker.Email != "ops@acme.test" {
		t.Errorf("email blanked by empty candidate value: %q", got.Broker.Email)
	}
	if got.RateTotal != "2000.00" {
		t.Errorf("rate blanked: %q", got.RateTotal)
	}
	if got.Miles != "480" {
		t.Errorf("miles blanked: %q", got.Miles)
	}
	if len(got.Stops) != 2 {
		t.Errorf("stops blanked: %d", len(got.Stops))
	}
}

func TestReconcile_CandidateValuesOverwrite(t *testing.T) {
	e := NewEngine(nil)

	existing := testLoad("L-3")
	candidate := testLoad("L-3")
	candidate.RateTotal = "1750.00"

	res := e.Reconcile([]entity.Load{existing}, []entity.Load{candidate})
	if res.Canonical[0].RateTotal != "1750.00" {
		t.Errorf("present candidate value should win: %q", res.Canonical[0].RateTotal)
	}
}

func TestReconcile_SkipsCandidatesWithoutLoadID(t *testing.T) {
	e := NewEngine(nil)

	res := e.Reconcile(nil, []entity.Load{{LoadID: "  "}, testLoad("L-4")})

	if res.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", res.Skipped)
	}
	if res.Added != 1 {
		t.Errorf("expected 1 added, got %d", res.Added)
	}
	for _, l := range res.Canonical {
		if l.LoadID == "" || l.LoadID == "  " {
			t.Error("blank load_id candidate leaked into the canonical set")
		}
	}
}

func TestReconcile_BatchSelfCollisionCollapsesToOneWrite(t *testing.T) {
	e := NewEngine(nil)

	a := testLoad("L-7")
	a.Miles = "300"
	b := testLoad("L-7")
	b.Miles = ""
	b.Notes = "detention pre-approved"

	res := e.Reconcile(nil, []entity.Load{a, b})

	if res.Added != 1 || res.Merged != 1 {
		t.Fatalf("expected added=1 merged=1, got added=%d merged=%d", res.Added, res.Merged)
	}
	if len(res.Writes) != 1 {
		t.Fatalf("same-id batch candidates must collapse to one write, got %d", len(res.Writes))
	}
	got := res.Writes[0]
	if got.Miles != "300" {
		t.Errorf("earlier candidate's miles lost: %q", got.Miles)
	}
	if got.Notes != "detention pre-approved" {
		t.Errorf("later candidate's notes lost: %q", got.Notes)
	}
}

func TestReconcile_PreservesUnkeyedExisting(t *testing.T) {
	e := NewEngine(nil)

	res := e.Reconcile([]entity.Load{{Notes: "legacy row"}}, []entity.Load{testLoad("L-8")})
	if len(res.Canonical) != 2 {
		t.Fatalf("unkeyed existing row dropped, canonical=%d", len(res.Canonical))
	}
	if len(res.Writes) != 1 {
		t.Fatalf("unkeyed existing row must not be rewritten, writes=%d", len(res.Writes))
	}
}
