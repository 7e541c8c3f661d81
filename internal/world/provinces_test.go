package world

import (
	"testing"
	"time"

	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/combat"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testAtlas() *Atlas {
	return NewAtlas(DefaultProvinces(), 42, epoch)
}

func TestDefaultProvinces(t *testing.T) {
	a := testAtlas()
	all := a.All()
	if len(all) != 12 {
		t.Fatalf("province count = %d, want 12", len(all))
	}
	for i, p := range all {
		if i > 0 && p.ID <= all[i-1].ID {
			t.Fatal("provinces not in ID order")
		}
		if p.Owner != 0 {
			t.Errorf("%s starts owned by %d, want unclaimed", p.Name, p.Owner)
		}
		if p.Infrastructure < 0 || p.Infrastructure > 1 {
			t.Errorf("%s infrastructure %.2f outside [0, 1]", p.Name, p.Infrastructure)
		}
		if len(p.Deposits) == 0 {
			t.Errorf("%s has no deposits", p.Name)
		}
	}
}

func TestWeatherDeterministicPerSeed(t *testing.T) {
	now := epoch.Add(72 * time.Hour)

	a := NewAtlas(DefaultProvinces(), 7, epoch)
	b := NewAtlas(DefaultProvinces(), 7, epoch)
	a.TickWeather(now)
	b.TickWeather(now)

	for _, id := range a.RegionIDs() {
		pa, _ := a.Get(id)
		pb, _ := b.Get(id)
		if pa.Weather != pb.Weather || pa.Temperature != pb.Temperature {
			t.Fatalf("province %d diverged across same-seed atlases: %s/%.2f vs %s/%.2f",
				id, pa.Weather, pa.Temperature, pb.Weather, pb.Temperature)
		}
	}
}

func TestWeatherWithinBounds(t *testing.T) {
	a := testAtlas()
	valid := map[combat.Weather]bool{
		combat.WeatherClear: true, combat.WeatherRain: true,
		combat.WeatherStorm: true, combat.WeatherFog: true,
	}
	for h := 0; h < 24*30; h++ {
		a.TickWeather(epoch.Add(time.Duration(h) * time.Hour))
		for _, p := range a.All() {
			if !valid[p.Weather] {
				t.Fatalf("province %s has unknown weather %q", p.Name, p.Weather)
			}
			if p.Temperature < -5 || p.Temperature > 30 {
				t.Fatalf("province %s temperature %.2f outside [-5, 30]", p.Name, p.Temperature)
			}
		}
	}
}

func TestOwnershipAndClaims(t *testing.T) {
	a := testAtlas()

	p, ok := a.ClaimUnowned(10)
	if !ok {
		t.Fatal("claim on a fresh map failed")
	}
	if p.ID != 1 {
		t.Errorf("claimed province %d, want lowest ID 1", p.ID)
	}

	p2, _ := a.ClaimUnowned(20)
	if p2.ID != 2 {
		t.Errorf("second claim got province %d, want 2", p2.ID)
	}

	owned := a.OwnedBy(10)
	if len(owned) != 1 || owned[0].ID != 1 {
		t.Errorf("OwnedBy(10) = %v, want just province 1", owned)
	}

	// Conquest.
	a.SetOwner(1, 20)
	if got := len(a.OwnedBy(10)); got != 0 {
		t.Errorf("player 10 still owns %d provinces after losing province 1", got)
	}
	if got := len(a.OwnedBy(20)); got != 2 {
		t.Errorf("player 20 owns %d provinces, want 2", got)
	}

	// Exhaust the map.
	for i := 0; i < 10; i++ {
		if _, ok := a.ClaimUnowned(30); !ok {
			t.Fatalf("claim %d failed with provinces remaining", i)
		}
	}
	if _, ok := a.ClaimUnowned(40); ok {
		t.Error("claim succeeded on a fully claimed map")
	}
}

func TestAdjustClamps(t *testing.T) {
	a := testAtlas()

	a.AdjustInfrastructure(1, 5)
	if p, _ := a.Get(1); p.Infrastructure != 1 {
		t.Errorf("infrastructure = %.2f, want clamped to 1", p.Infrastructure)
	}
	a.AdjustInfrastructure(1, -3)
	if p, _ := a.Get(1); p.Infrastructure != 0 {
		t.Errorf("infrastructure = %.2f, want clamped to 0", p.Infrastructure)
	}

	a.AdjustMorale(1, 500)
	if p, _ := a.Get(1); p.Morale != 100 {
		t.Errorf("morale = %.2f, want clamped to 100", p.Morale)
	}
	a.AdjustMorale(1, -500)
	if p, _ := a.Get(1); p.Morale != 0 {
		t.Errorf("morale = %.2f, want clamped to 0", p.Morale)
	}

	// Unknown IDs are ignored.
	a.AdjustInfrastructure(999, 0.5)
	a.AdjustMorale(999, 10)
}

func TestGetReturnsCopy(t *testing.T) {
	a := testAtlas()
	p, _ := a.Get(2)
	p.Deposits[catalog.ResourceFood] = -1

	fresh, _ := a.Get(2)
	if fresh.Deposits[catalog.ResourceFood] == -1 {
		t.Error("mutating a returned province leaked into the atlas")
	}
}

func TestTotalDeposits(t *testing.T) {
	a := NewAtlas([]Province{
		{ID: 1, Deposits: map[catalog.ResourceType]float64{catalog.ResourceIron: 100}},
		{ID: 2, Deposits: map[catalog.ResourceType]float64{catalog.ResourceIron: 50, catalog.ResourceOil: 25}},
	}, 1, epoch)

	totals := a.TotalDeposits()
	if totals[catalog.ResourceIron] != 150 {
		t.Errorf("iron total = %.2f, want 150", totals[catalog.ResourceIron])
	}
	if totals[catalog.ResourceOil] != 25 {
		t.Errorf("oil total = %.2f, want 25", totals[catalog.ResourceOil])
	}
}

func TestRestore(t *testing.T) {
	a := testAtlas()
	a.SetOwner(3, 77)
	a.AdjustInfrastructure(3, -0.2)
	saved := a.All()

	b := testAtlas()
	b.Restore(saved)

	p, ok := b.Get(3)
	if !ok {
		t.Fatal("restored province missing")
	}
	if p.Owner != 77 {
		t.Errorf("restored owner = %d, want 77", p.Owner)
	}
	orig, _ := a.Get(3)
	if p.Infrastructure != orig.Infrastructure {
		t.Errorf("restored infrastructure = %.2f, want %.2f", p.Infrastructure, orig.Infrastructure)
	}
	if got := len(b.RegionIDs()); got != 12 {
		t.Errorf("restored region count = %d, want 12", got)
	}
}
