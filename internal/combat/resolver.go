// Package combat resolves battles between two unit forces. Resolution is a
// pure function of its inputs plus the injected random source: the full
// outcome is computed before any state is mutated elsewhere.
package combat

import (
	"math/rand"

	"github.com/talgya/warfront/internal/catalog"
)

// Force maps unit name to count. Built from a player's holdings at the moment
// combat is invoked; never persisted on its own.
type Force map[string]int

// Weather names map to combat modifiers applied to the attacker.
type Weather string

const (
	WeatherClear Weather = "clear"
	WeatherRain  Weather = "rain"
	WeatherStorm Weather = "storm"
	WeatherFog   Weather = "fog"
)

// BonusSource supplies technology combat bonuses per unit category.
// A nil source means no bonuses.
type BonusSource interface {
	CombatBonus(cat catalog.UnitCategory) float64
}

// Config carries the hand-tuned balance constants of the casualty and odds
// model. Kept configurable rather than re-derived.
type Config struct {
	BaseCasualtyRate     float64 // Fraction of each unit type lost in battle
	WinnerCasualtyFactor float64 // Multiplier on the winning side
	LoserCasualtyFactor  float64 // Multiplier on the losing side
	WinnerMoraleGain     float64
	LoserMoraleLoss      float64
	HighInfraThreshold   float64 // Infrastructure above this boosts the attacker
	LowInfraThreshold    float64 // Infrastructure below this hinders the attacker
	HighInfraModifier    float64
	LowInfraModifier     float64
}

func DefaultConfig() Config {
	return Config{
		BaseCasualtyRate:     0.1,
		WinnerCasualtyFactor: 0.5,
		LoserCasualtyFactor:  1.5,
		WinnerMoraleGain:     5,
		LoserMoraleLoss:      10,
		HighInfraThreshold:   0.8,
		LowInfraThreshold:    0.3,
		HighInfraModifier:    1.1,
		LowInfraModifier:     0.9,
	}
}

// Input describes one battle.
type Input struct {
	AttackerID     int64
	DefenderID     int64
	Attacker       Force
	Defender       Force
	AttackerMorale float64 // 0-100
	DefenderMorale float64 // 0-100
	Infrastructure float64 // Target province infrastructure, 0-1
	Weather        Weather
	// Per-side technology bonuses; either may be nil.
	AttackerBonus BonusSource
	DefenderBonus BonusSource
}

// Result is the fully computed battle outcome.
type Result struct {
	WinnerID            int64
	Odds                float64 // Attacker win probability that was drawn against
	AttackerCasualties  map[string]int
	DefenderCasualties  map[string]int
	AttackerMoraleDelta float64
	DefenderMoraleDelta float64
}

// Resolver computes battle outcomes from catalog unit stats.
type Resolver struct {
	cfg     Config
	catalog *catalog.Catalog
}

func NewResolver(cfg Config, cat *catalog.Catalog) *Resolver {
	return &Resolver{cfg: cfg, catalog: cat}
}

// Power is the combat power of a force: for each unit type,
// count * ((attack+defense)/2) * (morale/100), with that side's technology
// bonuses. A nil bonus source means no bonuses.
func (r *Resolver) Power(f Force, morale float64, bonuses BonusSource) float64 {
	total := 0.0
	moraleFactor := morale / 100.0
	for name, count := range f {
		def, ok := r.catalog.Unit(name)
		if !ok {
			continue
		}
		unitPower := (def.Attack + def.Defense) / 2
		if bonuses != nil {
			unitPower *= 1 + bonuses.CombatBonus(def.Category)
		}
		total += float64(count) * unitPower * moraleFactor
	}
	return total
}

// TerrainModifier derives the attacker's combat modifier from province
// infrastructure: roads and supply lines aid the advancing force, ruins
// hinder it.
func (r *Resolver) TerrainModifier(infrastructure float64) float64 {
	switch {
	case infrastructure > r.cfg.HighInfraThreshold:
		return r.cfg.HighInfraModifier
	case infrastructure < r.cfg.LowInfraThreshold:
		return r.cfg.LowInfraModifier
	default:
		return 1.0
	}
}

// WeatherModifier maps weather to the attacker's combat modifier.
func WeatherModifier(w Weather) float64 {
	switch w {
	case WeatherRain:
		return 0.9
	case WeatherStorm:
		return 0.8
	case WeatherFog:
		return 0.85
	default:
		return 1.0
	}
}

// Odds returns the attacker's win probability in [0, 1]. When both sides
// have zero power the battle is a coin flip; a lone zero-power side loses in
// the limit without special-casing.
func (r *Resolver) Odds(in Input) float64 {
	attackerPower := r.Power(in.Attacker, in.AttackerMorale, in.AttackerBonus) *
		r.TerrainModifier(in.Infrastructure) * WeatherModifier(in.Weather)
	defenderPower := r.Power(in.Defender, in.DefenderMorale, in.DefenderBonus)

	total := attackerPower + defenderPower
	if total == 0 {
		return 0.5
	}
	odds := attackerPower / total
	if odds < 0 {
		return 0
	}
	if odds > 1 {
		return 1
	}
	return odds
}

// Resolve runs one battle: a single Bernoulli draw for the winner, then a
// shared casualty jitter draw. Casualties never exceed a side's unit counts.
func (r *Resolver) Resolve(in Input, rng *rand.Rand) Result {
	odds := r.Odds(in)
	attackerWins := rng.Float64() < odds

	// One jitter factor for both sides keeps the winner's casualty rate
	// strictly below the loser's.
	jitter := 0.8 + 0.4*rng.Float64()
	baseRate := r.cfg.BaseCasualtyRate * jitter

	attackerRate := baseRate * r.cfg.LoserCasualtyFactor
	defenderRate := baseRate * r.cfg.WinnerCasualtyFactor
	if attackerWins {
		attackerRate = baseRate * r.cfg.WinnerCasualtyFactor
		defenderRate = baseRate * r.cfg.LoserCasualtyFactor
	}

	res := Result{
		Odds:               odds,
		AttackerCasualties: casualties(in.Attacker, attackerRate),
		DefenderCasualties: casualties(in.Defender, defenderRate),
	}
	if attackerWins {
		res.WinnerID = in.AttackerID
		res.AttackerMoraleDelta = r.cfg.WinnerMoraleGain
		res.DefenderMoraleDelta = -r.cfg.LoserMoraleLoss
	} else {
		res.WinnerID = in.DefenderID
		res.AttackerMoraleDelta = -r.cfg.LoserMoraleLoss
		res.DefenderMoraleDelta = r.cfg.WinnerMoraleGain
	}
	return res
}

// casualties applies the rate per unit type, truncated to integers, floored
// at zero, and never above the pre-battle count.
func casualties(f Force, rate float64) map[string]int {
	out := make(map[string]int, len(f))
	for name, count := range f {
		lost := int(float64(count) * rate)
		if lost < 0 {
			lost = 0
		}
		if lost > count {
			lost = count
		}
		out[name] = lost
	}
	return out
}
