package game

import (
	"fmt"
	"time"

	"github.com/talgya/warfront/internal/catalog"
	"github.com/talgya/warfront/internal/combat"
	"github.com/talgya/warfront/internal/ledger"
	"github.com/talgya/warfront/internal/notify"
)

// BuildUnits buys count units of one type. Technology prerequisites on the
// unit definition must all be researched.
func (s *Service) BuildUnits(player ledger.PlayerID, unit string, count int) error {
	if count <= 0 {
		return fmt.Errorf("build %s: %w", unit, ErrInvalidQuantity)
	}
	def, ok := s.catalog.Unit(unit)
	if !ok {
		return fmt.Errorf("build %q: %w", unit, ErrUnknownUnit)
	}
	if len(def.Prerequisites) > 0 {
		done := make(map[string]bool)
		for _, name := range s.tracker.CompletedTechnologies(player) {
			done[name] = true
		}
		for _, prereq := range def.Prerequisites {
			if !done[prereq] {
				return fmt.Errorf("build %q needs %q: %w", unit, prereq, ErrTechRequired)
			}
		}
	}

	total := def.Cost * float64(count)
	err := s.ledger.Debit(player, catalog.ResourceGold, total, ledger.TxMeta{
		Kind:        ledger.TxSpend,
		UnitPrice:   def.Cost,
		Description: fmt.Sprintf("Built %d %s", count, unit),
	})
	if err != nil {
		return fmt.Errorf("build %s: %w", unit, err)
	}

	s.mu.Lock()
	if s.units[player] == nil {
		s.units[player] = make(map[string]int)
	}
	s.units[player][unit] += count
	s.mu.Unlock()
	return nil
}

// Attack resolves a battle over one of the defender's provinces. All checks
// run before any mutation; once resolution starts, casualties, morale, and
// ownership settle in fixed attacker-then-defender order.
func (s *Service) Attack(attacker, defender ledger.PlayerID, provinceID int64) (combat.Result, error) {
	if attacker == defender {
		return combat.Result{}, ErrSelfAttack
	}
	province, ok := s.atlas.Get(provinceID)
	if !ok {
		return combat.Result{}, fmt.Errorf("province %d: %w", provinceID, ErrUnknownProvince)
	}
	if province.Owner != int64(defender) {
		return combat.Result{}, fmt.Errorf("province %d owned by %d: %w", provinceID, province.Owner, ErrNotProvince)
	}
	if morale := s.ledger.Morale(attacker); morale < s.cfg.MinAttackMorale {
		return combat.Result{}, fmt.Errorf("morale %.0f below %.0f: %w", morale, s.cfg.MinAttackMorale, ErrMoraleTooLow)
	}

	now := s.clk.Now()
	s.mu.Lock()
	if last, ok := s.lastAttack[attacker]; ok {
		if wait := s.cfg.AttackCooldown - now.Sub(last); wait > 0 {
			s.mu.Unlock()
			return combat.Result{}, fmt.Errorf("%s remaining: %w", wait.Round(time.Second), ErrAttackCooldown)
		}
	}
	attackerForce := forceFrom(s.units[attacker])
	defenderForce := forceFrom(s.units[defender])
	s.mu.Unlock()

	if len(attackerForce) == 0 {
		return combat.Result{}, fmt.Errorf("player %d: %w", attacker, ErrNoUnits)
	}

	in := combat.Input{
		AttackerID:     int64(attacker),
		DefenderID:     int64(defender),
		Attacker:       attackerForce,
		Defender:       defenderForce,
		AttackerMorale: s.ledger.Morale(attacker),
		DefenderMorale: s.ledger.Morale(defender),
		Infrastructure: province.Infrastructure,
		Weather:        province.Weather,
		AttackerBonus:  s.tracker.EffectsFor(attacker),
		DefenderBonus:  s.tracker.EffectsFor(defender),
	}

	s.rngMu.Lock()
	result := s.resolver.Resolve(in, s.rng)
	s.rngMu.Unlock()

	// Settlement. Attacker first, then defender, every time.
	s.mu.Lock()
	s.lastAttack[attacker] = now
	applyCasualties(s.units[attacker], result.AttackerCasualties)
	applyCasualties(s.units[defender], result.DefenderCasualties)
	s.mu.Unlock()

	s.ledger.AdjustMorale(attacker, result.AttackerMoraleDelta)
	s.ledger.AdjustMorale(defender, result.DefenderMoraleDelta)

	if result.WinnerID == int64(attacker) {
		s.atlas.SetOwner(provinceID, int64(attacker))
	}
	// Fighting damages the province either way.
	s.atlas.AdjustInfrastructure(provinceID, -0.05)

	if s.bus != nil {
		s.bus.Publish(notify.KindCombatResolved, notify.CombatResolved{
			AttackerID:         int64(attacker),
			DefenderID:         int64(defender),
			ProvinceID:         provinceID,
			WinnerID:           result.WinnerID,
			Odds:               result.Odds,
			AttackerCasualties: result.AttackerCasualties,
			DefenderCasualties: result.DefenderCasualties,
			AttackerMorale:     s.ledger.Morale(attacker),
			DefenderMorale:     s.ledger.Morale(defender),
		})
	}
	return result, nil
}

// forceFrom copies unit holdings into a combat force, skipping zero counts.
func forceFrom(units map[string]int) combat.Force {
	f := make(combat.Force, len(units))
	for name, n := range units {
		if n > 0 {
			f[name] = n
		}
	}
	return f
}

// applyCasualties subtracts losses in place, deleting emptied entries.
func applyCasualties(units map[string]int, losses map[string]int) {
	for name, lost := range losses {
		units[name] -= lost
		if units[name] <= 0 {
			delete(units, name)
		}
	}
}
