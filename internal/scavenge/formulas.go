// Package scavenge implements the ScavengePlanner: unlocked-tier
// detection, carry-weighted equal-runtime allocation across tiers, and
// return-time tracking.
package scavenge

import (
	"math"
	"sort"

	"github.com/villabot/villabot/internal/village"
)

// ScavengeableUnits lists the unit ids eligible for scavenging (no siege
// or noble units).
var ScavengeableUnits = []string{"spear", "sword", "axe", "archer", "light", "marcher", "heavy"}

func isScavengeable(unit string) bool {
	for _, u := range ScavengeableUnits {
		if u == unit {
			return true
		}
	}
	return false
}

// CarryCapacity returns the total carry capacity of a troop allocation
// given each unit's per-unit carry.
func CarryCapacity(troops village.TroopCount, carries map[string]int) int {
	total := 0
	for unit, count := range troops {
		if count <= 0 {
			continue
		}
		total += count * carries[unit]
	}
	return total
}

// Duration returns the scavenge mission duration in seconds for the given
// carry capacity, tier and world speed:
//
//	((cap^2 * 100 * ratio^2)^0.45 + 1800) * speed^-0.55
func Duration(carryCap int, tier village.ScavengeTier, worldSpeed float64) float64 {
	if carryCap <= 0 {
		return 0
	}
	ratio := village.LootRatios[tier]
	if ratio == 0 {
		ratio = 0.10
	}
	inner := float64(carryCap) * float64(carryCap) * 100 * ratio * ratio
	return (math.Pow(inner, 0.45) + 1800) * math.Pow(worldSpeed, -0.55)
}

// Loot returns the expected loot for the given carry capacity and tier.
func Loot(carryCap int, tier village.ScavengeTier) float64 {
	ratio := village.LootRatios[tier]
	if ratio == 0 {
		ratio = 0.10
	}
	return float64(carryCap) * ratio
}

// ResourcesPerHour returns the resources-per-hour rate for a mission of
// the given carry capacity, tier and world speed.
func ResourcesPerHour(carryCap int, tier village.ScavengeTier, worldSpeed float64) float64 {
	duration := Duration(carryCap, tier, worldSpeed)
	if duration <= 0 {
		return 0
	}
	return Loot(carryCap, tier) / duration * 3600
}

// EqualRuntimeWeights computes the per-tier troop weight that makes
// runtimes equal across all given tiers: weight = 1/ratio.
func EqualRuntimeWeights(tiers []village.ScavengeTier) map[village.ScavengeTier]float64 {
	out := make(map[village.ScavengeTier]float64, len(tiers))
	for _, tier := range tiers {
		if ratio, ok := village.LootRatios[tier]; ok {
			out[tier] = 1.0 / ratio
		}
	}
	return out
}

// AllocateByRatio splits available troops across tiers by carry-capacity
// targets derived from weights. Troops are filled from the highest tier
// down to the second-lowest greedily (largest-carry unit first), then ALL
// remaining troops are dumped into the lowest tier number present in
// weights -- so zero troops stay idle. unitCarries maps unit -> per-unit
// carry capacity; unknown units default to village.DefaultUnitCarry.
func AllocateByRatio(available village.TroopCount, weights map[village.ScavengeTier]float64, unitCarries map[string]int) map[village.ScavengeTier]village.TroopCount {
	weightSum := 0.0
	for _, w := range weights {
		weightSum += w
	}
	if weightSum <= 0 {
		return nil
	}

	pool := make(village.TroopCount)
	for unit, count := range available {
		if count > 0 && isScavengeable(unit) {
			pool[unit] = count
		}
	}
	if len(pool) == 0 {
		return nil
	}

	carryOf := func(unit string) int {
		if c, ok := unitCarries[unit]; ok {
			return c
		}
		return village.DefaultUnitCarry
	}

	totalCarry := 0
	for unit, count := range pool {
		totalCarry += count * carryOf(unit)
	}
	if totalCarry <= 0 {
		return nil
	}

	dumpTier := lowestTier(weights)

	allocations := make(map[village.ScavengeTier]village.TroopCount, len(weights))
	for tier := range weights {
		allocations[tier] = village.TroopCount{}
	}

	remaining := pool.Clone()

	tiersDesc := make([]village.ScavengeTier, 0, len(weights))
	for tier := range weights {
		tiersDesc = append(tiersDesc, tier)
	}
	sort.Slice(tiersDesc, func(i, j int) bool { return tiersDesc[i] > tiersDesc[j] })

	for _, tier := range tiersDesc {
		if tier == dumpTier {
			continue
		}
		target := float64(totalCarry) * weights[tier] / weightSum
		filled := 0.0

		unitsByCarry := make([]string, 0, len(remaining))
		for unit := range remaining {
			unitsByCarry = append(unitsByCarry, unit)
		}
		sort.Slice(unitsByCarry, func(i, j int) bool { return carryOf(unitsByCarry[i]) > carryOf(unitsByCarry[j]) })

		for _, unit := range unitsByCarry {
			avail := remaining[unit]
			if avail <= 0 {
				continue
			}
			carryPer := carryOf(unit)
			if carryPer <= 0 {
				continue
			}
			gap := target - filled
			if gap <= 0 {
				break
			}
			take := int(math.Floor(gap / float64(carryPer)))
			if take > avail {
				take = avail
			}
			if take > 0 {
				allocations[tier][unit] += take
				remaining[unit] -= take
				filled += float64(take) * float64(carryPer)
			}
		}
	}

	for unit, count := range remaining {
		if count > 0 {
			allocations[dumpTier][unit] += count
		}
	}

	out := make(map[village.ScavengeTier]village.TroopCount, len(allocations))
	for tier, troops := range allocations {
		if len(troops) > 0 {
			out[tier] = troops
		}
	}
	return out
}

func lowestTier(weights map[village.ScavengeTier]float64) village.ScavengeTier {
	first := true
	var min village.ScavengeTier
	for tier := range weights {
		if first || tier < min {
			min = tier
			first = false
		}
	}
	return min
}
