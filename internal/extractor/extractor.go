// Package extractor defines the pure page-parsing contract villabot's
// planners consume, with a default implementation backed by goquery.
package extractor

import (
	"github.com/villabot/villabot/internal/farm"
	"github.com/villabot/villabot/internal/village"
)

// Extractor is the pure-function contract for turning raw page HTML/XML
// into typed records. Implementations must not touch the network or the
// browser -- they operate only on already-fetched text.
type Extractor interface {
	Resources(html string) (village.Village, error)
	BuildingLevels(html string) (map[string]int, error)
	BuildQueue(html string) ([]village.BuildQueueEntry, error)
	TroopCounts(html string) (village.TroopCount, error)
	ScavengeOptions(html string) ([]village.TierStatus, error)
	IncomingAttacks(html string) (int, error)
	FarmRows(html string) ([]farm.Row, error)
	ParseWorldConfigXML(xml string) (village.WorldParameters, error)
	ParseUnitInfoXML(xml string) (map[string]int, error)
	ParseMapVillageTXT(text string) ([]village.Village, error)
}
