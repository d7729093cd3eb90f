package httpapi

import "github.com/villabot/villabot/internal/action"

// commandFromInbound translates a {action, value} WebSocket message into
// the tagged action.Command the ActionBus dispatches on. Value shapes
// vary per action kind, matching spec.md §6's ActionBus command list.
func commandFromInbound(msg inboundMessage) (action.Command, bool) {
	switch msg.Action {
	case "start":
		return action.Command{Kind: action.KindStart}, true
	case "pause":
		return action.Command{Kind: action.KindPause}, true
	case "stop":
		return action.Command{Kind: action.KindStop}, true
	case "bot_protection_resolved":
		return action.Command{Kind: action.KindBotProtectionResolved}, true

	case "toggle_building":
		if b, ok := asBool(msg.Value); ok {
			return action.Command{Kind: action.KindToggleBuilding, Enabled: b}, true
		}
	case "toggle_farming":
		if b, ok := asBool(msg.Value); ok {
			return action.Command{Kind: action.KindToggleFarming, Enabled: b}, true
		}
	case "toggle_scavenging":
		if b, ok := asBool(msg.Value); ok {
			return action.Command{Kind: action.KindToggleScavenging, Enabled: b}, true
		}
	case "toggle_troops":
		if b, ok := asBool(msg.Value); ok {
			return action.Command{Kind: action.KindToggleTroops, Enabled: b}, true
		}

	case "tab_switch":
		if s, ok := msg.Value.(string); ok {
			return action.Command{Kind: action.KindTabSwitch, Tab: s}, true
		}
	case "log_filter":
		if s, ok := msg.Value.(string); ok {
			return action.Command{Kind: action.KindLogFilter, Filter: s}, true
		}

	case "select_village":
		if n, ok := asInt(msg.Value); ok {
			return action.Command{Kind: action.KindSelectVillage, VillageID: n}, true
		}

	case "village_toggle":
		obj, ok := msg.Value.(map[string]interface{})
		if !ok {
			return action.Command{}, false
		}
		vid, _ := asInt(obj["village_id"])
		feature, _ := obj["feature"].(string)
		enabled, _ := asBool(obj["enabled"])
		return action.Command{Kind: action.KindVillageToggle, VillageID: vid, Feature: feature, Enabled: enabled}, true

	case "farm_threshold":
		if n, ok := asInt(msg.Value); ok {
			return action.Command{Kind: action.KindFarmThreshold, FarmThreshold: n}, true
		}

	case "bq_add":
		obj, ok := msg.Value.(map[string]interface{})
		if !ok {
			return action.Command{}, false
		}
		vid, _ := asInt(obj["village_id"])
		building, _ := obj["building"].(string)
		level, _ := asInt(obj["level"])
		return action.Command{Kind: action.KindBuildQueueAdd, VillageID: vid, Building: building, Level: level}, true

	case "bq_remove":
		obj, ok := msg.Value.(map[string]interface{})
		if !ok {
			return action.Command{}, false
		}
		vid, _ := asInt(obj["village_id"])
		idx, _ := asInt(obj["index"])
		return action.Command{Kind: action.KindBuildQueueRemove, VillageID: vid, Index: idx}, true

	case "bq_move":
		obj, ok := msg.Value.(map[string]interface{})
		if !ok {
			return action.Command{}, false
		}
		vid, _ := asInt(obj["village_id"])
		from, _ := asInt(obj["index"])
		to, _ := asInt(obj["to_index"])
		return action.Command{Kind: action.KindBuildQueueMove, VillageID: vid, Index: from, ToIndex: to}, true

	case "bq_clear":
		obj, ok := msg.Value.(map[string]interface{})
		if !ok {
			return action.Command{}, false
		}
		vid, _ := asInt(obj["village_id"])
		return action.Command{Kind: action.KindBuildQueueClear, VillageID: vid}, true

	case "scav_troop":
		obj, ok := msg.Value.(map[string]interface{})
		if !ok {
			return action.Command{}, false
		}
		tier, _ := asInt(obj["tier"])
		unit, _ := obj["unit"].(string)
		return action.Command{Kind: action.KindScavTroop, ScavTier: action.ScavTier(tier), Unit: unit}, true

	case "fill_unit":
		obj, ok := msg.Value.(map[string]interface{})
		if !ok {
			return action.Command{}, false
		}
		unit, _ := obj["unit"].(string)
		enabled, _ := asBool(obj["enabled"])
		return action.Command{Kind: action.KindFillUnit, Unit: unit, Enabled: enabled}, true
	}

	return action.Command{}, false
}

func asBool(v interface{}) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
