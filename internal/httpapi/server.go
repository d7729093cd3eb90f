// Package httpapi exposes villabot's headless-mode HTTP surface: health
// and status endpoints, control actions, per-village toggles, the build
// queue, and a WebSocket upgrade endpoint. Grounded on the teacher's
// internal/ws/server.go Server/authorize/SetupRoutes idiom, translated
// from the teacher's session-dashboard routes to spec.md §6's control
// surface.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/villabot/villabot/internal/action"
	"github.com/villabot/villabot/internal/config"
	"github.com/villabot/villabot/internal/logging"
	"github.com/villabot/villabot/internal/panelstate"
	"github.com/villabot/villabot/internal/projection"
)

// validFillUnits is the set spec.md §6 requires POST /api/fill-unit/{unit}
// to validate against.
var validFillUnits = map[string]bool{"spear": true, "sword": true, "axe": true, "archer": true}

// Server wires the HTTP surface to the store, the action bus and the
// WebSocket broadcaster.
type Server struct {
	cfg         *config.Config
	store       *panelstate.Store
	bus         *action.Bus
	broadcaster *projection.Broadcaster
	profile     string
	authToken   string
	startedAt   time.Time

	activeVillageID atomic.Int64

	upgrader websocket.Upgrader
}

// NewServer constructs a Server. authToken, if non-empty, is required on
// every request (query param, header, or bearer token) exactly as the
// teacher's dashboard server requires it.
func NewServer(cfg *config.Config, store *panelstate.Store, bus *action.Bus, broadcaster *projection.Broadcaster, profile, authToken string) *Server {
	return &Server{
		cfg:         cfg,
		store:       store,
		bus:         bus,
		broadcaster: broadcaster,
		profile:     profile,
		authToken:   authToken,
		startedAt:   time.Now(),
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// SetActiveVillage records the village currently selected in the panel,
// surfaced by GET /api/villages.
func (s *Server) SetActiveVillage(id int) {
	s.activeVillageID.Store(int64(id))
}

// SetupRoutes registers every spec.md §6 route on mux.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.withAuth(s.handleHealth))
	mux.HandleFunc("GET /api/status", s.withAuth(s.handleStatus))
	mux.HandleFunc("POST /api/control/{action}", s.withAuth(s.handleControl))
	mux.HandleFunc("GET /api/toggles", s.withAuth(s.handleGetToggles))
	mux.HandleFunc("POST /api/toggles/{feature}", s.withAuth(s.handleSetToggle))
	mux.HandleFunc("GET /api/villages", s.withAuth(s.handleVillages))
	mux.HandleFunc("GET /api/build-queue/{vid}", s.withAuth(s.handleGetBuildQueue))
	mux.HandleFunc("POST /api/build-queue/{vid}", s.withAuth(s.handlePostBuildQueue))
	mux.HandleFunc("DELETE /api/build-queue/{vid}/{index}", s.withAuth(s.handleDeleteBuildQueueEntry))
	mux.HandleFunc("GET /api/config", s.withAuth(s.handleGetConfig))
	mux.HandleFunc("POST /api/farm-threshold/{value}", s.withAuth(s.handleFarmThreshold))
	mux.HandleFunc("POST /api/bot-protection/resolve", s.withAuth(s.handleResolveProtection))
	mux.HandleFunc("POST /api/fill-unit/{unit}", s.withAuth(s.handleFillUnit))
	mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) withAuth(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorize(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fn(w, r)
	}
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	if r.URL.Query().Get("token") == s.authToken {
		return true
	}
	if r.Header.Get("X-Villabot-Token") == s.authToken {
		return true
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.store.ToSnapshot()
	writeJSON(w, map[string]interface{}{
		"status":          "ok",
		"bot_state":       snap.BotState,
		"profile":         s.profile,
		"villages":        len(snap.Villages),
		"uptime_seconds":  time.Since(s.startedAt).Seconds(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.ToSnapshot())
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	act := r.PathValue("action")
	var kind action.Kind
	switch act {
	case "start":
		kind = action.KindStart
	case "pause":
		kind = action.KindPause
	case "stop":
		kind = action.KindStop
	default:
		http.Error(w, "unknown control action", http.StatusBadRequest)
		return
	}
	s.bus.Dispatch(action.Command{Kind: kind})
	writeJSON(w, map[string]interface{}{"status": "ok", "bot_state": s.store.BotState()})
}

func (s *Server) handleGetToggles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.ToSnapshot().Toggles)
}

func (s *Server) handleSetToggle(w http.ResponseWriter, r *http.Request) {
	feature := r.PathValue("feature")
	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		http.Error(w, "enabled must be true or false", http.StatusBadRequest)
		return
	}
	s.store.SetGlobalToggle(feature, enabled)
	writeJSON(w, map[string]interface{}{"feature": feature, "enabled": enabled})
}

func (s *Server) handleVillages(w http.ResponseWriter, r *http.Request) {
	snap := s.store.ToSnapshot()
	ids := make([]int, 0, len(snap.Villages))
	for _, v := range snap.Villages {
		ids = append(ids, v.VillageID)
	}
	writeJSON(w, map[string]interface{}{
		"village_ids":       ids,
		"active_village_id": int(s.activeVillageID.Load()),
		"statuses":          snap.Villages,
	})
}

func pathVillageID(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("vid"))
}

func (s *Server) handleGetBuildQueue(w http.ResponseWriter, r *http.Request) {
	vid, err := pathVillageID(r)
	if err != nil {
		http.Error(w, "invalid village id", http.StatusBadRequest)
		return
	}
	writeJSON(w, s.store.BuildQueue(vid))
}

func (s *Server) handlePostBuildQueue(w http.ResponseWriter, r *http.Request) {
	vid, err := pathVillageID(r)
	if err != nil {
		http.Error(w, "invalid village id", http.StatusBadRequest)
		return
	}
	var body struct {
		Building string `json:"building"`
		Level    int    `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	s.bus.Dispatch(action.Command{Kind: action.KindBuildQueueAdd, VillageID: vid, Building: body.Building, Level: body.Level})
	writeJSON(w, s.store.BuildQueue(vid))
}

func (s *Server) handleDeleteBuildQueueEntry(w http.ResponseWriter, r *http.Request) {
	vid, err := pathVillageID(r)
	if err != nil {
		http.Error(w, "invalid village id", http.StatusBadRequest)
		return
	}
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}
	s.bus.Dispatch(action.Command{Kind: action.KindBuildQueueRemove, VillageID: vid, Index: idx})
	writeJSON(w, s.store.BuildQueue(vid))
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.cfg)
}

func (s *Server) handleFarmThreshold(w http.ResponseWriter, r *http.Request) {
	value, err := strconv.Atoi(r.PathValue("value"))
	if err != nil {
		http.Error(w, "invalid threshold", http.StatusBadRequest)
		return
	}
	s.bus.Dispatch(action.Command{Kind: action.KindFarmThreshold, FarmThreshold: value})
	writeJSON(w, map[string]interface{}{"farm_threshold": value})
}

func (s *Server) handleResolveProtection(w http.ResponseWriter, r *http.Request) {
	s.bus.Dispatch(action.Command{Kind: action.KindBotProtectionResolved})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFillUnit(w http.ResponseWriter, r *http.Request) {
	unit := r.PathValue("unit")
	if !validFillUnits[unit] {
		http.Error(w, fmt.Sprintf("unsupported fill unit %q", unit), http.StatusBadRequest)
		return
	}
	s.bus.Dispatch(action.Command{Kind: action.KindFillUnit, Unit: unit, Enabled: true})
	writeJSON(w, map[string]interface{}{"unit": unit, "enabled": true})
}

// inboundMessage is the shape of a client-originated WebSocket message:
// {action, value}, matching spec.md §6.
type inboundMessage struct {
	Action string      `json:"action"`
	Value  interface{} `json:"value"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Get("httpapi").Warn().Err(err).Msg("ws_upgrade_failed")
		return
	}
	client := s.broadcaster.AddClient(conn)
	defer s.broadcaster.RemoveClient(client)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Get("httpapi").Debug().Err(err).Msg("ws_inbound_unparseable")
			continue
		}
		cmd, ok := commandFromInbound(msg)
		if !ok {
			logging.Get("httpapi").Debug().Str("action", msg.Action).Msg("ws_inbound_unrecognized")
			continue
		}
		s.bus.Dispatch(cmd)
	}
}

// ListenAndServe starts the HTTP server on host:port.
func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	logging.Get("httpapi").Info().Str("addr", addr).Msg("listening")
	return http.ListenAndServe(addr, mux)
}
