// Package orchestrator implements the top-level Orchestrator: the main
// loop that shuffles villages each cycle, runs the VillagePipeline per
// village, computes the next wake-up, and handles the fail-safety
// signals (session expiry, CAPTCHA, bot protection) that pause or
// interrupt the loop.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/villabot/villabot/internal/humanizer"
	"github.com/villabot/villabot/internal/logging"
	"github.com/villabot/villabot/internal/panelstate"
	"github.com/villabot/villabot/internal/pipeline"
	"github.com/villabot/villabot/internal/villaerr"
)

// errorBackoff is how long the loop sleeps after an unrecognized cycle
// error before retrying.
const errorBackoff = 30 * time.Second

// pausedPollInterval is how often a paused loop rechecks its state.
const pausedPollInterval = 5 * time.Second

// Reauthenticator re-establishes a session after ErrSessionExpired.
type Reauthenticator interface {
	Reauthenticate() error
}

// ResolveWaiter blocks until an external actor resolves a fail-safety
// condition (CAPTCHA solved, bot protection manually cleared) or ctx is
// cancelled. protection.Monitor satisfies this.
type ResolveWaiter interface {
	WaitForResolve(ctx context.Context) error
}

// FillScavengeRunner performs the fill-scavenge top-up pass the main
// loop triggers between cycles when there's slack before the next
// wake-up. Constructing its per-village arguments is the wiring layer's
// job; this package only decides when to call it.
type FillScavengeRunner interface {
	Run(now time.Time) error
}

// FarmCooldownProvider optionally exposes the earliest farm-rerun
// cooldown so it can feed the wake-up computation. ReportRunner
// implementations that track this should also implement it.
type FarmCooldownProvider interface {
	NextFarmCooldown() (float64, bool)
}

// Config holds the orchestrator's scheduling parameters.
type Config struct {
	VillageIDs    []int
	ActiveHours   string
	ActiveDelay   humanizer.Range
	InactiveDelay humanizer.Range
}

// Orchestrator runs the main village cycle loop.
type Orchestrator struct {
	store     *panelstate.Store
	pipe      *pipeline.Pipeline
	managers  []pipeline.Manager
	report    pipeline.ReportRunner
	humanizer *humanizer.Humanizer

	villageIDs    []int
	window        activeWindow
	activeDelay   humanizer.Range
	inactiveDelay humanizer.Range

	protection   ResolveWaiter
	captcha      ResolveWaiter
	reauth       Reauthenticator
	fillScavenge FillScavengeRunner

	// driverMu serializes browser-driver access across the orchestrator's
	// own goroutine and any background poller (e.g. protection.Monitor's
	// periodic DOM check) sharing the same browser.Driver.
	driverMu sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New constructs an Orchestrator. managers and report are shared across
// every village in cfg.VillageIDs; per-village gating happens inside the
// pipeline via the PanelStateStore toggles.
func New(store *panelstate.Store, pipe *pipeline.Pipeline, managers []pipeline.Manager, report pipeline.ReportRunner, h *humanizer.Humanizer, cfg Config) (*Orchestrator, error) {
	win, err := parseActiveHours(cfg.ActiveHours)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		store:         store,
		pipe:          pipe,
		managers:      managers,
		report:        report,
		humanizer:     h,
		villageIDs:    append([]int(nil), cfg.VillageIDs...),
		window:        win,
		activeDelay:   cfg.ActiveDelay,
		inactiveDelay: cfg.InactiveDelay,
		stopCh:        make(chan struct{}),
	}, nil
}

// SetProtectionWaiter wires the bot-protection fail-safety path.
func (o *Orchestrator) SetProtectionWaiter(w ResolveWaiter) { o.protection = w }

// SetCaptchaWaiter wires the CAPTCHA fail-safety path.
func (o *Orchestrator) SetCaptchaWaiter(w ResolveWaiter) { o.captcha = w }

// SetReauthenticator wires the session-expiry fail-safety path.
func (o *Orchestrator) SetReauthenticator(r Reauthenticator) { o.reauth = r }

// SetFillScavengeRunner wires the between-cycle fill-scavenge trigger.
func (o *Orchestrator) SetFillScavengeRunner(r FillScavengeRunner) { o.fillScavenge = r }

// SetVillageIDs replaces the cycle's village order, e.g. after the
// operator adds or removes a village.
func (o *Orchestrator) SetVillageIDs(ids []int) { o.villageIDs = append([]int(nil), ids...) }

// DriverMu returns the mutex guarding shared browser-driver access.
func (o *Orchestrator) DriverMu() *sync.Mutex { return &o.driverMu }

// Start transitions the loop to running, resuming it if paused.
func (o *Orchestrator) Start() { o.store.SetBotState(panelstate.StateRunning) }

// Pause transitions the loop to paused; the main loop notices on its
// next poll and sleeps without running any villages.
func (o *Orchestrator) Pause() { o.store.SetBotState(panelstate.StatePaused) }

// Stop requests a graceful shutdown; Run returns once it notices.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
}

// Run executes the main loop until ctx is cancelled or Stop is called.
func (o *Orchestrator) Run(ctx context.Context) error {
	log := logging.Get("orchestrator")
	if o.store.BotState() != panelstate.StatePaused {
		o.store.SetBotState(panelstate.StateInitializing)
		o.store.SetBotState(panelstate.StateRunning)
	}

	// innerCtx is cancelled by either the caller's ctx or a local Stop()
	// call, so a sleeping loop wakes immediately on either signal instead
	// of finishing its current sleep first.
	innerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-o.stopCh:
			cancel()
		case <-innerCtx.Done():
		}
	}()

	stopped := func() error {
		o.store.SetBotState(panelstate.StateStopped)
		if err := ctx.Err(); err != nil {
			return err
		}
		return nil
	}

	for {
		select {
		case <-innerCtx.Done():
			return stopped()
		default:
		}

		if o.store.BotState() == panelstate.StatePaused {
			if !sleepCtx(innerCtx, pausedPollInterval) {
				return stopped()
			}
			continue
		}

		now := time.Now()
		if !o.window.inWindow(now) {
			delay := o.humanizer.CycleDelay(o.inactiveDelay.Low, o.inactiveDelay.High)
			if !sleepCtx(innerCtx, secondsToDuration(delay)) {
				return stopped()
			}
			continue
		}

		order := o.humanizer.Shuffle(append([]int(nil), o.villageIDs...))
		var events WakeEvents
		for _, vid := range order {
			if o.store.BotState() != panelstate.StateRunning {
				break
			}
			result, err := o.pipe.Run(vid, o.managers, o.report)
			if err != nil {
				log.Warn().Err(err).Int("village", vid).Msg("cycle_error")
				if !o.handleFailure(innerCtx, err) {
					return stopped()
				}
				continue
			}
			events = foldEvents(events, result)
		}

		if fc, ok := o.report.(FarmCooldownProvider); ok {
			if wait, has := fc.NextFarmCooldown(); has {
				events.FarmCooldown = wait
				events.HasFarmCooldown = true
			}
		}

		wake := ComputeWakeUp(events, o.humanizer, o.activeDelay)
		o.store.SetTimer("next_cycle", "Next cycle", now.Add(secondsToDuration(wake)))

		if o.fillScavenge != nil && events.HasScavengeReturn && events.ScavengeReturn > 120 && wake > 120 {
			if err := o.fillScavenge.Run(now); err != nil {
				log.Warn().Err(err).Msg("fill_scavenge_failed")
			}
			// Recompute the wake-up from the scavenge return and any
			// positive farm cooldown only; build events are not considered.
			post := events.ScavengeReturn
			if events.HasFarmCooldown && events.FarmCooldown > 0 && events.FarmCooldown < post {
				post = events.FarmCooldown
			}
			wake = post + o.humanizer.CycleDelay(10, 30)
			o.store.SetTimer("next_cycle", "Next cycle", now.Add(secondsToDuration(wake)))
		}

		if !sleepCtx(innerCtx, secondsToDuration(wake)) {
			return stopped()
		}
	}
}

// handleFailure dispatches a cycle error to its fail-safety path.
// Returns false if ctx was cancelled while waiting, signalling Run to
// exit.
func (o *Orchestrator) handleFailure(ctx context.Context, err error) bool {
	log := logging.Get("orchestrator")

	switch {
	case errors.Is(err, villaerr.ErrSessionExpired):
		log.Warn().Msg("session_expired, reauthenticating")
		if o.reauth != nil {
			if rerr := o.reauth.Reauthenticate(); rerr != nil {
				log.Error().Err(rerr).Msg("reauthenticate_failed")
				return sleepCtx(ctx, errorBackoff)
			}
		}
		return true

	case errors.Is(err, villaerr.ErrCaptchaRequired):
		log.Warn().Msg("captcha_required, pausing")
		o.store.SetBotState(panelstate.StatePaused)
		if o.captcha != nil {
			if werr := o.captcha.WaitForResolve(ctx); werr != nil {
				return false
			}
		}
		o.store.SetBotState(panelstate.StateRunning)
		return true

	case errors.Is(err, villaerr.ErrProtectionDetected):
		log.Warn().Msg("protection_detected, pausing")
		o.store.SetBotState(panelstate.StatePaused)
		if o.protection != nil {
			if werr := o.protection.WaitForResolve(ctx); werr != nil {
				return false
			}
		}
		o.store.SetBotState(panelstate.StateRunning)
		return true

	default:
		return sleepCtx(ctx, errorBackoff)
	}
}

// foldEvents merges one village's pipeline result into the running
// minimum-per-event-kind accumulator.
func foldEvents(acc WakeEvents, r pipeline.Result) WakeEvents {
	if r.HasScavengeWait && (!acc.HasScavengeReturn || r.ScavengeWaitSeconds < acc.ScavengeReturn) {
		acc.ScavengeReturn = r.ScavengeWaitSeconds
		acc.HasScavengeReturn = true
	}
	if !r.BuildQueueFinishTS.IsZero() {
		wait := time.Until(r.BuildQueueFinishTS).Seconds()
		if !acc.HasBuildFinish || wait < acc.BuildFinish {
			acc.BuildFinish = wait
			acc.HasBuildFinish = true
		}
	}
	if r.BuildResourceWait > 0 && (!acc.HasResourceWait || r.BuildResourceWait < acc.ResourceWait) {
		acc.ResourceWait = r.BuildResourceWait
		acc.HasResourceWait = true
	}
	return acc
}

// sleepCtx sleeps for d or returns false early if ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
