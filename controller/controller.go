// Package controller coordinates the configuration list and the proxy client.
// This file contains the Controller type and its intent loop.
package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/yllada/proxy-tray/common"
	"github.com/yllada/proxy-tray/storage"
	"github.com/yllada/proxy-tray/supervisor"
)

// Runner is the process side of the controller, implemented by
// *supervisor.Supervisor.
type Runner interface {
	Apply(ctx context.Context, enabled bool, cfg *storage.ClientConfig) error
	Stop(ctx context.Context) error
	SetOnError(func(*common.ProcessError))
	SetOnExit(func(supervisor.RunInfo))
	Current() (supervisor.RunInfo, bool)
}

// Status is a read-only snapshot of the controller.
type Status struct {
	State storage.State
	// Running reflects the actual client process, not the desired state.
	Running bool
	RunID   string
	Label   string
	PID     int
	// LastError is the most recent process fault, cleared when a new run
	// starts.
	LastError string
}

// Options configures a Controller.
type Options struct {
	Store        storage.Store
	Runner       Runner
	AutoLauncher common.AutoLauncher
	// Bus receives the notifications; a new bus is created when nil.
	Bus *Bus
}

type intent struct {
	name  string
	fn    func() error
	reply chan error
}

// Controller owns the controller state. All mutations run on the goroutine
// executing Run, one intent at a time.
type Controller struct {
	store  storage.Store
	runner Runner
	auto   common.AutoLauncher
	bus    *Bus
	events *dispatcher

	intents chan intent
	notices chan func()
	exitReq chan struct{}

	closing  chan struct{}
	exitOnce sync.Once
	done     chan struct{}
	started  chan struct{}
	runOnce  sync.Once

	// state is owned by the loop goroutine.
	state storage.State
	ctx   context.Context

	mu     sync.RWMutex
	status Status
}

// New creates a controller. Call Run to start processing intents.
func New(opts Options) *Controller {
	bus := opts.Bus
	if bus == nil {
		bus = NewBus()
	}
	c := &Controller{
		store:   opts.Store,
		runner:  opts.Runner,
		auto:    opts.AutoLauncher,
		bus:     bus,
		intents: make(chan intent, common.IntentQueueSize),
		notices: make(chan func(), common.IntentQueueSize),
		exitReq: make(chan struct{}, 1),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		started: make(chan struct{}),
		state:   storage.DefaultState(),
	}
	c.events = newDispatcher(bus)
	c.status.State = c.state.Clone()

	c.runner.SetOnError(func(pe *common.ProcessError) {
		c.notice(func() { c.handleProcessError(pe) })
	})
	c.runner.SetOnExit(func(info supervisor.RunInfo) {
		c.notice(func() { c.handleExit(info) })
	})
	return c
}

// Bus returns the event bus.
func (c *Controller) Bus() *Bus {
	return c.bus
}

// Subscribe registers handler for eventType. Handlers run in publish order
// on a dedicated goroutine.
func (c *Controller) Subscribe(eventType EventType, handler Handler) {
	c.bus.Subscribe(eventType, handler)
}

// Status returns the current snapshot.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.status
	s.State = c.status.State.Clone()
	return s
}

// Ready is closed once the initial load has been applied.
func (c *Controller) Ready() <-chan struct{} {
	return c.started
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Run loads the persisted state, reconciles the client process and then
// processes intents until RequestExit or ctx cancellation. The client is
// always stopped before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	err := errors.New("controller already running")
	c.runOnce.Do(func() {
		err = c.run(ctx)
	})
	return err
}

func (c *Controller) run(ctx context.Context) error {
	defer close(c.done)
	c.ctx = ctx

	c.state = c.store.Load()
	c.state.Normalize()
	common.LogInfo("Controller: loaded %d configuration(s), selected=%d enabled=%v",
		len(c.state.Configs), c.state.Selected, c.state.Enabled)

	c.syncAutoLaunch()
	c.publish(ConfigsEvent{EventType: EventInitConfigs, Configs: c.configsCopy(), Selected: c.state.Selected})
	c.applyProcess()
	c.publishState()
	close(c.started)

	for {
		// Exit takes priority over anything queued
		select {
		case <-c.exitReq:
			c.shutdown()
			return nil
		default:
		}

		select {
		case <-c.exitReq:
			c.shutdown()
			return nil
		case <-ctx.Done():
			c.beginExit()
			c.shutdown()
			return ctx.Err()
		case fn := <-c.notices:
			fn()
		case it := <-c.intents:
			select {
			case <-c.exitReq:
				it.reply <- common.ErrShuttingDown
				c.shutdown()
				return nil
			default:
			}
			common.LogDebug("Controller: processing %s", it.name)
			it.reply <- it.fn()
		}
	}
}

// RequestExit stops the client and ends Run. Queued intents are rejected
// with ErrShuttingDown. It returns once Run has finished or ctx is done.
func (c *Controller) RequestExit(ctx context.Context) error {
	c.beginExit()
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) beginExit() {
	c.exitOnce.Do(func() {
		common.LogInfo("Controller: exit requested")
		close(c.closing)
		c.exitReq <- struct{}{}
	})
}

func (c *Controller) shutdown() {
	// Stop uses its own bound so exit still completes after ctx is cancelled
	if err := c.runner.Stop(context.Background()); err != nil {
		common.LogError("Controller: failed to stop client: %v", err)
		var pe *common.ProcessError
		if errors.As(err, &pe) {
			c.publish(ExecErrorEvent{Err: pe})
		}
	}
	c.updateRunning()

drain:
	for {
		select {
		case it := <-c.intents:
			it.reply <- common.ErrShuttingDown
		default:
			break drain
		}
	}

	c.publish(SignalEvent{EventType: EventExit})
	c.events.close()
	<-c.events.drained
	common.LogInfo("Controller: stopped")
}

// submit queues fn and waits for its result.
func (c *Controller) submit(ctx context.Context, name string, fn func() error) error {
	it := intent{name: name, fn: fn, reply: make(chan error, 1)}

	select {
	case <-c.closing:
		return common.ErrShuttingDown
	default:
	}

	select {
	case <-c.closing:
		return common.ErrShuttingDown
	case c.intents <- it:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-it.reply:
		return err
	case <-c.done:
		select {
		case err := <-it.reply:
			return err
		default:
			return common.ErrShuttingDown
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// notice runs fn on the loop goroutine without blocking the caller.
func (c *Controller) notice(fn func()) {
	go func() {
		select {
		case c.notices <- fn:
		case <-c.done:
		}
	}()
}

func (c *Controller) publish(ev Event) {
	c.events.publish(ev)
}

func (c *Controller) publishState() {
	c.mu.Lock()
	c.status.State = c.state.Clone()
	snapshot := c.status
	snapshot.State = c.state.Clone()
	c.mu.Unlock()

	c.publish(StateEvent{Status: snapshot})
}

func (c *Controller) publishRefresh() {
	c.publish(ConfigsEvent{EventType: EventRefreshConfigs, Configs: c.configsCopy(), Selected: c.state.Selected})
}

func (c *Controller) configsCopy() []storage.ClientConfig {
	return c.state.Clone().Configs
}

// commit makes next the current state, persists it and reconciles the
// client process, in that order.
func (c *Controller) commit(next storage.State, refresh bool) {
	c.state = next
	c.persist()
	c.applyProcess()
	if refresh {
		c.publishRefresh()
	}
	c.publishState()
}

func (c *Controller) persist() {
	if err := c.store.Save(c.state.Clone()); err != nil {
		common.LogError("Controller: failed to persist state: %v", err)
		c.publish(ErrorEvent{Op: "save state", Err: err})
	}
}

func (c *Controller) applyProcess() {
	if err := c.runner.Apply(c.ctx, c.state.Enabled, c.state.Selection()); err != nil {
		common.LogError("Controller: failed to apply process state: %v", err)
		var pe *common.ProcessError
		if errors.As(err, &pe) {
			c.recordError(pe)
			c.publish(ExecErrorEvent{Err: pe})
		} else {
			c.publish(ErrorEvent{Op: "apply", Err: err})
		}
	}
	c.updateRunning()
}

func (c *Controller) updateRunning() {
	info, ok := c.runner.Current()

	c.mu.Lock()
	defer c.mu.Unlock()
	if ok && info.RunID != c.status.RunID {
		c.status.LastError = ""
	}
	c.status.Running = ok
	c.status.RunID = info.RunID
	c.status.Label = info.Label
	c.status.PID = info.PID
}

func (c *Controller) recordError(pe *common.ProcessError) {
	c.mu.Lock()
	c.status.LastError = pe.Error()
	c.mu.Unlock()
}

func (c *Controller) handleProcessError(pe *common.ProcessError) {
	common.LogWarn("Controller: %v", pe)
	c.updateRunning()
	c.recordError(pe)
	c.publish(ExecErrorEvent{Err: pe})
	c.publishState()
}

func (c *Controller) handleExit(info supervisor.RunInfo) {
	c.mu.RLock()
	stale := info.RunID != c.status.RunID
	c.mu.RUnlock()
	if stale {
		return
	}
	c.updateRunning()
	c.publishState()
}

// syncAutoLaunch aligns the platform registration with the persisted flag.
func (c *Controller) syncAutoLaunch() {
	if c.auto == nil {
		return
	}
	registered, err := c.auto.IsEnabled()
	if err != nil {
		common.LogWarn("Controller: could not query auto-launch: %v", err)
		return
	}
	if registered != c.state.AutoLaunch {
		c.delegateAutoLaunch(c.state.AutoLaunch)
	}
}

func (c *Controller) delegateAutoLaunch(enable bool) {
	if c.auto == nil {
		return
	}
	var err error
	if enable {
		err = c.auto.Enable()
	} else {
		err = c.auto.Disable()
	}
	if err != nil {
		common.LogError("Controller: failed to update auto-launch: %v", err)
		c.publish(ErrorEvent{Op: "auto-launch", Err: err})
	}
}
