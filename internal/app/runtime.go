// Package app runs kinboard: it owns the event bus and the feature
// machines, and executes the commands they produce against storage and the
// collaborating services.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/kinboard/internal/bus"
	"github.com/dukerupert/kinboard/internal/dashboard"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/fsm"
	"github.com/dukerupert/kinboard/internal/model"
	"github.com/dukerupert/kinboard/internal/navigation"
	"github.com/dukerupert/kinboard/internal/session"
	"github.com/dukerupert/kinboard/internal/storage"
)

// ErrNotLoaded is returned by navigation helpers before the family data
// has loaded.
var ErrNotLoaded = errors.New("app: family data not loaded")

// Identity signs users in and out.
type Identity interface {
	Start(ctx context.Context) error
	SignIn(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	CreateFamily(ctx context.Context, name string) (model.Family, error)
}

type VersionChecker interface {
	Check(ctx context.Context)
}

type Visibility interface {
	Set(visible bool)
}

type Camera interface {
	Start(ctx context.Context)
	Capture(ctx context.Context)
	Stop()
}

// Deps are the collaborators the runtime drives. Visibility and Camera may
// be nil.
type Deps struct {
	Bus        *bus.Bus
	Storage    *storage.Storage
	Identity   Identity
	Versions   VersionChecker
	Visibility Visibility
	Camera     Camera
}

type Options struct {
	// Reload is called when the user accepts a new version.
	Reload func(version string)
	// Now seeds dates in the todo editor.
	Now func() time.Time
}

// Runtime connects the machines to the bus. Commands are executed in order
// on a single worker goroutine, never on the goroutine delivering events.
type Runtime struct {
	bus      *bus.Bus
	store    *storage.Storage
	identity Identity
	versions VersionChecker
	visible  Visibility
	camera   Camera
	logger   *slog.Logger
	opts     Options

	Session   *fsm.Machine[session.State]
	Dashboard *fsm.Machine[dashboard.State]

	qmu     sync.Mutex
	qcond   *sync.Cond
	queue   []func(context.Context)
	running bool
	closed  bool

	viewMu  sync.Mutex
	mounted []*feature

	// opMu serializes the request helpers in actions.go.
	opMu sync.Mutex

	releases []func()
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(deps Deps, logger *slog.Logger, opts Options) *Runtime {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runtime{
		bus:      deps.Bus,
		store:    deps.Storage,
		identity: deps.Identity,
		versions: deps.Versions,
		visible:  deps.Visibility,
		camera:   deps.Camera,
		logger:   logger.With("component", "runtime"),
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	r.qcond = sync.NewCond(&r.qmu)
	r.Session = session.New(r.run)
	r.Dashboard = dashboard.New(r.run)
	r.Dashboard.OnChange(func(dashboard.State) { r.syncViews() })
	go r.work()
	return r
}

// Start attaches the machines and restores the signed-in session.
func (r *Runtime) Start() {
	r.releases = append(r.releases,
		r.Session.Attach(r.bus),
		r.Dashboard.Attach(r.bus),
		r.bus.Subscribe(r.observe),
	)
	r.enqueue(func(ctx context.Context) {
		if err := r.identity.Start(ctx); err != nil {
			r.logger.Error("restore session", "error", err)
		}
	})
}

// observe reacts to events that concern the runtime itself.
func (r *Runtime) observe(ev event.Event) {
	if ev.Type == event.Unauthenticated {
		r.enqueue(func(context.Context) { r.store.Reset() })
	}
}

// Send publishes a user action.
func (r *Runtime) Send(ev event.Event) {
	r.bus.Publish(ev)
}

// SetVisible reports the app moving to the foreground or background.
func (r *Runtime) SetVisible(visible bool) {
	if r.visible != nil {
		r.visible.Set(visible)
	}
}

// Snapshot is everything a client needs to render the current screen.
type Snapshot struct {
	Session   session.State   `json:"session"`
	Dashboard dashboard.State `json:"dashboard"`
	View      navigation.View `json:"view"`
	Feature   any             `json:"feature,omitempty"`
}

func (r *Runtime) Snapshot() Snapshot {
	v, feature := r.View()
	return Snapshot{
		Session:   r.Session.State(),
		Dashboard: r.Dashboard.State(),
		View:      v,
		Feature:   feature,
	}
}

// NewID mints an id for an entity that is about to be created.
func (r *Runtime) NewID(kind model.Kind) (string, error) {
	return r.store.CreateID(kind)
}

func (r *Runtime) enqueue(fn func(context.Context)) {
	r.qmu.Lock()
	defer r.qmu.Unlock()
	if r.closed {
		return
	}
	r.queue = append(r.queue, fn)
	r.qcond.Broadcast()
}

func (r *Runtime) work() {
	defer close(r.done)
	for {
		r.qmu.Lock()
		for len(r.queue) == 0 && !r.closed {
			r.qcond.Wait()
		}
		if len(r.queue) == 0 {
			r.qmu.Unlock()
			return
		}
		fn := r.queue[0]
		r.queue = r.queue[1:]
		r.running = true
		r.qmu.Unlock()

		fn(r.ctx)

		r.qmu.Lock()
		r.running = false
		r.qcond.Broadcast()
		r.qmu.Unlock()
	}
}

func (r *Runtime) waitIdle() {
	r.qmu.Lock()
	defer r.qmu.Unlock()
	for len(r.queue) > 0 || r.running {
		r.qcond.Wait()
	}
}

// Settle blocks until no command is queued or running and every storage
// write has finished.
func (r *Runtime) Settle() {
	for {
		r.waitIdle()
		r.store.Wait()

		r.qmu.Lock()
		quiet := len(r.queue) == 0 && !r.running
		r.qmu.Unlock()
		if quiet {
			return
		}
	}
}

// Close finishes queued commands, detaches every machine and flushes
// storage.
func (r *Runtime) Close() {
	r.qmu.Lock()
	r.closed = true
	r.qcond.Broadcast()
	r.qmu.Unlock()
	<-r.done

	r.viewMu.Lock()
	for i := len(r.mounted) - 1; i >= 0; i-- {
		r.mounted[i].unmount()
	}
	r.mounted = nil
	r.viewMu.Unlock()

	for _, release := range r.releases {
		release()
	}
	if r.camera != nil {
		r.camera.Stop()
	}
	r.store.Close()
	r.cancel()
}
