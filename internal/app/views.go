package app

import (
	"context"

	"github.com/dukerupert/kinboard/internal/bus"
	"github.com/dukerupert/kinboard/internal/checklist"
	"github.com/dukerupert/kinboard/internal/dashboard"
	"github.com/dukerupert/kinboard/internal/dinnereditor"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/fsm"
	"github.com/dukerupert/kinboard/internal/imagecapture"
	"github.com/dukerupert/kinboard/internal/model"
	"github.com/dukerupert/kinboard/internal/navigation"
	"github.com/dukerupert/kinboard/internal/shopping"
	"github.com/dukerupert/kinboard/internal/todoeditor"
)

// feature is the machine mounted for one entry of the view stack. Views
// without a machine of their own get an empty feature.
type feature struct {
	view     navigation.View
	dispatch func(event.Event)
	state    func() any
	attachTo func(*bus.Bus) func()
	release  func()
	stop     func()
}

func mountMachine[S fsm.State](v navigation.View, m *fsm.Machine[S]) *feature {
	return &feature{
		view:     v,
		dispatch: func(ev event.Event) { m.Dispatch(ev) },
		state:    func() any { return m.State() },
		attachTo: m.Attach,
	}
}

func (f *feature) attach(b *bus.Bus) {
	if f.attachTo != nil && f.release == nil {
		f.release = f.attachTo(b)
	}
}

func (f *feature) detach() {
	if f.release != nil {
		f.release()
		f.release = nil
	}
}

func (f *feature) unmount() {
	f.detach()
	if f.stop != nil {
		f.stop()
	}
}

// syncViews mounts and unmounts feature machines to match the dashboard's
// view stack. Only the machine of the top view listens to the bus; the ones
// beneath it keep their state until they are on top again.
func (r *Runtime) syncViews() {
	s := r.Dashboard.State()
	var stack navigation.Stack
	if s.Name == dashboard.Loaded {
		stack = s.Stack
	}

	r.viewMu.Lock()
	defer r.viewMu.Unlock()

	keep := 0
	for keep < len(r.mounted) && keep < len(stack) && r.mounted[keep].view == stack[keep] {
		keep++
	}
	if keep == len(r.mounted) && keep == len(stack) {
		return
	}

	if n := len(r.mounted); n > 0 {
		r.mounted[n-1].detach()
	}
	for i := len(r.mounted) - 1; i >= keep; i-- {
		r.logger.Debug("unmount", "view", r.mounted[i].view.Kind)
		r.mounted[i].unmount()
	}
	r.mounted = r.mounted[:keep]

	var fresh []*feature
	for _, v := range stack[keep:] {
		r.logger.Debug("mount", "view", v.Kind, "id", v.ID)
		f := r.mount(v, s.Data, s.User)
		r.mounted = append(r.mounted, f)
		fresh = append(fresh, f)
	}
	if n := len(r.mounted); n > 0 {
		r.mounted[n-1].attach(r.bus)
	}

	// Image capture starts the camera as soon as it is shown.
	for _, f := range fresh {
		if f.view.Kind == navigation.CaptureImage && f.dispatch != nil {
			f.dispatch(event.New(imagecapture.ActionStart, nil))
		}
	}
}

func (r *Runtime) mount(v navigation.View, data dashboard.Data, user model.User) *feature {
	switch v.Kind {
	case navigation.GroceriesShopping:
		return mountMachine(v, shopping.New(data.Groceries, r.run))
	case navigation.CheckLists:
		return mountMachine(v, checklist.New(v.ID, user.ID, data.CheckListItems, r.run))
	case navigation.EditDinner:
		d, ok := data.Dinners[v.ID]
		if !ok {
			d = model.Dinner{ID: v.ID}
		}
		return mountMachine(v, dinnereditor.New(d, !ok, r.run))
	case navigation.EditTodo:
		t, ok := data.Todos[v.ID]
		if !ok {
			t = model.Todo{ID: v.ID}
		}
		return mountMachine(v, todoeditor.New(t, !ok, r.opts.Now, r.run))
	case navigation.CaptureImage:
		f := mountMachine(v, imagecapture.New(r.run))
		if r.camera != nil {
			f.stop = func() { r.enqueue(func(context.Context) { r.camera.Stop() }) }
		}
		return f
	}
	return &feature{view: v}
}

// deliverBeneathTop hands ev to the nearest machine under the top view.
func (r *Runtime) deliverBeneathTop(ev event.Event) {
	r.viewMu.Lock()
	var target *feature
	for i := len(r.mounted) - 2; i >= 0; i-- {
		if r.mounted[i].dispatch != nil {
			target = r.mounted[i]
			break
		}
	}
	r.viewMu.Unlock()

	if target == nil {
		r.logger.Warn("no machine to receive event", "type", ev.Type)
		return
	}
	target.dispatch(ev)
}

// View returns the top view and the state of its machine, nil when the
// view has none.
func (r *Runtime) View() (navigation.View, any) {
	r.viewMu.Lock()
	defer r.viewMu.Unlock()
	if len(r.mounted) == 0 {
		return navigation.View{}, nil
	}
	top := r.mounted[len(r.mounted)-1]
	if top.state == nil {
		return top.view, nil
	}
	return top.view, top.state()
}

func (r *Runtime) push(v navigation.View) error {
	if r.Dashboard.State().Name != dashboard.Loaded {
		return ErrNotLoaded
	}
	r.Send(event.New(dashboard.ActionPushView, v))
	return nil
}

func (r *Runtime) OpenShopping() error {
	return r.push(navigation.View{Kind: navigation.GroceriesShopping})
}

func (r *Runtime) OpenCheckList(todoID string) error {
	return r.push(navigation.View{Kind: navigation.CheckLists, ID: todoID})
}

func (r *Runtime) OpenDinners() error {
	return r.push(navigation.View{Kind: navigation.Dinners})
}

func (r *Runtime) OpenPlanNextWeek(subView string) error {
	return r.push(navigation.View{Kind: navigation.PlanNextWeek, SubView: subView})
}

func (r *Runtime) EditDinner(id string) error {
	return r.push(navigation.View{Kind: navigation.EditDinner, ID: id})
}

// NewDinner opens the editor on a dinner with a freshly minted id.
func (r *Runtime) NewDinner() (string, error) {
	return r.pushNew(model.KindDinner, navigation.EditDinner)
}

func (r *Runtime) EditTodo(id string) error {
	return r.push(navigation.View{Kind: navigation.EditTodo, ID: id})
}

func (r *Runtime) NewTodo() (string, error) {
	return r.pushNew(model.KindTodo, navigation.EditTodo)
}

func (r *Runtime) pushNew(kind model.Kind, view string) (string, error) {
	if r.Dashboard.State().Name != dashboard.Loaded {
		return "", ErrNotLoaded
	}
	id, err := r.store.CreateID(kind)
	if err != nil {
		return "", err
	}
	return id, r.push(navigation.View{Kind: view, ID: id})
}

func (r *Runtime) CaptureImage() error {
	return r.push(navigation.View{Kind: navigation.CaptureImage})
}

// Back pops the top view.
func (r *Runtime) Back() {
	r.Send(event.New(dashboard.ActionPopView, nil))
}
