package app

import (
	"context"

	"github.com/dukerupert/kinboard/internal/command"
	"github.com/dukerupert/kinboard/internal/dashboard"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/fsm"
)

// run is the fsm.Runner of every machine. It only queues the command.
func (r *Runtime) run(cmd fsm.Command) {
	r.enqueue(func(ctx context.Context) { r.execute(ctx, cmd) })
}

// execute hands one command to the collaborator responsible for it.
func (r *Runtime) execute(ctx context.Context, cmd fsm.Command) {
	r.logger.Debug("command", "command", cmd.Command())

	switch c := cmd.(type) {
	// Session
	case command.SignIn:
		if err := r.identity.SignIn(ctx, c.Email, c.Password); err != nil {
			r.logger.Info("sign in failed", "error", err)
		}
	case command.SignOut:
		if err := r.identity.SignOut(ctx); err != nil {
			r.logger.Warn("sign out", "error", err)
		}
	case command.CreateFamily:
		if _, err := r.identity.CreateFamily(ctx, c.Name); err != nil {
			r.logger.Warn("create family", "error", err)
		}
	case command.CheckVersion:
		r.versions.Check(ctx)
	case command.ReloadApp:
		if r.opts.Reload != nil {
			r.opts.Reload(c.Version)
		}

	// Loading
	case command.LoadFamily:
		r.store.Configure(c.FamilyID, c.UserID)
		r.rejected(cmd, r.store.FetchAll())

	// Groceries
	case command.StoreGrocery:
		r.rejected(cmd, r.store.StoreGrocery(c.Grocery))
	case command.IncreaseShopCount:
		r.rejected(cmd, r.store.IncreaseShopCount(c.ID))
	case command.DecreaseShopCount:
		r.rejected(cmd, r.store.DecreaseShopCount(c.ID))
	case command.ShopGrocery:
		r.rejected(cmd, r.store.ShopGrocery(c.ID, c.ListLength, c.Position))
	case command.DeleteGrocery:
		r.rejected(cmd, r.store.DeleteGrocery(c.ID))

	// Todos
	case command.StoreTodo:
		r.rejected(cmd, r.store.StoreTodo(c.Todo, c.CheckList))
	case command.ArchiveTodo:
		r.rejected(cmd, r.store.ArchiveTodo(c.ID))
	case command.StoreCheckListItem:
		r.rejected(cmd, r.store.StoreCheckListItem(c.Item))
	case command.DeleteCheckListItem:
		r.rejected(cmd, r.store.DeleteCheckListItem(c.ID))

	// Dinners and weeks
	case command.StoreDinner:
		r.rejected(cmd, r.store.StoreDinner(c.Dinner))
	case command.DeleteDinner:
		r.rejected(cmd, r.store.DeleteDinner(c.ID))
	case command.SetWeekActivity:
		r.rejected(cmd, r.store.SetWeekActivity(c.WeekID, c.TodoID, c.Activity))
	case command.SetWeekDinner:
		r.rejected(cmd, r.store.SetWeekDinner(c.WeekID, c.Weekday, c.DinnerID))

	// Capture
	case command.StartCamera:
		if r.camera == nil {
			r.bus.Publish(event.New(event.CameraError, event.Failure{Message: "no camera configured"}))
			return
		}
		r.camera.Start(ctx)
	case command.Capture:
		if r.camera == nil {
			r.bus.Publish(event.New(event.CameraError, event.Failure{Message: "no camera configured"}))
			return
		}
		r.camera.Capture(ctx)
	case command.UseImage:
		r.deliverBeneathTop(event.New(event.Captured, event.Image{Src: c.Src}))

	// Navigation
	case command.Exit:
		r.bus.Publish(event.New(dashboard.ActionPopView, nil))

	default:
		r.logger.Error("unknown command", "command", cmd.Command())
	}
}

// rejected logs a command storage refused on a precondition.
func (r *Runtime) rejected(cmd fsm.Command, err error) {
	if err != nil {
		r.logger.Error("command rejected", "command", cmd.Command(), "error", err)
	}
}
