package session

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/kinboard/internal/bus"
	"github.com/dukerupert/kinboard/internal/command"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/fsm"
	"github.com/dukerupert/kinboard/internal/model"
)

var ann = model.User{ID: "u1", Name: "Ann", FamilyID: "fam1"}

func newTestMachine() (*fsm.Machine[State], *[]fsm.Command) {
	var cmds []fsm.Command
	m := New(func(c fsm.Command) { cmds = append(cmds, c) })
	return m, &cmds
}

func TestSignInScenario(t *testing.T) {
	m, cmds := newTestMachine()
	assert.Equal(t, VerifyingAuthentication, m.State().Name)

	m.Dispatch(event.New(event.Unauthenticated, nil))
	assert.Equal(t, SignedOut, m.State().Name)

	m.Dispatch(event.New(ActionSignIn, Credentials{Email: "ann@example.com", Password: "pw"}))
	assert.Equal(t, SigningIn, m.State().Name)

	m.Dispatch(event.New(event.AuthenticatedWithFamily, ann))
	s := m.State()
	assert.Equal(t, SignedIn, s.Name)
	assert.Equal(t, Pending, s.Version.Status)
	assert.Equal(t, ann, s.User)

	assert.Equal(t, []fsm.Command{
		command.SignIn{Email: "ann@example.com", Password: "pw"},
		command.CheckVersion{},
	}, *cmds)
}

func TestRestoredSessionChecksVersion(t *testing.T) {
	m, cmds := newTestMachine()

	m.Dispatch(event.New(event.AuthenticatedWithFamily, ann))

	assert.Equal(t, SignedIn, m.State().Name)
	assert.Equal(t, []fsm.Command{command.CheckVersion{}}, *cmds)
}

func TestSignInError(t *testing.T) {
	m, _ := newTestMachine()
	m.Dispatch(event.New(event.Unauthenticated, nil))
	m.Dispatch(event.New(ActionSignIn, Credentials{Email: "ann@example.com"}))
	m.Dispatch(event.New(event.SignInError, event.Failure{Message: "invalid email or password"}))

	s := m.State()
	assert.Equal(t, Error, s.Name)
	assert.Equal(t, "invalid email or password", s.Error)

	// Signing in again from ERROR is allowed.
	m.Dispatch(event.New(ActionSignIn, Credentials{Email: "ann@example.com"}))
	assert.Equal(t, SigningIn, m.State().Name)
}

func TestAuthenticationError(t *testing.T) {
	m, _ := newTestMachine()
	m.Dispatch(event.New(event.AuthenticationError, event.Failure{Message: "disk"}))
	assert.Equal(t, State{Name: Error, Error: "disk"}, m.State())
}

func TestNoFamilyCreatesFamily(t *testing.T) {
	m, cmds := newTestMachine()
	m.Dispatch(event.New(event.Authenticated, model.User{ID: "u1"}))
	require.Equal(t, NoFamily, m.State().Name)

	m.Dispatch(event.New(ActionCreateFamily, NewFamily{Name: ""}))
	m.Dispatch(event.New(ActionCreateFamily, NewFamily{Name: "Smiths"}))
	assert.Equal(t, NoFamily, m.State().Name)

	m.Dispatch(event.New(event.AuthenticatedWithFamily, ann))
	assert.Equal(t, SignedIn, m.State().Name)
	assert.Equal(t, []fsm.Command{command.CreateFamily{Name: "Smiths"}, command.CheckVersion{}}, *cmds)
}

func TestVersionLifecycle(t *testing.T) {
	m, cmds := newTestMachine()
	m.Dispatch(event.New(event.AuthenticatedWithFamily, ann))

	// Updating is ignored until a newer version is known.
	m.Dispatch(event.New(ActionUpdateVersion, nil))
	assert.Equal(t, SignedIn, m.State().Name)

	m.Dispatch(event.New(event.UpToDate, nil))
	assert.Equal(t, Recent, m.State().Version.Status)

	m.Dispatch(event.New(event.Visible, nil))
	m.Dispatch(event.New(event.Visible, nil))
	m.Dispatch(event.New(event.NewVersion, event.VersionInfo{Version: "1.0.0", NewVersion: "1.1.0"}))
	assert.Equal(t, Version{Status: Expired, Current: "1.0.0", Latest: "1.1.0"}, m.State().Version)

	m.Dispatch(event.New(ActionUpdateVersion, nil))
	assert.Equal(t, UpdatingVersion, m.State().Name)

	// Terminal.
	m.Dispatch(event.New(event.Unauthenticated, nil))
	assert.Equal(t, UpdatingVersion, m.State().Name)

	assert.Equal(t, []fsm.Command{
		command.CheckVersion{},
		command.CheckVersion{},
		command.CheckVersion{},
		command.ReloadApp{Version: "1.1.0"},
	}, *cmds)
}

func TestSignOut(t *testing.T) {
	m, cmds := newTestMachine()
	m.Dispatch(event.New(event.AuthenticatedWithFamily, ann))
	m.Dispatch(event.New(ActionSignOut, nil))
	assert.Equal(t, SignedIn, m.State().Name, "state follows the identity event, not the request")

	m.Dispatch(event.New(event.Unauthenticated, nil))
	assert.Equal(t, SignedOut, m.State().Name)
	assert.Contains(t, *cmds, fsm.Command(command.SignOut{}))
}

func TestUnhandledEventsLeaveStateUnchanged(t *testing.T) {
	m, cmds := newTestMachine()
	before := m.State()

	m.Dispatch(event.New(ActionSignIn, Credentials{Email: "x"}))
	m.Dispatch(event.New(event.NewVersion, nil))
	m.Dispatch(event.New("SOMETHING_ELSE", nil))

	assert.Equal(t, before, m.State())
	assert.Empty(t, *cmds)
}

func TestMachineOnBus(t *testing.T) {
	b := bus.New(slog.Default())
	m, _ := newTestMachine()
	release := m.Attach(b)

	b.Publish(event.New(event.Unauthenticated, nil))
	assert.Equal(t, SignedOut, m.State().Name)

	release()
	b.Publish(event.New(event.AuthenticatedWithFamily, ann))
	assert.Equal(t, SignedOut, m.State().Name)
}
