// Package session tracks who is signed in and whether the running version
// is current.
package session

import (
	"github.com/dukerupert/kinboard/internal/command"
	"github.com/dukerupert/kinboard/internal/event"
	"github.com/dukerupert/kinboard/internal/fsm"
	"github.com/dukerupert/kinboard/internal/model"
)

// States.
const (
	VerifyingAuthentication = "VERIFYING_AUTHENTICATION"
	SigningIn               = "SIGNING_IN"
	SignedIn                = "SIGNED_IN"
	SignedOut               = "SIGNED_OUT"
	NoFamily                = "NO_FAMILY"
	Error                   = "ERROR"
	UpdatingVersion         = "UPDATING_VERSION"
)

// Actions.
const (
	ActionSignIn        = "SIGN_IN"
	ActionCreateFamily  = "CREATE_FAMILY"
	ActionSignOut       = "SIGN_OUT"
	ActionUpdateVersion = "UPDATE_VERSION"
)

// Credentials is the payload of SIGN_IN.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewFamily is the payload of CREATE_FAMILY.
type NewFamily struct {
	Name string `json:"name"`
}

type VersionStatus string

const (
	Pending VersionStatus = "PENDING"
	Recent  VersionStatus = "RECENT"
	Expired VersionStatus = "EXPIRED"
)

// Version is only meaningful while SIGNED_IN.
type Version struct {
	Status  VersionStatus `json:"status"`
	Current string        `json:"current,omitempty"`
	Latest  string        `json:"latest,omitempty"`
}

type State struct {
	Name    string     `json:"name"`
	User    model.User `json:"user"`
	Version Version    `json:"version"`
	Error   string     `json:"error,omitempty"`
}

func (s State) Kind() string { return s.Name }

func Initial() State {
	return State{Name: VerifyingAuthentication}
}

// New returns a session machine in its initial state.
func New(run fsm.Runner) *fsm.Machine[State] {
	return fsm.NewMachine("session", Initial(), Table, run)
}

func signedIn(_ State, ev event.Event) (State, fsm.Command) {
	u, _ := ev.Payload.(model.User)
	return State{Name: SignedIn, User: u, Version: Version{Status: Pending}}, command.CheckVersion{}
}

func noFamily(_ State, ev event.Event) (State, fsm.Command) {
	u, _ := ev.Payload.(model.User)
	return State{Name: NoFamily, User: u}, nil
}

func signedOut(State, event.Event) (State, fsm.Command) {
	return State{Name: SignedOut}, nil
}

func failed(_ State, ev event.Event) (State, fsm.Command) {
	msg := "unknown error"
	if f, ok := ev.Payload.(event.Failure); ok {
		msg = f.Message
	}
	return State{Name: Error, Error: msg}, nil
}

func signIn(s State, ev event.Event) (State, fsm.Command) {
	c, ok := ev.Payload.(Credentials)
	if !ok || c.Email == "" {
		return s, nil
	}
	return State{Name: SigningIn}, command.SignIn{Email: c.Email, Password: c.Password}
}

var Table = fsm.Table[State]{
	VerifyingAuthentication: {
		event.Unauthenticated:         signedOut,
		event.Authenticated:           noFamily,
		event.AuthenticatedWithFamily: signedIn,
		event.AuthenticationError:     failed,
	},
	SignedOut: {
		ActionSignIn:                  signIn,
		event.Authenticated:           noFamily,
		event.AuthenticatedWithFamily: signedIn,
	},
	Error: {
		ActionSignIn:          signIn,
		event.Unauthenticated: signedOut,
	},
	SigningIn: {
		event.AuthenticatedWithFamily: signedIn,
		event.Authenticated:           noFamily,
		event.SignInError:             failed,
		event.AuthenticationError:     failed,
	},
	NoFamily: {
		ActionCreateFamily: func(s State, ev event.Event) (State, fsm.Command) {
			f, ok := ev.Payload.(NewFamily)
			if !ok || f.Name == "" {
				return s, nil
			}
			return s, command.CreateFamily{Name: f.Name}
		},
		event.AuthenticatedWithFamily: signedIn,
		event.Unauthenticated:         signedOut,
		ActionSignOut: func(s State, _ event.Event) (State, fsm.Command) {
			return s, command.SignOut{}
		},
	},
	SignedIn: {
		event.Visible: func(s State, _ event.Event) (State, fsm.Command) {
			return s, command.CheckVersion{}
		},
		event.NewVersion: func(s State, ev event.Event) (State, fsm.Command) {
			info, _ := ev.Payload.(event.VersionInfo)
			s.Version = Version{Status: Expired, Current: info.Version, Latest: info.NewVersion}
			return s, nil
		},
		event.UpToDate: func(s State, _ event.Event) (State, fsm.Command) {
			s.Version = Version{Status: Recent}
			return s, nil
		},
		ActionUpdateVersion: func(s State, _ event.Event) (State, fsm.Command) {
			if s.Version.Status != Expired {
				return s, nil
			}
			latest := s.Version.Latest
			return State{Name: UpdatingVersion, User: s.User, Version: s.Version}, command.ReloadApp{Version: latest}
		},
		ActionSignOut: func(s State, _ event.Event) (State, fsm.Command) {
			return s, command.SignOut{}
		},
		event.AuthenticatedWithFamily: func(s State, ev event.Event) (State, fsm.Command) {
			if u, ok := ev.Payload.(model.User); ok {
				s.User = u
			}
			return s, nil
		},
		event.Authenticated:   noFamily,
		event.Unauthenticated: signedOut,
	},
	// UPDATING_VERSION is terminal: the app is about to reload.
	UpdatingVersion: {},
}
