package event

import (
	"fmt"
	"strings"
)

// Event is a tagged message carried on the bus. User actions, collaborator
// notifications and storage updates all share this shape.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// New creates an Event with the given type and payload.
func New(typ string, payload any) Event {
	return Event{Type: typ, Payload: payload}
}

// Identity service.
const (
	Authenticated           = "AUTHENTICATED"
	AuthenticatedWithFamily = "AUTHENTICATED_WITH_FAMILY"
	Unauthenticated         = "UNAUTHENTICATED"
	AuthenticationError     = "AUTHENTICATION_ERROR"
	SignInError             = "SIGN_IN_ERROR"
)

// Storage layer.
const (
	GroceriesUpdate      = "GROCERIES_UPDATE"
	TodosUpdate          = "TODOS_UPDATE"
	CheckListItemsUpdate = "CHECKLIST_ITEMS_UPDATE"
	DinnersUpdate        = "DINNERS_UPDATE"
	WeeksUpdate          = "WEEKS_UPDATE"
	FamilyUpdate         = "FAMILY_UPDATE"
	FetchError           = "FETCH_ERROR"
)

// Version and visibility services.
const (
	NewVersion = "NEW_VERSION"
	UpToDate   = "UP_TO_DATE"
	Visible    = "VISIBLE"
	Hidden     = "HIDDEN"
)

// Capture service.
const (
	CameraStarted = "CAMERA_STARTED"
	Captured      = "CAPTURED"
	CameraError   = "CAMERA_ERROR"
)

// Failure carries a human-readable message.
type Failure struct {
	Message string `json:"message"`
}

// FetchFailure reports that a collection could not be loaded.
type FetchFailure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// OperationFailure reports a rejected persistence write. Value holds the
// record (or sub-field value) that was attempted.
type OperationFailure struct {
	Op      string `json:"op"`
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Key     string `json:"key,omitempty"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

// VersionInfo is carried by NEW_VERSION.
type VersionInfo struct {
	Version    string `json:"version"`
	NewVersion string `json:"new_version"`
}

// Image is carried by CAPTURED.
type Image struct {
	Src string `json:"src"`
}

// OperationErrorType returns the error event type for a failed write, for
// example STORE_GROCERY_ERROR.
func OperationErrorType(op, kind string) string {
	return fmt.Sprintf("%s_%s_ERROR", strings.ToUpper(op), strings.ToUpper(kind))
}

// IsOperationError reports whether typ names a failed write event.
func IsOperationError(typ string) bool {
	if !strings.HasSuffix(typ, "_ERROR") {
		return false
	}
	for _, op := range []string{"STORE_", "DELETE_", "SET_"} {
		if strings.HasPrefix(typ, op) {
			return true
		}
	}
	return false
}
