// Package navigation holds the view stack shown by the dashboard. The stack
// is a value: every operation returns a new stack and never mutates the
// receiver.
package navigation

// View kinds.
const (
	Dashboard         = "DASHBOARD"
	GroceriesShopping = "GROCERIES_SHOPPING"
	CheckLists        = "CHECKLISTS"
	PlanNextWeek      = "PLAN_NEXT_WEEK"
	Dinners           = "DINNERS"
	EditDinner        = "EDIT_DINNER"
	EditTodo          = "EDIT_TODO"
	CaptureImage      = "CAPTURE_IMAGE"
)

// View identifies a screen. ID selects the edited entity, empty for a new
// one; SubView selects a tab within PLAN_NEXT_WEEK.
type View struct {
	Kind    string `json:"kind"`
	ID      string `json:"id,omitempty"`
	SubView string `json:"sub_view,omitempty"`
}

// Stack is never empty; its first view is the root.
type Stack []View

func NewStack() Stack {
	return Stack{{Kind: Dashboard}}
}

// Top returns the visible view.
func (s Stack) Top() View {
	if len(s) == 0 {
		return View{Kind: Dashboard}
	}
	return s[len(s)-1]
}

// Push shows v. Pushing the view already on top is a no-op.
func (s Stack) Push(v View) Stack {
	if len(s) > 0 && s.Top() == v {
		return s
	}
	out := make(Stack, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}

// Pop removes the top view. The root is never popped.
func (s Stack) Pop() Stack {
	if len(s) <= 1 {
		return s
	}
	out := make(Stack, len(s)-1)
	copy(out, s)
	return out
}

// Replace swaps the top view for v. The root is never replaced: on a
// root-only stack v is pushed instead.
func (s Stack) Replace(v View) Stack {
	if len(s) <= 1 {
		return s.Push(v)
	}
	out := make(Stack, len(s))
	copy(out, s)
	out[len(out)-1] = v
	return out
}
