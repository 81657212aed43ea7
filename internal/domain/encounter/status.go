package encounter

// Status is the visit workflow state. Transitions only move forward; a
// signed note is never reopened, only amended.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusSigned     Status = "signed"
	StatusAmended    Status = "amended"
)

var statusOrder = map[Status]int{
	StatusDraft:      0,
	StatusInProgress: 1,
	StatusCompleted:  2,
	StatusSigned:     3,
	StatusAmended:    4,
}

// Valid reports whether s is a known workflow state.
func (s Status) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// CanTransitionTo reports whether the workflow may move from s to next.
// The workflow only moves forward; a note never returns to an earlier
// state.
func (s Status) CanTransitionTo(next Status) bool {
	cur, ok := statusOrder[s]
	if !ok {
		return false
	}
	nxt, ok := statusOrder[next]
	if !ok {
		return false
	}
	return nxt > cur
}
