// Package voting implements the up/down vote state machine for posts and
// comments.
package voting

import "github.com/emilythestrangee/forum/backend/internal/models"

// Action is the storage write a transition requires.
type Action string

const (
	ActionCreate Action = "create"
	ActionSwitch Action = "switch"
	ActionRemove Action = "remove"
)

// Step describes the outcome of applying a requested vote to a user's
// existing vote on a target. An empty Result means the user ends neutral.
type Step struct {
	Action Action
	Result models.VoteType
	Notify bool
}

// Transition applies requested to existing, where existing is "" when the
// user has no vote on the target. Repeating the current vote removes it.
// Only a move into UP from any other state notifies the target's author.
func Transition(existing, requested models.VoteType) Step {
	switch {
	case existing == "":
		return Step{Action: ActionCreate, Result: requested, Notify: requested == models.VoteUp}
	case existing == requested:
		return Step{Action: ActionRemove}
	default:
		return Step{Action: ActionSwitch, Result: requested, Notify: requested == models.VoteUp}
	}
}
