// Package engine evaluates the permission policy that decides what a signed-in user may open.
package engine

import "context"

// Subject is the policy input describing the signed-in user.
type Subject struct {
	UserID        string
	IsAdmin       bool
	EmailVerified bool
}

// Evaluator returns the permission set for a subject (e.g. "notes", "admin:users").
type Evaluator interface {
	Permissions(ctx context.Context, s Subject) ([]string, error)
}
