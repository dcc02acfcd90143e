package engine

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const permissionsQuery = "data.inotebook.permissions.permissions"

// DefaultRegoPolicy grants the user features to verified accounts and the admin views to admins.
const DefaultRegoPolicy = `package inotebook.permissions

user_features := ["notes", "tasks", "games", "messages", "images"]

admin_features := ["admin:users", "admin:stats", "admin:audit"]

permissions contains p if {
	input.user.email_verified
	some p in user_features
}

permissions contains p if {
	input.user.email_verified
	input.user.is_admin
	some p in admin_features
}
`

// fallbackPermissions is used when evaluation fails; it never includes admin features.
var fallbackPermissions = []string{"notes"}

// OPAEvaluator evaluates the permissions policy using OPA Rego. The policy is compiled once.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles policy (DefaultRegoPolicy when empty) and prepares the permissions query.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultRegoPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"permissions.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	q, err := rego.New(
		rego.Query(permissionsQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// Permissions evaluates the policy for s and returns the sorted permission set.
// On evaluation failure it logs and returns the minimal non-admin fallback along with the error.
func (e *OPAEvaluator) Permissions(ctx context.Context, s Subject) ([]string, error) {
	input := map[string]interface{}{
		"user": map[string]interface{}{
			"id":             s.UserID,
			"is_admin":       s.IsAdmin,
			"email_verified": s.EmailVerified,
		},
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		log.Printf("policy: evaluation failed: %v, using fallback", err)
		return append([]string(nil), fallbackPermissions...), err
	}
	return decodeSet(rs), nil
}

// HealthCheck evaluates the prepared query for a sample admin and checks the admin features come back.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	perms, err := e.Permissions(ctx, Subject{UserID: "healthcheck", IsAdmin: true, EmailVerified: true})
	if err != nil {
		return fmt.Errorf("eval policy: %w", err)
	}
	if len(perms) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

func decodeSet(rs rego.ResultSet) []string {
	out := []string{}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return out
	}
	values, ok := rs[0].Expressions[0].Value.([]interface{})
	if !ok {
		return out
	}
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
