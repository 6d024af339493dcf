package visibility

import (
	"github.com/google/uuid"

	"github.com/almutairi-dev/tawseel-backend/pkg/enums"
	pkgerrors "github.com/almutairi-dev/tawseel-backend/pkg/errors"
)

// Scope limits which orders a query may return. A nil BranchID means the
// actor sees every branch. The scope is applied inside the repository query
// layer so it cannot be bypassed by calling the repository directly.
type Scope struct {
	BranchID *uuid.UUID
}

// Unrestricted reports whether the scope imposes no branch restriction.
func (s Scope) Unrestricted() bool {
	return s.BranchID == nil
}

// Allows reports whether an order in the given branch is visible under the scope.
func (s Scope) Allows(branchID uuid.UUID) bool {
	return s.BranchID == nil || *s.BranchID == branchID
}

// ScopeFor derives the query scope for an actor. Branch managers are pinned
// to their own branch; every other role sees all branches.
func ScopeFor(role enums.ActorRole, branchID *uuid.UUID) (Scope, error) {
	if !role.IsValid() {
		return Scope{}, pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}
	if role != enums.ActorRoleBranchManager {
		return Scope{}, nil
	}
	if branchID == nil || *branchID == uuid.Nil {
		return Scope{}, pkgerrors.New(pkgerrors.CodeForbidden, "branch manager without branch assignment")
	}
	id := *branchID
	return Scope{BranchID: &id}, nil
}
