package check

import (
	"github.com/optimode/emailprobe/internal/parse"
	"github.com/optimode/emailprobe/internal/role"
	"github.com/optimode/emailprobe/types"
)

// RoleChecker flags role mailboxes such as admin@ or support@, which
// usually reach a team rather than a person.
type RoleChecker struct{}

func NewRoleChecker() *RoleChecker {
	return &RoleChecker{}
}

func (c *RoleChecker) Check(email parse.Email) types.CheckOutcome {
	if role.IsRoleBased(email.Local) {
		return types.CheckOutcome{
			Stage:   types.StageRoleBased,
			Message: "role-based address (" + email.Local + ")",
		}
	}
	return types.CheckOutcome{Stage: types.StageRoleBased, Passed: true, Message: "not a role-based address"}
}
