// Package policy holds the static role-to-permission mapping consulted by
// the route guard after identity verification.
package policy

import "github.com/shacademia/estudy/internal/model"

// Permission names a guarded action.
type Permission string

const (
	PermCreateQuestion  Permission = "question:create"
	PermEditQuestion    Permission = "question:edit"
	PermDeleteQuestion  Permission = "question:delete"
	PermImportQuestions Permission = "question:import"
	PermDraftQuestions  Permission = "question:draft"
	PermManageExam      Permission = "exam:manage"
	PermPublishExam     Permission = "exam:publish"
	PermViewSubmissions Permission = "submission:view_all"
	PermTakeExam        Permission = "exam:take"
	PermChangeRole      Permission = "user:change_role"
	PermToggleActive    Permission = "user:toggle_active"
	PermListUsers       Permission = "user:list"
)

var rolePermissions = map[model.Role]map[Permission]bool{
	model.RoleAdmin: {
		PermCreateQuestion:  true,
		PermEditQuestion:    true,
		PermDeleteQuestion:  true,
		PermImportQuestions: true,
		PermDraftQuestions:  true,
		PermManageExam:      true,
		PermPublishExam:     true,
		PermViewSubmissions: true,
		PermTakeExam:        true,
		PermChangeRole:      true,
		PermToggleActive:    true,
		PermListUsers:       true,
	},
	model.RoleModerator: {
		PermCreateQuestion:  true,
		PermEditQuestion:    true,
		PermDeleteQuestion:  true,
		PermImportQuestions: true,
		PermDraftQuestions:  true,
		PermManageExam:      true,
		PermPublishExam:     true,
		PermViewSubmissions: true,
		PermTakeExam:        true,
		PermChangeRole:      true,
		PermListUsers:       true,
	},
	model.RoleUser: {
		PermTakeExam: true,
	},
	model.RoleGuest: {},
}

// Allows reports whether the role may perform the action.
func Allows(role model.Role, perm Permission) bool {
	return rolePermissions[role][perm]
}

// CanAssignRole reports whether an actor may set a target account to the
// given role. Moderators cannot grant or revoke ADMIN; only admins can.
func CanAssignRole(actor model.Role, current model.Role, next model.Role) bool {
	switch actor {
	case model.RoleAdmin:
		return true
	case model.RoleModerator:
		return current != model.RoleAdmin && next != model.RoleAdmin
	}
	return false
}
