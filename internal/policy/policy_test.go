package policy

import (
	"testing"

	"github.com/shacademia/estudy/internal/model"
)

func TestAllows(t *testing.T) {
	tests := []struct {
		name string
		role model.Role
		perm Permission
		want bool
	}{
		{"admin can publish", model.RoleAdmin, PermPublishExam, true},
		{"admin can change role", model.RoleAdmin, PermChangeRole, true},
		{"moderator can create question", model.RoleModerator, PermCreateQuestion, true},
		{"moderator can change role", model.RoleModerator, PermChangeRole, true},
		{"moderator cannot toggle active", model.RoleModerator, PermToggleActive, false},
		{"user can take exam", model.RoleUser, PermTakeExam, true},
		{"user cannot create question", model.RoleUser, PermCreateQuestion, false},
		{"user cannot publish", model.RoleUser, PermPublishExam, false},
		{"guest cannot take exam", model.RoleGuest, PermTakeExam, false},
		{"unknown role denied", model.Role("WIZARD"), PermTakeExam, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allows(tt.role, tt.perm); got != tt.want {
				t.Errorf("Allows(%s, %s) = %v, want %v", tt.role, tt.perm, got, tt.want)
			}
		})
	}
}

func TestCanAssignRole(t *testing.T) {
	tests := []struct {
		name    string
		actor   model.Role
		current model.Role
		next    model.Role
		want    bool
	}{
		{"admin promotes user to moderator", model.RoleAdmin, model.RoleUser, model.RoleModerator, true},
		{"admin promotes moderator to admin", model.RoleAdmin, model.RoleModerator, model.RoleAdmin, true},
		{"moderator promotes user to moderator", model.RoleModerator, model.RoleUser, model.RoleModerator, true},
		{"moderator cannot grant admin", model.RoleModerator, model.RoleUser, model.RoleAdmin, false},
		{"moderator cannot demote admin", model.RoleModerator, model.RoleAdmin, model.RoleUser, false},
		{"user cannot assign roles", model.RoleUser, model.RoleUser, model.RoleGuest, false},
		{"guest cannot assign roles", model.RoleGuest, model.RoleUser, model.RoleUser, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAssignRole(tt.actor, tt.current, tt.next); got != tt.want {
				t.Errorf("CanAssignRole(%s, %s->%s) = %v, want %v", tt.actor, tt.current, tt.next, got, tt.want)
			}
		})
	}
}
