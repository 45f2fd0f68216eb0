// AngelaMos | 2026
// policy_test.go

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanPerform_Matrix(t *testing.T) {
	admin := Identity{ID: "a1", Role: RoleAdmin}
	editor := Identity{ID: "e1", Role: RoleEditor}
	writer := Identity{ID: "w1", Role: RoleWriter}

	ownedByWriter := &Resource{OwnerID: "w1"}
	ownedByOther := &Resource{OwnerID: "someone-else"}

	tests := []struct {
		name     string
		identity Identity
		action   Action
		resource *Resource
		want     bool
	}{
		{"admin creates content", admin, ActionCreateContent, nil, true},
		{"editor creates content", editor, ActionCreateContent, nil, true},
		{"writer creates content", writer, ActionCreateContent, nil, true},

		{"writer reads any content", writer, ActionReadContent, ownedByOther, true},

		{"writer updates own", writer, ActionUpdateContent, ownedByWriter, true},
		{"writer updates others", writer, ActionUpdateContent, ownedByOther, false},
		{"writer updates without resource", writer, ActionUpdateContent, nil, false},
		{"editor updates others", editor, ActionUpdateContent, ownedByOther, true},
		{"admin updates others", admin, ActionUpdateContent, ownedByOther, true},

		{"writer sets status", writer, ActionSetStatus, nil, false},
		{"writer sets status on own", writer, ActionSetStatus, ownedByWriter, false},
		{"editor sets status", editor, ActionSetStatus, nil, true},
		{"admin sets status", admin, ActionSetStatus, nil, true},

		{"writer deletes own", writer, ActionDeleteContent, ownedByWriter, true},
		{"writer deletes others", writer, ActionDeleteContent, ownedByOther, false},
		{"editor deletes others", editor, ActionDeleteContent, ownedByOther, true},
		{"admin deletes others", admin, ActionDeleteContent, ownedByOther, true},

		{"admin lists users", admin, ActionListUsers, nil, true},
		{"editor lists users", editor, ActionListUsers, nil, false},
		{"writer lists users", writer, ActionListUsers, nil, false},

		{"admin manages users", admin, ActionManageUsers, nil, true},
		{"editor manages users", editor, ActionManageUsers, nil, false},

		{"admin uploads media", admin, ActionUploadMedia, nil, true},
		{"editor uploads media", editor, ActionUploadMedia, nil, true},
		{"writer uploads media", writer, ActionUploadMedia, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanPerform(tt.identity, tt.action, tt.resource))
		})
	}
}

func TestCanPerform_UnknownRoleOrActionDenied(t *testing.T) {
	ghost := Identity{ID: "g1", Role: Role("superuser")}
	for _, action := range Actions {
		assert.False(t, CanPerform(ghost, action, &Resource{OwnerID: "g1"}), action)
	}

	admin := Identity{ID: "a1", Role: RoleAdmin}
	assert.False(t, CanPerform(admin, Action("content:launch"), nil))
}

func TestCanPerform_TotalAndDeterministic(t *testing.T) {
	for _, role := range Roles {
		id := Identity{ID: "u1", Role: role}
		for _, action := range Actions {
			for _, res := range []*Resource{nil, {OwnerID: "u1"}, {OwnerID: "u2"}} {
				first := CanPerform(id, action, res)
				second := CanPerform(id, action, res)
				assert.Equal(t, first, second, "%s %s", role, action)
			}
		}
	}
}

func TestCanPerform_EmptyIdentityNeverOwns(t *testing.T) {
	anon := Identity{Role: RoleWriter}
	assert.False(t, CanPerform(anon, ActionUpdateContent, &Resource{OwnerID: ""}))
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleEditor.Valid())
	assert.True(t, RoleWriter.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("root").Valid())
}
