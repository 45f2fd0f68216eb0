// AngelaMos | 2026
// policy.go

// Package policy decides which role may perform which action on which
// resource. Decisions are pure: no I/O, no clock, no shared state.
package policy

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleWriter Role = "writer"
)

// DefaultRole is assigned at registration when none is requested.
const DefaultRole = RoleWriter

var Roles = []Role{RoleAdmin, RoleEditor, RoleWriter}

func (r Role) Valid() bool {
	_, ok := matrix[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}

type Action string

const (
	ActionCreateContent Action = "content:create"
	ActionReadContent   Action = "content:read"
	ActionUpdateContent Action = "content:update"
	ActionDeleteContent Action = "content:delete"
	ActionSetStatus     Action = "content:set-status"
	ActionListUsers     Action = "users:list"
	ActionManageUsers   Action = "users:manage"
	ActionUploadMedia   Action = "media:upload"
	ActionReadMedia     Action = "media:read"
)

var Actions = []Action{
	ActionCreateContent,
	ActionReadContent,
	ActionUpdateContent,
	ActionDeleteContent,
	ActionSetStatus,
	ActionListUsers,
	ActionManageUsers,
	ActionUploadMedia,
	ActionReadMedia,
}

// Identity is the authenticated caller as resolved from a session token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Resource carries the ownership of the target of an action. A nil
// Resource means the action has no specific target.
type Resource struct {
	OwnerID string
}

func (r *Resource) OwnedBy(id Identity) bool {
	return r != nil && id.ID != "" && r.OwnerID == id.ID
}

type grant uint8

const (
	grantNone grant = iota
	grantOwn
	grantAny
)

var matrix = map[Role]map[Action]grant{
	RoleAdmin: {
		ActionCreateContent: grantAny,
		ActionReadContent:   grantAny,
		ActionUpdateContent: grantAny,
		ActionDeleteContent: grantAny,
		ActionSetStatus:     grantAny,
		ActionListUsers:     grantAny,
		ActionManageUsers:   grantAny,
		ActionUploadMedia:   grantAny,
		ActionReadMedia:     grantAny,
	},
	RoleEditor: {
		ActionCreateContent: grantAny,
		ActionReadContent:   grantAny,
		ActionUpdateContent: grantAny,
		ActionDeleteContent: grantAny,
		ActionSetStatus:     grantAny,
		ActionListUsers:     grantNone,
		ActionManageUsers:   grantNone,
		ActionUploadMedia:   grantAny,
		ActionReadMedia:     grantAny,
	},
	RoleWriter: {
		ActionCreateContent: grantAny,
		ActionReadContent:   grantAny,
		ActionUpdateContent: grantOwn,
		ActionDeleteContent: grantOwn,
		ActionSetStatus:     grantNone,
		ActionListUsers:     grantNone,
		ActionManageUsers:   grantNone,
		ActionUploadMedia:   grantAny,
		ActionReadMedia:     grantAny,
	},
}

// CanPerform reports whether identity may perform action on resource.
// Unknown roles and actions are denied.
func CanPerform(identity Identity, action Action, resource *Resource) bool {
	actions, ok := matrix[identity.Role]
	if !ok {
		return false
	}

	switch actions[action] {
	case grantAny:
		return true
	case grantOwn:
		return resource.OwnedBy(identity)
	default:
		return false
	}
}

// CanSetStatus is shorthand for the publish capability check.
func CanSetStatus(identity Identity) bool {
	return CanPerform(identity, ActionSetStatus, nil)
}
