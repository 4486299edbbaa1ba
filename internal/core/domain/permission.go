package domain

import "strings"

// Resource is a protected object class.
type Resource string

const (
	ResourceBooks         Resource = "books"
	ResourceCategories    Resource = "categories"
	ResourceReviews       Resource = "reviews"
	ResourceProfile       Resource = "profile"
	ResourceTransactions  Resource = "transactions"
	ResourcePurchases     Resource = "purchases"
	ResourceDownloads     Resource = "downloads"
	ResourcePaymentConfig Resource = "payment_config"
	ResourceAnalytics     Resource = "analytics"
	ResourceUploads       Resource = "uploads"
	ResourceUsers         Resource = "users"
	ResourceSystem        Resource = "system"
	ResourceApprovals     Resource = "approvals"
)

// Action is a single verb. Each action occupies one bit so a set of
// actions fits in an ActionSet.
type Action uint8

const (
	ActionCreate Action = 1 << iota
	ActionRead
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionRead:
		return "read"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

func (a Action) known() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// ParseAction maps a verb name to an Action.
func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(s) {
	case "create":
		return ActionCreate, true
	case "read":
		return ActionRead, true
	case "update":
		return ActionUpdate, true
	case "delete":
		return ActionDelete, true
	}
	return 0, false
}

// ActionSet is a bitmask of actions.
type ActionSet uint8

// AllActions permits every verb on a resource.
const AllActions = ActionSet(ActionCreate | ActionRead | ActionUpdate | ActionDelete)

const (
	readOnly   = ActionSet(ActionRead)
	readUpdate = ActionSet(ActionRead | ActionUpdate)
	createRead = ActionSet(ActionCreate | ActionRead)
)

// Actions builds a set from individual actions.
func Actions(actions ...Action) ActionSet {
	var s ActionSet
	for _, a := range actions {
		s |= ActionSet(a)
	}
	return s
}

// Has reports whether the set contains a. Unknown or composite actions are never contained.
func (s ActionSet) Has(a Action) bool {
	return a.known() && s&ActionSet(a) != 0
}

// List returns the verbs in the set in create, read, update, delete order.
func (s ActionSet) List() []string {
	out := make([]string, 0, 4)
	for _, a := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete} {
		if s.Has(a) {
			out = append(out, a.String())
		}
	}
	return out
}

// Capabilities is the static Role x Resource -> ActionSet table.
// It is built once and only read afterwards, so it is safe for concurrent use.
type Capabilities struct {
	grants     map[Role]map[Resource]ActionSet
	superusers map[Role]bool
}

var defaultCapabilities = &Capabilities{
	grants: map[Role]map[Resource]ActionSet{
		RoleNonRegistered: {
			ResourceBooks:      readOnly,
			ResourceCategories: readOnly,
			ResourceReviews:    readOnly,
		},
		RolePending: {
			ResourceBooks:      readOnly,
			ResourceCategories: readOnly,
			ResourceProfile:    readOnly,
			ResourceReviews:    readOnly,
		},
		RoleClient: {
			ResourceBooks:        readOnly,
			ResourceCategories:   readOnly,
			ResourceProfile:      readUpdate,
			ResourceTransactions: readOnly,
			ResourcePurchases:    createRead,
			ResourceReviews:      AllActions,
			ResourceDownloads:    readOnly,
		},
		RoleVendor: {
			ResourceBooks:         AllActions,
			ResourceCategories:    readOnly,
			ResourceProfile:       readUpdate,
			ResourceTransactions:  readOnly,
			ResourcePurchases:     createRead,
			ResourceReviews:       readOnly,
			ResourcePaymentConfig: AllActions,
			ResourceAnalytics:     readOnly,
			ResourceUploads:       AllActions,
		},
	},
	superusers: map[Role]bool{
		RoleAdmin: true,
	},
}

// DefaultCapabilities returns the marketplace capability table.
func DefaultCapabilities() *Capabilities {
	return defaultCapabilities
}

// IsSuperuser reports whether role bypasses the per-resource table.
func (c *Capabilities) IsSuperuser(role Role) bool {
	return c.superusers[role]
}

// Allows is the pure permission check. An empty role is treated as
// the anonymous role. Unknown roles, resources and actions deny.
func (c *Capabilities) Allows(role Role, resource Resource, action Action) bool {
	if role == "" {
		role = RoleNonRegistered
	}
	if !action.known() {
		return false
	}
	if c.superusers[role] {
		return true
	}
	resources, ok := c.grants[role]
	if !ok {
		return false
	}
	return resources[resource].Has(action)
}

// Grants returns a copy of the table row for role. Superusers get nil.
func (c *Capabilities) Grants(role Role) map[Resource]ActionSet {
	row := c.grants[role]
	if row == nil {
		return nil
	}
	out := make(map[Resource]ActionSet, len(row))
	for res, set := range row {
		out[res] = set
	}
	return out
}

// Permission names one (resource, action) pair.
type Permission struct {
	Resource Resource
	Action   Action
}
