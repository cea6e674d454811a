package permission

// Role identifies the kind of actor invoking an operation
type Role string

const (
	RoleSubmitter Role = "submitter"
	RoleReviewer  Role = "reviewer"
	RoleFinance   Role = "finance"
	RoleSystem    Role = "system"
)

var validRoles = map[Role]bool{
	RoleSubmitter: true,
	RoleReviewer:  true,
	RoleFinance:   true,
	RoleSystem:    true,
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is one of the defined roles
func (r Role) IsValid() bool {
	return validRoles[r]
}

// Roles returns all defined roles in a stable order
func Roles() []Role {
	return []Role{RoleSubmitter, RoleReviewer, RoleFinance, RoleSystem}
}

// Actor is the explicit identity behind every request. It is never looked up
// from ambient session state.
type Actor struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	DisplayName string `json:"display_name"`
}

// SystemActor is used by background passes such as the lock sweep
var SystemActor = Actor{
	ID:          "system",
	Role:        RoleSystem,
	DisplayName: "System",
}

// IsZero reports whether the actor carries no identity
func (a Actor) IsZero() bool {
	return a.ID == "" && a.Role == ""
}

// Name returns the display name, falling back to the id
func (a Actor) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.ID
}
