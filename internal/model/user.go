package model

// AuthClaims are the bearer-token claims the identity provider issues.
type AuthClaims struct {
	UserID   string `json:"sub"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Type     string `json:"typ"`
	TokenID  string `json:"jti"`
}

// Actor identifies who performs an action. A zero UserID means the action is anonymous.
type Actor struct {
	UserID   string `json:"user_id,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role,omitempty"`
	IP       string `json:"ip,omitempty"`
}

func (a Actor) Anonymous() bool {
	return a.UserID == ""
}

// IDRef returns the actor id as an optional reference.
func (a Actor) IDRef() *string {
	if a.Anonymous() {
		return nil
	}
	id := a.UserID
	return &id
}

func (a Actor) TenantRef() *string {
	if a.TenantID == "" {
		return nil
	}
	id := a.TenantID
	return &id
}

const RoleSuperAdmin = "superadmin"
