package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the authorization tier governing which routes and actions a
// principal may use.
type Role = string

const (
	// RoleBuyer browses listings and purchases products
	RoleBuyer Role = "buyer"
	// RoleSeller creates and manages product listings
	RoleSeller Role = "seller"
	// RoleAdmin moderates the marketplace and monitors activity
	RoleAdmin Role = "admin"
)

// Principal is the authenticated identity, independent of its role. The
// identity provider owns the lifecycle of the record; the core only
// references it.
type Principal struct {
	ID       string         `json:"id,omitempty"`
	Email    string         `json:"email,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RoleHint inspects the sign-up metadata for a role selection. Returns the
// zero value when the metadata carries no usable role.
func (p Principal) RoleHint() Role {
	if p.Metadata == nil {
		return ""
	}

	raw, ok := p.Metadata["role"]
	if !ok {
		return ""
	}

	if role, ok := raw.(string); ok {
		if r, valid := ParseRole(role); valid {
			return r
		}
	}

	return ""
}

// User is the marketplace account record backing role storage. Created lazily
// on first role resolution when the identity provider signed the principal up
// before the storefront saw them.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role          Role       `bun:"user_role,notnull" json:"user_role,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	WhatsApp      string     `bun:"whatsapp_number" json:"whatsapp_number,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureRole backfills the default role on records created before role
// storage was mandatory.
func (u *User) EnsureRole() {
	if u.Role == "" {
		u.Role = RoleBuyer
	}
}
