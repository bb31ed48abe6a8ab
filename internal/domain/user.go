package domain

import (
	"strings"
	"time"
)

// Role clasifica a los usuarios para la autorizacion gruesa.
type Role string

const (
	RoleUser      Role = "user"
	RoleBroker    Role = "broker"
	RoleOwner     Role = "owner"
	RoleDeveloper Role = "developer"
	RoleAdmin     Role = "admin"
)

// Roles lista los roles conocidos en orden estable.
var Roles = []Role{RoleUser, RoleBroker, RoleOwner, RoleDeveloper, RoleAdmin}

// Valid indica si el rol pertenece a la enumeracion.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole normaliza y valida un rol recibido como texto.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// User es el registro de identidad. Solo los campos publicos salen en JSON.
type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         *string    `json:"phone,omitempty"`
	AvatarURL     *string    `json:"avatar,omitempty"`
	Role          Role       `json:"role"`
	EmailVerified bool       `json:"emailVerified"`
	OtpCodeHash   string     `json:"-"`
	OtpExpiresAt  *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// HasRole indica si el usuario tiene alguno de los roles dados.
func (u User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// ProfilePatch describe una actualizacion parcial; nil significa "sin cambio".
// Phone o AvatarURL apuntando a "" borran el valor guardado.
type ProfilePatch struct {
	Name      *string
	Email     *string
	Phone     *string
	AvatarURL *string
}

func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.AvatarURL == nil
}
