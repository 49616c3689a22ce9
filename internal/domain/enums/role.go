package enums

type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) IsAdministrative() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}
