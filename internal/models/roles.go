package models

// Определяем константы для ролей
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// AllRoles возвращает слайс всех определенных ролей.
func AllRoles() []string {
	return []string{
		RoleUser,
		RoleModerator,
		RoleAdmin,
	}
}

// IsValidRole проверяет, что строка является известной ролью.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// RoleAllowed проверяет, входит ли роль пользователя в список разрешенных.
func RoleAllowed(userRole string, allowed ...string) bool {
	for _, role := range allowed {
		if userRole == role {
			return true
		}
	}
	return false
}
