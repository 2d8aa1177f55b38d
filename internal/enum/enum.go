package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	PurchaseOrderStatusOpen      = "OPEN"
	PurchaseOrderStatusCompleted = "COMPLETED"
	PurchaseOrderStatusFailed    = "FAILED"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleOwner    = "OWNER"
	UserRoleAdmin    = "ADMIN"
	UserRoleAhliGizi = "AHLI_GIZI"
	UserRoleAkuntan  = "AKUNTAN"
	UserRoleChef     = "CHEF"
)

const (
	MealSessionPagi  = "pagi"
	MealSessionSiang = "siang"
	MealSessionMalam = "malam"
)

// IsValidUserRole reports whether role is a known user role.
func IsValidUserRole(role string) bool {
	switch role {
	case UserRoleOwner, UserRoleAdmin, UserRoleAhliGizi, UserRoleAkuntan, UserRoleChef:
		return true
	}
	return false
}

// IsValidMealSession reports whether s is one of pagi, siang, malam.
func IsValidMealSession(s string) bool {
	switch s {
	case MealSessionPagi, MealSessionSiang, MealSessionMalam:
		return true
	}
	return false
}
