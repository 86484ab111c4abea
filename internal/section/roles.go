package section

// Role names carried on a session's authenticated user.
const (
	RoleOwner = "owner"
	RoleStock = "stock"
	RoleSales = "sales"
)

// roleSections maps each role to the sections it may open, in navigation
// order. Unlisted roles fall back to the sales view.
var roleSections = map[string][]Kind{
	RoleOwner: {KindKPIs, KindProducts, KindSales, KindCustomers, KindReports},
	RoleStock: {KindKPIs, KindProducts, KindMovements},
	RoleSales: {KindKPIs, KindSales, KindProducts},
}

// ForRole returns the sections a role may open. The slice is a copy.
func ForRole(role string) []Kind {
	kinds, ok := roleSections[role]
	if !ok {
		kinds = roleSections[RoleSales]
	}
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// DefaultKind is the section shown when no explicit one is requested.
func DefaultKind(role string) Kind {
	return ForRole(role)[0]
}

// Allowed reports whether a role may open a section kind.
func Allowed(role string, kind Kind) bool {
	for _, k := range ForRole(role) {
		if k == kind {
			return true
		}
	}
	return false
}
