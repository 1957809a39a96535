// Package roles maps filter types onto the user roles they select.
package roles

import "calendar-service/internal/models"

// Resolve returns the role set a filter type selects directly.
// Course, skill and unit filters select people indirectly and resolve to no roles.
func Resolve(filterType models.FilterType) []string {
	switch filterType {
	case models.FilterTeacher:
		return []string{models.RoleTeacher}
	case models.FilterStudent:
		return []string{models.RoleStudent}
	case models.FilterAdmin:
		return []string{models.RoleAdmin, models.RoleSuperadmin}
	case models.FilterStaff:
		return []string{models.RoleTeacher, models.RoleAdmin, models.RoleSuperadmin}
	default:
		return []string{}
	}
}

// IsStaffFilterType reports whether availability exists for the filter at all.
// Students, units and the unfiltered view have none.
func IsStaffFilterType(filterType models.FilterType) bool {
	switch filterType {
	case models.FilterTeacher, models.FilterAdmin, models.FilterStaff, models.FilterCourse, models.FilterSkill:
		return true
	default:
		return false
	}
}

// LayerFor returns the availability layer a role is drawn under.
// Unknown roles fall back to the teachers layer, matching the converter default.
func LayerFor(role string) models.Layer {
	switch role {
	case models.RoleStudent:
		return models.LayerStudents
	case models.RoleAdmin:
		return models.LayerAdmins
	case models.RoleSuperadmin:
		return models.LayerSuperadmins
	default:
		return models.LayerTeachers
	}
}
