package roles

import (
	"reflect"
	"testing"

	"calendar-service/internal/models"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		filter models.FilterType
		want   []string
	}{
		{models.FilterTeacher, []string{"teacher"}},
		{models.FilterStudent, []string{"student"}},
		{models.FilterAdmin, []string{"admin", "superadmin"}},
		{models.FilterStaff, []string{"teacher", "admin", "superadmin"}},
		{models.FilterCourse, []string{}},
		{models.FilterSkill, []string{}},
		{models.FilterUnit, []string{}},
		{models.FilterNone, []string{}},
	}

	for _, tt := range tests {
		got := Resolve(tt.filter)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Resolve(%q) = %v, want %v", tt.filter, got, tt.want)
		}
	}
}

func TestIsStaffFilterType(t *testing.T) {
	staff := []models.FilterType{models.FilterTeacher, models.FilterAdmin, models.FilterStaff, models.FilterCourse, models.FilterSkill}
	for _, f := range staff {
		if !IsStaffFilterType(f) {
			t.Errorf("expected %q to be a staff filter", f)
		}
	}

	for _, f := range []models.FilterType{models.FilterStudent, models.FilterUnit, models.FilterNone} {
		if IsStaffFilterType(f) {
			t.Errorf("expected %q not to be a staff filter", f)
		}
	}
}

func TestLayerFor(t *testing.T) {
	cases := map[string]models.Layer{
		"teacher":    models.LayerTeachers,
		"student":    models.LayerStudents,
		"admin":      models.LayerAdmins,
		"superadmin": models.LayerSuperadmins,
		"":           models.LayerTeachers,
	}
	for role, want := range cases {
		if got := LayerFor(role); got != want {
			t.Errorf("LayerFor(%q) = %q, want %q", role, got, want)
		}
	}
}
