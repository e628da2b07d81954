package family

import (
	"strings"

	"campaid/pkg/types"
)

// RoleMatch is the result of mapping a free-text role label. Known is false
// when the label is outside the recognized alphabet; Role is then empty and
// the caller decides how to handle the raw text.
type RoleMatch struct {
	Role  types.Role
	Known bool
}

var roleLabels = map[string]types.Role{
	"husband":     types.RoleHusband,
	"wife":        types.RoleWife,
	"second_wife": types.RoleSecondWife,
	"widow":       types.RoleWidow,
	"widower":     types.RoleWidower,
	"divorced":    types.RoleDivorced,
	"abandoned":   types.RoleAbandoned,
	"guardian":    types.RoleGuardian,
	"son":         types.RoleSon,
	"daughter":    types.RoleDaughter,
	"other":       types.RoleOther,
	"father":      types.RoleFather,
	"mother":      types.RoleMother,
	"grandfather": types.RoleGrandfather,
	"grandmother": types.RoleGrandmother,

	"زوج":        types.RoleHusband,
	"الزوج":      types.RoleHusband,
	"زوجة":       types.RoleWife,
	"الزوجة":     types.RoleWife,
	"زوجه":       types.RoleWife,
	"زوجة ثانية": types.RoleSecondWife,
	"زوجة ثانيه": types.RoleSecondWife,
	"أرملة":      types.RoleWidow,
	"ارملة":      types.RoleWidow,
	"ارمله":      types.RoleWidow,
	"أرمل":       types.RoleWidower,
	"ارمل":       types.RoleWidower,
	"مطلقة":      types.RoleDivorced,
	"مطلقه":      types.RoleDivorced,
	"مهجورة":     types.RoleAbandoned,
	"مهجوره":     types.RoleAbandoned,
	"وصي":        types.RoleGuardian,
	"ولي أمر":    types.RoleGuardian,
	"ولي امر":    types.RoleGuardian,
	"ابن":        types.RoleSon,
	"إبن":        types.RoleSon,
	"ابنة":       types.RoleDaughter,
	"إبنة":       types.RoleDaughter,
	"ابنه":       types.RoleDaughter,
	"بنت":        types.RoleDaughter,
	"أب":         types.RoleFather,
	"اب":         types.RoleFather,
	"أم":         types.RoleMother,
	"ام":         types.RoleMother,
	"جد":         types.RoleGrandfather,
	"جدة":        types.RoleGrandmother,
	"جده":        types.RoleGrandmother,
	"أخرى":       types.RoleOther,
	"اخرى":       types.RoleOther,
	"آخر":        types.RoleOther,
	"اخر":        types.RoleOther,

	"الزوجة الثانية": types.RoleSecondWife,
}

// ParseRoleLabel maps a canonical role name or one of its Arabic synonyms
// onto the role enum.
func ParseRoleLabel(label string) RoleMatch {
	key := strings.ToLower(strings.Join(strings.Fields(label), " "))
	if role, ok := roleLabels[key]; ok {
		return RoleMatch{Role: role, Known: true}
	}
	return RoleMatch{}
}

var femaleRoles = map[types.Role]bool{
	types.RoleWife:        true,
	types.RoleSecondWife:  true,
	types.RoleWidow:       true,
	types.RoleDivorced:    true,
	types.RoleAbandoned:   true,
	types.RoleDaughter:    true,
	types.RoleMother:      true,
	types.RoleGrandmother: true,
}

// DeriveGender returns the gender implied by a role. Guardians have no
// implied gender and must be chosen explicitly, so callers check for
// RoleGuardian first.
func DeriveGender(role types.Role) types.Gender {
	if femaleRoles[role] {
		return types.GenderFemale
	}
	return types.GenderMale
}

var shelterLabels = map[string]types.ShelterType{
	"ready_tent":        types.ShelterReadyTent,
	"manufactured_tent": types.ShelterManufacturedTent,
	"house":             types.ShelterHouse,
	"other":             types.ShelterOther,

	"خيمة جاهزة": types.ShelterReadyTent,
	"خيمه جاهزه": types.ShelterReadyTent,
	"خيمة مصنعة": types.ShelterManufacturedTent,
	"خيمه مصنعه": types.ShelterManufacturedTent,
	"منزل":       types.ShelterHouse,
	"بيت":        types.ShelterHouse,
	"أخرى":       types.ShelterOther,
	"اخرى":       types.ShelterOther,

	// with shadda
	"خيمة مصنّعة": types.ShelterManufacturedTent,
}

// ParseShelterLabel maps a shelter label onto the enum. Anything unrecognized
// becomes ShelterOther with the label kept as the free-text qualifier.
func ParseShelterLabel(label string) (types.ShelterType, string) {
	key := strings.ToLower(strings.Join(strings.Fields(label), " "))
	if key == "" {
		return types.ShelterOther, ""
	}
	if st, ok := shelterLabels[key]; ok {
		return st, ""
	}
	return types.ShelterOther, strings.TrimSpace(label)
}
