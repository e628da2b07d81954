// Package family validates and normalizes family registration forms into
// bundles ready to be queued locally or created remotely.
package family

import (
	"fmt"
	"strings"
	"time"

	"campaid/pkg/types"
)

// Assemble validates form and produces a normalized bundle. Rules are applied
// in a fixed order and the first violation is returned as a
// *types.ValidationError. It has no side effects.
func Assemble(form *types.FamilyForm, now time.Time) (*types.FamilyBundle, error) {
	familyNumber := strings.TrimSpace(form.FamilyNumber)
	if familyNumber == "" {
		return nil, types.NewValidationError("family_number", "family number is required")
	}

	address := strings.TrimSpace(form.Address)
	if address == "" {
		return nil, types.NewValidationError("address", "address is required")
	}

	phone := strings.TrimSpace(form.Phone)
	if !ValidatePhone(phone) {
		return nil, types.NewValidationError("phone", "phone must be 10 digits starting with 0 or 9 digits not starting with 0")
	}

	altPhone := strings.TrimSpace(form.AltPhone)
	if !ValidatePhone(altPhone) {
		return nil, types.NewValidationError("alt_phone", "alternate phone must be 10 digits starting with 0 or 9 digits not starting with 0")
	}

	if len(form.Members) == 0 {
		return nil, types.NewValidationError("members", "at least one member is required")
	}

	shelterType := types.ShelterType(strings.TrimSpace(form.ShelterType))
	if shelterType == "" {
		shelterType = types.ShelterOther
	}
	if !shelterType.Valid() {
		return nil, types.NewValidationError("shelter_type", "unknown shelter type %q", form.ShelterType)
	}

	fam := &types.Family{
		CampID:        strings.TrimSpace(form.CampID),
		FamilyNumber:  familyNumber,
		Address:       address,
		Phone:         optional(phone),
		AltPhone:      optional(altPhone),
		HousingStatus: optional(form.HousingStatus),
		Needs:         optional(form.Needs),
		ShelterType:   shelterType,
		DelegateName:  optional(form.DelegateName),
	}
	if shelterType == types.ShelterOther {
		fam.ShelterTypeOther = optional(form.ShelterTypeOther)
	}

	seen := make(map[string]int, len(form.Members))
	members := make([]*types.Individual, 0, len(form.Members))
	for i := range form.Members {
		member, err := assembleMember(i, &form.Members[i], now)
		if err != nil {
			return nil, err
		}

		nid := *member.NID
		if first, ok := seen[nid]; ok {
			return nil, types.NewValidationError(memberField(i, "nid"), "national id %s is repeated (member %d)", nid, first+1)
		}
		seen[nid] = i

		members = append(members, member)
	}

	return &types.FamilyBundle{Family: fam, Members: members}, nil
}

func assembleMember(i int, m *types.MemberForm, now time.Time) (*types.Individual, error) {
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return nil, types.NewValidationError(memberField(i, "name"), "name is required")
	}

	if strings.TrimSpace(m.DateOfBirth) == "" {
		return nil, types.NewValidationError(memberField(i, "date_of_birth"), "date of birth is required")
	}
	dob, err := ParseDate(m.DateOfBirth, now)
	if err != nil {
		return nil, types.NewValidationError(memberField(i, "date_of_birth"), "invalid date of birth: %s", err)
	}

	nid := NormalizeNID(m.NID)
	if nid == "" {
		return nil, types.NewValidationError(memberField(i, "nid"), "national id is required")
	}
	if !ValidNID(nid) {
		return nil, types.NewValidationError(memberField(i, "nid"), "national id must be exactly %d digits, got %d", NIDLength, len(nid))
	}

	match := ParseRoleLabel(m.Role)
	if !match.Known {
		return nil, types.NewValidationError(memberField(i, "role"), "unknown role %q", m.Role)
	}

	member := &types.Individual{
		Name:        name,
		NID:         &nid,
		DateOfBirth: dob.String(),
		Role:        match.Role,
		IsPregnant:  m.IsPregnant,
		IsNursing:   m.IsNursing,
		ClothesSize: optional(m.ClothesSize),
		ShoeSize:    optional(m.ShoeSize),
		HealthNotes: optional(m.HealthNotes),
	}

	switch match.Role {
	case types.RoleWidow:
		husband := optional(m.DeceasedHusbandName)
		if husband == nil {
			return nil, types.NewValidationError(memberField(i, "deceased_husband_name"), "deceased husband name is required for a widow")
		}
		if strings.TrimSpace(m.HusbandDeathDate) == "" {
			return nil, types.NewValidationError(memberField(i, "husband_death_date"), "husband death date is required for a widow")
		}
		death, err := ParseDate(m.HusbandDeathDate, now)
		if err != nil {
			return nil, types.NewValidationError(memberField(i, "husband_death_date"), "invalid husband death date: %s", err)
		}
		deathDate := death.String()
		member.DeceasedHusbandName = husband
		member.HusbandDeathDate = &deathDate
	case types.RoleOther:
		desc := optional(m.RoleDescription)
		if desc == nil {
			return nil, types.NewValidationError(memberField(i, "role_description"), "role description is required when role is other")
		}
		member.RoleDescription = desc
	}

	if match.Role == types.RoleGuardian {
		gender := types.Gender(strings.TrimSpace(m.Gender))
		if !gender.Valid() {
			return nil, types.NewValidationError(memberField(i, "gender"), "gender must be chosen for a guardian")
		}
		member.Gender = gender
	} else {
		member.Gender = DeriveGender(match.Role)
	}

	return member, nil
}

func memberField(i int, field string) string {
	return fmt.Sprintf("members[%d].%s", i, field)
}
