package types

import "time"

type ShelterType string

const (
	ShelterReadyTent        ShelterType = "ready_tent"
	ShelterManufacturedTent ShelterType = "manufactured_tent"
	ShelterHouse            ShelterType = "house"
	ShelterOther            ShelterType = "other"
)

func (s ShelterType) Valid() bool {
	switch s {
	case ShelterReadyTent, ShelterManufacturedTent, ShelterHouse, ShelterOther:
		return true
	}
	return false
}

type Role string

const (
	RoleHusband     Role = "husband"
	RoleWife        Role = "wife"
	RoleSecondWife  Role = "second_wife"
	RoleWidow       Role = "widow"
	RoleWidower     Role = "widower"
	RoleDivorced    Role = "divorced"
	RoleAbandoned   Role = "abandoned"
	RoleGuardian    Role = "guardian"
	RoleSon         Role = "son"
	RoleDaughter    Role = "daughter"
	RoleOther       Role = "other"
	RoleFather      Role = "father"
	RoleMother      Role = "mother"
	RoleGrandfather Role = "grandfather"
	RoleGrandmother Role = "grandmother"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Family is a registered household. ID is assigned by the remote store and
// stays empty while the family only exists as a local draft.
type Family struct {
	ID               string      `db:"id" json:"id,omitempty"`
	CampID           string      `db:"camp_id" json:"campId"`
	FamilyNumber     string      `db:"family_number" json:"familyNumber"`
	Address          string      `db:"address" json:"address"`
	Phone            *string     `db:"phone" json:"phone,omitempty"`
	AltPhone         *string     `db:"alt_phone" json:"altPhone,omitempty"`
	HousingStatus    *string     `db:"housing_status" json:"housingStatus,omitempty"`
	Needs            *string     `db:"needs" json:"needs,omitempty"`
	ShelterType      ShelterType `db:"shelter_type" json:"shelterType"`
	ShelterTypeOther *string     `db:"shelter_type_other" json:"shelterTypeOther,omitempty"`
	DelegateName     *string     `db:"delegate_name" json:"delegateName,omitempty"`
	IsDeparted       bool        `db:"is_departed" json:"isDeparted"`
	CreatedAt        time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updatedAt"`
}

// Individual is one member of a family. DateOfBirth is kept as normalized
// YYYY-MM-DD text because day/month ranges are checked but calendar validity is not.
type Individual struct {
	ID                  string    `db:"id" json:"id,omitempty"`
	FamilyID            string    `db:"family_id" json:"familyId,omitempty"`
	Name                string    `db:"name" json:"name"`
	NID                 *string   `db:"nid" json:"nid,omitempty"`
	DateOfBirth         string    `db:"date_of_birth" json:"dateOfBirth"`
	Gender              Gender    `db:"gender" json:"gender"`
	Role                Role      `db:"role" json:"role"`
	RoleDescription     *string   `db:"role_description" json:"roleDescription,omitempty"`
	DeceasedHusbandName *string   `db:"deceased_husband_name" json:"deceasedHusbandName,omitempty"`
	HusbandDeathDate    *string   `db:"husband_death_date" json:"husbandDeathDate,omitempty"`
	IsPregnant          bool      `db:"is_pregnant" json:"isPregnant"`
	IsNursing           bool      `db:"is_nursing" json:"isNursing"`
	ClothesSize         *string   `db:"clothes_size" json:"clothesSize,omitempty"`
	ShoeSize            *string   `db:"shoe_size" json:"shoeSize,omitempty"`
	HealthNotes         *string   `db:"health_notes" json:"healthNotes,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}

// FamilyBundle is a family together with its members, the unit that is
// validated, queued and created as a whole.
type FamilyBundle struct {
	Family  *Family       `json:"family"`
	Members []*Individual `json:"members"`
}

// NIDs returns the non-empty national IDs of the bundle's members.
func (b *FamilyBundle) NIDs() []string {
	out := make([]string, 0, len(b.Members))
	for _, m := range b.Members {
		if m.NID != nil && *m.NID != "" {
			out = append(out, *m.NID)
		}
	}
	return out
}

// NIDHolder identifies the active individual that already holds a national ID.
type NIDHolder struct {
	IndividualID string `db:"individual_id" json:"individualId"`
	FamilyID     string `db:"family_id" json:"familyId"`
	FamilyNumber string `db:"family_number" json:"familyNumber"`
	CampID       string `db:"camp_id" json:"campId"`
	Name         string `db:"name" json:"name"`
}
