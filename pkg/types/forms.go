package types

// FamilyForm is the raw family registration form as submitted by the
// browser, before validation and normalization.
type FamilyForm struct {
	CampID           string       `form:"camp_id" json:"campId"`
	FamilyNumber     string       `form:"family_number" json:"familyNumber"`
	Address          string       `form:"address" json:"address"`
	Phone            string       `form:"phone" json:"phone"`
	AltPhone         string       `form:"alt_phone" json:"altPhone"`
	HousingStatus    string       `form:"housing_status" json:"housingStatus"`
	Needs            string       `form:"needs" json:"needs"`
	ShelterType      string       `form:"shelter_type" json:"shelterType"`
	ShelterTypeOther string       `form:"shelter_type_other" json:"shelterTypeOther"`
	DelegateName     string       `form:"delegate_name" json:"delegateName"`
	Members          []MemberForm `form:"members" json:"members"`
}

type MemberForm struct {
	Name                string `form:"name" json:"name"`
	NID                 string `form:"nid" json:"nid"`
	DateOfBirth         string `form:"date_of_birth" json:"dateOfBirth"`
	Role                string `form:"role" json:"role"`
	Gender              string `form:"gender" json:"gender"`
	RoleDescription     string `form:"role_description" json:"roleDescription"`
	DeceasedHusbandName string `form:"deceased_husband_name" json:"deceasedHusbandName"`
	HusbandDeathDate    string `form:"husband_death_date" json:"husbandDeathDate"`
	IsPregnant          bool   `form:"is_pregnant" json:"isPregnant"`
	IsNursing           bool   `form:"is_nursing" json:"isNursing"`
	ClothesSize         string `form:"clothes_size" json:"clothesSize"`
	ShoeSize            string `form:"shoe_size" json:"shoeSize"`
	HealthNotes         string `form:"health_notes" json:"healthNotes"`
}
