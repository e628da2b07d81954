package types

// ReportColumn is one ad-hoc report column described in natural language.
type ReportColumn struct {
	ID          string `json:"id" validate:"required,max=64"`
	Description string `json:"description" validate:"required,max=500"`
}

type ReportRequest struct {
	CampID  string         `json:"campId" validate:"required"`
	Columns []ReportColumn `json:"columns" validate:"required,min=1,max=40,unique=ID,dive"`
}

type Report struct {
	Columns []ReportColumn `json:"columns"`
	// Sources records per column whether the logic came from the bridge or
	// the local keyword fallback.
	Sources map[string]string `json:"sources"`
	Rows    []ReportRow       `json:"rows"`
}

type ReportRow struct {
	FamilyID     string            `json:"familyId"`
	FamilyNumber string            `json:"familyNumber"`
	Cells        map[string]string `json:"cells"`
}
