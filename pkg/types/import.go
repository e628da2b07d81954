package types

type ImportState string

const (
	ImportParsed             ImportState = "parsed"
	ImportAborted            ImportState = "aborted"
	ImportRowsGrouped        ImportState = "rows_grouped"
	ImportPerFamilyValidated ImportState = "per_family_validated"
	ImportPerFamilyCommitted ImportState = "per_family_committed"
	ImportReportGenerated    ImportState = "report_generated"
)

type FamilyImportResult struct {
	FamilyNumber string `json:"familyNumber"`
	FamilyID     string `json:"familyId,omitempty"`
	Members      int    `json:"members"`
	Success      bool   `json:"success"`
	Reason       string `json:"reason,omitempty"`
}

type ImportReport struct {
	CampID       string               `json:"campId"`
	State        ImportState          `json:"state"`
	Rows         int                  `json:"rows"`
	SuccessCount int                  `json:"successCount"`
	FailCount    int                  `json:"failCount"`
	Unresolved   []UnresolvedDelegate `json:"unresolved,omitempty"`
	Results      []FamilyImportResult `json:"results"`
}
