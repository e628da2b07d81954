package types

import "time"

type DraftStatus string

const (
	DraftStatusPending DraftStatus = "pending"
	DraftStatusError   DraftStatus = "error"
)

// Draft is a family bundle captured on the device that has not reached the
// remote store yet. ID is local and monotonic, unrelated to the family ID the
// remote store assigns on upload.
type Draft struct {
	ID        uint64        `json:"id"`
	CampID    string        `json:"campId"`
	Bundle    *FamilyBundle `json:"bundle"`
	Status    DraftStatus   `json:"status"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

type DraftOutcome struct {
	DraftID      uint64 `json:"draftId"`
	FamilyNumber string `json:"familyNumber"`
	FamilyID     string `json:"familyId,omitempty"`
	Error        string `json:"error,omitempty"`
}

type UploadResult struct {
	CampID       string         `json:"campId"`
	SuccessCount int            `json:"successCount"`
	FailCount    int            `json:"failCount"`
	Outcomes     []DraftOutcome `json:"outcomes"`
}

type SaveDestination string

const (
	SavedRemote SaveDestination = "remote"
	SavedDraft  SaveDestination = "draft"
)

// SaveOutcome reports where a registered family ended up.
type SaveOutcome struct {
	Destination SaveDestination `json:"destination"`
	Family      *Family         `json:"family,omitempty"`
	Draft       *Draft          `json:"draft,omitempty"`
}
