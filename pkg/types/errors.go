package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFamilyNotFound     = errors.New("family not found")
	ErrIndividualNotFound = errors.New("individual not found")
	ErrDraftNotFound      = errors.New("draft not found")
	ErrCampNotFound       = errors.New("camp not found")
	ErrParcelNotFound     = errors.New("parcel not found")
	ErrNoConnectivity     = errors.New("remote store unreachable")
)

// ValidationError is a user-correctable input problem. Field names the
// offending input so the form can highlight it, e.g. "members[1].nid".
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type DuplicateKind string

const (
	DuplicateFamilyNumber DuplicateKind = "family_number"
	DuplicateNID          DuplicateKind = "nid"
)

type DuplicateSource string

const (
	SourceNone   DuplicateSource = ""
	SourceForm   DuplicateSource = "form"
	SourceDraft  DuplicateSource = "draft"
	SourceRemote DuplicateSource = "remote"
)

// DuplicateError is a uniqueness violation detected before any write.
type DuplicateError struct {
	Kind   DuplicateKind
	Value  string
	Source DuplicateSource
	// HolderFamilyNumber is the family already holding Value, when known.
	HolderFamilyNumber string
}

func (e *DuplicateError) Error() string {
	switch e.Kind {
	case DuplicateFamilyNumber:
		return fmt.Sprintf("family number %s already exists", e.Value)
	default:
		msg := fmt.Sprintf("national id %s is already registered", e.Value)
		switch {
		case e.Source == SourceDraft && e.HolderFamilyNumber != "":
			msg += fmt.Sprintf(" in the queued draft for family %s", e.HolderFamilyNumber)
		case e.Source == SourceDraft:
			msg += " in a queued draft"
		case e.HolderFamilyNumber != "":
			msg += fmt.Sprintf(" in family %s", e.HolderFamilyNumber)
		case e.Source == SourceForm:
			msg += " in this form"
		}
		return msg
	}
}

// ConnectivityError is returned when a remote-only operation is attempted
// while the remote store is unreachable. errors.Is(err, ErrNoConnectivity) holds.
type ConnectivityError struct {
	Op string
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, ErrNoConnectivity)
}

func (e *ConnectivityError) Is(target error) bool {
	return target == ErrNoConnectivity
}

// RemoteOperationError is a remote call that failed after validation passed.
type RemoteOperationError struct {
	Op  string
	Err error
}

func (e *RemoteOperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteOperationError) Unwrap() error {
	return e.Err
}

type UnresolvedDelegate struct {
	FamilyNumber string `json:"familyNumber"`
	DelegateText string `json:"delegateText"`
}

// UnresolvedDelegatesError aborts a bulk import before any write happens.
type UnresolvedDelegatesError struct {
	Delegates []UnresolvedDelegate
}

func (e *UnresolvedDelegatesError) Error() string {
	parts := make([]string, 0, len(e.Delegates))
	for _, d := range e.Delegates {
		parts = append(parts, fmt.Sprintf("%s (%q)", d.FamilyNumber, d.DelegateText))
	}
	return fmt.Sprintf("unresolved delegates for families: %s", strings.Join(parts, ", "))
}
