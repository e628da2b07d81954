package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"campaid/internal/family"
	"campaid/internal/metrics"
	"campaid/internal/store"
	"campaid/pkg/types"

	"github.com/sirupsen/logrus"
)

// Registry is the remote family register the import commits into.
type Registry interface {
	store.BundleWriter
	ActiveFamilyByNumber(ctx context.Context, campID, familyNumber string) (*types.Family, error)
	ActiveNIDHolder(ctx context.Context, nid string) (*types.NIDHolder, error)
}

// DelegateSource lists the canonical delegate names of a camp.
type DelegateSource interface {
	DelegateNames(ctx context.Context, campID string) ([]string, error)
}

type Notifier interface {
	CreateNotification(ctx context.Context, campID, title, body string) error
}

type Config struct {
	// Threshold is the minimum delegate name similarity. Zero means DefaultThreshold.
	Threshold float64
	// Notifier receives a summary once an import completes. Optional.
	Notifier Notifier
	Logger   *logrus.Logger
}

type Reconciler struct {
	remote    Registry
	delegates DelegateSource
	notifier  Notifier
	threshold float64
	logger    *logrus.Logger
	now       func() time.Time
}

func NewReconciler(remote Registry, delegates DelegateSource, cfg Config) *Reconciler {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
		cfg.Logger.SetOutput(io.Discard)
	}

	return &Reconciler{
		remote:    remote,
		delegates: delegates,
		notifier:  cfg.Notifier,
		threshold: cfg.Threshold,
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// group is the rows of one family number, in file order.
type group struct {
	familyNumber string
	rows         []Row
	delegateText string
	delegate     string
	bundle       *types.FamilyBundle
	failure      string
}

// Import reconciles rows into campID. When any delegate reference cannot be
// resolved it returns the report in state aborted together with a
// *types.UnresolvedDelegatesError and writes nothing. Otherwise each family
// is checked and created on its own; failures are recorded per family and
// never stop the batch.
func (r *Reconciler) Import(ctx context.Context, campID string, rows []Row) (*types.ImportReport, error) {
	report := &types.ImportReport{
		CampID:  campID,
		State:   types.ImportParsed,
		Rows:    len(rows),
		Results: make([]types.FamilyImportResult, 0),
	}

	if strings.TrimSpace(campID) == "" {
		return report, types.NewValidationError("camp_id", "a camp must be selected before importing")
	}
	if len(rows) == 0 {
		return report, types.NewValidationError("file", "the file has no data rows")
	}

	groups := groupRows(rows)

	unresolved, err := r.resolveDelegates(ctx, campID, groups)
	if err != nil {
		return report, err
	}
	if len(unresolved) > 0 {
		report.State = types.ImportAborted
		report.Unresolved = unresolved
		metrics.ImportsAborted.Inc()
		r.logger.WithField("camp_id", campID).WithField("unresolved", len(unresolved)).
			Warn("import aborted on unresolved delegates")
		return report, &types.UnresolvedDelegatesError{Delegates: unresolved}
	}
	report.State = types.ImportRowsGrouped

	now := r.now()
	seenNIDs := make(map[string]string)
	for _, g := range groups {
		r.validate(ctx, campID, g, now, seenNIDs)
	}
	report.State = types.ImportPerFamilyValidated

	for _, g := range groups {
		result := types.FamilyImportResult{FamilyNumber: g.familyNumber, Members: len(g.rows)}
		entry := r.logger.WithFields(logrus.Fields{"camp_id": campID, "family_number": g.familyNumber})

		if g.failure == "" {
			if err := store.CreateBundle(ctx, r.remote, g.bundle); err != nil {
				g.failure = (&types.RemoteOperationError{Op: "create family", Err: err}).Error()
			}
		}

		if g.failure != "" {
			result.Reason = g.failure
			report.FailCount++
			metrics.ImportedFamilies.WithLabelValues("failed").Inc()
			entry.WithField("reason", g.failure).Warn("family not imported")
		} else {
			result.Success = true
			result.FamilyID = g.bundle.Family.ID
			report.SuccessCount++
			metrics.ImportedFamilies.WithLabelValues("imported").Inc()
			entry.WithField("family_id", result.FamilyID).Info("family imported")
		}

		report.Results = append(report.Results, result)
	}
	report.State = types.ImportPerFamilyCommitted

	r.notify(ctx, report)
	report.State = types.ImportReportGenerated

	return report, nil
}

func groupRows(rows []Row) []*group {
	index := make(map[string]*group)
	groups := make([]*group, 0)
	for _, row := range rows {
		g, ok := index[row.FamilyNumber]
		if !ok {
			g = &group{familyNumber: row.FamilyNumber}
			index[row.FamilyNumber] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, row)
		if g.delegateText == "" && row.Delegate != "" {
			g.delegateText = row.Delegate
		}
	}
	return groups
}

// resolveDelegates maps each group's delegate text onto a canonical name and
// returns every reference that could not be resolved.
func (r *Reconciler) resolveDelegates(ctx context.Context, campID string, groups []*group) ([]types.UnresolvedDelegate, error) {
	needed := false
	for _, g := range groups {
		if g.delegateText != "" {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}

	names, err := r.delegates.DelegateNames(ctx, campID)
	if err != nil {
		return nil, &types.RemoteOperationError{Op: "load delegates", Err: err}
	}

	var unresolved []types.UnresolvedDelegate
	for _, g := range groups {
		if g.delegateText == "" {
			continue
		}

		match := BestMatch(g.delegateText, names, r.threshold)
		if !match.Resolved {
			unresolved = append(unresolved, types.UnresolvedDelegate{
				FamilyNumber: g.familyNumber,
				DelegateText: g.delegateText,
			})
			continue
		}

		g.delegate = match.Name
		if match.Name != g.delegateText {
			r.logger.WithFields(logrus.Fields{
				"family_number": g.familyNumber,
				"input":         g.delegateText,
				"delegate":      match.Name,
				"similarity":    match.Similarity,
			}).Debug("delegate matched")
		}
	}

	return unresolved, nil
}

// validate builds the group's bundle and runs the batch and remote duplicate
// checks, recording the first problem as the group's failure.
func (r *Reconciler) validate(ctx context.Context, campID string, g *group, now time.Time, seenNIDs map[string]string) {
	bundle, err := buildBundle(campID, g, now)
	if err != nil {
		g.failure = err.Error()
		return
	}
	g.bundle = bundle

	for _, nid := range bundle.NIDs() {
		if holder, ok := seenNIDs[nid]; ok {
			g.failure = fmt.Sprintf("national id %s is repeated in this file (family %s)", nid, holder)
			return
		}
	}

	_, err = r.remote.ActiveFamilyByNumber(ctx, campID, g.familyNumber)
	switch {
	case err == nil:
		g.failure = (&types.DuplicateError{Kind: types.DuplicateFamilyNumber, Value: g.familyNumber, Source: types.SourceRemote}).Error()
		return
	case !errors.Is(err, types.ErrFamilyNotFound):
		g.failure = (&types.RemoteOperationError{Op: "check family number", Err: err}).Error()
		return
	}

	for _, nid := range bundle.NIDs() {
		holder, err := r.remote.ActiveNIDHolder(ctx, nid)
		if err == nil {
			g.failure = (&types.DuplicateError{
				Kind:               types.DuplicateNID,
				Value:              nid,
				Source:             types.SourceRemote,
				HolderFamilyNumber: holder.FamilyNumber,
			}).Error()
			return
		}
		if !errors.Is(err, types.ErrIndividualNotFound) {
			g.failure = (&types.RemoteOperationError{Op: "check national id", Err: err}).Error()
			return
		}
	}

	for _, nid := range bundle.NIDs() {
		seenNIDs[nid] = g.familyNumber
	}
}

// buildBundle normalizes a group with the same field rules as the
// registration form. National ids are optional here but must be well formed.
func buildBundle(campID string, g *group, now time.Time) (*types.FamilyBundle, error) {
	if g.familyNumber == "" {
		return nil, types.NewValidationError("family_number", "line %d has no family number", g.rows[0].Line)
	}

	first := g.rows[0]
	if first.Address == "" {
		return nil, types.NewValidationError("address", "address is required")
	}
	if !family.ValidatePhone(first.Phone) {
		return nil, types.NewValidationError("phone", "invalid phone %q", first.Phone)
	}
	if !family.ValidatePhone(first.AltPhone) {
		return nil, types.NewValidationError("alt_phone", "invalid alternate phone %q", first.AltPhone)
	}

	shelter, qualifier := family.ParseShelterLabel(first.Shelter)
	fam := &types.Family{
		CampID:           campID,
		FamilyNumber:     g.familyNumber,
		Address:          first.Address,
		Phone:            optional(first.Phone),
		AltPhone:         optional(first.AltPhone),
		HousingStatus:    optional(first.HousingStatus),
		Needs:            optional(first.Needs),
		ShelterType:      shelter,
		ShelterTypeOther: optional(qualifier),
		DelegateName:     optional(g.delegate),
	}

	seen := make(map[string]bool)
	members := make([]*types.Individual, 0, len(g.rows))
	for _, row := range g.rows {
		member, err := buildMember(row, now)
		if err != nil {
			return nil, err
		}
		if member.NID != nil {
			if seen[*member.NID] {
				return nil, types.NewValidationError("nid", "national id %s is repeated within the family (line %d)", *member.NID, row.Line)
			}
			seen[*member.NID] = true
		}
		members = append(members, member)
	}

	return &types.FamilyBundle{Family: fam, Members: members}, nil
}

func buildMember(row Row, now time.Time) (*types.Individual, error) {
	if row.Name == "" {
		return nil, types.NewValidationError("name", "line %d: member name is required", row.Line)
	}

	dob, err := family.ParseDate(row.DateOfBirth, now)
	if err != nil {
		return nil, types.NewValidationError("date_of_birth", "line %d: invalid date of birth: %s", row.Line, err)
	}

	member := &types.Individual{
		Name:        row.Name,
		DateOfBirth: dob.String(),
		IsPregnant:  row.Pregnant,
		IsNursing:   row.Nursing,
		ClothesSize: optional(row.ClothesSize),
		ShoeSize:    optional(row.ShoeSize),
		HealthNotes: optional(row.HealthNotes),
	}

	if row.NID != "" {
		nid := family.NormalizeNID(row.NID)
		if !family.ValidNID(nid) {
			return nil, types.NewValidationError("nid", "line %d: national id %q must be exactly %d digits", row.Line, row.NID, family.NIDLength)
		}
		member.NID = &nid
	}

	match := family.ParseRoleLabel(row.Role)
	if match.Known {
		member.Role = match.Role
	} else {
		member.Role = types.RoleOther
		member.RoleDescription = optional(row.Role)
	}
	member.Gender = family.DeriveGender(member.Role)

	return member, nil
}

func (r *Reconciler) notify(ctx context.Context, report *types.ImportReport) {
	if r.notifier == nil {
		return
	}

	body := fmt.Sprintf("%d families imported, %d failed", report.SuccessCount, report.FailCount)
	if err := r.notifier.CreateNotification(ctx, report.CampID, "Bulk import finished", body); err != nil {
		r.logger.WithError(err).WithField("camp_id", report.CampID).Warn("failed to record import notification")
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
