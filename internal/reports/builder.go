package reports

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"campaid/internal/metrics"
	"campaid/pkg/types"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const (
	SourceModel     = "model"
	SourceHeuristic = "heuristic"
)

// FamilySource loads the families a report runs over.
type FamilySource interface {
	FamiliesByCamp(ctx context.Context, campID string, includeDeparted bool) ([]*types.Family, error)
	IndividualsByFamilies(ctx context.Context, familyIDs []string) ([]*types.Individual, error)
}

type Builder struct {
	bridge   Bridge
	families FamilySource
	validate *validator.Validate
	logger   *logrus.Logger
	now      func() time.Time
}

// NewBuilder returns a Builder. bridge may be nil, in which case every column
// uses the keyword heuristic.
func NewBuilder(bridge Bridge, families FamilySource, logger *logrus.Logger) *Builder {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &Builder{
		bridge:   bridge,
		families: families,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		now:      time.Now,
	}
}

// Build evaluates the requested columns for every active family of the camp.
func (b *Builder) Build(ctx context.Context, req *types.ReportRequest) (*types.Report, error) {
	if err := b.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	exprs := b.translate(ctx, req.Columns)

	families, err := b.families.FamiliesByCamp(ctx, req.CampID, false)
	if err != nil {
		return nil, &types.RemoteOperationError{Op: "load families", Err: err}
	}

	ids := make([]string, 0, len(families))
	for _, f := range families {
		ids = append(ids, f.ID)
	}
	individuals, err := b.families.IndividualsByFamilies(ctx, ids)
	if err != nil {
		return nil, &types.RemoteOperationError{Op: "load members", Err: err}
	}

	byFamily := make(map[string][]*types.Individual, len(families))
	for _, ind := range individuals {
		byFamily[ind.FamilyID] = append(byFamily[ind.FamilyID], ind)
	}

	report := &types.Report{
		Columns: req.Columns,
		Sources: make(map[string]string, len(req.Columns)),
		Rows:    make([]types.ReportRow, 0, len(families)),
	}
	for id, e := range exprs {
		report.Sources[id] = e.source
	}

	now := b.now()
	for _, f := range families {
		c := Context{Family: f, Members: byFamily[f.ID], Now: now}
		row := types.ReportRow{
			FamilyID:     f.ID,
			FamilyNumber: f.FamilyNumber,
			Cells:        make(map[string]string, len(req.Columns)),
		}

		for _, col := range req.Columns {
			v, err := eval(exprs[col.ID].expr, &c)
			if err != nil {
				b.logger.WithError(err).WithField("column", col.ID).WithField("family_id", f.ID).
					Warn("failed to evaluate report cell")
				continue
			}
			row.Cells[col.ID] = Format(v)
		}

		report.Rows = append(report.Rows, row)
	}

	return report, nil
}

type columnLogic struct {
	expr   *Expr
	source string
}

// translate asks the bridge for every column and falls back to Heuristic for
// the columns it could not provide. Every returned expression is validated.
func (b *Builder) translate(ctx context.Context, columns []types.ReportColumn) map[string]columnLogic {
	var fromBridge map[string]*Expr
	if b.bridge != nil {
		var err error
		fromBridge, err = b.bridge.Translate(ctx, columns)
		if err != nil {
			b.logger.WithError(err).Warn("report bridge unavailable, using keyword heuristic")
		}
	}

	out := make(map[string]columnLogic, len(columns))
	for _, col := range columns {
		if e, ok := fromBridge[col.ID]; ok && Validate(e) == nil {
			out[col.ID] = columnLogic{expr: e, source: SourceModel}
		} else {
			out[col.ID] = columnLogic{expr: Heuristic(col.Description), source: SourceHeuristic}
		}
		metrics.ReportColumns.WithLabelValues(out[col.ID].source).Inc()
	}
	return out
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return types.NewValidationError(fe.Namespace(), "failed on the %q rule", fe.Tag())
	}
	return types.NewValidationError("", "%s", err)
}

// WriteCSV renders the report with the family number first and one column per
// requested column, in request order.
func WriteCSV(w io.Writer, report *types.Report) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(report.Columns)+1)
	header = append(header, "family_number")
	for _, col := range report.Columns {
		header = append(header, col.ID)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	for _, row := range report.Rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, row.FamilyNumber)
		for _, col := range report.Columns {
			rec = append(rec, row.Cells[col.ID])
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write report row %s: %w", row.FamilyNumber, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
