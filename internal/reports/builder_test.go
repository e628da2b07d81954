package reports

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"campaid/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBridge struct {
	exprs map[string]*Expr
	err   error
}

func (b *fakeBridge) Translate(ctx context.Context, columns []types.ReportColumn) (map[string]*Expr, error) {
	return b.exprs, b.err
}

type fakeFamilies struct {
	families []*types.Family
	members  []*types.Individual
}

func (f *fakeFamilies) FamiliesByCamp(ctx context.Context, campID string, includeDeparted bool) ([]*types.Family, error) {
	var out []*types.Family
	for _, fam := range f.families {
		if fam.CampID == campID && (includeDeparted || !fam.IsDeparted) {
			out = append(out, fam)
		}
	}
	return out, nil
}

func (f *fakeFamilies) IndividualsByFamilies(ctx context.Context, familyIDs []string) ([]*types.Individual, error) {
	want := make(map[string]bool, len(familyIDs))
	for _, id := range familyIDs {
		want[id] = true
	}
	var out []*types.Individual
	for _, m := range f.members {
		if want[m.FamilyID] {
			out = append(out, m)
		}
	}
	return out, nil
}

func sampleFamilies() *fakeFamilies {
	sc := sampleContext()
	sc.Family.CampID = "camp-1"
	for _, m := range sc.Members {
		m.FamilyID = sc.Family.ID
	}

	return &fakeFamilies{
		families: []*types.Family{
			sc.Family,
			{ID: "fam-2", CampID: "camp-1", FamilyNumber: "102", Address: "Sector C"},
			{ID: "fam-3", CampID: "camp-1", FamilyNumber: "103", Address: "Gone", IsDeparted: true},
			{ID: "fam-4", CampID: "camp-2", FamilyNumber: "101", Address: "Elsewhere"},
		},
		members: append(sc.Members,
			&types.Individual{FamilyID: "fam-2", Name: "Huda", DateOfBirth: "1985-04-01", Gender: types.GenderFemale, Role: types.RoleWidow},
		),
	}
}

func newTestBuilder(bridge Bridge) *Builder {
	b := NewBuilder(bridge, sampleFamilies(), nil)
	b.now = func() time.Time { return reportNow }
	return b
}

func TestBuildMixesBridgeAndHeuristic(t *testing.T) {
	bridge := &fakeBridge{exprs: map[string]*Expr{
		"kids": {Op: OpCount, Where: Call(OpLt, Call(OpAge), Const(18))},
		// unknown field, must fall back
		"phone": Field("family.password"),
	}}

	report, err := newTestBuilder(bridge).Build(context.Background(), &types.ReportRequest{
		CampID: "camp-1",
		Columns: []types.ReportColumn{
			{ID: "kids", Description: "children"},
			{ID: "phone", Description: "Phone number"},
			{ID: "widows", Description: "Number of widows"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"kids": SourceModel, "phone": SourceHeuristic, "widows": SourceHeuristic}, report.Sources)
	require.Len(t, report.Rows, 2)

	assert.Equal(t, "101", report.Rows[0].FamilyNumber)
	assert.Equal(t, map[string]string{"kids": "2", "phone": "0599123456", "widows": "0"}, report.Rows[0].Cells)

	assert.Equal(t, "102", report.Rows[1].FamilyNumber)
	assert.Equal(t, map[string]string{"kids": "0", "phone": "", "widows": "1"}, report.Rows[1].Cells)
}

func TestBuildBridgeDown(t *testing.T) {
	bridge := &fakeBridge{err: errors.New("connection refused")}

	report, err := newTestBuilder(bridge).Build(context.Background(), &types.ReportRequest{
		CampID:  "camp-1",
		Columns: []types.ReportColumn{{ID: "pregnant", Description: "pregnant women"}},
	})
	require.NoError(t, err)

	assert.Equal(t, SourceHeuristic, report.Sources["pregnant"])
	assert.Equal(t, "1", report.Rows[0].Cells["pregnant"])
	assert.Equal(t, "0", report.Rows[1].Cells["pregnant"])
}

func TestBuildWithoutBridge(t *testing.T) {
	report, err := newTestBuilder(nil).Build(context.Background(), &types.ReportRequest{
		CampID:  "camp-2",
		Columns: []types.ReportColumn{{ID: "size", Description: "Total members"}},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "0", report.Rows[0].Cells["size"])
}

func TestBuildValidation(t *testing.T) {
	b := newTestBuilder(nil)

	tests := []struct {
		name string
		req  *types.ReportRequest
	}{
		{"no camp", &types.ReportRequest{Columns: []types.ReportColumn{{ID: "a", Description: "x"}}}},
		{"no columns", &types.ReportRequest{CampID: "camp-1"}},
		{"column without description", &types.ReportRequest{CampID: "camp-1", Columns: []types.ReportColumn{{ID: "a"}}}},
		{"duplicate ids", &types.ReportRequest{CampID: "camp-1", Columns: []types.ReportColumn{
			{ID: "a", Description: "x"}, {ID: "a", Description: "y"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(context.Background(), tt.req)
			var verr *types.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	report := &types.Report{
		Columns: []types.ReportColumn{{ID: "kids"}, {ID: "notes"}},
		Rows: []types.ReportRow{
			{FamilyNumber: "101", Cells: map[string]string{"kids": "2", "notes": "needs, blankets"}},
			{FamilyNumber: "102", Cells: map[string]string{"kids": "0"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, report))
	assert.Equal(t, "family_number,kids,notes\n101,2,\"needs, blankets\"\n102,0,\n", buf.String())
}

func TestParseReply(t *testing.T) {
	content := `{"columns":{
		"kids":{"op":"count","where":{"op":"lt","args":[{"op":"age"},{"op":"const","value":18}]}},
		"bad":{"op":"exec","value":"rm -rf /"},
		"broken":"not an object"}}`

	got, err := parseReply(content, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, OpCount, got["kids"].Op)

	_, err = parseReply("Sure! Here is the logic:", nil)
	assert.Error(t, err)
}
