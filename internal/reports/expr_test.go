package reports

import (
	"encoding/json"
	"testing"
	"time"

	"campaid/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportNow = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func sampleContext() Context {
	return Context{
		Family: &types.Family{
			ID:           "fam-1",
			FamilyNumber: "101",
			Address:      "Sector B",
			Phone:        strPtr("0599123456"),
			ShelterType:  types.ShelterReadyTent,
		},
		Members: []*types.Individual{
			{Name: "Yousef", DateOfBirth: "1950-01-20", Gender: types.GenderMale, Role: types.RoleHusband, ShoeSize: strPtr("43")},
			{Name: "Mariam", DateOfBirth: "1990-11-02", Gender: types.GenderFemale, Role: types.RoleWife, IsPregnant: true, ShoeSize: strPtr("38"), HealthNotes: strPtr("Diabetes")},
			{Name: "Sami", DateOfBirth: "2023-10-19", Gender: types.GenderMale, Role: types.RoleSon},
			{Name: "Lina", DateOfBirth: "2016-10-18", Gender: types.GenderFemale, Role: types.RoleDaughter},
		},
		Now: reportNow,
	}
}

func TestEval(t *testing.T) {
	under := func(n int) *Expr { return Call(OpLt, Call(OpAge), Const(n)) }

	tests := []struct {
		name string
		expr *Expr
		want any
	}{
		{"constant", Const(7), float64(7)},
		{"family field", Field("family.address"), "Sector B"},
		{"family pointer field", Field("family.phone"), "0599123456"},
		{"typed family field", Field("family.shelter_type"), "ready_tent"},
		{"nil family field", Field("family.needs"), nil},
		{"count all", &Expr{Op: OpCount}, float64(4)},
		// Sami turns 3 tomorrow, Lina turned 10 today
		{"count under 3", &Expr{Op: OpCount, Where: under(3)}, float64(1)},
		{"count under 10", &Expr{Op: OpCount, Where: under(10)}, float64(1)},
		{"count pregnant", &Expr{Op: OpCount, Where: Call(OpEq, Field("member.is_pregnant"), Const(true))}, float64(1)},
		{"list females", &Expr{Op: OpList, Field: "member.name", Where: Call(OpEq, Field("member.gender"), Const("female"))}, "Mariam, Lina"},
		{"list with sep", &Expr{Op: OpList, Field: "member.name", Sep: " | ", Where: Call(OpGe, Call(OpAge), Const(60))}, "Yousef"},
		{"sum shoe sizes", &Expr{Op: OpSum, Field: "member.shoe_size"}, float64(81)},
		{"numeric compare on text", Call(OpGt, Field("family.family_number"), Const(99)), true},
		{"contains folds case", Call(OpContains, Field("family.address"), Const("sector")), true},
		{"and short circuit", Call(OpAnd, Const(true), Const(false), Const(true)), false},
		{"or", Call(OpOr, Const(false), Const("x")), true},
		{"not", Call(OpNot, Const(nil)), true},
		{"if", Call(OpIf, Call(OpGt, &Expr{Op: OpCount}, Const(3)), Const("large"), Const("small")), "large"},
		{"health notes present", &Expr{Op: OpCount, Where: Call(OpNe, Field("member.health_notes"), Const(nil))}, float64(1)},
		{"role compare", &Expr{Op: OpCount, Where: Call(OpEq, Field("member.role"), Const("WIFE"))}, float64(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Eval(tt.expr, sampleContext())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalFromJSON(t *testing.T) {
	raw := `{"op":"count","where":{"op":"and","args":[
		{"op":"eq","args":[{"op":"field","field":"member.gender"},{"op":"const","value":"male"}]},
		{"op":"lt","args":[{"op":"age"},{"op":"const","value":18}]}]}}`

	var e Expr
	require.NoError(t, json.Unmarshal([]byte(raw), &e))

	got, err := Eval(&e, sampleContext())
	require.NoError(t, err)
	assert.Equal(t, float64(1), got)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		expr *Expr
	}{
		{"nil", nil},
		{"unknown op", &Expr{Op: "exec"}},
		{"unknown family field", Field("family.password")},
		{"member field at top level", Field("member.name")},
		{"age at top level", Call(OpAge)},
		{"bad scope", Field("camp.name")},
		{"no scope", Field("address")},
		{"arity", Call(OpEq, Const(1))},
		{"single and", Call(OpAnd, Const(true))},
		{"list of family field", &Expr{Op: OpList, Field: "family.address"}},
		{"nested aggregate", &Expr{Op: OpCount, Where: Call(OpGt, &Expr{Op: OpCount}, Const(1))}},
		{"object constant", Const(map[string]any{"a": 1})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Validate(tt.expr), ErrInvalidExpr)
		})
	}

	deep := Const(true)
	for range maxDepth + 2 {
		deep = Call(OpNot, deep)
	}
	assert.ErrorIs(t, Validate(deep), ErrInvalidExpr)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "", Format(nil))
	assert.Equal(t, "yes", Format(true))
	assert.Equal(t, "no", Format(false))
	assert.Equal(t, "3", Format(float64(3)))
	assert.Equal(t, "2.50", Format(2.5))
	assert.Equal(t, "text", Format("text"))
}
