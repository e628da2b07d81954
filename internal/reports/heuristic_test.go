package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristic(t *testing.T) {
	pregnant := Call(OpEq, Field("member.is_pregnant"), Const(true))
	female := Call(OpEq, Field("member.gender"), Const("female"))
	health := Call(OpNe, Field("member.health_notes"), Const(nil))

	tests := []struct {
		description string
		want        *Expr
	}{
		{"Number of children under 5", &Expr{Op: OpCount, Where: Call(OpLt, Call(OpAge), Const(5))}},
		{"Names of pregnant women", &Expr{Op: OpList, Field: "member.name", Where: Call(OpAnd, pregnant, female)}},
		{"Phone number", Field("family.phone")},
		{"Alternate phone", Field("family.alt_phone")},
		{"عدد الأطفال", &Expr{Op: OpCount, Where: Call(OpLt, Call(OpAge), Const(18))}},
		{"Elderly over 70", &Expr{Op: OpCount, Where: Call(OpGt, Call(OpAge), Const(70))}},
		{"Total members", &Expr{Op: OpCount}},
		{"List health conditions", &Expr{Op: OpList, Field: "member.health_notes", Where: health}},
		{"Number of females", &Expr{Op: OpCount, Where: female}},
		{"something unrelated", Const("")},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			got := Heuristic(tt.description)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, Validate(got))
		})
	}
}

func TestContainsAny(t *testing.T) {
	assert.True(t, containsAny("male members", "male"))
	assert.False(t, containsAny("female members", "male"))
	assert.True(t, containsAny("female and male", "male"))
	assert.True(t, containsAny("عدد الذكور", "ذكور"))
	assert.False(t, containsAny("", "male"))
}
