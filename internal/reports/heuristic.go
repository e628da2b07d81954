package reports

import (
	"regexp"
	"strconv"
	"strings"

	"campaid/pkg/types"
)

var (
	underAgeReg = regexp.MustCompile(`(?:under|below|less than|younger than|أقل من|اقل من|تحت|دون)\s*(?:age\s*)?(\d{1,3})`)
	overAgeReg  = regexp.MustCompile(`(?:over|above|more than|older than|أكبر من|اكبر من|فوق)\s*(?:age\s*)?(\d{1,3})`)
)

type hint struct {
	words []string
	where *Expr
}

var memberHints = []hint{
	{[]string{"pregnan", "حامل", "حوامل"}, Call(OpEq, Field("member.is_pregnant"), Const(true))},
	{[]string{"nursing", "breastfeed", "مرضع"}, Call(OpEq, Field("member.is_nursing"), Const(true))},
	{[]string{"widow", "أرامل", "ارامل", "أرملة", "ارملة"}, Call(OpEq, Field("member.role"), Const(string(types.RoleWidow)))},
	{[]string{"female", "women", "girls", "إناث", "اناث", "نساء"}, Call(OpEq, Field("member.gender"), Const(string(types.GenderFemale)))},
	{[]string{"male", "men", "boys", "ذكور", "رجال"}, Call(OpEq, Field("member.gender"), Const(string(types.GenderMale)))},
	{[]string{"infant", "baby", "babies", "رضع", "رضيع"}, Call(OpLt, Call(OpAge), Const(2))},
	{[]string{"child", "kids", "أطفال", "اطفال"}, Call(OpLt, Call(OpAge), Const(18))},
	{[]string{"elderly", "senior", "كبار السن", "مسن"}, Call(OpGe, Call(OpAge), Const(60))},
	{[]string{"health", "disease", "chronic", "disab", "مرض", "صحي", "إعاقة", "اعاقة"}, Call(OpNe, Field("member.health_notes"), Const(nil))},
}

var familyHints = []struct {
	words []string
	field string
}{
	{[]string{"family number", "رقم العائلة", "رقم الأسرة"}, "family.family_number"},
	{[]string{"alternate phone", "alt phone", "رقم بديل"}, "family.alt_phone"},
	{[]string{"phone", "mobile", "هاتف", "جوال", "رقم التواصل"}, "family.phone"},
	{[]string{"address", "عنوان"}, "family.address"},
	{[]string{"delegate", "مندوب"}, "family.delegate_name"},
	{[]string{"shelter", "tent", "خيمة", "مأوى"}, "family.shelter_type"},
	{[]string{"housing", "سكن"}, "family.housing_status"},
	{[]string{"need", "احتياج"}, "family.needs"},
}

var listWords = []string{"names", "name of", "list", "who are", "أسماء", "اسماء"}

var countWords = []string{"number of", "count", "how many", "total", "size", "members", "عدد", "أفراد", "افراد"}

// Heuristic derives a column expression from its description by keyword
// matching in English and Arabic. It is used when the language model is not
// configured, unreachable or returns something unusable.
func Heuristic(description string) *Expr {
	d := strings.ToLower(strings.Join(strings.Fields(description), " "))

	var filters []*Expr
	explicitAge := false
	if m := underAgeReg.FindStringSubmatch(d); m != nil {
		n, _ := strconv.Atoi(m[1])
		filters = append(filters, Call(OpLt, Call(OpAge), Const(n)))
		explicitAge = true
	}
	if m := overAgeReg.FindStringSubmatch(d); m != nil {
		n, _ := strconv.Atoi(m[1])
		filters = append(filters, Call(OpGt, Call(OpAge), Const(n)))
		explicitAge = true
	}
	for _, h := range memberHints {
		if explicitAge && h.where.Args[0].Op == OpAge {
			continue
		}
		if containsAny(d, h.words...) {
			filters = append(filters, h.where)
		}
	}

	if len(filters) == 0 && !containsAny(d, listWords...) {
		for _, f := range familyHints {
			if containsAny(d, f.words...) {
				return Field(f.field)
			}
		}
		if containsAny(d, countWords...) {
			return &Expr{Op: OpCount}
		}
		return Const("")
	}

	var where *Expr
	switch len(filters) {
	case 0:
	case 1:
		where = filters[0]
	default:
		where = Call(OpAnd, filters...)
	}

	if containsAny(d, listWords...) {
		field := "member.name"
		if containsAny(d, "health", "مرض", "صحي") {
			field = "member.health_notes"
		}
		return &Expr{Op: OpList, Field: field, Where: where}
	}

	return &Expr{Op: OpCount, Where: where}
}

// containsAny reports whether s contains one of words. Latin words must start
// at a word boundary so "male" does not match "female".
func containsAny(s string, words ...string) bool {
	for _, w := range words {
		for i := 0; i <= len(s)-len(w); {
			j := strings.Index(s[i:], w)
			if j < 0 {
				break
			}
			at := i + j
			if at == 0 || !isLatinLetter(w[0]) || !isLatinLetter(s[at-1]) {
				return true
			}
			i = at + 1
		}
	}
	return false
}

func isLatinLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}
