// Package survey reshapes the wide response table into long form and
// applies reverse coding to inverted items.
package survey

import "github.com/Sennevleminckx/chart/internal/table"

// Record is one (employee, question) observation. Score is nil when the
// question was left unanswered; nil scores survive the melt and are only
// filtered out by the aggregation step.
type Record struct {
	EmployeeID   string
	Team         string
	QuestionCode string
	Score        *int
}

// reverseCoded lists the questions whose scale runs opposite to the rest
// of the survey. Their scores are flipped to 11-score during the melt so
// that higher always means better downstream.
var reverseCoded = map[string]bool{
	"ZT4": true, "ZT13": true, "ZT14": true, "ZT15": true, "ZT16": true,
	"ZT18": true, "ZT19": true, "ZT20": true, "ZT21": true, "ZT22": true,
	"ZT23": true, "ZT24": true, "ZT25": true, "ZT26": true, "ZT28": true,
	"ZT29": true, "ZT30": true, "ZT33": true, "ZT34": true, "ZT43": true,
	"ZT60": true, "ZT70": true, "ZT74": true, "ZT78": true, "ZT79": true,
	"ZT80": true, "ZT81": true, "ZT85": true, "ZT89": true, "ZT101": true,
	"ZT102": true, "ZT103": true,
}

// IsReverseCoded reports whether a question's scale is inverted.
func IsReverseCoded(code string) bool {
	return reverseCoded[code]
}

// ReverseScore flips a 1..10 score to the opposite end of the scale.
// It is an involution: applying it twice restores the original value,
// which is why the melt must apply it exactly once.
func ReverseScore(s int) int {
	return 11 - s
}

// Melt reshapes the wide table into one Record per (employee, question)
// pair. Output order is column-major: all employees for the first
// question, then the second, and so on. Reverse-coded items are flipped
// here, once, before any aggregation sees them.
func Melt(wide *table.Responses) []Record {
	records := make([]Record, 0, len(wide.Questions)*len(wide.Rows))
	for qi, code := range wide.Questions {
		reversed := reverseCoded[code]
		for _, row := range wide.Rows {
			rec := Record{
				EmployeeID:   row.EmployeeID,
				Team:         row.Team,
				QuestionCode: code,
			}
			if s := row.Scores[qi]; s != nil {
				v := *s
				if reversed {
					v = ReverseScore(v)
				}
				rec.Score = &v
			}
			records = append(records, rec)
		}
	}
	return records
}
