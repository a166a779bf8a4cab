package stats

import (
	"fmt"
	"sort"

	"github.com/Sennevleminckx/chart/internal/survey"
	"github.com/Sennevleminckx/chart/internal/taxonomy"
)

// AnnotatedResponse is a survey record joined with its taxonomy row. A
// question whose subdomain belongs to several domains yields one annotated
// row per domain, duplicating the response into each domain's statistics.
// Unclassified questions keep nil SubdomainID/DomainID: they stay visible
// in the long-form artifact but never enter grouped statistics.
type AnnotatedResponse struct {
	EmployeeID   string
	Team         string
	QuestionCode string
	Score        *int
	SubdomainID  *int
	DomainID     *int
}

// StatRow is one (team, domain, subdomain) group.
type StatRow struct {
	Team        string
	DomainID    int
	SubdomainID int
	Summary
}

// DomainStatRow is one (team, domain) group, recomputed over the raw
// scores under the domain rather than aggregated from StatRows.
type DomainStatRow struct {
	Team     string
	DomainID int
	Summary
}

// Annotate left-joins responses to the taxonomy on question code.
func Annotate(records []survey.Record, tax *taxonomy.Result) []AnnotatedResponse {
	idx := tax.Index()

	var out []AnnotatedResponse
	for _, rec := range records {
		rows := idx[rec.QuestionCode]
		if len(rows) == 0 {
			out = append(out, AnnotatedResponse{
				EmployeeID:   rec.EmployeeID,
				Team:         rec.Team,
				QuestionCode: rec.QuestionCode,
				Score:        rec.Score,
			})
			continue
		}
		for _, tr := range rows {
			sub, dom := tr.SubdomainID, tr.DomainID
			out = append(out, AnnotatedResponse{
				EmployeeID:   rec.EmployeeID,
				Team:         rec.Team,
				QuestionCode: rec.QuestionCode,
				Score:        rec.Score,
				SubdomainID:  &sub,
				DomainID:     &dom,
			})
		}
	}
	return out
}

type groupKey struct {
	team        string
	domainID    int
	subdomainID int
}

// SubdomainStats groups annotated responses by (team, domain, subdomain)
// and describes each group's scores. Unclassified rows and nil scores are
// skipped; groups with no scores are omitted entirely. Output is sorted
// by team, then domain, then subdomain.
func SubdomainStats(rows []AnnotatedResponse) []StatRow {
	groups := make(map[groupKey][]float64)
	for _, r := range rows {
		if r.DomainID == nil || r.Score == nil {
			continue
		}
		k := groupKey{team: r.Team, domainID: *r.DomainID, subdomainID: *r.SubdomainID}
		groups[k] = append(groups[k], float64(*r.Score))
	}

	out := make([]StatRow, 0, len(groups))
	for k, scores := range groups {
		out = append(out, StatRow{
			Team:        k.team,
			DomainID:    k.domainID,
			SubdomainID: k.subdomainID,
			Summary:     Describe(scores),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Team != out[j].Team {
			return out[i].Team < out[j].Team
		}
		if out[i].DomainID != out[j].DomainID {
			return out[i].DomainID < out[j].DomainID
		}
		return out[i].SubdomainID < out[j].SubdomainID
	})
	return out
}

// DomainStats groups annotated responses by (team, domain) and describes
// each group directly over all scores under the domain. It deliberately
// ignores the subdomain axis instead of re-aggregating SubdomainStats
// output, so medians and IQRs reflect the full score distribution.
func DomainStats(rows []AnnotatedResponse) []DomainStatRow {
	type key struct {
		team     string
		domainID int
	}
	groups := make(map[key][]float64)
	for _, r := range rows {
		if r.DomainID == nil || r.Score == nil {
			continue
		}
		k := key{team: r.Team, domainID: *r.DomainID}
		groups[k] = append(groups[k], float64(*r.Score))
	}

	out := make([]DomainStatRow, 0, len(groups))
	for k, scores := range groups {
		out = append(out, DomainStatRow{
			Team:     k.team,
			DomainID: k.domainID,
			Summary:  Describe(scores),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Team != out[j].Team {
			return out[i].Team < out[j].Team
		}
		return out[i].DomainID < out[j].DomainID
	})
	return out
}

// Pivot is the subdomain-level statistics reshaped wide: one row per
// (domain, subdomain), one column per statistic x team. A convenience
// view for spreadsheet-style consumption; nothing downstream depends
// on it.
type Pivot struct {
	Teams []string // sorted
	Stats []string // fixed order: median, mean, std, iqr
	Rows  []PivotRow
}

// PivotRow holds the cells of one (domain, subdomain) row keyed by
// ColumnName(stat, team). Missing (team absent from group) and undefined
// (std of a single score) cells are nil.
type PivotRow struct {
	DomainID    int
	SubdomainID int
	Cells       map[string]*float64
}

// ColumnName builds the pivot column label for a statistic/team pair.
func ColumnName(stat, team string) string {
	return fmt.Sprintf("%s_%s", stat, team)
}

// BuildPivot reshapes subdomain-level stat rows into a Pivot, sorted by
// (domain, subdomain).
func BuildPivot(rows []StatRow) *Pivot {
	teamSet := make(map[string]bool)
	for _, r := range rows {
		teamSet[r.Team] = true
	}
	teams := make([]string, 0, len(teamSet))
	for t := range teamSet {
		teams = append(teams, t)
	}
	sort.Strings(teams)

	p := &Pivot{Teams: teams, Stats: []string{"median", "mean", "std", "iqr"}}

	type rowKey struct{ domainID, subdomainID int }
	byKey := make(map[rowKey]*PivotRow)
	var order []rowKey
	for _, r := range rows {
		k := rowKey{r.DomainID, r.SubdomainID}
		pr, ok := byKey[k]
		if !ok {
			pr = &PivotRow{DomainID: r.DomainID, SubdomainID: r.SubdomainID, Cells: make(map[string]*float64)}
			byKey[k] = pr
			order = append(order, k)
		}
		median, mean, iqr := r.Median, r.Mean, r.IQR
		pr.Cells[ColumnName("median", r.Team)] = &median
		pr.Cells[ColumnName("mean", r.Team)] = &mean
		pr.Cells[ColumnName("std", r.Team)] = r.Std
		pr.Cells[ColumnName("iqr", r.Team)] = &iqr
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].domainID != order[j].domainID {
			return order[i].domainID < order[j].domainID
		}
		return order[i].subdomainID < order[j].subdomainID
	})
	for _, k := range order {
		p.Rows = append(p.Rows, *byKey[k])
	}
	return p
}
