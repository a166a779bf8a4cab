// Package taxonomy resolves each survey question to its subdomain and
// domain(s). A question maps to exactly one subdomain (item table first,
// override table as fallback); a subdomain may belong to several domains,
// in which case the question fans out into one row per domain.
package taxonomy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sennevleminckx/chart/internal/table"
)

// Row is one fully resolved (question, subdomain, domain) triple.
type Row struct {
	QuestionCode string
	SubdomainID  int
	DomainID     int
}

// Result is the resolved taxonomy. Unresolved lists question codes that
// have neither an item-table entry nor an override, or whose subdomain
// maps to no domain; they contribute no Rows and are dropped from grouped
// statistics downstream.
type Result struct {
	Rows       []Row
	Unresolved []string
}

// Index returns the taxonomy rows grouped by question code, preserving
// row order within each question.
func (r *Result) Index() map[string][]Row {
	idx := make(map[string][]Row)
	for _, row := range r.Rows {
		idx[row.QuestionCode] = append(idx[row.QuestionCode], row)
	}
	return idx
}

// Resolve builds the taxonomy from the three input relations and the
// override table. Output row multiplicity per question equals the number
// of domains its subdomain belongs to.
func Resolve(mapping []table.MappingRow, items []table.ItemRow, subdomains []table.SubdomainRow, overrides *OverrideTable) (*Result, error) {
	itemSub := make(map[string]int, len(items))
	for _, it := range items {
		itemSub[it.Code] = it.SubdomainID
	}

	domainsBySub, err := domainSets(subdomains)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, m := range mapping {
		sub, ok := itemSub[m.QuestionCode]
		if !ok {
			sub, ok = overrides.Lookup(m.QuestionCode)
		}
		if !ok {
			res.Unresolved = append(res.Unresolved, m.QuestionCode)
			continue
		}

		domains := domainsBySub[sub]
		if len(domains) == 0 {
			// Subdomain known but absent from the subdomain table, or its
			// domain list was empty. Treated the same as an unmapped question.
			res.Unresolved = append(res.Unresolved, m.QuestionCode)
			continue
		}
		for _, d := range domains {
			res.Rows = append(res.Rows, Row{QuestionCode: m.QuestionCode, SubdomainID: sub, DomainID: d})
		}
	}
	return res, nil
}

// domainSets expands the comma-joined domain list of each subdomain into
// an ordered set of distinct domain ids.
func domainSets(subdomains []table.SubdomainRow) (map[int][]int, error) {
	sets := make(map[int][]int, len(subdomains))
	for _, s := range subdomains {
		if s.DomainList == "" {
			continue
		}
		seen := make(map[int]bool)
		for _, tok := range strings.Split(s.DomainList, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			d, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("subdomain %d: domain list %q contains non-numeric token %q", s.ID, s.DomainList, tok)
			}
			if seen[d] {
				continue
			}
			seen[d] = true
			sets[s.ID] = append(sets[s.ID], d)
		}
	}
	return sets, nil
}
