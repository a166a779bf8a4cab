package server

import (
	"sort"
	"strconv"

	"github.com/Sennevleminckx/chart/internal/artifact"
	"github.com/Sennevleminckx/chart/internal/stats"
)

// RadarPoint is one axis of a radar chart. Center is the chosen central
// tendency (median or mean), Spread the matching dispersion (IQR or std).
// Lower is clipped at 0 so the band never leaves the chart.
type RadarPoint struct {
	Axis   string  `json:"axis"`
	Label  string  `json:"label"`
	N      int     `json:"n"`
	Center float64 `json:"center"`
	Spread float64 `json:"spread"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// Statistic choices for the radar endpoints.
const (
	StatMedian = "median"
	StatMean   = "mean"
)

// domainRadar recomputes per-domain statistics over the selected teams
// from the raw long-form rows. An empty team set selects every team.
func domainRadar(rows []artifact.LongRow, teams map[string]bool, stat string, labels map[int]string) []RadarPoint {
	groups := make(map[int][]float64)
	for _, r := range rows {
		if !selected(r, teams) {
			continue
		}
		groups[int(*r.DomainID)] = append(groups[int(*r.DomainID)], float64(*r.Score))
	}

	domains := make([]int, 0, len(groups))
	for d := range groups {
		domains = append(domains, d)
	}
	sort.Ints(domains)

	points := make([]RadarPoint, 0, len(domains))
	for _, d := range domains {
		p := point(groups[d], stat)
		p.Axis = "D" + strconv.Itoa(d)
		p.Label = labels[d]
		points = append(points, p)
	}
	return points
}

// questionRadar recomputes per-question statistics within one domain.
func questionRadar(rows []artifact.LongRow, domain int, teams map[string]bool, stat string, texts map[string]string) []RadarPoint {
	groups := make(map[string][]float64)
	for _, r := range rows {
		if !selected(r, teams) || int(*r.DomainID) != domain {
			continue
		}
		groups[r.QuestionCode] = append(groups[r.QuestionCode], float64(*r.Score))
	}

	codes := make([]string, 0, len(groups))
	for c := range groups {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	points := make([]RadarPoint, 0, len(codes))
	for _, c := range codes {
		p := point(groups[c], stat)
		p.Axis = c
		p.Label = texts[c]
		points = append(points, p)
	}
	return points
}

// selected reports whether a row enters the view: classified, scored,
// and on a selected team.
func selected(r artifact.LongRow, teams map[string]bool) bool {
	if r.DomainID == nil || r.Score == nil {
		return false
	}
	return len(teams) == 0 || teams[r.Team]
}

func point(scores []float64, stat string) RadarPoint {
	s := stats.Describe(scores)

	var center, spread float64
	if stat == StatMean {
		center = s.Mean
		if s.Std != nil {
			spread = *s.Std
		}
	} else {
		center = s.Median
		spread = s.IQR
	}

	lower := center - spread
	if lower < 0 {
		lower = 0
	}
	return RadarPoint{
		N:      s.N,
		Center: center,
		Spread: spread,
		Lower:  lower,
		Upper:  center + spread,
	}
}
