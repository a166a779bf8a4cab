package taxonomy

// OverrideTable is a hand-maintained fallback from question code to
// subdomain, applied when the item table has no entry for a question.
// It is versioned so updates to the list are visible in run output.
type OverrideTable struct {
	Version int
	entries map[string]int
}

// NewOverrideTable builds an override table from explicit entries.
func NewOverrideTable(version int, entries map[string]int) *OverrideTable {
	copied := make(map[string]int, len(entries))
	for code, sub := range entries {
		copied[code] = sub
	}
	return &OverrideTable{Version: version, entries: copied}
}

// Lookup returns the subdomain for a question code, if overridden.
func (t *OverrideTable) Lookup(code string) (int, bool) {
	sub, ok := t.entries[code]
	return sub, ok
}

// Len returns the number of override entries.
func (t *OverrideTable) Len() int {
	return len(t.entries)
}

// DefaultOverrides returns the curated fallback list for questions added
// after the item table was last regenerated.
func DefaultOverrides() *OverrideTable {
	return NewOverrideTable(1, map[string]int{
		"ZT74":  19,
		"ZT117": 7,
		"ZT118": 24,
		"ZT119": 24,
		"ZT120": 13,
		"ZT121": 14,
		"ZT122": 14,
		"ZT123": 14,
		"ZT124": 18,
		"ZT125": 18,
		"ZT126": 18,
		"ZT127": 19,
		"ZT128": 16,
		"ZT129": 15,
		"ZT130": 15,
		"ZT131": 11,
		"ZT132": 19,
		"ZT133": 1,
		"ZT134": 1,
		"ZT135": 1,
		"ZT136": 1,
		"ZT137": 3,
		"ZT138": 3,
		"ZT139": 3,
		"ZT140": 3,
		"ZT141": 3,
		"ZT142": 6,
		"ZT143": 13,
		"ZT144": 12,
		"ZT145": 24,
		"ZT146": 20,
	})
}
