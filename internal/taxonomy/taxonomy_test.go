package taxonomy

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Sennevleminckx/chart/internal/table"
)

func TestResolveSingleDomain(t *testing.T) {
	mapping := []table.MappingRow{{QuestionCode: "ZT1"}}
	items := []table.ItemRow{{Code: "ZT1", SubdomainID: 4}}
	subs := []table.SubdomainRow{{ID: 4, DomainList: "2"}}

	res, err := Resolve(mapping, items, subs, NewOverrideTable(1, nil))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	want := []Row{{QuestionCode: "ZT1", SubdomainID: 4, DomainID: 2}}
	if !reflect.DeepEqual(res.Rows, want) {
		t.Errorf("rows = %+v, want %+v", res.Rows, want)
	}
	if len(res.Unresolved) != 0 {
		t.Errorf("unexpected unresolved: %v", res.Unresolved)
	}
}

func TestResolveExplodesMultiDomain(t *testing.T) {
	mapping := []table.MappingRow{{QuestionCode: "ZT1"}}
	items := []table.ItemRow{{Code: "ZT1", SubdomainID: 7}}
	subs := []table.SubdomainRow{{ID: 7, DomainList: "1,3,5"}}

	res, err := Resolve(mapping, items, subs, NewOverrideTable(1, nil))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("expected 3 rows for a 3-domain subdomain, got %d", len(res.Rows))
	}
	domains := []int{res.Rows[0].DomainID, res.Rows[1].DomainID, res.Rows[2].DomainID}
	if !reflect.DeepEqual(domains, []int{1, 3, 5}) {
		t.Errorf("domains = %v", domains)
	}
}

func TestResolveDeduplicatesDomainList(t *testing.T) {
	mapping := []table.MappingRow{{QuestionCode: "ZT1"}}
	items := []table.ItemRow{{Code: "ZT1", SubdomainID: 7}}
	subs := []table.SubdomainRow{{ID: 7, DomainList: "3,3"}}

	res, err := Resolve(mapping, items, subs, NewOverrideTable(1, nil))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Errorf("expected duplicate domain ids collapsed, got %d rows", len(res.Rows))
	}
}

func TestResolveOverrideFallback(t *testing.T) {
	mapping := []table.MappingRow{{QuestionCode: "ZT117"}, {QuestionCode: "ZT1"}}
	items := []table.ItemRow{{Code: "ZT1", SubdomainID: 4}}
	subs := []table.SubdomainRow{{ID: 4, DomainList: "2"}, {ID: 7, DomainList: "6"}}

	res, err := Resolve(mapping, items, subs, DefaultOverrides())
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	idx := res.Index()
	rows := idx["ZT117"]
	if len(rows) != 1 || rows[0].SubdomainID != 7 || rows[0].DomainID != 6 {
		t.Errorf("ZT117 rows = %+v, expected override subdomain 7 under domain 6", rows)
	}
}

func TestResolveItemTableWinsOverOverride(t *testing.T) {
	// ZT117 has an override to subdomain 7, but an item entry takes priority.
	mapping := []table.MappingRow{{QuestionCode: "ZT117"}}
	items := []table.ItemRow{{Code: "ZT117", SubdomainID: 9}}
	subs := []table.SubdomainRow{{ID: 9, DomainList: "4"}, {ID: 7, DomainList: "6"}}

	res, err := Resolve(mapping, items, subs, DefaultOverrides())
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0].SubdomainID != 9 {
		t.Errorf("rows = %+v, expected item table to win", res.Rows)
	}
}

func TestResolveUnmappedQuestion(t *testing.T) {
	mapping := []table.MappingRow{{QuestionCode: "ZT999"}}

	res, err := Resolve(mapping, nil, nil, NewOverrideTable(1, nil))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(res.Rows) != 0 {
		t.Errorf("unmapped question produced rows: %+v", res.Rows)
	}
	if !reflect.DeepEqual(res.Unresolved, []string{"ZT999"}) {
		t.Errorf("unresolved = %v", res.Unresolved)
	}
}

func TestResolveSubdomainWithoutDomain(t *testing.T) {
	// Subdomain resolved but missing from the subdomain table: the question
	// yields no taxonomy rows and is reported unresolved.
	mapping := []table.MappingRow{{QuestionCode: "ZT1"}}
	items := []table.ItemRow{{Code: "ZT1", SubdomainID: 4}}

	res, err := Resolve(mapping, items, nil, NewOverrideTable(1, nil))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(res.Rows) != 0 || len(res.Unresolved) != 1 {
		t.Errorf("rows = %+v, unresolved = %v", res.Rows, res.Unresolved)
	}
}

func TestResolveMalformedDomainList(t *testing.T) {
	mapping := []table.MappingRow{{QuestionCode: "ZT1"}}
	items := []table.ItemRow{{Code: "ZT1", SubdomainID: 4}}
	subs := []table.SubdomainRow{{ID: 4, DomainList: "2,x"}}

	_, err := Resolve(mapping, items, subs, NewOverrideTable(1, nil))
	if err == nil {
		t.Fatal("expected error for non-numeric domain token")
	}
	if got := err.Error(); !strings.Contains(got, "subdomain 4") || !strings.Contains(got, `"x"`) {
		t.Errorf("error %q should name the offending subdomain and token", got)
	}
}

func TestDefaultOverridesComplete(t *testing.T) {
	ov := DefaultOverrides()
	if ov.Len() != 31 {
		t.Errorf("override table has %d entries, expected 31", ov.Len())
	}
	if sub, ok := ov.Lookup("ZT134"); !ok || sub != 1 {
		t.Errorf("ZT134 -> %d,%v", sub, ok)
	}
	if _, ok := ov.Lookup("ZT1"); ok {
		t.Error("ZT1 should not be overridden")
	}
}

