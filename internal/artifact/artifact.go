// Package artifact persists pipeline results as snappy-compressed parquet
// files and reads them back for the serve layer.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/Sennevleminckx/chart/internal/stats"
)

// Artifact filenames inside the output directory.
const (
	LongFile       = "df_long.parquet"
	DomainStatFile = "domain_stats.parquet"
	SubStatFile    = "sub_stats.parquet"
	PivotFile      = "pivot_df.parquet"
)

// LongRow is one annotated response in the long-form artifact. The
// taxonomy and score columns are optional: unclassified questions carry
// null subdomain/domain, unanswered questions a null score. Consumers
// recompute their own filtered aggregates from this table.
type LongRow struct {
	EmployeeID   string `parquet:"employee_id"`
	Team         string `parquet:"team"`
	QuestionCode string `parquet:"question_code"`
	Score        *int64 `parquet:"score,optional"`
	SubdomainID  *int64 `parquet:"subdomain_id,optional"`
	DomainID     *int64 `parquet:"domain_id,optional"`
}

// SubStatRow is one subdomain-level statistics row.
type SubStatRow struct {
	Team        string   `parquet:"team"`
	DomainID    int64    `parquet:"domain_id"`
	SubdomainID int64    `parquet:"subdomain_id"`
	Median      float64  `parquet:"median_score"`
	Mean        float64  `parquet:"mean_score"`
	Std         *float64 `parquet:"std_score,optional"`
	IQR         float64  `parquet:"iqr_score"`
}

// DomainStatRow is one domain-level statistics row.
type DomainStatRow struct {
	Team     string   `parquet:"team"`
	DomainID int64    `parquet:"domain_id"`
	Median   float64  `parquet:"median_score"`
	Mean     float64  `parquet:"mean_score"`
	Std      *float64 `parquet:"std_score,optional"`
	IQR      float64  `parquet:"iqr_score"`
}

// LongRowsFrom converts annotated responses to their artifact shape.
func LongRowsFrom(rows []stats.AnnotatedResponse) []LongRow {
	out := make([]LongRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, LongRow{
			EmployeeID:   r.EmployeeID,
			Team:         r.Team,
			QuestionCode: r.QuestionCode,
			Score:        intColumn(r.Score),
			SubdomainID:  intColumn(r.SubdomainID),
			DomainID:     intColumn(r.DomainID),
		})
	}
	return out
}

// SubStatRowsFrom converts subdomain-level stat rows.
func SubStatRowsFrom(rows []stats.StatRow) []SubStatRow {
	out := make([]SubStatRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, SubStatRow{
			Team:        r.Team,
			DomainID:    int64(r.DomainID),
			SubdomainID: int64(r.SubdomainID),
			Median:      r.Median,
			Mean:        r.Mean,
			Std:         r.Std,
			IQR:         r.IQR,
		})
	}
	return out
}

// DomainStatRowsFrom converts domain-level stat rows.
func DomainStatRowsFrom(rows []stats.DomainStatRow) []DomainStatRow {
	out := make([]DomainStatRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, DomainStatRow{
			Team:     r.Team,
			DomainID: int64(r.DomainID),
			Median:   r.Median,
			Mean:     r.Mean,
			Std:      r.Std,
			IQR:      r.IQR,
		})
	}
	return out
}

// WriteAll materializes the four artifacts into dir, creating it if
// needed. Writes are independent; an interrupted run can leave a subset
// of artifacts updated.
func WriteAll(dir string, long []LongRow, domain []DomainStatRow, sub []SubStatRow, pivot *stats.Pivot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := writeRows(filepath.Join(dir, LongFile), long); err != nil {
		return err
	}
	if err := writeRows(filepath.Join(dir, DomainStatFile), domain); err != nil {
		return err
	}
	if err := writeRows(filepath.Join(dir, SubStatFile), sub); err != nil {
		return err
	}
	return writePivot(filepath.Join(dir, PivotFile), pivot)
}

// writeRows writes a slice of rows as a snappy-compressed parquet file.
func writeRows[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	w := parquet.NewGenericWriter[T](f, parquet.Compression(&parquet.Snappy))
	if _, err := w.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return f.Close()
}

// writePivot writes the pivot table. Its columns depend on the observed
// teams, so the schema is assembled at runtime.
func writePivot(path string, pivot *stats.Pivot) error {
	fields := parquet.Group{
		"domain_id":    parquet.Int(64),
		"subdomain_id": parquet.Int(64),
	}
	for _, stat := range pivot.Stats {
		for _, team := range pivot.Teams {
			fields[stats.ColumnName(stat, team)] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		}
	}
	schema := parquet.NewSchema("pivot", fields)

	rows := make([]map[string]any, 0, len(pivot.Rows))
	for _, pr := range pivot.Rows {
		row := map[string]any{
			"domain_id":    int64(pr.DomainID),
			"subdomain_id": int64(pr.SubdomainID),
		}
		for col, v := range pr.Cells {
			if v != nil {
				row[col] = *v
			}
		}
		rows = append(rows, row)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	w := parquet.NewGenericWriter[map[string]any](f, schema, parquet.Compression(&parquet.Snappy))
	if _, err := w.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return f.Close()
}

// ReadLong loads the long-form artifact.
func ReadLong(path string) ([]LongRow, error) {
	rows, err := parquet.ReadFile[LongRow](path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, nil
}

func intColumn(v *int) *int64 {
	if v == nil {
		return nil
	}
	c := int64(*v)
	return &c
}
