// Package table loads the delimiter-sensitive CSV relations feeding the
// pipeline: the question mapping, the item and subdomain tables, the wide
// response table, and the domain label file used by the serve layer.
package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MappingRow is one entry of the question mapping relation.
type MappingRow struct {
	QuestionCode string
	QuestionText string
}

// ItemRow links a question code to its subdomain.
type ItemRow struct {
	Code        string
	SubdomainID int
}

// SubdomainRow links a subdomain to one or more domains. DomainList is the
// raw comma-joined field from the source file; splitting and validation
// happen in the taxonomy resolver so the error can name the subdomain.
type SubdomainRow struct {
	ID         int
	DomainList string
}

// Responses is the wide survey table: one row per employee, one score
// column per question code.
type Responses struct {
	Questions []string
	Rows      []ResponseRow
}

// ResponseRow holds one employee's scores, parallel to Responses.Questions.
// A nil score is an unanswered question.
type ResponseRow struct {
	EmployeeID string
	Team       string
	Scores     []*int
}

// DomainLabel names a domain for display.
type DomainLabel struct {
	ID   int
	Name string
}

// LoadMapping reads the comma-delimited question mapping file.
func LoadMapping(path string) ([]MappingRow, error) {
	header, records, err := readCSV(path, ',')
	if err != nil {
		return nil, err
	}
	codeIdx, err := columnIndex(path, header, "question_code")
	if err != nil {
		return nil, err
	}
	// The text column is "question" in some exports, "question_text" in others.
	textIdx := indexOf(header, "question_text")
	if textIdx < 0 {
		textIdx = indexOf(header, "question")
	}

	rows := make([]MappingRow, 0, len(records))
	for _, rec := range records {
		row := MappingRow{QuestionCode: strings.TrimSpace(rec[codeIdx])}
		if textIdx >= 0 {
			row.QuestionText = rec[textIdx]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadItems reads the semicolon-delimited item table (code -> subdomain_id).
func LoadItems(path string) ([]ItemRow, error) {
	header, records, err := readCSV(path, ';')
	if err != nil {
		return nil, err
	}
	codeIdx, err := columnIndex(path, header, "code")
	if err != nil {
		return nil, err
	}
	subIdx, err := columnIndex(path, header, "subdomain_id")
	if err != nil {
		return nil, err
	}

	rows := make([]ItemRow, 0, len(records))
	for i, rec := range records {
		id, err := strconv.Atoi(strings.TrimSpace(rec[subIdx]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: subdomain_id %q is not an integer", path, i+2, rec[subIdx])
		}
		rows = append(rows, ItemRow{Code: strings.TrimSpace(rec[codeIdx]), SubdomainID: id})
	}
	return rows, nil
}

// LoadSubdomains reads the semicolon-delimited subdomain table
// (id -> comma-joined domain ids).
func LoadSubdomains(path string) ([]SubdomainRow, error) {
	header, records, err := readCSV(path, ';')
	if err != nil {
		return nil, err
	}
	idIdx, err := columnIndex(path, header, "id")
	if err != nil {
		return nil, err
	}
	domIdx, err := columnIndex(path, header, "domainId")
	if err != nil {
		return nil, err
	}

	rows := make([]SubdomainRow, 0, len(records))
	for i, rec := range records {
		id, err := strconv.Atoi(strings.TrimSpace(rec[idIdx]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: id %q is not an integer", path, i+2, rec[idIdx])
		}
		rows = append(rows, SubdomainRow{ID: id, DomainList: strings.TrimSpace(rec[domIdx])})
	}
	return rows, nil
}

// LoadResponses reads the comma-delimited wide response table. Every column
// other than employee_id and team is taken as a question code; empty cells
// become nil scores, non-empty cells must parse as integers in 1..10.
func LoadResponses(path string) (*Responses, error) {
	header, records, err := readCSV(path, ',')
	if err != nil {
		return nil, err
	}
	empIdx, err := columnIndex(path, header, "employee_id")
	if err != nil {
		return nil, err
	}
	teamIdx, err := columnIndex(path, header, "team")
	if err != nil {
		return nil, err
	}

	var questions []string
	var qIdx []int
	for i, col := range header {
		if i == empIdx || i == teamIdx {
			continue
		}
		questions = append(questions, strings.TrimSpace(col))
		qIdx = append(qIdx, i)
	}

	resp := &Responses{Questions: questions}
	for i, rec := range records {
		row := ResponseRow{
			EmployeeID: strings.TrimSpace(rec[empIdx]),
			Team:       strings.TrimSpace(rec[teamIdx]),
			Scores:     make([]*int, len(questions)),
		}
		for j, col := range qIdx {
			cell := strings.TrimSpace(rec[col])
			if cell == "" {
				continue
			}
			score, err := strconv.Atoi(cell)
			if err != nil {
				return nil, fmt.Errorf("%s row %d, column %q: score %q is not an integer", path, i+2, questions[j], cell)
			}
			if score < 1 || score > 10 {
				return nil, fmt.Errorf("%s row %d, column %q: score %d outside 1..10", path, i+2, questions[j], score)
			}
			row.Scores[j] = &score
		}
		resp.Rows = append(resp.Rows, row)
	}
	return resp, nil
}

// LoadDomainLabels reads the semicolon-delimited domain label file.
func LoadDomainLabels(path string) ([]DomainLabel, error) {
	header, records, err := readCSV(path, ';')
	if err != nil {
		return nil, err
	}
	idIdx, err := columnIndex(path, header, "domainId")
	if err != nil {
		return nil, err
	}
	nameIdx, err := columnIndex(path, header, "domain_name")
	if err != nil {
		return nil, err
	}

	labels := make([]DomainLabel, 0, len(records))
	for i, rec := range records {
		id, err := strconv.Atoi(strings.TrimSpace(rec[idIdx]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: domainId %q is not an integer", path, i+2, rec[idIdx])
		}
		labels = append(labels, DomainLabel{ID: id, Name: strings.TrimSpace(rec[nameIdx])})
	}
	return labels, nil
}

// readCSV reads a whole delimited file, returning the header row and the
// data records. Inputs are small enough to hold in memory.
func readCSV(path string, comma rune) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.TrimLeadingSpace = true

	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("reading %s: file is empty", path)
	}

	header := all[0]
	// Strip a UTF-8 BOM if the export carries one.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header, all[1:], nil
}

// columnIndex finds a required column or fails naming the file and column.
func columnIndex(path string, header []string, name string) (int, error) {
	if i := indexOf(header, name); i >= 0 {
		return i, nil
	}
	return 0, fmt.Errorf("%s: missing required column %q", path, name)
}

func indexOf(header []string, name string) int {
	for i, col := range header {
		if strings.TrimSpace(col) == name {
			return i
		}
	}
	return -1
}
