// Package pipeline orchestrates the preprocess run: load the inputs,
// resolve the taxonomy, melt the responses, aggregate, materialize the
// parquet artifacts, and record the run in the registry.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Sennevleminckx/chart/internal/artifact"
	"github.com/Sennevleminckx/chart/internal/database"
	"github.com/Sennevleminckx/chart/internal/stats"
	"github.com/Sennevleminckx/chart/internal/survey"
	"github.com/Sennevleminckx/chart/internal/table"
	"github.com/Sennevleminckx/chart/internal/taxonomy"
)

// Inputs holds the four input file paths for one run.
type Inputs struct {
	Mapping    string
	Items      string
	Subdomains string
	Responses  string
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID      string
	Steps      []StepResult
	Unresolved []string
}

// Failed reports whether any step errored.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline runs the preprocess steps against a run registry.
type Pipeline struct {
	inputs    Inputs
	outDir    string
	overrides *taxonomy.OverrideTable
	db        *database.DB
}

// New creates a pipeline with the default override table. The registry
// db may be nil, in which case the run is not recorded.
func New(inputs Inputs, outDir string, db *database.DB) *Pipeline {
	return &Pipeline{
		inputs:    inputs,
		outDir:    outDir,
		overrides: taxonomy.DefaultOverrides(),
		db:        db,
	}
}

// CheckInputs verifies all four input files exist before any computation,
// naming the first missing path.
func (p *Pipeline) CheckInputs() error {
	for _, path := range []string{p.inputs.Mapping, p.inputs.Items, p.inputs.Subdomains, p.inputs.Responses} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("input file not found: %s", path)
		}
	}
	return nil
}

// Run executes the full pipeline. A failed step aborts the remainder;
// the returned Result carries every step attempted.
func (p *Pipeline) Run() *Result {
	started := time.Now()
	r := &Result{RunID: uuid.NewString()}

	// Step 1: Load
	log.Println("Step 1/5: Loading input tables...")
	mapping, items, subdomains, responses, step := p.load()
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	// Step 2: Resolve taxonomy
	log.Println("Step 2/5: Resolving taxonomy...")
	tax, err := taxonomy.Resolve(mapping, items, subdomains, p.overrides)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Resolve", Err: err})
		return r
	}
	r.Unresolved = tax.Unresolved
	r.Steps = append(r.Steps, StepResult{
		Name:    "Resolve",
		Summary: fmt.Sprintf("%d taxonomy rows, %d unresolved questions", len(tax.Rows), len(tax.Unresolved)),
	})
	for _, code := range tax.Unresolved {
		log.Printf("question %s has no subdomain mapping; excluded from aggregates", code)
	}

	// Step 3: Normalize
	log.Println("Step 3/5: Melting responses...")
	records := survey.Melt(responses)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Normalize",
		Summary: fmt.Sprintf("%d long-form records from %d employees x %d questions", len(records), len(responses.Rows), len(responses.Questions)),
	})

	// Step 4: Aggregate
	log.Println("Step 4/5: Computing grouped statistics...")
	annotated := stats.Annotate(records, tax)
	subStats := stats.SubdomainStats(annotated)
	domStats := stats.DomainStats(annotated)
	pivot := stats.BuildPivot(subStats)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Aggregate",
		Summary: fmt.Sprintf("%d subdomain groups, %d domain groups", len(subStats), len(domStats)),
	})

	// Step 5: Materialize
	log.Println("Step 5/5: Writing artifacts...")
	long := artifact.LongRowsFrom(annotated)
	err = artifact.WriteAll(p.outDir,
		long,
		artifact.DomainStatRowsFrom(domStats),
		artifact.SubStatRowsFrom(subStats),
		pivot,
	)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Materialize", Err: err})
		return r
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Materialize",
		Summary: fmt.Sprintf("4 artifacts written to %s", p.outDir),
	})

	if p.db != nil {
		run := &database.Run{
			ID:                  r.RunID,
			StartedAt:           started,
			FinishedAt:          time.Now(),
			OutputDir:           p.outDir,
			LongRows:            len(long),
			SubdomainGroups:     len(subStats),
			DomainGroups:        len(domStats),
			UnresolvedQuestions: len(tax.Unresolved),
			OverrideVersion:     p.overrides.Version,
			Inputs:              p.inputDigests(),
		}
		if err := p.db.InsertRun(run); err != nil {
			// The artifacts are already on disk; a registry failure only
			// degrades status output and cache invalidation.
			log.Printf("recording run: %v", err)
		}
	}

	return r
}

func (p *Pipeline) load() (mapping []table.MappingRow, items []table.ItemRow, subdomains []table.SubdomainRow, responses *table.Responses, step StepResult) {
	step.Name = "Load"

	mapping, err := table.LoadMapping(p.inputs.Mapping)
	if err != nil {
		step.Err = err
		return
	}
	items, err = table.LoadItems(p.inputs.Items)
	if err != nil {
		step.Err = err
		return
	}
	subdomains, err = table.LoadSubdomains(p.inputs.Subdomains)
	if err != nil {
		step.Err = err
		return
	}
	responses, err = table.LoadResponses(p.inputs.Responses)
	if err != nil {
		step.Err = err
		return
	}

	step.Summary = fmt.Sprintf("%d questions, %d items, %d subdomains, %d response rows",
		len(mapping), len(items), len(subdomains), len(responses.Rows))
	return
}

// inputDigests hashes the four input files for the run record. Digest
// failures are logged, not fatal: the run itself already succeeded.
func (p *Pipeline) inputDigests() []database.RunInput {
	roles := []struct{ role, path string }{
		{"mapping", p.inputs.Mapping},
		{"items", p.inputs.Items},
		{"subdomains", p.inputs.Subdomains},
		{"responses", p.inputs.Responses},
	}

	inputs := make([]database.RunInput, 0, len(roles))
	for _, r := range roles {
		digest, err := fileSHA256(r.path)
		if err != nil {
			log.Printf("hashing %s: %v", r.path, err)
			digest = ""
		}
		inputs = append(inputs, database.RunInput{Role: r.role, Path: r.path, SHA256: digest})
	}
	return inputs
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
