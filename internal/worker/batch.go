package worker

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/genera/compass/internal/catalog"
	"github.com/genera/compass/internal/export"
	"github.com/genera/compass/internal/model"
)

// Scorer scores a response set against its catalog
type Scorer interface {
	Catalog() *catalog.Catalog
	Score(responses model.ResponseSet) (model.Result, error)
}

// RowJob re-scores one exported row
type RowJob struct {
	File   string
	Line   int
	Row    []string
	Scorer Scorer
}

// Execute parses and scores the row
func (j *RowJob) Execute(ctx context.Context) Result {
	res := &RowResult{File: j.File, Line: j.Line}
	if err := ctx.Err(); err != nil {
		res.Error = err
		return res
	}

	profile, responses, err := export.ParseRecord(j.Row, j.Scorer.Catalog())
	if err != nil {
		res.Error = err
		return res
	}
	res.Profile = profile

	result, err := j.Scorer.Score(responses)
	if err != nil {
		res.Error = err
		return res
	}
	res.Result = &result
	return res
}

// RowResult is the outcome of one row
type RowResult struct {
	File    string
	Line    int
	Profile model.Profile
	Result  *model.Result
	Error   error
}

// GetError returns the row error
func (r *RowResult) GetError() error {
	return r.Error
}

// Summary counts outcomes across a batch
type Summary struct {
	Rows     int
	Failed   int
	Dominant map[model.Category]int
}

// Summarize tallies the dominant category of every scored row
func Summarize(results []*RowResult) Summary {
	s := Summary{Rows: len(results), Dominant: map[model.Category]int{}}
	for _, r := range results {
		if r.Error != nil {
			s.Failed++
			continue
		}
		s.Dominant[r.Result.Classification.Dominant]++
	}
	return s
}

// BatchProcessor re-scores exported CSV files concurrently
type BatchProcessor struct {
	scorer      Scorer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(scorer Scorer, concurrency int) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &BatchProcessor{
		scorer:      scorer,
		concurrency: concurrency,
	}
}

// ProcessRows scores the jobs and returns results ordered by file and line
func (b *BatchProcessor) ProcessRows(ctx context.Context, jobs []*RowJob) []*RowResult {
	if len(jobs) == 0 {
		return []*RowResult{}
	}

	poolJobs := make([]Job, len(jobs))
	for i, job := range jobs {
		if job.Scorer == nil {
			job.Scorer = b.scorer
		}
		poolJobs[i] = job
	}

	pool := NewPool(ctx, b.concurrency)
	results := pool.Run(poolJobs)

	type rowKey struct {
		file string
		line int
	}
	done := make(map[rowKey]int, len(results))
	rows := make([]*RowResult, 0, len(jobs))
	for _, result := range results {
		row := result.(*RowResult)
		done[rowKey{row.File, row.Line}]++
		rows = append(rows, row)
	}

	// Jobs the pool never ran after cancellation still count as failed rows
	for _, job := range jobs {
		key := rowKey{job.File, job.Line}
		if done[key] > 0 {
			done[key]--
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = errors.New("row was not processed")
		}
		rows = append(rows, &RowResult{File: job.File, Line: job.Line, Error: err})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].File != rows[j].File {
			return rows[i].File < rows[j].File
		}
		return rows[i].Line < rows[j].Line
	})
	return rows
}

// ProcessFiles expands the glob patterns and scores every data row found
func (b *BatchProcessor) ProcessFiles(ctx context.Context, patterns []string) ([]*RowResult, error) {
	files, err := ExpandPatterns(patterns)
	if err != nil {
		return nil, err
	}

	var jobs []*RowJob
	for _, file := range files {
		fileJobs, err := ReadRows(file, b.scorer.Catalog())
		if err != nil {
			return nil, err
		}
		for _, job := range fileJobs {
			job.Scorer = b.scorer
		}
		jobs = append(jobs, fileJobs...)
	}

	return b.ProcessRows(ctx, jobs), nil
}

// ExpandPatterns resolves ** glob patterns into a sorted, de-duplicated
// file list. A pattern matching nothing is an error.
func ExpandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("evaluate pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %s", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// ReadRows reads an exported CSV file into one job per data row. The header
// for c and blank rows are skipped; Line is the 1-based line in the file.
func ReadRows(path string, c *catalog.Catalog) ([]*RowJob, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	var jobs []*RowJob
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		line, _ := r.FieldPos(0)
		if export.IsHeader(row, c) || isBlank(row) {
			continue
		}
		jobs = append(jobs, &RowJob{File: path, Line: line, Row: row})
	}

	return jobs, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
