package csvimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/timmy/culturemap/internal/domain"
	"github.com/timmy/culturemap/internal/ledger"
	"github.com/timmy/culturemap/internal/logger"
	"github.com/timmy/culturemap/internal/metrics"
)

// ImportStore persists Import records and their ledger.
type ImportStore interface {
	ledger.Sink
	Get(ctx context.Context, id string) (*domain.Import, error)
	// Transition moves the import from one status to another and reports
	// false when the record was not in the from status.
	Transition(ctx context.Context, id string, from, to domain.ImportStatus) (bool, error)
}

// FileSource opens uploaded files.
type FileSource interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// Config holds the pipeline limits.
type Config struct {
	Throttle       time.Duration
	MaxPreviewRows int
	MaxRows        int
	// Delimiter is fixed for the script importer and zero for uploads.
	Delimiter rune
}

// RunStats summarises a full run.
type RunStats struct {
	Rows     int
	Created  int
	Updated  int
	Failed   int
	Warnings int
	Status   domain.ImportStatus
	Duration time.Duration
}

// Pipeline runs previews and full imports.
type Pipeline struct {
	cfg       Config
	imports   ImportStore
	files     FileSource
	processor *Processor
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewPipeline creates a CSV import pipeline.
func NewPipeline(cfg Config, imports ImportStore, files FileSource, processor *Processor) *Pipeline {
	if cfg.MaxPreviewRows <= 0 {
		cfg.MaxPreviewRows = 10
	}
	return &Pipeline{
		cfg:       cfg,
		imports:   imports,
		files:     files,
		processor: processor,
		sleep:     sleepContext,
	}
}

// Preview is the result of the upload time header check.
type Preview struct {
	Mapping []domain.MappingEntry
	Notes   ledger.Entries
	Status  domain.ImportStatus
	Rows    int
}

// Preview reads the first rows of r and maps its header. Only unreadable files
// produce an error; header problems are returned as notes with status CREATED.
func (p *Pipeline) Preview(r io.Reader) (*Preview, error) {
	table, err := Read(r, ReadOptions{Delimiter: p.cfg.Delimiter, MaxRows: p.cfg.MaxPreviewRows})
	if err != nil {
		return nil, err
	}

	var sample []string
	if len(table.Rows) > 0 {
		sample = table.Rows[0].Values
	}
	hr := MapHeaders(table.Header, sample)

	preview := &Preview{Mapping: hr.Mapping, Notes: hr.Notes, Rows: len(table.Rows), Status: domain.ImportStatusAssign}
	preview.Notes.Log = append([]string{fmt.Sprintf("File parsed with delimiter %q", table.Delimiter)}, preview.Notes.Log...)
	for _, row := range table.Rows {
		if row.Err != nil {
			preview.Notes.Warnings = append(preview.Notes.Warnings, fmt.Sprintf("Row %d: %v", row.Number, row.Err))
		}
	}
	if hr.Blocking() {
		preview.Status = domain.ImportStatusCreated
	}
	return preview, nil
}

// Run claims import id and processes the whole file. A record that is not in
// PROCESS is left alone and reported with claimed false.
func (p *Pipeline) Run(ctx context.Context, id string) (stats *RunStats, claimed bool, err error) {
	ok, err := p.imports.Transition(ctx, id, domain.ImportStatusProcess, domain.ImportStatusProcessing)
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim import %s: %w", id, err)
	}
	if !ok {
		logger.CtxInfo(ctx, "Import %s is not scheduled for processing, skipping", id)
		return nil, false, nil
	}

	ctx = logger.SetImportID(ctx, id)
	imp, err := p.imports.Get(ctx, id)
	if err != nil {
		return nil, true, p.abort(ctx, id, fmt.Errorf("failed to load import: %w", err))
	}

	rc := ledger.NewRunContext(id, p.imports, ledger.Entries{
		Log:      imp.Log,
		Warnings: imp.Warnings,
		Errors:   imp.Errors,
	}, logger.FromContext(ctx))

	stats = p.process(ctx, rc, imp)

	// The final writes must survive a cancelled run context.
	finishCtx := context.WithoutCancel(ctx)
	if err := rc.Flush(finishCtx); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to flush import ledger")
	}
	if _, err := p.imports.Transition(finishCtx, id, domain.ImportStatusProcessing, stats.Status); err != nil {
		return stats, true, fmt.Errorf("failed to finish import %s: %w", id, err)
	}
	metrics.ImportRuns.WithLabelValues(string(stats.Status)).Inc()
	return stats, true, nil
}

func (p *Pipeline) process(ctx context.Context, rc *ledger.RunContext, imp *domain.Import) *RunStats {
	start := time.Now()
	stats := &RunStats{}
	defer func() {
		stats.Duration = time.Since(start)
		stats.Status = domain.ImportStatusProcessed
		if rc.HasErrors() {
			stats.Status = domain.ImportStatusError
		}
		rc.Logf("Import finished with status %s: %d rows, %d created, %d updated, %d failed, %d warnings in %s",
			stats.Status, stats.Rows, stats.Created, stats.Updated, stats.Failed, stats.Warnings,
			stats.Duration.Round(time.Millisecond))
	}()

	rc.Logf("Import %q started", imp.Title)

	if problems := ValidateMapping(imp.Mapping); len(problems) > 0 {
		for _, msg := range problems {
			rc.Errorf("%s", msg)
		}
		return stats
	}

	table, err := p.readFile(ctx, imp.FileRef)
	if err != nil {
		rc.Errorf("Cannot read file: %v", err)
		return stats
	}
	if err := checkHeader(table.Header, imp.Mapping); err != nil {
		rc.Errorf("%v", err)
		return stats
	}
	if table.Truncated {
		rc.Warnf("File has more than %d rows, only the first %d were imported", p.cfg.MaxRows, p.cfg.MaxRows)
	}

	if err := p.processor.LoadTerms(ctx); err != nil {
		rc.Warnf("Institution types could not be loaded and will be skipped: %v", err)
	}
	rc.Logf("Processing %d rows", len(table.Rows))
	p.flush(ctx, rc)

	idx := indexMapping(imp.Mapping)
	for _, row := range table.Rows {
		if ctx.Err() != nil {
			rc.Errorf("Import interrupted before row %d: %v", row.Number, ctx.Err())
			return stats
		}
		stats.Rows++

		if row.Err != nil {
			stats.Failed++
			metrics.ImportRows.WithLabelValues("invalid").Inc()
			rc.Errorf("Row %d: %v", row.Number, row.Err)
			p.flush(ctx, rc)
			continue
		}

		out, err := p.processRow(ctx, rc, imp, idx, row)
		stats.Warnings += out.Warnings
		switch {
		case err != nil:
			stats.Failed++
			metrics.ImportRows.WithLabelValues("failed").Inc()
			rc.Errorf("Row %d: %v", row.Number, err)
		case out.Created:
			stats.Created++
		case out.Updated:
			stats.Updated++
		}
		if err == nil {
			if out.Warnings > 0 {
				metrics.ImportRows.WithLabelValues("warnings").Inc()
			} else {
				metrics.ImportRows.WithLabelValues("imported").Inc()
			}
		}
		p.flush(ctx, rc)

		if out.Geocoded && p.cfg.Throttle > 0 {
			if err := p.sleep(ctx, p.cfg.Throttle); err != nil {
				rc.Errorf("Import interrupted after row %d: %v", row.Number, err)
				return stats
			}
		}
	}
	return stats
}

// processRow isolates a single row so a panic fails only that row.
func (p *Pipeline) processRow(ctx context.Context, rc *ledger.RunContext, imp *domain.Import, idx columnIndex, row Row) (out RowOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
		}
	}()
	return p.processor.Process(ctx, rc, imp, idx, row)
}

func (p *Pipeline) readFile(ctx context.Context, key string) (*Table, error) {
	if key == "" {
		return nil, errors.New("import has no file")
	}
	rd, err := p.files.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	return Read(rd, ReadOptions{Delimiter: p.cfg.Delimiter, MaxRows: p.cfg.MaxRows})
}

func (p *Pipeline) flush(ctx context.Context, rc *ledger.RunContext) {
	if err := rc.Flush(ctx); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("Failed to flush import ledger")
	}
}

// abort records a structural failure on an already claimed import.
func (p *Pipeline) abort(ctx context.Context, id string, cause error) error {
	finishCtx := context.WithoutCancel(ctx)
	rc := ledger.NewRunContext(id, p.imports, ledger.Entries{}, logger.FromContext(ctx))
	rc.Errorf("%v", cause)
	if err := rc.Flush(finishCtx); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to flush import ledger")
	}
	if _, err := p.imports.Transition(finishCtx, id, domain.ImportStatusProcessing, domain.ImportStatusError); err != nil {
		return fmt.Errorf("%v; failed to mark import as failed: %w", cause, err)
	}
	metrics.ImportRuns.WithLabelValues(string(domain.ImportStatusError)).Inc()
	return cause
}

// checkHeader verifies the file still has the columns the mapping was made for.
func checkHeader(header []string, mapping []domain.MappingEntry) error {
	if len(header) != len(mapping) {
		return fmt.Errorf("file has %d columns but the mapping has %d", len(header), len(mapping))
	}
	for i, h := range header {
		if h != mapping[i].Header {
			return fmt.Errorf("column %d is %q but the mapping expects %q", i+1, h, mapping[i].Header)
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
