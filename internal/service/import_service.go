package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/timmy/culturemap/internal/csvimport"
	"github.com/timmy/culturemap/internal/domain"
	"github.com/timmy/culturemap/internal/jobs"
	"github.com/timmy/culturemap/internal/logger"
	"github.com/timmy/culturemap/internal/storage"
)

var (
	// ErrInvalidFile is returned when an upload cannot be parsed as a table.
	ErrInvalidFile = errors.New("invalid import file")
	// ErrConflict is returned when an import is not in the state an operation needs.
	ErrConflict = errors.New("import is not in the required state")
)

// ValidationError lists the problems that block an operation.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// ImportRepository is the persistence used by ImportService.
type ImportRepository interface {
	Create(ctx context.Context, imp *domain.Import) error
	Get(ctx context.Context, id string) (*domain.Import, error)
	List(ctx context.Context, ownerID string, limit, offset int) ([]domain.Import, error)
	Transition(ctx context.Context, id string, from, to domain.ImportStatus) (bool, error)
	UpdateMapping(ctx context.Context, id string, mapping []domain.MappingEntry) (bool, error)
}

// Previewer maps the header of an uploaded file.
type Previewer interface {
	Preview(r io.Reader) (*csvimport.Preview, error)
}

// ImportService handles the upload, mapping and scheduling of spreadsheet imports.
type ImportService struct {
	imports ImportRepository
	files   storage.ObjectStorage
	preview Previewer
	queue   *jobs.Queue
	runner  jobs.CSVRunner
}

// NewImportService creates a new import service.
// Parameters:
//   - imports: import repository.
//   - files: object storage holding the uploaded files.
//   - preview: header previewer, usually the CSV pipeline.
//   - queue: optional queue; scheduled imports are submitted right away when set.
//   - runner: CSV runner used for queued jobs.
// Returns:
//   - *ImportService: initialized service.
func NewImportService(imports ImportRepository, files storage.ObjectStorage, preview Previewer, queue *jobs.Queue, runner jobs.CSVRunner) *ImportService {
	return &ImportService{
		imports: imports,
		files:   files,
		preview: preview,
		queue:   queue,
		runner:  runner,
	}
}

// UploadRequest describes one uploaded spreadsheet.
type UploadRequest struct {
	Title    string
	Filename string
	OwnerID  string
	Body     io.Reader
}

// Upload stores the file, previews its header and creates the import record.
// Parameters:
//   - ctx: context for storage and database calls.
//   - req: upload request.
// Returns:
//   - *domain.Import: created import in status ASSIGN or CREATED.
//   - error: ErrInvalidFile for unreadable files, or a storage/database error.
func (s *ImportService) Upload(ctx context.Context, req UploadRequest) (*domain.Import, error) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	preview, err := s.preview.Preview(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	id := uuid.New().String()
	key := id + ".csv"
	if err := s.files.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), storage.ContentTypeCSV); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSuffix(path.Base(req.Filename), path.Ext(req.Filename))
	}

	imp := &domain.Import{
		ID:       id,
		Title:    title,
		FileRef:  key,
		Mapping:  preview.Mapping,
		Status:   preview.Status,
		Log:      preview.Notes.Log,
		Warnings: preview.Notes.Warnings,
		Errors:   preview.Notes.Errors,
		OwnerID:  req.OwnerID,
	}
	if err := s.imports.Create(ctx, imp); err != nil {
		if delErr := s.files.Delete(ctx, key); delErr != nil {
			logger.FromContext(ctx).WithError(delErr).Warn("Failed to release upload of unsaved import")
		}
		return nil, err
	}

	logger.With(logger.Fields{
		logger.FieldImportID: id,
		logger.FieldStatus:   imp.Status,
		logger.FieldCount:    preview.Rows,
	}).Info(ctx, "Import uploaded: title=%s", title)
	return imp, nil
}

// List returns the imports of owner, newest first. An empty owner lists all.
func (s *ImportService) List(ctx context.Context, ownerID string, limit, offset int) ([]domain.Import, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.imports.List(ctx, ownerID, limit, offset)
}

// Get returns one import.
func (s *ImportService) Get(ctx context.Context, id string) (*domain.Import, error) {
	return s.imports.Get(ctx, id)
}

// ImportStatus is the polled progress view of an import.
type ImportStatus struct {
	Status   domain.ImportStatus `json:"status"`
	Log      []string            `json:"log"`
	Warnings []string            `json:"warnings"`
	Errors   []string            `json:"errors"`
}

// GetImportStatus returns the status and ledger of an import.
func (s *ImportService) GetImportStatus(ctx context.Context, id string) (*ImportStatus, error) {
	imp, err := s.imports.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ImportStatus{
		Status:   imp.Status,
		Log:      nonNil(imp.Log),
		Warnings: nonNil(imp.Warnings),
		Errors:   nonNil(imp.Errors),
	}, nil
}

// UpdateMapping applies column assignments while the import is in ASSIGN.
// Parameters:
//   - ctx: context for database calls.
//   - id: import id.
//   - updates: new matches keyed by headerKey.
// Returns:
//   - *domain.Import: import with the new mapping.
//   - error: ErrConflict outside ASSIGN, *ValidationError for rejected updates.
func (s *ImportService) UpdateMapping(ctx context.Context, id string, updates []csvimport.MatchUpdate) (*domain.Import, error) {
	imp, err := s.imports.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if imp.Status != domain.ImportStatusAssign {
		return nil, fmt.Errorf("%w: mapping can only change in %s, import is %s", ErrConflict, domain.ImportStatusAssign, imp.Status)
	}

	mapping, err := csvimport.ApplyMatches(imp.Mapping, updates)
	if err != nil {
		return nil, &ValidationError{Problems: []string{err.Error()}}
	}
	ok, err := s.imports.UpdateMapping(ctx, id, mapping)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: import %s left %s", ErrConflict, id, domain.ImportStatusAssign)
	}
	imp.Mapping = mapping
	return imp, nil
}

// Schedule moves an import from ASSIGN to PROCESS once its mapping is complete
// and submits it to the queue when one is configured. A full queue is not an
// error; the scheduler picks the import up on its next tick.
func (s *ImportService) Schedule(ctx context.Context, id string) (*domain.Import, error) {
	imp, err := s.imports.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if imp.Status != domain.ImportStatusAssign {
		return nil, fmt.Errorf("%w: only imports in %s can be scheduled, import is %s", ErrConflict, domain.ImportStatusAssign, imp.Status)
	}
	if problems := csvimport.ValidateMapping(imp.Mapping); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	ok, err := s.imports.Transition(ctx, id, domain.ImportStatusAssign, domain.ImportStatusProcess)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: import %s left %s", ErrConflict, id, domain.ImportStatusAssign)
	}
	imp.Status = domain.ImportStatusProcess

	if s.queue != nil && s.runner != nil {
		if err := s.queue.Submit(jobs.CSVImportJob(s.runner, id)); err != nil && !errors.Is(err, jobs.ErrAlreadyQueued) {
			logger.FromContext(ctx).WithError(err).WithField(logger.FieldImportID, id).
				Warn("Import scheduled but not queued, waiting for the scheduler")
		}
	}
	return imp, nil
}

// Delete soft deletes an import and releases its file. Imports that are being
// processed cannot be deleted.
func (s *ImportService) Delete(ctx context.Context, id string) error {
	imp, err := s.imports.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := domain.ValidateTransition(imp.Status, domain.ImportStatusDeleted); err != nil {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	ok, err := s.imports.Transition(ctx, id, imp.Status, domain.ImportStatusDeleted)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: import %s changed status concurrently", ErrConflict, id)
	}

	if imp.FileRef != "" {
		if err := s.files.Delete(ctx, imp.FileRef); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			logger.FromContext(ctx).WithError(err).WithField(logger.FieldImportID, id).Warn("Failed to release import file")
		}
	}
	logger.CtxInfo(ctx, "Import %s deleted", id)
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
