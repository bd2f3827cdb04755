package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/culturemap/internal/config"
	"github.com/timmy/culturemap/internal/csvimport"
	"github.com/timmy/culturemap/internal/domain"
	"github.com/timmy/culturemap/internal/jobs"
	"github.com/timmy/culturemap/internal/repository"
	"github.com/timmy/culturemap/internal/storage"
	"gorm.io/gorm"
)

const validCSV = "###;Titel (DE);Straße;Hausnummer;PLZ;Ort;Notizen\n" +
	"1;Pergamonmuseum;Bodestraße;1;10178;Berlin;offen\n" +
	"2;Bode-Museum;Am Kupfergraben;1;10117;Berlin;\n"

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         ":memory:",
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		AutoMigrate:  true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type stubRunner struct{ ran []string }

func (s *stubRunner) Run(_ context.Context, id string) (*csvimport.RunStats, bool, error) {
	s.ran = append(s.ran, id)
	return &csvimport.RunStats{Status: domain.ImportStatusProcessed}, true, nil
}

type serviceFixture struct {
	svc    *ImportService
	repo   *repository.ImportRepository
	files  *storage.LocalStorage
	queue  *jobs.Queue
	runner *stubRunner
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	f := &serviceFixture{
		repo:   repository.NewImportRepository(openDB(t)),
		files:  files,
		queue:  jobs.NewQueue(4, 1),
		runner: &stubRunner{},
	}
	previewer := csvimport.NewPipeline(csvimport.Config{}, nil, nil, nil)
	f.svc = NewImportService(f.repo, files, previewer, f.queue, f.runner)
	return f
}

func (f *serviceFixture) upload(t *testing.T, content string) *domain.Import {
	t.Helper()
	imp, err := f.svc.Upload(context.Background(), UploadRequest{
		Filename: "museen.csv",
		OwnerID:  "user-1",
		Body:     strings.NewReader(content),
	})
	require.NoError(t, err)
	return imp
}

func TestUploadStoresFileAndPreview(t *testing.T) {
	f := newServiceFixture(t)
	imp := f.upload(t, validCSV)

	assert.Equal(t, "museen", imp.Title)
	assert.Equal(t, domain.ImportStatusAssign, imp.Status)
	assert.Equal(t, "user-1", imp.OwnerID)
	require.Len(t, imp.Mapping, 7)
	assert.Equal(t, "unknown-1", imp.Mapping[6].HeaderKey)

	rc, err := f.files.Download(context.Background(), imp.FileRef)
	require.NoError(t, err)
	defer rc.Close()
	stored, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, validCSV, string(stored))

	got, err := f.svc.Get(context.Background(), imp.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.MappingEntry(imp.Mapping), []domain.MappingEntry(got.Mapping))
}

func TestUploadWithoutIdentityColumnIsCreated(t *testing.T) {
	f := newServiceFixture(t)
	imp := f.upload(t, "Titel (DE);Straße;PLZ;Ort\nA;B;10115;Berlin\n")

	assert.Equal(t, domain.ImportStatusCreated, imp.Status)
	assert.NotEmpty(t, imp.Errors)

	_, err := f.svc.Schedule(context.Background(), imp.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Upload(context.Background(), UploadRequest{Title: "x", Body: strings.NewReader("")})
	assert.ErrorIs(t, err, ErrInvalidFile)
}

func TestScheduleRequiresCompleteMapping(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	imp := f.upload(t, validCSV)

	_, err := f.svc.Schedule(ctx, imp.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems[0], "Notizen")

	_, err = f.svc.UpdateMapping(ctx, imp.ID, []csvimport.MatchUpdate{{HeaderKey: "unknown-1", Match: "ignore"}})
	require.NoError(t, err)

	scheduled, err := f.svc.Schedule(ctx, imp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusProcess, scheduled.Status)
	assert.Equal(t, 1, f.queue.Len())

	_, err = f.svc.UpdateMapping(ctx, imp.ID, []csvimport.MatchUpdate{{HeaderKey: "unknown-1", Match: "co"}})
	assert.ErrorIs(t, err, ErrConflict)

	f.queue.Start(ctx)
	f.queue.Close()
	assert.Equal(t, []string{imp.ID}, f.runner.ran)
}

func TestUpdateMappingRejectsBadUpdates(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	imp := f.upload(t, validCSV)

	tests := []struct {
		name   string
		update csvimport.MatchUpdate
	}{
		{"unknown header key", csvimport.MatchUpdate{HeaderKey: "unknown-9", Match: "co"}},
		{"unknown field", csvimport.MatchUpdate{HeaderKey: "unknown-1", Match: "fax"}},
		{"identity change", csvimport.MatchUpdate{HeaderKey: "###", Match: "title_de"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpdateMapping(ctx, imp.ID, []csvimport.MatchUpdate{tt.update})
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestGetImportStatus(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	imp := f.upload(t, validCSV)

	status, err := f.svc.GetImportStatus(ctx, imp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportStatusAssign, status.Status)
	assert.NotEmpty(t, status.Log)
	assert.NotNil(t, status.Errors)

	_, err = f.svc.GetImportStatus(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteReleasesFile(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	imp := f.upload(t, validCSV)

	require.NoError(t, f.svc.Delete(ctx, imp.ID))

	exists, err := f.files.Exists(ctx, imp.FileRef)
	require.NoError(t, err)
	assert.False(t, exists)

	list, err := f.svc.List(ctx, "user-1", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, f.svc.Delete(ctx, imp.ID), ErrConflict, "deleted imports stay deleted")
}

func TestDeleteRefusesProcessingImport(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	imp := f.upload(t, validCSV)

	_, err := f.svc.UpdateMapping(ctx, imp.ID, []csvimport.MatchUpdate{{HeaderKey: "unknown-1", Match: "ignore"}})
	require.NoError(t, err)
	_, err = f.svc.Schedule(ctx, imp.ID)
	require.NoError(t, err)
	ok, err := f.repo.Transition(ctx, imp.ID, domain.ImportStatusProcess, domain.ImportStatusProcessing)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, f.svc.Delete(ctx, imp.ID), ErrConflict)
}
