package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sped-tools/iep-progress-api/internal/models"
	"github.com/sped-tools/iep-progress-api/pkg/export"
	"github.com/sped-tools/iep-progress-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)

	goals, observations := masteryFixture()
	students := newMockStudentRepo()
	students.students["s1"] = models.StudentDetail{Student: models.Student{
		ID: "s1", FirstName: "Maya", LastName: "Torres", GradeLevel: "3", Active: true,
	}}

	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(students, goals, observations, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportServiceGenerateProgressCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeProgress,
		Params:    models.ReportJobParams{StudentID: "s1", Format: models.ReportFormatCSV},
		CreatedBy: "teacher-1",
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatCSV, result.Format)
	assert.Contains(t, result.URL, "/api/v1/export/")
	assert.NotEmpty(t, result.Token)

	data, err := os.ReadFile(store.Path(result.RelativePath))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Reading fluency")
	assert.Contains(t, string(data), "85")
}

func TestExportServiceGenerateMasteryPDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-2",
		Type:      models.ReportTypeMastery,
		Params:    models.ReportJobParams{StudentID: "s1", Format: models.ReportFormatPDF},
		CreatedBy: "teacher-1",
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatPDF, result.Format)

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportServiceProgressWindowFilter(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	from := masteryFixtureDay(2)
	to := masteryFixtureDay(3)
	job := &models.ReportJob{
		ID:     "job-3",
		Type:   models.ReportTypeProgress,
		Params: models.ReportJobParams{StudentID: "s1", From: &from, To: &to, Format: models.ReportFormatCSV},
	}

	dataset, _, err := svc.buildProgressDataset(context.Background(), job.Params)
	require.NoError(t, err)
	assert.Len(t, dataset.Rows, 2)
}

func TestExportServiceTokenRoundTrip(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:     "job-4",
		Type:   models.ReportTypeMastery,
		Params: models.ReportJobParams{StudentID: "s1", Format: models.ReportFormatCSV},
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-4", jobID)
	assert.Equal(t, result.RelativePath, relPath)
}

func TestExportServiceRejectsUnknownType(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:     "job-5",
		Type:   models.ReportType("attendance"),
		Params: models.ReportJobParams{StudentID: "s1", Format: models.ReportFormatCSV},
	}

	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}
