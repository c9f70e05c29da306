package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sped-tools/iep-progress-api/internal/models"
	"github.com/sped-tools/iep-progress-api/pkg/export"
	"github.com/sped-tools/iep-progress-api/pkg/storage"
)

type exportStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	students     exportStudentRepository
	goals        masteryGoalRepository
	observations masteryObservationRepository
	storage      fileStorage
	csv          csvRenderer
	pdf          pdfRenderer
	signer       *storage.SignedURLSigner
	logger       *zap.Logger
	cfg          ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(students exportStudentRepository, goals masteryGoalRepository, observations masteryObservationRepository, fs fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		students:     students,
		goals:        goals,
		observations: observations,
		storage:      fs,
		csv:          csv,
		pdf:          pdf,
		signer:       signer,
		logger:       logger,
		cfg:          cfg,
	}
}

// Generate builds the dataset for a job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	studentPart := sanitizeFilename(job.Params.StudentID)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), studentPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeProgress:
		return s.buildProgressDataset(ctx, job.Params)
	case models.ReportTypeMastery:
		return s.buildMasteryDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

// buildProgressDataset lists every observation in the requested window with
// its goal and objective context, one row per data point.
func (s *ExportService) buildProgressDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	student, err := s.students.FindByID(ctx, params.StudentID)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("load student: %w", err)
	}
	goals, err := s.goals.ListByStudent(ctx, params.StudentID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	objectives, err := s.goals.ListObjectivesByStudent(ctx, params.StudentID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	observations, err := s.observations.ListByStudent(ctx, params.StudentID)
	if err != nil {
		return export.Dataset{}, "", err
	}

	goalTitles := make(map[string]string, len(goals))
	for _, goal := range goals {
		goalTitles[goal.ID] = goal.Title
	}
	objectiveDescs := make(map[string]string, len(objectives))
	for _, obj := range objectives {
		objectiveDescs[obj.ID] = obj.Description
	}

	headers := []string{"Date", "Goal", "Objective", "Value", "Format", "Note"}
	rows := make([]map[string]string, 0, len(observations))
	for _, obs := range observations {
		if params.From != nil && obs.ObservedAt.Before(*params.From) {
			continue
		}
		if params.To != nil && obs.ObservedAt.After(*params.To) {
			continue
		}
		objective := ""
		if obs.ObjectiveID != nil {
			objective = objectiveDescs[*obs.ObjectiveID]
		}
		rows = append(rows, map[string]string{
			"Date":      obs.ObservedAt.Format("2006-01-02"),
			"Goal":      goalTitles[obs.GoalID],
			"Objective": objective,
			"Value":     obs.ProgressValue,
			"Format":    string(obs.ProgressFormat),
			"Note":      obs.Note,
		})
	}

	title := fmt.Sprintf("Progress Report - %s %s", student.FirstName, student.LastName)
	return export.Dataset{Headers: headers, Rows: rows}, title, nil
}

// buildMasteryDataset summarizes each goal and objective with its criteria
// and current lifecycle status.
func (s *ExportService) buildMasteryDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	student, err := s.students.FindByID(ctx, params.StudentID)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("load student: %w", err)
	}
	goals, err := s.goals.ListByStudent(ctx, params.StudentID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	objectives, err := s.goals.ListObjectivesByStudent(ctx, params.StudentID)
	if err != nil {
		return export.Dataset{}, "", err
	}

	byGoal := make(map[string][]models.Objective)
	for _, obj := range objectives {
		byGoal[obj.GoalID] = append(byGoal[obj.GoalID], obj)
	}

	headers := []string{"Level", "Title", "Criteria", "Collection", "Status"}
	var rows []map[string]string
	for _, goal := range goals {
		rows = append(rows, map[string]string{
			"Level":      "Goal",
			"Title":      goal.Title,
			"Criteria":   goal.TargetCriteria,
			"Collection": string(goal.DataCollectionType),
			"Status":     string(goal.Status),
		})
		for _, obj := range byGoal[goal.ID] {
			rows = append(rows, map[string]string{
				"Level":      "Objective",
				"Title":      obj.Description,
				"Criteria":   obj.TargetCriteria,
				"Collection": string(goal.DataCollectionType),
				"Status":     string(obj.Status),
			})
		}
	}

	title := fmt.Sprintf("Mastery Summary - %s %s", student.FirstName, student.LastName)
	return export.Dataset{Headers: headers, Rows: rows}, title, nil
}
