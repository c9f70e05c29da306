package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sped-tools/iep-progress-api/internal/models"
	appErrors "github.com/sped-tools/iep-progress-api/pkg/errors"
)

type mockStudentRepo struct {
	students map[string]models.StudentDetail
	created  []models.Student
	updated  []models.Student
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: map[string]models.StudentDetail{}}
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	out := make([]models.StudentDetail, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	student.ID = "generated"
	m.created = append(m.created, *student)
	m.students[student.ID] = models.StudentDetail{Student: *student}
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.updated = append(m.updated, *student)
	m.students[student.ID] = models.StudentDetail{Student: *student}
	return nil
}

func (m *mockStudentRepo) Deactivate(ctx context.Context, id string) error {
	s, ok := m.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Active = false
	m.students[id] = s
	return nil
}

func newStudentServiceForTest(repo *mockStudentRepo) *StudentService {
	return NewStudentService(repo, nil, zap.NewNop())
}

func TestStudentServiceCreate(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newStudentServiceForTest(repo)

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		FirstName:          "Maya",
		LastName:           "Torres",
		GradeLevel:         "3",
		DisabilityCategory: "SLD",
	})
	require.NoError(t, err)
	assert.Equal(t, "generated", student.ID)
	assert.True(t, student.Active)
	require.Len(t, repo.created, 1)
}

func TestStudentServiceCreateMissingName(t *testing.T) {
	svc := newStudentServiceForTest(newMockStudentRepo())

	_, err := svc.Create(context.Background(), CreateStudentRequest{GradeLevel: "3"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	svc := newStudentServiceForTest(newMockStudentRepo())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdate(t *testing.T) {
	repo := newMockStudentRepo()
	repo.students["s1"] = models.StudentDetail{Student: models.Student{
		ID: "s1", FirstName: "Maya", LastName: "Torres", GradeLevel: "3", Active: true,
	}}
	svc := newStudentServiceForTest(repo)

	student, err := svc.Update(context.Background(), "s1", UpdateStudentRequest{
		FirstName:  "Maya",
		LastName:   "Torres",
		GradeLevel: "4",
		Active:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "4", student.GradeLevel)
	require.Len(t, repo.updated, 1)
}

func TestStudentServiceDeactivateRetainsRecord(t *testing.T) {
	repo := newMockStudentRepo()
	repo.students["s1"] = models.StudentDetail{Student: models.Student{ID: "s1", FirstName: "Maya", Active: true}}
	svc := newStudentServiceForTest(repo)

	require.NoError(t, svc.Deactivate(context.Background(), "s1"))

	detail, ok := repo.students["s1"]
	require.True(t, ok)
	assert.False(t, detail.Active)
}

func TestStudentServiceList(t *testing.T) {
	repo := newMockStudentRepo()
	repo.students["s1"] = models.StudentDetail{Student: models.Student{ID: "s1"}}
	repo.students["s2"] = models.StudentDetail{Student: models.Student{ID: "s2"}}
	svc := newStudentServiceForTest(repo)

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 2)
	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 2, pagination.TotalCount)
}
