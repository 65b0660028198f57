package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type fakeMigrator struct{ calls int }

func (f *fakeMigrator) Up(context.Context) error {
	f.calls++
	return nil
}

type fakeUsers struct{ last service.CreateUserRequest }

func (f *fakeUsers) Create(_ context.Context, req service.CreateUserRequest) (*models.User, error) {
	f.last = req
	return &models.User{ID: "u-1", Email: req.Email, Role: req.Role}, nil
}

type fakeReconciler struct {
	teacher   string
	reports   []models.ReconcileReport
	verifyErr error
}

func (f *fakeReconciler) ReconcileTeacher(_ context.Context, id string) (*models.ReconcileReport, error) {
	f.teacher = id
	return &models.ReconcileReport{TeacherID: id}, nil
}

func (f *fakeReconciler) ReconcileAll(context.Context) ([]models.ReconcileReport, error) {
	return f.reports, nil
}

func (f *fakeReconciler) Verify(context.Context) ([]models.ReconcileReport, error) {
	return f.reports, f.verifyErr
}

func newCLI() (*commandLine, *bytes.Buffer, *fakeMigrator, *fakeUsers, *fakeReconciler) {
	out := &bytes.Buffer{}
	m, u, r := &fakeMigrator{}, &fakeUsers{}, &fakeReconciler{}
	return &commandLine{migrator: m, users: u, reconciler: r, out: out}, out, m, u, r
}

func TestRunPrintsUsage(t *testing.T) {
	cli, out, _, _, _ := newCLI()
	assert.ErrorIs(t, cli.run(context.Background(), []string{"admin"}), errHelp)
	assert.Contains(t, out.String(), "Usage:")
	assert.ErrorIs(t, cli.run(context.Background(), []string{"admin", "explode"}), errHelp)
}

func TestRunMigrate(t *testing.T) {
	cli, _, m, _, _ := newCLI()
	require.NoError(t, cli.run(context.Background(), []string{"admin", "migrate"}))
	assert.Equal(t, 1, m.calls)
}

func TestRunCreateUser(t *testing.T) {
	cli, out, _, u, _ := newCLI()
	original := readPasswordFunc
	defer func() { readPasswordFunc = original }()
	readPasswordFunc = func(int) ([]byte, error) { return []byte("secret123"), nil }

	err := cli.run(context.Background(), []string{"admin", "create-user", "-email", "ani@school.id", "-name", "Ani", "-role", "teacher"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, u.last.Role)
	assert.Equal(t, "secret123", u.last.Password)
	assert.Contains(t, out.String(), "created TEACHER ani@school.id")

	readPasswordFunc = func(int) ([]byte, error) { return nil, nil }
	err = cli.run(context.Background(), []string{"admin", "create-user", "-email", "x@school.id", "-name", "X"})
	assert.ErrorIs(t, err, errHelp)

	err = cli.run(context.Background(), []string{"admin", "create-user", "-email", "x@school.id"})
	assert.ErrorIs(t, err, errHelp)
}

func TestRunReconcile(t *testing.T) {
	cli, out, _, _, r := newCLI()
	require.NoError(t, cli.run(context.Background(), []string{"admin", "reconcile", "-teacher", "t-7"}))
	assert.Equal(t, "t-7", r.teacher)
	assert.Contains(t, out.String(), `"teacherId": "t-7"`)

	out.Reset()
	require.NoError(t, cli.run(context.Background(), []string{"admin", "reconcile"}))
	assert.Contains(t, out.String(), "consistent")
}

func TestRunVerifyReturnsDrift(t *testing.T) {
	cli, out, _, _, r := newCLI()
	r.reports = []models.ReconcileReport{{TeacherID: "t-1", AvailabilityFixed: 1, DryRun: true}}
	r.verifyErr = appErrors.Clone(appErrors.ErrConsistency, "1 teacher(s) out of sync with schedules")

	err := cli.run(context.Background(), []string{"admin", "verify"})
	assert.True(t, appErrors.Is(err, appErrors.ErrConsistency))
	assert.Contains(t, out.String(), `"teacherId": "t-1"`)

	r.reports, r.verifyErr = nil, errors.New("db down")
	assert.EqualError(t, cli.run(context.Background(), []string{"admin", "verify"}), "db down")
}
