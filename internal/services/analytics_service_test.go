package services

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/access"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/dto"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard_AdminOnly(t *testing.T) {
	e := newEnv(t)
	student := testutil.CreateUser(t, e.db, "Asha", models.RoleStudent, "")
	staff := testutil.CreateUser(t, e.db, "Ravi", models.RoleDepartment, "Canteen")

	for _, u := range []models.User{student, staff} {
		_, err := e.analytics.Dashboard(context.Background(), callerOf(u))
		assert.ErrorIs(t, err, ErrForbidden, u.Role)
	}
}

func TestDashboard_Aggregates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	asha := testutil.CreateUser(t, e.db, "Asha", models.RoleStudent, "")
	ben := testutil.CreateUser(t, e.db, "Ben", models.RoleStudent, "")
	staff := testutil.CreateUser(t, e.db, "Ravi", models.RoleDepartment, "Canteen")
	admin := testutil.CreateUser(t, e.db, "Root", models.RoleAdmin, "")

	cold := e.submit(t, asha, "Canteen", "Cold food", false)

	e.clock.Advance(24 * time.Hour)
	queue := e.submit(t, ben, "Canteen", "Long queue", true)

	e.clock.Advance(time.Hour)
	_, err := e.complaints.Create(ctx, callerOf(asha), &dto.CreateComplaintRequest{
		Category:    "Sports",
		Title:       "Broken net",
		Description: "Court 2",
		Priority:    models.PriorityHigh,
	})
	require.NoError(t, err)

	e.clock.Advance(2 * time.Hour)
	e.move(t, staff, cold, models.StatusResolved, "Heated")
	e.move(t, staff, queue, models.StatusInProgress, "")

	d, err := e.analytics.Dashboard(ctx, callerOf(admin))
	require.NoError(t, err)

	assert.Equal(t, Overview{
		TotalComplaints:    3,
		TotalStudents:      2,
		TotalDepartments:   7,
		AvgResolutionHours: 27,
	}, d.Overview)

	assert.Equal(t, map[string]int64{
		models.StatusPending:    1,
		models.StatusInProgress: 1,
		models.StatusOnHold:     0,
		models.StatusResolved:   1,
		models.StatusEscalated:  0,
	}, d.ByStatus)
	assert.Equal(t, map[string]int64{
		models.PriorityLow:    0,
		models.PriorityMedium: 2,
		models.PriorityHigh:   1,
	}, d.ByPriority)

	assert.Equal(t, []CategoryStats{
		{Category: "Canteen", Count: 2, Resolved: 1, InProgress: 1},
		{Category: "Sports", Count: 1, Pending: 1},
	}, d.Categories)

	assert.Equal(t, []DailyCount{
		{Day: "2026-10-15", Count: 1},
		{Day: "2026-10-16", Count: 2},
	}, d.Daily)

	require.Len(t, d.Recent, 3)
	assert.Equal(t, "Broken net", d.Recent[0].Complaint.Title)
	assert.Equal(t, "Cold food", d.Recent[2].Complaint.Title)
	assert.Equal(t, "Ben", d.Recent[1].Submitter.Name, "admins see anonymous submitters")
}

func TestDashboard_DailyCountsCoverLastThirtyDays(t *testing.T) {
	e := newEnv(t)
	student := testutil.CreateUser(t, e.db, "Asha", models.RoleStudent, "")
	admin := testutil.CreateUser(t, e.db, "Root", models.RoleAdmin, "")

	e.submit(t, student, "Academic", "Missing grades", false)
	e.clock.Advance(31 * 24 * time.Hour)
	e.submit(t, student, "Academic", "Timetable clash", false)

	d, err := e.analytics.Dashboard(context.Background(), callerOf(admin))
	require.NoError(t, err)
	assert.Equal(t, []DailyCount{{Day: "2026-11-15", Count: 1}}, d.Daily)
	assert.Equal(t, int64(2), d.Overview.TotalComplaints)
	assert.Zero(t, d.Overview.AvgResolutionHours)
}

func TestDepartmentAnalytics_Scope(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	student := testutil.CreateUser(t, e.db, "Asha", models.RoleStudent, "")
	canteen := testutil.CreateUser(t, e.db, "Ravi", models.RoleDepartment, "Canteen")
	admin := testutil.CreateUser(t, e.db, "Root", models.RoleAdmin, "")

	e.submit(t, student, "Canteen", "Cold food", true)
	e.clock.Advance(time.Minute)
	e.submit(t, student, "Canteen", "Long queue", false)
	e.submit(t, student, "Sports", "Broken net", false)

	got, err := e.analytics.Department(ctx, callerOf(canteen), "Canteen")
	require.NoError(t, err)
	assert.Equal(t, "Canteen", got.Department)
	assert.Equal(t, int64(2), got.Total)
	assert.Equal(t, int64(2), got.ByStatus[models.StatusPending])
	require.Len(t, got.Recent, 2)
	assert.Equal(t, "Long queue", got.Recent[0].Complaint.Title)
	assert.Equal(t, "Asha", got.Recent[0].Submitter.Name)
	assert.True(t, got.Recent[1].Redacted)
	assert.Equal(t, access.AnonymousName, got.Recent[1].Submitter.Name)

	_, err = e.analytics.Department(ctx, callerOf(canteen), "Sports")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.analytics.Department(ctx, callerOf(student), "Canteen")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.analytics.Department(ctx, callerOf(admin), "Library")
	assert.ErrorIs(t, err, ErrNotFound)

	sports, err := e.analytics.Department(ctx, callerOf(admin), "Sports")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sports.Total)
	require.Len(t, sports.Recent, 1)
	assert.False(t, sports.Recent[0].Redacted)
}
