package services

import (
	"context"
	"testing"
	"time"

	"github.com/regconline/afrilearn/internal/models"
	"github.com/regconline/afrilearn/internal/repository"
)

func TestRecordLeaveAccumulatesAcrossCycles(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	scheduler := newIntegrationScheduler(pool)
	attendanceRepo := repository.NewAttendanceRepository(pool)

	studentID := createTestAccount(t, ctx, pool, models.RoleStudent)
	tutorID := createTestAccount(t, ctx, pool, models.RoleTutor)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, tutorID) })

	start := time.Now().UTC().Add(6 * time.Hour).Truncate(time.Minute)
	session, err := scheduler.BookSession(ctx, studentID, models.RoleStudent, BookSessionInput{
		TutorID:   tutorID,
		Title:     "Chemistry drill",
		Subject:   "Chemistry",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Price:     500,
		Currency:  "NGN",
	})
	if err != nil {
		t.Fatalf("BookSession: %v", err)
	}

	joined, err := attendanceRepo.RecordJoin(ctx, session.ID, studentID, start)
	if err != nil {
		t.Fatalf("RecordJoin: %v", err)
	}
	if joined.DurationMinutes != 0 || joined.LeaveTime != nil {
		t.Fatalf("expected fresh join, got %+v", joined)
	}

	left, err := attendanceRepo.RecordLeave(ctx, session.ID, studentID, start.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("RecordLeave: %v", err)
	}
	if left.DurationMinutes != 30 {
		t.Fatalf("expected 30 minutes, got %d", left.DurationMinutes)
	}

	// Re-joining opens a new cycle and clears the leave stamp; the earlier
	// minutes stay banked.
	rejoined, err := attendanceRepo.RecordJoin(ctx, session.ID, studentID, start.Add(40*time.Minute))
	if err != nil {
		t.Fatalf("second RecordJoin: %v", err)
	}
	if rejoined.LeaveTime != nil {
		t.Fatalf("expected cleared leave time, got %+v", rejoined.LeaveTime)
	}
	if rejoined.DurationMinutes != 30 {
		t.Fatalf("expected banked 30 minutes, got %d", rejoined.DurationMinutes)
	}

	left, err = attendanceRepo.RecordLeave(ctx, session.ID, studentID, start.Add(55*time.Minute))
	if err != nil {
		t.Fatalf("second RecordLeave: %v", err)
	}
	if left.DurationMinutes != 45 {
		t.Fatalf("expected 45 accumulated minutes, got %d", left.DurationMinutes)
	}

	records, err := attendanceRepo.ListBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one row per participant, got %d", len(records))
	}
}
