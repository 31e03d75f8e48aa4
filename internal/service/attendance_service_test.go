package service

import (
	"context"
	"testing"

	"crms/internal/model"
	"crms/pkg/apperror"
)

func TestAttendanceService_Record(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAttendanceService(env.attendance, env.projects, env.auditSink())
	ctx := context.Background()

	req := RecordAttendanceDTO{SiteID: env.site.ID, WorkerName: " Minh ", WorkDate: "2026-10-14", Status: "present", HoursWorked: dec("8")}
	rec, err := svc.Record(ctx, env.supervisor, req)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.WorkerName != "Minh" || rec.Status != model.AttendancePresent || rec.RecordedBy != env.supervisor.UserID {
		t.Errorf("unexpected record %+v", rec)
	}

	_, err = svc.Record(ctx, env.supervisor, req)
	assertKind(t, err, apperror.KindConflict)

	_, err = svc.Record(ctx, env.pm, RecordAttendanceDTO{SiteID: env.site.ID, WorkerName: "Lan", WorkDate: "2026-10-14", Status: "LATE"})
	assertKind(t, err, apperror.KindForbidden)

	items, total, err := svc.List(ctx, env.pm, env.site.ID, "2026-10-14", 1, 20)
	if err != nil || total != 1 || len(items) != 1 {
		t.Errorf("PM should list one record, total=%d err=%v", total, err)
	}
	_, _, err = svc.List(ctx, env.otherPM, env.site.ID, "", 1, 20)
	assertKind(t, err, apperror.KindForbidden)
}

func TestAttendanceService_Record_Validation(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAttendanceService(env.attendance, env.projects, env.auditSink())

	tests := []struct {
		name string
		req  RecordAttendanceDTO
	}{
		{"no site", RecordAttendanceDTO{WorkerName: "A", WorkDate: "2026-10-14", Status: "PRESENT"}},
		{"no worker", RecordAttendanceDTO{SiteID: 1, WorkDate: "2026-10-14", Status: "PRESENT"}},
		{"bad status", RecordAttendanceDTO{SiteID: 1, WorkerName: "A", WorkDate: "2026-10-14", Status: "SICK"}},
		{"too many hours", RecordAttendanceDTO{SiteID: 1, WorkerName: "A", WorkDate: "2026-10-14", Status: "PRESENT", HoursWorked: dec("25")}},
		{"no date", RecordAttendanceDTO{SiteID: 1, WorkerName: "A", Status: "PRESENT"}},
		{"bad date", RecordAttendanceDTO{SiteID: 1, WorkerName: "A", WorkDate: "yesterday", Status: "PRESENT"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), env.supervisor, tt.req)
			assertKind(t, err, apperror.KindValidation)
		})
	}
}
