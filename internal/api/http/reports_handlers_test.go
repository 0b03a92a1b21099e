package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/classpoint/classpoint/internal/db"
	"github.com/classpoint/classpoint/internal/grading"
	"github.com/classpoint/classpoint/internal/rbac"
	"github.com/classpoint/classpoint/internal/report"
	"github.com/classpoint/classpoint/internal/term"
)

type stubReportStore struct{}

func (stubReportStore) GradesFor(context.Context, string, string, string) ([]grading.Grade, error) {
	return nil, nil
}
func (stubReportStore) GetReport(context.Context, string, string, string) (report.Report, bool, error) {
	return report.Report{}, true, nil
}
func (stubReportStore) PutReport(context.Context, report.Report) error { return nil }
func (stubReportStore) SubjectDetails(context.Context, string, string, string) ([]report.SubjectDetail, error) {
	return nil, nil
}

func studentReportRequest(t *testing.T, studentID, role string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet,
		"/reports/student/"+studentID+"?term=FIRST&year=2025&programId=p1", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("studentID", studentID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = rbac.WithSubject(ctx, studentID)
	ctx = rbac.WithRole(ctx, role)
	return req.WithContext(ctx)
}

func TestStudentReportPublicationGate(t *testing.T) {
	dbh, err := db.Open(context.Background(), db.DriverSQLite,
		"file:report_gate?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	dbh.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = dbh.Close() })

	terms := term.NewSQLStore(dbh, "sqlite", func() int64 { return 1700000000 })
	tm, err := terms.Create(context.Background(), term.AcademicTerm{
		Name: term.First, Year: "2025", StartDate: 1, EndDate: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	handler := StudentReportHandler(report.NewBuilder(stubReportStore{}, nil), terms)

	// Unpublished term: a student gets the release-state response, not data.
	rr := httptest.NewRecorder()
	handler(rr, studentReportRequest(t, "s1", "student"))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if hasData, ok := body["hasData"].(bool); !ok || hasData {
		t.Fatalf(`body["hasData"] = %v, want false`, body["hasData"])
	}
	if msg, _ := body["error"].(string); msg == "" {
		t.Fatal("gate response missing error message")
	}

	// Staff bypass the gate.
	rr = httptest.NewRecorder()
	handler(rr, studentReportRequest(t, "s1", "teacher"))
	if rr.Code != http.StatusOK {
		t.Fatalf("staff status = %d, want 200", rr.Code)
	}

	// Publication opens the gate for the student.
	if err := terms.SetPublished(context.Background(), tm.ID, true, "admin1"); err != nil {
		t.Fatal(err)
	}
	rr = httptest.NewRecorder()
	handler(rr, studentReportRequest(t, "s1", "student"))
	if rr.Code != http.StatusOK {
		t.Fatalf("post-publish status = %d, want 200", rr.Code)
	}
}

func TestStudentReportOwnOnly(t *testing.T) {
	dbh, err := db.Open(context.Background(), db.DriverSQLite,
		"file:report_own?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	dbh.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = dbh.Close() })

	terms := term.NewSQLStore(dbh, "sqlite", func() int64 { return 1700000000 })
	handler := StudentReportHandler(report.NewBuilder(stubReportStore{}, nil), terms)

	req := studentReportRequest(t, "s2", "student")
	req = req.WithContext(rbac.WithSubject(req.Context(), "s1")) // caller is s1, asks for s2
	rr := httptest.NewRecorder()
	handler(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}
