package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"standup/internal/database"
	"standup/internal/models"
	"standup/internal/services"
)

func newTestApp(t *testing.T) (*fiber.App, *services.MeetingService) {
	t.Helper()

	store, err := database.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	meetingService := services.NewMeetingService(store, nil)
	reportService := services.NewReportService("", nil)
	handler := NewMeetingHandler(meetingService, reportService)

	app := fiber.New()
	app.Post("/api/meetings", handler.Create)
	app.Get("/api/meetings", handler.List)
	app.Get("/api/meetings/:id", handler.Get)
	app.Post("/api/meetings/:id/updates", handler.SubmitUpdate)
	app.Post("/api/meetings/:id/close", handler.Close)
	app.Get("/api/meetings/:id/report", handler.Report)

	return app, meetingService
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) (int, []byte) {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody
}

func TestMeetingHandler_CreateAndGet(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := postJSON(t, app, "/api/meetings", models.CreateMeetingRequest{
		CreatedBy: "alice",
		Name:      "sprint 12",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", status, body)
	}

	var created models.MeetingResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if created.ID == "" || created.IsClosed {
		t.Errorf("Unexpected created meeting: %+v", created)
	}

	req := httptest.NewRequest("GET", "/api/meetings/"+created.ID, nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected 200 on Get, got %d", resp.StatusCode)
	}
}

func TestMeetingHandler_CreateRequiresCreator(t *testing.T) {
	app, _ := newTestApp(t)

	status, _ := postJSON(t, app, "/api/meetings", models.CreateMeetingRequest{})
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400, got %d", status)
	}
}

func TestMeetingHandler_GetUnknown(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/meetings/26-1-1-deadbeef", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestMeetingHandler_SubmitUpdateValidation(t *testing.T) {
	app, svc := newTestApp(t)
	meeting, _ := svc.Create("alice", "", "")

	status, body := postJSON(t, app, "/api/meetings/"+meeting.ID+"/updates", models.SubmitUpdateRequest{
		User:     "bob",
		Progress: "   ",
		Blockers: "none",
		Goals:    "docs",
	})
	if status != fiber.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", status, body)
	}

	var errResp models.ErrorResponse
	json.Unmarshal(body, &errResp)
	if errResp.Field != "progress" {
		t.Errorf("Expected field progress in error, got %+v", errResp)
	}
}

func TestMeetingHandler_SubmitUpdateOnClosedMeeting(t *testing.T) {
	app, svc := newTestApp(t)
	meeting, _ := svc.Create("alice", "", "")
	svc.Close(meeting.ID, "alice")

	status, _ := postJSON(t, app, "/api/meetings/"+meeting.ID+"/updates", models.SubmitUpdateRequest{
		User:     "bob",
		Progress: "late",
		Blockers: "none",
		Goals:    "docs",
	})
	if status != fiber.StatusConflict {
		t.Errorf("Expected 409, got %d", status)
	}
}

func TestMeetingHandler_CloseTwice(t *testing.T) {
	app, svc := newTestApp(t)
	meeting, _ := svc.Create("alice", "", "")

	status, _ := postJSON(t, app, "/api/meetings/"+meeting.ID+"/close", models.CloseMeetingRequest{ClosedBy: "alice"})
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200 on first close, got %d", status)
	}

	status, _ = postJSON(t, app, "/api/meetings/"+meeting.ID+"/close", models.CloseMeetingRequest{ClosedBy: "bob"})
	if status != fiber.StatusConflict {
		t.Errorf("Expected 409 on second close, got %d", status)
	}
}

func TestMeetingHandler_List(t *testing.T) {
	app, svc := newTestApp(t)
	svc.Create("alice", "", "")
	svc.Create("bob", "", "")

	req := httptest.NewRequest("GET", "/api/meetings", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	defer resp.Body.Close()

	var list models.ListMeetingsResponse
	json.NewDecoder(resp.Body).Decode(&list)
	if list.Total != 2 || len(list.Meetings) != 2 {
		t.Errorf("Expected 2 meetings, got %+v", list)
	}
}

func TestMeetingHandler_Report(t *testing.T) {
	app, svc := newTestApp(t)
	meeting, _ := svc.Create("alice", "sprint 12", "")
	svc.SubmitUpdate(meeting.ID, "bob", "work", "none", "docs")

	req := httptest.NewRequest("GET", "/api/meetings/"+meeting.ID+"/report", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	report := string(body)
	if !strings.Contains(report, "## bob") || !strings.Contains(report, meeting.ID) {
		t.Errorf("Report missing expected content:\n%s", report)
	}
}
