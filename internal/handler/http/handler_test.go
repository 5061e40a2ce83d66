package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/config"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/report"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/civilday"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workhours"
	"github.com/cmlabs-hris/attendance-backend-go/internal/repository/memory"
	attendanceService "github.com/cmlabs-hris/attendance-backend-go/internal/service/attendance"
	correctionService "github.com/cmlabs-hris/attendance-backend-go/internal/service/correction"
	notificationService "github.com/cmlabs-hris/attendance-backend-go/internal/service/notification"
	reportService "github.com/cmlabs-hris/attendance-backend-go/internal/service/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

var (
	employee = user.Identity{UserID: "u-emp", WorkerID: "w-1", Role: user.RoleEmployee}
	coworker = user.Identity{UserID: "u-other", WorkerID: "w-2", Role: user.RoleEmployee}
	manager  = user.Identity{UserID: "u-mgr", WorkerID: "w-9", Role: user.RoleManager}
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	Meta *struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		TotalItems int64 `json:"total_items"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

type testEnv struct {
	router   http.Handler
	jwt      jwt.Service
	clock    *clock.Fixed
	calendar civilday.Calendar
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	loc, err := civilday.ParseOffset("+08:00")
	require.NoError(t, err)
	cal := civilday.NewCalendar(loc)
	policy, err := workhours.NewPolicy("09:00", 15)
	require.NoError(t, err)

	env := &testEnv{calendar: cal, clock: clock.NewFixed(time.Time{})}
	env.setNow(t, "2024-01-12", "10:00")

	store := memory.NewStore(env.clock)
	notifSvc := notificationService.NewNotificationService(sse.NewHub(), env.clock)
	t.Cleanup(notifSvc.Stop)

	cache := attendanceService.NewTodayCache()
	env.jwt = jwt.NewJWTService(handlerTestSecret, time.Hour)

	attendanceSvc := attendanceService.NewAttendanceService(store.AttendanceRepository(), cache, notifSvc, env.clock, cal, policy)
	correctionSvc := correctionService.NewCorrectionService(store.CorrectionRepository(), store.AttendanceRepository(), store, cache, notifSvc, env.clock, cal, policy)
	reportSvc := reportService.NewReportService(store.AttendanceRepository(), report.NewHolidaySet(), env.clock, cal)

	cfg := &config.Config{
		App:  config.AppConfig{Env: "test", LogLevel: "error"},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	env.router = NewRouter(
		cfg,
		env.jwt,
		NewAttendanceHandler(attendanceSvc),
		NewCorrectionHandler(correctionSvc),
		NewReportHandler(reportSvc),
		NewNotificationHandler(notifSvc, env.jwt),
	)
	return env
}

func (e *testEnv) setNow(t *testing.T, day, local string) {
	t.Helper()
	now, err := e.calendar.Compose(day, local)
	require.NoError(t, err)
	e.clock.Set(now)
}

func (e *testEnv) token(t *testing.T, identity user.Identity) string {
	t.Helper()
	token, _, err := e.jwt.GenerateAccessToken(identity)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path string, identity *user.Identity, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if identity != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(t, *identity))
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decodeData(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func TestAttendanceFlow(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodPost, "/api/v1/attendance/check-in", &employee, nil)
	require.Equal(t, http.StatusCreated, code)
	var checkIn struct {
		WorkDate     string `json:"work_date"`
		IsLate       bool   `json:"is_late"`
		CheckInLocal string `json:"check_in_local"`
	}
	decodeData(t, resp, &checkIn)
	assert.Equal(t, "2024-01-12", checkIn.WorkDate)
	assert.True(t, checkIn.IsLate)
	assert.Equal(t, "10:00:00", checkIn.CheckInLocal)

	code, resp = env.do(t, http.MethodPost, "/api/v1/attendance/check-in", &employee, nil)
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_CHECKED_IN", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Details["hint"])

	code, resp = env.do(t, http.MethodGet, "/api/v1/attendance/status", &employee, nil)
	require.Equal(t, http.StatusOK, code)
	var status struct {
		CanCheckIn  bool `json:"can_check_in"`
		CanCheckOut bool `json:"can_check_out"`
	}
	decodeData(t, resp, &status)
	assert.False(t, status.CanCheckIn)
	assert.True(t, status.CanCheckOut)

	env.clock.Advance(8 * time.Hour)
	code, resp = env.do(t, http.MethodPost, "/api/v1/attendance/check-out", &employee, nil)
	require.Equal(t, http.StatusOK, code)
	var checkOut struct {
		DurationHours *float64 `json:"duration_hours"`
		Status        string   `json:"status"`
	}
	decodeData(t, resp, &checkOut)
	require.NotNil(t, checkOut.DurationHours)
	assert.InDelta(t, 7.0, *checkOut.DurationHours, 1e-9)
	assert.Equal(t, "checked-out", checkOut.Status)

	code, resp = env.do(t, http.MethodPost, "/api/v1/attendance/check-out", &employee, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "NO_ACTIVE_SESSION", resp.Error.Code)

	code, resp = env.do(t, http.MethodGet, "/api/v1/attendance?start_date=2024-01-01&end_date=2024-01-31", &employee, nil)
	require.Equal(t, http.StatusOK, code)
	var list struct {
		TotalCount int64 `json:"total_count"`
	}
	decodeData(t, resp, &list)
	assert.Equal(t, int64(1), list.TotalCount)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.Page)
	assert.Equal(t, 20, resp.Meta.Limit)
	assert.Equal(t, int64(1), resp.Meta.TotalItems)
}

func TestAllAttendance(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPost, "/api/v1/attendance/check-in", &employee, nil)
	require.Equal(t, http.StatusCreated, code)
	code, _ = env.do(t, http.MethodPost, "/api/v1/attendance/check-in", &coworker, nil)
	require.Equal(t, http.StatusCreated, code)

	code, resp := env.do(t, http.MethodGet, "/api/v1/attendance/all?start_date=2024-01-12&end_date=2024-01-12", &manager, nil)
	require.Equal(t, http.StatusOK, code)
	var list struct {
		TotalCount  int64 `json:"total_count"`
		Attendances []struct {
			WorkerID string `json:"worker_id"`
		} `json:"attendances"`
	}
	decodeData(t, resp, &list)
	assert.Equal(t, int64(2), list.TotalCount)
	require.Len(t, list.Attendances, 2)
	assert.ElementsMatch(t, []string{"w-1", "w-2"}, []string{list.Attendances[0].WorkerID, list.Attendances[1].WorkerID})
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.TotalItems)
	assert.Equal(t, 1, resp.Meta.TotalPages)

	code, resp = env.do(t, http.MethodGet, "/api/v1/attendance/all?start_date=2024-01-12&end_date=2024-01-12&limit=1&page=2", &manager, nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, resp, &list)
	assert.Len(t, list.Attendances, 1)
	assert.Equal(t, 2, resp.Meta.TotalPages)

	code, _ = env.do(t, http.MethodGet, "/api/v1/attendance/all?start_date=2024-01-12&end_date=2024-01-12", &employee, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = env.do(t, http.MethodGet, "/api/v1/attendance/all?start_date=0001-01-01&end_date=9999-12-31", &manager, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, resp.Error.Details, "end_date")

	code, resp = env.do(t, http.MethodGet, "/api/v1/attendance?start_date=2024-01-01&end_date=2024-01-31&limit=500", &employee, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, resp.Error.Details, "limit")
}

func TestAuthorization(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodGet, "/api/v1/attendance/today", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, resp.Success)

	code, _ = env.do(t, http.MethodGet, "/api/v1/corrections", &employee, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = env.do(t, http.MethodGet, "/api/v1/employees/w-1/attendance?start_date=2024-01-01&end_date=2024-01-31", &employee, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = env.do(t, http.MethodGet, "/api/v1/employees/w-1/attendance?start_date=2024-01-01&end_date=2024-01-31", &manager, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestCorrectionFlow(t *testing.T) {
	env := newTestEnv(t)

	env.setNow(t, "2024-01-11", "09:00")
	code, _ := env.do(t, http.MethodPost, "/api/v1/attendance/check-in", &employee, nil)
	require.Equal(t, http.StatusCreated, code)
	env.setNow(t, "2024-01-12", "10:00")

	submit := map[string]string{
		"target_day":     "2024-01-11",
		"missing_field":  "check_out",
		"requested_time": "17:00",
		"reason":         "Forgot to check out",
	}
	code, resp := env.do(t, http.MethodPost, "/api/v1/corrections", &employee, submit)
	require.Equal(t, http.StatusCreated, code)
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeData(t, resp, &created)
	assert.Equal(t, "pending", created.Status)

	code, resp = env.do(t, http.MethodPost, "/api/v1/corrections", &employee, submit)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "DUPLICATE_REQUEST", resp.Error.Code)

	code, _ = env.do(t, http.MethodGet, "/api/v1/corrections/"+created.ID, &employee, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = env.do(t, http.MethodGet, "/api/v1/corrections/"+created.ID, &coworker, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(t, http.MethodPost, "/api/v1/corrections/"+created.ID+"/approve", &employee, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = env.do(t, http.MethodPost, "/api/v1/corrections/"+created.ID+"/reject", &manager, map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, resp.Error.Details, "remarks")

	code, resp = env.do(t, http.MethodPost, "/api/v1/corrections/"+created.ID+"/approve", &manager, nil)
	require.Equal(t, http.StatusOK, code)
	var approval struct {
		Request struct {
			Status     string  `json:"status"`
			ApproverID *string `json:"approver_id"`
		} `json:"request"`
		Attendance struct {
			DurationHours *float64 `json:"duration_hours"`
			Status        string   `json:"status"`
		} `json:"attendance"`
	}
	decodeData(t, resp, &approval)
	assert.Equal(t, "approved", approval.Request.Status)
	require.NotNil(t, approval.Request.ApproverID)
	assert.Equal(t, manager.UserID, *approval.Request.ApproverID)
	require.NotNil(t, approval.Attendance.DurationHours)
	assert.InDelta(t, 7.0, *approval.Attendance.DurationHours, 1e-9)
	assert.Equal(t, "checked-out", approval.Attendance.Status)

	code, _ = env.do(t, http.MethodPost, "/api/v1/corrections/"+created.ID+"/approve", &manager, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = env.do(t, http.MethodGet, "/api/v1/corrections?status=approved", &manager, nil)
	require.Equal(t, http.StatusOK, code)
	var list struct {
		TotalCount int64 `json:"total_count"`
	}
	decodeData(t, resp, &list)
	assert.Equal(t, int64(1), list.TotalCount)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.TotalItems)

	code, resp = env.do(t, http.MethodGet, "/api/v1/corrections/my?status=pending", &employee, nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, resp, &list)
	assert.Equal(t, int64(0), list.TotalCount)
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodGet, "/api/v1/attendance/summary?month=1&year=2024", &employee, nil)
	require.Equal(t, http.StatusOK, code)
	var agg struct {
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		Present     int    `json:"present"`
		Absent      int    `json:"absent"`
		WorkingDays int    `json:"working_days"`
	}
	decodeData(t, resp, &agg)
	assert.Equal(t, "2024-01-01", agg.StartDate)
	assert.Equal(t, "2024-01-31", agg.EndDate)
	assert.Equal(t, 0, agg.Present)
	assert.Equal(t, 9, agg.WorkingDays)
	assert.Equal(t, 9, agg.Absent)

	code, _ = env.do(t, http.MethodGet, "/api/v1/attendance/summary?month=13&year=2024", &employee, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = env.do(t, http.MethodGet, "/api/v1/attendance", &employee, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, resp.Error.Details, "start_date")

	code, _ = env.do(t, http.MethodGet, "/api/v1/employees/w-1/attendance/summary?start_date=2024-01-01&end_date=2024-01-07", &manager, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	code, resp := env.do(t, http.MethodPost, "/api/v1/events/token", &employee, nil)
	require.Equal(t, http.StatusOK, code)
	var sseToken struct {
		Token string `json:"token"`
	}
	decodeData(t, resp, &sseToken)
	require.NotEmpty(t, sseToken.Token)

	// An access token is not accepted on the stream
	bad, err := http.Get(server.URL + "/api/v1/events?token=" + env.token(t, employee))
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/events?token="+sseToken.Token, nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(stream.Body)
	waitFor := func(prefix string) string {
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, prefix) {
				return line
			}
		}
		return ""
	}

	require.Equal(t, "event: connected", waitFor("event: connected"))

	code, _ = env.do(t, http.MethodPost, "/api/v1/attendance/check-in", &employee, nil)
	require.Equal(t, http.StatusCreated, code)

	assert.Equal(t, "event: attendance_check_in", waitFor("event: attendance_"))
	data := waitFor("data: ")
	assert.Contains(t, data, `"worker_id":"w-1"`)
}
