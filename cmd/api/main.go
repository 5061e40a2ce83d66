package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/config"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/report"
	appHTTP "github.com/cmlabs-hris/attendance-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/civilday"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/workhours"
	"github.com/cmlabs-hris/attendance-backend-go/internal/repository/memory"
	"github.com/cmlabs-hris/attendance-backend-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/attendance-backend-go/internal/service/attendance"
	correctionService "github.com/cmlabs-hris/attendance-backend-go/internal/service/correction"
	notificationService "github.com/cmlabs-hris/attendance-backend-go/internal/service/notification"
	reportService "github.com/cmlabs-hris/attendance-backend-go/internal/service/report"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	loc, err := civilday.ParseOffset(cfg.Attendance.TZOffset)
	if err != nil {
		return fmt.Errorf("invalid ATTENDANCE_TZ_OFFSET: %w", err)
	}
	calendar := civilday.NewCalendar(loc)

	policy, err := workhours.NewPolicy(cfg.Attendance.WorkStartTime, cfg.Attendance.LateGraceMinutes)
	if err != nil {
		return fmt.Errorf("invalid lateness policy: %w", err)
	}

	clk := clock.System()

	var (
		attendanceRepo attendance.AttendanceRepository
		correctionRepo correction.CorrectionRepository
		txManager      database.TxManager
	)

	switch cfg.App.StoreType {
	case config.StoreTypePostgres:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			slog.Info("database schema is up to date")
		}

		attendanceRepo = postgresql.NewAttendanceRepository(db)
		correctionRepo = postgresql.NewCorrectionRepository(db)
		txManager = postgresql.NewTxManager(db)
	case config.StoreTypeMemory:
		store := memory.NewStore(clk)
		attendanceRepo = store.AttendanceRepository()
		correctionRepo = store.CorrectionRepository()
		txManager = store
		slog.Warn("using in-memory store, records are lost on restart")
	}

	hub := sse.NewHub()
	notifSvc := notificationService.NewNotificationService(hub, clk)
	defer notifSvc.Stop()

	todayCache := attendanceService.NewTodayCache()
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	attendanceSvc := attendanceService.NewAttendanceService(attendanceRepo, todayCache, notifSvc, clk, calendar, policy)
	correctionSvc := correctionService.NewCorrectionService(correctionRepo, attendanceRepo, txManager, todayCache, notifSvc, clk, calendar, policy)
	reportSvc := reportService.NewReportService(attendanceRepo, report.NewHolidaySet(cfg.Attendance.Holidays...), clk, calendar)

	router := appHTTP.NewRouter(
		cfg,
		JWTService,
		appHTTP.NewAttendanceHandler(attendanceSvc),
		appHTTP.NewCorrectionHandler(correctionSvc),
		appHTTP.NewReportHandler(reportSvc),
		appHTTP.NewNotificationHandler(notifSvc, JWTService),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server running", "addr", server.Addr, "store", cfg.App.StoreType, "tz_offset", cfg.Attendance.TZOffset)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		// Close event streams first so Shutdown is not held open by them
		notifSvc.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
