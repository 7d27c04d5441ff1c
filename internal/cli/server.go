package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"exam-session-service/internal/app"
	"exam-session-service/internal/config"
	"exam-session-service/internal/docsvc"
	"exam-session-service/internal/domain"
	"exam-session-service/internal/infra/memory"
	pgstore "exam-session-service/internal/infra/postgres"
	redisstore "exam-session-service/internal/infra/redis"
	"exam-session-service/internal/token"
	transport "exam-session-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	loginTTL := config.TTLDuration(cfg.Auth.LoginTTL, token.DefaultLoginTTL)
	attemptTTL := config.TTLDuration(cfg.Auth.AttemptTTL, token.DefaultAttemptTTL)
	examTTL := config.TTLDuration(cfg.Exam.CacheTTL, 10*time.Minute)

	students := token.NewIssuer(token.NamespaceStudent, secretOr(cfg.Auth.StudentSecret, "dev-student-secret"), loginTTL)
	instructors := token.NewIssuer(token.NamespaceInstructor, secretOr(cfg.Auth.InstructorSecret, "dev-instructor-secret"), loginTTL)
	attemptTok := token.NewIssuer(token.NamespaceAttempt, secretOr(cfg.Auth.AttemptSecret, "dev-attempt-secret"), attemptTTL)

	var records app.RecordRepository = memory.NewRecordRepository()
	var loader memory.ExamLoader = memory.NewStaticExamLoader(sampleExams())
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		loader = pgstore.NewExamLoader(pool)

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		records = pgstore.NewRecordRepository(bun.NewDB(sqldb, pgdialect.New()))
	}

	var exams app.ExamRepository
	if redisClient != nil {
		exams = redisstore.NewExamRepository(redisClient, loader, examTTL)
	} else {
		exams = memory.NewExamRepository(loader, examTTL)
	}

	var registry app.AttemptRegistry
	if redisClient != nil {
		registry = redisstore.NewAttemptRegistry(redisClient, attemptTTL)
	} else {
		registry = memory.NewAttemptRegistry()
	}

	var docs app.DocumentService = memory.NewDocumentStore()
	if cfg.Documents.URL != "" {
		docs = docsvc.NewClient(cfg.Documents.URL)
	}

	directory := demoDirectory()

	attempts := app.NewAttemptService(records, exams, registry, attemptTok)
	grading := app.NewGradingService(records, exams, docs)

	api := transport.NewAPI(students, instructors, attemptTok, directory, attempts, grading)
	watch := transport.NewWatchHandler(attempts, attemptTok)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	api.Register(mux)
	mux.HandleFunc("/ws/attempt", watch.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting exam session service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func secretOr(configured, fallback string) []byte {
	if configured != "" {
		return []byte(configured)
	}
	return []byte(fallback)
}

// demoDirectory seeds a couple of accounts; real deployments point the
// Directory interface at the provisioning service instead.
func demoDirectory() app.Directory {
	dir := memory.NewDirectory()
	_ = dir.AddUser("stu-1", "Demo Student", "student@example.com", "student123", app.RoleStudent)
	_ = dir.AddUser("ins-1", "Demo Instructor", "instructor@example.com", "instructor123", app.RoleInstructor)
	return dir
}

// sampleExams provides minimal exam data for running without Postgres.
func sampleExams() map[string]domain.ExamDefinition {
	return map[string]domain.ExamDefinition{
		"exam-1": {
			ID:              "exam-1",
			Name:            "Algebra Midterm",
			SubjectID:       "subj-math",
			TotalQuestions:  5,
			DurationMinutes: 60,
			TotalMarks:      50,
		},
	}
}
