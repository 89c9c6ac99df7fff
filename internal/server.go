package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/mkanilsson/workout-backend/internal/auth"
	"github.com/mkanilsson/workout-backend/internal/config"
	"github.com/mkanilsson/workout-backend/internal/db"
	"github.com/mkanilsson/workout-backend/internal/exercises"
	"github.com/mkanilsson/workout-backend/internal/instrumentation"
	"github.com/mkanilsson/workout-backend/internal/middleware"
	"github.com/mkanilsson/workout-backend/internal/users"
	"github.com/mkanilsson/workout-backend/internal/workouts"
)

// sessionSweepInterval is how often expired sessions get removed from the db.
// Expired sessions are rejected on every request regardless, the sweep only
// keeps the table from growing.
const sessionSweepInterval = time.Hour

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config      *config.Config
	dbPool      *pgxpool.Pool
	authService *auth.Service

	// metrics
	instr        *instrumentation.Instrumentation
	promRegistry *prometheus.Registry
}

type NewServerParams struct {
	Config           *config.Config
	PostgresUser     string
	PostgresPassword string
	VersionInfo      string
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		DBUser:         params.PostgresUser,
		DBPassword:     params.PostgresPassword,
		TracingEnabled: params.Config.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := instrumentation.SetupPrometheus(pgxpoolCollector)
	instr := instrumentation.NewInstrumentation("workout_backend", "main", promRegistry)
	instr.GaugeLifeSignal.Set(0) // will be set to 1 when all is set and ran

	usersRepo := users.NewRepo(dbPool)
	sessionsRepo := auth.NewSessionsRepo(dbPool)
	authService := auth.NewService(usersRepo, sessionsRepo, auth.DefaultTTL)
	go func() {
		for range time.Tick(sessionSweepInterval) {
			removed := authService.ScanAndClean(ctx)
			instr.CounterSessionsCleaned.Add(float64(removed))
		}
	}()

	s := &Server{
		config:      params.Config,
		dbPool:      dbPool,
		versionInfo: params.VersionInfo,

		authService: authService,

		// telemetry
		instr:        instr,
		promRegistry: promRegistry,
	}

	return s, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	authHandler := auth.NewHandler(s.authService, s.instr)
	r.HandleFunc("/api/auth/register", authHandler.HandleRegister).Methods("POST", "OPTIONS").Name("register")
	r.HandleFunc("/api/auth/login", authHandler.HandleLogin).Methods("POST", "OPTIONS").Name("login")
	r.HandleFunc("/api/auth/refresh", authHandler.HandleRefresh).Methods("GET", "OPTIONS").Name("refresh-session")
	r.HandleFunc("/api/auth/logout", authHandler.HandleLogout).Methods("DELETE", "OPTIONS").Name("logout")
	r.HandleFunc("/api/auth/sessions", authHandler.HandleListSessions).Methods("GET", "OPTIONS").Name("list-sessions")
	r.HandleFunc("/api/auth/sessions/{id}", authHandler.HandleDeleteSession).Methods("DELETE", "OPTIONS").Name("remove-session")

	exercisesRepo := exercises.NewRepo(s.dbPool)
	targetsRepo := exercises.NewTargetsRepo(s.dbPool)
	exercisesHandler := exercises.NewHandler(exercisesRepo, targetsRepo)
	r.HandleFunc("/api/exercises", exercisesHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-exercise")
	r.HandleFunc("/api/exercises", exercisesHandler.HandleList).Methods("GET", "OPTIONS").Name("list-exercises")
	r.HandleFunc("/api/exercises/{id}", exercisesHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-exercise")
	r.HandleFunc("/api/exercises/{id}", exercisesHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("remove-exercise")
	r.HandleFunc("/api/targets", exercisesHandler.HandleListTargets).Methods("GET", "OPTIONS").Name("list-targets")

	workoutsService := workouts.NewService(workouts.NewRepo(s.dbPool), exercisesRepo)
	workoutsHandler := workouts.NewHandler(workoutsService, s.instr)
	r.HandleFunc("/api/workouts", workoutsHandler.HandleStart).Methods("POST", "OPTIONS").Name("start-workout")
	r.HandleFunc("/api/workouts", workoutsHandler.HandleListDone).Methods("GET", "OPTIONS").Name("list-workouts")
	r.HandleFunc("/api/workouts/current", workoutsHandler.HandleCurrent).Methods("GET", "OPTIONS").Name("current-workout")
	r.HandleFunc("/api/workouts/current", workoutsHandler.HandleFinishCurrent).Methods("PUT", "OPTIONS").Name("finish-workout")
	r.HandleFunc("/api/workouts/current/exercises", workoutsHandler.HandleAddExercise).Methods("POST", "OPTIONS").Name("add-workout-exercise")
	r.HandleFunc("/api/workouts/current/exercises/{exerciseWorkoutId}", workoutsHandler.HandleRemoveExercise).Methods("DELETE", "OPTIONS").Name("remove-workout-exercise")
	r.HandleFunc("/api/workouts/{id}", workoutsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("remove-workout")
	r.HandleFunc("/api/exercises/{id}/history", workoutsHandler.HandleExerciseHistory).Methods("GET", "OPTIONS").Name("exercise-history")
	r.HandleFunc("/api/sets", workoutsHandler.HandleAddSet).Methods("POST", "OPTIONS").Name("new-set")
	r.HandleFunc("/api/sets/{id}", workoutsHandler.HandleUpdateSet).Methods("PUT", "OPTIONS").Name("update-set")

	r.HandleFunc("/api/version", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte(s.versionInfo)); err != nil {
			log.Errorf("failed to write version response: %s", err)
		}
	}).Methods("GET").Name("version")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.authService)

	r.Use(middleware.PanicRecovery(s.instr))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.instr))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(_ context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.instr.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.instr.GaugeLifeSignal.Set(0)

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}
