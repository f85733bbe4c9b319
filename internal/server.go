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
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/2beens/trainingkarte/internal/auth"
	"github.com/2beens/trainingkarte/internal/config"
	"github.com/2beens/trainingkarte/internal/db"
	"github.com/2beens/trainingkarte/internal/evaluations"
	"github.com/2beens/trainingkarte/internal/feedback"
	"github.com/2beens/trainingkarte/internal/middleware"
	"github.com/2beens/trainingkarte/internal/physical"
	"github.com/2beens/trainingkarte/internal/telemetry/metrics"
	"github.com/2beens/trainingkarte/internal/telemetry/tracing"
	"github.com/2beens/trainingkarte/internal/trainings"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	dbPool *pgxpool.Pool

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	AdminUsername           string
	AdminPasswordHash       string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		DBUser:         params.Config.PostgresUser,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": "trainingkarte_db"},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})
	rdb.AddHook(redisotel.NewTracingHook())

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	authService := auth.NewAuthService(&auth.Admin{
		Username:     params.AdminUsername,
		PasswordHash: params.AdminPasswordHash,
	}, auth.DefaultTTL, rdb)
	go func() {
		for range time.Tick(time.Hour * 8) {
			authService.ScanAndClean(ctx)
		}
	}()

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "karte-backend")
	if err != nil {
		return nil, err
	}

	return &Server{
		config:      params.Config,
		dbPool:      dbPool,
		versionInfo: params.VersionInfo,

		redisClient:  rdb,
		authService:  authService,
		loginChecker: auth.NewLoginChecker(auth.DefaultTTL, rdb),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)

	authHandler := auth.NewHandler(s.authService, s.versionInfo)
	authHandler.SetupRoutes(r, reqRateLimiter, s.metricsManager, s.config.LoginRateLimitAllowedPerMin)

	trainingsCatalog := trainings.NewCachedRepo(trainings.NewRepo(s.dbPool))
	trainingsHandler := trainings.NewHandler(trainingsCatalog)
	r.HandleFunc("/trainings", trainingsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-trainings")
	r.HandleFunc("/trainings", trainingsHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-training")
	r.HandleFunc("/trainings/{id}", trainingsHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-training")
	r.HandleFunc("/trainings/{id}", trainingsHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-training")
	r.HandleFunc("/trainings/{id}", trainingsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-training")

	evaluationsHandler := evaluations.NewHandler(
		evaluations.NewRepo(s.dbPool),
		trainingsCatalog,
		s.metricsManager,
	)
	r.HandleFunc("/evaluations", evaluationsHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-evaluation")
	r.HandleFunc("/evaluations/{id}", evaluationsHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-evaluation")
	r.HandleFunc("/evaluations/{id}", evaluationsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-evaluation")
	r.HandleFunc("/evaluations/user/{userId}", evaluationsHandler.HandleListForUser).Methods("GET", "OPTIONS").Name("list-evaluations")
	r.HandleFunc("/karte/{userId}", evaluationsHandler.HandleKarte).Methods("GET", "OPTIONS").Name("karte")
	r.HandleFunc("/karte/{userId}/summary", evaluationsHandler.HandleSummary).Methods("GET", "OPTIONS").Name("karte-summary")

	physicalHandler := physical.NewHandler(physical.NewRepo(s.dbPool))
	r.HandleFunc("/physical", physicalHandler.HandleAddMeasurement).Methods("POST", "OPTIONS").Name("new-measurement")
	r.HandleFunc("/physical/{id}", physicalHandler.HandleDeleteMeasurement).Methods("DELETE", "OPTIONS").Name("delete-measurement")
	r.HandleFunc("/physical/reference", physicalHandler.HandleSetReference).Methods("PUT", "OPTIONS").Name("set-reference")
	r.HandleFunc("/physical/reference", physicalHandler.HandleGetReferences).Methods("GET", "OPTIONS").Name("get-references")
	r.HandleFunc("/physical/user/{userId}", physicalHandler.HandleListForUser).Methods("GET", "OPTIONS").Name("list-measurements")
	r.HandleFunc("/physical/profile/{userId}", physicalHandler.HandleProfile).Methods("GET", "OPTIONS").Name("physical-profile")

	feedbackService := feedback.NewService(
		feedback.NewRepo(s.dbPool),
		s.redisClient,
		s.metricsManager,
	)
	feedbackHandler := feedback.NewHandler(feedbackService)
	feedbackSubrouter := r.PathPrefix("/feedback").Subrouter()
	feedbackSubrouter.HandleFunc("/result/{id}/messages", feedbackHandler.HandleSend).Methods("POST", "OPTIONS").Name("send-message")
	feedbackSubrouter.HandleFunc("/result/{id}/messages", feedbackHandler.HandleThread).Methods("GET", "OPTIONS").Name("get-thread")
	feedbackSubrouter.HandleFunc("/message/{id}/read", feedbackHandler.HandleMarkRead).Methods("POST", "OPTIONS").Name("mark-read")
	feedbackSubrouter.HandleFunc("/unread/{userId}", feedbackHandler.HandleUnreadCount).Methods("GET", "OPTIONS").Name("unread-count")
	// the clients poll the unread count, keep the limit high enough for that
	feedbackSubrouter.Use(middleware.RateLimit(reqRateLimiter, "feedback", s.config.FeedbackRateLimitAllowedPerMin, s.metricsManager))

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) Serve(_ context.Context, host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
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

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

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

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
