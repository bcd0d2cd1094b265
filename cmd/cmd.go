package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trip-plan-backend/internal/config"
	"trip-plan-backend/internal/gateway"
	"trip-plan-backend/internal/handlers"
	"trip-plan-backend/internal/identity"
	"trip-plan-backend/internal/middleware"
	"trip-plan-backend/internal/rate"
	"trip-plan-backend/internal/repository"
	"trip-plan-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const sweepInterval = 10 * time.Minute

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Connect to the rate-limit counter store
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping redis")
	}
	log.Info().Msg("Redis connection established")

	// Initialize repositories
	planRepo := repository.NewPlanRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	itemRepo := repository.NewItemRepository(db)
	codeRepo := repository.NewVerificationCodeRepository(db, cfg.Verification.MaxAttempts)
	sessionRepo := repository.NewGuestSessionRepository(db)

	// Initialize external collaborators
	verifier := identity.NewVerifier(cfg.Identity.KeysURL, cfg.Identity.Issuer, cfg.Identity.Audience)
	smsClient := gateway.NewClient(cfg.Gateway.URL, cfg.Gateway.APIKey, cfg.Gateway.SenderID)
	limiter := rate.NewLimiter(rdb, cfg.Verification.MaxCodeRequestsPerHour, cfg.Verification.MaxVerifyPerIPPerMin)

	// Initialize services
	sessionService := services.NewSessionService(sessionRepo, participantRepo, cfg.Verification.SessionTTL())
	verificationService := services.NewVerificationService(
		participantRepo, codeRepo, sessionService, limiter, smsClient,
		cfg.Verification.CodeTTL(), cfg.Verification.MaxAttempts,
	)
	claimService := services.NewClaimService(participantRepo)
	planService := services.NewPlanService(planRepo, participantRepo, itemRepo)
	accessService := services.NewAccessService(
		verifier, planRepo, participantRepo, profileRepo, sessionService, cfg.Legacy.SharedSecret,
	)

	// Initialize handlers
	verificationHandler := handlers.NewVerificationHandler(verificationService, planService, limiter)
	guestHandler := handlers.NewGuestHandler(planService, sessionService)
	planHandler := handlers.NewPlanHandler(planService, claimService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	authorize := middleware.Authorize(accessService)
	requireSubject := middleware.RequireSubject(accessService)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Verification bootstrap (invite token in path)
		r.Route("/invites/{invite_token}", func(r chi.Router) {
			r.Post("/code", verificationHandler.RequestCode)
			r.Post("/verify", verificationHandler.VerifyCode)
			r.With(authorize).Get("/", verificationHandler.Landing)
		})

		// Guest session routes
		r.Group(func(r chi.Router) {
			r.Use(authorize)
			r.Post("/guest/onboarding", guestHandler.SubmitOnboarding)
			r.Get("/guest/plan", guestHandler.GuestView)
		})
		r.Delete("/guest/session", guestHandler.Logout)

		// Identity-only routes
		r.Group(func(r chi.Router) {
			r.Use(requireSubject)
			r.Post("/plans", planHandler.CreatePlan)
			r.Post("/plans/{plan_id}/claim/{invite_token}", planHandler.Claim)
		})

		// Plan routes resolved per request
		r.Route("/plans/{plan_id}", func(r chi.Router) {
			r.Use(authorize)
			r.Get("/", planHandler.GetPlan)
			r.Delete("/", planHandler.DeletePlan)
			r.Get("/participants", planHandler.ListParticipants)
			r.Post("/participants", planHandler.AddParticipant)
			r.Patch("/participants/{participant_id}", planHandler.UpdateParticipant)
			r.Post("/items", planHandler.CreateItem)
			r.Patch("/items/{item_id}", planHandler.UpdateItem)
		})
	})

	// Periodic expiry sweep for sessions and codes
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go runSweep(sweepCtx, sessionService, verificationService)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// runSweep periodically removes expired sessions and codes. Expired rows are
// already logically invalid; the sweep only reclaims space.
func runSweep(ctx context.Context, sessions *services.SessionService, verification *services.VerificationService) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := sessions.RevokeExpired(ctx); err != nil {
				log.Warn().Err(err).Msg("Session sweep failed")
			} else if n > 0 {
				log.Debug().Int64("removed", n).Msg("Expired sessions removed")
			}
			if n, err := verification.SweepExpired(ctx); err != nil {
				log.Warn().Err(err).Msg("Code sweep failed")
			} else if n > 0 {
				log.Debug().Int64("removed", n).Msg("Expired codes removed")
			}
		}
	}
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Guest-Session, X-Service-Secret")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
