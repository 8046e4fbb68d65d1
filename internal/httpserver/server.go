package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fdg312/incident-hub/internal/auth"
	"github.com/fdg312/incident-hub/internal/blob"
	"github.com/fdg312/incident-hub/internal/capture"
	"github.com/fdg312/incident-hub/internal/config"
	"github.com/fdg312/incident-hub/internal/drafts"
	"github.com/fdg312/incident-hub/internal/geo"
	"github.com/fdg312/incident-hub/internal/mailer"
	"github.com/fdg312/incident-hub/internal/onboarding"
	"github.com/fdg312/incident-hub/internal/reportdraft"
	"github.com/fdg312/incident-hub/internal/reports"
	"github.com/fdg312/incident-hub/internal/storage"
	"github.com/fdg312/incident-hub/internal/storage/memory"
	"github.com/fdg312/incident-hub/internal/storage/postgres"
	"github.com/fdg312/incident-hub/internal/storage/sqlite"
)

// Server представляет HTTP сервер
type Server struct {
	config         *config.Config
	mux            *http.ServeMux
	storage        storage.Storage
	storageKind    string
	authMiddleware *auth.Middleware
}

// New создаёт новый HTTP сервер
func New(cfg *config.Config) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}

	// Инициализируем storage
	s.initStorage()

	// Регистрируем маршруты
	s.routes()
	return s
}

// StorageKind returns memory, sqlite or postgres.
func (s *Server) StorageKind() string {
	return s.storageKind
}

// initStorage инициализирует storage: Postgres, SQLite или Memory
func (s *Server) initStorage() {
	if s.config.DatabaseURL != "" {
		log.Println("INFO storage: connecting to PostgreSQL...")
		pgStorage, err := postgres.New(context.Background(), s.config.DatabaseURL)
		if err == nil {
			log.Println("INFO storage: PostgreSQL connected")
			s.storage, s.storageKind = pgStorage, "postgres"
			return
		}
		log.Printf("WARN storage: postgres_failed err=%v, fallback=memory", err)
	} else if s.config.SQLitePath != "" {
		sqliteStorage, err := sqlite.New(s.config.SQLitePath)
		if err == nil {
			log.Printf("INFO storage: sqlite path=%s", s.config.SQLitePath)
			s.storage, s.storageKind = sqliteStorage, "sqlite"
			return
		}
		log.Printf("WARN storage: sqlite_failed err=%v, fallback=memory", err)
	}

	log.Println("INFO storage: using in-memory storage")
	s.storage, s.storageKind = memory.New(), "memory"
}

// routes регистрирует маршруты
func (s *Server) routes() {
	// Health check (no auth required)
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	// Onboarding content (no auth required)
	s.mux.HandleFunc("GET /v1/onboarding", onboarding.HandleGet)

	// Auth API
	sender, err := mailer.NewSenderFromConfig(s.config, log.Default())
	if err != nil {
		log.Printf("WARN mailer: init_failed err=%v, fallback=local", err)
		sender = mailer.NewLocalSender(log.Default())
	}
	authService := auth.NewService(s.config, s.storage.GetAccountsStorage()).WithMailer(sender)
	if s.config.SeedDemoAccount {
		if err := authService.SeedDemoAccount(context.Background()); err != nil {
			log.Printf("WARN auth: seed_demo_failed err=%v", err)
		} else {
			log.Printf("INFO auth: demo account ready email=%s", auth.DemoEmail)
		}
	}
	authHandler := auth.NewHandlers(authService)
	s.authMiddleware = auth.NewMiddleware(s.config, authService)

	s.mux.HandleFunc("POST /v1/auth/signin", authHandler.HandleSignIn)
	s.mux.HandleFunc("POST /v1/auth/signup", authHandler.HandleSignUp)
	s.mux.HandleFunc("POST /v1/auth/forgot-password", authHandler.HandleForgotPassword)
	s.mux.HandleFunc("GET /v1/auth/me", authHandler.HandleMe)

	// Reports API
	receiptsStore, receiptsMode := s.initBlobStores()
	reportsService := reports.NewService(
		s.storage.GetReportsStorage(),
		receiptsStore,
		receiptsMode,
		s.config.Blob.S3.PresignTTLSeconds,
		s.config.Blob.S3.PublicBaseURL,
		s.config.Blob.S3.PreferPublicURL,
	).WithLogger(log.Default())
	reportsHandler := reports.NewHandlers(reportsService)

	// GET /v1/reports - list submitted reports
	s.mux.HandleFunc("GET /v1/reports", reportsHandler.HandleList)

	// GET /v1/reports/{id} - get report
	s.mux.HandleFunc("GET /v1/reports/{id}", reportsHandler.HandleGet)

	// GET /v1/reports/{id}/receipt - download receipt
	s.mux.HandleFunc("GET /v1/reports/{id}/receipt", reportsHandler.HandleReceipt)

	// Draft API
	locationProvider := geo.NewMockProvider(geo.MockConfig{
		Latitude:  s.config.MockLatitude,
		Longitude: s.config.MockLongitude,
		Address:   s.config.MockAddress,
	})
	locator := capture.NewJitterLocator(
		s.config.MockLatitude,
		s.config.MockLongitude,
		s.config.CaptureEXIFProbability,
		uint64(time.Now().UnixNano()),
	)
	draftsService := drafts.NewService(reportsService, capture.NewMockSource(locator).WithGeocoder(locationProvider), locationProvider, drafts.Options{
		Limits: drafts.Limits{
			TitleMax:       s.config.DraftTitleMax,
			DescriptionMax: s.config.DraftDescriptionMax,
			MaxPhotos:      s.config.DraftMaxPhotos,
		},
		LocationTimeout: time.Duration(s.config.LocationTimeoutSeconds) * time.Second,
		LocateOnStart:   true,
		IDs:             reportdraft.UUIDGenerator{},
		Clock:           reportdraft.SystemClock{},
		Logger:          log.Default(),
	})
	draftsHandler := drafts.NewHandlers(draftsService)

	s.mux.HandleFunc("GET /v1/draft", draftsHandler.HandleGet)
	s.mux.HandleFunc("DELETE /v1/draft", draftsHandler.HandleReset)
	s.mux.HandleFunc("PUT /v1/draft/title", draftsHandler.HandleSetTitle)
	s.mux.HandleFunc("PUT /v1/draft/description", draftsHandler.HandleSetDescription)
	s.mux.HandleFunc("POST /v1/draft/photos", draftsHandler.HandleAddPhoto)
	s.mux.HandleFunc("POST /v1/draft/photos/capture", draftsHandler.HandleCapture)
	s.mux.HandleFunc("DELETE /v1/draft/photos/{index}", draftsHandler.HandleRemovePhoto)
	s.mux.HandleFunc("PUT /v1/draft/location", draftsHandler.HandleSetLocation)
	s.mux.HandleFunc("POST /v1/draft/location/refresh", draftsHandler.HandleRefreshLocation)
	s.mux.HandleFunc("GET /v1/draft/validate", draftsHandler.HandleValidate)
	s.mux.HandleFunc("POST /v1/draft/submit", draftsHandler.HandleSubmit)
}

// initBlobStores initializes the receipts blob store.
// Receipts follow BLOB_MODE unless RECEIPTS_MODE overrides it.
func (s *Server) initBlobStores() (blob.Store, string) {
	receiptsCfg := s.config.Blob
	receiptsCfg.Mode = s.config.Blob.EffectiveReceiptsMode()
	if s.config.Blob.ReceiptsModeSet && receiptsCfg.Mode != s.config.Blob.Mode {
		log.Printf("INFO blob: initializing receipts store (RECEIPTS_MODE=%s, override from BLOB_MODE=%s)", receiptsCfg.Mode, s.config.Blob.Mode)
	} else {
		log.Printf("INFO blob: initializing receipts store (BLOB_MODE=%s)", receiptsCfg.Mode)
	}

	store, mode, err := blob.NewBlobStore(context.Background(), receiptsCfg, log.Default())
	if err != nil {
		log.Fatalf("FATAL blob: failed to initialize receipts store: %v", err)
	}
	log.Printf("INFO blob: receipts blob mode: %s", mode)
	return store, mode
}

// handleHealthz возвращает статус сервера
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"storage": s.storageKind,
	})
}

// Handler returns the router wrapped in the middleware chain
// (outermost first): CORS → Rate Limit → Auth → Router.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	if s.authMiddleware != nil {
		if s.config.AuthRequired {
			handler = s.authMiddleware.RequireAuth(handler)
		} else {
			handler = s.authMiddleware.OptionalAuth(handler)
		}
	}
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)
	return handler
}

// Start запускает HTTP сервер
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	log.Printf("Сервер запущен на http://localhost%s\n", addr)
	log.Printf("Health check: http://localhost%s/healthz\n", addr)
	log.Printf("Draft API: http://localhost%s/v1/draft\n", addr)

	return http.ListenAndServe(addr, s.Handler())
}

// Close закрывает storage и освобождает ресурсы
func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
