package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dormduty/dormduty/internal/backup"
	"github.com/dormduty/dormduty/internal/clock"
	"github.com/dormduty/dormduty/internal/config"
	"github.com/dormduty/dormduty/internal/event"
	"github.com/dormduty/dormduty/internal/handler"
	"github.com/dormduty/dormduty/internal/middleware"
	"github.com/dormduty/dormduty/internal/permission"
	"github.com/dormduty/dormduty/internal/push"
	"github.com/dormduty/dormduty/internal/store"
	ws "github.com/dormduty/dormduty/internal/websocket"
	"github.com/dormduty/dormduty/internal/workflow"
)

// Server wires stores, workflows, and handlers together and owns the
// background services (event bridge, push notifier, reminder scheduler,
// backups).
type Server struct {
	db     *sql.DB
	logger *slog.Logger

	bus *event.Bus
	hub *ws.Hub

	sessions    *store.SessionStore
	memberships *store.MembershipStore
	rateLimiter *middleware.RateLimiter

	authH       *handler.AuthHandler
	roomH       *handler.RoomHandler
	choreH      *handler.ChoreHandler
	completionH *handler.CompletionHandler
	swapH       *handler.SwapHandler
	pushH       *handler.PushHandler

	notifier      *push.Notifier
	scheduler     *push.Scheduler
	backupManager *backup.Manager

	cancel context.CancelFunc
}

func New(cfg *config.Config, db *sql.DB, logger *slog.Logger) *Server {
	bus := event.NewBus(logger.With("component", "event"))
	hub := ws.NewHub(logger.With("component", "websocket"))
	clk := clock.System()

	users := store.NewUserStore(db)
	rooms := store.NewRoomStore(db)
	memberships := store.NewMembershipStore(db)
	chores := store.NewChoreStore(db)
	completions := store.NewCompletionStore(db)
	swaps := store.NewSwapStore(db)
	sessions := store.NewSessionStore(db)
	pushStore := store.NewPushStore(db)

	gate := permission.NewGate(memberships)

	choreWF := workflow.NewChoreWorkflow(chores, gate, bus, clk, logger.With("component", "chore"))
	completionWF := workflow.NewCompletionWorkflow(chores, completions, gate, bus, clk, logger.With("component", "completion"))
	swapWF := workflow.NewSwapWorkflow(chores, swaps, gate, bus, clk, logger.With("component", "swap"))

	var pushSvc *push.Service
	var notifier *push.Notifier
	var scheduler *push.Scheduler
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushLogger := logger.With("component", "push")
		pushSvc = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)
		notifier = push.NewNotifier(pushSvc, pushStore, memberships, chores, bus, pushLogger)
		scheduler = push.NewScheduler(pushSvc, pushStore, chores, memberships, clk, pushLogger)
	}

	backupMgr := backup.NewManager(backup.Config{
		Endpoint:      cfg.Backup.Endpoint,
		Bucket:        cfg.Backup.Bucket,
		Region:        cfg.Backup.Region,
		AccessKey:     cfg.Backup.AccessKey,
		SecretKey:     cfg.Backup.SecretKey,
		Prefix:        cfg.Backup.Prefix,
		DBPath:        cfg.DBPath,
		Interval:      cfg.Backup.Interval,
		RetentionDays: cfg.Backup.RetentionDays,
	}, db, logger.With("component", "backup"))

	return &Server{
		db:            db,
		logger:        logger,
		bus:           bus,
		hub:           hub,
		sessions:      sessions,
		memberships:   memberships,
		rateLimiter:   middleware.NewRateLimiter(),
		authH:         handler.NewAuthHandler(users, sessions, cfg.SecureCookie, logger.With("component", "auth")),
		roomH:         handler.NewRoomHandler(rooms, memberships, logger.With("component", "room")),
		choreH:        handler.NewChoreHandler(choreWF, chores, memberships, logger.With("component", "chore_handler")),
		completionH:   handler.NewCompletionHandler(completionWF, completions, chores, memberships, logger.With("component", "completion_handler")),
		swapH:         handler.NewSwapHandler(swapWF, swaps, chores, memberships, logger.With("component", "swap_handler")),
		pushH:         handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		notifier:      notifier,
		scheduler:     scheduler,
		backupManager: backupMgr,
	}
}

// Start launches the background services. Call Stop to shut them down.
func (s *Server) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go ws.Bridge(ctx, s.bus, s.hub)
	if s.notifier != nil {
		go s.notifier.Run(ctx)
	}
	if s.scheduler != nil {
		s.scheduler.Start(ctx)
	}
	s.backupManager.Start(ctx)

	go s.cleanupLoop(ctx)
}

// Stop shuts down the background services started by Start.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.backupManager.Stop()
}

// cleanupLoop periodically deletes expired sessions and stale rate limit
// buckets.
func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.sessions.DeleteExpired(); err != nil {
				s.logger.Error("session cleanup", "error", err)
			} else if n > 0 {
				s.logger.Debug("expired sessions deleted", "count", n)
			}
			s.rateLimiter.Cleanup()
		}
	}
}

func (s *Server) Router() http.Handler {
	outer := http.NewServeMux()

	// Public routes
	outer.HandleFunc("POST /api/auth/register", s.rateLimited(s.authH.Register))
	outer.HandleFunc("POST /api/auth/login", s.rateLimited(s.authH.Login))
	outer.HandleFunc("GET /health", s.health)

	// Everything else requires a session
	protected := http.NewServeMux()
	s.registerProtectedRoutes(protected)

	requireAuth := middleware.RequireAuth(s.sessions)
	outer.Handle("/", requireAuth(protected))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outer)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Rooms and membership
	mux.HandleFunc("POST /api/rooms", s.roomH.Create)
	mux.HandleFunc("GET /api/rooms", s.roomH.List)
	mux.HandleFunc("POST /api/rooms/join", s.roomH.Join)
	mux.HandleFunc("GET /api/rooms/{id}", s.roomH.Get)
	mux.HandleFunc("GET /api/rooms/{id}/members", s.roomH.Members)
	mux.HandleFunc("PUT /api/rooms/{id}/members/{memberID}/role", s.roomH.UpdateMemberRole)

	// Chores
	mux.HandleFunc("POST /api/rooms/{id}/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/rooms/{id}/chores", s.choreH.List)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)

	// Completions and verification
	mux.HandleFunc("POST /api/chores/{id}/complete", s.completionH.Submit)
	mux.HandleFunc("GET /api/chores/{id}/completions", s.completionH.History)
	mux.HandleFunc("GET /api/rooms/{id}/completions/pending", s.completionH.ListPending)
	mux.HandleFunc("POST /api/completions/{id}/verify", s.completionH.Verify)

	// Swaps
	mux.HandleFunc("POST /api/chores/{id}/swaps", s.swapH.Request)
	mux.HandleFunc("GET /api/chores/{id}/swaps", s.swapH.ListByChore)
	mux.HandleFunc("GET /api/rooms/{id}/swaps", s.swapH.Inbox)
	mux.HandleFunc("POST /api/swaps/{id}/respond", s.swapH.Respond)
	mux.HandleFunc("POST /api/swaps/{id}/cancel", s.swapH.Cancel)

	// Push notifications
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.List)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/test", s.pushH.Test)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handle(s.hub, s.memberships, s.logger.With("component", "websocket")))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
