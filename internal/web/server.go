// Package web serves the dashboard to browsers: the page, server-rendered
// fragments, the view and action endpoints, and a websocket that pushes
// fragments as feeds change.
package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aegisai/aegisdash/internal/actions"
	"github.com/aegisai/aegisdash/internal/console"
	"github.com/aegisai/aegisdash/internal/render"
	"github.com/aegisai/aegisdash/internal/view"
	"github.com/aegisai/aegisdash/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/gofiber/websocket/v2"
)

// SessionCookie names the viewer session cookie
const SessionCookie = "aegis_session"

//go:embed views/*.html
var viewsFS embed.FS

// Server represents the web dashboard server
type Server struct {
	app     *fiber.App
	console *console.Console
	logger  *slog.Logger
	hub     *Hub

	updates     chan types.Endpoint
	unsubscribe func()
	cancel      context.CancelFunc
	done        chan struct{}
	stopOnce    sync.Once
}

// NewServer creates the dashboard server and starts pushing updates
func NewServer(c *console.Console) *Server {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(views), ".html")

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Views:                 engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	logger := c.Logger().With(slog.String("component", "web"))

	s := &Server{
		app:     app,
		console: c,
		logger:  logger,
		hub:     newHub(c.Metrics(), logger),
		updates: make(chan types.Endpoint, 64),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	s.unsubscribe = c.Store().Subscribe(func(ep types.Endpoint) {
		select {
		case s.updates <- ep:
		default:
		}
	})

	s.setupRoutes(ctx)
	go s.hub.run()
	go s.pushUpdates(ctx)

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(ctx context.Context) {
	cfg := s.console.Config().Server

	s.app.Use(recover.New())
	s.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "0",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' https: data:; connect-src 'self' ws: wss:",
	}))
	if cfg.EnableCORS {
		s.app.Use(cors.New())
	}

	s.app.Get("/healthz", s.handleHealth)
	if m := s.console.Metrics(); m != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	// Static assets (embedded)
	s.app.Get("/dashboard.js", s.handleDashboardJS)
	s.app.Get("/dashboard.css", s.handleDashboardCSS)

	s.app.Get("/", s.handleIndex)
	s.app.Get("/fragments/:name", s.handleFragment)
	s.app.Post("/views/:name", s.handleView)

	act := s.app.Group("/actions", RateLimiter(ctx, cfg.ActionRate, cfg.ActionWindow))
	act.Post("/block", s.handleBlock)
	act.Post("/block/confirm", s.handleConfirm)
	act.Post("/block/cancel", s.handleCancel)
	act.Post("/unblock", s.handleUnblock)

	// WebSocket for real-time updates
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.handleWebSocket))
}

// session returns the viewer session, issuing a cookie for new viewers
func (s *Server) session(c *fiber.Ctx) *console.Session {
	sess, created := s.console.Sessions().GetOrCreate(c.Cookies(SessionCookie))
	if created {
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteStrictMode,
			Secure:   c.Protocol() == "https",
		})
	}
	return sess
}

// existingSession returns the viewer's session without creating one
func (s *Server) existingSession(c *fiber.Ctx) (*console.Session, bool) {
	id := c.Cookies(SessionCookie)
	if id == "" {
		return nil, false
	}
	return s.console.Sessions().Get(id)
}

// handleIndex renders the full page for the viewer's active view
func (s *Server) handleIndex(c *fiber.Ctx) error {
	sess := s.session(c)

	frags, err := s.console.Fragments()
	if err != nil {
		return err
	}
	byTarget := make(map[string]console.Fragment, len(frags)+1)
	for _, f := range frags {
		byTarget[f.Target] = f
	}
	modal, err := s.console.Fragment(render.FragModal, sess)
	if err != nil {
		return err
	}
	byTarget[render.FragModal] = modal

	return c.Render("index", fiber.Map{
		"Active":    sess.Router.Active(),
		"Panels":    sess.Router.Panels(),
		"Fragments": byTarget,
	})
}

// handleFragment returns one fragment as JSON
func (s *Server) handleFragment(c *fiber.Ctx) error {
	sess, _ := s.existingSession(c)

	f, err := s.console.Fragment(c.Params("name"), sess)
	if errors.Is(err, console.ErrUnknownFragment) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return err
	}
	return c.JSON(f)
}

// handleView switches the viewer's active view
func (s *Server) handleView(c *fiber.Ctx) error {
	v, err := view.Parse(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	// Viewers without a session get a throwaway router
	var router *view.Router
	if sess, ok := s.existingSession(c); ok {
		router = sess.Router
	} else {
		router = view.NewRouter(s.console.Scheduler())
	}

	if err := router.Navigate(v); err != nil {
		s.logger.Warn("view refresh failed", slog.String("view", string(v)), slog.Any("error", err))
	}

	return c.JSON(fiber.Map{
		"active": router.Active(),
		"panels": router.Panels(),
	})
}

// handleBlock applies the block policy to the cached email the viewer picked
func (s *Server) handleBlock(c *fiber.Ctx) error {
	var req struct {
		MessageID string `json:"message_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	// The policy runs on the feed's score, never on the posted one.
	target, ok := s.lookupEmail(req.MessageID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown message: " + req.MessageID})
	}
	sess := s.session(c)

	out, err := s.console.Actions().RequestBlock(c.UserContext(), sess.Gate, target)
	switch {
	case errors.Is(err, actions.ErrBlockRejected):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, actions.ErrNoSender):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return err
	}

	if out.Modal != nil {
		modal, err := s.console.Fragment(render.FragModal, sess)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"modal": modal})
	}
	return c.JSON(fiber.Map{"ack": out.Ack})
}

// lookupEmail finds the cached email with the given id
func (s *Server) lookupEmail(id string) (actions.Target, bool) {
	if id == "" {
		return actions.Target{}, false
	}
	for _, e := range s.console.Store().Snapshot().Emails {
		if e.ID == id {
			return actions.TargetFromEmail(e), true
		}
	}
	return actions.Target{}, false
}

// handleConfirm sends the pending block
func (s *Server) handleConfirm(c *fiber.Ctx) error {
	sess, ok := s.existingSession(c)
	if !ok {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": actions.ErrNoPendingBlock.Error()})
	}

	var req struct {
		ID string `json:"id"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	ack, err := s.console.Actions().ConfirmBlock(c.UserContext(), sess.Gate, req.ID)
	if errors.Is(err, actions.ErrNoPendingBlock) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"ack":   ack,
		"modal": console.Fragment{Target: render.FragModal},
	})
}

// handleCancel closes the modal without blocking
func (s *Server) handleCancel(c *fiber.Ctx) error {
	canceled := false
	if sess, ok := s.existingSession(c); ok {
		canceled = s.console.Actions().CancelBlock(sess.Gate)
	}
	return c.JSON(fiber.Map{
		"canceled": canceled,
		"modal":    console.Fragment{Target: render.FragModal},
	})
}

// handleUnblock removes a sender from the block list
func (s *Server) handleUnblock(c *fiber.Ctx) error {
	var req types.UnblockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ack, err := s.console.Actions().Unblock(c.UserContext(), req.SenderEmail)
	if errors.Is(err, actions.ErrNoSender) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ack": ack})
}

// handleHealth reports liveness and poll counters
func (s *Server) handleHealth(c *fiber.Ctx) error {
	stats := s.console.Stats()

	polls := make(fiber.Map, len(stats.Polls))
	for ep, st := range stats.Polls {
		polls[string(ep)] = fiber.Map{
			"applied": st.Applied,
			"stale":   st.Stale,
			"failed":  st.Failed,
		}
	}

	return c.JSON(fiber.Map{
		"status":    "ok",
		"backend":   s.console.BaseURL(),
		"sessions":  stats.Sessions,
		"wsClients": s.hub.Clients(),
		"polls":     polls,
	})
}

// handleWebSocket sends the current fragments, then streams updates
func (s *Server) handleWebSocket(conn *websocket.Conn) {
	frags, err := s.console.Fragments()
	if err != nil {
		s.logger.Warn("initial fragments failed", slog.Any("error", err))
	}

	initial := make([][]byte, 0, len(frags))
	for _, f := range frags {
		initial = append(initial, encodeFragment(f))
	}
	s.hub.serve(conn, initial)
}

// pushUpdates re-renders the fragments affected by each store update
func (s *Server) pushUpdates(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case ep := <-s.updates:
			for _, name := range console.FragmentsFor(ep) {
				f, err := s.console.Fragment(name, nil)
				if err != nil {
					s.logger.Warn("render failed", slog.String("fragment", name), slog.Any("error", err))
					continue
				}
				s.hub.publish(encodeFragment(f))
			}
		}
	}
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	s.logger.Info("web dashboard starting", slog.String("addr", addr))
	return s.app.Listen(addr)
}

// Serve accepts connections on ln
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops pushing updates and closes the server
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.unsubscribe()
		s.cancel()
		<-s.done
		s.hub.close()

		if deadline, ok := ctx.Deadline(); ok {
			err = s.app.ShutdownWithTimeout(time.Until(deadline))
		} else {
			err = s.app.Shutdown()
		}
	})
	return err
}
