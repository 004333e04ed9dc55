package server

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ttacon/chalk"

	"github.com/BitcoinSchema/go-zk-attest/attestation"
	"github.com/BitcoinSchema/go-zk-attest/datasource"
	"github.com/BitcoinSchema/go-zk-attest/ledger"
	"github.com/BitcoinSchema/go-zk-attest/metrics"
	"github.com/BitcoinSchema/go-zk-attest/session"
	"github.com/BitcoinSchema/go-zk-attest/types"
)

const addrLocal = "addr"

// AnchorSource returns the ledger record behind an attestation id.
type AnchorSource interface {
	Record(ctx context.Context, id string) (*ledger.Record, error)
}

// Server is the HTTP face of the attestation service.
type Server struct {
	app          *fiber.App
	attestations *attestation.Service
	connectors   datasource.Registry
	sessions     *session.Manager
	anchors      AnchorSource
}

// New builds the fiber app and its routes.
func New(attestations *attestation.Service, connectors datasource.Registry, sessions *session.Manager, anchors AnchorSource) *Server {
	s := &Server{
		app:          fiber.New(fiber.Config{DisableStartupMessage: true}),
		attestations: attestations,
		connectors:   connectors,
		sessions:     sessions,
		anchors:      anchors,
	}

	// Enable CORS for all routes from any origin
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	s.app.Use(logger.New())

	s.app.Get("/", rootHandler)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	v1 := s.app.Group("/v1")
	v1.Post("/session/challenge", s.challengeHandler)
	v1.Post("/session/verify", s.sessionHandler)

	v1.Post("/attestation/create", s.requireSession, s.createAttestationHandler)
	v1.Post("/attestation/verify", s.requireSession, s.verifyAttestationHandler)
	v1.Post("/attestation/get", s.getAttestationHandler)
	v1.Post("/attestation/anchor", s.anchorHandler)
	v1.Get("/attestations", s.optionalSession, s.listAttestationsHandler)
	v1.Get("/attestations/stats", s.optionalSession, s.statsHandler)

	v1.Get("/datasource/:type/:userId", s.dataSourceHandler)

	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on port until Shutdown.
func (s *Server) Listen(port string) error {
	addr := fmt.Sprintf(":%s", port)
	log.Printf("%s[INFO]: listening on %s%s", chalk.Green, addr, chalk.Reset)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// @Summary Get root endpoint
// @Description Returns a hello world message
// @Tags root
// @Produce json
// @Success 200 {string} string "Hello, World 👋!"
// @Router / [get]
func rootHandler(c *fiber.Ctx) error {
	return c.SendString("Hello, World 👋!")
}

func (s *Server) requireSession(c *fiber.Ctx) error {
	addr, err := s.bearer(c)
	if err != nil || addr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(Response{
			Status:  "ERROR",
			Message: "Wallet session required",
		})
	}
	c.Locals(addrLocal, addr)
	return c.Next()
}

func (s *Server) optionalSession(c *fiber.Ctx) error {
	if addr, err := s.bearer(c); err == nil && addr != "" {
		c.Locals(addrLocal, addr)
	}
	return c.Next()
}

func (s *Server) bearer(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return "", session.ErrInvalidToken
	}
	return s.sessions.Parse(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
}

func sessionAddress(c *fiber.Ctx) string {
	addr, _ := c.Locals(addrLocal).(string)
	return addr
}

// fail reports err once and maps it to a status code.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case attestation.IsDataSourceVerificationFailed(err):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, attestation.ErrNotFound), errors.Is(err, ledger.ErrClaimNotFound),
		errors.Is(err, datasource.ErrProfileNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, attestation.ErrInvalidType), errors.Is(err, attestation.ErrInvalidParams),
		errors.Is(err, session.ErrInvalidAddress), errors.Is(err, session.ErrBadSignature):
		status = fiber.StatusBadRequest
	case errors.Is(err, datasource.ErrIntegrationUnavailable):
		status = fiber.StatusNotImplemented
	case errors.Is(err, datasource.ErrExternalVerificationFailed):
		status = fiber.StatusBadGateway
	case errors.Is(err, attestation.ErrAlreadyInProgress), errors.Is(err, ledger.ErrProofReplayed):
		status = fiber.StatusConflict
	case errors.Is(err, attestation.ErrNotConnected), errors.Is(err, session.ErrChallengeExpired),
		errors.Is(err, session.ErrSignerMismatched), errors.Is(err, session.ErrInvalidToken):
		status = fiber.StatusUnauthorized
	}

	if status >= fiber.StatusInternalServerError {
		log.Printf("%s[ERROR]: %s %s: %v%s", chalk.Red, c.Method(), c.Path(), err, chalk.Reset)
	} else {
		log.Printf("%s[WARN]: %s %s: %v%s", chalk.Yellow, c.Method(), c.Path(), err, chalk.Reset)
	}
	return c.Status(status).JSON(Response{
		Status:  "ERROR",
		Message: err.Error(),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(Response{
		Status:  "ERROR",
		Message: message,
	})
}

func ok(c *fiber.Ctx, result interface{}) error {
	return c.JSON(Response{
		Status: "OK",
		Result: result,
	})
}

// resolveType parses the :type route param.
func resolveType(tag string) (types.AttestationType, bool) {
	return types.ParseAttestationType(strings.ToLower(strings.TrimSpace(tag)))
}
