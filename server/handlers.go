package server

import (
	"encoding/hex"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// @Summary Request a sign-in challenge
// @Description Returns the message the wallet must sign with personal_sign
// @Tags session
// @Accept json
// @Produce json
// @Param request body ChallengeRequest true "Wallet address"
// @Success 200 {object} Response{result=ChallengeResponse}
// @Failure 400 {object} Response
// @Router /session/challenge [post]
func (s *Server) challengeHandler(c *fiber.Ctx) error {
	req := ChallengeRequest{}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	message, err := s.sessions.Challenge(c.UserContext(), req.Address)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, ChallengeResponse{Message: message})
}

// @Summary Complete sign-in
// @Description Verifies the signed challenge and returns a bearer token for the wallet
// @Tags session
// @Accept json
// @Produce json
// @Param request body SessionRequest true "Signed challenge"
// @Success 200 {object} Response{result=SessionResponse}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /session/verify [post]
func (s *Server) sessionHandler(c *fiber.Ctx) error {
	req := SessionRequest{}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	token, err := s.sessions.Verify(c.UserContext(), req.Address, req.Signature)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, SessionResponse{Token: token, Address: strings.ToLower(req.Address)})
}

// @Summary Create attestation
// @Description Verifies the claim with its data source, proves it and anchors it on the ledger
// @Tags attestation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAttestationRequest true "Attestation parameters"
// @Success 200 {object} Response{result=types.Attestation}
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Failure 422 {object} Response
// @Router /attestation/create [post]
func (s *Server) createAttestationHandler(c *fiber.Ctx) error {
	req := CreateAttestationRequest{}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	att, err := s.attestations.Create(c.UserContext(), sessionAddress(c), req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, att)
}

// @Summary Verify attestation
// @Description Asks the ledger to check the stored proof and settles the attestation status
// @Tags attestation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AttestationIDRequest true "Attestation id"
// @Success 200 {object} Response{result=types.Attestation}
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /attestation/verify [post]
func (s *Server) verifyAttestationHandler(c *fiber.Ctx) error {
	req := AttestationIDRequest{}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Id) == "" {
		return badRequest(c, "id is required")
	}
	att, err := s.attestations.Verify(c.UserContext(), strings.TrimSpace(req.Id))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, att)
}

// @Summary Get attestation
// @Description Get an attestation by its id
// @Tags attestation
// @Accept json
// @Produce json
// @Param request body AttestationIDRequest true "Attestation id"
// @Success 200 {object} Response{result=types.Attestation}
// @Failure 404 {object} Response
// @Router /attestation/get [post]
func (s *Server) getAttestationHandler(c *fiber.Ctx) error {
	req := AttestationIDRequest{}
	c.BodyParser(&req)
	att, err := s.attestations.Get(strings.TrimSpace(req.Id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(Response{
			Status:  "ERROR",
			Message: "Attestation could not be found",
		})
	}
	return ok(c, att)
}

// @Summary Get attestation anchor
// @Description The ledger record behind an attestation, with the raw anchor transaction
// @Tags attestation
// @Accept json
// @Produce json
// @Param request body AttestationIDRequest true "Attestation id"
// @Success 200 {object} Response{result=AnchorResponse}
// @Failure 404 {object} Response
// @Router /attestation/anchor [post]
func (s *Server) anchorHandler(c *fiber.Ctx) error {
	req := AttestationIDRequest{}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Id) == "" {
		return badRequest(c, "id is required")
	}
	if s.anchors == nil {
		return c.Status(fiber.StatusNotFound).JSON(Response{
			Status:  "ERROR",
			Message: "No ledger records available",
		})
	}
	rec, err := s.anchors.Record(c.UserContext(), strings.TrimSpace(req.Id))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, AnchorResponse{Record: *rec, RawTx: hex.EncodeToString(rec.RawTx)})
}

// @Summary List attestations
// @Description Attestations issued by or to an address, oldest first. Defaults to the session address.
// @Tags attestation
// @Produce json
// @Param address query string false "Wallet address"
// @Success 200 {object} Response{result=[]types.Attestation}
// @Router /attestations [get]
func (s *Server) listAttestationsHandler(c *fiber.Ctx) error {
	address := c.Query("address", sessionAddress(c))
	return ok(c, s.attestations.List(address))
}

// @Summary Attestation stats
// @Description Verified, pending, rejected and total counts for an address
// @Tags attestation
// @Produce json
// @Param address query string false "Wallet address"
// @Success 200 {object} Response{result=types.AttestationStats}
// @Router /attestations/stats [get]
func (s *Server) statsHandler(c *fiber.Ctx) error {
	address := c.Query("address", sessionAddress(c))
	return ok(c, s.attestations.Stats(address))
}

// @Summary Data source profile
// @Description Fetches a provider profile through the registered connector
// @Tags datasource
// @Produce json
// @Param type path string true "Attestation type"
// @Param userId path string true "Provider user id or username"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Failure 501 {object} Response
// @Router /datasource/{type}/{userId} [get]
func (s *Server) dataSourceHandler(c *fiber.Ctx) error {
	t, valid := resolveType(c.Params("type"))
	if !valid {
		return badRequest(c, "Unknown attestation type")
	}
	userID := strings.TrimSpace(c.Params("userId"))
	if userID == "" {
		return badRequest(c, "userId is required")
	}
	conn, found := s.connectors.Lookup(t)
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(Response{
			Status:  "ERROR",
			Message: "No data source for " + string(t),
		})
	}
	profile, err := conn.GetData(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, profile)
}
