package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/searchlab/internal/auth/store"
	"github.com/aussiebroadwan/searchlab/pkg/authsdk"
	"github.com/aussiebroadwan/searchlab/pkg/httpx"
	"github.com/aussiebroadwan/searchlab/pkg/jwtx"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	Started time.Time
	Version string
	Store   store.Store
	Codec   *jwtx.Codec
}

func (h *HealthHandler) response(status string) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(h.Started).Round(time.Second).String(),
		Version: h.Version,
	}
}

// HandleLivez godoc
//
//	@Summary		Liveness Check Endpoint
//	@Description	Returns 200 while the process is serving requests. Dependencies are not checked.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func (h *HealthHandler) HandleLivez(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.response("ok"))
}

// HandleReadyz godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Checks the database connection and round-trips a probe token through the signer
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func (h *HealthHandler) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := &authsdk.HealthChecks{
		Database: checkResult(h.Store.Ping(r.Context())),
		Signer:   checkResult(probeSigner(h.Codec)),
	}

	resp := h.response("ok")
	resp.Checks = checks
	code := http.StatusOK
	if checks.Database != "ok" || checks.Signer != "ok" {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, code, resp)
}

func checkResult(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

var errNoCodec = errors.New("token codec not configured")

// probeSigner mints and verifies a throwaway access token.
func probeSigner(codec *jwtx.Codec) error {
	if codec == nil {
		return errNoCodec
	}
	token, _, err := codec.MintAccess("readyz", nil)
	if err != nil {
		return err
	}
	_, err = codec.Verify(token)
	return err
}
