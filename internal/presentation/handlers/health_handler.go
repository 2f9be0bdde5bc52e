package handlers

import (
	"math/big"
	"net/http"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	ChainID string `json:"chainId,omitempty"`
}

// HealthHandler reports liveness plus the chain the server is wired to.
type HealthHandler struct {
	version string
	chainID string
}

func NewHealthHandler(version string, chainID *big.Int) *HealthHandler {
	h := &HealthHandler{version: version}
	if chainID != nil {
		h.chainID = chainID.String()
	}
	return h
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
		ChainID: h.chainID,
	})
}
