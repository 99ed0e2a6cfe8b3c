package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/fula-project/gateway/pkg/address"
	"github.com/fula-project/gateway/pkg/blockstore"
	"github.com/fula-project/gateway/pkg/bucket"
)

// HealthCheckTimeout bounds how long a /health/ready probe waits on the
// backing stores before reporting unhealthy.
const HealthCheckTimeout = 5 * time.Second

// HealthHandler serves the gateway's liveness/readiness probes.
type HealthHandler struct {
	store blockstore.BlockStore
	mgr   *bucket.Manager
}

// NewHealthHandler builds a HealthHandler over the gateway's block store
// and bucket manager.
func NewHealthHandler(store blockstore.BlockStore, mgr *bucket.Manager) *HealthHandler {
	return &HealthHandler{store: store, mgr: mgr}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{"service": "fula-gateway"}))
}

// Readiness handles GET /health/ready: the block store must answer a
// cheap HasBlock probe and the bucket registry must list successfully.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	probe := address.OfRaw(nil)
	if _, err := h.store.HasBlock(ctx, probe); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("block store unreachable: "+err.Error()))
		return
	}

	if _, err := h.mgr.ListBuckets(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("bucket registry unreachable: "+err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, healthyResponse(nil))
}
