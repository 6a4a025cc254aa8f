package inventory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"time"

	inv "github.com/appkins-org/openstack-inventory/pkg/inventory"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 30 * time.Second

// Handler serves the dynamic inventory over HTTP.
type Handler struct {
	Source  inv.Source
	Options inv.Options
}

// Routes sets up the HTTP routes for the inventory service
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.handleHealth).Methods("GET")
	r.HandleFunc("/inventory", h.handleInventory).Methods("GET")
	r.HandleFunc("/inventory/hosts/{name}", h.handleHost).Methods("GET")

	r.Use(h.loggingMiddleware)

	return r
}

// loggingMiddleware logs incoming requests
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeTextResponse(w, "ok")
}

// handleInventory handles requests to /inventory
func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	doc, err := inv.Build(r.Context(), h.Source, h.Options)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build inventory")
		http.Error(w, "Failed to build inventory", http.StatusBadGateway)
		return
	}
	h.writeJSONResponse(w, doc)
}

// handleHost handles requests to /inventory/hosts/{name}
func (h *Handler) handleHost(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	doc, err := inv.Build(r.Context(), h.Source, h.Options)
	if err != nil {
		log.Error().Err(err).Str("host", name).Msg("Failed to build inventory")
		http.Error(w, "Failed to build inventory", http.StatusBadGateway)
		return
	}

	vars, ok := doc.Meta.HostVars[name]
	if !ok {
		http.Error(w, "Host not found", http.StatusNotFound)
		return
	}
	h.writeJSONResponse(w, vars)
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, data any) {
	body, err := inv.Encode(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// writeTextResponse writes a plain text response
func (h *Handler) writeTextResponse(w http.ResponseWriter, data string) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(data))
}

// ListenAndServe listens on the TCP address addr and then calls Serve to
// handle requests on incoming connections.
func ListenAndServe(ctx context.Context, addr netip.AddrPort, h *http.Server) error {
	var lc net.ListenConfig
	conn, err := lc.Listen(ctx, "tcp", addr.String())
	if err != nil {
		return err
	}
	return Serve(ctx, conn, h)
}

// Serve accepts incoming connections on conn and serves them using h until
// ctx is cancelled, then shuts h down gracefully. It returns nil after a
// clean shutdown and closes conn.
func Serve(ctx context.Context, conn net.Listener, h *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.Serve(conn)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("Server exited")
	return nil
}
