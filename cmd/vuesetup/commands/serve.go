package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/vuesetup/pkg/config"
	"github.com/Sumatoshi-tech/vuesetup/pkg/convert"
	"github.com/Sumatoshi-tech/vuesetup/pkg/observability"
	"github.com/Sumatoshi-tech/vuesetup/pkg/textutil"
	"github.com/Sumatoshi-tech/vuesetup/pkg/tsast"
)

const shutdownGrace = 10 * time.Second

// ConvertRequest is the body of POST /api/convert.
type ConvertRequest struct {
	Code         string `json:"code"`
	Filename     string `json:"filename,omitempty"`
	Language     string `json:"language,omitempty"`
	Indent       string `json:"indent,omitempty"`
	ImportSource string `json:"import_source,omitempty"`
	RuntimeProps bool   `json:"runtime_props,omitempty"`
	Diff         bool   `json:"diff,omitempty"`
}

// ConvertResponse is the body returned by POST /api/convert.
type ConvertResponse struct {
	*convert.Result

	Diff  string `json:"diff,omitempty"`
	Error string `json:"error,omitempty"`
}

// InspectResponse is the body returned by POST /api/inspect.
type InspectResponse struct {
	Components []convert.ComponentReport `json:"components"`
	Error      string                    `json:"error,omitempty"`
}

func newServeCommand(global *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP conversion service",
		Long: `Start an HTTP server exposing the converter.

Endpoints:
  POST /api/convert   convert {"code": ..., "filename": ...}
  POST /api/inspect   classify members without rewriting
  GET  /healthz       liveness check
  GET  /metrics       Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			meterProvider, metricsHandler, err := observability.NewPrometheusMeterProvider()
			if err != nil {
				return err
			}

			rt, err := global.setup(cmd.ErrOrStderr(), observability.ModeServe, meterProvider.Meter("vuesetup"))
			if err != nil {
				return err
			}
			defer rt.close()

			if cmd.Flags().Changed("host") {
				rt.cfg.Server.Host = host
			}

			if cmd.Flags().Changed("port") {
				rt.cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, rt, metricsHandler)
		},
	}

	cmd.Flags().StringVar(&host, "host", config.DefaultServerHost, "address to listen on")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultServerPort, "port to listen on")

	return cmd
}

func serve(ctx context.Context, rt *env, metricsHandler http.Handler) error {
	addr := net.JoinHostPort(rt.cfg.Server.Host, strconv.Itoa(rt.cfg.Server.Port))
	logger := rt.providers.Logger

	srv := &http.Server{
		Addr:         addr,
		Handler:      newServerMux(rt, metricsHandler),
		ReadTimeout:  rt.cfg.Server.ReadTimeout,
		WriteTimeout: rt.cfg.Server.WriteTimeout,
		IdleTimeout:  rt.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("vuesetup server listening", "addr", addr)

		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	logger.Info("vuesetup server shutting down")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

// api serves the conversion endpoints.
type api struct {
	converter   *convert.Converter
	logger      *slog.Logger
	maxBodySize int64
}

// newServerMux creates the HTTP mux with all routes wrapped in tracing middleware.
func newServerMux(rt *env, metricsHandler http.Handler) http.Handler {
	a := &api{
		converter:   rt.converter,
		logger:      rt.providers.Logger,
		maxBodySize: config.Bytes(rt.cfg.Server.MaxBodySize),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/convert", a.handleConvert)
	mux.HandleFunc("POST /api/inspect", a.handleInspect)
	mux.HandleFunc("GET /healthz", handleHealth)

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return observability.HTTPMiddleware(rt.providers.Tracer, rt.red, mux)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (a *api) decode(w http.ResponseWriter, r *http.Request) (*ConvertRequest, int, error) {
	if a.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.maxBodySize)
	}

	var req ConvertRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, err
		}

		return nil, http.StatusBadRequest, fmt.Errorf("decode request: %w", err)
	}

	if req.Code == "" {
		return nil, http.StatusBadRequest, errEmptyCode
	}

	if req.Filename == "" {
		req.Filename = "component.tsx"
	}

	return &req, http.StatusOK, nil
}

var errEmptyCode = errors.New("code is required")

// converterFor copies the shared converter with the request overrides.
func (a *api) converterFor(req *ConvertRequest) (*convert.Converter, error) {
	lang, err := parseLanguage(req.Language)
	if err != nil {
		return nil, err
	}

	conv := *a.converter
	conv.Options.Language = lang

	if req.Indent != "" {
		conv.Options.Indent = req.Indent
	}

	if req.ImportSource != "" {
		conv.Options.ImportSource = req.ImportSource
	}

	conv.Options.RuntimeProps = conv.Options.RuntimeProps || req.RuntimeProps

	return &conv, nil
}

func (a *api) handleConvert(w http.ResponseWriter, r *http.Request) {
	req, status, err := a.decode(w, r)
	if err != nil {
		writeJSON(w, status, ConvertResponse{Error: err.Error()})

		return
	}

	conv, err := a.converterFor(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ConvertResponse{Error: err.Error()})

		return
	}

	res, err := conv.Convert(r.Context(), req.Filename, []byte(req.Code))
	if err != nil {
		writeJSON(w, errorStatus(err), ConvertResponse{Error: err.Error()})

		return
	}

	resp := ConvertResponse{Result: res}
	if req.Diff {
		resp.Diff = textutil.UnifiedDiff(req.Filename, req.Code, res.Code, textutil.DefaultContext)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *api) handleInspect(w http.ResponseWriter, r *http.Request) {
	req, status, err := a.decode(w, r)
	if err != nil {
		writeJSON(w, status, InspectResponse{Error: err.Error()})

		return
	}

	conv, err := a.converterFor(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, InspectResponse{Error: err.Error()})

		return
	}

	reports, err := conv.Inspect(r.Context(), req.Filename, []byte(req.Code))
	if err != nil {
		writeJSON(w, errorStatus(err), InspectResponse{Error: err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, InspectResponse{Components: reports})
}

func errorStatus(err error) int {
	if errors.Is(err, tsast.ErrSyntax) || errors.Is(err, convert.ErrInvalidCast) {
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(body)
}
