package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/phone-finder/internal/config"
	"github.com/sells-group/phone-finder/internal/geo"
	"github.com/sells-group/phone-finder/internal/model"
	"github.com/sells-group/phone-finder/internal/resolve"
	"github.com/sells-group/phone-finder/internal/search"
	"github.com/sells-group/phone-finder/internal/store"
	"github.com/sells-group/phone-finder/pkg/geocode"
)

var servePort int

// maxResolveNames bounds one POST /v1/resolve request.
const maxResolveNames = 500

// apiServer holds the services behind the HTTP API. store may be nil.
type apiServer struct {
	engine   *search.Engine
	resolver resolve.Looker
	geocoder geocode.Client
	store    store.Store
	workers  int
	delay    time.Duration
	lookups  *rate.Limiter // shared by every resolve request; nil disables
	log      *zap.Logger
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, config.ModeServe, cfg.Store.Enabled)
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &apiServer{
			engine:   env.Engine,
			resolver: env.Resolver,
			geocoder: env.Geocoder,
			store:    env.Store,
			workers:  cfg.Resolve.Workers,
			delay:    resolveDelay(cfg.Resolve),
			lookups:  resolve.NewSharedLimiter(cfg.Resolve.Workers, resolveDelay(cfg.Resolve)),
			log:      zap.L().With(zap.String("component", "api")),
		}

		return startServer(ctx, buildRouter(srv, cfg.Server.CORSOrigins), resolvePort(servePort, cfg.Server.Port))
	},
}

// resolvePort prefers the flag value over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// buildRouter wires the API routes.
func buildRouter(s *apiServer, origins []string) http.Handler {
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/resolve", s.handleResolve)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

// startServer serves handler on port until ctx ends, then shuts down gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- eris.Wrap(err, "server listen")
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return nil
}

// searchBody is the POST /v1/search payload. Center may be given directly,
// as a place name, or as a location string.
type searchBody struct {
	search.Request
	Center   *geo.GeoPoint `json:"center,omitempty"`
	Place    string        `json:"place,omitempty"`
	Location string        `json:"location,omitempty"`
}

type searchResponse struct {
	*search.Result
	RunID string `json:"run_id,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body searchBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := centerInput{Place: body.Place, Location: body.Location}
	if body.Center != nil {
		in.Lat, in.Lon = &body.Center.Latitude, &body.Center.Longitude
	}
	center, locZoom, err := resolveCenter(r.Context(), s.geocoder, in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req := body.Request
	req.Center = center
	if req.Zoom == 0 {
		req.Zoom = locZoom
	}

	res, runErr := s.engine.SearchArea(r.Context(), req, search.NopProgress{})
	if res == nil {
		status := http.StatusInternalServerError
		if eris.Is(runErr, search.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		writeError(w, status, runErr.Error())
		return
	}

	resp := searchResponse{Result: res}
	if runErr != nil {
		resp.Error = runErr.Error()
	}
	if s.store != nil {
		runID, err := saveSearch(context.WithoutCancel(r.Context()), s.store, req, res, runErr)
		if err != nil {
			s.log.Error("save search run failed", zap.Error(err))
		}
		resp.RunID = runID
	}
	writeJSON(w, http.StatusOK, resp)
}

type resolveBody struct {
	Names []string      `json:"names"`
	Area  *resolve.Area `json:"area,omitempty"`
}

type resolveResponse struct {
	Entities []model.ResolvedEntity `json:"entities"`
	RunID    string                 `json:"run_id,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

func (s *apiServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	var body resolveBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(body.Names) == 0 {
		writeError(w, http.StatusBadRequest, "names is required")
		return
	}
	if len(body.Names) > maxResolveNames {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d names per request", maxResolveNames))
		return
	}
	if body.Area != nil {
		if err := body.Area.Center.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	var opts []resolve.BatchOption
	if s.lookups != nil {
		opts = append(opts, resolve.WithSharedLimiter(s.lookups))
	}
	batch := resolve.NewBatch(s.resolver, s.workers, s.delay, opts...)
	ents, runErr := batch.Run(r.Context(), queriesFor(body.Names, body.Area), nil)

	resp := resolveResponse{Entities: ents}
	if runErr != nil {
		resp.Error = runErr.Error()
	}
	if s.store != nil {
		runID, err := saveResolve(context.WithoutCancel(r.Context()), s.store, resolveParams(body), ents, runErr)
		if err != nil {
			s.log.Error("save resolve run failed", zap.Error(err))
		}
		resp.RunID = runID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run store is disabled")
		return
	}

	q := r.URL.Query()
	filter := store.RunFilter{
		Kind:   model.RunKind(q.Get("kind")),
		Status: model.RunStatus(q.Get("status")),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s %q", name, v))
				return
			}
			*dst = n
		}
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		s.log.Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// runDetail is a run with its stored results.
type runDetail struct {
	*model.Run
	Places   []model.PlaceResult    `json:"places,omitempty"`
	Entities []model.ResolvedEntity `json:"entities,omitempty"`
}

func (s *apiServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run store is disabled")
		return
	}

	detail, err := loadRunDetail(r.Context(), s.store, chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.log.Error("get run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func loadRunDetail(ctx context.Context, st store.Store, id string) (*runDetail, error) {
	run, err := st.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &runDetail{Run: run}
	switch run.Kind {
	case model.RunKindSearch:
		d.Places, err = st.ListPlaces(ctx, id)
	case model.RunKindResolve:
		d.Entities, err = st.ListEntities(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return eris.Wrap(err, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
