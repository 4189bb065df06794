// Package api serves the HTTP control surface of a running animation.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matt-g-everett/ledmotion/player"
	"github.com/matt-g-everett/ledmotion/util"
)

// Slides navigates a presentation.
type Slides interface {
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
	GoTo(ctx context.Context, id string) error
}

// Playback takes new settings for real-time playback. They are applied
// before the next frame.
type Playback interface {
	Configure(s player.Settings)
}

// StatusSource reports the state of a driver.
type StatusSource interface {
	Status(ctx context.Context) (player.Status, error)
}

type Api struct {
	status   StatusSource
	slides   Slides
	playback Playback
	gatherer prom.Gatherer
	logger   util.Logger
	static   string
}

// NewApi creates an Api. slides may be nil when not presenting; the slide
// routes then answer 409.
func NewApi(status StatusSource, slides Slides, gatherer prom.Gatherer, logger util.Logger) *Api {
	a := new(Api)
	a.status = status
	a.slides = slides
	a.gatherer = gatherer
	a.logger = logger
	a.static = "client/dist"
	return a
}

// SetPlayback enables the playback settings route.
func (a *Api) SetPlayback(p Playback) {
	a.playback = p
}

// Handler returns the routes of the api.
func (a *Api) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /slides/next", a.handleSlide(func(ctx context.Context, _ *http.Request) error {
		return a.slides.Next(ctx)
	}))
	mux.HandleFunc("POST /slides/prev", a.handleSlide(func(ctx context.Context, _ *http.Request) error {
		return a.slides.Prev(ctx)
	}))
	mux.HandleFunc("POST /slides/goto", a.handleSlide(func(ctx context.Context, r *http.Request) error {
		return a.slides.GoTo(ctx, r.URL.Query().Get("id"))
	}))
	mux.HandleFunc("POST /playback", a.handlePlayback)
	mux.HandleFunc("GET /status", a.handleStatus)
	if a.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	}
	mux.Handle("/", http.FileServer(http.Dir(a.static)))
	return mux
}

// Serve listens on addr until ctx is canceled.
func (a *Api) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("Listening...", util.F("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *Api) handleSlide(fn func(ctx context.Context, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.slides == nil {
			http.Error(w, "not presenting", http.StatusConflict)
			return
		}
		if err := fn(r.Context(), r); err != nil {
			a.logger.Error("Slide command failed", util.F("path", r.URL.Path), util.F("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		a.handleStatus(w, r)
	}
}

func (a *Api) handlePlayback(w http.ResponseWriter, r *http.Request) {
	if a.playback == nil {
		http.Error(w, "not playing", http.StatusConflict)
		return
	}
	var settings player.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, fmt.Sprintf("decoding settings: %v", err), http.StatusBadRequest)
		return
	}
	if err := settings.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a.playback.Configure(settings)
	a.logger.Info("Playback settings queued", util.F("settings", settings))
	a.handleStatus(w, r)
}

func (a *Api) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := a.status.Status(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		a.logger.Warn("Failed to write status", util.F("error", err))
	}
}
