package ingest

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HusainCode/pico-firmware/internal/httpapi"
	"github.com/HusainCode/pico-firmware/internal/telemetry"
)

const (
	maxBodyBytes   = 64 << 10
	defaultLimit   = 100
	maxLimit       = 1000
	publishTimeout = 5 * time.Second
)

// Publisher republishes accepted readings. The MQTT bridge implements it.
type Publisher interface {
	PublishReading(ctx context.Context, stationID string, payload []byte) error
}

// Recorder receives ingest outcomes. metrics.Collector implements it.
type Recorder interface {
	Ingested(format string)
	Rejected(reason string)
	Published(err error)
}

type Controller struct {
	repo      Repository
	apiKey    []byte
	publisher Publisher
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Controller)

func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func NewController(repo Repository, apiKey string, opts ...Option) *Controller {
	c := &Controller{
		repo:   repo,
		apiKey: []byte(apiKey),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /telemetry", c.handleIngest)
	mux.HandleFunc("GET /stations", c.handleStations)
	mux.HandleFunc("GET /stations/{id}/latest", c.handleLatest)
}

func (c *Controller) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !c.authorized(r) {
		c.reject(w, "unauthorized", http.StatusUnauthorized, "missing or invalid API key")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.reject(w, "too_large", http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		c.reject(w, "malformed", http.StatusBadRequest, "failed to read body")
		return
	}

	rec, reason, err := c.decode(r, body)
	if err != nil {
		status := http.StatusBadRequest
		if reason == "media_type" {
			status = http.StatusUnsupportedMediaType
		}
		c.reject(w, reason, status, err.Error())
		return
	}

	rec.ID = uuid.NewString()
	rec.ReceivedAt = c.now()
	if err := c.repo.InsertReading(r.Context(), rec); err != nil {
		c.logger.Error("failed to store reading", "station_id", rec.StationID, "error", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to store reading")
		return
	}
	if c.recorder != nil {
		c.recorder.Ingested(rec.Format)
	}
	c.logger.Debug("reading stored",
		"id", rec.ID,
		"station_id", rec.StationID,
		"format", rec.Format,
		"climate_ok", rec.ClimateOK,
		"air_ok", rec.AirOK,
	)

	c.publish(r.Context(), rec)
	httpapi.WriteJSON(w, http.StatusCreated, map[string]string{"id": rec.ID})
}

// decode parses body by Content-Type and returns the reading, or a rejection
// reason and error.
func (c *Controller) decode(r *http.Request, body []byte) (Reading, string, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return Reading{}, "media_type", fmt.Errorf("invalid Content-Type: %w", err)
	}

	var (
		p      telemetry.Payload
		format string
	)
	switch mediaType {
	case "text/plain", "text/csv":
		format = FormatCSV
		p, err = telemetry.ParseCSV(body)
	case "application/json":
		format = FormatJSON
		p, err = telemetry.ParseJSON(body)
	default:
		return Reading{}, "media_type", fmt.Errorf("unsupported Content-Type %q", mediaType)
	}
	if err != nil {
		return Reading{}, "malformed", fmt.Errorf("invalid %s payload: %w", format, err)
	}

	stationID := strings.TrimSpace(p.StationID)
	if stationID == "" {
		stationID = strings.TrimSpace(r.Header.Get("X-Station-ID"))
	}
	if stationID == "" {
		return Reading{}, "no_station", errors.New("missing station id (station_id field or X-Station-ID header)")
	}

	rec := Reading{
		StationID:   stationID,
		Format:      format,
		Temperature: float64(p.Temperature),
		Humidity:    float64(p.Humidity),
		HeatIndex:   float64(p.HeatIndex),
		ECO2:        float64(p.ECO2),
		TVOC:        float64(p.TVOC),
		AQI:         float64(p.AQI),
		ClimateOK:   p.Status.DHT,
		AirOK:       p.Status.ENS,
	}
	if err := checkFinite(rec); err != nil {
		return Reading{}, "malformed", err
	}
	if format == FormatJSON {
		seq := p.Sequence
		rec.Sequence = &seq
		if !p.Timestamp.IsZero() {
			ts := p.Timestamp.UTC()
			rec.CapturedAt = &ts
		}
	}
	return rec, "", nil
}

func checkFinite(rec Reading) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"temperature", rec.Temperature},
		{"humidity", rec.Humidity},
		{"heat_index", rec.HeatIndex},
		{"eco2", rec.ECO2},
		{"tvoc", rec.TVOC},
		{"aqi", rec.AQI},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("field %s is not a finite number", f.name)
		}
	}
	return nil
}

func (c *Controller) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), c.apiKey) == 1
}

func (c *Controller) reject(w http.ResponseWriter, reason string, status int, msg string) {
	if c.recorder != nil {
		c.recorder.Rejected(reason)
	}
	httpapi.WriteError(w, status, msg)
}

// publish republishes rec; failures are logged and never fail the request.
func (c *Controller) publish(ctx context.Context, rec Reading) {
	if c.publisher == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		c.logger.Error("failed to marshal reading for publish", "id", rec.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err = c.publisher.PublishReading(ctx, rec.StationID, payload)
	if c.recorder != nil {
		c.recorder.Published(err)
	}
	if err != nil {
		c.logger.Warn("failed to publish reading", "id", rec.ID, "station_id", rec.StationID, "error", err)
	}
}

func (c *Controller) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.repo.GetStations(r.Context())
	if err != nil {
		c.logger.Error("failed to list stations", "error", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to list stations")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, stations)
}

func (c *Controller) handleLatest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "missing station id")
		return
	}

	limit, err := parseLatestQuery(r)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	latest, err := c.repo.GetLatestReadings(r.Context(), id, limit)
	if err != nil {
		c.logger.Error("failed to load latest readings", "station_id", id, "error", err)
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, latest)
}

func parseLatestQuery(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'limit' (expected integer)")
	}
	if n <= 0 {
		return 0, errors.New("'limit' must be > 0")
	}
	if n > maxLimit {
		return 0, fmt.Errorf("'limit' must be <= %d", maxLimit)
	}
	return n, nil
}
