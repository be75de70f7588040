package calendarhandler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/platform/metrics"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
)

type factSource interface {
	FactsBetween(ctx context.Context, countryCode string, start, end time.Time) ([]calendar.Fact, error)
	CountForYear(ctx context.Context, countryCode string, year int) (int, error)
	UpsertFacts(ctx context.Context, facts []calendar.Fact) error
	Settings(ctx context.Context, tenantID string) (*calendar.OrgSettings, error)
}

type holidayProvider interface {
	PublicHolidays(ctx context.Context, year int, countryCode string) ([]calendar.Fact, error)
}

type Handler struct {
	Facts          factSource
	Provider       holidayProvider
	DefaultCountry string
	Metrics        *metrics.Collector
}

func NewHandler(facts factSource, provider holidayProvider, defaultCountry string, collector *metrics.Collector) *Handler {
	return &Handler{Facts: facts, Provider: provider, DefaultCountry: defaultCountry, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/calendar", func(r chi.Router) {
		r.Get("/holidays", h.handleListHolidays)
		r.Get("/settings", h.handleGetSettings)
	})
}

func (h *Handler) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	year := time.Now().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 2000 || parsed > 2100 {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid year", reqID)
			return
		}
		year = parsed
	}

	countryCode := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("country")))
	if countryCode == "" {
		if settings, err := h.Facts.Settings(r.Context(), actor.TenantID); err == nil && settings != nil {
			countryCode = settings.CountryCode
		}
	}
	if countryCode == "" {
		countryCode = h.DefaultCountry
	}
	if len(countryCode) != 2 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "country must be a two-letter code", reqID)
		return
	}

	cached, err := h.Facts.CountForYear(r.Context(), countryCode, year)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "calendar_failed", "failed to read calendar cache", reqID)
		return
	}
	if cached == 0 {
		facts, err := h.Provider.PublicHolidays(r.Context(), year, countryCode)
		if err != nil {
			if h.Metrics != nil {
				h.Metrics.RecordProviderFailure()
			}
			api.Fail(w, http.StatusBadGateway, "calendar_provider_failed", "holiday provider is unavailable", reqID)
			return
		}
		if len(facts) == 0 {
			// Remember the empty year with a non-holiday marker so the
			// provider is not asked again on every request.
			facts = []calendar.Fact{{
				Date:        time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
				CountryCode: countryCode,
			}}
		}
		if err := h.Facts.UpsertFacts(r.Context(), facts); err != nil {
			api.Fail(w, http.StatusInternalServerError, "calendar_failed", "failed to cache holidays", reqID)
			return
		}
	}

	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
	facts, err := h.Facts.FactsBetween(r.Context(), countryCode, start, end)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "calendar_failed", "failed to list holidays", reqID)
		return
	}

	holidays := make([]calendar.Fact, 0, len(facts))
	for _, f := range facts {
		if f.IsHoliday {
			holidays = append(holidays, f)
		}
	}

	api.Success(w, map[string]any{
		"year":     year,
		"country":  countryCode,
		"holidays": holidays,
	}, reqID)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	settings, err := h.Facts.Settings(r.Context(), actor.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "settings_failed", "failed to load organization settings", reqID)
		return
	}
	if settings == nil {
		settings = &calendar.OrgSettings{
			TenantID:    actor.TenantID,
			CountryCode: h.DefaultCountry,
			HolidayMode: calendar.ModeAuto,
		}
	}
	api.Success(w, settings, reqID)
}
