package server

import (
	"net/http"
	"net/url"
	"regexp"
	"slices"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/dataset"
	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/model"
)

var yearMonthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

func (s *Server) handleLines(w http.ResponseWriter, r *http.Request) {
	lines, err := s.provider.Lines(r.Context())
	if err != nil {
		s.serverError(w, "list lines", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"lines": lines})
}

func (s *Server) handleBounds(w http.ResponseWriter, r *http.Request) {
	line, ok := s.resolveLine(w, r)
	if !ok {
		return
	}

	bounds, err := s.provider.DateBounds(r.Context(), line)
	if err != nil {
		s.serverError(w, "date bounds", err)
		return
	}
	if bounds == nil {
		writeError(w, http.StatusNotFound, "no ridership for line "+line)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"min": bounds.Min.Format("2006-01-02"),
		"max": bounds.Max.Format("2006-01-02"),
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.filteredRows(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dataset.BuildChart(rows, s.opts.TopStations))
}

type mapResponse struct {
	Stations []model.StationAggregate `json:"stations"`
	Viewport *viewport                `json:"viewport,omitempty"`
}

type viewport struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.filteredRows(w, r)
	if !ok {
		return
	}

	mt := dataset.BuildMapTable(rows, s.opts.MaxMarkerSize)
	resp := mapResponse{Stations: mt.Mapped()}
	if mt.Viewport != nil {
		resp.Viewport = &viewport{
			MinLon: mt.Viewport.Min(0),
			MinLat: mt.Viewport.Min(1),
			MaxLon: mt.Viewport.Max(0),
			MaxLat: mt.Viewport.Max(1),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type tableRow struct {
	Station   string `json:"station"`
	Riders    int    `json:"riders"`
	Formatted string `json:"formatted"`
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.filteredRows(w, r)
	if !ok {
		return
	}

	mt := dataset.BuildMapTable(rows, s.opts.MaxMarkerSize)
	out := make([]tableRow, 0, len(mt.Stations))
	for _, a := range mt.Stations {
		out = append(out, tableRow{
			Station:   a.StationKey,
			Riders:    a.Riders,
			Formatted: s.printer.Sprintf("%d", a.Riders),
		})
	}
	writeJSON(w, http.StatusOK, map[string][]tableRow{"rows": out})
}

// resolveLine validates the line path parameter against the known lines.
// Line keys contain spaces, so the segment arrives percent-encoded.
func (s *Server) resolveLine(w http.ResponseWriter, r *http.Request) (string, bool) {
	line := chi.URLParam(r, "line")
	if unescaped, err := url.PathUnescape(line); err == nil {
		line = unescaped
	}
	lines, err := s.provider.Lines(r.Context())
	if err != nil {
		s.serverError(w, "list lines", err)
		return "", false
	}
	if !slices.Contains(lines, line) {
		writeError(w, http.StatusNotFound, "unknown line "+line)
		return "", false
	}
	return line, true
}

// filteredRows resolves the line and month range, defaulting the range to
// the line's ridership bounds when start/end are absent.
func (s *Server) filteredRows(w http.ResponseWriter, r *http.Request) ([]model.MonthlyStationRidership, bool) {
	line, ok := s.resolveLine(w, r)
	if !ok {
		return nil, false
	}

	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" || end == "" {
		bounds, err := s.provider.DateBounds(r.Context(), line)
		if err != nil {
			s.serverError(w, "date bounds", err)
			return nil, false
		}
		if bounds == nil {
			writeError(w, http.StatusNotFound, "no ridership for line "+line)
			return nil, false
		}
		if start == "" {
			start = bounds.Min.Format(model.YearMonthLayout)
		}
		if end == "" {
			end = bounds.Max.Format(model.YearMonthLayout)
		}
	}

	if !yearMonthRe.MatchString(start) || !yearMonthRe.MatchString(end) {
		writeError(w, http.StatusBadRequest, "start and end must be YYYY-MM")
		return nil, false
	}

	rows, err := s.provider.Monthly(r.Context(), line, start, end)
	if err != nil {
		s.serverError(w, "monthly rows", err)
		return nil, false
	}
	return rows, true
}

func (s *Server) serverError(w http.ResponseWriter, action string, err error) {
	zap.L().Error("server: "+action, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
