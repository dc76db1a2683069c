package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cfumo/irc-stats/internal/engine"
	"github.com/cfumo/irc-stats/internal/models"
	"github.com/cfumo/irc-stats/internal/textproc"
)

type trendingView struct {
	Word  string
	Score string
}

type homePage struct {
	FeaturedLabel string
	FeaturedCount int
	Trending      []trendingView
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	count, err := s.eng.CountOccurrences(ctx, s.cfg.FeaturedPattern, engine.CountOptions{})
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	terms, err := s.eng.Trending(ctx, engine.TrendingOptions{
		Top:          s.cfg.TrendingTop,
		MinFreq:      s.cfg.TrendingMinFreq,
		LookbackDays: s.cfg.TrendingLookbackDays,
	})
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	page := homePage{
		FeaturedLabel: s.cfg.FeaturedLabel,
		FeaturedCount: count,
	}
	for _, term := range terms {
		page.Trending = append(page.Trending, trendingView{
			Word:  term.Word,
			Score: fmt.Sprintf("%.2f", term.Score),
		})
	}
	s.render(w, "index.html", page)
}

type queryPage struct {
	Params queryParams
	Graph  template.JS
	Table  tableData
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	params := parseQueryParams(r)
	page := queryPage{Params: params}

	switch params.Type {
	case "table":
		table, err := s.tableCounts(ctx, params)
		if err != nil {
			s.renderError(w, http.StatusInternalServerError, err.Error())
			return
		}
		page.Table = table
	default:
		series, err := s.graphSeries(ctx, params)
		if err != nil {
			s.renderError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if series == nil {
			series = []models.Series{}
		}
		data, err := json.Marshal(series)
		if err != nil {
			s.renderError(w, http.StatusInternalServerError, err.Error())
			return
		}
		page.Graph = template.JS(data)
	}

	s.render(w, "query.html", page)
}

type browsePage struct {
	Years    []int
	validSet map[models.Day]bool
}

// Valid reports whether any lines exist for the given date. Called from the
// calendar template.
func (p browsePage) Valid(year, month, day int) bool {
	return p.validSet[models.Day{Year: year, Month: month, Day: day}]
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	days, err := s.eng.ValidDays(ctx)
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Default range when the archive is empty.
	minYear, maxYear := 2013, 2025
	if len(days) > 0 {
		minYear, maxYear = days[0].Year, days[len(days)-1].Year
	}

	page := browsePage{validSet: make(map[models.Day]bool, len(days))}
	for _, day := range days {
		page.validSet[day] = true
	}
	for year := minYear; year <= maxYear; year++ {
		page.Years = append(page.Years, year)
	}
	s.render(w, "browse.html", page)
}

type dayLine struct {
	Pause bool
	Index int
	Time  int64
	Nick  string
	Parts []textproc.Segment
}

type browseDayPage struct {
	Day   models.Day
	Lines []dayLine
	Prev  models.Day
	Next  models.Day
}

func (s *Server) handleBrowseDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	day, ok := parseDayParams(r)
	if !ok {
		s.renderError(w, http.StatusBadRequest, "invalid date")
		return
	}

	logs, err := s.eng.LogsByDay(ctx, day)
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	page := browseDayPage{Day: day, Prev: logs.Prev, Next: logs.Next}
	for i, line := range logs.Lines {
		// A break marks conversation pauses longer than an hour.
		if i > 0 && line.Timestamp-logs.Lines[i-1].Timestamp > 60*60 {
			page.Lines = append(page.Lines, dayLine{Pause: true})
		}
		page.Lines = append(page.Lines, dayLine{
			Index: i,
			Time:  line.Timestamp,
			Nick:  line.Nick,
			Parts: textproc.SplitLinks(line.Message),
		})
	}
	s.render(w, "browse_day.html", page)
}

func parseDayParams(r *http.Request) (models.Day, bool) {
	year := parseInt(chi.URLParam(r, "year"), 0)
	month := parseInt(chi.URLParam(r, "month"), 0)
	day := parseInt(chi.URLParam(r, "day"), 0)
	if year == 0 || month < 1 || month > 12 || day < 1 || day > 31 {
		return models.Day{}, false
	}
	return models.Day{Year: year, Month: month, Day: day}, true
}

type searchHitView struct {
	Day    models.Day
	Index  int
	Time   int64
	Nick   string
	Prefix string
	Match  string
	Suffix string
}

type searchPage struct {
	Query      string
	IgnoreCase bool
	Hits       []searchHitView
	Total      int
	Start      int
	End        int
	Histogram  template.JS
	PrevLink   string
	NextLink   string
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	args := r.URL.Query()
	query := args.Get("q")
	pageNum := parseInt(args.Get("p"), 0)
	ignoreCase := parseBool(args.Get("ignore_case"))
	perPage := s.cfg.LinesPerPage

	page := searchPage{Query: query, IgnoreCase: ignoreCase, Histogram: template.JS("[]")}
	if query != "" {
		hits, total, err := s.eng.SearchDayLogs(ctx, query, ignoreCase, perPage, pageNum*perPage)
		if err != nil {
			s.renderError(w, http.StatusInternalServerError, err.Error())
			return
		}
		page.Total = total

		for _, hit := range hits {
			page.Hits = append(page.Hits, searchHitView{
				Day:    hit.Day,
				Index:  hit.Index,
				Time:   hit.Line.Timestamp,
				Nick:   hit.Line.Nick,
				Prefix: hit.Line.Message[:hit.Start],
				Match:  hit.Line.Message[hit.Start:hit.End],
				Suffix: hit.Line.Message[hit.End:],
			})
		}

		if len(hits) > 0 {
			page.Start = pageNum*perPage + 1
			page.End = pageNum*perPage + len(hits)
		}
		if pageNum > 0 {
			page.PrevLink = modifyQuery(r.URL.Path, args, map[string]string{"p": fmt.Sprint(pageNum - 1)})
		}
		if (pageNum+1)*perPage < total {
			page.NextLink = modifyQuery(r.URL.Path, args, map[string]string{"p": fmt.Sprint(pageNum + 1)})
		}

		histogram, err := s.eng.SearchHistogram(ctx, query, ignoreCase)
		if err != nil {
			s.renderError(w, http.StatusInternalServerError, err.Error())
			return
		}
		data, err := json.Marshal(histogram)
		if err != nil {
			s.renderError(w, http.StatusInternalServerError, err.Error())
			return
		}
		page.Histogram = template.JS(data)
	}

	s.render(w, "search.html", page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.eng.ValidDays(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// nothing better to do
	}
}
