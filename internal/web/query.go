package web

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/cfumo/irc-stats/internal/engine"
	"github.com/cfumo/irc-stats/internal/models"
)

type queryPair struct {
	Label  string
	Regexp string
}

type queryParams struct {
	Type          string
	Title         string
	Cumulative    bool
	IgnoreCase    bool
	LogScale      bool
	Coarse        bool
	Normalize     bool
	NormalizeType string
	NickSplit     bool
	OrderByTotal  bool
	HideControls  bool
	Pairs         []queryPair
}

func parseQueryParams(r *http.Request) queryParams {
	args := r.URL.Query()

	params := queryParams{
		Type:          strings.TrimSpace(args.Get("type")),
		Title:         strings.TrimSpace(args.Get("title")),
		Cumulative:    parseBool(args.Get("cumulative")),
		IgnoreCase:    parseBool(args.Get("ignore_case")),
		LogScale:      parseBool(args.Get("log_scale")),
		Coarse:        parseBool(args.Get("coarse")),
		Normalize:     parseBool(args.Get("normalize")),
		NormalizeType: strings.TrimSpace(args.Get("normalize_type")),
		NickSplit:     parseBool(args.Get("nick_split")),
		OrderByTotal:  parseBool(args.Get("order_by_total")),
		HideControls:  parseBool(args.Get("hide_controls")),
	}
	if params.Type != "table" {
		params.Type = "graph"
	}

	labels := args["label"]
	regexps := args["regexp"]
	for i, re := range regexps {
		if re == "" {
			continue
		}
		label := re
		if i < len(labels) && labels[i] != "" {
			label = labels[i]
		}
		params.Pairs = append(params.Pairs, queryPair{Label: label, Regexp: re})
	}
	return params
}

func (p queryParams) queryOptions(nick string) engine.QueryOptions {
	return engine.QueryOptions{
		Nick:          nick,
		IgnoreCase:    p.IgnoreCase,
		Coarse:        p.Coarse,
		Cumulative:    p.Cumulative,
		Normalize:     p.Normalize,
		NormalizeType: p.NormalizeType,
	}
}

// graphSeries produces one chart series per query pair, or one per alias
// group and pair when nick splitting is on.
func (s *Server) graphSeries(ctx context.Context, params queryParams) ([]models.Series, error) {
	var series []models.Series
	for _, pair := range params.Pairs {
		if !params.NickSplit {
			values, err := s.eng.QueryLogs(ctx, pair.Regexp, params.queryOptions(""))
			if err != nil {
				return nil, err
			}
			series = append(series, models.Series{Key: pair.Label, Values: values})
			continue
		}

		for _, name := range s.nicks.Names() {
			values, err := s.eng.QueryLogs(ctx, pair.Regexp, params.queryOptions(name))
			if err != nil {
				return nil, err
			}
			key := name
			if len(params.Pairs) > 1 {
				key = pair.Label + " " + name
			}
			series = append(series, models.Series{Key: key, Values: values})
		}
	}
	return series, nil
}

type tableRow struct {
	Label  string
	Counts []int
	Total  int
}

type tableData struct {
	Headers []string
	Rows    []tableRow
}

// tableCounts renders the query list as totals. Without nick splitting each
// pair becomes a row; with it, each alias group becomes a row with one column
// per pair.
func (s *Server) tableCounts(ctx context.Context, params queryParams) (tableData, error) {
	var table tableData

	if !params.NickSplit {
		table.Headers = []string{"Query", "Total"}
		for _, pair := range params.Pairs {
			count, err := s.eng.CountOccurrences(ctx, pair.Regexp, engine.CountOptions{IgnoreCase: params.IgnoreCase})
			if err != nil {
				return tableData{}, err
			}
			table.Rows = append(table.Rows, tableRow{Label: pair.Label, Counts: []int{count}, Total: count})
		}
	} else {
		table.Headers = append([]string{"Nick"}, pairLabels(params.Pairs)...)
		for _, name := range s.nicks.Names() {
			row := tableRow{Label: name}
			for _, pair := range params.Pairs {
				count, err := s.eng.CountOccurrences(ctx, pair.Regexp, engine.CountOptions{
					Nick:       name,
					IgnoreCase: params.IgnoreCase,
				})
				if err != nil {
					return tableData{}, err
				}
				row.Counts = append(row.Counts, count)
				row.Total += count
			}
			table.Rows = append(table.Rows, row)
		}
	}

	if params.OrderByTotal {
		sort.SliceStable(table.Rows, func(i, j int) bool {
			return table.Rows[i].Total > table.Rows[j].Total
		})
	}
	return table, nil
}

func pairLabels(pairs []queryPair) []string {
	labels := make([]string, len(pairs))
	for i, pair := range pairs {
		labels[i] = pair.Label
	}
	return labels
}
