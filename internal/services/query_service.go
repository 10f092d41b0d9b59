package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alexbespwalker/walker-brain-portal/internal/clock"
	"github.com/alexbespwalker/walker-brain-portal/internal/models"
	"github.com/alexbespwalker/walker-brain-portal/internal/query"
	"github.com/alexbespwalker/walker-brain-portal/internal/store"
)

const (
	tableAnalysis     = "analysis_results"
	tableTranscripts  = "call_transcripts"
	tableTestimonials = "testimonial_pipeline"
	tableSystemStatus = "system_status"
	tableCostTracking = "cost_tracking"
	tableDriftAlerts  = "drift_alerts"
	tablePromptLib    = "prompt_library"
	tableAngleFeed    = "angle_feedback"

	// DefaultPageSize matches the portal's listing widgets.
	DefaultPageSize = 25
)

// quoteColumns is the projection shared by the quote card listings.
var quoteColumns = []string{
	"source_transcript_id", "case_type", "quality_score", "emotional_tone",
	"outcome", "original_language", "key_quote", "summary", "primary_topic",
	"testimonial_candidate", "testimonial_type", "analyzed_at",
}

// searchColumns are the fields the free-text search matches against.
var searchColumns = []string{"summary", "key_quote", "primary_topic"}

// AnalysisFilters is the parsed filter state of a listing request. Zero
// values mean "no constraint"; quality bounds are clamped downstream.
type AnalysisFilters struct {
	CaseTypes       []string
	Tones           []string
	Outcomes        []string
	Languages       []string
	MinQuality      int
	MaxQuality      int
	TestimonialOnly bool
	ContentWorthy   bool
	Search          string
}

func (f AnalysisFilters) specs() []query.FilterSpec {
	var specs []query.FilterSpec
	if len(f.CaseTypes) > 0 {
		specs = append(specs, query.Membership("case_type", f.CaseTypes))
	}
	if len(f.Tones) > 0 {
		specs = append(specs, query.Membership("emotional_tone", f.Tones))
	}
	if len(f.Outcomes) > 0 {
		specs = append(specs, query.Membership("outcome", f.Outcomes))
	}
	if len(f.Languages) > 0 {
		specs = append(specs, query.Membership("original_language", f.Languages))
	}
	if f.MinQuality > 0 || f.MaxQuality > 0 {
		max := f.MaxQuality
		if max == 0 {
			max = 100
		}
		specs = append(specs, query.QualityRange(f.MinQuality, max))
	}
	if f.TestimonialOnly {
		specs = append(specs, query.Equality("testimonial_candidate", true))
	}
	if f.ContentWorthy {
		specs = append(specs, query.Equality("content_generation_flag", true))
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		specs = append(specs, query.TextSearch(term, searchColumns...))
	}
	return specs
}

// FilterOptions is the dictionary payload behind the filter widgets.
type FilterOptions struct {
	CaseTypes []string `json:"case_types"`
	Tones     []string `json:"emotional_tones"`
	Outcomes  []string `json:"outcomes"`
	Languages []string `json:"languages"`
}

// QueryService owns the portal's named queries. Reads flow through the
// caching executor; writes go straight to the store and invalidate the
// affected table's cache prefix.
type QueryService struct {
	exec     *query.Executor
	store    store.Store
	clk      clock.Clock
	logger   *slog.Logger
	pageSize int
}

// NewQueryService creates a new QueryService
func NewQueryService(exec *query.Executor, st store.Store, clk clock.Clock, pageSize int, logger *slog.Logger) *QueryService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &QueryService{
		exec:     exec,
		store:    st,
		clk:      clk,
		logger:   logger,
		pageSize: pageSize,
	}
}

// PageSize reports the listing page size this service paginates with.
func (s *QueryService) PageSize() int { return s.pageSize }

// FilterOptions returns the distinct values feeding the filter dropdowns.
// Language labels are cleaned and deduplicated, the way the portal has
// always shown them.
func (s *QueryService) FilterOptions(ctx context.Context) (*FilterOptions, bool, error) {
	opts := &FilterOptions{}
	hit := true

	for _, d := range []struct {
		field string
		dest  *[]string
		clean bool
	}{
		{"case_type", &opts.CaseTypes, false},
		{"emotional_tone", &opts.Tones, false},
		{"outcome", &opts.Outcomes, false},
		{"original_language", &opts.Languages, true},
	} {
		values, h, err := s.distinct(ctx, d.field, d.clean)
		if err != nil {
			return nil, false, err
		}
		hit = hit && h
		*d.dest = values
	}
	return opts, hit, nil
}

func (s *QueryService) distinct(ctx context.Context, field string, clean bool) ([]string, bool, error) {
	key := query.Key{
		Table:   tableAnalysis,
		Columns: []string{"DISTINCT " + field},
		Filters: []query.FilterSpec{query.NullCheck(field, true)},
		OrderBy: []string{field + " ASC"},
		Class:   query.ClassDictionary,
	}
	rows, hit, err := s.exec.Execute(ctx, key)
	if err != nil {
		return nil, false, err
	}

	seen := make(map[string]struct{}, len(rows))
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		v := row.String(field)
		if clean {
			v = models.CleanLanguage(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return values, hit, nil
}

// listColumns are the JSONB tag columns that arrive from PostgREST-era data
// either as a real array or as a JSON-encoded string. They are rewritten to
// plain string slices before any row leaves the service.
var listColumns = []string{"suggested_tags"}

// normalizeRows maps list-typed columns through NormalizeStringList. Rows
// are shared with the cache across requests, so a row that changes is
// copied, never edited in place.
func normalizeRows(rows []store.Row) []store.Row {
	out := make([]store.Row, len(rows))
	for i, row := range rows {
		out[i] = normalizeRow(row)
	}
	return out
}

func normalizeRow(row store.Row) store.Row {
	needsCopy := false
	for _, col := range listColumns {
		if v, ok := row[col]; ok {
			if _, done := v.(models.StringList); !done {
				needsCopy = true
			}
		}
	}
	if !needsCopy {
		return row
	}

	clone := make(store.Row, len(row))
	for k, v := range row {
		clone[k] = v
	}
	for _, col := range listColumns {
		if v, ok := clone[col]; ok {
			clone[col] = models.NormalizeStringList(v)
		}
	}
	return clone
}

// quoteSpecs restricts any quote listing to rows that actually carry a
// usable quote.
func quoteSpecs(f AnalysisFilters) []query.FilterSpec {
	specs := f.specs()
	specs = append(specs,
		query.NullCheck("key_quote", true),
		query.NotEqual("key_quote", ""),
	)
	return specs
}

// FetchQuotes returns one page of quote cards, best quality first.
func (s *QueryService) FetchQuotes(ctx context.Context, f AnalysisFilters, requestedPage int) ([]store.Row, query.Page, bool, error) {
	key := query.Key{
		Table:   tableAnalysis,
		Columns: quoteColumns,
		Filters: quoteSpecs(f),
		OrderBy: []string{"quality_score DESC", "analyzed_at DESC"},
		Class:   query.ClassListing,
	}
	return s.pagedListing(ctx, key, requestedPage)
}

// CountQuotes returns the total quote count for the active filters.
func (s *QueryService) CountQuotes(ctx context.Context, f AnalysisFilters) (int, bool, error) {
	key := query.Key{Table: tableAnalysis, Filters: quoteSpecs(f), Class: query.ClassListing}
	return s.exec.Count(ctx, key)
}

// SearchCalls runs the free-text call search. The search term is escaped
// by the filter compiler, not here.
func (s *QueryService) SearchCalls(ctx context.Context, f AnalysisFilters, requestedPage int) ([]store.Row, query.Page, bool, error) {
	key := query.Key{
		Table:   tableAnalysis,
		Columns: quoteColumns,
		Filters: f.specs(),
		OrderBy: []string{"analyzed_at DESC"},
		Class:   query.ClassListing,
	}
	return s.pagedListing(ctx, key, requestedPage)
}

// CountCalls returns the total for the current search.
func (s *QueryService) CountCalls(ctx context.Context, f AnalysisFilters) (int, bool, error) {
	key := query.Key{Table: tableAnalysis, Filters: f.specs(), Class: query.ClassListing}
	return s.exec.Count(ctx, key)
}

// CallDetail returns the full analysis record for one transcript.
func (s *QueryService) CallDetail(ctx context.Context, transcriptID string) (store.Row, bool, error) {
	key := query.Key{
		Table:   tableAnalysis,
		Filters: []query.FilterSpec{query.Equality("source_transcript_id", transcriptID)},
		Limit:   1,
		Class:   query.ClassListing,
	}
	rows, hit, err := s.exec.Execute(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, hit, models.ErrNotFound
	}
	return normalizeRow(rows[0]), hit, nil
}

// Transcript loads the raw transcript text. Transcripts are large and
// viewed rarely, so they bypass the cache entirely.
func (s *QueryService) Transcript(ctx context.Context, transcriptID string) (string, error) {
	specs := []query.FilterSpec{query.Equality("transcript_id", transcriptID)}
	preds, err := query.Compile(specs)
	if err != nil {
		return "", err
	}
	rows, err := s.store.Select(ctx, store.SelectQuery{
		Table:      tableTranscripts,
		Columns:    []string{"content"},
		Predicates: preds,
		Limit:      1,
	})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", models.ErrNotFound
	}
	return rows[0].String("content"), nil
}

// Explorer returns the full-width analysis table, newest first.
func (s *QueryService) Explorer(ctx context.Context, f AnalysisFilters, requestedPage int) ([]store.Row, query.Page, bool, error) {
	key := query.Key{
		Table:   tableAnalysis,
		Filters: f.specs(),
		OrderBy: []string{"analyzed_at DESC"},
		Class:   query.ClassListing,
	}
	return s.pagedListing(ctx, key, requestedPage)
}

// WeeklyMetrics aggregates the trailing seven days.
func (s *QueryService) WeeklyMetrics(ctx context.Context) (*models.MetricCounts, bool, error) {
	now := s.clk.Now()
	return s.windowMetrics(ctx, now.AddDate(0, 0, -7), now)
}

// PriorPeriodMetrics aggregates the seven days before the current week,
// used for the delta arrows on the metric cards.
func (s *QueryService) PriorPeriodMetrics(ctx context.Context) (*models.MetricCounts, bool, error) {
	now := s.clk.Now()
	return s.windowMetrics(ctx, now.AddDate(0, 0, -14), now.AddDate(0, 0, -7))
}

func (s *QueryService) windowMetrics(ctx context.Context, from, to time.Time) (*models.MetricCounts, bool, error) {
	low := from.UTC().Format(time.RFC3339)
	high := to.UTC().Format(time.RFC3339)
	key := query.Key{
		Table:   tableAnalysis,
		Columns: []string{"quality_score", "key_quote", "testimonial_candidate", "content_generation_flag"},
		// Half-open so a row analyzed exactly at the week boundary counts
		// in one window, not both.
		Filters: []query.FilterSpec{query.HalfOpenRange("analyzed_at", low, high)},
		Class:   query.ClassAggregate,
	}
	rows, hit, err := s.exec.Execute(ctx, key)
	if err != nil {
		return nil, false, err
	}

	m := &models.MetricCounts{}
	scores := make([]int, 0, len(rows))
	for _, row := range rows {
		if row.String("key_quote") != "" {
			m.Quotes++
		}
		if row.Bool("testimonial_candidate") {
			m.Testimonials++
		}
		if row.Bool("content_generation_flag") {
			m.ContentWorthy++
		}
		if _, ok := row["quality_score"]; ok && row["quality_score"] != nil {
			scores = append(scores, row.Int("quality_score"))
		}
	}
	m.MedianQuality = medianInt(scores)
	return m, hit, nil
}

func medianInt(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sort.Ints(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return (values[mid-1] + values[mid]) / 2
}

// TopQuotes returns the highest-scoring quotes for the dashboard strip.
func (s *QueryService) TopQuotes(ctx context.Context, limit int) ([]store.Row, bool, error) {
	if limit <= 0 {
		limit = 5
	}
	key := query.Key{
		Table:   tableAnalysis,
		Columns: quoteColumns,
		Filters: quoteSpecs(AnalysisFilters{}),
		OrderBy: []string{"quality_score DESC", "analyzed_at DESC"},
		Limit:   uint64(limit),
		Class:   query.ClassAggregate,
	}
	rows, hit, err := s.exec.Execute(ctx, key)
	return normalizeRows(rows), hit, err
}

// DailyVolume buckets call counts per day over the trailing window.
func (s *QueryService) DailyVolume(ctx context.Context, days int) ([]models.DailyVolume, bool, error) {
	if days <= 0 {
		days = 30
	}
	now := s.clk.Now()
	low := now.AddDate(0, 0, -days).UTC().Format(time.RFC3339)
	key := query.Key{
		Table:   tableAnalysis,
		Columns: []string{"analyzed_at", "quality_score"},
		Filters: []query.FilterSpec{query.Range("analyzed_at", low, nil)},
		Class:   query.ClassAggregate,
	}
	rows, hit, err := s.exec.Execute(ctx, key)
	if err != nil {
		return nil, false, err
	}

	type bucket struct {
		count int
		sum   int
	}
	buckets := make(map[string]*bucket)
	for _, row := range rows {
		t := row.Time("analyzed_at")
		if t.IsZero() {
			continue
		}
		day := t.UTC().Format("2006-01-02")
		b, ok := buckets[day]
		if !ok {
			b = &bucket{}
			buckets[day] = b
		}
		b.count++
		b.sum += row.Int("quality_score")
	}

	ordered := make([]string, 0, len(buckets))
	for day := range buckets {
		ordered = append(ordered, day)
	}
	sort.Strings(ordered)

	out := make([]models.DailyVolume, 0, len(ordered))
	for _, day := range ordered {
		b := buckets[day]
		avg := 0.0
		if b.count > 0 {
			avg = float64(b.sum) / float64(b.count)
		}
		out = append(out, models.DailyVolume{Date: day, Count: b.count, AvgQuality: avg})
	}
	return out, hit, nil
}

// TestimonialPipeline lists pipeline entries, optionally narrowed to a
// status subset.
func (s *QueryService) TestimonialPipeline(ctx context.Context, statuses []string, requestedPage int) ([]store.Row, query.Page, bool, error) {
	var specs []query.FilterSpec
	if len(statuses) > 0 {
		for _, st := range statuses {
			if !models.ValidTestimonialStatus(st) {
				return nil, query.Page{}, false, models.ErrBadRequest
			}
		}
		specs = append(specs, query.Membership("status", statuses))
	}
	key := query.Key{
		Table:   tableTestimonials,
		Filters: specs,
		OrderBy: []string{"status_updated_at DESC NULLS LAST", "quality_score DESC"},
		Class:   query.ClassListing,
	}
	return s.pagedListing(ctx, key, requestedPage)
}

// UpdateTestimonialStatus moves a pipeline entry to a new status and
// drops every cached testimonial listing so the next read sees it.
func (s *QueryService) UpdateTestimonialStatus(ctx context.Context, transcriptID, status, notes, updatedBy string) error {
	if !models.ValidTestimonialStatus(status) {
		return models.ErrBadRequest
	}
	data := map[string]any{
		"status":            status,
		"notes":             notes,
		"status_updated_at": s.clk.Now().UTC(),
		"status_updated_by": updatedBy,
	}
	affected, err := s.store.Update(ctx, tableTestimonials, data, map[string]any{
		"source_transcript_id": transcriptID,
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	invalidated := s.exec.Invalidate(tableTestimonials)
	s.logger.Info("testimonial status updated",
		slog.String("transcript_id", transcriptID),
		slog.String("status", status),
		slog.Int("cache_entries_invalidated", invalidated))
	return nil
}

// RecordAngleFeedback stores one reviewer's verdict on a marketing angle;
// a second verdict from the same reviewer replaces the first.
func (s *QueryService) RecordAngleFeedback(ctx context.Context, transcriptID, userID, angle string, useful bool) error {
	if transcriptID == "" || userID == "" || angle == "" {
		return models.ErrBadRequest
	}
	data := map[string]any{
		"source_transcript_id": transcriptID,
		"user_id":              userID,
		"angle":                angle,
		"useful":               useful,
		"recorded_at":          s.clk.Now().UTC(),
	}
	if err := s.store.Upsert(ctx, tableAngleFeed, data, []string{"source_transcript_id", "user_id", "angle"}); err != nil {
		return err
	}
	s.exec.Invalidate(tableAngleFeed)
	return nil
}

// SystemStatus returns the pipeline component health table.
func (s *QueryService) SystemStatus(ctx context.Context) ([]store.Row, bool, error) {
	key := query.Key{
		Table:   tableSystemStatus,
		OrderBy: []string{"component ASC"},
		Class:   query.ClassListing,
	}
	rows, hit, err := s.exec.Execute(ctx, key)
	return rows, hit, err
}

// CostTracking returns per-day spend rows for the trailing window.
func (s *QueryService) CostTracking(ctx context.Context, days int) ([]store.Row, bool, error) {
	if days <= 0 {
		days = 30
	}
	low := s.clk.Now().AddDate(0, 0, -days).UTC().Format("2006-01-02")
	key := query.Key{
		Table:   tableCostTracking,
		Filters: []query.FilterSpec{query.Range("usage_date", low, nil)},
		OrderBy: []string{"usage_date DESC"},
		Class:   query.ClassListing,
	}
	rows, hit, err := s.exec.Execute(ctx, key)
	return rows, hit, err
}

// DriftAlerts lists unresolved analysis-drift alerts, newest first.
func (s *QueryService) DriftAlerts(ctx context.Context) ([]store.Row, bool, error) {
	key := query.Key{
		Table:   tableDriftAlerts,
		Filters: []query.FilterSpec{query.Equality("resolved", false)},
		OrderBy: []string{"detected_at DESC"},
		Class:   query.ClassListing,
	}
	rows, hit, err := s.exec.Execute(ctx, key)
	return rows, hit, err
}

// PromptLibrary lists the active prompt versions.
func (s *QueryService) PromptLibrary(ctx context.Context) ([]store.Row, bool, error) {
	key := query.Key{
		Table:   tablePromptLib,
		OrderBy: []string{"prompt_name ASC", "version DESC"},
		Class:   query.ClassListing,
	}
	rows, hit, err := s.exec.Execute(ctx, key)
	return rows, hit, err
}

// LastUpdated reports when the newest analysis landed.
func (s *QueryService) LastUpdated(ctx context.Context) (time.Time, bool, error) {
	key := query.Key{
		Table:   tableAnalysis,
		Columns: []string{"analyzed_at"},
		OrderBy: []string{"analyzed_at DESC"},
		Limit:   1,
		Class:   query.ClassListing,
	}
	rows, hit, err := s.exec.Execute(ctx, key)
	if err != nil {
		return time.Time{}, false, err
	}
	if len(rows) == 0 {
		return time.Time{}, hit, nil
	}
	return rows[0].Time("analyzed_at"), hit, nil
}

// PipelineStats backs the "N calls analyzed since ..." billboard.
func (s *QueryService) PipelineStats(ctx context.Context) (*models.PipelineStats, bool, error) {
	total, hitCount, err := s.exec.Count(ctx, query.Key{Table: tableAnalysis, Class: query.ClassAggregate})
	if err != nil {
		return nil, false, err
	}

	key := query.Key{
		Table:   tableAnalysis,
		Columns: []string{"analyzed_at"},
		OrderBy: []string{"analyzed_at ASC"},
		Limit:   1,
		Class:   query.ClassAggregate,
	}
	rows, hitFirst, err := s.exec.Execute(ctx, key)
	if err != nil {
		return nil, false, err
	}

	stats := &models.PipelineStats{Total: total, Active: total > 0}
	if len(rows) > 0 {
		if t := rows[0].Time("analyzed_at"); !t.IsZero() {
			stats.Since = t.UTC().Format("2006-01-02")
		}
	}
	return stats, hitCount && hitFirst, nil
}

// pagedListing counts, clamps the page, then fetches one page of rows.
func (s *QueryService) pagedListing(ctx context.Context, key query.Key, requestedPage int) ([]store.Row, query.Page, bool, error) {
	total, hitCount, err := s.exec.Count(ctx, key)
	if err != nil {
		return nil, query.Page{}, false, err
	}

	pg := query.PageFor(requestedPage, s.pageSize, total)
	if total == 0 {
		return []store.Row{}, pg, hitCount, nil
	}

	key.Limit = uint64(s.pageSize)
	key.Offset = uint64(pg.Offset)
	rows, hitRows, err := s.exec.Execute(ctx, key)
	if err != nil {
		return nil, query.Page{}, false, err
	}
	return normalizeRows(rows), pg, hitCount && hitRows, nil
}
