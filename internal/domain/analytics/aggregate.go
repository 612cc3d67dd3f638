package analytics

// SiteRangeSummary is the result of aggregating site bins over an hour range.
// Visitor sets are freshly allocated; callers may mutate them freely.
type SiteRangeSummary struct {
	TotalVisits       int
	AnonymousVisitors map[string]bool
	KnownVisitors     map[string]bool
	EventCounts       map[string]int
}

// ContentRangeSummary is the per-content analogue of SiteRangeSummary.
type ContentRangeSummary struct {
	UniqueVisitors    map[string]bool
	AnonymousVisitors map[string]bool
	KnownVisitors     map[string]bool
	Actions           int
	EventCounts       map[string]int
}

// AggregateSiteRange unions visitor sets and sums scalar counters across the
// given hour keys. Set union (not summation) guarantees a visitor active in
// several hours counts once. Hours absent from bins contribute nothing.
// Pure: neither bins nor their sets are mutated.
func AggregateSiteRange(bins map[string]*HourlySiteData, hourKeys []string) *SiteRangeSummary {
	out := &SiteRangeSummary{
		AnonymousVisitors: make(map[string]bool),
		KnownVisitors:     make(map[string]bool),
		EventCounts:       make(map[string]int),
	}
	for _, hourKey := range hourKeys {
		bin, ok := bins[hourKey]
		if !ok || bin == nil {
			continue
		}
		out.TotalVisits += bin.TotalVisits
		for id := range bin.AnonymousVisitors {
			out.AnonymousVisitors[id] = true
		}
		for id := range bin.KnownVisitors {
			out.KnownVisitors[id] = true
		}
		for verb, count := range bin.EventCounts {
			out.EventCounts[verb] += count
		}
	}
	return out
}

// AggregateContentRange unions visitor sets and sums counters for one content
// item across the given hour keys. Same purity guarantees as
// AggregateSiteRange.
func AggregateContentRange(bins map[string]*HourlyContentData, hourKeys []string) *ContentRangeSummary {
	out := &ContentRangeSummary{
		UniqueVisitors:    make(map[string]bool),
		AnonymousVisitors: make(map[string]bool),
		KnownVisitors:     make(map[string]bool),
		EventCounts:       make(map[string]int),
	}
	for _, hourKey := range hourKeys {
		bin, ok := bins[hourKey]
		if !ok || bin == nil {
			continue
		}
		out.Actions += bin.Actions
		for id := range bin.UniqueVisitors {
			out.UniqueVisitors[id] = true
		}
		for id := range bin.AnonymousVisitors {
			out.AnonymousVisitors[id] = true
		}
		for id := range bin.KnownVisitors {
			out.KnownVisitors[id] = true
		}
		for verb, count := range bin.EventCounts {
			out.EventCounts[verb] += count
		}
	}
	return out
}
