package analytics

// Verbs with dedicated dashboard treatment.
const (
	VerbPageViewed = "PAGEVIEWED"
	VerbClicked    = "CLICKED"
	VerbEntered    = "ENTERED"
)

// Trackable content object types.
const (
	ObjectTypeStoryFragment = "StoryFragment"
	ObjectTypePane          = "Pane"
	ObjectTypeBelief        = "Belief"
)

// HourlySiteData aggregates site-wide activity for one UTC hour. Visitor sets
// are keyed by fingerprint id. Mutated additively only.
type HourlySiteData struct {
	TotalVisits       int             `json:"totalVisits"`
	AnonymousVisitors map[string]bool `json:"anonymousVisitors"`
	KnownVisitors     map[string]bool `json:"knownVisitors"`
	EventCounts       map[string]int  `json:"eventCounts"`
}

// NewEmptyHourlySiteData returns a zeroed site bin.
func NewEmptyHourlySiteData() *HourlySiteData {
	return &HourlySiteData{
		AnonymousVisitors: make(map[string]bool),
		KnownVisitors:     make(map[string]bool),
		EventCounts:       make(map[string]int),
	}
}

// HourlyContentData aggregates one content item's activity for one UTC hour.
type HourlyContentData struct {
	UniqueVisitors    map[string]bool `json:"uniqueVisitors"`
	AnonymousVisitors map[string]bool `json:"anonymousVisitors"`
	KnownVisitors     map[string]bool `json:"knownVisitors"`
	Actions           int             `json:"actions"`
	EventCounts       map[string]int  `json:"eventCounts"`
}

// NewEmptyHourlyContentData returns a zeroed content bin.
func NewEmptyHourlyContentData() *HourlyContentData {
	return &HourlyContentData{
		UniqueVisitors:    make(map[string]bool),
		AnonymousVisitors: make(map[string]bool),
		KnownVisitors:     make(map[string]bool),
		EventCounts:       make(map[string]int),
	}
}

// HourlyEpinetData holds one epinet's step membership and transitions for one
// UTC hour.
type HourlyEpinetData struct {
	Steps       map[string]*HourlyEpinetStepData                  `json:"steps"`
	Transitions map[string]map[string]*HourlyEpinetTransitionData `json:"transitions"`
}

// HourlyEpinetStepData records which visitors touched one step node.
type HourlyEpinetStepData struct {
	Visitors  map[string]bool `json:"visitors"`
	Name      string          `json:"name"`
	StepIndex int             `json:"stepIndex"`
}

// HourlyEpinetTransitionData records which visitors moved between two nodes.
type HourlyEpinetTransitionData struct {
	Visitors map[string]bool `json:"visitors"`
}

// NewEmptyHourlyEpinetData returns a zeroed epinet bin.
func NewEmptyHourlyEpinetData() *HourlyEpinetData {
	return &HourlyEpinetData{
		Steps:       make(map[string]*HourlyEpinetStepData),
		Transitions: make(map[string]map[string]*HourlyEpinetTransitionData),
	}
}

// EpinetConfig is a funnel definition loaded from the persistent store.
type EpinetConfig struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Steps []EpinetStep `json:"steps"`
}

// EpinetStep is one gate in a funnel definition.
type EpinetStep struct {
	GateType   string   `json:"gateType"` // "belief", "identifyAs", "commitmentAction", "conversionAction"
	Title      string   `json:"title,omitempty"`
	Values     []string `json:"values"`
	ObjectType string   `json:"objectType,omitempty"` // "StoryFragment", "Pane"
	ObjectIDs  []string `json:"objectIds,omitempty"`
}

// Epinet gate types.
const (
	GateBelief           = "belief"
	GateIdentifyAs       = "identifyAs"
	GateCommitmentAction = "commitmentAction"
	GateConversionAction = "conversionAction"
)

// SankeyDiagram is the externally consumable user-flow graph. Links index
// into Nodes; node ids let callers trace back to step node identifiers.
type SankeyDiagram struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Nodes []SankeyNode `json:"nodes"`
	Links []SankeyLink `json:"links"`
}

type SankeyNode struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type SankeyLink struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Value  int `json:"value"`
}

// EpinetRangeSet bundles the standard reporting windows for one epinet.
type EpinetRangeSet struct {
	Daily   *SankeyDiagram `json:"daily"`
	Weekly  *SankeyDiagram `json:"weekly"`
	Monthly *SankeyDiagram `json:"monthly"`
}

// LeadMetrics is the lead conversion report. Field names on the wire follow
// the established dashboard contract.
type LeadMetrics struct {
	TotalVisits            int     `json:"total_visits"`
	LastActivity           string  `json:"last_activity"`
	FirstTime24h           int     `json:"first_time_24h"`
	Returning24h           int     `json:"returning_24h"`
	FirstTime7d            int     `json:"first_time_7d"`
	Returning7d            int     `json:"returning_7d"`
	FirstTime28d           int     `json:"first_time_28d"`
	Returning28d           int     `json:"returning_28d"`
	FirstTime24hPercentage float64 `json:"first_time_24h_percentage"`
	Returning24hPercentage float64 `json:"returning_24h_percentage"`
	FirstTime7dPercentage  float64 `json:"first_time_7d_percentage"`
	Returning7dPercentage  float64 `json:"returning_7d_percentage"`
	FirstTime28dPercentage float64 `json:"first_time_28d_percentage"`
	Returning28dPercentage float64 `json:"returning_28d_percentage"`
	TotalLeads             int     `json:"total_leads"`
}

// StoryfragmentAnalytics is the per-content report row.
type StoryfragmentAnalytics struct {
	ID                    string `json:"id"`
	Slug                  string `json:"slug"`
	TotalActions          int    `json:"total_actions"`
	UniqueVisitors        int    `json:"unique_visitors"`
	Last24hActions        int    `json:"last_24h_actions"`
	Last7dActions         int    `json:"last_7d_actions"`
	Last28dActions        int    `json:"last_28d_actions"`
	Last24hUniqueVisitors int    `json:"last_24h_unique_visitors"`
	Last7dUniqueVisitors  int    `json:"last_7d_unique_visitors"`
	Last28dUniqueVisitors int    `json:"last_28d_unique_visitors"`
	TotalLeads            int    `json:"total_leads"`
}

// DashboardAnalytics is the aggregate dashboard payload.
type DashboardAnalytics struct {
	Stats      TimeRangeStats   `json:"stats"`
	Line       []LineDataSeries `json:"line"`
	HotContent []HotItem        `json:"hot_content"`
}

type TimeRangeStats struct {
	Daily   int `json:"daily"`
	Weekly  int `json:"weekly"`
	Monthly int `json:"monthly"`
}

type LineDataSeries struct {
	ID   string          `json:"id"`
	Data []LineDataPoint `json:"data"`
}

type LineDataPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type HotItem struct {
	ID          string `json:"id"`
	TotalEvents int    `json:"total_events"`
}

// HourlyNodeActivity maps hourKey -> contentId -> event total, for activity
// sparklines.
type HourlyNodeActivity map[string]map[string]int
