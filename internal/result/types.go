package result

import "time"

// AnalysisResult is everything one analysis run produced for a project.
// The overall score is not stored; it is derived by the scoring package.
type AnalysisResult struct {
	ID              string    `json:"id"`
	Project         string    `json:"project"`
	Source          string    `json:"source"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
	DurationS       float64   `json:"duration_s"`
	Files           int       `json:"files"`
	Scores          Scores    `json:"scores"`
	Issues          []Issue   `json:"issues"`
	Recommendations []string  `json:"recommendations"`
	Market          *Market   `json:"market,omitempty"`
	Review          *Review   `json:"review,omitempty"`
}

// Scores holds the sub-scores in [0,1]. A base score of 0 means it was
// not computed.
type Scores struct {
	AIFramework float64 `json:"ai_framework_score"`
	CodeQuality float64 `json:"code_quality_score"`
	Execution   float64 `json:"execution_score"`
	Security    float64 `json:"security_score"`
	MarketValue float64 `json:"market_value_score"`
}

// Base returns the four base sub-scores in presentation order.
func (s Scores) Base() []float64 {
	return []float64{s.AIFramework, s.CodeQuality, s.Execution, s.Security}
}

// NeutralMarket is the market value used when no market data exists.
const NeutralMarket = 0.5

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Issue is a problem found in a specific file.
type Issue struct {
	Severity Severity `json:"severity"`
	Category string   `json:"category"`
	File     string   `json:"file"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
}

// Market records how the market value score was obtained.
type Market struct {
	Score        float64  `json:"market_score"`
	IsPopular    bool     `json:"is_popular"`
	Popularity   float64  `json:"popularity_score"`
	Adoption     float64  `json:"adoption_score"`
	Impact       float64  `json:"impact_score"`
	Context      string   `json:"market_context,omitempty"`
	MinimumScore *float64 `json:"minimum_score,omitempty"`
	Fallback     bool     `json:"fallback,omitempty"`
	Override     bool     `json:"override,omitempty"`
}

// Review summarizes the external reviewer's part in the AI score.
type Review struct {
	Model          string   `json:"model"`
	FilesReviewed  int      `json:"files_reviewed"`
	Fallbacks      int      `json:"fallbacks"`
	AverageAIScore float64  `json:"average_ai_score"`
	StaticAIScore  float64  `json:"static_ai_score"`
	Findings       []string `json:"findings,omitempty"`
}
