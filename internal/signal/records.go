package signal

// Record is the reviewer's assessment of one code segment.
type Record struct {
	AIScore          float64  `json:"ai_score" mapstructure:"ai_score"`
	QualityScore     float64  `json:"quality_score" mapstructure:"quality_score"`
	OriginalityScore float64  `json:"originality_score" mapstructure:"originality_score"`
	ExecutionScore   float64  `json:"execution_score" mapstructure:"execution_score"`
	MarketValue      float64  `json:"market_value" mapstructure:"market_value"`
	Findings         []string `json:"findings" mapstructure:"findings"`
	Recommendations  []string `json:"recommendations" mapstructure:"recommendations"`

	// Fallback marks a neutral record produced without a reviewer answer.
	Fallback bool `json:"-" mapstructure:"-"`
}

// Implementation types reported by VerifyAIImplementation.
const (
	ImplementationFramework = "framework"
	ImplementationAPI       = "api"
	ImplementationHybrid    = "hybrid"
	ImplementationNone      = "none"
)

// Verification says whether code carries a genuine AI implementation.
type Verification struct {
	IsRealAI           bool     `json:"is_real_ai" mapstructure:"is_real_ai"`
	ImplementationType string   `json:"implementation_type" mapstructure:"implementation_type"`
	Confidence         float64  `json:"confidence" mapstructure:"confidence"`
	Evidence           []string `json:"evidence" mapstructure:"evidence"`
	Suggestions        []string `json:"suggestions" mapstructure:"suggestions"`

	Fallback bool `json:"-" mapstructure:"-"`
}

// MarketContext is the reviewer's view of a project's market standing.
type MarketContext struct {
	PopularityScore   float64        `json:"popularity_score" mapstructure:"popularity_score"`
	AdoptionScore     float64        `json:"adoption_score" mapstructure:"adoption_score"`
	ImpactScore       float64        `json:"impact_score" mapstructure:"impact_score"`
	PopularityMetrics map[string]any `json:"popularity_metrics" mapstructure:"popularity_metrics"`
	CommunityMetrics  map[string]any `json:"community_metrics" mapstructure:"community_metrics"`
	MarketContext     string         `json:"market_context" mapstructure:"market_context"`
	Recommendations   []string       `json:"recommendations" mapstructure:"recommendations"`

	Fallback bool `json:"-" mapstructure:"-"`
}

// Originality describes how much of a code segment looks copied.
type Originality struct {
	OriginalityScore float64  `json:"originality_score" mapstructure:"originality_score"`
	IsLikelyCopied   bool     `json:"is_likely_copied" mapstructure:"is_likely_copied"`
	CommonPatterns   []string `json:"common_patterns" mapstructure:"common_patterns"`
	UniqueElements   []string `json:"unique_elements" mapstructure:"unique_elements"`
	Recommendations  []string `json:"recommendations" mapstructure:"recommendations"`

	Fallback bool `json:"-" mapstructure:"-"`
}

// Neutral is the value every degraded numeric signal takes.
const Neutral = 0.5

const (
	rateLimitedFinding = "Rate limit reached"
	rateLimitedAdvice  = "Try again later"
	failedAdvice       = "Check the reviewer configuration and retry"
)

func fallbackRecord(finding, advice string) Record {
	return Record{
		AIScore:          Neutral,
		QualityScore:     Neutral,
		OriginalityScore: Neutral,
		ExecutionScore:   Neutral,
		MarketValue:      Neutral,
		Findings:         []string{finding},
		Recommendations:  []string{advice},
		Fallback:         true,
	}
}

func fallbackVerification(finding, advice string) Verification {
	return Verification{
		IsRealAI:           false,
		ImplementationType: ImplementationNone,
		Confidence:         Neutral,
		Evidence:           []string{finding},
		Suggestions:        []string{advice},
		Fallback:           true,
	}
}

func fallbackMarketContext(finding, advice string) MarketContext {
	return MarketContext{
		PopularityScore:   Neutral,
		AdoptionScore:     Neutral,
		ImpactScore:       Neutral,
		PopularityMetrics: map[string]any{},
		CommunityMetrics:  map[string]any{},
		MarketContext:     finding,
		Recommendations:   []string{advice},
		Fallback:          true,
	}
}

func fallbackOriginality(finding, advice string) Originality {
	return Originality{
		OriginalityScore: Neutral,
		IsLikelyCopied:   false,
		CommonPatterns:   []string{finding},
		UniqueElements:   []string{},
		Recommendations:  []string{advice},
		Fallback:         true,
	}
}
