package signal

// Cache namespaces, one per operation.
const (
	NamespaceAnalyze       = "analyze"
	NamespaceVerify        = "verify"
	NamespaceMarketContext = "market_context"
	NamespaceOriginality   = "originality"
)

var analyzeOp = &operation[Record]{
	name: NamespaceAnalyze,
	system: `You are an expert code reviewer focused on:
1. Identifying AI/ML implementations
2. Detecting code quality issues
3. Finding potential plagiarism
4. Assessing whether the code can run

Reply with a single JSON object with these keys:
- ai_score: number 0-1
- quality_score: number 0-1
- originality_score: number 0-1
- execution_score: number 0-1
- market_value: number 0-1
- findings: array of strings
- recommendations: array of strings`,
	schema: analyzeSchema,
	defaults: func() map[string]any {
		return map[string]any{
			"ai_score":          Neutral,
			"quality_score":     Neutral,
			"originality_score": Neutral,
			"execution_score":   Neutral,
			"market_value":      Neutral,
			"findings":          []any{"No findings available"},
			"recommendations":   []any{"No recommendations available"},
		}
	},
	fallback: fallbackRecord,
}

var verifyOp = &operation[Verification]{
	name: NamespaceVerify,
	system: `You identify genuine AI/ML implementations. Distinguish between:
1. Real model implementations
2. Plain calls to hosted AI APIs
3. Framework-level AI code
4. Prompt engineering only

Reply with a single JSON object with these keys:
- is_real_ai: boolean
- implementation_type: one of "framework", "api", "hybrid", "none"
- confidence: number 0-1
- evidence: array of strings
- suggestions: array of strings`,
	schema: verifySchema,
	defaults: func() map[string]any {
		return map[string]any{
			"is_real_ai":          false,
			"implementation_type": ImplementationNone,
			"confidence":          Neutral,
			"evidence":            []any{},
			"suggestions":         []any{},
		}
	},
	fallback: fallbackVerification,
}

var marketContextOp = &operation[MarketContext]{
	name: NamespaceMarketContext,
	system: `You analyze the market success of AI projects. Consider:
1. Popularity (stars, forks, downloads)
2. Community adoption and engagement
3. Industry recognition and impact
4. Market presence and growth

Reply with a single JSON object with these keys:
- popularity_score: number 0-1
- adoption_score: number 0-1
- impact_score: number 0-1
- popularity_metrics: object
- community_metrics: object
- market_context: string
- recommendations: array of strings`,
	schema: marketSchema,
	defaults: func() map[string]any {
		return map[string]any{
			"popularity_score":   Neutral,
			"adoption_score":     Neutral,
			"impact_score":       Neutral,
			"popularity_metrics": map[string]any{},
			"community_metrics":  map[string]any{},
			"market_context":     "",
			"recommendations":    []any{},
		}
	},
	fallback: fallbackMarketContext,
}

var originalityOp = &operation[Originality]{
	name: NamespaceOriginality,
	system: `You detect copied and boilerplate code. Look for:
1. Tutorial or documentation snippets used verbatim
2. Common library usage patterns
3. Elements unique to this project

Reply with a single JSON object with these keys:
- originality_score: number 0-1
- is_likely_copied: boolean
- common_patterns: array of strings
- unique_elements: array of strings
- recommendations: array of strings`,
	schema: originalitySchema,
	defaults: func() map[string]any {
		return map[string]any{
			"originality_score": Neutral,
			"is_likely_copied":  false,
			"common_patterns":   []any{},
			"unique_elements":   []any{},
			"recommendations":   []any{"No recommendations available"},
		}
	},
	fallback: fallbackOriginality,
}
