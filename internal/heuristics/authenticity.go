package heuristics

import (
	"regexp"
	"sort"
)

// framework describes how an AI framework shows up in source code. Weight
// reflects implementation depth: 1.0 for training-level frameworks down to
// 0.5 for hosted API usage.
type framework struct {
	name     string
	imports  []*regexp.Regexp
	basic    []*regexp.Regexp
	advanced []*regexp.Regexp
	weight   float64
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?im)` + e)
	}
	return out
}

var frameworks = []framework{
	{
		name:    "tensorflow",
		imports: patterns(`import\s+tensorflow`, `import\s+tf`, `from\s+tensorflow`),
		basic: patterns(`model\s*=\s*tf`, `keras\.Sequential`, `keras\.layers`, `keras\.Model`,
			`tf\.keras`, `Sequential\s*\(\s*\)`),
		advanced: patterns(`class\s+\w+\s*\(\s*tf\.keras\.Model\s*\)`, `tf\.GradientTape`,
			`@tf\.function`, `custom_training_loop`, `tf\.data\.Dataset`),
		weight: 1.0,
	},
	{
		name:    "pytorch",
		imports: patterns(`import\s+torch`, `from\s+torch`),
		basic: patterns(`torch\.nn`, `nn\.`, `torch\.optim`, `model\.forward`, `torch\.utils\.data`,
			`Module\s*\(`, `Linear\s*\(`),
		advanced: patterns(`class\s+\w+\s*\(\s*nn\.Module\s*\)`, `torch\.autograd`,
			`@torch\.jit\.script`, `custom_loss`, `torch\.cuda`),
		weight: 1.0,
	},
	{
		name:    "transformers",
		imports: patterns(`from\s+transformers`, `import\s+transformers`),
		basic: patterns(`AutoModel\s*\.`, `AutoTokenizer\s*\.`, `pipeline\s*\(`, `from_pretrained\s*\(`,
			`PreTrainedModel\s*\(`, `transformers\.`),
		advanced: patterns(`class\s+\w+\s*\(\s*PreTrainedModel\s*\)`, `custom_head`, `trainer\.train`,
			`model\.train`, `custom_tokens`),
		weight: 0.9,
	},
	{
		name:    "openai",
		imports: patterns(`import\s+openai`, `from\s+openai`, `OpenAI`, `import\s*\{\s*Configuration,\s*OpenAIApi\s*\}`),
		basic: patterns(`openai\.Completion\.create`, `openai\.ChatCompletion\.create`, `new\s+OpenAI\s*\(\s*\)`,
			`OpenAIApi`, `gpt-4`, `gpt-3\.5-turbo`, `createChatCompletion`, `createCompletion`),
		advanced: patterns(`fine_tuning`, `custom_prompts`, `system_messages`, `context_window`, `token_handling`),
		weight:   0.5,
	},
	{
		name:    "langchain",
		imports: patterns(`from\s+langchain`, `import\s+langchain`, `import\s*\{\s*LangChain\s*\}`),
		basic: patterns(`LLMChain`, `PromptTemplate`, `ChatPromptTemplate`, `VectorStore`, `Embeddings`,
			`BaseLanguageModel`),
		advanced: patterns(`custom_chain`, `custom_agent`, `custom_tool`, `memory_implementation`, `custom_retriever`),
		weight:   0.7,
	},
	{
		name:     "rig",
		imports:  patterns(`use rig`, `from rig`),
		basic:    patterns(`CompletionModel`, `EmbeddingModel`, `Agent`, `VectorStore`),
		advanced: patterns(`custom_provider`, `custom_model`, `custom_agent`, `custom_store`, `custom_embedding`),
		weight:   0.8,
	},
}

// Authenticity is the result of the AI framework scan.
type Authenticity struct {
	Score float64
	// Frameworks holds the best per-file score of every framework seen.
	Frameworks map[string]float64
	// Detected lists the frameworks counted as implemented, sorted.
	Detected []string
}

// AuthenticityScore scans the sources under root for AI framework usage.
func AuthenticityScore(root string) (*Authenticity, error) {
	files, err := LoadSources(root)
	if err != nil {
		return nil, err
	}
	return DetectAuthenticity(files), nil
}

// DetectAuthenticity scores how deeply the files implement AI frameworks:
// 1.0 for custom models and training, around 0.5 for plain API calls, 0
// when no framework is used.
func DetectAuthenticity(files []SourceFile) *Authenticity {
	a := &Authenticity{Frameworks: map[string]float64{}}
	detected := map[string]bool{}

	for _, f := range files {
		for _, fw := range frameworks {
			imported := anyMatch(f.Content, fw.imports)
			score := 0.0
			if imported {
				score += 0.2
			}
			score += min(0.3, 0.1*float64(countMatches(f.Content, fw.basic)))
			score += min(0.5, 0.1*float64(countMatches(f.Content, fw.advanced)))
			score *= fw.weight
			if score <= 0 {
				continue
			}
			a.Frameworks[fw.name] = max(a.Frameworks[fw.name], score)
			if imported || score > 0.2 {
				detected[fw.name] = true
			}
		}
	}
	if len(detected) == 0 {
		return a
	}
	for name := range detected {
		a.Detected = append(a.Detected, name)
	}
	sort.Strings(a.Detected)

	sum := 0.0
	for _, s := range a.Frameworks {
		sum += s
	}
	avg := sum / float64(len(a.Frameworks))
	a.Score = min(1, (implementationDepth(a.Detected)+avg)/2)
	return a
}

// implementationDepth is the mean weight of the detected frameworks with a
// bonus for combining several of them.
func implementationDepth(detected []string) float64 {
	total := 0.0
	for _, fw := range frameworks {
		for _, name := range detected {
			if fw.name == name {
				total += fw.weight
			}
		}
	}
	depth := total / float64(len(detected))
	switch {
	case len(detected) >= 3:
		depth *= 1.4
	case len(detected) == 2:
		depth *= 1.2
	}
	return min(1, depth)
}

func anyMatch(content []byte, res []*regexp.Regexp) bool {
	for _, re := range res {
		if re.Match(content) {
			return true
		}
	}
	return false
}

func countMatches(content []byte, res []*regexp.Regexp) int {
	n := 0
	for _, re := range res {
		if re.Match(content) {
			n++
		}
	}
	return n
}
