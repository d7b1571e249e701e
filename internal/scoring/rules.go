package scoring

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed rules.schema.json
var rulesSchemaJSON string

// Rules holds the keyword sets and allowlists driving relevance scoring.
// They are configuration data: the defaults below ship with the binary and
// a RULES_FILE JSON document may replace any of the sets wholesale.
type Rules struct {
	AgentKeywords   []string `json:"agent_keywords"`
	FinanceKeywords []string `json:"finance_keywords"`
	ExcludeKeywords []string `json:"exclude_keywords"`
	PremiumDomains  []string `json:"premium_domains"`
}

// DefaultRules returns the built-in keyword sets for the AI-agents /
// finance-insurance beat.
func DefaultRules() Rules {
	return Rules{
		AgentKeywords: []string{
			"agent", "agents", "agentic",
			"autonomous", "autonomy",
			"multi-agent", "multi agent", "multiagent",
			"llm agent", "ai agent", "intelligent agent",
			"tool use", "tool-use", "tool calling",
			"function calling",
			"orchestration", "orchestrator",
			"planner", "planning",
			"reasoning", "chain-of-thought", "cot",
			"langchain", "langgraph", "autogen", "crewai",
			"agent framework", "agentic workflow",
			"agentic ai", "agentic system",
		},
		FinanceKeywords: []string{
			"fintech", "insurtech",
			"finance", "financial", "banking", "bank",
			"insurance", "insurer", "underwriting", "underwriter",
			"claims", "claim processing",
			"fraud", "fraud detection", "anti-fraud",
			"risk", "risk management", "risk assessment",
			"compliance", "regulatory", "regulation",
			"kyc", "aml", "know your customer", "anti-money laundering",
			"policy", "premium", "policyholder",
			"trading", "trader", "investment", "investing",
			"asset management", "wealth management",
			"credit", "lending", "loan",
			"payment", "payments", "transaction",
			"cryptocurrency", "crypto", "blockchain",
			"robo-advisor", "algorithmic trading",
		},
		ExcludeKeywords: []string{
			"sports", "sport", "football", "soccer", "basketball", "baseball",
			"celebrity", "celebrities", "gossip",
			"astrology", "horoscope",
			"entertainment", "movie", "film",
			"gaming", "video game", "esports",
			"fashion", "beauty",
			"recipe", "cooking",
			"travel agent", // not an AI agent
		},
		PremiumDomains: []string{
			"www.ft.com", "www.reuters.com", "www.bloomberg.com",
			"techcrunch.com", "www.finextra.com", "www.insurancejournal.com",
		},
	}
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// LoadRules returns the default rules, merged with the JSON document at
// path when one is given. The file is validated against the embedded
// schema; any set it provides replaces the corresponding default.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if strings.TrimSpace(path) == "" {
		return rules, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file %q: %w", path, err)
	}

	value, err := decodeStrictJSON(raw)
	if err != nil {
		return Rules{}, fmt.Errorf("decode rules file %q: %w", path, err)
	}

	compiled, err := loadSchema()
	if err != nil {
		return Rules{}, fmt.Errorf("load rules schema: %w", err)
	}
	if err := compiled.Validate(value); err != nil {
		return Rules{}, fmt.Errorf("rules file %q failed schema validation: %w", path, err)
	}

	var overrides Rules
	if err := json.Unmarshal(raw, &overrides); err != nil {
		return Rules{}, fmt.Errorf("unmarshal rules file %q: %w", path, err)
	}

	if len(overrides.AgentKeywords) > 0 {
		rules.AgentKeywords = overrides.AgentKeywords
	}
	if len(overrides.FinanceKeywords) > 0 {
		rules.FinanceKeywords = overrides.FinanceKeywords
	}
	if len(overrides.ExcludeKeywords) > 0 {
		rules.ExcludeKeywords = overrides.ExcludeKeywords
	}
	if len(overrides.PremiumDomains) > 0 {
		rules.PremiumDomains = overrides.PremiumDomains
	}
	return rules, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("rules.schema.json", strings.NewReader(rulesSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, err := compiler.Compile("rules.schema.json")
		if err != nil {
			schemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		schema = compiled
	})

	if schemaErr != nil {
		return nil, schemaErr
	}
	if schema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return schema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("document is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("document contains trailing content")
	}
	return value, nil
}
