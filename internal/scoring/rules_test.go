package scoring

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules file: %v", err)
	}
	return path
}

func TestLoadRules_EmptyPathReturnsDefaults(t *testing.T) {
	t.Parallel()

	rules, err := LoadRules("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defaults := DefaultRules()
	if len(rules.AgentKeywords) != len(defaults.AgentKeywords) {
		t.Fatalf("expected default agent keywords, got %d", len(rules.AgentKeywords))
	}
	if len(rules.PremiumDomains) != len(defaults.PremiumDomains) {
		t.Fatalf("expected default premium domains, got %d", len(rules.PremiumDomains))
	}
}

func TestLoadRules_FileOverridesOnlyProvidedSets(t *testing.T) {
	t.Parallel()

	path := writeRulesFile(t, `{"agent_keywords": ["copilot", "assistant"]}`)

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules.AgentKeywords) != 2 || rules.AgentKeywords[0] != "copilot" {
		t.Fatalf("agent keywords should be replaced, got %v", rules.AgentKeywords)
	}

	defaults := DefaultRules()
	if len(rules.FinanceKeywords) != len(defaults.FinanceKeywords) {
		t.Fatalf("finance keywords should keep defaults, got %d", len(rules.FinanceKeywords))
	}
	if len(rules.ExcludeKeywords) != len(defaults.ExcludeKeywords) {
		t.Fatalf("exclude keywords should keep defaults, got %d", len(rules.ExcludeKeywords))
	}
}

func TestLoadRules_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	path := writeRulesFile(t, `{"agent_keywords": ["agent"], "bogus": true}`)
	if _, err := LoadRules(path); err == nil {
		t.Fatalf("expected schema validation error for unknown key")
	}
}

func TestLoadRules_RejectsEmptySet(t *testing.T) {
	t.Parallel()

	path := writeRulesFile(t, `{"finance_keywords": []}`)
	if _, err := LoadRules(path); err == nil {
		t.Fatalf("expected schema validation error for empty keyword set")
	}
}

func TestLoadRules_RejectsNonStringEntries(t *testing.T) {
	t.Parallel()

	path := writeRulesFile(t, `{"exclude_keywords": ["ok", 7]}`)
	if _, err := LoadRules(path); err == nil {
		t.Fatalf("expected schema validation error for non-string entry")
	}
}

func TestLoadRules_RejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	path := writeRulesFile(t, `{"agent_keywords": ["agent"`)
	if _, err := LoadRules(path); err == nil {
		t.Fatalf("expected decode error for malformed JSON")
	}
}

func TestLoadRules_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing rules file")
	}
}
