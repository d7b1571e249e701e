package langdetect

import "testing"

func TestIsEnglish_ShortOrEmptyTextPasses(t *testing.T) {
	t.Parallel()

	cases := []string{"", "   ", "ok", "a1 b2", "12345"}
	for _, sample := range cases {
		if !IsEnglish(sample) {
			t.Fatalf("undetectable sample %q should pass the filter", sample)
		}
	}
}

func TestIsEnglish_DetectsLanguages(t *testing.T) {
	t.Parallel()

	english := "Autonomous agents are transforming the insurance industry with new claims workflows."
	if !IsEnglish(english) {
		t.Fatalf("clearly English text was rejected")
	}

	german := "Die Versicherungsbranche wird durch autonome Softwareagenten grundlegend verändert werden."
	if IsEnglish(german) {
		t.Fatalf("clearly German text was accepted")
	}
}
