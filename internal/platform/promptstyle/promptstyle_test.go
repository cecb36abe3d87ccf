package promptstyle

import (
	"strings"
	"testing"
)

func TestApplySystem(t *testing.T) {
	got := ApplySystem("Evaluate the explanation below.\nReturn JSON.", "json")
	for _, want := range []string{marker, "Task summary: Evaluate the explanation below.", modeRules["json"], "---\nEvaluate the explanation below."} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
	if again := ApplySystem(got, "json"); again != got {
		t.Fatalf("preamble applied twice")
	}
	if ApplySystem("  ", "json") != "" {
		t.Fatalf("blank prompt should stay blank")
	}
	if !strings.Contains(ApplySystem("x", "yaml"), modeRules["text"]) {
		t.Fatalf("unknown mode should fall back to text rules")
	}
}
