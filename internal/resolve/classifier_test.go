package resolve

import (
	"testing"
)

func TestClassifyAddress(t *testing.T) {
	t.Parallel()

	// 44 characters, all base58: a plausible address, too long for a
	// symbol, and a medium-confidence name.
	c := Classify("8sbZehpLFcjCGk7vQGmBVbVVyih4pQLF6NuYnp61jXMF")

	if got, ok := c.Matches[TypeAddress]; !ok || got != ConfidenceHigh {
		t.Errorf("address confidence = %v, %v; want High", got, ok)
	}
	if _, ok := c.Matches[TypeSymbol]; ok {
		t.Error("symbol match present for 44-char input")
	}
	if got, ok := c.Matches[TypeName]; !ok || got != ConfidenceMedium {
		t.Errorf("name confidence = %v, %v; want Medium", got, ok)
	}
}

func TestClassifySymbol(t *testing.T) {
	t.Parallel()

	c := Classify("SOL")

	if _, ok := c.Matches[TypeAddress]; ok {
		t.Error("address match present for 3-char input")
	}
	if got, ok := c.Matches[TypeSymbol]; !ok || got != ConfidenceHigh {
		t.Errorf("symbol confidence = %v, %v; want High", got, ok)
	}
	if got, ok := c.Matches[TypeName]; !ok || got != ConfidenceLow {
		t.Errorf("name confidence = %v, %v; want Low", got, ok)
	}
}

func TestClassifyName(t *testing.T) {
	t.Parallel()

	c := Classify("Bonk inu!")

	if _, ok := c.Matches[TypeAddress]; ok {
		t.Error("address match present for non-base58 input")
	}
	if _, ok := c.Matches[TypeSymbol]; ok {
		t.Error("symbol match present for input with punctuation")
	}
	if got, ok := c.Matches[TypeName]; !ok || got != ConfidenceHigh {
		t.Errorf("name confidence = %v, %v; want High", got, ok)
	}
}

func TestClassifyTrimsInput(t *testing.T) {
	t.Parallel()

	c := Classify("  SOL  ")
	if c.Raw != "SOL" {
		t.Errorf("raw = %q, want SOL", c.Raw)
	}
	if got := c.Matches[TypeSymbol]; got != ConfidenceHigh {
		t.Errorf("symbol confidence = %v, want High", got)
	}
}

func TestClassifyEmpty(t *testing.T) {
	t.Parallel()

	c := Classify("")
	if len(c.Matches) != 0 {
		t.Errorf("matches = %v, want none", c.Matches)
	}
}

func TestClassifyBase58Alphabet(t *testing.T) {
	t.Parallel()

	// 0, I, O and l are excluded from base58.
	for _, bad := range []string{"0", "I", "O", "l"} {
		input := bad + "sbZehpLFcjCGk7vQGmBVbVVyih4pQLF6NuYnp61jXM"
		c := Classify(input)
		if _, ok := c.Matches[TypeAddress]; ok {
			t.Errorf("input with %q classified as address", bad)
		}
	}
}

func TestClassifyMediumSymbol(t *testing.T) {
	t.Parallel()

	c := Classify("LONGSYM10")
	if got := c.Matches[TypeSymbol]; got != ConfidenceMedium {
		t.Errorf("symbol confidence for 9 chars = %v, want Medium", got)
	}
}
