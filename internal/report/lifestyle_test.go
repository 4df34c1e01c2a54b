package report

import (
	"strings"
	"testing"
)

func TestTopLifestyleRisks(t *testing.T) {
	risks := []LifestyleRisk{
		{Trait: "a", Percentile: 10},
		{Trait: "b", Percentile: 90},
		{Trait: "c", Percentile: 50},
		{Trait: "d", Percentile: 70},
		{Trait: "e", Percentile: 30},
		{Trait: "f", Percentile: 80},
	}
	top := TopLifestyleRisks(risks, LifestyleTopN)
	var names []string
	for _, r := range top {
		names = append(names, r.Trait)
	}
	if strings.Join(names, "") != "bfdce" {
		t.Fatalf("top = %v", names)
	}
	if risks[0].Trait != "a" {
		t.Fatal("input must not be reordered")
	}
}

func TestFormatLifestyleSection(t *testing.T) {
	top := []LifestyleRisk{
		{Trait: "Body mass index (BMI)", Percentile: 95, HealthRisk: "high", FinalScore: 1.23456},
		{Trait: "Sleep duration", Percentile: 40, HealthRisk: "low", FinalScore: 0.5},
	}
	advice := map[string]string{"body_mass_index": "Walk daily."}
	got := FormatLifestyleSection(top, advice)
	for _, want := range []string{
		"\n\n" + LifestyleHeader + "\n\n",
		"top 2 lifestyle-related",
		"**Body mass index (BMI)**\n- Risk Score: 1.2346\n- Percentile: 0.95\n- Walk daily.\n\n",
		"**Sleep duration**\n- Risk Score: 0.5000\n- Percentile: 0.40\n- This factor shows favorable levels.",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("section missing %q:\n%s", want, got)
		}
	}
}

func TestAdviceForTraitFallbacks(t *testing.T) {
	if got := AdviceForTrait("X", "HIGH", nil); !strings.Contains(got, "elevated") {
		t.Fatalf("high fallback = %q", got)
	}
	if got := AdviceForTrait("X", "medium", nil); !strings.Contains(got, "requires attention") {
		t.Fatalf("medium fallback = %q", got)
	}
}

func TestParseAdvice(t *testing.T) {
	got, err := ParseAdvice("Here you go:\n```json\n{\"bmi\": \"Eat less.\", \"n\": 1}\n```")
	if err != nil {
		t.Fatalf("ParseAdvice: %v", err)
	}
	if len(got) != 1 || got["bmi"] != "Eat less." {
		t.Fatalf("unexpected advice %v", got)
	}
	if _, err := ParseAdvice("no json here"); err == nil {
		t.Fatal("expected error without JSON object")
	}
}
