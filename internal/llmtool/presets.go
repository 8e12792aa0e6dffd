package llmtool

// PromptPreset holds reusable constraints and rules for structured prompts.
type PromptPreset struct {
	Constraints []string
	Rules       []string
}

// ApplyPresets prepends preset constraints/rules to a structured prompt spec.
func ApplyPresets(spec StructuredPromptSpec, presets ...PromptPreset) StructuredPromptSpec {
	if len(presets) == 0 {
		return spec
	}
	var merged PromptPreset
	for _, p := range presets {
		merged.Constraints = append(merged.Constraints, p.Constraints...)
		merged.Rules = append(merged.Rules, p.Rules...)
	}
	spec.Constraints = append(merged.Constraints, spec.Constraints...)
	spec.Rules = append(merged.Rules, spec.Rules...)
	return spec
}

// PresetStrictJSON enforces strict JSON-only output.
func PresetStrictJSON() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Return strict JSON only.",
			"Match the schema exactly; no extra fields.",
			"No markdown, comments, or trailing commas.",
		},
	}
}

// PresetClosedCatalog forbids fabricated SKUs or price rows.
func PresetClosedCatalog() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Do not invent SKUs, suppliers, unit prices, or price rows; use only the provided catalog.",
		},
	}
}

// PresetCautious encourages explicit uncertainty.
func PresetCautious() PromptPreset {
	return PromptPreset{
		Rules: []string{
			"Avoid guessing; if unsure, set a low confidence, list the field in uncertain_fields, and raise a clarification question.",
		},
	}
}
