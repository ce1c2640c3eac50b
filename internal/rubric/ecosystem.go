package rubric

import "github.com/noah-isme/gema-rubric-evaluator/internal/credential"

// Ecosystem grades analyses built on Ron Adner's ecosystem framework.
func Ecosystem() Rubric {
	return Rubric{
		ID:                "ecosystem",
		Title:             "Ecosystem Evaluator",
		Icon:              "🌐",
		Intro:             "Paste your ecosystem analysis below. The agent will evaluate it against Ron Adner's ecosystem framework and return a compact assessment.",
		Placeholder:       "Paste your ecosystem analysis here (complementors/intermediaries, MVE, and risks)...",
		Instructions:      ecosystemInstructions,
		DefaultModel:      DefaultModel,
		Credentials:       credential.Policy{credential.SourceExplicit, credential.SourceEnvironment},
		MissingKeyWarning: "Provide an OpenAI API key in the sidebar or set OPENAI_API_KEY.",
		Parts: []Part{
			{
				Key:   "part1_complementors_intermediaries",
				Title: "Part 1 — Core Complementors and Intermediaries",
				Criteria: []string{
					"Are key complementors and intermediaries identified?",
				},
			},
			{
				Key:   "part2_mve",
				Title: "Part 2 — Minimal Viable Ecosystem (MVE)",
				Criteria: []string{
					"Is the minimal viable ecosystem defined?",
				},
			},
			{
				Key:   "part3_risks",
				Title: "Part 3 — Core Ecosystem Risks",
				Criteria: []string{
					"Are core ecosystem risks identified?",
				},
			},
		},
	}
}

const ecosystemInstructions = `# Role and Objective
Evaluate user-submitted documents that apply Ron Adner's ecosystem framework to a digital business model, following a structured, rubric-based assessment.

# Instructions
- Expect user submissions to include three required parts:
   1. A description of the core complementors and intermediaries in the ecosystem.
   2. A definition of the minimal viable ecosystem (MVE) for the digital business model.
   3. An analysis of the core ecosystem risks.
- Evaluate each part according to these criteria:
   1. **Part 1: Core complementors and intermediaries**
      - Does the submission identify the key complementors and intermediaries relevant to the business model?
   2. **Part 2: Minimal viable ecosystem**
      - Is the minimal viable ecosystem clearly defined, outlining the essential partners required for successful value proposition delivery?
   3. **Part 3: Core ecosystem risks**
      - Are the major ecosystem risks identified, such as adoption chain risk, co-innovation risk, or execution risk?
- For each criterion, indicate a result: "yes" or "no", with a concise justification of 1-2 sentences.
- If a required section or aspect is missing, mark it as "no" and state the omission in the justification.
- Assign a final grade: "pass" only if every aspect receives "yes"; otherwise, assign "fail".
- Provide an "overall_comments" field summarizing general feedback, or an empty string if not applicable.

# Output Format
Respond in the following JSON structure:
{
  "part1_complementors_intermediaries": {
    "Are key complementors and intermediaries identified?": {"value": "yes"|"no", "explanation": "..."}
  },
  "part2_mve": {
    "Is the minimal viable ecosystem defined?": {"value": "yes"|"no", "explanation": "..."}
  },
  "part3_risks": {
    "Are core ecosystem risks identified?": {"value": "yes"|"no", "explanation": "..."}
  },
  "final_grade": "pass"|"fail",
  "overall_comments": "..."
}

# Output Verbosity
- Each justification must be 1-2 sentences.
- Ensure the JSON remains concise while fully addressing the evaluation criteria.
`
