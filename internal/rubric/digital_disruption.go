package rubric

import "github.com/noah-isme/gema-rubric-evaluator/internal/credential"

// DigitalDisruption grades three-step digital disruption analyses. It only
// accepts the stored deployment secret.
func DigitalDisruption() Rubric {
	return Rubric{
		ID:           "digital-disruption",
		Title:        "Digital Disruption Evaluator",
		Icon:         "🧭",
		Intro:        "Paste your assignment text below. The agent will evaluate it against the rubric and return a compact assessment.",
		Placeholder:  "Paste the full document here (BMC, disruptors, and strategies)...",
		Instructions: digitalDisruptionInstructions,
		DefaultModel: DefaultModel,
		Credentials:  credential.Policy{credential.SourceSession},
		Parts: []Part{
			{
				Key:   "part1",
				Title: "Part 1 — Business Model",
				Criteria: []string{
					"Clear business canvas model description provided?",
					"Are all canvas parts mentioned?",
				},
			},
			{
				Key:   "part2",
				Title: "Part 2 — Disruptors",
				Criteria: []string{
					"Are two disruptors identified?",
					"Is disruptors' relevance explained?",
				},
			},
			{
				Key:   "part3",
				Title: "Part 3 — Strategies",
				Criteria: []string{
					"Are all strategies discussed?",
					"Are pros and cons provided for each strategy?",
				},
			},
		},
	}
}

const digitalDisruptionInstructions = `# Role and Objective
Evaluate user-submitted documents analyzing a company's digital disruption scenario in three structured steps, providing a detailed, rubric-based assessment.

# Instructions
- Expect user submissions to include three main parts:
   1. A detailed business model description, structured using the business model canvas methodology.
   2. Descriptions of two digital disruptors, including: what they do, why they are disruptive, and their disruption strategies.
   3. Strategies for the company to either team up, fight back, or escape, each with explanations and pros/cons.
- Evaluate each part according to these criteria:
   1. **Part 1:**
      - Is the business model description clear and logical?
      - Are all components of the business model canvas mentioned?
   2. **Part 2:**
      - Has the user identified two relevant digital disruptors?
      - Are their relevance and disruptive nature clearly explained?
   3. **Part 3:**
      - Are all three strategies (team up, fight back, escape) discussed?
      - Are both advantages and disadvantages presented for each strategy, with logical reasoning?
- For each criterion, indicate a result: "yes" or "no", with a concise (1-2 sentences) justification.
- If a required section or aspect is missing, mark it as "no" and state the omission in the justification.
- Assign a final grade: "pass" only if every aspect receives "yes"; otherwise, assign "fail".
- Provide an 'overall_comments' field with summary remarks as needed, or an empty string if not applicable.

# Output Format
Respond in the following JSON format:
{
  "part1": {
    "Clear business canvas model description provided?": {"value": "yes"|"no", "explanation": "..."},
    "Are all canvas parts mentioned?": {"value": "yes"|"no", "explanation": "..."}
  },
  "part2": {
    "Are two disruptors identified?": {"value": "yes"|"no", "explanation": "..."},
    "Is disruptors' relevance explained?": {"value": "yes"|"no", "explanation": "..."}
  },
  "part3": {
    "Are all strategies discussed?": {"value": "yes"|"no", "explanation": "..."},
    "Are pros and cons provided for each strategy?": {"value": "yes"|"no", "explanation": "..."}
  },
  "final_grade": "pass"|"fail",
  "overall_comments": "..."
}

# Output Verbosity
- For each justification, respond with 1–2 sentences only.
- Ensure the entire JSON does not include explanations exceeding these targets.
- Prioritize complete, actionable answers within these length limits.
`
