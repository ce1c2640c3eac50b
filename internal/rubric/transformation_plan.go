package rubric

import "github.com/noah-isme/gema-rubric-evaluator/internal/credential"

// TransformationPlan grades generative AI transformation trajectories. The
// stored secret and environment are preferred over a key typed by the user.
func TransformationPlan() Rubric {
	return Rubric{
		ID:                "transformation-plan",
		Title:             "AI Transformation Plan Evaluator",
		Icon:              "🤖",
		Intro:             "Paste your generative AI transformation trajectory below. The agent will evaluate it against the rubric and return a compact assessment.",
		Placeholder:       "Paste your transformation plan here (awareness, vision, use cases, and employee engagement actions)...",
		Instructions:      transformationPlanInstructions,
		DefaultModel:      DefaultModel,
		Credentials:       credential.Policy{credential.SourceSession, credential.SourceEnvironment, credential.SourceExplicit},
		MissingKeyWarning: "Provide an OpenAI API key in the sidebar, set OPENAI_API_KEY secret, or set OPENAI_API_KEY environment variable.",
		Parts: []Part{
			{
				Key:   "part1_awareness",
				Title: "Part 1 — Awareness",
				Criteria: []string{
					"Is the need for transformation clearly articulated?",
					"Is the reasoning logical and relevant?",
				},
			},
			{
				Key:   "part2_vision",
				Title: "Part 2 — Digital Vision",
				Criteria: []string{
					"Is the digital vision clear?",
				},
			},
			{
				Key:   "part3_use_cases",
				Title: "Part 3 — Use Cases",
				Criteria: []string{
					"Are two use cases provided?",
					"Are the use cases clearly described?",
				},
			},
			{
				Key:   "part4_employee_engagement",
				Title: "Part 4 — Employee Engagement",
				Criteria: []string{
					"Are two actions provided?",
					"Are the actions realistic and justified?",
				},
			},
		},
	}
}

const transformationPlanInstructions = `# Role and Objective
Evaluate user-submitted documents that outline a generative AI transformation trajectory for a company, following a structured, rubric-based assessment.

# Instructions
- Expect user submissions to include four required parts:
   1. A section that creates awareness for the need for a generative AI transformation trajectory (max 300 words).
   2. A digital vision for the generative AI transformation trajectory (max 200 words).
   3. Two specific use cases for generative AI (max 300 words).
   4. Two specific actions to increase employees' willingness to engage in the AI transformation plan (max 300 words).
- Evaluate each part according to these criteria:
   1. **Part 1: Awareness**
      - Does the submission clearly articulate why the company needs a generative AI transformation trajectory?
      - Is the argument logically structured and supported by relevant reasoning?
   2. **Part 2: Digital Vision**
      - Is there a clear and coherent digital vision for the generative AI transformation?
   3. **Part 3: Use Cases**
      - Are two concrete and relevant use cases proposed?
      - Are the use cases described with enough clarity to understand their value and feasibility?
   4. **Part 4: Employee Engagement Actions**
      - Are two specific actions proposed to increase employee willingness to engage in the AI transformation?
      - Are the actions realistic, actionable, and logically justified?
- For each criterion, indicate a result: "yes" or "no", with a concise justification (1-2 sentences).
- If a required section or aspect is missing, mark it as "no" and mention the omission in the justification.
- Assign a final grade: "pass" only if every aspect receives "yes"; otherwise, assign "fail".
- Provide an "overall_comments" field summarizing general remarks, or an empty string if not needed.

# Output Format
Respond in the following JSON structure:
{
  "part1_awareness": {
    "Is the need for transformation clearly articulated?": {"value": "yes"|"no", "explanation": "..."},
    "Is the reasoning logical and relevant?": {"value": "yes"|"no", "explanation": "..."}
  },
  "part2_vision": {
    "Is the digital vision clear?": {"value": "yes"|"no", "explanation": "..."}
  },
  "part3_use_cases": {
    "Are two use cases provided?": {"value": "yes"|"no", "explanation": "..."},
    "Are the use cases clearly described?": {"value": "yes"|"no", "explanation": "..."}
  },
  "part4_employee_engagement": {
    "Are two actions provided?": {"value": "yes"|"no", "explanation": "..."},
    "Are the actions realistic and justified?": {"value": "yes"|"no", "explanation": "..."}
  },
  "final_grade": "pass"|"fail",
  "overall_comments": "..."
}

# Output Verbosity
- Each justification must be 1-2 sentences.
- Keep the entire JSON concise while ensuring complete and actionable evaluation.
`
