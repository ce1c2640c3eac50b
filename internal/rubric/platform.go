package rubric

import "github.com/noah-isme/gema-rubric-evaluator/internal/credential"

// Platform grades two-sided platform proposals for OMR.
func Platform() Rubric {
	return Rubric{
		ID:                "platform",
		Title:             "Platform Evaluator",
		Icon:              "🔄",
		Intro:             "Paste your two-sided platform proposal for OMR below. The agent will evaluate it against the rubric and return a compact assessment.",
		Placeholder:       "Paste your platform proposal here (core interactions/actors, chicken-egg solution, and monetization strategy)...",
		Instructions:      platformInstructions,
		DefaultModel:      DefaultModel,
		Credentials:       credential.Policy{credential.SourceExplicit, credential.SourceEnvironment},
		MissingKeyWarning: "Provide an OpenAI API key in the sidebar or set OPENAI_API_KEY.",
		Parts: []Part{
			{
				Key:   "part1_interactions_actors",
				Title: "Part 1 — Core Interactions and Actors",
				Criteria: []string{
					"Are the core platform interactions described clearly?",
					"Are producer and consumer groups identified and connected logically?",
				},
			},
			{
				Key:   "part2_chicken_egg",
				Title: "Part 2 — Solving the Chicken or Egg Problem",
				Criteria: []string{
					"Is there a concrete strategy to solve the chicken or egg problem?",
				},
			},
			{
				Key:   "part3_monetization",
				Title: "Part 3 — Monetization Strategy",
				Criteria: []string{
					"Is a realistic monetization model proposed?",
				},
			},
		},
	}
}

const platformInstructions = `# Role and Objective
Evaluate user-submitted documents that propose a two sided platform idea for OMR. Assess each required section using a clear, rubric-based approach.

# Instructions
- Expect user submissions to include three required parts:
   1. A description of the core interactions on the platform and the key actors involved as producers and consumers (max 200 words).
   2. An explanation of how OMR could solve the chicken or egg problem for this platform (max 200 words).
   3. A description of how OMR can best monetize this platform (max 200 words).
- Evaluate each part according to these criteria:
   1. **Part 1: Core interactions and actors**
      - Does the submission clearly describe the central interactions taking place on the platform?
      - Are the producer and consumer groups accurately identified and logically connected to the proposed interactions?
   2. **Part 2: Solving the chicken or egg problem**
      - Is there a concrete strategy for overcoming the platform's initial user imbalance?
   3. **Part 3: Monetization strategy**
      - Is at least one realistic monetization model proposed for the platform?
- For each criterion, assign a result: "yes" or "no", with a concise justification of 1-2 sentences.
- Mark missing sections or missing aspects with "no" and note the omission in the explanation.
- Assign a final grade: "pass" only if every criterion receives "yes"; otherwise, assign "fail".
- Include an "overall_comments" field summarizing feedback or leave it as an empty string.

# Output Format
Respond in the following JSON structure:
{
  "part1_interactions_actors": {
    "Are the core platform interactions described clearly?": {"value": "yes"|"no", "explanation": "..."},
    "Are producer and consumer groups identified and connected logically?": {"value": "yes"|"no", "explanation": "..."}
  },
  "part2_chicken_egg": {
    "Is there a concrete strategy to solve the chicken or egg problem?": {"value": "yes"|"no", "explanation": "..."}
  },
  "part3_monetization": {
    "Is a realistic monetization model proposed?": {"value": "yes"|"no", "explanation": "..."}
  },
  "final_grade": "pass"|"fail",
  "overall_comments": "..."
}

# Output Verbosity
- Keep each justification to 1-2 sentences.
- Ensure the JSON remains complete and succinct.
`
