package llm

import "strings"

// SystemPrompt frames the model as an auditor
const SystemPrompt = "You are an expert Senior UX Auditor and Behavioral Scientist specializing in dark patterns and ethical design. You answer only with JSON matching the requested schema."

// auditInstructions is the fixed audit task sent with every image
var auditInstructions = []string{
	"Analyze this user interface screenshot for deceptive design patterns (dark patterns) that manipulate users into decisions against their interests.",
	"",
	"For each dark pattern you find:",
	"1. Identify the pattern by its established name (e.g. Confirmshaming, Fake Urgency, Roach Motel, Hidden Costs, Preselection, Nagging) and describe how it appears on this screen.",
	"2. Locate it with a bounding box [ymin, xmin, ymax, xmax] on a 0-1000 scale relative to the image, where 0,0 is the top-left corner.",
	"3. Explain the psychology: the cognitive bias exploited, its effect on the user's decision, and the emotion it targets.",
	"4. Propose an ethical redesign: a concrete suggestion, the design principle it restores, and its expected impact on user trust.",
	"",
	"Rate each finding's severity as High, Medium or Low and give your confidence from 0 to 100.",
	"Provide an overall trust score (0-100, higher is more trustworthy) and a dark pattern risk score (0-100, higher is riskier) for the whole screen.",
	"List regulatory risks the patterns may trigger (for example GDPR consent rules, the EU Digital Services Act, FTC guidance on negative option marketing), or an empty list if none apply.",
	"Write a short executive summary for a product team.",
	"",
	"If no dark patterns are found, return an empty detections list, provide a high trust score and note the good practices in the summary.",
}

// BuildPrompt returns the audit prompt
func BuildPrompt() string {
	return strings.Join(auditInstructions, "\n")
}

// withSchema appends the JSON Schema for providers without native structured output
func withSchema(prompt, schemaJSON string) string {
	return prompt + "\n\nRespond with a single JSON object, without Markdown, that validates against this JSON Schema:\n" + schemaJSON
}
