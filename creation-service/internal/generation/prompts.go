package generation

import (
	"fmt"
	"strings"

	"nicepods-server/creation-service/internal/models"
)

const draftSystemPrompt = `You are a podcast scriptwriter and researcher.
Write a spoken-word script for a single narrator based on the brief below.
Respond with a single JSON object and nothing else:
{"title": string, "script": string, "sources": [{"title": string, "url": string, "snippet": string, "origin": "vault" | "web"}]}
The script must fit the requested duration. Cite every source you relied on.`

const deepResearchAddendum = `
Research thoroughly: prefer primary sources, cross-check claims, and include at least three sources.`

const narrativeSystemPrompt = `You connect two ideas into podcast narratives.
Propose between two and four distinct narrative angles that link topic A to topic B.
Respond with a single JSON object and nothing else:
{"narratives": [{"title": string, "thesis": string}]}`

func draftPrompts(in models.DraftInputs) (system, user string) {
	system = draftSystemPrompt
	if in.DeepResearch {
		system += deepResearchAddendum
	}

	var b strings.Builder
	writeLine(&b, "Intent", in.Intent)
	writeLine(&b, "Topic", in.Topic)
	writeLine(&b, "Motivation", in.Motivation)
	writeLine(&b, "Archetype", in.Archetype)
	writeLine(&b, "Narrative", in.Narrative)
	writeLine(&b, "Tone", in.Tone)
	writeLine(&b, "Duration", in.Duration)
	writeLine(&b, "Depth", in.Depth)
	return system, b.String()
}

func narrativePrompts(req models.NarrativeRequest) (system, user string) {
	var b strings.Builder
	writeLine(&b, "Topic A", req.TopicA)
	writeLine(&b, "Topic B", req.TopicB)
	writeLine(&b, "Catalyst", req.Catalyst)
	return narrativeSystemPrompt, b.String()
}

func writeLine(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}
