// Package prompt builds the system/user prompt pair sent to the completion
// gateway. Building is pure: the same task and text always yield the same pair.
package prompt

import (
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
)

const (
	ClassifyTextLimit = 8000
	AnalyzeTextLimit  = 12000
)

type Pair struct {
	System string
	User   string
}

func Build(task domain.AnalysisTask, text string) Pair {
	switch task.Kind {
	case domain.TaskAnalyze:
		return Pair{
			System: analyzeSystemPrompt,
			User:   buildAnalyzeUserPrompt(task.Jurisdiction, Truncate(text, AnalyzeTextLimit)),
		}
	default:
		return Pair{
			System: classifySystemPrompt,
			User:   classifyUserPreamble + Truncate(text, ClassifyTextLimit),
		}
	}
}

// TextLimit returns the number of characters of document text embedded for task.
func TextLimit(task domain.AnalysisTask) int {
	if task.Kind == domain.TaskAnalyze {
		return AnalyzeTextLimit
	}
	return ClassifyTextLimit
}

// Truncate keeps at most limit characters of text without splitting a rune.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(text) <= limit {
		return text
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	count := 0
	for idx := range text {
		if count == limit {
			return text[:idx]
		}
		count++
	}
	return text
}

const strictJSONRule = "Respond only with strict JSON. No markdown fencing. No surrounding prose before or after the JSON object."

const classifySystemPrompt = `You are a document classifier. Decide whether the provided document text is a Power of Attorney (POA) document.
` + strictJSONRule + `
JSON shape:
{
  "isPOA": boolean,            // true if the document is a Power of Attorney, false otherwise
  "poaType": string | null,    // when isPOA is true, the kind of POA (e.g. "Durable Power of Attorney", "Medical Power of Attorney", "Financial Power of Attorney", "General Power of Attorney"); null when isPOA is false
  "confidence": string         // one of "high", "medium", "low"
}
Every key must be present.`

const classifyUserPreamble = "Determine whether the following document text is a Power of Attorney document:\n\n"

const analyzeSystemPrompt = `You are a paralegal assistant reviewing Power of Attorney (POA) documents.
You are not a lawyer and you do not give legal advice.
You receive the raw text of a POA and the U.S. state it is meant for.
` + strictJSONRule + `
JSON shape:
{
  "extractedFields": {
    "principalAddress": string | null,   // address of the principal (the person granting authority)
    "agentAddress": string | null,       // address of the agent(s)
    "principalName": string | null,      // full legal name of the principal
    "agentNames": string[],              // every appointed agent name
    "successorAgents": string[],         // successor or alternate agent names; empty array when none
    "stateJurisdiction": string[],       // every state or jurisdiction referenced in the document
    "executionDate": string | null,      // date the principal signed
    "notarizationDate": string | null,   // date of notarization
    "signatureDetected": boolean         // whether handwritten signatures appear to be present
  },
  "summary": string,                     // brief summary of the POA
  "overallAssessment": string,           // short view of whether it appears compliant for that state
  "strengths": string[],                 // what looks complete or compliant
  "issues": string[],                    // what seems missing, inconsistent or risky
  "recommendations": string[],           // concrete suggestions for what to fix or add
  "disclaimer": string                   // clear statement that this is not legal advice
}
Every key must be present. Use null or an empty array when a value cannot be found; never omit a key.
Extraction guidance for extractedFields:
- Addresses: look near the "principal" and "agent" keywords.
- Names: look after "I, [Name]" and on signature lines.
- Agents: look for "appoint", "designate", "agent", "attorney-in-fact"; do not include successor or alternate agents.
- Successor agents: look for "successor", "alternate", "if [agent] cannot serve".
- Jurisdiction: look for "State of [X]", "under the laws of [X]", or addresses.
- Dates: look near "Signed", "Dated", and in notary sections.
- Signatures: only detect presence.`

func buildAnalyzeUserPrompt(jurisdiction, text string) string {
	var b strings.Builder
	b.Grow(len(text) + 512)
	b.WriteString("State: ")
	b.WriteString(jurisdiction)
	b.WriteString("\n\n")
	b.WriteString("The following text is from a Power of Attorney document. ")
	b.WriteString("Analyze it according to the schema above, focusing on whether it appears to follow the rules and format for this state ")
	b.WriteString("and what might need to be corrected or added.\n\n")
	b.WriteString("POA text:\n")
	b.WriteString(text)
	return b.String()
}
