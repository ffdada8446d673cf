package inference

import (
	"fmt"
	"strings"
)

const suggestNameSystemPrompt = `You are an AI assistant that helps create standardized abbreviations and descriptions for technical keywords.
Use the retrieved context to generate a new abbreviation and a brief description for the user's keyword.
Ensure the description is concise (1 sentence) and clearly explains the meaning of the keyword.
Ensure the abbreviation is consistent in style and format with the provided examples.

CRITICAL GENERAL RULES:
1. Both Keywords and Abbreviations must have an uppercase initial. No more uppercase letters are permitted. For example, "ESC" or "esc" are not correct; "Esc" must be defined instead.

CRITICAL ABBREVIATION PREFERENCE (study the context examples carefully):
1. Word ending with "-ing" will have "-g" at the end of the abbreviation
   Examples: "Closing" -> "Clsg"
2. Word ending with "-ed" will have "-d" at the end of the abbreviation
   Examples: "Estimated" -> "Estimd"
3. Word ending with "-ion" will have "-n" at the end of the abbreviation
   Examples: "Estimation" -> "Estimn"
4. Word ending with "-tor" or "-er" will have "-r" at the end of the abbreviation
   Examples: "Estimator" -> "Estimr"
5. Remove vowels from the middle of words to shorten them
6. Preserve consonants that maintain recognizability
7. Study the retrieved context examples for patterns related to the keyword

OUTPUT FORMAT (JSON only):
{
  "abbreviation": "<suggested abbreviation, unique and different from any listed as already taken>",
  "description": "<suggested one-sentence description>",
  "explanation": "<why you chose this abbreviation, referencing the similar examples and the suffix conventions you followed>"
}

Do NOT include any text outside the JSON.`

// BuildSuggestNamePrompt returns the system and user messages for a SuggestName request.
func BuildSuggestNamePrompt(params SuggestNameRequest) (string, string) {
	var b strings.Builder

	b.WriteString("Context:\n")
	if len(params.Examples) == 0 {
		b.WriteString("(no similar keywords found)\n")
	}
	for _, example := range params.Examples {
		fmt.Fprintf(&b, "- Keyword: %s | Abbreviation: %s | Description: %s\n",
			example.Keyword, example.Abbreviation, example.Description)
	}

	if len(params.Avoid) > 0 {
		fmt.Fprintf(&b, "\nIMPORTANT: These abbreviations are already taken and must NOT be used: %s. Generate a DIFFERENT abbreviation.\n",
			strings.Join(params.Avoid, ", "))
	}

	fmt.Fprintf(&b, "\nUser's Keyword: %s", params.Keyword)
	return suggestNameSystemPrompt, b.String()
}
