package inference

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// DecodeSuggestion extracts a suggestion from raw model output.
// It accepts a JSON object, possibly wrapped in code fences or surrounding text,
// and falls back to "Abbreviation: ..." / "Description: ..." lines.
func DecodeSuggestion(content string) (SuggestNameResponse, error) {
	var decoded SuggestNameResponse

	if block := extractJSONObject(stripCodeFences(content)); block != "" {
		if !gjson.Valid(block) {
			return SuggestNameResponse{}, fmt.Errorf("%w: json.Unmarshal(%s) > malformed object", ErrInvalidOutput, block)
		}
		if err := json.Unmarshal([]byte(block), &decoded); err != nil {
			return SuggestNameResponse{}, fmt.Errorf("%w: json.Unmarshal(%s) > %w", ErrInvalidOutput, block, err)
		}
	} else {
		decoded = decodeLabeledLines(content)
	}

	decoded.Abbreviation = strings.TrimSpace(decoded.Abbreviation)
	decoded.Description = strings.TrimSpace(decoded.Description)
	decoded.Explanation = strings.TrimSpace(decoded.Explanation)
	if decoded.Abbreviation == "" {
		return SuggestNameResponse{}, fmt.Errorf("%w: no abbreviation in %q", ErrInvalidOutput, content)
	}
	return decoded, nil
}

func decodeLabeledLines(content string) SuggestNameResponse {
	var decoded SuggestNameResponse
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		label, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"*`)
		switch strings.ToLower(strings.Trim(strings.TrimSpace(label), "*- ")) {
		case "abbreviation":
			decoded.Abbreviation = value
		case "description":
			decoded.Description = value
		case "explanation":
			decoded.Explanation = value
		}
	}
	return decoded
}

func stripCodeFences(s string) string {
	lines := strings.Split(s, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		result = append(result, line)
	}
	return strings.Join(result, "\n")
}

// extractJSONObject returns the first balanced {...} block, ignoring braces inside strings.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	// Unbalanced: hand back the tail so the JSON error names the truncation
	return s[start:]
}
