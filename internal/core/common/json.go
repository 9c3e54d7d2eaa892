package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParse marks failures in the parse-failure category: the model answered
// but the payload could not be turned into the requested shape, even after
// the repair pass.
var ErrParse = errors.New("unparseable model output")

var (
	fenceRe         = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	hugeNumberRe    = regexp.MustCompile(`(:\s*-?\d{12})\d+`)
)

// CleanResponse strips the wrappers and artifacts models habitually put
// around JSON: markdown code fences, prose before the first brace and after
// the last closer, trailing commas before a closing bracket, and improbably
// large integer literals (models sometimes emit timestamps with runaway
// digits) which get truncated to 12 digits so they survive unmarshalling.
func CleanResponse(response string) string {
	s := strings.TrimSpace(response)

	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	} else if i := strings.Index(s, "```"); i >= 0 {
		// Fence somewhere mid-text: keep the fenced body.
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			s = strings.TrimSpace(rest[:j])
		} else {
			s = strings.TrimSpace(rest)
		}
	}

	// Trim prose before the outermost object or array. Trailing prose is
	// handled in ParseJSON: cutting at the last closer here would destroy
	// the truncated payloads the repair pass exists for.
	if start := strings.IndexAny(s, "{["); start > 0 {
		s = s[start:]
	}

	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = hugeNumberRe.ReplaceAllString(s, "$1")
	return s
}

// trimAfterLastCloser drops anything after the last closing brace or
// bracket, for responses that append prose after a complete document.
func trimAfterLastCloser(s string) string {
	if end := strings.LastIndexAny(s, "}]"); end >= 0 && end < len(s)-1 {
		return s[:end+1]
	}
	return s
}

// RepairJSON closes a truncated JSON document in a single left-to-right scan:
// an unterminated string is closed, a dangling trailing separator is patched
// up, then every still-open brace or bracket is closed in reverse order. It
// fixes no keys and invents no values beyond a null after a cut-off colon;
// input that is broken in other ways comes back unchanged in meaning.
func RepairJSON(s string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if n := len(stack); n > 0 && stack[n-1] == '{' {
				stack = stack[:n-1]
			}
		case ']':
			if n := len(stack); n > 0 && stack[n-1] == '[' {
				stack = stack[:n-1]
			}
		}
	}

	// Truncation right after a separator would make the appended closers
	// invalid: drop a dangling comma, give a dangling colon a null value.
	if !inString {
		trimmed := strings.TrimRight(s, " \t\r\n")
		switch {
		case strings.HasSuffix(trimmed, ","):
			s = trimmed[:len(trimmed)-1]
		case strings.HasSuffix(trimmed, ":"):
			s = trimmed + " null"
		}
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		if escaped {
			// Truncated mid-escape; the dangling backslash would swallow the
			// closing quote.
			b.WriteByte('\\')
		}
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// ParseJSON cleans and unmarshals a model response into T. On parse failure
// it runs the repair pass and reparses exactly once; if that also fails, the
// original error is the one surfaced.
func ParseJSON[T any](response string) (T, error) {
	var zero T

	jsonStr := CleanResponse(response)
	if jsonStr == "" {
		return zero, fmt.Errorf("%w: empty response", ErrParse)
	}

	var result T
	origErr := json.Unmarshal([]byte(trimAfterLastCloser(jsonStr)), &result)
	if origErr == nil {
		return result, nil
	}

	var repaired T
	if err := json.Unmarshal([]byte(RepairJSON(jsonStr)), &repaired); err == nil {
		return repaired, nil
	}

	return zero, fmt.Errorf("%w: %v\nData: %s", ErrParse, origErr, jsonStr)
}
