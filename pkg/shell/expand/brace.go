// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package expand

import (
	"strconv"
	"strings"
)

// Brace expands `{a,b,c}`, `{1..5}`, `{a..e}`, and `{1..10..2}` (with
// reverse ranges), including nesting and concatenation, producing the
// Cartesian product of every brace group found in word. A `{...}` with
// neither a comma nor a `..` is ambiguous with a literal brace and is
// left verbatim.
func Brace(word string) []string {
	start, end, ok := findBraceGroup(word)
	if !ok {
		return []string{word}
	}

	prefix := word[:start]
	body := word[start+1 : end]
	suffix := word[end+1:]

	items, ok := splitBraceBody(body)
	if !ok {
		// Not a comma list or a range: literal braces, but the rest of
		// the word may still contain expandable groups.
		rest := Brace(word[start+1:])
		out := make([]string, 0, len(rest))
		for _, r := range rest {
			out = append(out, prefix+"{"+r)
		}
		return out
	}

	prefixes := Brace(prefix)
	suffixes := Brace(suffix)
	var out []string
	for _, item := range items {
		// Each comma/range alternative may itself contain a nested brace
		// group (e.g. "{a,b{1,2}}"); expand it before taking the product.
		for _, expandedItem := range Brace(item) {
			for _, p := range prefixes {
				for _, s := range suffixes {
					out = append(out, p+expandedItem+s)
				}
			}
		}
	}
	return out
}

// findBraceGroup locates the first top-level `{...}` group (balanced,
// ignoring groups nested inside it) and returns its index bounds.
func findBraceGroup(word string) (start, end int, ok bool) {
	depth := 0
	start = -1
	for i, r := range word {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start >= 0 {
				return start, i, true
			}
		}
	}
	return 0, 0, false
}

// splitBraceBody splits a brace body on top-level commas, or expands a
// `..`-range body, returning ok=false when neither form applies (bare
// literal braces).
func splitBraceBody(body string) ([]string, bool) {
	if items, ok := splitTopLevelCommas(body); ok {
		return items, true
	}
	if items, ok := expandRange(body); ok {
		return items, true
	}
	return nil, false
}

func splitTopLevelCommas(body string) ([]string, bool) {
	depth := 0
	var parts []string
	last := 0
	found := false
	for i, r := range body {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, body[last:i])
				last = i + 1
				found = true
			}
		}
	}
	if !found {
		return nil, false
	}
	parts = append(parts, body[last:])
	return parts, true
}

func expandRange(body string) ([]string, bool) {
	parts := strings.Split(body, "..")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, false
	}
	step := 1
	if len(parts) == 3 {
		s, err := strconv.Atoi(parts[2])
		if err != nil || s == 0 {
			return nil, false
		}
		step = s
		if step < 0 {
			step = -step
		}
	}

	if isInt(parts[0]) && isInt(parts[1]) {
		lo, _ := strconv.Atoi(parts[0])
		hi, _ := strconv.Atoi(parts[1])
		width := 0
		if hasLeadingZero(parts[0]) || hasLeadingZero(parts[1]) {
			width = max(len(trimSign(parts[0])), len(trimSign(parts[1])))
		}
		return intRange(lo, hi, step, width), true
	}

	if len(parts[0]) == 1 && len(parts[1]) == 1 && isAlpha(parts[0][0]) && isAlpha(parts[1][0]) {
		return charRange(rune(parts[0][0]), rune(parts[1][0]), step), true
	}

	return nil, false
}

func intRange(lo, hi, step, width int) []string {
	var out []string
	if lo <= hi {
		for v := lo; v <= hi; v += step {
			out = append(out, formatInt(v, width))
		}
	} else {
		for v := lo; v >= hi; v -= step {
			out = append(out, formatInt(v, width))
		}
	}
	return out
}

func formatInt(v, width int) string {
	s := strconv.Itoa(v)
	if width == 0 {
		return s
	}
	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimPrefix(s, "-")
	for len(digits) < width {
		digits = "0" + digits
	}
	if neg {
		return "-" + digits
	}
	return digits
}

func charRange(lo, hi rune, step int) []string {
	var out []string
	if lo <= hi {
		for v := lo; v <= hi; v += rune(step) {
			out = append(out, string(v))
		}
	} else {
		for v := lo; v >= hi; v -= rune(step) {
			out = append(out, string(v))
		}
	}
	return out
}

func isInt(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

func hasLeadingZero(s string) bool {
	s = trimSign(s)
	return len(s) > 1 && s[0] == '0'
}

func trimSign(s string) string {
	return strings.TrimPrefix(s, "-")
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
