// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package wikifmt detects and post-processes Jira wiki markup text.
package wikifmt

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Format identifies a rich-text representation.
type Format string

const (
	FormatADF   Format = "adf"
	FormatWiki  Format = "wiki"
	FormatHTML  Format = "html"
	FormatPlain Format = "plain"
)

// Confidence is a band, not a boolean: heuristics can misclassify short
// or mixed inputs.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Detection is the result of classifying a text's format.
type Detection struct {
	Format     Format
	Confidence Confidence
	Indicators []string
}

// Validation reports unbalanced region delimiters. The text is never
// repaired, only described.
type Validation struct {
	Valid  bool
	Errors []string
}

var (
	headingRe   = regexp.MustCompile(`(?m)^h[1-6]\.\s`)
	listRe      = regexp.MustCompile(`(?m)^[*#]+\s`)
	quoteLineRe = regexp.MustCompile(`(?m)^bq\.\s`)
	tableRe     = regexp.MustCompile(`(?m)^\|`)
	regionRe    = regexp.MustCompile(`\{(code|quote|panel|noformat|color)[:}]`)
	monospaceRe = regexp.MustCompile(`\{\{[^}]+\}\}`)
	linkRe      = regexp.MustCompile(`\[[^\]|]+\|[^\]]+\]`)
	mentionRe   = regexp.MustCompile(`\[~[^\]]+\]`)
	htmlTagRe   = regexp.MustCompile(`<[a-zA-Z][^>]*>`)

	// Strikethrough (-text-) is deliberately left alone: stripping it
	// would mangle ordinary hyphenated prose.
	boldRe      = regexp.MustCompile(`\*([^*\n]+)\*`)
	italicRe    = regexp.MustCompile(`_([^_\n]+)_`)
	insRe       = regexp.MustCompile(`\+([^+\n]+)\+`)
	colorOpenRe = regexp.MustCompile(`\{color[^}]*\}`)
	codeOpenRe  = regexp.MustCompile(`\{code[^}]*\}`)
	panelOpenRe = regexp.MustCompile(`\{panel[^}]*\}`)
)

// Detect classifies text as ADF JSON, wiki markup, HTML, or plain text.
func Detect(text string) Detection {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Detection{Format: FormatPlain, Confidence: ConfidenceHigh}
	}

	// An ADF document is a JSON envelope with a version key.
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var probe struct {
			Type    string `json:"type"`
			Version *int   `json:"version"`
		}
		if err := json.Unmarshal([]byte(trimmed), &probe); err == nil &&
			probe.Type == "doc" && probe.Version != nil {
			return Detection{
				Format:     FormatADF,
				Confidence: ConfidenceHigh,
				Indicators: []string{`JSON envelope with type "doc" and version key`},
			}
		}
	}

	var indicators []string
	if headingRe.MatchString(text) {
		indicators = append(indicators, "heading prefix (h1.-h6.)")
	}
	if listRe.MatchString(text) {
		indicators = append(indicators, "line-leading list token (* or #)")
	}
	if quoteLineRe.MatchString(text) {
		indicators = append(indicators, "bq. quote prefix")
	}
	if regionRe.MatchString(text) {
		indicators = append(indicators, "region macro ({code}/{quote}/{panel})")
	}
	if monospaceRe.MatchString(text) {
		indicators = append(indicators, "monospace span ({{...}})")
	}
	if linkRe.MatchString(text) {
		indicators = append(indicators, "wiki link ([text|href])")
	}
	if mentionRe.MatchString(text) {
		indicators = append(indicators, "user mention ([~id])")
	}
	if tableRe.MatchString(text) {
		indicators = append(indicators, "pipe-delimited table row")
	}

	if len(indicators) > 0 {
		conf := ConfidenceMedium
		if len(indicators) >= 2 {
			conf = ConfidenceHigh
		}
		return Detection{Format: FormatWiki, Confidence: conf, Indicators: indicators}
	}

	// Angle-bracket density: a couple of tags in a long text is probably
	// prose; repeated tags mean HTML.
	if tags := htmlTagRe.FindAllString(text, -1); len(tags) > 0 {
		conf := ConfidenceLow
		if len(tags) >= 3 || strings.Contains(text, "</") {
			conf = ConfidenceHigh
		}
		return Detection{
			Format:     FormatHTML,
			Confidence: conf,
			Indicators: []string{"angle-bracket tags"},
		}
	}

	return Detection{Format: FormatPlain, Confidence: ConfidenceMedium}
}

// PlainText strips wiki markup, leaving readable text. Region macros are
// removed but their contents kept.
func PlainText(text string) string {
	if text == "" {
		return ""
	}
	out := text

	// Region delimiters first so their contents survive the inline pass.
	out = codeOpenRe.ReplaceAllString(out, "")
	out = panelOpenRe.ReplaceAllString(out, "")
	out = colorOpenRe.ReplaceAllString(out, "")
	out = strings.ReplaceAll(out, "{quote}", "")
	out = strings.ReplaceAll(out, "{noformat}", "")
	out = strings.ReplaceAll(out, "{code}", "")
	out = strings.ReplaceAll(out, "{panel}", "")
	out = strings.ReplaceAll(out, "{color}", "")

	out = headingRe.ReplaceAllString(out, "")
	out = quoteLineRe.ReplaceAllString(out, "")
	out = listRe.ReplaceAllString(out, "")

	out = monospaceRe.ReplaceAllStringFunc(out, func(m string) string {
		return strings.TrimSuffix(strings.TrimPrefix(m, "{{"), "}}")
	})

	// Links keep their display text, mentions keep the identifier.
	out = linkRe.ReplaceAllStringFunc(out, func(m string) string {
		inner := strings.TrimSuffix(strings.TrimPrefix(m, "["), "]")
		if idx := strings.Index(inner, "|"); idx >= 0 {
			return inner[:idx]
		}
		return inner
	})
	out = mentionRe.ReplaceAllStringFunc(out, func(m string) string {
		return strings.TrimSuffix(strings.TrimPrefix(m, "[~"), "]")
	})

	out = boldRe.ReplaceAllString(out, "$1")
	out = italicRe.ReplaceAllString(out, "$1")
	out = insRe.ReplaceAllString(out, "$1")

	// Table rows become space-separated cells.
	out = tableRe.ReplaceAllString(out, "")
	out = strings.ReplaceAll(out, "||", " ")
	out = strings.ReplaceAll(out, "|", " ")

	out = strings.ReplaceAll(out, "----", "")

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(strings.TrimSpace(line), " ")
	}
	out = strings.Join(lines, "\n")
	out = strings.TrimSpace(out)
	return out
}

// Validate counts paired region delimiters and reports imbalance. Odd
// counts of {code}, {quote}, or {panel} markers mean an unterminated
// region.
func Validate(text string) Validation {
	v := Validation{Valid: true}
	odd := func(name string, total int) {
		if total%2 != 0 {
			v.Valid = false
			v.Errors = append(v.Errors, name+" regions unbalanced: odd number of {"+name+"} markers")
		}
	}

	// Region macros use the same token to open (possibly parameterized,
	// like {code:go}) and to close, so the total count must be even.
	odd("code", len(codeOpenRe.FindAllString(text, -1)))
	odd("panel", len(panelOpenRe.FindAllString(text, -1)))
	odd("quote", strings.Count(text, "{quote}"))
	odd("noformat", strings.Count(text, "{noformat}"))
	return v
}
