// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package wikifmt

import (
	"strings"
	"testing"
)

func TestDetectEmpty(t *testing.T) {
	t.Parallel()
	det := Detect("")
	if det.Format != FormatPlain {
		t.Errorf("Format: got %q, want plain", det.Format)
	}
	if det.Confidence != ConfidenceHigh {
		t.Errorf("Confidence: got %q, want high", det.Confidence)
	}
}

func TestDetectADF(t *testing.T) {
	t.Parallel()
	det := Detect(`{"type":"doc","version":1,"content":[]}`)
	if det.Format != FormatADF {
		t.Errorf("Format: got %q, want adf", det.Format)
	}
	if det.Confidence != ConfidenceHigh {
		t.Errorf("Confidence: got %q, want high", det.Confidence)
	}
}

func TestDetectJSONWithoutVersionIsNotADF(t *testing.T) {
	t.Parallel()
	det := Detect(`{"type":"doc"}`)
	if det.Format == FormatADF {
		t.Error("JSON without a version key should not detect as ADF")
	}
}

func TestDetectWikiSingleIndicator(t *testing.T) {
	t.Parallel()
	det := Detect("h1. Title\nsome prose")
	if det.Format != FormatWiki {
		t.Errorf("Format: got %q, want wiki", det.Format)
	}
	if det.Confidence != ConfidenceMedium {
		t.Errorf("Confidence: got %q, want medium for one indicator", det.Confidence)
	}
}

func TestDetectWikiMultipleIndicators(t *testing.T) {
	t.Parallel()
	det := Detect("h1. Title\n* item one\n* item two\n{code}\nx\n{code}")
	if det.Format != FormatWiki {
		t.Errorf("Format: got %q, want wiki", det.Format)
	}
	if det.Confidence != ConfidenceHigh {
		t.Errorf("Confidence: got %q, want high for %d indicators", det.Confidence, len(det.Indicators))
	}
}

func TestDetectWikiMention(t *testing.T) {
	t.Parallel()
	det := Detect("ping [~jdoe] about this")
	if det.Format != FormatWiki {
		t.Errorf("Format: got %q, want wiki", det.Format)
	}
}

func TestDetectHTML(t *testing.T) {
	t.Parallel()
	det := Detect("<p>hello <strong>world</strong></p>")
	if det.Format != FormatHTML {
		t.Errorf("Format: got %q, want html", det.Format)
	}
	if det.Confidence != ConfidenceHigh {
		t.Errorf("Confidence: got %q, want high with closing tags", det.Confidence)
	}
}

func TestDetectProseWithAngleBracketIsLowConfidence(t *testing.T) {
	t.Parallel()
	det := Detect("the value of <threshold> controls the limit")
	if det.Format != FormatHTML {
		t.Errorf("Format: got %q", det.Format)
	}
	if det.Confidence != ConfidenceLow {
		t.Errorf("Confidence: got %q, want low for a single tag-like token", det.Confidence)
	}
}

func TestDetectPlainProse(t *testing.T) {
	t.Parallel()
	det := Detect("Just a normal sentence with no markup at all.")
	if det.Format != FormatPlain {
		t.Errorf("Format: got %q, want plain", det.Format)
	}
}

func TestPlainTextHeading(t *testing.T) {
	t.Parallel()
	got := PlainText("h2. Release Notes\n\nchanges below")
	if strings.Contains(got, "h2.") {
		t.Errorf("heading prefix should be stripped, got %q", got)
	}
	if !strings.Contains(got, "Release Notes") {
		t.Errorf("heading text should survive, got %q", got)
	}
}

func TestPlainTextInlineMarks(t *testing.T) {
	t.Parallel()
	got := PlainText("*bold* and _italic_ and {{mono}} and +ins+")
	want := "bold and italic and mono and ins"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPlainTextLinkKeepsDisplayText(t *testing.T) {
	t.Parallel()
	got := PlainText("see [the docs|https://example.com] for details")
	if !strings.Contains(got, "the docs") {
		t.Errorf("display text should survive, got %q", got)
	}
	if strings.Contains(got, "https://example.com") {
		t.Errorf("href should be dropped, got %q", got)
	}
}

func TestPlainTextMentionKeepsIdentifier(t *testing.T) {
	t.Parallel()
	got := PlainText("assigned to [~jdoe]")
	if got != "assigned to jdoe" {
		t.Errorf("got %q", got)
	}
}

func TestPlainTextCodeRegion(t *testing.T) {
	t.Parallel()
	got := PlainText("{code:go}\nfmt.Println()\n{code}")
	if strings.Contains(got, "{code") {
		t.Errorf("code delimiters should be stripped, got %q", got)
	}
	if !strings.Contains(got, "fmt.Println()") {
		t.Errorf("code contents should survive, got %q", got)
	}
}

func TestPlainTextList(t *testing.T) {
	t.Parallel()
	got := PlainText("* one\n** nested\n# numbered")
	for _, want := range []string{"one", "nested", "numbered"} {
		if !strings.Contains(got, want) {
			t.Errorf("list text %q should survive, got %q", want, got)
		}
	}
	if strings.Contains(got, "*") || strings.Contains(got, "#") {
		t.Errorf("list tokens should be stripped, got %q", got)
	}
}

func TestPlainTextTable(t *testing.T) {
	t.Parallel()
	got := PlainText("||Name||Age||\n|Ada|36|")
	if strings.Contains(got, "|") {
		t.Errorf("pipes should be stripped, got %q", got)
	}
	if !strings.Contains(got, "Ada") || !strings.Contains(got, "36") {
		t.Errorf("cell contents should survive, got %q", got)
	}
}

func TestPlainTextEmpty(t *testing.T) {
	t.Parallel()
	if got := PlainText(""); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestValidateBalanced(t *testing.T) {
	t.Parallel()
	v := Validate("{code:go}\nx\n{code}\n{quote}\nq\n{quote}")
	if !v.Valid {
		t.Errorf("balanced regions should validate, errors: %v", v.Errors)
	}
}

func TestValidateUnterminatedCode(t *testing.T) {
	t.Parallel()
	v := Validate("{code:go}\nnever closed")
	if v.Valid {
		t.Error("odd {code} count should not validate")
	}
	if len(v.Errors) != 1 {
		t.Errorf("Errors: got %v, want one entry", v.Errors)
	}
}

func TestValidateUnterminatedQuoteAndPanel(t *testing.T) {
	t.Parallel()
	v := Validate("{quote}\nq\n{panel:title=X}\nbody")
	if v.Valid {
		t.Error("unterminated regions should not validate")
	}
	if len(v.Errors) != 2 {
		t.Errorf("Errors: got %v, want two entries", v.Errors)
	}
}

func TestValidatePlainTextIsValid(t *testing.T) {
	t.Parallel()
	if v := Validate("no markup at all"); !v.Valid {
		t.Errorf("plain text should validate, errors: %v", v.Errors)
	}
}

func FuzzDetect(f *testing.F) {
	f.Add("h1. heading")
	f.Add("* list")
	f.Add(`{"type":"doc","version":1}`)
	f.Add("<p>html</p>")
	f.Add("plain prose")
	f.Add("")
	f.Add("{code}unterminated")
	f.Add(string([]byte{0x00, 0x01}))

	f.Fuzz(func(t *testing.T, text string) {
		det := Detect(text)

		det2 := Detect(text)
		if det.Format != det2.Format || det.Confidence != det2.Confidence {
			t.Errorf("non-deterministic: Detect(%q) = %v/%v then %v/%v",
				text, det.Format, det.Confidence, det2.Format, det2.Confidence)
		}

		switch det.Format {
		case FormatADF, FormatWiki, FormatHTML, FormatPlain:
		default:
			t.Errorf("unknown format %q", det.Format)
		}

		// PlainText must not panic on anything Detect classifies.
		_ = PlainText(text)
		_ = Validate(text)
	})
}
