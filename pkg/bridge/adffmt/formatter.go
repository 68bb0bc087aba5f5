// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package adffmt converts Atlassian Document Format trees to Jira wiki markup.
package adffmt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node is a single node of an ADF document tree. The root node has type
// "doc"; leaves are usually "text" nodes carrying marks.
type Node struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Content []*Node        `json:"content,omitempty"`
}

// Mark is an inline formatting annotation on a text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Result holds the output of a conversion. Conversion never fails: the
// worst case is plain text extracted from unrecognized nodes, flagged via
// FallbackUsed and Warnings.
type Result struct {
	Content      string
	Format       string // "wiki" or "plain"
	FallbackUsed bool
	Warnings     []string
}

// IsDocument reports whether a decoded JSON value looks like an ADF
// document root (a map with type "doc" and a version key).
func IsDocument(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	t, _ := m["type"].(string)
	_, hasVersion := m["version"]
	return t == "doc" && hasVersion
}

// FromAny decodes a generic JSON value (as produced by encoding/json into
// map[string]any) into a Node tree.
func FromAny(v any) (*Node, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("re-encoding document: %w", err)
	}
	var n Node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return &n, nil
}

// ToWikiAny converts a generic decoded JSON value to wiki markup. Values
// that do not decode as a document tree degrade to their string form.
func ToWikiAny(v any) Result {
	n, err := FromAny(v)
	if err != nil {
		return Result{
			Content:      fmt.Sprintf("%v", v),
			Format:       "plain",
			FallbackUsed: true,
			Warnings:     []string{"document did not decode as ADF: " + err.Error()},
		}
	}
	return ToWiki(n)
}

// ToWiki converts an ADF document tree to Jira wiki markup. Unknown node
// types do not abort the conversion: their child text is extracted and a
// warning is recorded.
func ToWiki(doc *Node) Result {
	c := &converter{}
	if doc == nil {
		return Result{Format: "wiki"}
	}
	var content string
	if doc.Type == "doc" {
		content = c.blocks(doc.Content)
	} else {
		content = c.block(doc)
	}
	format := "wiki"
	if c.fallback && c.allUnknown {
		format = "plain"
	}
	return Result{
		Content:      content,
		Format:       format,
		FallbackUsed: c.fallback,
		Warnings:     c.warnings,
	}
}

type converter struct {
	warnings   []string
	fallback   bool
	allUnknown bool
}

func (c *converter) warn(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// blocks renders a slice of block nodes separated by blank lines.
func (c *converter) blocks(nodes []*Node) string {
	parts := make([]string, 0, len(nodes))
	known := false
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if isKnownBlock(n.Type) {
			known = true
		}
		if s := c.block(n); s != "" {
			parts = append(parts, s)
		}
	}
	if !known && len(nodes) > 0 {
		c.allUnknown = true
	}
	return strings.Join(parts, "\n\n")
}

func isKnownBlock(t string) bool {
	switch t {
	case "paragraph", "heading", "bulletList", "orderedList", "codeBlock",
		"blockquote", "panel", "table", "rule", "mediaGroup", "mediaSingle":
		return true
	}
	return false
}

func (c *converter) block(n *Node) string {
	switch n.Type {
	case "paragraph":
		return c.inline(n.Content)
	case "heading":
		level := intAttr(n.Attrs, "level", 1)
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		return fmt.Sprintf("h%d. %s", level, c.inline(n.Content))
	case "bulletList":
		return c.list(n, "*", 1)
	case "orderedList":
		return c.list(n, "#", 1)
	case "codeBlock":
		lang := strAttr(n.Attrs, "language")
		body := c.inline(n.Content)
		if lang != "" {
			return "{code:" + lang + "}\n" + body + "\n{code}"
		}
		return "{code}\n" + body + "\n{code}"
	case "blockquote":
		return "{quote}\n" + c.blocks(n.Content) + "\n{quote}"
	case "panel":
		title := panelTitle(strAttr(n.Attrs, "panelType"))
		return "{panel:title=" + title + "}\n" + c.blocks(n.Content) + "\n{panel}"
	case "table":
		return c.table(n)
	case "rule":
		return "----"
	case "mediaGroup", "mediaSingle":
		return c.media(n)
	case "expand", "nestedExpand":
		// Expand sections have no wiki equivalent; keep the body.
		c.warn("expand section flattened")
		c.fallback = true
		return c.blocks(n.Content)
	default:
		c.warn("unsupported node type %q, extracting text", n.Type)
		c.fallback = true
		return extractText(n)
	}
}

// list renders bullet or ordered lists. Nesting repeats the prefix
// character per level, Jira wiki style ("** nested").
func (c *converter) list(n *Node, prefix string, depth int) string {
	var lines []string
	for _, item := range n.Content {
		if item == nil || item.Type != "listItem" {
			continue
		}
		for _, child := range item.Content {
			if child == nil {
				continue
			}
			switch child.Type {
			case "bulletList":
				lines = append(lines, c.list(child, "*", depth+1))
			case "orderedList":
				lines = append(lines, c.list(child, "#", depth+1))
			case "paragraph":
				lines = append(lines, strings.Repeat(prefix, depth)+" "+c.inline(child.Content))
			default:
				lines = append(lines, strings.Repeat(prefix, depth)+" "+c.block(child))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// table renders pipe-delimited rows. Header cells use the double-pipe
// delimiter; there is no separate separator row in wiki markup.
func (c *converter) table(n *Node) string {
	var rows []string
	for _, row := range n.Content {
		if row == nil || row.Type != "tableRow" {
			continue
		}
		var cells []string
		header := false
		for _, cell := range row.Content {
			if cell == nil {
				continue
			}
			if cell.Type == "tableHeader" {
				header = true
			}
			cells = append(cells, strings.ReplaceAll(c.blocks(cell.Content), "\n", " "))
		}
		sep := "|"
		if header {
			sep = "||"
		}
		rows = append(rows, sep+strings.Join(cells, sep)+sep)
	}
	return strings.Join(rows, "\n")
}

func (c *converter) media(n *Node) string {
	var parts []string
	for _, m := range n.Content {
		if m == nil || m.Type != "media" {
			continue
		}
		name := strAttr(m.Attrs, "alt")
		if name == "" {
			name = strAttr(m.Attrs, "id")
		}
		if name != "" {
			parts = append(parts, "!"+name+"!")
		}
	}
	if len(parts) == 0 {
		c.warn("media node without usable reference dropped")
		c.fallback = true
		return ""
	}
	return strings.Join(parts, " ")
}

func (c *converter) inline(nodes []*Node) string {
	var b strings.Builder
	for _, n := range nodes {
		if n == nil {
			continue
		}
		switch n.Type {
		case "text":
			b.WriteString(applyMarks(n.Text, n.Marks))
		case "hardBreak":
			b.WriteString("\n")
		case "mention":
			id := strAttr(n.Attrs, "id")
			if id == "" {
				id = strings.TrimPrefix(strAttr(n.Attrs, "text"), "@")
			}
			b.WriteString("[~" + id + "]")
		case "emoji":
			b.WriteString(strAttr(n.Attrs, "shortName"))
		case "inlineCard":
			if url := strAttr(n.Attrs, "url"); url != "" {
				b.WriteString("[" + url + "]")
			}
		case "date":
			b.WriteString(strAttr(n.Attrs, "timestamp"))
		case "status":
			b.WriteString(strAttr(n.Attrs, "text"))
		default:
			c.warn("unsupported inline node type %q, extracting text", n.Type)
			c.fallback = true
			b.WriteString(extractText(n))
		}
	}
	return b.String()
}

// applyMarks wraps a text span in paired wiki delimiters. The link mark
// wins over the others since it changes the production entirely.
func applyMarks(text string, marks []Mark) string {
	for _, m := range marks {
		if m.Type == "link" {
			href := strAttr(m.Attrs, "href")
			if text == "" {
				return "[" + href + "]"
			}
			return "[" + text + "|" + href + "]"
		}
	}
	for _, m := range marks {
		switch m.Type {
		case "strong":
			text = "*" + text + "*"
		case "em":
			text = "_" + text + "_"
		case "code":
			text = "{{" + text + "}}"
		case "strike":
			text = "-" + text + "-"
		case "underline":
			text = "+" + text + "+"
		case "subsup":
			if strAttr(m.Attrs, "type") == "sup" {
				text = "^" + text + "^"
			} else {
				text = "~" + text + "~"
			}
		case "textColor":
			text = "{color:" + strAttr(m.Attrs, "color") + "}" + text + "{color}"
		}
	}
	return text
}

// extractText concatenates every text span under a node. This is the
// degradation path for unrecognized node types.
func extractText(n *Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(n.Text)
	for _, child := range n.Content {
		if s := extractText(child); s != "" {
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(s)
		}
	}
	return b.String()
}

func panelTitle(panelType string) string {
	switch panelType {
	case "", "info":
		return "Info"
	case "note":
		return "Note"
	case "warning":
		return "Warning"
	case "error":
		return "Error"
	case "success":
		return "Success"
	}
	return panelType
}

func strAttr(attrs map[string]any, key string) string {
	if attrs == nil {
		return ""
	}
	s, _ := attrs[key].(string)
	return s
}

func intAttr(attrs map[string]any, key string, def int) int {
	if attrs == nil {
		return def
	}
	switch v := attrs[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}
