package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"ruleboard/internal/model"
)

// Markdown renders a document as a readable outline followed by the exact JSON that
// would be submitted. The TUI renders it with glamour, the web preview with goldmark.
func Markdown(doc model.Document) string {
	var b strings.Builder
	b.WriteString("# Submission preview\n\n")
	if len(doc.Buckets) == 0 {
		b.WriteString("_No buckets._\n\n")
	}
	for _, bucket := range doc.Buckets {
		fmt.Fprintf(&b, "## %s (%d)\n\n", bucket.Name, len(bucket.Entries))
		if len(bucket.Entries) == 0 {
			b.WriteString("_empty_\n\n")
			continue
		}
		for i, e := range bucket.Entries {
			fmt.Fprintf(&b, "%d. **%s** `%s`", i+1, escapeMarkdown(e.Label), e.InstanceID)
			if e.RequiresInput && len(e.Parameters) > 0 {
				parts := make([]string, 0, len(e.Parameters))
				for _, p := range e.Parameters {
					parts = append(parts, fmt.Sprintf("%s=%s", p.Field, escapeMarkdown(p.Value)))
				}
				b.WriteString(" · " + strings.Join(parts, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		raw = []byte(err.Error())
	}
	b.WriteString("```json\n")
	b.Write(raw)
	b.WriteString("\n```\n")
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
)

func escapeMarkdown(s string) string { return markdownEscaper.Replace(s) }
