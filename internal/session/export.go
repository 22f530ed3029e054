package session

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultExportDir is where run exports land unless configured otherwise.
	DefaultExportDir = "outputs"

	slugMaxLen = 40
)

var slugPattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Slugify turns a question into a filesystem-friendly base name.
func Slugify(text string) string {
	s := slugPattern.ReplaceAllString(strings.TrimSpace(text), "-")
	s = strings.ToLower(strings.Trim(s, "-"))
	if len(s) > slugMaxLen {
		s = strings.Trim(s[:slugMaxLen], "-")
	}
	if s == "" {
		return "query"
	}
	return s
}

// exportMeta is the front matter written at the top of an exported run.
type exportMeta struct {
	ID       string `yaml:"id"`
	Question string `yaml:"question"`
	Rows     int    `yaml:"rows"`
	Elapsed  string `yaml:"elapsed"`
	Created  string `yaml:"created"`
}

// Export writes the answer to the configured export directory as a .sql file
// and a .md report, returning the paths written. The directory is created on
// first use.
func (s *Session) Export(ans *Answer) ([]string, error) {
	dir := s.cfg.ExportDir
	if dir == "" {
		dir = DefaultExportDir
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	base := filepath.Join(dir, fmt.Sprintf("%s_%s", ans.CreatedAt.Format("20060102_150405"), Slugify(ans.Question)))

	sqlPath := base + ".sql"
	if err := os.WriteFile(sqlPath, []byte(ans.SQL+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", sqlPath, err)
	}

	mdPath := base + ".md"
	report, err := renderReport(ans)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(mdPath, report, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", mdPath, err)
	}

	return []string{sqlPath, mdPath}, nil
}

func renderReport(ans *Answer) ([]byte, error) {
	meta, err := yaml.Marshal(exportMeta{
		ID:       ans.ID,
		Question: ans.Question,
		Rows:     ans.Result.RowCount(),
		Elapsed:  ans.Elapsed.String(),
		Created:  ans.CreatedAt.Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export metadata: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(meta)
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# Query: %s\n\n", ans.Question)
	b.WriteString("## SQL\n\n```sql\n")
	b.WriteString(ans.SQL)
	b.WriteString("\n```\n\n## Results\n\n")

	if ans.Result.RowCount() == 0 {
		b.WriteString("(no rows)\n")
	} else {
		writeMarkdownTable(&b, ans.Result.Columns, ans.Result.Rows)
	}

	if ans.Explanation != "" {
		b.WriteString("\n## Explanation\n\n")
		b.WriteString(ans.Explanation)
		b.WriteByte('\n')
	}

	return []byte(b.String()), nil
}

func writeMarkdownTable(b *strings.Builder, cols []string, rows [][]any) {
	fmt.Fprintf(b, "| %s |\n", strings.Join(cols, " | "))

	seps := make([]string, len(cols))
	for i := range seps {
		seps[i] = "---"
	}
	fmt.Fprintf(b, "| %s |\n", strings.Join(seps, " | "))

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprintf("%v", v)
			}
		}
		fmt.Fprintf(b, "| %s |\n", strings.Join(cells, " | "))
	}
}
