package builtin

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/docorg/docorg/internal/plugin"
)

const textParserID = "text_parser"

// defaultMaxFileSize caps how much of a file the parser will read.
const defaultMaxFileSize = 16 << 20

// TextParser extracts content from plain-text and markdown files.
type TextParser struct {
	plugin.Base
}

// NewTextParser creates a text parser plugin.
func NewTextParser() *TextParser {
	return &TextParser{
		Base: plugin.Base{
			PluginID:      textParserID,
			PluginType:    plugin.TypeParser,
			PluginName:    "Text Parser",
			PluginVersion: "1.0.0",
		},
	}
}

// ConfigSchema declares the parser's settings.
func (p *TextParser) ConfigSchema() *plugin.ConfigSchema {
	return &plugin.ConfigSchema{
		Type: "object",
		Properties: map[string]*plugin.SchemaProperty{
			"extensions": {
				Type:        "array",
				Default:     []any{".txt", ".md", ".log", ".csv"},
				Description: "file extensions this parser handles",
			},
			"max_file_size": {
				Type:        "integer",
				Default:     defaultMaxFileSize,
				Description: "largest file size in bytes the parser will read",
				Minimum:     ptrFloat(0),
			},
		},
	}
}

// CanParse reports whether the file's extension is one the parser handles.
func (p *TextParser) CanParse(path string) bool {
	return plugin.MatchExtension(path, p.extensions())
}

// Parse reads the file and extracts content plus basic metadata.
func (p *TextParser) Parse(ctx context.Context, path string) *plugin.ParseResult {
	if err := ctx.Err(); err != nil {
		return plugin.ParseFailure(err.Error())
	}

	info, err := os.Stat(path)
	if err != nil {
		return plugin.ParseFailure(fmt.Sprintf("stat %s: %v", path, err))
	}
	if max := p.maxFileSize(); max > 0 && info.Size() > max {
		return plugin.ParseFailure(fmt.Sprintf("%s exceeds size limit (%d > %d bytes)", path, info.Size(), max))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return plugin.ParseFailure(fmt.Sprintf("read %s: %v", path, err))
	}
	if !utf8.Valid(data) {
		return plugin.ParseFailure(fmt.Sprintf("%s is not valid UTF-8 text", path))
	}

	content := string(data)
	return &plugin.ParseResult{
		Content: content,
		Metadata: map[string]any{
			"size_bytes": info.Size(),
			"modified":   info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
			"line_count": countLines(content),
			"word_count": len(strings.Fields(content)),
		},
		Success: true,
	}
}

func (p *TextParser) extensions() []string {
	raw := p.Setting("extensions", []any{".txt", ".md", ".log", ".csv"})
	list, ok := raw.([]any)
	if !ok {
		return []string{".txt", ".md", ".log", ".csv"}
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (p *TextParser) maxFileSize() int64 {
	switch v := p.Setting("max_file_size", defaultMaxFileSize).(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return defaultMaxFileSize
	}
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := 0
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		n++
	}
	return n
}

func ptrFloat(f float64) *float64 { return &f }
