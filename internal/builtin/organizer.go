package builtin

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docorg/docorg/internal/plugin"
)

const categoryOrganizerID = "category_organizer"

// CategoryOrganizer places analyzed files into per-category directories
// under the target root. Items without an analysis go to a configurable
// fallback directory.
type CategoryOrganizer struct {
	plugin.Base
}

// NewCategoryOrganizer creates a category organizer plugin.
func NewCategoryOrganizer() *CategoryOrganizer {
	return &CategoryOrganizer{
		Base: plugin.Base{
			PluginID:      categoryOrganizerID,
			PluginType:    plugin.TypeOrganizer,
			PluginName:    "Category Organizer",
			PluginVersion: "1.0.0",
		},
	}
}

// ConfigSchema declares the organizer's settings.
func (o *CategoryOrganizer) ConfigSchema() *plugin.ConfigSchema {
	return &plugin.ConfigSchema{
		Type: "object",
		Properties: map[string]*plugin.SchemaProperty{
			"uncategorized_dir": {
				Type:        "string",
				Default:     "Uncategorized",
				Description: "directory for items without a category",
			},
			"copy_instead_of_move": {
				Type:        "boolean",
				Default:     false,
				Description: "copy files instead of moving them",
			},
		},
	}
}

// Organize places each item into target/<category>/. Individual item
// failures are reported on the progress channel and skipped; the operation
// itself only fails on an unusable target or a cancelled context.
func (o *CategoryOrganizer) Organize(ctx context.Context, req plugin.OrganizeRequest) (*plugin.OrganizeResult, error) {
	if req.Progress != nil {
		defer close(req.Progress)
	}
	if req.TargetDir == "" {
		return nil, fmt.Errorf("organize: target directory is empty")
	}
	if err := os.MkdirAll(req.TargetDir, 0o755); err != nil {
		return nil, fmt.Errorf("organize: creating target %s: %w", req.TargetDir, err)
	}

	copyMode := o.copyMode(req.Options)
	result := &plugin.OrganizeResult{Moves: map[string]string{}}
	for i, item := range req.Items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		dest, err := o.place(item, req.TargetDir, copyMode)
		ev := plugin.Progress{
			Stage:   "organizing",
			Current: i + 1,
			Total:   len(req.Items),
			Path:    item.Path,
			Err:     err,
		}
		plugin.NotifyProgress(req.Progress, ev)
		if err != nil {
			result.Skipped++
			continue
		}
		result.Organized++
		result.Moves[item.Path] = dest
	}
	return result, nil
}

func (o *CategoryOrganizer) place(item plugin.AnalyzedItem, targetDir string, copyMode bool) (string, error) {
	category := o.uncategorizedDir()
	if item.Analysis != nil && item.Analysis.Category != "" {
		category = sanitizeCategory(item.Analysis.Category)
	}

	destDir := filepath.Join(targetDir, category)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", destDir, err)
	}
	dest := uniquePath(filepath.Join(destDir, filepath.Base(item.Path)))

	if copyMode {
		if err := copyFile(item.Path, dest); err != nil {
			return "", err
		}
		return dest, nil
	}
	if err := os.Rename(item.Path, dest); err != nil {
		// Cross-device moves fall back to copy then remove.
		if err := copyFile(item.Path, dest); err != nil {
			return "", err
		}
		if err := os.Remove(item.Path); err != nil {
			return "", fmt.Errorf("removing source %s: %w", item.Path, err)
		}
	}
	return dest, nil
}

func (o *CategoryOrganizer) uncategorizedDir() string {
	if s, ok := o.Setting("uncategorized_dir", "Uncategorized").(string); ok && s != "" {
		return s
	}
	return "Uncategorized"
}

func (o *CategoryOrganizer) copyMode(options map[string]any) bool {
	if v, ok := options["copy_instead_of_move"].(bool); ok {
		return v
	}
	v, _ := o.Setting("copy_instead_of_move", false).(bool)
	return v
}

// sanitizeCategory strips path separators and traversal so a hostile
// category name cannot escape the target directory.
func sanitizeCategory(category string) string {
	category = strings.ReplaceAll(category, "/", "-")
	category = strings.ReplaceAll(category, "\\", "-")
	category = strings.TrimSpace(category)
	if category == "" || category == "." || category == ".." {
		return "Uncategorized"
	}
	return category
}

// uniquePath returns path, or path with a numeric suffix when it exists.
func uniquePath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("copying to %s: %w", dest, err)
	}
	return out.Close()
}
