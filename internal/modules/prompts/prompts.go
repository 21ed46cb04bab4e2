// Package prompts resolves summarization prompt templates from an on-disk
// asset tree with a built-in final fallback. Resolution never fails.
package prompts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/compresso/core/internal/models"
	"go.uber.org/zap"
)

// ContentPlaceholder marks where the acquired text is substituted into a
// template.
const ContentPlaceholder = "{content}"

const youtubeLongTemplate = `Create a detailed, structured video summary.
• At the beginning of each point, indicate the timestamp in [mm:ss] format.
• Format as a bulleted list with emojis.
• Avoid word-for-word retelling, highlight semantic blocks and conclusions.

Transcript text:
{content}`

var detailDescriptions = map[models.DetailLevel]string{
	models.DetailShort:  "brief",
	models.DetailMedium: "moderate",
	models.DetailLong:   "detailed",
}

// Resolver loads templates addressed by (locale, mode, detail).
type Resolver struct {
	dir           string
	defaultLocale string
	logger        *zap.Logger
}

func NewResolver(dir, defaultLocale string, logger *zap.Logger) *Resolver {
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	return &Resolver{dir: dir, defaultLocale: defaultLocale, logger: logger}
}

// Resolve returns a usable template for the triple. Lookup order: the exact
// locale file, the default-locale file, then the built-in template. Read
// errors are logged and treated as not found.
func (r *Resolver) Resolve(mode models.SummaryMode, detail models.DetailLevel, locale string) string {
	filename := fmt.Sprintf("%s_%s.txt", mode, detail)

	if locale != "" {
		if tpl, ok := r.readTemplate(filepath.Join(r.dir, locale, filename)); ok {
			return tpl
		}
	}
	if locale != r.defaultLocale {
		if tpl, ok := r.readTemplate(filepath.Join(r.dir, r.defaultLocale, filename)); ok {
			return tpl
		}
	}
	return builtinTemplate(mode, detail)
}

func (r *Resolver) readTemplate(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Error("prompt template read failed", zap.String("path", path), zap.Error(err))
		}
		return "", false
	}
	return string(data), true
}

func builtinTemplate(mode models.SummaryMode, detail models.DetailLevel) string {
	desc, ok := detailDescriptions[detail]
	if !ok {
		desc = detailDescriptions[models.DetailMedium]
	}

	if mode == models.ModeYouTube {
		if detail == models.DetailLong {
			return youtubeLongTemplate
		}
		return fmt.Sprintf("Create a %s summary of the following video transcript:\n\n{content}", desc)
	}
	return fmt.Sprintf("Create a %s summary of the following text:\n\n{content}", desc)
}
