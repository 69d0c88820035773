package build

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Filipo11021/nitro/internal/content"
	"github.com/Filipo11021/nitro/internal/errors"
	"github.com/Filipo11021/nitro/internal/hooks"
)

// DocumentDestination derives the compiled-module path from the template
// source path: the extension is replaced with ".template.mjs". The
// destination is never taken from user input.
func DocumentDestination(sourcePath string) string {
	ext := filepath.Ext(sourcePath)
	return strings.TrimSuffix(sourcePath, ext) + ".template.mjs"
}

// CompileDocument turns the HTML document template into a module whose
// default export is the template text. Contents are resolved through the
// injected resolver (overrides before disk); a missing template resolves
// to empty contents and the step becomes a no-op. When contents are
// non-empty the document hook runs first and may rewrite them in place.
func (b *Builder) CompileDocument(ctx context.Context) error {
	sourcePath := b.cfg.DocumentPath()
	destPath := DocumentDestination(sourcePath)

	contents, err := b.resolver.Resolve(sourcePath)
	if err != nil {
		if stderrors.Is(err, content.ErrNotFound) {
			contents = ""
		} else {
			return errors.WrapPath(errors.StageDocument, sourcePath, "failed to read template", err)
		}
	}

	if contents == "" {
		b.logger.Debug(ctx, "no document template, skipping compile", "path", sourcePath)
		return nil
	}

	event := &hooks.DocumentEvent{
		SourcePath:      sourcePath,
		DestinationPath: destPath,
		Contents:        contents,
	}
	if err := b.bus.Publish(ctx, hooks.HookDocument, event); err != nil {
		return err
	}

	module := SerializeTemplateModule(event.Contents)
	if err := ensureParent(destPath); err != nil {
		return errors.WrapPath(errors.StageDocument, destPath, "failed to prepare destination", err)
	}
	if err := os.WriteFile(destPath, []byte(module), 0644); err != nil {
		return errors.WrapPath(errors.StageDocument, destPath, "failed to write template module", err)
	}

	b.logger.Debug(ctx, "compiled document template", "dest", destPath)
	return nil
}

// SerializeTemplateModule renders a module whose default export is
// exactly contents. The string literal is double-quoted, so template
// syntax inside the HTML is inert, and every character that could break
// the literal is escaped.
func SerializeTemplateModule(contents string) string {
	return "export default " + quoteJS(contents) + ";\n"
}

// quoteJS produces a double-quoted JavaScript string literal for s.
// Backslashes, quotes, newlines and the JS line separators U+2028/U+2029
// are escaped; other characters pass through as UTF-8.
func quoteJS(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\u2028':
			b.WriteString(`\u2028`)
		case '\u2029':
			b.WriteString(`\u2029`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
