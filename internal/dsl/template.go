package dsl

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kayz/charscript/internal/dsl/expr"
	"github.com/kayz/charscript/internal/logger"
)

var (
	// placeholderRe matches inclusion tokens like [<Scripts/intro.script>].
	placeholderRe = regexp.MustCompile(`\[<([^>]+\.(?:script|txt|system))>\]`)
	// insertRe matches caller-supplied insert tokens like {{SYS_INFO}}.
	insertRe = regexp.MustCompile(`\{\{([A-Z0-9_]+)\}\}`)
	// txtVarRe matches variable references inside .txt templates.
	txtVarRe = regexp.MustCompile(`\[\{([A-Za-z_][A-Za-z0-9_]*)\}\]`)
)

// MandatoryInserts are insert names a template is expected to carry; their
// absence is warned about, never fatal.
var MandatoryInserts = []string{"SYS_INFO"}

// ProcessTemplateContent recursively substitutes placeholder tokens in text.
// Scripts execute, .txt files expand recursively, and each pass that makes
// no progress replaces the offending placeholder with a stall marker so the
// loop always terminates. Nesting depth across included files is bounded by
// MaxRecursion; past that a terminal marker is appended and expansion stops,
// which is what breaks mutually recursive includes.
func (in *Interpreter) ProcessTemplateContent(text, ctxLabel string) string {
	if in.depth >= MaxRecursion {
		return in.tripRecursion(text, ctxLabel)
	}
	in.depth++
	defer func() {
		in.depth--
		if in.depth == 0 {
			in.tripped = false
		}
	}()

	pass := 0
	for placeholderRe.MatchString(text) && pass < MaxRecursion && !in.tripped {
		pass++
		processed := placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
			rel := placeholderRe.FindStringSubmatch(m)[1]
			logger.Debug("processing placeholder %s in %q, pass %d", rel, ctxLabel, pass)
			return in.expandPlaceholder(rel)
		})

		if processed == text {
			loc := placeholderRe.FindStringSubmatchIndex(text)
			rel := text[loc[2]:loc[3]]
			logger.Error("template expansion stalled at pass %d in %q, unresolved: %s", pass, ctxLabel, rel)
			text = text[:loc[0]] + fmt.Sprintf("[STALLED DSL ERROR %s]", rel) + text[loc[1]:]
			continue
		}
		text = processed
	}

	if pass >= MaxRecursion {
		text = in.tripRecursion(text, ctxLabel)
	}
	return text
}

// tripRecursion marks the composition as over the recursion limit. The first
// trip appends the terminal marker; every later frame just stops expanding.
func (in *Interpreter) tripRecursion(text, ctxLabel string) string {
	if in.tripped {
		return text
	}
	in.tripped = true
	logger.Error("max recursion depth (%d) reached in %q", MaxRecursion, ctxLabel)
	return text + fmt.Sprintf("\n[DSL ERROR: MAX RECURSION %d REACHED IN '%s']", MaxRecursion, ctxLabel)
}

func (in *Interpreter) expandPlaceholder(rel string) string {
	id, err := in.res.Resolve(rel)
	if err != nil {
		logger.Error("cannot resolve placeholder %s: %v", rel, err)
		return fmt.Sprintf("[DSL ERROR %s]", rel)
	}
	dir, err := in.res.Dirname(id)
	if err != nil {
		logger.Error("cannot derive directory for placeholder %s: %v", rel, err)
		return fmt.Sprintf("[DSL ERROR %s]", rel)
	}
	in.res.PushContext(dir)
	defer in.res.PopContext()

	switch {
	case strings.HasSuffix(rel, ".script"), strings.HasSuffix(rel, ".system"):
		return in.ProcessScript(rel)
	case strings.HasSuffix(rel, ".txt"):
		return in.ProcessFile(rel)
	}
	return fmt.Sprintf("[DSL ERROR %s]", rel)
}

// ProcessFile processes one included file by extension: scripts execute,
// .txt templates expand. Failures degrade to an inline marker.
func (in *Interpreter) ProcessFile(rel string) string {
	switch {
	case strings.HasSuffix(rel, ".script"), strings.HasSuffix(rel, ".system"):
		return in.ProcessScript(rel)
	case strings.HasSuffix(rel, ".txt"):
		return in.processTxt(rel)
	}
	logger.Error("unsupported file type for processing: %s", rel)
	return fmt.Sprintf("[DSL ERROR IN FILE %s]", filepath.Base(rel))
}

// processTxt expands a text template: placeholders first, then [{var}]
// variable references from the character store (null renders empty).
func (in *Interpreter) processTxt(rel string) string {
	id, err := in.res.Resolve(rel)
	if err != nil {
		logger.Error("cannot resolve file %s: %v", rel, err)
		return fmt.Sprintf("[DSL ERROR IN FILE %s]", filepath.Base(rel))
	}
	dir, err := in.res.Dirname(id)
	if err != nil {
		logger.Error("cannot derive directory for %s: %v", rel, err)
		return fmt.Sprintf("[DSL ERROR IN FILE %s]", filepath.Base(rel))
	}
	in.res.PushContext(dir)
	defer in.res.PopContext()

	raw, err := in.res.Load(id)
	if err != nil {
		logger.Error("cannot load file %s: %v", rel, err)
		return fmt.Sprintf("[DSL ERROR IN FILE %s]", filepath.Base(rel))
	}

	// a txt included whole keeps its section content, not the markers
	raw = StripTagMarkers(raw)

	withIncludes := in.ProcessTemplateContent(raw, fmt.Sprintf("txt %s", rel))

	return txtVarRe.ReplaceAllStringFunc(withIncludes, func(m string) string {
		name := txtVarRe.FindStringSubmatch(m)[1]
		v, ok := in.ctx.Variables()[name]
		if !ok || v == nil {
			return ""
		}
		return expr.ToString(v)
	})
}

// Placeholders returns the placeholder paths appearing in text, in order
// of appearance, without resolving or expanding them.
func Placeholders(text string) []string {
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// ApplyInserts performs the single insert-token substitution pass. Unknown
// tokens are left in place; mandatory insert names missing from the original
// text are warned about.
func (in *Interpreter) ApplyInserts(text, ctxLabel string) string {
	processed := insertRe.ReplaceAllStringFunc(text, func(m string) string {
		name := strings.ToUpper(insertRe.FindStringSubmatch(m)[1])
		if v, ok := in.inserts[name]; ok {
			return v
		}
		return m
	})
	for _, name := range MandatoryInserts {
		token := "{{" + name + "}}"
		if !strings.Contains(text, token) {
			logger.Warn("mandatory insert %s not found while processing %s", token, ctxLabel)
		}
	}
	return processed
}
