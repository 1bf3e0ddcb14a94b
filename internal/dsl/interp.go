// Package dsl implements the prompt-script runtime: logical-line
// segmentation, statement execution, tag-section extraction and recursive
// template expansion. A broken fragment never aborts the whole composition;
// it degrades to an inline, greppable error marker.
package dsl

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kayz/charscript/internal/dsl/expr"
	"github.com/kayz/charscript/internal/logger"
	"github.com/kayz/charscript/internal/resolver"
)

// MaxRecursion bounds template-expansion passes.
const MaxRecursion = 10

// maxMissingFills bounds the bind-to-null auto-repair per expression.
const maxMissingFills = 10

// Context is the character-like object a composition runs against. The
// variable map is live: SET writes through to it and mutations persist
// across composition calls.
type Context interface {
	ID() string
	Variables() map[string]interface{}
}

// Interpreter executes scripts and expands templates for one composition
// call. Not safe for concurrent use; each call needs its own instance.
type Interpreter struct {
	ctx     Context
	res     *resolver.Resolver
	inserts map[string]string
	sysInfo []string
	logs    []string
	depth   int
	tripped bool
}

// New creates an Interpreter bound to a character context and resolver.
func New(ctx Context, res *resolver.Resolver) *Interpreter {
	return &Interpreter{ctx: ctx, res: res, inserts: map[string]string{}}
}

// SetInsert registers a pre-rendered value for a {{NAME}} insert token.
func (in *Interpreter) SetInsert(name, value string) {
	in.inserts[strings.ToUpper(name)] = value
}

// Logs returns the LOG side channel collected so far.
func (in *Interpreter) Logs() []string { return in.logs }

// SystemInfo returns the ADD_SYSTEM_INFO accumulator collected so far.
func (in *Interpreter) SystemInfo() []string { return in.sysInfo }

// runScope is the per-script-run state. Every script run gets a fresh one;
// locals are strictly isolated from nested and sibling runs.
type runScope struct {
	script   string // resolved id, for error context
	locals   map[string]expr.Value
	declared map[string]bool
}

func newRunScope(script string) *runScope {
	return &runScope{
		script:   script,
		locals:   map[string]expr.Value{},
		declared: map[string]bool{},
	}
}

// execScope overlays run locals on the character's globals. With coerce set
// every scalar resolves to its string form (the second repair strategy).
type execScope struct {
	locals  map[string]expr.Value
	globals map[string]interface{}
	coerce  bool
}

func (s execScope) Lookup(name string) (expr.Value, bool) {
	v, ok := s.locals[name]
	if !ok {
		v, ok = s.globals[name]
	}
	if !ok {
		return nil, false
	}
	if s.coerce && expr.IsScalar(v) {
		return expr.ToString(v), true
	}
	return v, true
}

type ifFrame struct {
	branchTaken bool
	skip        bool
}

func anySkip(frames []ifFrame) bool {
	for _, f := range frames {
		if f.skip {
			return true
		}
	}
	return false
}

// ProcessScript executes a script and returns its text. Fatal errors are
// converted to an inline marker so a broken include cannot abort the whole
// composition.
func (in *Interpreter) ProcessScript(rel string) string {
	text, err := in.runScript(rel)
	if err == nil {
		return text
	}
	file := rel
	var de *Error
	if errors.As(err, &de) && de.File != "" {
		file = de.File
	}
	logger.Error("script %s failed: %v", rel, err)
	return ErrorMarker(file)
}

func (in *Interpreter) runScript(rel string) (string, error) {
	resolved, err := in.res.Resolve(rel)
	if err != nil {
		return "", &Error{Kind: KindResolution, Msg: fmt.Sprintf("cannot resolve script path %q", rel), File: rel, Cause: err}
	}
	dir, err := in.res.Dirname(resolved)
	if err != nil {
		return "", &Error{Kind: KindResolution, Msg: "cannot derive script directory", File: string(resolved), Cause: err}
	}
	in.res.PushContext(dir)
	defer in.res.PopContext()

	logger.Info("[%s] executing script %s (resolved %s)", in.ctx.ID(), rel, resolved)

	content, err := in.res.Load(resolved)
	if err != nil {
		return "", &Error{Kind: KindResolution, Msg: fmt.Sprintf("cannot load script %q", rel), File: string(resolved), Cause: err}
	}
	lines, err := SplitLogicalLines(content)
	if err != nil {
		var de *Error
		if errors.As(err, &de) {
			de.File = string(resolved)
		}
		return "", err
	}

	rs := newRunScope(string(resolved))
	var ifStack []ifFrame

	for idx, raw := range lines {
		num := idx + 1
		stripped := strings.TrimSpace(raw)
		if stripped == "" || strings.HasPrefix(stripped, "//") {
			continue
		}

		skipping := anySkip(ifStack)
		commandPart := strings.TrimSpace(strings.SplitN(stripped, "//", 2)[0])
		if commandPart == "" {
			continue
		}
		fields := strings.SplitN(commandPart, " ", 2)
		command := strings.ToUpper(strings.TrimSpace(fields[0]))
		args := ""
		if len(fields) > 1 {
			args = strings.TrimSpace(fields[1])
		}

		switch command {
		case "IF":
			cond := stripThen(args)
			frame := ifFrame{}
			if !skipping {
				met, err := in.evalCondition(cond, rs, num, raw)
				if err != nil {
					return "", err
				}
				frame.branchTaken = met
			}
			frame.skip = skipping || !frame.branchTaken
			ifStack = append(ifStack, frame)
			continue

		case "ELSEIF":
			if len(ifStack) == 0 {
				return "", &Error{Kind: KindParse, Msg: "ELSEIF without IF", File: string(resolved), Line: num, LineText: raw}
			}
			frame := &ifStack[len(ifStack)-1]
			parentSkip := anySkip(ifStack[:len(ifStack)-1])
			if !parentSkip && !frame.branchTaken {
				met, err := in.evalCondition(stripThen(args), rs, num, raw)
				if err != nil {
					return "", err
				}
				frame.branchTaken = met
				frame.skip = !met
			} else {
				frame.skip = true
			}
			continue

		case "ELSE":
			if len(ifStack) == 0 {
				return "", &Error{Kind: KindParse, Msg: "ELSE without IF", File: string(resolved), Line: num, LineText: raw}
			}
			if args != "" {
				return "", &Error{Kind: KindParse, Msg: "ELSE takes no arguments", File: string(resolved), Line: num, LineText: raw}
			}
			frame := &ifStack[len(ifStack)-1]
			parentSkip := anySkip(ifStack[:len(ifStack)-1])
			frame.skip = parentSkip || frame.branchTaken
			if !frame.skip {
				frame.branchTaken = true
			}
			continue

		case "ENDIF":
			if len(ifStack) == 0 {
				return "", &Error{Kind: KindParse, Msg: "ENDIF without IF", File: string(resolved), Line: num, LineText: raw}
			}
			if args != "" {
				return "", &Error{Kind: KindParse, Msg: "ENDIF takes no arguments", File: string(resolved), Line: num, LineText: raw}
			}
			ifStack = ifStack[:len(ifStack)-1]
			continue
		}

		if skipping {
			continue
		}

		switch command {
		case "SET":
			if err := in.execSet(args, rs, num, raw); err != nil {
				return "", err
			}

		case "LOG":
			val, err := in.evalExpr(args, rs, num, raw)
			if err != nil {
				// LOG failures never abort the script
				logger.Debug("[%s] LOG failed at %s:%d: %v", in.ctx.ID(), filepath.Base(rel), num, err)
				continue
			}
			prefix := fmt.Sprintf("%s:%d", filepath.Base(rel), num)
			in.logs = append(in.logs, fmt.Sprintf("%-40s| %s", prefix, expr.ToString(val)))

		case "ADD_SYSTEM_INFO":
			if args == "" {
				return "", &Error{Kind: KindParse, Msg: "ADD_SYSTEM_INFO requires an argument", File: string(resolved), Line: num, LineText: raw}
			}
			content, err := in.resolveInfoArg(args, rs, num, raw)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(content) != "" {
				in.sysInfo = append(in.sysInfo, content)
			}

		case "RETURN":
			txt, err := in.resolveReturnArg(args, rs, num, raw)
			if err != nil {
				return "", err
			}
			return in.ProcessTemplateContent(txt, fmt.Sprintf("RETURN in %s:%d", rel, num)), nil

		default:
			return "", &Error{Kind: KindParse, Msg: fmt.Sprintf("unknown command %q", command), File: string(resolved), Line: num, LineText: raw}
		}
	}

	if len(ifStack) > 0 {
		logger.Warn("[%s] script %s ended with unterminated IF block(s)", in.ctx.ID(), rel)
	}
	return "", nil
}

// stripThen drops a trailing THEN keyword from an IF/ELSEIF condition.
func stripThen(args string) string {
	cond := strings.TrimSpace(args)
	if strings.HasSuffix(strings.ToUpper(cond), " THEN") {
		cond = strings.TrimSpace(cond[:len(cond)-len(" THEN")])
	}
	return cond
}

func (in *Interpreter) execSet(args string, rs *runScope, num int, raw string) error {
	isLocal := false
	rest := args
	if fields := strings.SplitN(rest, " ", 2); len(fields) > 1 && strings.EqualFold(strings.TrimSpace(fields[0]), "LOCAL") {
		isLocal = true
		rest = strings.TrimSpace(fields[1])
	}
	eq := strings.Index(rest, "=")
	if eq < 0 {
		return &Error{Kind: KindParse, Msg: "SET requires '='", File: rs.script, Line: num, LineText: raw}
	}
	name := strings.TrimSpace(rest[:eq])
	exprText := strings.TrimSpace(rest[eq+1:])
	if name == "" {
		return &Error{Kind: KindParse, Msg: "SET requires a variable name", File: rs.script, Line: num, LineText: raw}
	}

	// first SET LOCAL wins; a repeated declaration in the same run is a no-op
	if isLocal {
		if _, exists := rs.locals[name]; exists && rs.declared[name] {
			return nil
		}
	}

	val, err := in.evalExpr(exprText, rs, num, raw)
	if err != nil {
		return err
	}

	switch {
	case isLocal:
		rs.declared[name] = true
		rs.locals[name] = val
	case rs.declared[name]:
		// shadow persists for the remainder of this run
		rs.locals[name] = val
	default:
		in.ctx.Variables()[name] = val
	}
	return nil
}

var (
	loadRelArgRe  = regexp.MustCompile(`(?i)^LOAD_?REL\s+(.+)$`)
	loadTagPathRe = regexp.MustCompile(`(?i)^([A-Z0-9_]+)\s+FROM\s+(.+)$`)
)

func unquotePath(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	s = strings.Trim(s, `'`)
	return s
}

// resolveReturnArg resolves a RETURN argument: a LOAD/LOAD_REL directive or
// an expression, yielding the text to be template-processed.
func (in *Interpreter) resolveReturnArg(args string, rs *runScope, num int, raw string) (string, error) {
	arg := strings.TrimSpace(args)
	upper := strings.ToUpper(arg)

	if strings.HasPrefix(upper, "LOAD_REL ") || strings.HasPrefix(upper, "LOADREL ") {
		rel := unquotePath(loadRelArgRe.FindStringSubmatch(arg)[1])
		id, err := in.res.Resolve(rel)
		if err != nil {
			return "", &Error{Kind: KindResolution, Msg: fmt.Sprintf("RETURN LOAD_REL %q failed", rel), File: rs.script, Line: num, LineText: raw, Cause: err}
		}
		txt, err := in.res.Load(id)
		if err != nil {
			return "", &Error{Kind: KindResolution, Msg: fmt.Sprintf("RETURN LOAD_REL %q failed", rel), File: rs.script, Line: num, LineText: raw, Cause: err}
		}
		return StripTagMarkers(txt), nil
	}

	if strings.HasPrefix(upper, "LOAD ") {
		afterLoad := strings.TrimSpace(arg[len("LOAD "):])
		if m := loadTagPathRe.FindStringSubmatch(afterLoad); m != nil {
			tag := strings.ToUpper(m[1])
			rel := unquotePath(m[2])
			section, err := in.extractTagSection(rel, tag, rs, num, raw)
			if err != nil {
				return "", err
			}
			return in.ProcessTemplateContent(section, fmt.Sprintf("LOAD %s FROM %s in %s:%d", tag, rel, filepath.Base(rs.script), num)), nil
		}
		rel := unquotePath(afterLoad)
		id, err := in.res.Resolve(rel)
		if err != nil {
			return "", &Error{Kind: KindResolution, Msg: fmt.Sprintf("RETURN LOAD %q failed", rel), File: rs.script, Line: num, LineText: raw, Cause: err}
		}
		txt, err := in.res.Load(id)
		if err != nil {
			return "", &Error{Kind: KindResolution, Msg: fmt.Sprintf("RETURN LOAD %q failed", rel), File: rs.script, Line: num, LineText: raw, Cause: err}
		}
		return StripTagMarkers(txt), nil
	}

	val, err := in.evalExpr(arg, rs, num, raw)
	if err != nil {
		return "", err
	}
	return expr.ToString(val), nil
}

// resolveInfoArg resolves an ADD_SYSTEM_INFO argument. LOAD_REL and untagged
// LOAD run through full file processing; tagged LOAD extracts and expands
// the section; anything else evaluates as an expression.
func (in *Interpreter) resolveInfoArg(args string, rs *runScope, num int, raw string) (string, error) {
	arg := strings.TrimSpace(args)
	upper := strings.ToUpper(arg)

	if strings.HasPrefix(upper, "LOAD_REL ") || strings.HasPrefix(upper, "LOADREL ") {
		rel := unquotePath(loadRelArgRe.FindStringSubmatch(arg)[1])
		return in.ProcessFile(rel), nil
	}
	if strings.HasPrefix(upper, "LOAD ") {
		afterLoad := strings.TrimSpace(arg[len("LOAD "):])
		if m := loadTagPathRe.FindStringSubmatch(afterLoad); m != nil {
			tag := strings.ToUpper(m[1])
			rel := unquotePath(m[2])
			section, err := in.extractTagSection(rel, tag, rs, num, raw)
			if err != nil {
				return "", err
			}
			return in.ProcessTemplateContent(section, fmt.Sprintf("ADD_SYSTEM_INFO LOAD %s FROM %s in %s:%d", tag, rel, filepath.Base(rs.script), num)), nil
		}
		return in.ProcessFile(unquotePath(afterLoad)), nil
	}

	val, err := in.evalExpr(arg, rs, num, raw)
	if err != nil {
		return "", err
	}
	return expr.ToString(val), nil
}

func (in *Interpreter) extractTagSection(rel, tag string, rs *runScope, num int, raw string) (string, error) {
	id, err := in.res.Resolve(rel)
	if err != nil {
		return "", &Error{Kind: KindResolution, Msg: fmt.Sprintf("cannot resolve %q for tag [#%s]", rel, tag), File: rs.script, Line: num, LineText: raw, Cause: err}
	}
	text, err := in.res.Load(id)
	if err != nil {
		return "", &Error{Kind: KindResolution, Msg: fmt.Sprintf("cannot load %q for tag [#%s]", rel, tag), File: rs.script, Line: num, LineText: raw, Cause: err}
	}
	section, err := ExtractTag(text, tag, string(id))
	if err != nil {
		var de *Error
		if errors.As(err, &de) {
			de.Line = num
			de.LineText = raw
		}
		return "", err
	}
	return section, nil
}

// evalCondition evaluates an IF/ELSEIF condition to a boolean.
func (in *Interpreter) evalCondition(cond string, rs *runScope, num int, raw string) (bool, error) {
	val, err := in.evalExpr(cond, rs, num, raw)
	if err != nil {
		return false, err
	}
	return expr.Truthy(val), nil
}

// evalExpr evaluates an expression with inline-LOAD expansion and the two
// bounded auto-repair strategies: bind undefined names to null, then retry
// once with scalars coerced to strings on a concatenation type mismatch.
func (in *Interpreter) evalExpr(exprText string, rs *runScope, num int, raw string) (expr.Value, error) {
	expanded, err := in.expandInlineLoads(exprText, rs, num, raw)
	if err != nil {
		return nil, err
	}

	scope := execScope{locals: rs.locals, globals: in.ctx.Variables()}
	fills := 0
	for {
		val, err := expr.Eval(expanded, scope)
		if err == nil {
			return val, nil
		}

		var undef *expr.UndefinedNameError
		if errors.As(err, &undef) && fills < maxMissingFills {
			logger.Debug("auto-initializing unknown variable %q with null in local scope", undef.Name)
			rs.locals[undef.Name] = nil
			fills++
			continue
		}

		var mismatch *expr.TypeMismatchError
		if errors.As(err, &mismatch) && mismatch.Concat {
			logger.Debug("retrying %q with scalars coerced to strings (%s:%d)", exprText, filepath.Base(rs.script), num)
			coerced := execScope{locals: rs.locals, globals: in.ctx.Variables(), coerce: true}
			if val, err2 := expr.Eval(expanded, coerced); err2 == nil {
				return val, nil
			}
		}

		return nil, &Error{
			Kind:     KindEval,
			Msg:      fmt.Sprintf("error evaluating %q", exprText),
			File:     rs.script,
			Line:     num,
			LineText: raw,
			Cause:    err,
		}
	}
}

var (
	inlineLoadRe    = regexp.MustCompile(`(?i)\bLOAD(?:\s+([A-Z0-9_]+))?\s+FROM\s+['"]([^'"]+)['"]`)
	inlineLoadRelRe = regexp.MustCompile(`(?i)\bLOAD_?REL\s+['"]([^'"]+)['"]`)
)

// expandInlineLoads replaces LOAD [TAG] FROM "path" and LOAD_REL "path"
// directives inside an expression with quoted literals holding the loaded,
// template-processed content.
func (in *Interpreter) expandInlineLoads(exprText string, rs *runScope, num int, raw string) (string, error) {
	var firstErr error

	out := inlineLoadRelRe.ReplaceAllStringFunc(exprText, func(m string) string {
		if firstErr != nil {
			return m
		}
		rel := inlineLoadRelRe.FindStringSubmatch(m)[1]
		lit, err := in.inlineLoadLiteral(rel, "", rs, num, raw)
		if err != nil {
			firstErr = err
			return m
		}
		return lit
	})

	out = inlineLoadRe.ReplaceAllStringFunc(out, func(m string) string {
		if firstErr != nil {
			return m
		}
		sub := inlineLoadRe.FindStringSubmatch(m)
		lit, err := in.inlineLoadLiteral(sub[2], sub[1], rs, num, raw)
		if err != nil {
			firstErr = err
			return m
		}
		return lit
	})

	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// inlineLoadLiteral loads one inline directive target, with tag extraction
// when tag is non-empty, and renders it as a quoted string literal.
func (in *Interpreter) inlineLoadLiteral(rel, tag string, rs *runScope, num int, raw string) (string, error) {
	var content string
	if tag == "" {
		id, err := in.res.Resolve(rel)
		if err != nil {
			return "", &Error{Kind: KindResolution, Msg: fmt.Sprintf("inline LOAD %q failed", rel), File: rs.script, Line: num, LineText: raw, Cause: err}
		}
		text, err := in.res.Load(id)
		if err != nil {
			return "", &Error{Kind: KindResolution, Msg: fmt.Sprintf("inline LOAD %q failed", rel), File: rs.script, Line: num, LineText: raw, Cause: err}
		}
		content = StripTagMarkers(text)
	} else {
		section, err := in.extractTagSection(rel, strings.ToUpper(tag), rs, num, raw)
		if err != nil {
			return "", err
		}
		content = section
	}
	processed := in.ProcessTemplateContent(content, fmt.Sprintf("inline LOAD in %s:%d", filepath.Base(rs.script), num))
	return quoteLiteral(processed), nil
}

var literalQuoter = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\t", `\t`,
	"\r", `\r`,
)

func quoteLiteral(s string) string {
	return `"` + literalQuoter.Replace(s) + `"`
}
