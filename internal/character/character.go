// Package character holds the character context a composition runs against:
// identity, base directory and the mutable variable store, plus the compose
// entry points most callers use.
package character

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kayz/charscript/internal/dsl"
	"github.com/kayz/charscript/internal/logger"
	"github.com/kayz/charscript/internal/resolver"
)

// BaseDefaults are the variables every character starts from. Kind
// overrides and caller-supplied initial values are layered on top.
var BaseDefaults = map[string]interface{}{
	"attitude":              int64(60),
	"boredom":               int64(10),
	"stress":                int64(5),
	"secretExposed":         false,
	"current_fsm_state":     "Hello",
	"available_action_level": int64(1),
	"player_name":           "Player",
	"player_name_known":     false,
}

// Character is one AI character: identity plus its variable store. The
// store is mutated by SET statements and persists across compositions on
// the same instance; there is no rollback on error.
type Character struct {
	CharID       string
	Name         string
	Kind         string
	PromptsRoot  string // absolute
	BaseDir      string // absolute, <PromptsRoot>/<CharID>
	MainTemplate string
	Vars         map[string]interface{}
}

// Option adjusts a new Character.
type Option func(*Character)

// WithKindOverrides layers a kind's variable overrides (from the config
// kind table) over the base defaults.
func WithKindOverrides(kind string, overrides map[string]interface{}) Option {
	return func(c *Character) {
		c.Kind = kind
		for k, v := range overrides {
			c.Vars[k] = normalizeValue(v)
		}
	}
}

// WithInitialVars applies caller-supplied initial variables last.
func WithInitialVars(vars map[string]interface{}) Option {
	return func(c *Character) {
		for k, v := range vars {
			c.Vars[k] = normalizeValue(v)
		}
	}
}

// WithMainTemplate overrides the default entry template.
func WithMainTemplate(rel string) Option {
	return func(c *Character) {
		if rel != "" {
			c.MainTemplate = rel
		}
	}
}

// New creates a Character rooted at <promptsRoot>/<id>.
func New(id, name, promptsRoot string, opts ...Option) (*Character, error) {
	abs, err := filepath.Abs(promptsRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve prompts root: %w", err)
	}
	c := &Character{
		CharID:       id,
		Name:         name,
		PromptsRoot:  abs,
		BaseDir:      filepath.Join(abs, id),
		MainTemplate: "main_template.txt",
		Vars:         map[string]interface{}{},
	}
	for k, v := range BaseDefaults {
		c.Vars[k] = v
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ID implements dsl.Context.
func (c *Character) ID() string { return c.CharID }

// Variables implements dsl.Context; the returned map is live.
func (c *Character) Variables() map[string]interface{} { return c.Vars }

// GetVariable reads one variable.
func (c *Character) GetVariable(name string) (interface{}, bool) {
	v, ok := c.Vars[name]
	return v, ok
}

// SetVariable writes one variable, coercing string forms of booleans and
// numbers to their typed values.
func (c *Character) SetVariable(name string, value interface{}) {
	if s, ok := value.(string); ok {
		switch strings.ToLower(s) {
		case "true":
			value = true
		case "false":
			value = false
		default:
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				value = i
			} else if f, err := strconv.ParseFloat(s, 64); err == nil {
				value = f
			} else {
				value = strings.Trim(s, `'"`)
			}
		}
	}
	c.Vars[name] = normalizeValue(value)
}

// normalizeValue maps Go values (including what yaml and JSON decoders
// produce) onto the store's value set: string, int64, float64, bool, nil.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil, bool, int64, float64, string:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return float64(t)
	}
	return fmt.Sprintf("%v", v)
}

// Result is what a composition returns.
type Result struct {
	// Text is the fully expanded prompt; it may contain inline error
	// markers for fragments that failed.
	Text string
	// Blocks are the per-placeholder blocks of the legacy main-template
	// behavior; only ComposeBlocks fills it.
	Blocks []string
	// Logs is the LOG side channel of every script run in this call.
	Logs []string
	// SystemInfo is the ADD_SYSTEM_INFO accumulator.
	SystemInfo []string
	// VarsBefore and VarsAfter snapshot the store around the call.
	VarsBefore map[string]interface{}
	VarsAfter  map[string]interface{}
}

// Compose expands the character's entry template into final prompt text.
// inserts supplies values for {{NAME}} tokens. The variable store keeps any
// mutations the run performed, even when the text contains error markers.
func (c *Character) Compose(inserts map[string]string) (*Result, error) {
	return c.ComposeTemplate(c.MainTemplate, inserts)
}

// ComposeTemplate is Compose for an explicit entry path relative to the
// character's base directory.
func (c *Character) ComposeTemplate(entryRel string, inserts map[string]string) (*Result, error) {
	interp, _, err := c.newInterpreter(inserts)
	if err != nil {
		return nil, err
	}

	before := snapshot(c.Vars)
	text := interp.ProcessFile(entryRel)
	text = interp.ApplyInserts(text, entryRel)

	return &Result{
		Text:       text,
		Logs:       interp.Logs(),
		SystemInfo: interp.SystemInfo(),
		VarsBefore: before,
		VarsAfter:  snapshot(c.Vars),
	}, nil
}

// ComposeBlocks processes each top-level placeholder of the entry template
// into its own block, skipping blank ones, mirroring the legacy
// main-template behavior.
func (c *Character) ComposeBlocks(inserts map[string]string) (*Result, error) {
	interp, res, err := c.newInterpreter(inserts)
	if err != nil {
		return nil, err
	}

	before := snapshot(c.Vars)

	id, err := res.Resolve(c.MainTemplate)
	if err != nil {
		return nil, fmt.Errorf("resolve main template %q: %w", c.MainTemplate, err)
	}
	raw, err := res.Load(id)
	if err != nil {
		return nil, fmt.Errorf("load main template %q: %w", c.MainTemplate, err)
	}

	var blocks []string
	for _, rel := range dsl.Placeholders(raw) {
		content := interp.ProcessFile(rel)
		content = interp.ApplyInserts(content, rel)
		if strings.TrimSpace(content) != "" {
			blocks = append(blocks, content)
		}
	}

	return &Result{
		Text:       strings.Join(blocks, "\n"),
		Blocks:     blocks,
		Logs:       interp.Logs(),
		SystemInfo: interp.SystemInfo(),
		VarsBefore: before,
		VarsAfter:  snapshot(c.Vars),
	}, nil
}

func (c *Character) newInterpreter(inserts map[string]string) (*dsl.Interpreter, *resolver.Resolver, error) {
	c.Vars["SYSTEM_DATETIME"] = time.Now().Format("2006 January 02 (Monday) 15:04")

	res, err := resolver.New(c.PromptsRoot, c.BaseDir, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create resolver for %s: %w", c.CharID, err)
	}
	interp := dsl.New(c, res)
	for name, value := range inserts {
		interp.SetInsert(name, value)
	}
	logger.Debug("[%s] composing with %d insert(s)", c.CharID, len(inserts))
	return interp, res, nil
}

func snapshot(vars map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
