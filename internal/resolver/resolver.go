// Package resolver maps the relative references used inside prompt scripts
// and templates to root-bounded resource ids, and loads their content.
//
// Three addressing schemes are supported, tried in order:
//
//  1. "_CommonPrompts/..." and "_CommonScripts/..." resolve against the
//     global prompts root;
//  2. "./..." and "../..." resolve against the directory of the file
//     currently being processed (the top of the context stack);
//  3. everything else resolves against the character's base directory.
//
// Whatever the scheme, the normalized result must be the global prompts root
// or a descendant of it; anything else is a ResolutionError, never a
// silently clamped path.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ID is an opaque resolved resource identifier. Two IDs are equal iff they
// name the same resource.
type ID string

// ResolutionError reports a reference that could not be mapped to a resource
// inside the allowed root.
type ResolutionError struct {
	Ref string
	Msg string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %s", e.Ref, e.Msg)
}

// NotFoundError reports a resolved resource whose content does not exist.
type NotFoundError struct {
	ID    ID
	Cause error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.ID)
}

func (e *NotFoundError) Unwrap() error { return e.Cause }

// Loader is the storage backend behind a Resolver. The default is the local
// filesystem; an implementation backed by a remote fetch satisfies the same
// contract.
type Loader interface {
	// Load returns the text content of a resolved resource. Trailing
	// whitespace is trimmed from the result.
	Load(id ID) (string, error)
}

// FileLoader loads resources from the local filesystem.
type FileLoader struct{}

func (FileLoader) Load(id ID) (string, error) {
	info, err := os.Stat(string(id))
	if err != nil || info.IsDir() {
		return "", &NotFoundError{ID: id, Cause: err}
	}
	data, err := os.ReadFile(string(id))
	if err != nil {
		return "", &NotFoundError{ID: id, Cause: err}
	}
	return strings.TrimRight(string(data), " \t\r\n"), nil
}

const (
	commonPromptsPrefix = "_CommonPrompts"
	commonScriptsPrefix = "_CommonScripts"
)

// Resolver resolves relative references for one character against one global
// prompts root. It is not safe for concurrent use; each composition call
// needs its own instance because of the context stack.
type Resolver struct {
	globalRoot string
	charBase   string
	loader     Loader
	ctxStack   []ID
}

// New creates a Resolver. Both paths must be absolute and charBase must lie
// inside globalRoot.
func New(globalRoot, charBase string, loader Loader) (*Resolver, error) {
	if !filepath.IsAbs(globalRoot) {
		return nil, fmt.Errorf("global prompts root must be absolute: %s", globalRoot)
	}
	if !filepath.IsAbs(charBase) {
		return nil, fmt.Errorf("character base path must be absolute: %s", charBase)
	}
	globalRoot = filepath.Clean(globalRoot)
	charBase = filepath.Clean(charBase)
	if !within(globalRoot, charBase) {
		return nil, &ResolutionError{
			Ref: charBase,
			Msg: fmt.Sprintf("character base path is outside the prompts root %s", globalRoot),
		}
	}
	if loader == nil {
		loader = FileLoader{}
	}
	return &Resolver{globalRoot: globalRoot, charBase: charBase, loader: loader}, nil
}

// within reports whether path is root itself or a descendant of it.
func within(root, path string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

// Resolve maps a relative reference to a resource id per the addressing
// rules. Absolute references and results escaping the prompts root fail.
func (r *Resolver) Resolve(rel string) (ID, error) {
	if filepath.IsAbs(rel) {
		return "", &ResolutionError{Ref: rel, Msg: "absolute paths are not permitted"}
	}
	rel = filepath.FromSlash(rel)

	sep := string(filepath.Separator)
	switch {
	case strings.HasPrefix(rel, commonPromptsPrefix+sep),
		strings.HasPrefix(rel, commonScriptsPrefix+sep),
		rel == commonPromptsPrefix,
		rel == commonScriptsPrefix:
		return r.secureJoin(r.globalRoot, rel)
	case strings.HasPrefix(rel, "."+sep), strings.HasPrefix(rel, ".."+sep), rel == "..":
		return r.secureJoin(r.currentContextDir(), rel)
	default:
		return r.secureJoin(r.charBase, rel)
	}
}

func (r *Resolver) secureJoin(base, rel string) (ID, error) {
	joined := filepath.Clean(filepath.Join(base, rel))
	if !within(r.globalRoot, joined) {
		return "", &ResolutionError{
			Ref: rel,
			Msg: fmt.Sprintf("resolved path %s escapes the prompts root %s", joined, r.globalRoot),
		}
	}
	return ID(joined), nil
}

// Load returns the content behind a resolved id.
func (r *Resolver) Load(id ID) (string, error) {
	return r.loader.Load(id)
}

// Dirname returns the directory id of a resolved resource, verifying it is
// still inside the prompts root.
func (r *Resolver) Dirname(id ID) (ID, error) {
	dir := filepath.Dir(string(id))
	if !within(r.globalRoot, dir) {
		return "", &ResolutionError{
			Ref: string(id),
			Msg: fmt.Sprintf("derived directory %s escapes the prompts root %s", dir, r.globalRoot),
		}
	}
	return ID(dir), nil
}

// PushContext makes dir the base for "./" and "../" references until the
// matching PopContext.
func (r *Resolver) PushContext(dir ID) {
	r.ctxStack = append(r.ctxStack, dir)
}

// PopContext removes the top context directory.
func (r *Resolver) PopContext() {
	if len(r.ctxStack) == 0 {
		return
	}
	r.ctxStack = r.ctxStack[:len(r.ctxStack)-1]
}

func (r *Resolver) currentContextDir() string {
	if len(r.ctxStack) > 0 {
		return string(r.ctxStack[len(r.ctxStack)-1])
	}
	return r.charBase
}

// CharBase returns the character base directory id.
func (r *Resolver) CharBase() ID { return ID(r.charBase) }

// GlobalRoot returns the global prompts root id.
func (r *Resolver) GlobalRoot() ID { return ID(r.globalRoot) }
