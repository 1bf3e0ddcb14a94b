// Package deps statically collects the transitive file references of a
// prompt entry point, without executing anything. Used for impact and
// cache-invalidation analysis.
package deps

import (
	"regexp"
	"strings"

	"github.com/kayz/charscript/internal/logger"
	"github.com/kayz/charscript/internal/resolver"
)

var (
	placeholderRe = regexp.MustCompile(`\[<([^\]]+\.(?:script|txt|system))>\]`)
	inlineLoadRe  = regexp.MustCompile(`(?i)\bLOAD(?:\s+[A-Z0-9_]+)?\s+FROM\s+['"]([^'"]+)['"]`)
	loadInArgRe   = regexp.MustCompile(`(?i)\bLOAD\s+(?:[A-Z0-9_]+\s+FROM\s+)?['"]([^'"]+)['"]`)
	loadRelRe     = regexp.MustCompile(`(?i)\bLOAD_?REL\s+['"]([^'"]+)['"]`)
)

var parsableExts = []string{".script", ".txt", ".system"}

// Collector walks reference graphs over a resolver. The resolver's context
// stack is pushed and popped around each file exactly as the executor does,
// so relative references resolve identically.
type Collector struct {
	res *resolver.Resolver
}

// New creates a Collector.
func New(res *resolver.Resolver) *Collector {
	return &Collector{res: res}
}

// Collect resolves the entry point and BFS-walks every transitively
// referenced resource, returning each id exactly once in discovery order.
// Unreadable or unresolvable dependencies are skipped with a warning; cycles
// terminate via the visited set.
func (c *Collector) Collect(entryRel string) ([]resolver.ID, error) {
	entry, err := c.res.Resolve(entryRel)
	if err != nil {
		return nil, err
	}

	var order []resolver.ID
	visited := map[resolver.ID]bool{}
	queue := []resolver.ID{entry}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		order = append(order, current)

		if !isParsable(current) {
			continue
		}
		content, err := c.res.Load(current)
		if err != nil {
			logger.Warn("dependency collection: cannot load %s: %v", current, err)
			continue
		}

		dir, err := c.res.Dirname(current)
		if err != nil {
			logger.Warn("dependency collection: cannot derive directory of %s: %v", current, err)
			continue
		}
		c.res.PushContext(dir)
		for _, rel := range scanReferences(content) {
			id, err := c.res.Resolve(rel)
			if err != nil {
				logger.Warn("dependency collection: cannot resolve %q found in %s: %v", rel, current, err)
				continue
			}
			if !visited[id] {
				queue = append(queue, id)
			}
		}
		c.res.PopContext()
	}
	return order, nil
}

func isParsable(id resolver.ID) bool {
	lower := strings.ToLower(string(id))
	for _, ext := range parsableExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// scanReferences extracts every relative reference in content: placeholder
// tokens, inline LOAD ... FROM directives, and LOAD/LOAD_REL forms inside
// RETURN arguments. Order is first-appearance; duplicates are dropped.
func scanReferences(content string) []string {
	var refs []string
	seen := map[string]bool{}
	add := func(rel string) {
		if rel != "" && !seen[rel] {
			seen[rel] = true
			refs = append(refs, rel)
		}
	}

	for _, m := range placeholderRe.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	for _, m := range inlineLoadRe.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	for _, m := range loadRelRe.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	for _, line := range strings.Split(content, "\n") {
		stripped := strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToUpper(stripped), "RETURN ") {
			continue
		}
		args := strings.TrimSpace(stripped[len("RETURN "):])
		for _, m := range loadInArgRe.FindAllStringSubmatch(args, -1) {
			add(m[1])
		}
	}
	return refs
}
