package character

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePrompts(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

func TestNewAppliesDefaultsAndOverrides(t *testing.T) {
	root := t.TempDir()
	c, err := New("alice", "Alice", root,
		WithKindOverrides("guard", map[string]interface{}{
			"attitude":  30,
			"on_duty":   true,
			"post_name": "north gate",
		}),
		WithInitialVars(map[string]interface{}{"attitude": 35}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Kind != "guard" {
		t.Fatalf("kind = %q", c.Kind)
	}
	// base default, overridden by kind, overridden again by initial vars
	if c.Vars["attitude"] != int64(35) {
		t.Fatalf("attitude = %#v", c.Vars["attitude"])
	}
	if c.Vars["on_duty"] != true || c.Vars["post_name"] != "north gate" {
		t.Fatalf("vars = %#v", c.Vars)
	}
	// untouched base default survives
	if c.Vars["player_name"] != "Player" {
		t.Fatalf("player_name = %#v", c.Vars["player_name"])
	}
}

func TestSetVariableCoercesStringForms(t *testing.T) {
	c, err := New("alice", "Alice", t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.SetVariable("flag", "true")
	c.SetVariable("count", "12")
	c.SetVariable("ratio", "0.5")
	c.SetVariable("name", `"quoted"`)
	c.SetVariable("plain", "words here")

	if c.Vars["flag"] != true {
		t.Fatalf("flag = %#v", c.Vars["flag"])
	}
	if c.Vars["count"] != int64(12) {
		t.Fatalf("count = %#v", c.Vars["count"])
	}
	if c.Vars["ratio"] != float64(0.5) {
		t.Fatalf("ratio = %#v", c.Vars["ratio"])
	}
	if c.Vars["name"] != "quoted" {
		t.Fatalf("name = %#v", c.Vars["name"])
	}
	if c.Vars["plain"] != "words here" {
		t.Fatalf("plain = %#v", c.Vars["plain"])
	}
}

func TestComposeExpandsTemplateAndInserts(t *testing.T) {
	root := writePrompts(t, map[string]string{
		"alice/main_template.txt":   "[<intro.script>]\n{{SYS_INFO}}",
		"alice/intro.script":        `RETURN "I am " + name_line`,
	})
	c, err := New("alice", "Alice", root,
		WithInitialVars(map[string]interface{}{"name_line": "Alice the guard"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Compose(map[string]string{"SYS_INFO": "the player waves"})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if res.Text != "I am Alice the guard\nthe player waves" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestComposeInsertAndTagSection(t *testing.T) {
	root := writePrompts(t, map[string]string{
		"alice/main_template.txt": "Hello {{NAME}} [<part.txt>]",
		"alice/part.txt":          "[#X]World[/X]",
	})
	c, err := New("alice", "Alice", root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Compose(map[string]string{"NAME": "Bot"})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if res.Text != "Hello Bot World" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestComposeRecordsVariableMutations(t *testing.T) {
	root := writePrompts(t, map[string]string{
		"alice/main_template.txt": "[<tick.script>]",
		"alice/tick.script": `SET boredom = boredom + 1
RETURN ""`,
	})
	c, err := New("alice", "Alice", root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Compose(nil)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if res.VarsBefore["boredom"] != int64(10) {
		t.Fatalf("before = %#v", res.VarsBefore["boredom"])
	}
	if res.VarsAfter["boredom"] != int64(11) || c.Vars["boredom"] != int64(11) {
		t.Fatalf("after = %#v", res.VarsAfter["boredom"])
	}
}

func TestComposeCollectsLogsAndSystemInfo(t *testing.T) {
	root := writePrompts(t, map[string]string{
		"alice/main_template.txt": "[<obs.script>]",
		"alice/obs.script": `LOG "observed"
ADD_SYSTEM_INFO "guard is alert"
RETURN "text"`,
	})
	c, err := New("alice", "Alice", root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Compose(nil)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(res.Logs) != 1 || !strings.Contains(res.Logs[0], "observed") {
		t.Fatalf("logs = %#v", res.Logs)
	}
	if len(res.SystemInfo) != 1 || res.SystemInfo[0] != "guard is alert" {
		t.Fatalf("system info = %#v", res.SystemInfo)
	}
}

func TestComposeSetsSystemDatetime(t *testing.T) {
	root := writePrompts(t, map[string]string{
		"alice/main_template.txt": "now: [{SYSTEM_DATETIME}]",
	})
	c, err := New("alice", "Alice", root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Compose(nil)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if res.Text == "now: " || !strings.HasPrefix(res.Text, "now: ") {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestComposeBrokenIncludeDegradesToMarker(t *testing.T) {
	root := writePrompts(t, map[string]string{
		"alice/main_template.txt": "ok [<broken.script>] still ok",
		"alice/broken.script":     "FROBNICATE",
	})
	c, err := New("alice", "Alice", root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Compose(nil)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if res.Text != "ok [DSL ERROR IN broken.script] still ok" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestComposeBlocksSkipsBlankBlocks(t *testing.T) {
	root := writePrompts(t, map[string]string{
		"alice/main_template.txt": "[<a.script>]\n[<b.script>]\n[<c.script>]",
		"alice/a.script":          `RETURN "first"`,
		"alice/b.script":          `RETURN ""`,
		"alice/c.script":          `RETURN "third"`,
	})
	c, err := New("alice", "Alice", root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.ComposeBlocks(nil)
	if err != nil {
		t.Fatalf("ComposeBlocks: %v", err)
	}
	if len(res.Blocks) != 2 {
		t.Fatalf("blocks = %#v", res.Blocks)
	}
	if res.Text != "first\nthird" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestComposeTemplateExplicitEntry(t *testing.T) {
	root := writePrompts(t, map[string]string{
		"alice/alt.txt": "alternate entry",
	})
	c, err := New("alice", "Alice", root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.ComposeTemplate("alt.txt", nil)
	if err != nil {
		t.Fatalf("ComposeTemplate: %v", err)
	}
	if res.Text != "alternate entry" {
		t.Fatalf("text = %q", res.Text)
	}
}
