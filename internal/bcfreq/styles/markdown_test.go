package styles

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	md := "# Report\n\n| Count | Instruction |\n| ---: | --- |\n| 3 | `BINOP +` |\n"
	out, err := Render(md, 60)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"Report", "BINOP +"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered output missing %q:\n%s", want, out)
		}
	}
}
