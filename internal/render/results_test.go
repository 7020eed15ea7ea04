package render

import (
	"strings"
	"testing"

	"github.com/danitzn/sb-frontend/internal/models"
)

func TestPaletteByName(t *testing.T) {
	for _, name := range PaletteNames() {
		p, ok := PaletteByName(name)
		if !ok {
			t.Errorf("PaletteByName(%q) not found", name)
		}
		if p.Name != name {
			t.Errorf("palette name = %q, want %q", p.Name, name)
		}
		if p.Success == "" || p.Warning == "" || p.Error == "" || p.Loading == "" {
			t.Errorf("palette %s is missing status colours", name)
		}
	}

	p, ok := PaletteByName("solarized")
	if ok {
		t.Error("unknown palette should report false")
	}
	if p.Name != DefaultPalette {
		t.Errorf("unknown palette should fall back to %s, got %s", DefaultPalette, p.Name)
	}
}

func TestStatusColor(t *testing.T) {
	p, _ := PaletteByName(DefaultPalette)
	tests := map[models.Status]string{
		models.StatusSuccess: string(p.Success),
		models.StatusWarning: string(p.Warning),
		models.StatusError:   string(p.Error),
		models.StatusLoading: string(p.Loading),
		models.Status("x"):   string(p.TextDim),
	}
	for status, want := range tests {
		if got := string(p.StatusColor(status)); got != want {
			t.Errorf("StatusColor(%s) = %s, want %s", status, got, want)
		}
	}
}

func TestProbeResult(t *testing.T) {
	p, _ := PaletteByName(DefaultPalette)
	r := models.ProbeResult{
		Name:      "3. CSRF check",
		Status:    models.StatusWarning,
		Message:   "CSRF protection may be blocking requests (403)",
		Details:   "Status: 403",
		ElapsedMs: models.Millis(42),
	}

	out := ProbeResult(r, p, false)
	for _, want := range []string{"3. CSRF check", "42ms", "(403)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q, got %q", want, out)
		}
	}
	if strings.Contains(out, "Status: 403") {
		t.Error("details should be hidden unless verbose")
	}

	if !strings.Contains(ProbeResult(r, p, true), "Status: 403") {
		t.Error("verbose output should include details")
	}
}

func TestResults(t *testing.T) {
	p, _ := PaletteByName(DefaultPalette)
	out := Results([]models.ProbeResult{
		{Name: "first", Status: models.StatusSuccess, Message: "ok"},
		{Name: "second", Status: models.StatusError, Message: "bad"},
	}, p, false)

	if strings.Index(out, "first") > strings.Index(out, "second") {
		t.Error("results should keep their order")
	}
	if strings.Count(out, "\n\n") != 1 {
		t.Errorf("expected one blank line between entries, got %q", out)
	}
}
