package risk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/maestro/pkg/models"
)

func TestDetect(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		description string
		want        models.Risk
	}{
		{"sudo rm -rf /data", models.RiskCritical},
		{"sudo rm -rf /var/log", models.RiskCritical},
		{"DROP TABLE users", models.RiskCritical},
		{"dd if=/dev/zero of=/dev/sda", models.RiskCritical},
		{"git push --force", models.RiskHigh},
		{"git push -f origin main", models.RiskHigh},
		{"kubectl delete deployment api", models.RiskHigh},
		{"terraform destroy", models.RiskHigh},
		{"git commit -m x", models.RiskMedium},
		{"npm install leftpad", models.RiskMedium},
		{"modify the config file", models.RiskMedium},
		{"list devices", models.RiskLow},
		{"add a null check", models.RiskLow},
		{"what is the weather", models.RiskLow},
		{"", models.RiskLow},
	}

	for _, tt := range tests {
		if got := p.Detect(tt.description); got != tt.want {
			t.Errorf("Detect(%q) = %q, want %q", tt.description, got, tt.want)
		}
	}
}

func TestDetectPriorityOrder(t *testing.T) {
	p := DefaultPolicy()

	// Matches both critical (sudo rm) and medium (git commit): critical wins.
	if got := p.Detect("git commit then sudo rm -rf /"); got != models.RiskCritical {
		t.Errorf("Detect = %q, want critical", got)
	}
	// Matches both high (push --force) and medium (git push): high wins.
	if got := p.Detect("git push --force"); got != models.RiskHigh {
		t.Errorf("Detect = %q, want high", got)
	}
}

func TestDetectCaseInsensitive(t *testing.T) {
	p := DefaultPolicy()
	if got := p.Detect("SUDO RM -RF /data"); got != models.RiskCritical {
		t.Errorf("Detect = %q, want critical", got)
	}
}

func TestLoadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "risk_policy.yaml")
	content := `
critical:
  - "launch\\s+missiles"
medium:
  - "tweak"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}

	if got := p.Detect("launch missiles"); got != models.RiskCritical {
		t.Errorf("custom critical = %q", got)
	}
	if got := p.Detect("tweak the dial"); got != models.RiskMedium {
		t.Errorf("custom medium = %q", got)
	}
	// Critical tier was replaced, so the default no longer applies.
	if got := p.Detect("sudo rm -rf /"); got == models.RiskCritical {
		t.Errorf("replaced tier still matched defaults: %q", got)
	}
	// High tier was omitted, so defaults remain.
	if got := p.Detect("git push --force"); got != models.RiskHigh {
		t.Errorf("default high tier lost: %q", got)
	}
}

func TestLoadPolicyBadPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "risk_policy.yaml")
	if err := os.WriteFile(path, []byte("high:\n  - \"([\"\n"), 0644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	if _, err := LoadPolicy(path); err == nil {
		t.Error("invalid pattern should fail to load")
	}
}
