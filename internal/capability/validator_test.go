package capability

import "testing"

func TestValidateCoveredDeclaration(t *testing.T) {
	declared := []Declaration{{
		Type:             "file",
		ResourcePatterns: []string{"/tmp/foo"},
		Operations:       []string{"read"},
		Constraints:      Constraints{MaxFileSize: 1024},
	}}
	granted := []Grant{{
		Type:             "file",
		ResourcePatterns: []string{"/tmp/*"},
		Operations:       []string{"read", "write"},
		Constraints:      Constraints{MaxFileSize: 4096},
	}}
	if bad, reason := Validate(declared, granted); bad != nil {
		t.Fatalf("expected coverage, got rejection: %s", reason)
	}
}

func TestValidateRejectsUncoveredOperation(t *testing.T) {
	declared := []Declaration{{Type: "file", ResourcePatterns: []string{"/tmp/foo"}, Operations: []string{"delete"}}}
	granted := []Grant{{Type: "file", ResourcePatterns: []string{"/tmp/*"}, Operations: []string{"read"}}}
	bad, _ := Validate(declared, granted)
	if bad == nil {
		t.Fatal("expected a rejection for an operation the grant does not cover")
	}
}

func TestValidateRejectsStricterGrantConstraint(t *testing.T) {
	declared := []Declaration{{
		Type:             "file",
		ResourcePatterns: []string{"/tmp/foo"},
		Operations:       []string{"read"},
		Constraints:      Constraints{MaxFileSize: 4096},
	}}
	granted := []Grant{{
		Type:             "file",
		ResourcePatterns: []string{"/tmp/*"},
		Operations:       []string{"read"},
		Constraints:      Constraints{MaxFileSize: 1024}, // stricter than declared
	}}
	bad, _ := Validate(declared, granted)
	if bad == nil {
		t.Fatal("expected a rejection: grant's max_file_size is stricter than the declaration's")
	}
}

func TestValidateRejectsUncoveredResourcePattern(t *testing.T) {
	declared := []Declaration{{Type: "file", ResourcePatterns: []string{"/etc/passwd"}, Operations: []string{"read"}}}
	granted := []Grant{{Type: "file", ResourcePatterns: []string{"/tmp/*"}, Operations: []string{"read"}}}
	bad, _ := Validate(declared, granted)
	if bad == nil {
		t.Fatal("expected a rejection: no granted pattern covers /etc/passwd")
	}
}
