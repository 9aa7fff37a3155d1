package validator

import (
	"testing"
)

func TestValidateSingleTarget(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantType TargetType
		wantOK   bool
	}{
		{"single label host", "web1", TargetTypeHostname, true},
		{"fqdn", "web1.prod.example.com", TargetTypeHostname, true},
		{"hyphenated host", "db-primary.stage", TargetTypeHostname, true},
		{"ipv4", "10.0.0.1", TargetTypeIPv4, true},
		{"ipv6", "fe80::1", TargetTypeIPv6, true},
		{"cidr", "10.1.0.0/24", TargetTypeCIDR, true},
		{"range", "10.0.0.1-10.0.0.20", TargetTypeRange, true},
		{"reversed range", "10.0.0.20-10.0.0.1", TargetTypeUnknown, false},
		{"mixed range", "10.0.0.1-fe80::1", TargetTypeUnknown, false},
		{"bad cidr", "10.1.0.0/33", TargetTypeUnknown, false},
		{"leading hyphen", "-web", TargetTypeUnknown, false},
		{"injection", "web1;rm -rf", TargetTypeUnknown, false},
		{"comma list", "web1,web2", TargetTypeUnknown, false},
		{"empty", "   ", TargetTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateSingleTarget(tt.target)
			if got.IsValid != tt.wantOK {
				t.Errorf("ValidateSingleTarget(%q).IsValid = %v, want %v (error: %s)", tt.target, got.IsValid, tt.wantOK, got.Error)
			}
			if got.Type != tt.wantType {
				t.Errorf("ValidateSingleTarget(%q).Type = %s, want %s", tt.target, got.Type, tt.wantType)
			}
		})
	}
}

func TestValidateTargets(t *testing.T) {
	result := ValidateTargets([]string{"web1", " WEB1 ", "10.0.0.1", "", "bad host", "10.0.0.0/30"})

	if result.TotalCount != 6 {
		t.Errorf("TotalCount = %d, want 6", result.TotalCount)
	}
	if result.ValidCount != 3 {
		t.Errorf("ValidCount = %d, want 3", result.ValidCount)
	}
	if !result.HasErrors || len(result.Invalid) != 1 {
		t.Errorf("expected exactly one invalid target, got %v", result.Invalid)
	}

	valid := result.GetValidTargetStrings()
	want := []string{"web1", "10.0.0.1", "10.0.0.0/30"}
	for i := range want {
		if valid[i] != want[i] {
			t.Errorf("valid[%d] = %q, want %q", i, valid[i], want[i])
		}
	}

	if got := result.GetTargetsByType(TargetTypeCIDR); len(got) != 1 {
		t.Errorf("expected one CIDR target, got %d", len(got))
	}
}
