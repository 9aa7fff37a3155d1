package validator

import (
	"net"
	"regexp"
	"strings"
)

// TargetType represents the type of scan target.
type TargetType string

const (
	TargetTypeHostname TargetType = "hostname"
	TargetTypeIPv4     TargetType = "ipv4"
	TargetTypeIPv6     TargetType = "ipv6"
	TargetTypeCIDR     TargetType = "cidr"
	TargetTypeRange    TargetType = "range"
	TargetTypeUnknown  TargetType = "unknown"
)

// ValidatedTarget represents a validated and classified target.
type ValidatedTarget struct {
	Original string     `json:"original"`
	Type     TargetType `json:"type"`
	Value    string     `json:"value"`
	IsValid  bool       `json:"is_valid"`
	Error    string     `json:"error,omitempty"`
}

// TargetValidationResult contains the results of validating multiple targets.
type TargetValidationResult struct {
	Valid      []ValidatedTarget `json:"valid"`
	Invalid    []ValidatedTarget `json:"invalid"`
	TotalCount int               `json:"total_count"`
	ValidCount int               `json:"valid_count"`
	HasErrors  bool              `json:"has_errors"`
}

// hostnameRegex validates host names, single-label names included.
// Matches: web1, web1.prod, sub.example.com
// Does not match: -web, web-, a..b
var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*\.?$`)

// ClassifyTarget returns the kind of a single scan target, or
// TargetTypeUnknown when the platform would reject it.
func ClassifyTarget(target string) TargetType {
	return ValidateSingleTarget(target).Type
}

// ValidateTargets validates a list of targets. Blank entries are ignored and
// duplicates are reported once.
func ValidateTargets(targets []string) *TargetValidationResult {
	result := &TargetValidationResult{
		Valid:      make([]ValidatedTarget, 0),
		Invalid:    make([]ValidatedTarget, 0),
		TotalCount: len(targets),
	}

	seen := make(map[string]bool)
	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}

		normalized := strings.ToLower(target)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		validated := ValidateSingleTarget(target)
		if validated.IsValid {
			result.Valid = append(result.Valid, validated)
		} else {
			result.Invalid = append(result.Invalid, validated)
			result.HasErrors = true
		}
	}

	result.ValidCount = len(result.Valid)
	return result
}

// ValidateSingleTarget validates and classifies a single target.
func ValidateSingleTarget(target string) ValidatedTarget {
	result := ValidatedTarget{
		Original: target,
		Type:     TargetTypeUnknown,
		Value:    strings.TrimSpace(target),
	}

	if result.Value == "" {
		result.Error = "empty target"
		return result
	}
	if containsDangerousChars(result.Value) {
		result.Error = "contains invalid characters"
		return result
	}

	switch {
	case strings.Contains(result.Value, "/"):
		return validateCIDR(result)
	case strings.Count(result.Value, "-") == 1 && looksLikeRange(result.Value):
		return validateRange(result)
	}

	if ip := net.ParseIP(result.Value); ip != nil {
		if ip.To4() != nil {
			result.Type = TargetTypeIPv4
		} else {
			result.Type = TargetTypeIPv6
		}
		result.IsValid = true
		return result
	}

	if len(result.Value) > 253 || !hostnameRegex.MatchString(result.Value) {
		result.Error = "invalid hostname format"
		return result
	}
	result.Type = TargetTypeHostname
	result.IsValid = true
	return result
}

func validateCIDR(result ValidatedTarget) ValidatedTarget {
	if _, _, err := net.ParseCIDR(result.Value); err != nil {
		result.Error = "invalid CIDR format"
		return result
	}
	result.Type = TargetTypeCIDR
	result.IsValid = true
	return result
}

// looksLikeRange reports whether both sides of the dash parse as IPs.
func looksLikeRange(s string) bool {
	from, to, _ := strings.Cut(s, "-")
	return net.ParseIP(strings.TrimSpace(from)) != nil && net.ParseIP(strings.TrimSpace(to)) != nil
}

func validateRange(result ValidatedTarget) ValidatedTarget {
	fromStr, toStr, _ := strings.Cut(result.Value, "-")
	from := net.ParseIP(strings.TrimSpace(fromStr))
	to := net.ParseIP(strings.TrimSpace(toStr))

	if (from.To4() == nil) != (to.To4() == nil) {
		result.Error = "range mixes IPv4 and IPv6 addresses"
		return result
	}
	if compareIP(from, to) > 0 {
		result.Error = "range start is after range end"
		return result
	}
	result.Type = TargetTypeRange
	result.IsValid = true
	return result
}

func compareIP(a, b net.IP) int {
	a16, b16 := a.To16(), b.To16()
	for i := range a16 {
		switch {
		case a16[i] < b16[i]:
			return -1
		case a16[i] > b16[i]:
			return 1
		}
	}
	return 0
}

// containsDangerousChars checks for characters that could cause injection.
func containsDangerousChars(s string) bool {
	dangerous := []string{
		";", "|", "&", "$", "`", "(", ")", "{", "}", "[", "]",
		"<", ">", "\"", "'", "\\", "\n", "\r", "\t", "\x00", " ", ",",
	}
	for _, char := range dangerous {
		if strings.Contains(s, char) {
			return true
		}
	}
	return false
}

// GetValidTargetStrings returns only the valid target values.
func (r *TargetValidationResult) GetValidTargetStrings() []string {
	result := make([]string, len(r.Valid))
	for i, t := range r.Valid {
		result[i] = t.Value
	}
	return result
}

// GetTargetsByType returns targets filtered by type.
func (r *TargetValidationResult) GetTargetsByType(targetType TargetType) []ValidatedTarget {
	result := make([]ValidatedTarget, 0)
	for _, t := range r.Valid {
		if t.Type == targetType {
			result = append(result, t)
		}
	}
	return result
}
