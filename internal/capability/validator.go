package capability

// Declaration is the compile-time shape the validator checks against
// granted tokens: it mirrors ast.CapabilityDecl but resolved to flat
// operation/resource sets.
type Declaration struct {
	Type             string
	ResourcePatterns []string
	Operations       []string
	Constraints      Constraints
}

// Grant is one policy-minted token available to the validator; it is the
// same shape as Token but held separately so the validator can be tested
// without constructing real checksummed Tokens.
type Grant struct {
	Type             string
	ResourcePatterns []string
	Operations       []string
	Constraints      Constraints
}

// Validate implements §4.4's declared ⊆ granted rule: for each declared
// capability D, some granted G of the same type must cover every one of
// D's resource patterns, D's operations must be a subset of G's, and G's
// constraints must be no stricter than D's in any dimension D sets
// explicitly. It returns the first declaration it cannot cover (nil if all
// are covered) and a human-readable reason.
func Validate(declared []Declaration, granted []Grant) (*Declaration, string) {
	for i := range declared {
		d := declared[i]
		if !coveredByAny(d, granted) {
			return &d, "no granted capability covers every declared resource pattern, operation, and constraint"
		}
	}
	return nil, ""
}

func coveredByAny(d Declaration, granted []Grant) bool {
	for _, g := range granted {
		if g.Type != d.Type {
			continue
		}
		if !operationsSubset(d.Operations, g.Operations) {
			continue
		}
		if !allPatternsCovered(d.ResourcePatterns, g.ResourcePatterns) {
			continue
		}
		if !constraintsNoStricter(d.Constraints, g.Constraints) {
			continue
		}
		return true
	}
	return false
}

func operationsSubset(declared, granted []string) bool {
	grantedSet := make(map[string]bool, len(granted))
	for _, o := range granted {
		grantedSet[o] = true
	}
	for _, o := range declared {
		if !grantedSet[o] {
			return false
		}
	}
	return true
}

// allPatternsCovered requires every declared pattern to be covered by at
// least one granted pattern: for each declared p there must exist a
// granted q such that q covers p.
func allPatternsCovered(declaredPatterns, grantedPatterns []string) bool {
	for _, p := range declaredPatterns {
		covered := false
		for _, q := range grantedPatterns {
			if PatternCovers(q, p) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// constraintsNoStricter checks that the grant's constraints are no
// stricter than the declaration's in any dimension the declaration
// explicitly sets (a zero value on the declared side means "not set",
// i.e. not checked).
func constraintsNoStricter(declared, granted Constraints) bool {
	if !declared.ExpiresAt.IsZero() {
		if granted.ExpiresAt.IsZero() {
			// granted never expires: strictly looser, always fine.
		} else if granted.ExpiresAt.Before(declared.ExpiresAt) {
			return false
		}
	}
	if declared.MaxUsage > 0 {
		if granted.MaxUsage > 0 && granted.MaxUsage < declared.MaxUsage {
			return false
		}
	}
	if declared.MaxFileSize > 0 {
		if granted.MaxFileSize > 0 && granted.MaxFileSize < declared.MaxFileSize {
			return false
		}
	}
	if len(declared.Hosts) > 0 && !stringSetSubset(declared.Hosts, granted.Hosts) {
		return false
	}
	if len(declared.Ports) > 0 && !intSetSubset(declared.Ports, granted.Ports) {
		return false
	}
	return true
}

func stringSetSubset(sub, super []string) bool {
	set := make(map[string]bool, len(super))
	for _, s := range super {
		set[s] = true
	}
	for _, s := range sub {
		if !set[s] {
			return false
		}
	}
	return true
}

func intSetSubset(sub, super []int) bool {
	set := make(map[int]bool, len(super))
	for _, s := range super {
		set[s] = true
	}
	for _, s := range sub {
		if !set[s] {
			return false
		}
	}
	return true
}
