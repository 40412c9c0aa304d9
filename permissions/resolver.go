package permissions

// Checker answers whether a single permission code is granted in the active
// context.
type Checker interface {
	HasPermission(code string) bool
}

// Resolver answers permission questions against the active context. It holds
// no state of its own, so answers always reflect the latest context.
type Resolver struct {
	checker Checker
}

func NewResolver(checker Checker) *Resolver {
	return &Resolver{checker: checker}
}

func (r *Resolver) Has(code string) bool {
	return r.checker.HasPermission(code)
}

// Any reports whether at least one code is granted. No codes is false.
func (r *Resolver) Any(codes ...string) bool {
	for _, code := range codes {
		if r.checker.HasPermission(code) {
			return true
		}
	}
	return false
}

// All reports whether every code is granted. No codes is true.
func (r *Resolver) All(codes ...string) bool {
	for _, code := range codes {
		if !r.checker.HasPermission(code) {
			return false
		}
	}
	return true
}

// Check returns the grant for each code.
func (r *Resolver) Check(codes ...string) map[string]bool {
	out := make(map[string]bool, len(codes))
	for _, code := range codes {
		out[code] = r.checker.HasPermission(code)
	}
	return out
}
