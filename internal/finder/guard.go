package finder

// cycleGuard tracks the names whose detectives are currently running.
//
// Require is re-entrant: a detective may require other names, whose
// detectives may require more. A name entered while already on the stack
// means the catalogue declared a dependency cycle, e.g.
//
//	A needs B -> B needs A -> A is still running  <- CYCLE DETECTED
//
// The stack is kept so the diagnostic can show the whole path.
type cycleGuard struct {
	stack  []string
	active map[string]bool
}

func newCycleGuard() *cycleGuard {
	return &cycleGuard{active: make(map[string]bool)}
}

// enter pushes name. It returns false, without pushing, if name is
// already running.
func (g *cycleGuard) enter(name string) bool {
	if g.active[name] {
		return false
	}
	g.active[name] = true
	g.stack = append(g.stack, name)
	return true
}

// leave pops name and anything entered after it, so a frame unwound by a
// panic cannot leave a stale entry behind.
func (g *cycleGuard) leave(name string) {
	for i := len(g.stack) - 1; i >= 0; i-- {
		if g.stack[i] == name {
			for _, n := range g.stack[i:] {
				delete(g.active, n)
			}
			g.stack = g.stack[:i]
			return
		}
	}
}

// path returns the running names from the first occurrence of name to the
// top of the stack, followed by name again.
func (g *cycleGuard) path(name string) []string {
	for i, n := range g.stack {
		if n == name {
			out := make([]string, 0, len(g.stack)-i+1)
			out = append(out, g.stack[i:]...)
			return append(out, name)
		}
	}
	return []string{name}
}

// depth returns the number of running names.
func (g *cycleGuard) depth() int {
	return len(g.stack)
}
