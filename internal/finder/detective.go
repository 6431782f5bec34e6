package finder

// Detective locates one module and returns its registry key.
//
// Detect returns:
//   - the key, when exactly the wanted module was found
//   - ErrNotFound, when nothing matched (permanent)
//   - ErrDeferred, when prerequisites are missing (retried later)
//
// Any other error, and any panic, is recorded as a diagnostic and counts
// as not found for that attempt.
type Detective interface {
	Detect(c *Context) (string, error)
}

// DetectiveFunc adapts a function to Detective.
type DetectiveFunc func(c *Context) (string, error)

// Detect implements Detective.
func (f DetectiveFunc) Detect(c *Context) (string, error) {
	return f(c)
}
