package pgcontext

// PendingReleases returns the number of release actions not yet run.
func (c *Context) PendingReleases() int {
	return c.stack.Len()
}
