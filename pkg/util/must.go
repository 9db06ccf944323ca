package util

// Must returns the value returned by a constructor, and panics if it
// failed. It may only be used for values that are known to be valid,
// such as constant instance names in tests.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
