package physmem

// Validatable is used by the DebugValidate method to allow it to act upon
// all types with a Validate method
type Validatable interface {
	Validate() error
}

// ValidatableFunc adapts a bare function to the Validatable interface. It is
// handy for internal consistency checks that must run without re-acquiring a
// lock the caller already holds.
type ValidatableFunc func() error

func (f ValidatableFunc) Validate() error {
	return f()
}
