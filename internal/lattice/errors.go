package lattice

import "errors"

// Structural errors. Any of these aborts a load; no partial lattice is returned.
var (
	// ErrUnknownSite indicates a bond or site id outside the declared range.
	ErrUnknownSite = errors.New("lattice: unknown site")

	// ErrCountMismatch indicates a declared count that disagrees with the data.
	ErrCountMismatch = errors.New("lattice: count mismatch")

	// ErrUnknownModel indicates an unrecognized spin-update model tag.
	ErrUnknownModel = errors.New("lattice: unknown model")

	// ErrUnknownAnisotropy indicates an unrecognized anisotropy tag or tuple shape.
	ErrUnknownAnisotropy = errors.New("lattice: unknown anisotropy")

	// ErrUnknownType indicates a site type that was not declared.
	ErrUnknownType = errors.New("lattice: unknown site type")

	// ErrMalformed indicates input that cannot be parsed.
	ErrMalformed = errors.New("lattice: malformed input")

	// ErrSpinNorm indicates a spin whose length differs from the site magnitude.
	ErrSpinNorm = errors.New("lattice: spin norm mismatch")
)
