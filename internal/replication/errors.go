package replication

import "errors"

// Error taxonomy
// ⭐ ErrConfiguration / ErrSearchExhausted / ErrCandidateLimit 는 호출자에게 전달
// ErrSingularModel 은 탐색 루프 안에서 흡수 (후보 기각 후 계속)
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrInvalidSubsetSize = errors.New("invalid subset size")
	ErrIndexNotFound     = errors.New("index symbol not found")
	ErrSingularModel     = errors.New("singular design matrix")
	ErrSearchExhausted   = errors.New("no qualifying model found")
	ErrCandidateLimit    = errors.New("candidate limit reached")
)

// configError tags err as a configuration error while keeping its own identity,
// so both errors.Is(err, ErrConfiguration) and errors.Is(err, err) hold.
type configError struct {
	err error
}

func (e configError) Error() string { return e.err.Error() }

func (e configError) Unwrap() []error { return []error{ErrConfiguration, e.err} }

// IsConfiguration reports whether err is a configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
