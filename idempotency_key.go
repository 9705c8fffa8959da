package capture

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxIdempotencyKeyLength is the maximum accepted key length after trimming.
const MaxIdempotencyKeyLength = 64

var idempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9\-_:./]+$`)

// IdempotencyKey is a validated, client-supplied token that makes repeated
// identical capture requests produce a single effect.
//
// Keys are normalized by trimming surrounding whitespace; the normalized value
// must be non-empty, at most MaxIdempotencyKeyLength characters, and composed
// of [A-Za-z0-9-_:./] only. The unexported field keeps NewIdempotencyKey the
// sole constructor, so a non-zero key is always valid. Equality is by
// normalized value.
type IdempotencyKey struct {
	value string
}

// NewIdempotencyKey normalizes and validates raw into an IdempotencyKey.
func NewIdempotencyKey(raw string) (IdempotencyKey, error) {
	normalized := strings.TrimSpace(raw)

	if normalized == "" {
		return IdempotencyKey{}, fmt.Errorf("%w: key is empty", ErrInvalidIdempotencyKey)
	}
	if len(normalized) > MaxIdempotencyKeyLength {
		return IdempotencyKey{}, fmt.Errorf("%w: key exceeds %d characters", ErrInvalidIdempotencyKey, MaxIdempotencyKeyLength)
	}
	if !idempotencyKeyPattern.MatchString(normalized) {
		return IdempotencyKey{}, fmt.Errorf("%w: allowed characters are [A-Za-z0-9-_:./]", ErrInvalidIdempotencyKey)
	}

	return IdempotencyKey{value: normalized}, nil
}

func (k IdempotencyKey) String() string {
	return k.value
}

// IsZero reports whether k is the zero value rather than a validated key.
func (k IdempotencyKey) IsZero() bool {
	return k.value == ""
}
