package patch

import (
	"github.com/google/uuid"

	"github.com/matzehuels/patchcanvas/pkg/errors"
)

// Handle identifies one unit within a runtime. The zero Handle names nothing.
type Handle struct {
	id uuid.UUID
}

// NewHandle returns a fresh random handle.
func NewHandle() Handle {
	return Handle{id: uuid.New()}
}

// ParseHandle parses the textual form produced by [Handle.String].
func ParseHandle(s string) (Handle, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Handle{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse handle %q", s)
	}
	return Handle{id: id}, nil
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h.id == uuid.Nil }

// String returns the canonical textual form of h.
func (h Handle) String() string {
	if h.IsZero() {
		return ""
	}
	return h.id.String()
}

// Short returns the first eight characters of h, for logs and labels.
func (h Handle) Short() string {
	s := h.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// MarshalText implements encoding.TextMarshaler.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handle) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*h = Handle{}
		return nil
	}
	parsed, err := ParseHandle(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
