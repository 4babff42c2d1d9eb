// Package collab defines the external collaborators the editing session
// calls into: remote persistence of exported artifacts, claim-by-code
// retrieval, usage quota and local saving.
package collab

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/asaskevich/govalidator"
)

var (
	ErrQuotaExceeded = errors.New("usage limit reached, upgrade to continue")
	ErrInvalidCode   = errors.New("invalid reference code")
	ErrNotFound      = errors.New("document not found")
)

// Artifact is a named file, either an export result or a claimed
// document.
type Artifact struct {
	Name string
	MIME string
	Data []byte
}

// Persister stores an exported artifact remotely and records it in the
// user's history.
type Persister interface {
	Persist(ctx context.Context, a Artifact) error
}

// Claimer returns a previously stored document by its reference code.
type Claimer interface {
	Claim(ctx context.Context, code string) (Artifact, error)
}

// Quota reports how many more documents may be opened.
type Quota interface {
	Remaining(ctx context.Context) (int, error)
}

// Saver writes an artifact to the user's device and returns where it
// went.
type Saver interface {
	Save(ctx context.Context, a Artifact) (string, error)
}

// Unlimited is a Quota that never runs out.
type Unlimited struct{}

func (Unlimited) Remaining(context.Context) (int, error) { return math.MaxInt, nil }

// Reference codes are short alphanumeric strings.
const (
	MinCodeLength = 4
	MaxCodeLength = 32
)

// ValidateCode checks the shape of a reference code before any lookup.
func ValidateCode(code string) error {
	if !govalidator.IsAlphanumeric(code) || !govalidator.IsByteLength(code, MinCodeLength, MaxCodeLength) {
		return fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	return nil
}
