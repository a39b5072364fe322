package splits

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrMalformedStem indicates a stem that does not follow the card scan
// naming scheme.
var ErrMalformedStem = errors.New("malformed card scan stem")

// Orientation is the side of a card captured by a scan.
type Orientation string

// Card orientations.
const (
	Front Orientation = "front"
	Back  Orientation = "back"
)

// CardIdentity is the identity encoded in a scan stem: the grading order the
// card was submitted under, the certificate assigned to the physical card,
// and which side was scanned. Front and back scans of the same card carry
// the same certificate id.
type CardIdentity struct {
	OrderID       string
	CertificateID string
	Orientation   Orientation
}

// stemPattern matches stems like "RG123456789-+00000005-+front_laser": an RG
// order id of exactly nine digits (a tenth digit disqualifies the stem), an
// optional infix that must not begin with a digit, an eight digit certificate
// id, and the scanned side, joined by literal "-+" separators.
var stemPattern = regexp.MustCompile(`^(RG\d{9})(?:\D.*)?-\+(\d{8})-\+(front|back)_laser$`)

// ExtractCardIdentity parses a scan stem into its CardIdentity.
func ExtractCardIdentity(stem string) (CardIdentity, error) {
	m := stemPattern.FindStringSubmatch(stem)
	if m == nil {
		return CardIdentity{}, fmt.Errorf("%w: %q", ErrMalformedStem, stem)
	}
	return CardIdentity{
		OrderID:       m[1],
		CertificateID: m[2],
		Orientation:   Orientation(m[3]),
	}, nil
}
