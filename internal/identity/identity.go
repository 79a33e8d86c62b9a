// Package identity validates student account names and derives their
// upstream email addresses.
package identity

import (
	"errors"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// MaxLength is the longest accepted identity.
const MaxLength = 50

// ErrInvalid is returned for identities outside [A-Za-z0-9._'-]{1,50}.
var ErrInvalid = errors.New("invalid identity")

const identityTag = "identity"

var (
	identityPattern = regexp.MustCompile(`^[A-Za-z0-9._'-]+$`)
	identityRules   = "required,max=" + strconv.Itoa(MaxLength) + "," + identityTag
	validate        = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation(identityTag, func(fl validator.FieldLevel) bool {
		return identityPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate reports ErrInvalid unless s is a well-formed identity.
func Validate(s string) error {
	if err := validate.Var(s, identityRules); err != nil {
		return ErrInvalid
	}
	return nil
}

// Email returns the upstream account address for an identity.
func Email(id, domain string) string {
	return id + "@" + domain
}
