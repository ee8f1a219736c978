package domain

import (
	"fmt"

	"github.com/hilthontt/duet/internal/infrastructure/validate"
)

// Identity is the signed-in user as reported by the external identity
// provider. The service never authenticates it.
type Identity struct {
	UID         string `bson:"uid" json:"uid"`
	Email       string `bson:"email" json:"email"`
	DisplayName string `bson:"display_name" json:"display_name"`
	PhotoURL    string `bson:"photo_url" json:"photo_url"`
}

var (
	validateUID         = validate.Field("uid", validate.Required(), validate.MaxLength(128))
	validateEmail       = validate.Field("email", validate.Optional(validate.MaxLength(254), validate.Email()))
	validateDisplayName = validate.Field("display_name", validate.MaxLength(128))
	validatePhotoURL    = validate.Field("photo_url", validate.Optional(validate.MaxLength(2048), validate.HTTPURL()))
)

func NewIdentity(uid, email, displayName, photoURL string) (Identity, error) {
	identity := Identity{
		UID:         uid,
		Email:       email,
		DisplayName: displayName,
		PhotoURL:    photoURL,
	}
	if err := identity.Validate(); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

func (i Identity) Validate() error {
	for _, check := range []struct {
		v     validate.Validator
		value string
	}{
		{validateUID, i.UID},
		{validateEmail, i.Email},
		{validateDisplayName, i.DisplayName},
		{validatePhotoURL, i.PhotoURL},
	} {
		if err := check.v(check.value); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	return nil
}
