// Package uuid wraps google/uuid with URI parameter binding support so
// that resource IDs in routes bind directly into request structs.
package uuid

import (
	google_uuid "github.com/google/uuid"
)

type UUID struct {
	google_uuid.UUID
}

var Nil UUID

func New() UUID {
	return UUID{google_uuid.New()}
}

func NewString() string {
	return google_uuid.NewString()
}

// UnmarshalParam implements gin's binding.BindUnmarshaler so a UUID can
// be bound from a URI parameter. An empty parameter binds to Nil.
func (u *UUID) UnmarshalParam(p string) error {
	if p == "" {
		*u = Nil
		return nil
	}

	parsed, e := google_uuid.Parse(p)
	if e != nil {
		return e
	}

	*u = UUID{parsed}
	return nil
}
