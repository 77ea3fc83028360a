// Package models defines the core data structures for users, images and sessions.
package models

import (
	"time"
)

// User represents a registered account.
type User struct {
	// ID is assigned by storage on registration.
	ID int64 `json:"id"`
	// Revision is the optimistic concurrency counter. Updates must present the stored value.
	Revision int64 `json:"revision"`
	// Email is unique and compared case-sensitively.
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Gender      string `json:"gender"`
	// Secret is stored and compared exactly as given.
	Secret     string     `json:"secret,omitempty"`
	DOB        *time.Time `json:"dob,omitempty"`
	CreatedOn  time.Time  `json:"createdOn"`
	ModifiedOn *time.Time `json:"modifiedOn,omitempty"`
}

// Redacted returns a copy of u without the secret.
func (u User) Redacted() User {
	u.Secret = ""
	return u
}

// RawImage is a content-addressed image payload.
type RawImage struct {
	// ID is the hex encoded SHA-256 digest of Data.
	ID        string
	MimeType  string
	Data      []byte
	Thumbnail []byte
	CreatedOn time.Time
}

// RawPayload is the content returned for a raw image: either the full bytes or the thumbnail.
type RawPayload struct {
	MimeType string
	Payload  []byte
}

// Image is the metadata record of an uploaded image.
type Image struct {
	ID       int64   `json:"id"`
	Revision int64   `json:"revision"`
	Name     string  `json:"name"`
	Tags     TagList `json:"tags"`
	// Time is the capture timestamp as supplied by the uploader.
	Time     string `json:"time"`
	Location string `json:"location"`
	Info     string `json:"info"`
	OwnerID  int64  `json:"ownerId"`
	RawID    string `json:"rawId"`

	CreatedOn  time.Time  `json:"createdOn"`
	ModifiedOn *time.Time `json:"modifiedOn,omitempty"`

	// Filled by reads only.
	OwnerName string `json:"ownerName,omitempty"`
	MimeType  string `json:"imageType,omitempty"`
	Payload   []byte `json:"image,omitempty"`
}

// ImageDraft is the input for creating an image.
type ImageDraft struct {
	Name     string
	Tags     TagList
	Time     string
	Location string
	Info     string
	OwnerID  int64
	MimeType string
	Content  []byte
}

// Session is a login token bound to a user until Validity.
type Session struct {
	Token    string
	Validity time.Time
	UserID   int64
}

// Share grants UserID read access to ImageID.
type Share struct {
	ImageID int64 `json:"imageId"`
	UserID  int64 `json:"userId"`
}
