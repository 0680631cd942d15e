package model

// Identity is the authenticated caller, if any. Either field may be empty.
type Identity struct {
	UserID string
	Email  string
}

// IsZero reports whether the identity carries neither a user id nor an email.
func (i Identity) IsZero() bool {
	return i.UserID == "" && i.Email == ""
}
