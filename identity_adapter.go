package requesttoken

// StaticIdentity is a plain value implementation of Identity, for hosts
// whose user model does not implement the interface directly.
type StaticIdentity struct {
	id       string
	username string
	email    string
}

// NewIdentity returns an Identity carrying the given attributes.
func NewIdentity(id, username, email string) Identity {
	return StaticIdentity{id: id, username: username, email: email}
}

// ID returns the principal id.
func (s StaticIdentity) ID() string {
	return s.id
}

// Username returns the principal username.
func (s StaticIdentity) Username() string {
	return s.username
}

// Email returns the principal email address.
func (s StaticIdentity) Email() string {
	return s.email
}
