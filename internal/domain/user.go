package domain

// User identifies the caller of a core operation. It is resolved once at the
// edge and passed explicitly into every service method.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Valid reports whether the user carries the identity the cart and order
// operations key on.
func (u User) Valid() bool {
	return u.ID != "" && u.Email != ""
}
