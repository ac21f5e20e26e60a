package users

import "time"

// User es el dueño de recetas, tomas y dispositivos. El firmware lo
// identifica por Username.
type User struct {
	ID        string
	Username  string
	Email     string
	CreatedAt time.Time
}
