package actor

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor identifies who is performing an operation. Authentication happens
// outside this service; transports hand us the already-established identity.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Owns reports whether the actor is the owner identified by userID.
func (a Actor) Owns(userID string) bool { return a.UserID == userID }

// CanAccess is the owner-or-admin guard applied uniformly by the usecases.
func (a Actor) CanAccess(ownerID string) bool { return a.IsAdmin() || a.Owns(ownerID) }
