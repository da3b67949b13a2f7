package session

// Role is the local peer's position in a session.
type Role string

const (
	RoleNone   Role = "none"
	RoleHost   Role = "host"
	RoleClient Role = "client"
)

func (r Role) String() string {
	if r == "" {
		return string(RoleNone)
	}
	return string(r)
}
