package domain

// Actor is the chat user that triggered an interaction.
type Actor struct {
	ID      string
	Name    string
	RoleIDs []string
	IsAdmin bool
}

// HasRole reports whether the actor holds roleID.
func (a Actor) HasRole(roleID string) bool {
	for _, r := range a.RoleIDs {
		if r == roleID {
			return true
		}
	}
	return false
}

// ChannelRef identifies the channel an interaction executed in.
type ChannelRef struct {
	ID   string
	Name string
}
