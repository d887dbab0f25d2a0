package domain

// Member is a player's participation record inside one room. It is a value
// snapshot taken at join time: Name and Cosmetics are copies, not a live
// link into the player profile.
type Member struct {
	PlayerID  PlayerID
	Name      string
	Role      Role
	Ready     bool
	Cosmetics Cosmetics
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
// The host never toggles ready; it is implicitly ready to start.
func NewMember(p *Player, role Role) Member {
	return Member{
		PlayerID:  p.ID,
		Name:      p.Name,
		Role:      role,
		Cosmetics: p.Cosmetics,
	}
}
