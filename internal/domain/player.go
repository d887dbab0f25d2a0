// Package domain contains entities without logic, just meta-data.
package domain

const MaxPlayerNameLen = 24

type PlayerID string

// Cosmetics are purely visual player attributes with no gameplay effect.
// Rooms copy them by value at join time, so later profile changes never
// retroactively update an already-joined member.
type Cosmetics struct {
	Skin            string `json:"skin"`
	TitleName       string `json:"titleName"`
	CustomCharacter string `json:"customCharacter,omitempty"`
}

type Player struct {
	ID        PlayerID  `json:"id"`
	Name      string    `json:"name"`
	Cosmetics Cosmetics `json:"cosmetics"`
}
