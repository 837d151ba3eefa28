package domain

// ServerStatus is the public status of the game server behind the active account.
type ServerStatus struct {
	Host          string
	Online        bool
	PlayersOnline int
	PlayersMax    int
	Players       []string
	Version       string
}
