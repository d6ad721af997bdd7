package models

// User represents a registered account on the lobby server.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Session is the credential pair the client holds after login or
// registration. Absence of a Session forces the unauthenticated context.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// GameInfo describes one playable game type as listed by the server.
type GameInfo struct {
	Code GameType `json:"code"`
	Name string   `json:"name"`
}
