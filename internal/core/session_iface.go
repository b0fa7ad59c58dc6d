package core

// SessionID identifies one live transport session. It is assigned by the
// transport on connect and stays stable until disconnect.
type SessionID string

func (s SessionID) String() string { return string(s) }
