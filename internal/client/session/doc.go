// Package session is the console's Session Store.
//
// A session is an auth token plus the cached identity ({username, role}) of
// the signed-in account. Both are persisted under two keys of the local
// metadata store:
//
//	auth_token    raw bearer token
//	current_user  JSON {"username": ..., "role": ...}
//
// The Store is passed explicitly to every component that needs it; nothing
// reads the persisted state behind its back. Reads never fail: storage or
// decode errors are logged and reported as "no session".
package session
