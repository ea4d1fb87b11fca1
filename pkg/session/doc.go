/*
Package session serialises access to stored playback sessions.

Multi-request hosts (the HTTP and MCP servers) keep sessions in a ports.StateStore
between calls. The Manager wraps every read-modify-write in a per-session lock so
two requests for the same reader never interleave, and can add a distributed lock
when several replicas share one store:

	mgr := session.NewManager(store, session.WithLocker(redis.NewLocker(client, prefix)))
	before, after, err := mgr.Update(ctx, id, eng.Advance)
*/
package session
