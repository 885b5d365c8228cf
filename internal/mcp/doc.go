// Package mcp exposes the issue store as Model Context Protocol tools.
//
// Four tools mirror the store operations: issue_create, issue_list,
// issue_update and issue_delete. Logical failures (missing fields, unknown
// ids) come back as tool errors whose text is the store message, so an
// agent sees "could not update" exactly as an HTTP client would.
//
// The server runs over stdio:
//
//	srv, err := mcp.NewServer(store, &mcp.Config{Version: version, Logger: logger})
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx)
package mcp
