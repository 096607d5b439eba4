// Package client contains the client-side building blocks that talk to the
// authkeeper backend.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) covering
//     Register, Login, Refresh, Logout and CurrentUser.
//  2. A concrete HTTP/JSON implementation (see HTTPClient) that keeps the
//     backend's access_token cookie in a cookie jar, decorates every request
//     with JSON headers and an X-Request-ID, and normalizes failures.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Every failed call returns a *RequestFailedError, whether the server
// answered with a non-2xx status, the success body did not decode, or the
// request never completed. All of them match ErrRequestFailed with
// errors.Is; the message is what callers show to users.
//
// No retries are performed here. Timeouts come from the http.Client.
package client
