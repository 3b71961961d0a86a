// Package http exposes the study scheduler as a JSON API.
//
// The router exposes the following endpoints:
//   - POST /users: registers {"username","password"}. GET /users?course=NAME
//     lists usernames enrolled in a course.
//   - POST /login: issues a login token. Response {"token","expires_at","username"};
//     the token is also surfaced via the `X-Session-Token` header and a
//     `session_token` cookie. POST /logout revokes it.
//   - /me/courses, /me/availability and GET /me/matches: the acting user's
//     profile and match suggestions.
//   - /study-sessions: list and propose sessions. GET /study-sessions/{id} is
//     restricted to participants; POST /study-sessions/{id}/confirm and /reject
//     drive the status state machine.
//   - GET /metrics and GET /healthz for operators.
//
// Errors are returned as {"error_code","message","errors"}. A scheduling
// conflict additionally names the conflicting session and participant.
package http
