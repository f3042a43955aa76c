// Package http exposes the booking services over JSON/HTTP using
// httprouter.
//
// Every route except GET /healthz requires the X-User-ID header, which the
// fronting chat gateway fills with the caller's chat identity. Company roles
// are resolved per request by the services.
//
// Timestamps travel as "YYYY-MM-DD HH:MM" and dates as "YYYY-MM-DD", both
// naive local time. Errors are returned as
//
//	{"error_code": "...", "message": "...", "errors": {...}, "conflicts": [...]}
//
// with 400 for malformed requests, 401 without X-User-ID, 403 for missing
// rights or a wrong passcode, 404 for unknown resources, 409 for booking
// conflicts and state clashes, 422 for field validation, 423 while a room is
// locked by a concurrent booking and 500 otherwise.
package http
