// Package storage defines the key-value boundary the labtrack services are
// built on, and its Redis implementation.
//
// The interface is deliberately small: Get, Put (with an optional TTL),
// Delete and List by prefix. Per-key reads and writes are atomic; there are
// no cross-key transactions, and callers are expected to keep every logical
// mutation down to a single idempotent key write. TTL expiry is best-effort:
// consumers that care about exact expiry (the session store) re-check
// timestamps on read and delete stale records themselves.
//
// Key conventions used across the application:
//
//	user:<id>            user record (JSON)
//	useremail:<email>    normalized email -> user id index
//	session:<token>      session record (JSON), TTL = remaining lifetime
//	csrf:<token|scope>   CSRF token, short TTL
//	ratelimit:<id>       sliding-window timestamps (JSON), TTL = window + grace
//	progress:<userID>    lab progress record (JSON)
//	labhistory:<userID>  lab completion history (JSON)
//	audit:<id>           security audit event (JSON), retention TTL
package storage
