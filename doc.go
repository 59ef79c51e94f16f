// Package requesttoken issues, validates, and audits single-use or
// time-bound authorization tokens that grant access to specific HTTP
// endpoints (expiring links, magic links, impersonation links).
//
// Token lifecycle:
//   - Tokens are persisted entities carrying a scope, an optional audience
//     principal, a timing window, a use cap, and a login mode. The persisted
//     id becomes the `jti` claim and the claim set is signed into a compact
//     JWT by TokenCodec. The free-form Data payload is never signed into
//     the claims; it must be fetched from storage.
//   - Every attempted use, allowed or rejected, appends one TokenLog entry.
//     Rejected attempts additionally attach a TokenErrorLog. The token's
//     used_to_date is recomputed inside the same transaction as a count of
//     error-free log rows, so concurrent uses can never push the derived
//     count past the true ledger state.
//   - Disabling logs via Config.GetDisableLogs suppresses the ledger
//     entirely. used_to_date is derived from ledger rows, so it stops
//     advancing and max_uses caps are no longer enforced while logs are
//     disabled.
//
// Login modes:
//   - None gates access by scope/time/use-count without touching identity.
//   - Request impersonates the audience principal for a single request.
//   - Session establishes a durable login, and is therefore restricted to
//     single-use, time-bound tokens at save time.
//
// The Validator glues the pieces together for the middleware in
// middleware/tokenware: decode, load, scope check, use-cap check, identity
// resolution, and audit logging. Host applications supply the
// IdentityProvider and IdentityBinder capabilities; this package never
// stores principals or sessions itself.
package requesttoken
