// Package interaction stores pending logout requests on behalf of an
// OAuth/OpenID Connect protocol layer. The protocol layer issues a logout id
// when a client starts an end-session request; the credential authority
// resolves it once the user's session is gone.
//
// [Store] implements credauth.LogoutContextResolver.
package interaction
