// Package auth provides header-based access control for the Prefect server.
//
// A Gate decides, per request, whether to admit it. The health-check path
// is always bypassed. Every other request must carry an Authorization header
// equal to one of the two configured Credentials tokens: the API key
// ("Bearer ...") maps to the "api" identity and the basic-auth secret
// ("Basic ...") maps to the "user" identity.
//
// Token matching uses a chain-of-responsibility with three-outcome voting:
// each authenticator returns Yes (identity found), No (credentials invalid),
// or Abstain (not its token). When every authenticator abstains the chain
// rejects the request as an invalid token.
//
// The gate is applied as HTTP middleware ahead of the wrapped application.
// Rejections are answered by an ErrorHandler, Unauthorized by default.
package auth
