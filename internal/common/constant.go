package common

// SystemActor is the audit attribution used when a caller supplies none.
const SystemActor = "system"

// RequestIDHeader is the HTTP header and gRPC metadata key carrying the
// request correlation id.
const RequestIDHeader = "x-request-id"
