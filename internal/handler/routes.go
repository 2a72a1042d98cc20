package handler

// APIV1Prefix is the canonical base path for public HTTP API v1.
// Keep a single source of truth to avoid path drift across handlers and tests.
const APIV1Prefix = "/api/v1"

// ActingUserHeader carries the opaque acting-user token recorded in audit
// entries. Identity is an external concern; the value passes through as-is.
const ActingUserHeader = "X-Acting-User"
