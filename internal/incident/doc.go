// Package incident classifies pipeline failures against a library of known
// error signatures, tracks them as incidents and tickets, and drives the
// self-healing loop: automated data repair, bounded delayed retries, and
// auto-resolution once a later run succeeds.
package incident
