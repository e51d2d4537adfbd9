// Package vcs supplies the VCS facts (ref name, commit id, remote URL) that
// calculated options derive values from.
//
// Facts come from two places: CI environment variables, which are authoritative
// on build agents where checkouts are often detached, and the git CLI run
// against the project directory. Chain combines providers field by field so a
// CI-provided ref name can be paired with a locally discovered remote URL.
package vcs
