// Package cioption is the static catalog of CI options. Options are grouped by
// origin and resolved by an opts.Registry in the order Groups returns them; the
// infra group comes first because GitHub options write infrastructure-
// namespaced hints into the system scope while they are being resolved.
package cioption
