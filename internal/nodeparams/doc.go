// Package nodeparams stores flowsheet node parameters per status version.
//
// A node document is split on write: its identity and labels go to fixed
// columns and the remaining fields, filtered by the node's category, are kept
// as a JSON payload. Reads merge the two back.
//
// Every version of a model holds the same node set. Writes that add or remove
// nodes in one version repeat the change in all others within the same
// transaction, while each version keeps its own payloads.
package nodeparams
