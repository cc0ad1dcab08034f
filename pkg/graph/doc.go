// Package graph is the connectivity graph of a generated layout: one node
// per placed module, attach edges forming a tree from the start module and
// loop edges closing cycles. Graphs are built from a dungeon.Solution and
// validated in tiers.
package graph
