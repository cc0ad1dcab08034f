// Package dungeon assembles a connected layout of modules by depth-first
// backtracking search.
//
// A search starts from a single module and repeatedly resolves one open
// connector: either two open connectors are snapped together into a loop,
// or a catalog entry is aligned onto the connector, tested for overlap and
// committed. A dead end undoes the last commit and tries the next candidate.
// Every mutation of the search state has a symmetric undo that is applied in
// strict LIFO order, so a failed branch leaves the scene, the placed list and
// the frontier exactly as it found them.
//
// The search is single-threaded and runs to completion. Callers that need a
// time bound wrap Generate with their own deadline.
package dungeon
