// Package tools provides reusable runtime helpers shared by managectl modules.
//
// Ownership boundary:
// - command execution on the local host and over ssh
//
// - execution environment shaping (working directory, search path, variables)
//
// - shell quoting for command lines assembled from trusted pieces
package tools
