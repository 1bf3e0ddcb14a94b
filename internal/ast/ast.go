// Package ast holds the shared statement tree for prompt scripts. The node
// editor and any other visual surface operate on this one representation;
// execution always goes through the canonical interpreter, never a second
// one. Every node carries a stable id so edits round-trip.
package ast

import "github.com/google/uuid"

// NewID returns a fresh stable node identity.
func NewID() string {
	return uuid.New().String()
}

// Node is one script statement.
type Node interface {
	NodeID() string
}

// Script is a parsed script body.
type Script struct {
	ID   string
	Body []Node
}

// Set assigns the value of Expr to Var, in the local scope when Local.
type Set struct {
	ID    string
	Var   string
	Expr  string
	Local bool
	Line  int
}

// Log appends the value of Expr to the execution log side channel.
type Log struct {
	ID   string
	Expr string
	Line int
}

// AddSystemInfo appends the resolved value of Expr to the system-info list.
type AddSystemInfo struct {
	ID   string
	Expr string
	Line int
}

// Return yields the resolved value of Expr as the script's text.
type Return struct {
	ID   string
	Expr string
	Line int
}

// IfBranch is one condition/body pair of an If. Line is the source
// line of the IF or ELSEIF that opened the branch.
type IfBranch struct {
	Cond string
	Body []Node
	Line int
}

// If holds the ordered IF/ELSEIF branches and an optional ELSE body.
type If struct {
	ID       string
	Branches []IfBranch
	Else     []Node
	HasElse  bool
	Line     int
}

func (s *Script) NodeID() string        { return s.ID }
func (s *Set) NodeID() string           { return s.ID }
func (l *Log) NodeID() string           { return l.ID }
func (a *AddSystemInfo) NodeID() string { return a.ID }
func (r *Return) NodeID() string        { return r.ID }
func (i *If) NodeID() string            { return i.ID }

// EnsureElse makes the else body addressable even when empty.
func (i *If) EnsureElse() {
	i.HasElse = true
	if i.Else == nil {
		i.Else = []Node{}
	}
}
