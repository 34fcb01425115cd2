// Copyright 2019 The Wuffs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package om

import "fmt"

// WriteFunc emits one variable (scalar, array or group) given the already-
// written ChildRefs of its children, returning this variable's own
// ChildRef. Writer supplies these as closures over itself, so Tree stays
// independent of the on-disk record format.
type WriteFunc func(children []ChildRef) (ChildRef, error)

type treeNode struct {
	write     WriteFunc
	parent    string
	hasParent bool
	children  []string
}

// Tree accumulates a forest of named variables and their declared
// parent/child edges, then resolves them into a single rooted DAG and
// writes it out children-before-parents.
type Tree struct {
	nodes map[string]*treeNode

	// pendingParents tracks child names mentioned by SetChildren before
	// the child itself was added via Add.
	pendingParents map[string]string

	// addOrder remembers insertion order for deterministic root
	// resolution and error reporting.
	addOrder []string
}

// NewTree returns an empty Tree.
func NewTree() *Tree {
	return &Tree{
		nodes:          make(map[string]*treeNode),
		pendingParents: make(map[string]string),
	}
}

// Add registers a new variable under name, resolving any forward
// declaration a parent made for it.
func (t *Tree) Add(name string, write WriteFunc) error {
	if _, exists := t.nodes[name]; exists {
		return fmt.Errorf("om: variable %q already exists", name)
	}
	node := &treeNode{write: write}
	if parent, pending := t.pendingParents[name]; pending {
		node.parent = parent
		node.hasParent = true
		delete(t.pendingParents, name)
	}
	t.nodes[name] = node
	t.addOrder = append(t.addOrder, name)
	return nil
}

// SetChildren declares parent's children in the order they should appear
// in the on-disk record's children table. Each child must not already have
// a parent, including from an earlier SetChildren call for the same parent.
func (t *Tree) SetChildren(parent string, children []string) error {
	parentNode, ok := t.nodes[parent]
	if !ok {
		return fmt.Errorf("om: parent variable %q does not exist", parent)
	}

	for _, child := range children {
		node, exists := t.nodes[child]
		if !exists {
			if _, pending := t.pendingParents[child]; pending {
				return fmt.Errorf("om: variable %q already has a parent", child)
			}
			t.pendingParents[child] = parent
			continue
		}
		if node.hasParent {
			return fmt.Errorf("om: variable %q already has a parent", child)
		}
		node.parent = parent
		node.hasParent = true
	}

	parentNode.children = children
	return nil
}

// Validate reports unresolved forward-declared children and cycles.
func (t *Tree) Validate() error {
	for child := range t.pendingParents {
		return fmt.Errorf("om: child %q was declared but never added", child)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(t.nodes))
	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case gray:
			return fmt.Errorf("om: cycle detected in variable tree at %q", name)
		case black:
			return nil
		}
		color[name] = gray
		node := t.nodes[name]
		for _, child := range node.children {
			if err := visit(child); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}
	for name := range t.nodes {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// rootName picks the unique parentless node. More than one parentless
// node is an authoring error: the trailer designates a single root, so a
// second top-level variable could never be reached again.
func (t *Tree) rootName() (string, error) {
	var root string
	n := 0
	for _, name := range t.addOrder {
		if !t.nodes[name].hasParent {
			root = name
			n++
		}
	}
	if root == "" {
		return "", fmt.Errorf("om: variable tree has no root")
	}
	if n > 1 {
		return "", fmt.Errorf("om: variable tree has %d parentless variables, want exactly 1 root", n)
	}
	return root, nil
}

// Write emits every node in post-order (children before parents) and
// returns the root's ChildRef.
func (t *Tree) Write() (ChildRef, error) {
	if err := t.Validate(); err != nil {
		return ChildRef{}, err
	}
	root, err := t.rootName()
	if err != nil {
		return ChildRef{}, err
	}

	written := make(map[string]ChildRef, len(t.nodes))
	visited := make(map[string]bool, len(t.nodes))

	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		visited[name] = true
		node := t.nodes[name]
		childRefs := make([]ChildRef, len(node.children))
		for i, child := range node.children {
			if err := visit(child); err != nil {
				return err
			}
			ref, ok := written[child]
			if !ok {
				return fmt.Errorf("om: child %q was not written before parent %q", child, name)
			}
			childRefs[i] = ref
		}
		ref, err := node.write(childRefs)
		if err != nil {
			return err
		}
		written[name] = ref
		return nil
	}

	if err := visit(root); err != nil {
		return ChildRef{}, err
	}
	return written[root], nil
}
