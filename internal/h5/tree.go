package h5

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gonum.org/v1/hdf5"
)

// Node is one object in a file: a group with children or a dataset with
// dims. Both may carry attributes.
type Node struct {
	Name     string            `json:"name"`
	Path     string            `json:"path"`
	Group    bool              `json:"group,omitempty"`
	Dims     []uint            `json:"dims,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Children []Node            `json:"children,omitempty"`
}

// Load opens filename read-only and returns its object tree.
func Load(filename string) (Node, error) {
	var root Node
	err := With(filename, ReadOnly, func(f *File) error {
		var err error
		root, err = f.Tree()
		return err
	})
	return root, err
}

// Tree walks the file from the root group.
func (f *File) Tree() (Node, error) {
	root := Node{Name: "/", Path: "", Group: true}
	var err error
	if root.Attrs, err = f.nodeAttrs(""); err != nil {
		return Node{}, err
	}
	if root.Children, err = f.walk(&f.f.CommonFG, ""); err != nil {
		return Node{}, err
	}
	return root, nil
}

func (f *File) walk(fg *hdf5.CommonFG, prefix string) ([]Node, error) {
	n, err := fg.NumObjects()
	if err != nil {
		return nil, fmt.Errorf("count objects in %q: %w", prefix, err)
	}

	nodes := make([]Node, 0, n)
	for i := uint(0); i < n; i++ {
		name, err := fg.ObjectNameByIndex(i)
		if err != nil {
			return nil, fmt.Errorf("object name %d in %q: %w", i, prefix, err)
		}
		typ, err := fg.ObjectTypeByIndex(i)
		if err != nil {
			return nil, fmt.Errorf("object type of %q: %w", name, err)
		}

		full := name
		if prefix != "" {
			full = prefix + "/" + name
		}
		node := Node{Name: name, Path: full}

		switch typ {
		case hdf5.H5G_GROUP:
			g, err := fg.OpenGroup(name)
			if err != nil {
				return nil, fmt.Errorf("open group %s: %w", full, err)
			}
			node.Group = true
			node.Children, err = f.walk(&g.CommonFG, full)
			g.Close()
			if err != nil {
				return nil, err
			}
		case hdf5.H5G_DATASET:
			dset, err := fg.OpenDataset(name)
			if err != nil {
				return nil, fmt.Errorf("open dataset %s: %w", full, err)
			}
			space := dset.Space()
			node.Dims, _, err = space.SimpleExtentDims()
			space.Close()
			dset.Close()
			if err != nil {
				return nil, fmt.Errorf("dims of %s: %w", full, err)
			}
		default:
			continue
		}
		if node.Attrs, err = f.nodeAttrs(full); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (f *File) nodeAttrs(name string) (map[string]string, error) {
	attrs, err := f.Attrs(name)
	if err != nil || len(attrs) == 0 {
		return nil, err
	}
	return attrs, nil
}

// Datasets returns the paths of all datasets below n, depth first.
func (n Node) Datasets() []string {
	var out []string
	for _, c := range n.Children {
		if c.Group {
			out = append(out, c.Datasets()...)
		} else {
			out = append(out, c.Path)
		}
	}
	return out
}

// Print writes an indented listing of the tree.
func (n Node) Print(w io.Writer) error {
	return n.print(w, 0)
}

func (n Node) print(w io.Writer, depth int) error {
	indent := strings.Repeat("  ", depth)
	var err error
	switch {
	case depth == 0:
		_, err = fmt.Fprintln(w, n.Name)
	case n.Group:
		_, err = fmt.Fprintf(w, "%s%s/\n", indent, n.Name)
	default:
		_, err = fmt.Fprintf(w, "%s%s %v\n", indent, n.Name, n.Dims)
	}
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s  @%s = %s\n", indent, k, n.Attrs[k]); err != nil {
			return err
		}
	}

	for _, c := range n.Children {
		if err := c.print(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}
