package tree

import (
	"fmt"
	"io"
	"strings"
)

// Render writes t in the style of the Unix tree command. Directories end in
// "/" and client directories are marked "[client]". Files come before
// subdirectories, both in walk order.
func Render(w io.Writer, t Tree) error {
	if len(t) == 0 {
		return nil
	}
	children := make(map[int][]int, len(t))
	for _, n := range t {
		if n.ParentNode != nil {
			children[*n.ParentNode] = append(children[*n.ParentNode], n.ID)
		}
	}

	var sb strings.Builder
	sb.WriteString(label(t[0]))
	sb.WriteString("\n")
	renderDir(&sb, t, children, 0, "")
	_, err := io.WriteString(w, sb.String())
	return err
}

func renderDir(sb *strings.Builder, t Tree, children map[int][]int, id int, prefix string) {
	files := t[id].Contents
	dirs := children[id]
	total := len(files) + len(dirs)

	for i, name := range files {
		writeBranch(sb, prefix, i == total-1)
		sb.WriteString(name)
		sb.WriteString("\n")
	}
	for j, child := range dirs {
		isLast := len(files)+j == total-1
		writeBranch(sb, prefix, isLast)
		sb.WriteString(label(t[child]))
		sb.WriteString("\n")

		newPrefix := prefix + "│   "
		if isLast {
			newPrefix = prefix + "    "
		}
		renderDir(sb, t, children, child, newPrefix)
	}
}

func writeBranch(sb *strings.Builder, prefix string, isLast bool) {
	sb.WriteString(prefix)
	if isLast {
		sb.WriteString("└── ")
	} else {
		sb.WriteString("├── ")
	}
}

func label(n DirectoryNode) string {
	if n.Render == RenderClient {
		return fmt.Sprintf("%s/ [client]", n.FolderName)
	}
	return n.FolderName + "/"
}
