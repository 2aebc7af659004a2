// Package thread rebuilds comment reply trees from flat comment rows.
//
// Rows are grouped by parent id in one pass and expanded from the top-level
// group, so building is linear in the number of comments. A comment whose
// parent is not part of the same set is treated as top-level.
package thread

import (
	"sort"

	"Forum_Community/internal/model"
)

// Node 一条评论及其直接回复，回复按创建时间排列
type Node struct {
	Comment  model.Comment `json:"comment"`
	Children []*Node       `json:"children"`
}

// Entry 前序展开后的一行
type Entry struct {
	model.Comment
	Depth int `json:"depth"`
}

const topLevel = ""

// Build 返回顶层节点，每条输入评论恰好出现一次；不修改入参
func Build(comments []model.Comment) []*Node {
	sorted := make([]model.Comment, len(comments))
	copy(sorted, comments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(&sorted[i], &sorted[j])
	})

	ids := make(map[string]struct{}, len(sorted))
	for i := range sorted {
		ids[sorted[i].ID] = struct{}{}
	}

	// 按全局顺序分组，组内天然有序
	groups := make(map[string][]int, len(sorted))
	for i := range sorted {
		p := effectiveParent(&sorted[i], ids)
		groups[p] = append(groups[p], i)
	}

	visited := make([]bool, len(sorted))
	roots := make([]*Node, 0, len(groups[topLevel]))
	for _, i := range groups[topLevel] {
		roots = append(roots, expand(sorted, groups, visited, i))
	}

	// 只有成环的数据会剩下未访问，提升为顶层，保证不丢评论
	for i := range sorted {
		if !visited[i] {
			roots = append(roots, expand(sorted, groups, visited, i))
		}
	}
	if len(roots) > 1 {
		sort.SliceStable(roots, func(a, b int) bool {
			return less(&roots[a].Comment, &roots[b].Comment)
		})
	}
	return roots
}

// expand 迭代展开子树，回复链很深也不递归
func expand(sorted []model.Comment, groups map[string][]int, visited []bool, root int) *Node {
	visited[root] = true
	top := &Node{Comment: sorted[root], Children: []*Node{}}
	stack := []*Node{top}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, ci := range groups[n.Comment.ID] {
			if visited[ci] {
				continue
			}
			visited[ci] = true
			child := &Node{Comment: sorted[ci], Children: []*Node{}}
			n.Children = append(n.Children, child)
			stack = append(stack, child)
		}
	}
	return top
}

func effectiveParent(c *model.Comment, ids map[string]struct{}) string {
	if c.ParentCommentID == nil || *c.ParentCommentID == "" || *c.ParentCommentID == c.ID {
		return topLevel
	}
	if _, ok := ids[*c.ParentCommentID]; !ok {
		return topLevel
	}
	return *c.ParentCommentID
}

func less(a, b *model.Comment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Flatten 前序遍历；ParentCommentID 为实际挂载位置，退化为顶层的评论置为 nil
func Flatten(roots []*Node) []Entry {
	out := make([]Entry, 0)
	type frame struct {
		node  *Node
		depth int
	}
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: roots[i]})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entry := Entry{Comment: f.node.Comment, Depth: f.depth}
		if f.depth == 0 {
			entry.ParentCommentID = nil
		}
		out = append(out, entry)
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			child := f.node.Children[i]
			stack = append(stack, frame{node: child, depth: f.depth + 1})
		}
	}
	return out
}

// Count 森林中的节点总数
func Count(roots []*Node) int {
	n := 0
	stack := append([]*Node(nil), roots...)
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		stack = append(stack, top.Children...)
	}
	return n
}
