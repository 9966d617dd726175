// Package thread собирает плоский список комментариев поста в дерево.
//
// Правила:
//   - комментарий без parent_id — корень;
//   - комментарий, чей родитель отсутствует в наборе, тоже становится корнем (не теряется);
//   - ссылка на себя и циклы разрываются: участник цикла поднимается в корни;
//   - соседи упорядочены по CreatedAt ASC, затем по ID;
//   - глубина не ограничивается: Policy лишь решает, показывать ли кнопку ответа.
package thread

import (
	"sort"

	"github.com/pribylovaa/thinkedin/internal/models"
)

// DefaultMaxDepth — глубина, начиная с которой ответ не предлагается.
const DefaultMaxDepth = 3

// Node — узел дерева. Depth корня равен 0.
type Node struct {
	Comment  models.Comment
	Depth    int
	Children []*Node
}

// Count — 1 плюс сумма рекурсивных счётчиков детей.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}

	total := 1
	for _, ch := range n.Children {
		total += ch.Count()
	}
	return total
}

// Build строит лес из комментариев одного поста.
func Build(comments []models.Comment) []*Node {
	if len(comments) == 0 {
		return []*Node{}
	}

	nodes := make(map[string]*Node, len(comments))
	ordered := make([]*Node, 0, len(comments))
	for _, c := range comments {
		if _, dup := nodes[c.ID]; dup {
			continue
		}
		n := &Node{Comment: c}
		nodes[c.ID] = n
		ordered = append(ordered, n)
	}

	sort.SliceStable(ordered, func(i, j int) bool { return less(ordered[i], ordered[j]) })

	roots := make([]*Node, 0)
	for _, n := range ordered {
		parent := parentOf(n, nodes)
		if parent == nil {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	// Узлы, не достижимые из корней, образуют циклы: поднимаем их наверх.
	reached := make(map[*Node]bool, len(ordered))
	for _, r := range roots {
		mark(r, reached)
	}

	for _, n := range ordered {
		if reached[n] {
			continue
		}

		if p := nodes[n.Comment.ParentID]; p != nil {
			p.Children = removeChild(p.Children, n)
		}
		roots = insertSorted(roots, n)
		mark(n, reached)
	}

	for _, r := range roots {
		setDepth(r, 0)
	}

	return roots
}

// CountAll — общее число комментариев в лесу.
func CountAll(roots []*Node) int {
	total := 0
	for _, r := range roots {
		total += r.Count()
	}
	return total
}

// Policy — правила отображения дерева.
type Policy struct {
	MaxDepth int
}

// CanReply сообщает, предлагать ли ответ на узел.
func (p Policy) CanReply(n *Node) bool {
	maxDepth := p.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return n.Depth < maxDepth
}

// Item — строка плоского представления дерева.
type Item struct {
	Node     *Node
	CanReply bool
}

// Flatten обходит лес в прямом порядке (родитель, затем его ветка) для отрисовки списком.
func Flatten(roots []*Node, p Policy) []Item {
	out := make([]Item, 0, CountAll(roots))

	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			out = append(out, Item{Node: n, CanReply: p.CanReply(n)})
			walk(n.Children)
		}
	}
	walk(roots)

	return out
}

func parentOf(n *Node, nodes map[string]*Node) *Node {
	pid := n.Comment.ParentID
	if pid == "" || pid == n.Comment.ID {
		return nil
	}
	return nodes[pid]
}

func less(a, b *Node) bool {
	if !a.Comment.CreatedAt.Equal(b.Comment.CreatedAt) {
		return a.Comment.CreatedAt.Before(b.Comment.CreatedAt)
	}
	return a.Comment.ID < b.Comment.ID
}

func mark(n *Node, reached map[*Node]bool) {
	if reached[n] {
		return
	}
	reached[n] = true
	for _, ch := range n.Children {
		mark(ch, reached)
	}
}

func setDepth(n *Node, d int) {
	n.Depth = d
	for _, ch := range n.Children {
		setDepth(ch, d+1)
	}
}

func removeChild(children []*Node, n *Node) []*Node {
	for i, ch := range children {
		if ch == n {
			return append(children[:i], children[i+1:]...)
		}
	}
	return children
}

func insertSorted(roots []*Node, n *Node) []*Node {
	i := sort.Search(len(roots), func(i int) bool { return less(n, roots[i]) })
	roots = append(roots, nil)
	copy(roots[i+1:], roots[i:])
	roots[i] = n
	return roots
}
