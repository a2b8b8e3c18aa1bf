package report

import (
	"strconv"
	"strings"

	"github.com/emicklei/dot"

	"procsim/model"
	"procsim/problem"
)

// ProblemGraph 问题结构图：模型为方框，连接为带变量名的边，子模型放在簇中
func ProblemGraph(p *problem.Problem) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "LR")
	graph.Attr("label", p.Name())
	graph.Attr("labelloc", "t")
	graph.Attr("fontsize", "16")

	nodes := make(map[string]dot.Node)
	var add func(g *dot.Graph, m *model.Model)
	add = func(g *dot.Graph, m *model.Model) {
		if children := m.Children(); len(children) > 0 {
			sub := g.Subgraph(m.Name(), dot.ClusterOption{})
			sub.Attr("style", "rounded")
			for _, c := range children {
				add(sub, c)
			}
			g = sub
		}
		nodes[m.Name()] = g.Node(m.Name()).
			Attr("label", label(m)).
			Attr("shape", "box").
			Attr("style", "filled,rounded").
			Attr("fillcolor", "lightblue").
			Attr("fontname", "helvetica")
	}
	for _, m := range p.Models() {
		add(graph, m)
	}
	for _, c := range p.Connections() {
		from, ok := nodes[c.FromModel]
		if !ok {
			continue
		}
		to, ok := nodes[c.ToModel]
		if !ok {
			continue
		}
		graph.Edge(from, to, c.FromVar+" -> "+c.ToVar).Attr("fontname", "helvetica")
	}
	return graph
}

// label 模型名与已声明的量个数
func label(m *model.Model) string {
	var b strings.Builder
	b.WriteString(m.Name())
	if m.Description() != "" {
		b.WriteString("\n" + m.Description())
	}
	if m.Workspace() != nil {
		b.WriteString("\nvars=" + strconv.Itoa(len(m.Variables())))
		b.WriteString(" eqs=" + strconv.Itoa(len(m.Equations())))
	}
	return b.String()
}
