package transform

import "fmt"

// pendingOps records the asynchronous side-work requested during one slide's
// synchronous template pass: icon renderings, inline citations and citation
// expansions.
//
// Each namespace has its own counter and map. The placeholder tokens carry
// distinct textual prefixes, so numeric ids may repeat across namespaces
// without ambiguity. A pendingOps lives for exactly one slide transform and
// is never shared.
type pendingOps struct {
	iconSeq int
	icons   map[int]iconRequest

	citeSeq int
	cites   map[int]string

	expandSeq int
	expands   map[int]string
}

type iconRequest struct {
	name string
	opts IconOptions
}

func newPendingOps() *pendingOps {
	return &pendingOps{
		icons:   map[int]iconRequest{},
		cites:   map[int]string{},
		expands: map[int]string{},
	}
}

func placeholder(namespace string, id int) string {
	return fmt.Sprintf("@@pending:%s:%d@@", namespace, id)
}

// addIcon records an icon request and returns its placeholder. No I/O
// happens here; resolution is a separate phase.
func (p *pendingOps) addIcon(name string, opts IconOptions) string {
	id := p.iconSeq
	p.iconSeq++
	p.icons[id] = iconRequest{name: name, opts: opts}
	return placeholder("icon", id)
}

func (p *pendingOps) addCite(id string) string {
	n := p.citeSeq
	p.citeSeq++
	p.cites[n] = id
	return placeholder("cite", n)
}

func (p *pendingOps) addExpand(text string) string {
	n := p.expandSeq
	p.expandSeq++
	p.expands[n] = text
	return placeholder("expand", n)
}

func (p *pendingOps) empty() bool {
	return len(p.icons) == 0 && len(p.cites) == 0 && len(p.expands) == 0
}
