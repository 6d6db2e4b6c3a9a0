package models

// Node types of the rich-text document body. The body is a tree: container
// nodes carry children, leaf nodes carry text or an image source.
const (
	NodeDoc        = "doc"
	NodeParagraph  = "paragraph"
	NodeHeading    = "heading"
	NodeBlockquote = "blockquote"
	NodeList       = "list"
	NodeListItem   = "listItem"
	NodeCodeBlock  = "codeBlock"
	NodeText       = "text"
	NodeImage      = "image"
)

// Node is one node of an article body. Fields not meaningful for the node's
// type stay zero; unknown fields are dropped when decoding client JSON.
type Node struct {
	Type     string `bson:"type" json:"type"`
	Text     string `bson:"text,omitempty" json:"text,omitempty"`
	Src      string `bson:"src,omitempty" json:"src,omitempty"`
	Alt      string `bson:"alt,omitempty" json:"alt,omitempty"`
	Level    int    `bson:"level,omitempty" json:"level,omitempty"`
	Ordered  bool   `bson:"ordered,omitempty" json:"ordered,omitempty"`
	Children []Node `bson:"children,omitempty" json:"children,omitempty"`
}

// AssetRefs walks the tree and collects the source locator of every embedded
// image. The result is a set, so duplicate references collapse and traversal
// order does not matter.
func (n Node) AssetRefs() map[string]struct{} {
	refs := make(map[string]struct{})
	n.collectRefs(refs)
	return refs
}

func (n Node) collectRefs(refs map[string]struct{}) {
	if n.Type == NodeImage && n.Src != "" {
		refs[n.Src] = struct{}{}
	}
	for _, c := range n.Children {
		c.collectRefs(refs)
	}
}
