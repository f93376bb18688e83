package content

import "strings"

const teaserContinuation = "[Continue reading with premium access...]"

// Teaser devuelve las primeras N palabras del texto libre del árbol.
// Cuenta palabras reales (campos separados por espacios), no caracteres.
// El texto fuente corta en el gate y saltea bloques lockeados: el teaser
// jamás contiene contenido premium, sin importar N.
func (s *Service) Teaser(nodes []Node) string {
	free := flattenFreeText(nodes)
	words := strings.Fields(free)
	if len(words) <= s.teaserWords {
		return free + " " + teaserContinuation
	}
	return strings.Join(words[:s.teaserWords], " ") + " " + teaserContinuation
}

// flattenFreeText concatena solo el texto público: corta en el primer
// gate y saltea los nodos marcados Locked (con sus descendientes).
func flattenFreeText(nodes []Node) string {
	var b strings.Builder
	appendFreeText(&b, nodes)
	return strings.TrimSpace(b.String())
}

func appendFreeText(b *strings.Builder, nodes []Node) {
	for _, n := range nodes {
		if n.Type == NodeTypeGate {
			return
		}
		if n.Locked || n.Type == NodeTypePlaceholder {
			continue
		}
		if text := freeParagraphText(n); text != "" {
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(text)
		}
		appendFreeText(b, n.Children)
	}
}

// freeParagraphText devuelve el texto del nodo sin los párrafos que
// tienen lock propio.
func freeParagraphText(n Node) string {
	if n.Text == "" || len(n.LockedParagraphs) == 0 {
		return n.Text
	}
	locked := make(map[int]bool, len(n.LockedParagraphs))
	for _, idx := range n.LockedParagraphs {
		locked[idx] = true
	}
	var free []string
	for i, p := range splitParagraphs(n.Text) {
		if !locked[i] {
			free = append(free, p)
		}
	}
	return strings.Join(free, "\n\n")
}

// flattenText concatena el texto de todo el árbol en orden de documento,
// saltando affordances (gates y placeholders no aportan contenido).
func flattenText(nodes []Node) string {
	var b strings.Builder
	appendText(&b, nodes)
	return strings.TrimSpace(b.String())
}

func appendText(b *strings.Builder, nodes []Node) {
	for _, n := range nodes {
		if n.Type == NodeTypeGate || n.Type == NodeTypePlaceholder {
			continue
		}
		if n.Text != "" {
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(n.Text)
		}
		appendText(b, n.Children)
	}
}

// splitParagraphs parte el texto de un nodo por líneas en blanco, que es
// la unidad que indexan los locks de párrafo.
func splitParagraphs(text string) []string {
	return strings.Split(text, "\n\n")
}

func joinParagraphs(paragraphs []string) string {
	return strings.Join(paragraphs, "\n\n")
}
