package tui

import "strings"

// overlayAt composites the overlay string on top of the background at position (x, y).
// It handles ANSI escape sequences by tracking visible column positions.
func overlayAt(bg, overlay string, x, y int) string {
	bgLines := strings.Split(bg, "\n")
	ovLines := strings.Split(overlay, "\n")

	for i, ovLine := range ovLines {
		bgIdx := y + i
		if bgIdx < 0 || bgIdx >= len(bgLines) {
			continue
		}
		bgLines[bgIdx] = spliceLineAt(bgLines[bgIdx], ovLine, x)
	}
	return strings.Join(bgLines, "\n")
}

func isEscFinal(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

// spliceLineAt replaces the visible columns starting at x in bgLine with
// overlay. Escape sequences before x are kept; those under the overlay are dropped.
func spliceLineAt(bgLine, overlay string, x int) string {
	runes := []rune(bgLine)
	ovWidth := visibleLen(overlay)

	var prefix strings.Builder
	col, i := 0, 0
	for i < len(runes) && col < x {
		if runes[i] == '\x1b' {
			// copy the whole sequence, up to and including its final letter
			prefix.WriteRune(runes[i])
			i++
			for i < len(runes) {
				r := runes[i]
				prefix.WriteRune(r)
				i++
				if r != '[' && isEscFinal(r) {
					break
				}
			}
			continue
		}
		prefix.WriteRune(runes[i])
		col++
		i++
	}
	for col < x {
		prefix.WriteRune(' ')
		col++
	}

	skipped := 0
	for i < len(runes) && skipped < ovWidth {
		if runes[i] == '\x1b' {
			i++
			for i < len(runes) {
				r := runes[i]
				i++
				if r != '[' && isEscFinal(r) {
					break
				}
			}
			continue
		}
		skipped++
		i++
	}

	return prefix.String() + overlay + string(runes[i:])
}

// visibleLen returns the number of visible (non-ANSI-escape) characters in a string.
func visibleLen(s string) int {
	n := 0
	inEsc := false
	for _, r := range s {
		if r == '\x1b' {
			inEsc = true
			continue
		}
		if inEsc {
			if isEscFinal(r) {
				inEsc = false
			}
			continue
		}
		n++
	}
	return n
}
