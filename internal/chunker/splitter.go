package chunker

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// sizeTolerance lets a short trailing remainder ride along with the final
// chunk instead of producing a fragment.
const sizeTolerance = 1.2

type piece struct {
	text      string
	startLine int
	endLine   int
}

// split cuts text into chunks of at most size characters, repeating overlap
// characters at each cut. Cuts prefer the supplied boundary offsets, then
// whitespace, then plain character positions.
func split(text string, size, overlap int, boundaries []int) []piece {
	tolerated := int(float64(size) * sizeTolerance)
	if len(text) <= tolerated {
		return []piece{makePiece(text, 1)}
	}

	var pieces []piece
	i := 0
	line := 1
	for {
		if len(text)-i <= tolerated {
			pieces = append(pieces, makePiece(text[i:], line))
			break
		}
		cut := chooseCut(text, i, i+size, boundaries)
		pieces = append(pieces, makePiece(text[i:cut], line))

		next := cut - overlap
		if next <= i {
			next = cut
		}
		for next > i && !utf8.RuneStart(text[next]) {
			next--
		}
		if next <= i {
			next = cut
		}
		line += strings.Count(text[i:next], "\n")
		i = next
	}
	return pieces
}

func makePiece(text string, startLine int) piece {
	return piece{
		text:      text,
		startLine: startLine,
		endLine:   startLine + strings.Count(text, "\n"),
	}
}

// chooseCut picks the cut offset in (lo, hi]: the largest boundary past the
// midpoint, else the largest whitespace run end, else hi itself aligned to
// a rune start.
func chooseCut(text string, lo, hi int, boundaries []int) int {
	min := lo + (hi-lo)/2

	// Boundaries are sorted ascending; find the last one in (min, hi].
	idx := sort.SearchInts(boundaries, hi+1) - 1
	if idx >= 0 && boundaries[idx] > min && boundaries[idx] <= hi {
		return boundaries[idx]
	}

	for j := hi; j > min; j-- {
		r, _ := utf8.DecodeLastRuneInString(text[:j])
		if unicode.IsSpace(r) {
			return j
		}
	}

	cut := hi
	for cut > min && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if cut <= min {
		cut = hi
	}
	return cut
}

// blankLineOffsets returns offsets immediately after each blank line.
func blankLineOffsets(text string) []int {
	var offsets []int
	from := 0
	for {
		idx := strings.Index(text[from:], "\n\n")
		if idx < 0 {
			break
		}
		pos := from + idx + 2
		// Swallow any further newlines so the boundary sits at real content.
		for pos < len(text) && text[pos] == '\n' {
			pos++
		}
		offsets = append(offsets, pos)
		from = pos
	}
	return offsets
}

// sortedUnique sorts offsets, removes duplicates, and drops anything
// outside (0, n).
func sortedUnique(offsets []int, n int) []int {
	sort.Ints(offsets)
	out := offsets[:0]
	prev := -1
	for _, o := range offsets {
		if o <= 0 || o >= n || o == prev {
			continue
		}
		out = append(out, o)
		prev = o
	}
	return out
}
