package mapper

import "strings"

// Score returns the confidence in [0,1] that a source header denotes the
// given canonical field. The score is the best of four signals, scaled by
// the field's weight:
//
//	exact keyword match      1.0
//	keyword containment      len ratio x 0.9
//	regex pattern match      0.8
//	fuzzy similarity > 0.7   ratio x 0.7
func Score(header, field string) float64 {
	p := patternFor(field)
	if p == nil {
		return 0
	}
	return scoreAgainst(normalizeHeader(header), p)
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, "_", " ")
	h = strings.ReplaceAll(h, "-", " ")
	return h
}

func scoreAgainst(header string, p *fieldPattern) float64 {
	var best float64

	for _, kw := range p.Keywords {
		if kw == header {
			return 1.0 * p.Weight
		}
		if strings.Contains(header, kw) || strings.Contains(kw, header) {
			longer := len(header)
			if len(kw) > longer {
				longer = len(kw)
			}
			if longer > 0 {
				score := float64(len(kw)) / float64(longer) * 0.9
				if score > best {
					best = score
				}
			}
		}
	}

	for _, re := range p.Patterns {
		if re.MatchString(header) {
			if 0.8 > best {
				best = 0.8
			}
			break
		}
	}

	for _, kw := range p.Keywords {
		if r := similarity(header, kw); r > 0.7 && r*0.7 > best {
			best = r * 0.7
		}
	}

	return best * p.Weight
}

// similarity is the Ratcliff-Obershelp ratio: 2M / (len(a)+len(b)) where M
// is the total length of recursively matched common blocks.
func similarity(a, b string) float64 {
	if len(a)+len(b) == 0 {
		return 0
	}
	m := matchingBlocks(a, b)
	return 2 * float64(m) / float64(len(a)+len(b))
}

func matchingBlocks(a, b string) int {
	ai, bi, size := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingBlocks(a[:ai], b[:bi]) +
		matchingBlocks(a[ai+size:], b[bi+size:])
}

func longestCommonBlock(a, b string) (ai, bi, size int) {
	// DP over suffix lengths; inputs are short header strings.
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > size {
					size = cur[j]
					ai = i - size
					bi = j - size
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return ai, bi, size
}
