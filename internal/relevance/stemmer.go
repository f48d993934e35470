package relevance

// Porter stemmer, following the original 1980 algorithm. Operates on
// lower-case ASCII words; words shorter than three letters or containing
// non-ASCII letters are returned unchanged.

type porter struct {
	b []byte
	k int // offset of the last letter
	j int // general offset used by the steps
}

// PorterStem stems a single lower-case token.
func PorterStem(word string) string {
	if len(word) < 3 {
		return word
	}
	for i := 0; i < len(word); i++ {
		if word[i] < 'a' || word[i] > 'z' {
			return word
		}
	}
	p := &porter{b: []byte(word), k: len(word) - 1}
	p.step1ab()
	p.step1c()
	p.step2()
	p.step3()
	p.step4()
	p.step5()
	return string(p.b[:p.k+1])
}

// cons reports whether b[i] is a consonant.
func (p *porter) cons(i int) bool {
	switch p.b[i] {
	case 'a', 'e', 'i', 'o', 'u':
		return false
	case 'y':
		if i == 0 {
			return true
		}
		return !p.cons(i - 1)
	}
	return true
}

// m measures the number of consonant-vowel sequences between 0 and j.
func (p *porter) m() int {
	n := 0
	i := 0
	for {
		if i > p.j {
			return n
		}
		if !p.cons(i) {
			break
		}
		i++
	}
	i++
	for {
		for {
			if i > p.j {
				return n
			}
			if p.cons(i) {
				break
			}
			i++
		}
		i++
		n++
		for {
			if i > p.j {
				return n
			}
			if !p.cons(i) {
				break
			}
			i++
		}
		i++
	}
}

// vowelInStem reports whether 0..j contains a vowel.
func (p *porter) vowelInStem() bool {
	for i := 0; i <= p.j; i++ {
		if !p.cons(i) {
			return true
		}
	}
	return false
}

// doubleC reports whether j-1,j contain a double consonant.
func (p *porter) doubleC(j int) bool {
	if j < 1 {
		return false
	}
	if p.b[j] != p.b[j-1] {
		return false
	}
	return p.cons(j)
}

// cvc reports whether i-2,i-1,i is consonant-vowel-consonant and the final
// consonant is not w, x or y. Used to restore an e (cav(e), lov(e)).
func (p *porter) cvc(i int) bool {
	if i < 2 || !p.cons(i) || p.cons(i-1) || !p.cons(i-2) {
		return false
	}
	switch p.b[i] {
	case 'w', 'x', 'y':
		return false
	}
	return true
}

// ends reports whether the word ends with s, and if so sets j.
func (p *porter) ends(s string) bool {
	l := len(s)
	if l > p.k+1 {
		return false
	}
	if string(p.b[p.k+1-l:p.k+1]) != s {
		return false
	}
	p.j = p.k - l
	return true
}

// setTo replaces b[j+1..k] with s and adjusts k.
func (p *porter) setTo(s string) {
	p.b = append(p.b[:p.j+1], s...)
	p.k = p.j + len(s)
}

// r replaces the suffix when m() > 0.
func (p *porter) r(s string) {
	if p.m() > 0 {
		p.setTo(s)
	}
}

// step1ab removes plurals and -ed / -ing.
func (p *porter) step1ab() {
	if p.b[p.k] == 's' {
		switch {
		case p.ends("sses"):
			p.k -= 2
		case p.ends("ies"):
			p.setTo("i")
		case p.b[p.k-1] != 's':
			p.k--
		}
	}
	if p.ends("eed") {
		if p.m() > 0 {
			p.k--
		}
	} else if (p.ends("ed") || p.ends("ing")) && p.vowelInStem() {
		p.k = p.j
		switch {
		case p.ends("at"):
			p.setTo("ate")
		case p.ends("bl"):
			p.setTo("ble")
		case p.ends("iz"):
			p.setTo("ize")
		case p.doubleC(p.k):
			p.k--
			switch p.b[p.k] {
			case 'l', 's', 'z':
				p.k++
			}
		default:
			if p.m() == 1 && p.cvc(p.k) {
				p.j = p.k
				p.setTo("e")
			}
		}
	}
}

// step1c turns terminal y to i when there is another vowel in the stem.
func (p *porter) step1c() {
	if p.ends("y") && p.vowelInStem() {
		p.b[p.k] = 'i'
	}
}

// step2 maps double suffixes to single ones when m() > 0.
func (p *porter) step2() {
	if p.k < 1 {
		return
	}
	switch p.b[p.k-1] {
	case 'a':
		if p.ends("ational") {
			p.r("ate")
		} else if p.ends("tional") {
			p.r("tion")
		}
	case 'c':
		if p.ends("enci") {
			p.r("ence")
		} else if p.ends("anci") {
			p.r("ance")
		}
	case 'e':
		if p.ends("izer") {
			p.r("ize")
		}
	case 'l':
		if p.ends("bli") {
			p.r("ble")
		} else if p.ends("alli") {
			p.r("al")
		} else if p.ends("entli") {
			p.r("ent")
		} else if p.ends("eli") {
			p.r("e")
		} else if p.ends("ousli") {
			p.r("ous")
		}
	case 'o':
		if p.ends("ization") {
			p.r("ize")
		} else if p.ends("ation") {
			p.r("ate")
		} else if p.ends("ator") {
			p.r("ate")
		}
	case 's':
		if p.ends("alism") {
			p.r("al")
		} else if p.ends("iveness") {
			p.r("ive")
		} else if p.ends("fulness") {
			p.r("ful")
		} else if p.ends("ousness") {
			p.r("ous")
		}
	case 't':
		if p.ends("aliti") {
			p.r("al")
		} else if p.ends("iviti") {
			p.r("ive")
		} else if p.ends("biliti") {
			p.r("ble")
		}
	case 'g':
		if p.ends("logi") {
			p.r("log")
		}
	}
}

// step3 handles -ic-, -full, -ness etc.
func (p *porter) step3() {
	switch p.b[p.k] {
	case 'e':
		if p.ends("icate") {
			p.r("ic")
		} else if p.ends("ative") {
			p.r("")
		} else if p.ends("alize") {
			p.r("al")
		}
	case 'i':
		if p.ends("iciti") {
			p.r("ic")
		}
	case 'l':
		if p.ends("ical") {
			p.r("ic")
		} else if p.ends("ful") {
			p.r("")
		}
	case 's':
		if p.ends("ness") {
			p.r("")
		}
	}
}

// step4 removes -ant, -ence etc. in context <c>vcvc<v>.
func (p *porter) step4() {
	if p.k < 1 {
		return
	}
	switch p.b[p.k-1] {
	case 'a':
		if !p.ends("al") {
			return
		}
	case 'c':
		if !p.ends("ance") && !p.ends("ence") {
			return
		}
	case 'e':
		if !p.ends("er") {
			return
		}
	case 'i':
		if !p.ends("ic") {
			return
		}
	case 'l':
		if !p.ends("able") && !p.ends("ible") {
			return
		}
	case 'n':
		if !p.ends("ant") && !p.ends("ement") && !p.ends("ment") && !p.ends("ent") {
			return
		}
	case 'o':
		if p.ends("ion") {
			if p.j < 0 || (p.b[p.j] != 's' && p.b[p.j] != 't') {
				return
			}
		} else if !p.ends("ou") {
			return
		}
	case 's':
		if !p.ends("ism") {
			return
		}
	case 't':
		if !p.ends("ate") && !p.ends("iti") {
			return
		}
	case 'u':
		if !p.ends("ous") {
			return
		}
	case 'v':
		if !p.ends("ive") {
			return
		}
	case 'z':
		if !p.ends("ize") {
			return
		}
	default:
		return
	}
	if p.m() > 1 {
		p.k = p.j
	}
}

// step5 removes a final -e and reduces -ll when m() > 1.
func (p *porter) step5() {
	p.j = p.k
	if p.b[p.k] == 'e' {
		a := p.m()
		if a > 1 || (a == 1 && !p.cvc(p.k-1)) {
			p.k--
		}
	}
	if p.b[p.k] == 'l' && p.doubleC(p.k) && p.m() > 1 {
		p.k--
	}
}
