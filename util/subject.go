package util

import "strings"

// SubjectMatches reports whether subj matches a NATS subject pattern that may
// contain * (exactly one token) and > (the whole remainder).
func SubjectMatches(pattern, subj string) bool {
	if pattern == subj {
		return true
	}
	pTok := strings.Split(pattern, ".")
	sTok := strings.Split(subj, ".")
	for i, pt := range pTok {
		if pt == ">" {
			return true
		}
		if i >= len(sTok) {
			return false
		}
		if pt == "*" {
			continue
		}
		if pt != sTok[i] {
			return false
		}
	}
	return len(sTok) == len(pTok)
}
