// Package repair relocates the start of an elementary audio stream inside an
// encrypted NCM payload whose declared block lengths cannot be trusted.
//
// Candidate start positions are judged on decrypted bytes. Because decryption
// restarts at the located offset, the plaintext at candidate p is
// payload[p:p+n] XOR keystream[0:n], so a short keystream prefix computed once
// is enough to test every candidate in the scan window.
//
// Rules are an ordered list of tagged values. The first rule that matches
// anywhere in the window wins, and within a rule the earliest offset wins.
package repair
