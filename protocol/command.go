package protocol

// Checksum calculates the Marlin line checksum: the running XOR of every
// byte preceding the '*' delimiter.
func Checksum(line []byte) byte {
	var sum byte
	for _, b := range line {
		sum ^= b
	}
	return sum
}

// MatchCommand recognizes a G/M command token at the start of line: a single
// letter from {G, M} immediately followed by one or more digits. It returns
// the letter, the full letter+digits token, and whether the line matched.
func MatchCommand(line string) (byte, string, bool) {
	if len(line) < 2 || (line[0] != 'G' && line[0] != 'M') {
		return 0, "", false
	}
	i := 1
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 1 {
		return 0, "", false
	}
	return line[0], line[:i], true
}

// parseLineNumber extracts the explicit sequence number from a line of the
// form "N<digits> ...". Reports false when no digits follow the N.
func parseLineNumber(data []byte) (int, bool) {
	if len(data) == 0 || data[0] != 'N' {
		return 0, false
	}
	n := 0
	i := 1
	for i < len(data) && data[i] >= '0' && data[i] <= '9' {
		n = n*10 + int(data[i]-'0')
		i++
	}
	if i == 1 {
		return 0, false
	}
	return n, true
}

// stripFirstField removes the leading whitespace-delimited field and any
// whitespace separating it from the rest of the line.
func stripFirstField(data []byte) []byte {
	i := 0
	for i < len(data) && !isSpace(data[i]) {
		i++
	}
	for i < len(data) && isSpace(data[i]) {
		i++
	}
	return data[i:]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
