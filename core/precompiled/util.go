package precompiled

import "strconv"

func itoa(n int) string { return strconv.Itoa(n) }

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
