package model

import "io"

func (s Stmt) String() string {
	return string(s)
}

// Strings returns the statements as a plain list of strings
func (s Stmts) Strings() []string {
	list := make([]string, len(s))
	for i, stmt := range s {
		list[i] = stmt.String()
	}
	return list
}

// WriteTo writes each statement on a line of its own
func (s Stmts) WriteTo(dst io.Writer) (int64, error) {
	var total int64
	for _, stmt := range s {
		n, err := io.WriteString(dst, stmt.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
		n, err = io.WriteString(dst, "\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
