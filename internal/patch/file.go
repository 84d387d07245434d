package patch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bianoble/hostpatch/internal/sandbox"
)

// ApplyFile performs one read-modify-write of op.File under root. The file is
// written back atomically, so a failing operation leaves it untouched.
func ApplyFile(root string, op Operation) error {
	content, perm, err := sandbox.SafeReadFile(root, op.File)
	if err != nil {
		return fmt.Errorf("reading %s: %w", op.File, err)
	}

	lines, eol, trailing := splitLines(string(content))
	out, err := Apply(lines, op)
	if err != nil {
		var te *TriggerError
		if errors.As(err, &te) {
			te.File = op.File
		}
		return err
	}

	if err := sandbox.SafeWrite(root, op.File, []byte(joinLines(out, eol, trailing)), perm); err != nil {
		return fmt.Errorf("writing %s: %w", op.File, err)
	}
	return nil
}

// ApplyAll applies ops in order and stops at the first failure. It returns
// the number of operations that were written before the failure.
func ApplyAll(root string, ops []Operation) (int, error) {
	for i, op := range ops {
		if err := ApplyFile(root, op); err != nil {
			return i, fmt.Errorf("operation %d (%s): %w", i+1, op, err)
		}
	}
	return len(ops), nil
}

// splitLines breaks s on "\n" and strips the "\r" of every CRLF ending, so
// files with mixed endings still yield one entry per line. Any CRLF in s makes
// CRLF the ending written back.
func splitLines(s string) (lines []string, eol string, trailing bool) {
	eol = "\n"
	if strings.Contains(s, "\r\n") {
		eol = "\r\n"
	}
	if s == "" {
		return nil, eol, false
	}
	trailing = strings.HasSuffix(s, "\n")
	lines = strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i := range lines {
		if i == len(lines)-1 && !trailing {
			break
		}
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	return lines, eol, trailing
}

func joinLines(lines []string, eol string, trailing bool) string {
	out := strings.Join(lines, eol)
	if trailing {
		out += eol
	}
	return out
}
