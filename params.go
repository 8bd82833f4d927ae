package tracefmt

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// The parameter patterns need a negative lookahead so they run on regexp2
// rather than RE2.
var (
	paramsRef      = regexp2.MustCompile(`\b ?ref ?\b`, regexp2.None)
	paramList      = regexp2.MustCompile(`\((?!at)(.*?)\)`, regexp2.None)
	paramArguments = regexp2.MustCompile(`([ (])([^),]+?) (.+?)([\),])`, regexp2.None)
)

// argumentRewriter rewrites one parenthesized argument list, parens included.
type argumentRewriter func(list string) (string, error)

var argumentRewriters = map[ParamsMode]argumentRewriter{
	ParamsTypesOnly: substituteArguments("$1$2$4"),
	ParamsNamesOnly: substituteArguments("$1$3$4"),
	ParamsCompact:   func(string) (string, error) { return "()", nil },
}

func substituteArguments(replacement string) argumentRewriter {
	return func(list string) (string, error) {
		return paramArguments.Replace(list, replacement, -1, -1)
	}
}

// formatParams drops ref qualifiers and rewrites every argument list on the
// line except the "(at file:line)" location.
func formatParams(line string, mode ParamsMode) (string, error) {
	rewrite, ok := argumentRewriters[mode]
	if !ok {
		return "", fmt.Errorf("%w: params mode %s", ErrUnsupportedMode, mode)
	}

	line, err := paramsRef.Replace(line, "", -1, -1)
	if err != nil {
		return "", fmt.Errorf("remove ref: %w", err)
	}

	var rewriteErr error
	out, err := paramList.ReplaceFunc(line, func(m regexp2.Match) string {
		s, err := rewrite(m.String())
		if err != nil {
			rewriteErr = err
			return m.String()
		}
		return s
	}, -1, -1)
	if err != nil {
		return "", fmt.Errorf("rewrite params: %w", err)
	}
	if rewriteErr != nil {
		return "", fmt.Errorf("rewrite params: %w", rewriteErr)
	}
	return out, nil
}
