// Package expr implements the restricted group-definition language: a
// JMESPath query evaluated against a user-attribute document. Definitions are
// validated once at write time and evaluated on the read path without ever
// touching host code.
package expr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jmespath/go-jmespath"
)

// MaxExpressionLength bounds definition size to keep evaluation and storage
// cost predictable.
const MaxExpressionLength = 500

const (
	CheckSyntax   = "syntax"
	CheckSecurity = "security"
	CheckLength   = "length"
)

// Issue describes one failed validation check.
type Issue struct {
	Check  string
	Reason string
}

// allowedFunctions is the closed built-in set group definitions may call.
var allowedFunctions = map[string]struct{}{
	"contains":    {},
	"ends_with":   {},
	"starts_with": {},
	"length":      {},
	"type":        {},
	"not_null":    {},
	"to_string":   {},
	"to_number":   {},
}

// forbiddenPatterns is a defense-in-depth scan for tokens associated with code
// execution or reflection. The evaluator itself cannot execute host code; the
// scan exists so that a definition resembling an injection attempt is refused
// at the door rather than stored.
var forbiddenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)system`),
	regexp.MustCompile(`(?i)exec`),
	regexp.MustCompile(`(?i)eval`),
	regexp.MustCompile("`"),
	regexp.MustCompile(`\$`),
	regexp.MustCompile(`#\{`),
	regexp.MustCompile(`(?i)class`),
	regexp.MustCompile(`(?i)method`),
	regexp.MustCompile(`(?i)send`),
	regexp.MustCompile(`(?i)const_get`),
	regexp.MustCompile(`(?i)require`),
	regexp.MustCompile(`(?i)load`),
	regexp.MustCompile(`(?i)instance_variable`),
}

var functionCallPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// sampleAttributes is a representative document the syntax check evaluates
// against, covering the attribute names admins typically target.
var sampleAttributes = map[string]any{
	"id":           float64(1),
	"email":        "test@example.com",
	"username":     "testuser",
	"role":         "user",
	"country":      "US",
	"subscription": "basic",
}

// Validate statically checks a group definition. It returns the full list of
// failed checks; an empty list means the definition may be persisted.
func Validate(expression string) []Issue {
	expression = strings.TrimSpace(expression)

	var issues []Issue
	if expression == "" {
		return []Issue{{Check: CheckSyntax, Reason: "expression is empty"}}
	}

	if len(expression) > MaxExpressionLength {
		issues = append(issues, Issue{
			Check:  CheckLength,
			Reason: fmt.Sprintf("expression is too long (max %d characters)", MaxExpressionLength),
		})
	}

	for _, pattern := range forbiddenPatterns {
		if pattern.MatchString(expression) {
			issues = append(issues, Issue{
				Check:  CheckSecurity,
				Reason: fmt.Sprintf("expression contains forbidden pattern: %s", pattern.String()),
			})
		}
	}

	for _, match := range functionCallPattern.FindAllStringSubmatch(expression, -1) {
		name := strings.ToLower(match[1])
		if _, ok := allowedFunctions[name]; !ok {
			issues = append(issues, Issue{
				Check:  CheckSecurity,
				Reason: fmt.Sprintf("function %q is not allowed", name),
			})
		}
	}

	if issue := checkSyntax(expression); issue != nil {
		issues = append(issues, *issue)
	}

	return issues
}

// Reasons flattens issues into human-readable strings for API responses.
func Reasons(issues []Issue) []string {
	reasons := make([]string, 0, len(issues))
	for _, issue := range issues {
		reasons = append(reasons, issue.Reason)
	}
	return reasons
}

func checkSyntax(expression string) (issue *Issue) {
	// The compiler can panic on some malformed inputs; treat that as a plain
	// syntax failure.
	defer func() {
		if r := recover(); r != nil {
			issue = &Issue{Check: CheckSyntax, Reason: fmt.Sprintf("invalid syntax: %v", r)}
		}
	}()

	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return &Issue{Check: CheckSyntax, Reason: fmt.Sprintf("invalid syntax: %v", err)}
	}
	if _, err := compiled.Search(sampleAttributes); err != nil {
		return &Issue{Check: CheckSyntax, Reason: fmt.Sprintf("invalid syntax: %v", err)}
	}
	return nil
}
