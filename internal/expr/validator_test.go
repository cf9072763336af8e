package expr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsWellFormedDefinitions(t *testing.T) {
	for _, expression := range []string{
		"role == 'vip'",
		"country == 'US'",
		"ends_with(email, '@example.com')",
		"starts_with(username, 'beta_')",
		"contains(username, 'tester')",
		"not_null(subscription)",
		"contains(email, 'example')",
		"type(id) == 'number'",
	} {
		assert.Empty(t, Validate(expression), "expected %q to validate", expression)
	}
}

func TestValidateRejectsEmptyExpression(t *testing.T) {
	issues := Validate("   ")
	assert.Len(t, issues, 1)
	assert.Equal(t, CheckSyntax, issues[0].Check)
}

func TestValidateRejectsMalformedSyntax(t *testing.T) {
	issues := Validate("role == ")
	assert.NotEmpty(t, issues)
	assert.Equal(t, CheckSyntax, issues[0].Check)
}

func TestValidateRejectsForbiddenTokens(t *testing.T) {
	for _, expression := range []string{
		"system == 'x'",
		"exec_mode == 'on'",
		"eval(role)",
		"role == 'a' && method == 'b'",
		"send_at == 'now'",
		"class == 'gold'",
		"payload == 'x'", // contains "load"
	} {
		issues := Validate(expression)
		assert.NotEmpty(t, issues, "expected %q to be rejected", expression)
		found := false
		for _, issue := range issues {
			if issue.Check == CheckSecurity {
				found = true
			}
		}
		assert.True(t, found, "expected a security issue for %q", expression)
	}
}

func TestValidateRejectsUnknownFunctions(t *testing.T) {
	issues := Validate("reverse(username) == 'abc'")
	assert.NotEmpty(t, issues)
	assert.Equal(t, CheckSecurity, issues[0].Check)
	assert.Contains(t, issues[0].Reason, "reverse")
}

func TestValidateRejectsOverlongExpression(t *testing.T) {
	expression := "role == '" + strings.Repeat("a", MaxExpressionLength) + "'"
	issues := Validate(expression)
	assert.NotEmpty(t, issues)
	assert.Equal(t, CheckLength, issues[0].Check)
}

func TestValidateReportsEveryFailedCheck(t *testing.T) {
	// Overlong and contains a forbidden token.
	expression := "eval_target == '" + strings.Repeat("a", MaxExpressionLength) + "'"
	issues := Validate(expression)
	checks := make(map[string]bool)
	for _, issue := range issues {
		checks[issue.Check] = true
	}
	assert.True(t, checks[CheckLength])
	assert.True(t, checks[CheckSecurity])

	reasons := Reasons(issues)
	assert.Len(t, reasons, len(issues))
}

func TestValidateRejectsTypeMismatchAgainstSampleData(t *testing.T) {
	// id is numeric in the sample document, so a string function on it fails
	// at search time.
	issues := Validate("ends_with(id, 'x')")
	assert.NotEmpty(t, issues)
}
