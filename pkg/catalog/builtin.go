package catalog

// Built-in rules cover the legacy helper vocabulary that appears in
// calculation-view formulas. A YAML rule file can add to or override
// them; see Load.

var builtinFunctions = []FunctionRule{
	{
		Name:    "IF",
		Handler: HandlerTemplate,
		MinArgs: 3,
		Dialects: map[string]string{
			"snowflake": "IFF({0}, {1}, {2})",
			"hana":      "CASE WHEN {0} THEN {1} ELSE {2} END",
		},
		Description: "conditional expression",
	},
	{
		Name:        "LEFTSTR",
		Handler:     HandlerTemplate,
		Template:    "SUBSTRING({0}, 1, {1})",
		MinArgs:     2,
		Description: "legacy left-substring helper",
	},
	{
		Name:        "RIGHTSTR",
		Handler:     HandlerRename,
		Target:      "RIGHT",
		MinArgs:     2,
		Description: "legacy right-substring helper",
	},
	{
		Name:        "MIDSTR",
		Handler:     HandlerRename,
		Target:      "SUBSTRING",
		MinArgs:     2,
		Description: "legacy mid-substring helper",
	},
	{
		Name:        "STRING",
		Handler:     HandlerRename,
		Target:      "TO_VARCHAR",
		MinArgs:     1,
		Description: "string conversion helper",
	},
	{
		Name:        "INT",
		Handler:     HandlerRename,
		Target:      "TO_INTEGER",
		MinArgs:     1,
		Description: "integer conversion helper",
	},
	{
		Name:        "ISNULL",
		Handler:     HandlerTemplate,
		Template:    "(({0}) IS NULL)",
		MinArgs:     1,
		Description: "null test helper",
	},
	{
		Name:        "IFNULL",
		Handler:     HandlerRename,
		Target:      "COALESCE",
		MinArgs:     2,
		Description: "null default helper",
	},
	{
		Name:        "NVL",
		Handler:     HandlerRename,
		Target:      "COALESCE",
		MinArgs:     2,
		Description: "null default helper",
	},
	{
		Name:        "CONCAT",
		Handler:     HandlerConcat,
		MinArgs:     2,
		Description: "null-safe string concatenation",
	},
	{
		Name:        "CONCATENATE",
		Handler:     HandlerConcat,
		MinArgs:     2,
		Description: "null-safe string concatenation",
	},
	{
		Name:        "UCASE",
		Handler:     HandlerRename,
		Target:      "UPPER",
		MinArgs:     1,
		Description: "uppercase helper",
	},
	{
		Name:        "LCASE",
		Handler:     HandlerRename,
		Target:      "LOWER",
		MinArgs:     1,
		Description: "lowercase helper",
	},
	{
		Name:        "MATCH",
		Handler:     HandlerRegexpLike,
		MinArgs:     1,
		Description: "glob-style pattern match",
	},
	{
		Name:        "IN",
		Handler:     HandlerInList,
		MinArgs:     2,
		Description: "function-style IN() to operator-style list membership",
	},
	{
		Name:        "DAYSBETWEEN",
		Handler:     HandlerRename,
		Target:      "DAYS_BETWEEN",
		MinArgs:     2,
		Description: "date difference helper",
	},
	{
		Name:    "NOW",
		Handler: HandlerTemplate,
		Dialects: map[string]string{
			"snowflake": "CURRENT_TIMESTAMP()",
			"hana":      "CURRENT_TIMESTAMP",
		},
		Description: "current timestamp",
	},
	{
		Name:    "DATE",
		Handler: HandlerTemplate,
		MinArgs: 1,
		Dialects: map[string]string{
			"snowflake": "TO_DATE({0})",
			"hana":      "TO_DATE({0})",
		},
		Description: "date conversion helper",
	},
}

var builtinPatterns = []PatternRule{
	{
		// NOW() arithmetic must be rewritten before NOW() itself, or
		// the day offset is left dangling after a plain timestamp.
		Name:  "now_minus_days",
		Match: `NOW\s*\(\s*\)\s*-\s*(\d+)`,
		Replacements: map[string]string{
			"hana":      "ADD_DAYS(CURRENT_DATE, -$1)",
			"snowflake": "DATEADD(DAY, -$1, CURRENT_DATE())",
		},
		Description: "relative date arithmetic on the clock function",
	},
	{
		Name:  "now_plus_days",
		Match: `NOW\s*\(\s*\)\s*\+\s*(\d+)`,
		Replacements: map[string]string{
			"hana":      "ADD_DAYS(CURRENT_DATE, $1)",
			"snowflake": "DATEADD(DAY, $1, CURRENT_DATE())",
		},
		Description: "relative date arithmetic on the clock function",
	},
	{
		Name:  "empty_date_literal",
		Match: `DATE\s*\(\s*''\s*\)`,
		Replacements: map[string]string{
			"hana":      "NULL",
			"snowflake": "NULL",
		},
		Description: "empty-string date literals left over from blank parameters",
	},
}

// Builtin returns a catalog containing only the built-in rules.
func Builtin() *Catalog {
	c, err := New(builtinFunctions, builtinPatterns)
	if err != nil {
		// Built-in patterns are compile-time constants; a bad regex
		// here is a programming error.
		panic(err)
	}
	return c
}
